package httpapi

import (
	"errors"
	"net/http"

	"github.com/oapi-codegen/nullable"

	"github.com/outstationguru/og-api/internal/app/fares"
	"github.com/outstationguru/og-api/internal/domain"
)

type QuoteFareRequest struct {
	Origin      nullable.Nullable[string]   `json:"origin"`
	Destination nullable.Nullable[string]   `json:"destination"`
	Km          nullable.Nullable[float64]  `json:"km"`
	VehicleType nullable.Nullable[string]   `json:"vehicleType"`
	Waypoints   nullable.Nullable[[]string] `json:"waypoints"`
}

type FareBreakdown struct {
	Base         float64 `json:"base"`
	PerKm        float64 `json:"perKm"`
	Km           float64 `json:"km"`
	DistanceFare float64 `json:"distanceFare"`
	Taxes        float64 `json:"taxes"`
}

type QuoteFareResponse struct {
	OK          bool          `json:"ok"`
	Currency    string        `json:"currency"`
	VehicleType string        `json:"vehicleType"`
	Breakdown   FareBreakdown `json:"breakdown"`
	Total       float64       `json:"total"`
}

func (s *Server) QuoteFare(w http.ResponseWriter, r *http.Request) {
	const op = "quote_fare"
	var body QuoteFareRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeValidation(w, r, op, err)
		return
	}

	ve := &validationError{message: "invalid request body"}
	requiredString(ve, "origin", body.Origin)
	requiredString(ve, "destination", body.Destination)
	km, _ := optionalPositive(ve, "km", body.Km)
	vt := parseVehicleType(ve, body.VehicleType)
	optionalValue(ve, "waypoints", body.Waypoints)
	if err := ve.orNil(); err != nil {
		s.writeValidation(w, r, op, err)
		return
	}

	q, err := fares.Compute(vt, km)
	if err != nil {
		if errors.Is(err, fares.ErrUnknownVehicleType) || errors.Is(err, fares.ErrInvalidDistance) {
			s.logOperationError(r.Context(), op, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), err)
			writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		s.writeInternal(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusOK, QuoteFareResponse{
		OK:          true,
		Currency:    q.Currency,
		VehicleType: string(q.VehicleType),
		Breakdown: FareBreakdown{
			Base:         q.Base,
			PerKm:        q.PerKm,
			Km:           q.Km,
			DistanceFare: q.DistanceFare,
			Taxes:        q.Taxes,
		},
		Total: q.Total,
	})
}

func parseVehicleType(ve *validationError, v nullable.Nullable[string]) domain.VehicleType {
	raw, ok := optionalValue(ve, "vehicleType", v)
	if !ok {
		return domain.DefaultVehicleType
	}
	vt, err := domain.ParseVehicleType(raw)
	if err != nil {
		ve.add("vehicleType", "must be one of sedan, suv, tempo")
		return domain.DefaultVehicleType
	}
	return vt
}

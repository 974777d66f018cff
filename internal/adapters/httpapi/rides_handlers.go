package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/oapi-codegen/nullable"

	"github.com/outstationguru/og-api/internal/app/rides"
	"github.com/outstationguru/og-api/internal/domain"
	"github.com/outstationguru/og-api/internal/ports/out/idempotency"
)

const createDraftRoute = "/api/v1/rides/createDraft"

type CreateRideDraftRequest struct {
	CustomerUID nullable.Nullable[string]  `json:"customerUid"`
	Pickup      nullable.Nullable[string]  `json:"pickup"`
	Drop        nullable.Nullable[string]  `json:"drop"`
	When        nullable.Nullable[string]  `json:"when"`
	VehicleType nullable.Nullable[string]  `json:"vehicleType"`
	QuoteTotal  nullable.Nullable[float64] `json:"quoteTotal"`
}

type CreateRideDraftResponse struct {
	OK     bool   `json:"ok"`
	RideID string `json:"rideId"`
	Status string `json:"status"`
}

// rideDraftHashInput is the canonical form hashed for idempotency, after defaults apply.
type rideDraftHashInput struct {
	CustomerUID string   `json:"customerUid,omitempty"`
	Pickup      string   `json:"pickup"`
	Drop        string   `json:"drop"`
	When        string   `json:"when"`
	VehicleType string   `json:"vehicleType"`
	QuoteTotal  *float64 `json:"quoteTotal,omitempty"`
}

func (s *Server) CreateRideDraft(w http.ResponseWriter, r *http.Request) {
	const op = "create_ride_draft"
	ctx := r.Context()

	var body CreateRideDraftRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeValidation(w, r, op, err)
		return
	}

	ve := &validationError{message: "invalid request body"}
	in := rides.CreateDraftInput{
		Pickup:      requiredString(ve, "pickup", body.Pickup),
		Drop:        requiredString(ve, "drop", body.Drop),
		When:        requiredString(ve, "when", body.When),
		VehicleType: parseVehicleType(ve, body.VehicleType),
	}
	if uid, ok := optionalValue(ve, "customerUid", body.CustomerUID); ok && uid != "" {
		sub := domain.SubjectID(uid)
		in.CustomerUID = &sub
	}
	if total, ok := optionalPositive(ve, "quoteTotal", body.QuoteTotal); ok {
		in.QuoteTotal = &total
	}
	if err := ve.orNil(); err != nil {
		s.writeValidation(w, r, op, err)
		return
	}

	// Idempotency handling:
	// - Replay if same caller+key+route+bodyHash
	// - Reject if same caller+key+route with different bodyHash (409)
	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	var metaFP idempotency.Fingerprint
	var bodyHash string
	if s.Idem != nil && idemKey != "" {
		h, err := hashRideDraftInput(in)
		if err != nil {
			s.writeInternal(w, r, op, err)
			return
		}
		bodyHash = h
		metaFP = idempotency.Fingerprint{
			Key:    idempotency.Key(idemKey),
			Method: http.MethodPost,
			Route:  createDraftRoute,
		}
		if in.CustomerUID != nil {
			metaFP.Subject = *in.CustomerUID
		}

		meta, ok, err := s.Idem.Get(ctx, metaFP)
		if err != nil {
			s.writeInternal(w, r, op, err)
			return
		}
		if ok {
			if string(meta.Body) != bodyHash {
				s.logOperationError(ctx, op, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
				writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
				return
			}
		} else {
			_ = s.Idem.Put(ctx, metaFP, idempotency.Record{
				StatusCode:  0,
				ContentType: "text/plain",
				Body:        []byte(bodyHash),
				CreatedAt:   s.clk.Now(),
			})
		}

		respFP := metaFP
		respFP.BodyHash = bodyHash
		rec, ok, err := s.Idem.Get(ctx, respFP)
		if err != nil {
			s.writeInternal(w, r, op, err)
			return
		}
		if ok && rec.StatusCode == http.StatusOK && strings.HasPrefix(rec.ContentType, "application/json") {
			var payload CreateRideDraftResponse
			if err := json.Unmarshal(rec.Body, &payload); err == nil {
				writeJSON(w, http.StatusOK, payload)
				return
			}
		}
	}

	created, err := s.Rides.CreateDraft(ctx, in)
	if err != nil {
		s.writeInternal(w, r, op, err)
		return
	}

	resp := CreateRideDraftResponse{
		OK:     true,
		RideID: string(created.ID),
		Status: string(created.Status),
	}
	if bodyHash != "" {
		respFP := metaFP
		respFP.BodyHash = bodyHash
		if b, err := json.Marshal(resp); err == nil {
			_ = s.Idem.Put(ctx, respFP, idempotency.Record{
				StatusCode:  http.StatusOK,
				ContentType: "application/json",
				Body:        b,
				CreatedAt:   s.clk.Now(),
			})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func hashRideDraftInput(in rides.CreateDraftInput) (string, error) {
	canon := rideDraftHashInput{
		Pickup:      in.Pickup,
		Drop:        in.Drop,
		When:        in.When,
		VehicleType: string(in.VehicleType),
		QuoteTotal:  in.QuoteTotal,
	}
	if in.CustomerUID != nil {
		canon.CustomerUID = string(*in.CustomerUID)
	}
	raw, err := json.Marshal(canon)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

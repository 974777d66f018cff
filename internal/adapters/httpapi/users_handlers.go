package httpapi

import (
	"errors"
	"net/http"

	"github.com/oapi-codegen/nullable"

	"github.com/outstationguru/og-api/internal/app/users"
	"github.com/outstationguru/og-api/internal/domain"
)

type EnsureUserRequest struct {
	Phone       nullable.Nullable[string] `json:"phone"`
	Role        nullable.Nullable[string] `json:"role"`
	DisplayName nullable.Nullable[string] `json:"displayName"`
}

type EnsureUserResponse struct {
	OK   bool   `json:"ok"`
	UID  string `json:"uid"`
	Role string `json:"role"`
	ID   string `json:"id"`
}

func (s *Server) EnsureUser(w http.ResponseWriter, r *http.Request) {
	const op = "ensure_user"
	var body EnsureUserRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeValidation(w, r, op, err)
		return
	}

	ve := &validationError{message: "invalid request body"}
	phone, _ := optionalValue(ve, "phone", body.Phone)
	displayName, _ := optionalValue(ve, "displayName", body.DisplayName)
	role := domain.DefaultRole
	if raw, ok := optionalValue(ve, "role", body.Role); ok {
		parsed, err := domain.ParseRole(raw)
		if err != nil {
			ve.add("role", "must be one of customer, driver, partner, admin, ops")
		}
		role = parsed
	}
	if err := ve.orNil(); err != nil {
		s.writeValidation(w, r, op, err)
		return
	}

	token, _ := BearerTokenFromContext(r.Context())
	res, err := s.Users.EnsureUser(r.Context(), users.EnsureUserInput{
		BearerToken: token,
		Phone:       phone,
		Role:        string(role),
		DisplayName: displayName,
	})
	if err != nil {
		if ae := (*users.Error)(nil); errors.As(err, &ae) {
			s.logOperationError(r.Context(), op, ae.Status, ae.Code, ae.Message, nil)
			writeError(w, r, ae.Status, ae.Code, ae.Message, ae.Details)
			return
		}
		s.writeInternal(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusOK, EnsureUserResponse{
		OK:   true,
		UID:  string(res.Subject),
		Role: string(res.Role),
		ID:   string(res.ExternalID),
	})
}

func (s *Server) writeValidation(w http.ResponseWriter, r *http.Request, op string, err error) {
	ve := (*validationError)(nil)
	if !errors.As(err, &ve) {
		s.writeInternal(w, r, op, err)
		return
	}
	s.logOperationError(r.Context(), op, http.StatusBadRequest, "VALIDATION_ERROR", ve.message, nil)
	writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", ve.message, ve.fields)
}

package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"
)

// ErrorBody is the "error" member of every failure response.
type ErrorBody struct {
	Code      string                            `json:"code"`
	Message   string                            `json:"message"`
	Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
	RequestID nullable.Nullable[string]         `json:"requestId,omitempty"`
}

type ErrorResponse struct {
	OK    bool      `json:"ok"`
	Error ErrorBody `json:"error"`
}

func apiError(ctx context.Context, code string, message string, details map[string]any) ErrorResponse {
	var er ErrorResponse
	er.Error.Code = code
	er.Error.Message = message
	if details != nil {
		er.Error.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(ctx); rid != "" {
		er.Error.RequestID = nullable.NewNullableWithValue(rid)
	}
	return er
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	writeJSON(w, status, apiError(r.Context(), code, message, details))
}

// writeInternal is the catch-all: the error is logged and its message returned.
func (s *Server) writeInternal(w http.ResponseWriter, r *http.Request, operation string, err error) {
	s.logOperationError(r.Context(), operation, http.StatusInternalServerError, "INTERNAL", err.Error(), err)
	writeError(w, r, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
}

func (s *Server) logOperationError(ctx context.Context, operation string, statusCode int, code, message string, err error) {
	fields := []any{
		"operation", operation,
		"outcome", "failure",
		"status_code", statusCode,
		"error_code", code,
		"message", message,
		"request_id", middleware.GetReqID(ctx),
	}
	if err != nil {
		fields = append(fields, "error", err.Error())
	}
	level := slog.LevelWarn
	if statusCode >= 500 {
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, "http operation failed", fields...)
}

package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/oapi-codegen/nullable"
)

const maxBodyBytes = 1 << 20

// validationError collects per-field problems; it becomes a 400 VALIDATION_ERROR.
type validationError struct {
	message string
	fields  map[string]any
}

func (e *validationError) Error() string { return e.message }

func (e *validationError) add(field, problem string) {
	if e.fields == nil {
		e.fields = map[string]any{}
	}
	if _, exists := e.fields[field]; !exists {
		e.fields[field] = problem
	}
}

func (e *validationError) orNil() error {
	if len(e.fields) == 0 {
		return nil
	}
	return e
}

// decodeBody reads a JSON object into dst. An empty body decodes as {}.
// Unknown fields are ignored.
func decodeBody(r *http.Request, dst any) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return &validationError{message: "unreadable request body", fields: map[string]any{"body": err.Error()}}
	}
	if len(raw) > maxBodyBytes {
		return &validationError{message: "request body too large", fields: map[string]any{"body": fmt.Sprintf("must be at most %d bytes", maxBodyBytes)}}
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if raw[0] != '{' {
		return &validationError{message: "invalid request body", fields: map[string]any{"body": "must be a JSON object"}}
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		ve := &validationError{message: "invalid request body"}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			ve.add(typeErr.Field, "must be a "+jsonTypeName(typeErr.Type.Kind().String()))
		} else {
			ve.add("body", err.Error())
		}
		return ve
	}
	return nil
}

func jsonTypeName(kind string) string {
	switch kind {
	case "string":
		return "string"
	case "float64", "float32", "int", "int64":
		return "number"
	case "slice":
		return "array"
	case "map", "struct":
		return "object"
	case "bool":
		return "boolean"
	default:
		return kind
	}
}

// requiredString reads a field that must be present and non-null.
func requiredString(ve *validationError, field string, v nullable.Nullable[string]) string {
	if !v.IsSpecified() {
		ve.add(field, "is required")
		return ""
	}
	if v.IsNull() {
		ve.add(field, "must not be null")
		return ""
	}
	s, _ := v.Get()
	return s
}

// optionalValue reads a field that may be omitted but not null.
func optionalValue[T any](ve *validationError, field string, v nullable.Nullable[T]) (T, bool) {
	var zero T
	if !v.IsSpecified() {
		return zero, false
	}
	if v.IsNull() {
		ve.add(field, "must not be null")
		return zero, false
	}
	out, err := v.Get()
	if err != nil {
		return zero, false
	}
	return out, true
}

// optionalPositive reads an optional number that must be greater than zero.
func optionalPositive(ve *validationError, field string, v nullable.Nullable[float64]) (float64, bool) {
	n, ok := optionalValue(ve, field, v)
	if !ok {
		return 0, false
	}
	if n <= 0 {
		ve.add(field, "must be greater than 0")
		return 0, false
	}
	return n, true
}

package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/rohits-web03/edudrive/internal/apperr"
)

const maxJSONBody = 1 << 20

var validate = validator.New()

// DecodeJSON reads a JSON body into dst, rejecting unknown fields, and
// runs the struct's validate tags.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperr.New(apperr.InvalidInput, "Invalid request body")
	}
	return Validate(dst)
}

// Validate checks validate tags and reports the first failing field.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperr.Newf(apperr.InvalidInput, "%s failed on the '%s' rule", fe.Field(), fe.Tag()).
			WithDetails(map[string]any{"field": fe.Field(), "rule": fe.Tag()})
	}
	return apperr.New(apperr.InvalidInput, "Invalid request")
}

// PathUUID parses the named path wildcard as a UUID.
func PathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return ParseUUID(r.PathValue(name), name)
}

// OptionalUUID parses s as a UUID; empty means nil.
func OptionalUUID(s, field string) (*uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	id, err := ParseUUID(s, field)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func ParseUUID(s, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, apperr.Newf(apperr.InvalidInput, "%s must be a UUID", field).
			WithDetails(map[string]any{"field": field})
	}
	return id, nil
}

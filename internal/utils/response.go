package utils

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/rohits-web03/edudrive/internal/apperr"
)

type Payload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSONResponse sends a JSON response with given status, success flag, and payload
func JSONResponse(w http.ResponseWriter, status int, payload Payload) {
	writeJSON(w, status, payload)
}

// ErrorResponse writes err in the {code, message, status, details} shape.
// Causes of OPERATION_FAILED errors are logged and never sent.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	ae := apperr.From(err)
	if ae.Code == apperr.OperationFailed {
		log.Ctx(r.Context()).Error().Err(ae.Err).Str("op", ae.Op).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, ae.Status, ae)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

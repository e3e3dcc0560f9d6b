package httpapi

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/econic-ai/graphs/pkg/errors"
)

// writeJSON writes v with the usual headers. Encode errors are ignored:
// by then the status line is out and the client has likely hung up.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errResponse is the uniform error body.
type errResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeError maps an error to a status and writes the error body. Only
// unexpected errors get logged; client mistakes are just answered.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := httpStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "error", err)
	}
	body := errResponse{Error: err.Error()}
	if code := apperrors.GetCode(err); code != "" {
		body.Code = string(code)
	}
	writeJSON(w, status, body)
}

// httpStatus picks a response status: lookups that miss are 404, invalid
// input of any shape is 400, the rest is 500.
func httpStatus(err error) int {
	switch {
	case apperrors.Is(err, apperrors.ErrCodeNotFound),
		apperrors.Is(err, apperrors.ErrCodeFileNotFound):
		return http.StatusNotFound
	case apperrors.Is(err, apperrors.ErrCodeInvalidInput),
		apperrors.Is(err, apperrors.ErrCodeInvalidDefinition),
		apperrors.Is(err, apperrors.ErrCodeInvalidStructure),
		apperrors.Is(err, apperrors.ErrCodeInvalidFormat),
		apperrors.Is(err, apperrors.ErrCodeInvalidEasing):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/HostsBox/internal/models"
)

// ErrorResponse is the body of every non-2xx reply. Message carries the
// confirmation question on 428 replies.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Sandboxed bool   `json:"sandboxed,omitempty"`
	Message   string `json:"message,omitempty"`
}

var codeStatus = map[string]int{
	"cancelled":        http.StatusConflict,
	"elevation_failed": http.StatusBadGateway,
	"conflict":         http.StatusConflict,
	"not_found":        http.StatusNotFound,
	"confirm":          http.StatusPreconditionRequired,
	"invalid_name":     http.StatusBadRequest,
	"invalid_state":    http.StatusBadRequest,
	"empty_selection":  http.StatusBadRequest,
	"bad_request":      http.StatusBadRequest,
}

// statusFor maps the error taxonomy to an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	code := models.ErrorCode(err)
	if status, ok := codeStatus[code]; ok {
		return status, code
	}
	return http.StatusInternalServerError, code
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeJSON(w, status, ErrorResponse{
		Error:     err.Error(),
		Code:      code,
		Sandboxed: errors.Is(err, models.ErrSandboxed),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg, Code: "bad_request"})
}

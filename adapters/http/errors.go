package authhttp

import (
	"encoding/json"
	"net/http"

	"github.com/open-rails/linkconfirm/core"
)

type errResp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sendErr(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errResp{Error: code})
}

func badRequest(w http.ResponseWriter, code string) { sendErr(w, http.StatusBadRequest, code) }
func tooMany(w http.ResponseWriter)                 { sendErr(w, http.StatusTooManyRequests, "rate_limited") }
func serverErr(w http.ResponseWriter, code string)  { sendErr(w, http.StatusInternalServerError, code) }

// StatusFor maps a confirmation outcome onto an HTTP status.
func StatusFor(kind core.ResultKind) int {
	switch kind {
	case core.ResultSuccess:
		return http.StatusOK
	case core.ResultInvalidLink, core.ResultValidationError:
		return http.StatusBadRequest
	case core.ResultProviderError:
		return http.StatusUnprocessableEntity
	case core.ResultConfigError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

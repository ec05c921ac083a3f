package handlers

import (
	"net/http"

	"github.com/open-rails/linkconfirm/core"
)

// LinkResult is the JSON body returned by both link endpoints.
type LinkResult struct {
	OK              bool   `json:"ok"`
	Outcome         string `json:"outcome"`
	Flow            string `json:"flow"`
	Message         string `json:"message"`
	Error           string `json:"error,omitempty"`
	Detail          string `json:"detail,omitempty"`
	RedirectTo      string `json:"redirect_to,omitempty"`
	RedirectAfterMs int64  `json:"redirect_after_ms,omitempty"`
	ResetTicket     string `json:"reset_ticket,omitempty"`
}

func newLinkResult(res core.ConfirmationResult) LinkResult {
	msg, _ := core.Status(res)
	out := LinkResult{
		OK:          res.OK(),
		Outcome:     string(res.Kind),
		Flow:        string(res.Flow),
		Message:     msg,
		ResetTicket: res.ResetTicket,
	}
	if !res.OK() {
		out.Error = string(res.Kind)
		if res.Kind == core.ResultProviderError || res.Kind == core.ResultValidationError {
			out.Detail = res.Detail
		}
	}
	if res.OK() && res.RedirectTo != "" {
		out.RedirectTo = res.RedirectTo
		out.RedirectAfterMs = res.RedirectAfter.Milliseconds()
	}
	return out
}

func statusFor(kind core.ResultKind) int {
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

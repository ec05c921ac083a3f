package authhttp

import (
	"net/http"
	"strings"

	"github.com/open-rails/linkconfirm/core"
)

type linkResultResp struct {
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

func toLinkResultResp(res core.ConfirmationResult) linkResultResp {
	msg, _ := core.Status(res)
	out := linkResultResp{
		OK:          res.OK(),
		Outcome:     string(res.Kind),
		Flow:        string(res.Flow),
		Message:     msg,
		ResetTicket: res.ResetTicket,
	}
	if !res.OK() {
		out.Error = string(res.Kind)
		// Provider and validation messages are meant for the user; internal
		// details are not.
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

func (s *Service) handleLinksConfirmPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLLinkConfirm) {
		tooMany(w)
		return
	}

	var req struct {
		URL      string `json:"url"`
		Query    string `json:"query"`
		Fragment string `json:"fragment"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid_request")
		return
	}

	var p core.LinkParameters
	switch {
	case strings.TrimSpace(req.URL) != "":
		if req.Query != "" || req.Fragment != "" {
			badRequest(w, "invalid_request")
			return
		}
		p = core.ParseLinkURL(strings.TrimSpace(req.URL))
	default:
		p = core.ParseLink(req.Query, req.Fragment)
	}

	res := s.svc.Confirm(r.Context(), p)
	writeJSON(w, StatusFor(res.Kind), toLinkResultResp(res))
}

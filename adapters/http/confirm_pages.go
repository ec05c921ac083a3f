package authhttp

import (
	"net/http"

	"github.com/open-rails/linkconfirm/core"
)

const fragmentParam = "fragment"

// linkFromRequest reads link parameters from a page request. Browsers never
// send the URL fragment, so the page bootstraps once and re-requests with the
// fragment copied into the "fragment" query parameter. needsBootstrap is true
// when the query carries no token and the fragment has not been forwarded yet.
func linkFromRequest(r *http.Request) (p core.LinkParameters, needsBootstrap bool) {
	q := r.URL.Query()
	frag, forwarded := q[fragmentParam]
	q.Del(fragmentParam)
	query := q.Encode()

	if forwarded {
		return core.ParseLink(query, firstOf(frag)), false
	}
	p = core.ParseLink(query, "")
	if p.HasToken() {
		return p, false
	}
	return p, true
}

func firstOf(v []string) string {
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

func (s *Service) confirmPage(flow core.Flow, formAction string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, bootstrap := linkFromRequest(r)
		if bootstrap {
			s.pages.render(w, r, http.StatusOK, pageData{Title: titleFor(flow), Bootstrap: true})
			return
		}
		if !s.allow(r, RLLinkPage) {
			s.pages.render(w, r, http.StatusTooManyRequests, pageData{
				Title:   titleFor(flow),
				Message: "Too many attempts. Please wait a few minutes and try again.",
				IsError: true,
			})
			return
		}
		res := s.svc.ConfirmFor(r.Context(), flow, p)
		s.pages.render(w, r, StatusFor(res.Kind), resultPage(res, formAction))
	}
}

func (s *Service) handleResetPasswordFormPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLLinkPassword) {
		s.pages.render(w, r, http.StatusTooManyRequests, pageData{
			Title:   titleFor(core.FlowPasswordUpdate),
			Message: "Too many attempts. Please wait a few minutes and try again.",
			IsError: true,
		})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		s.pages.render(w, r, http.StatusBadRequest, pageData{
			Title:   titleFor(core.FlowPasswordUpdate),
			Message: "Please check the form and try again.",
			IsError: true,
		})
		return
	}
	ticket := r.PostForm.Get("ticket")
	res := s.svc.ResetPassword(r.Context(), ticket, r.PostForm.Get("password"), r.PostForm.Get("confirm_password"))
	if res.Kind == core.ResultValidationError {
		// Nothing was consumed; show the form again with the same ticket.
		res.ResetTicket = ticket
	}
	s.pages.render(w, r, StatusFor(res.Kind), resultPage(res, resetPasswordPath))
}

package authhttp

import (
	"net/http"

	"github.com/open-rails/linkconfirm/core"
)

const (
	confirmEmailPath  = "/confirm-email"
	resetPasswordPath = "/reset-password"
)

// Handler serves the browser pages and the JSON API:
//
//	GET  /confirm-email          email confirmation page
//	GET  /reset-password         recovery link page (renders the password form)
//	POST /reset-password         password form submission
//	POST /auth/links/confirm     {url} or {query, fragment}
//	POST /auth/links/password    {ticket, password, confirm_password}
func (s *Service) Handler() http.Handler {
	if s == nil || s.svc == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { serverErr(w, "linkconfirm_not_initialized") })
	}
	if !core.IsDevEnvironment() {
		if s.svc.EphemeralMode() != core.EphemeralRedis {
			panic("linkconfirm: redis-compatible ephemeral store is required in production")
		}
	}
	if s.pages == nil {
		s.pages = newPageRenderer()
	}

	mux := http.NewServeMux()

	mux.Handle("GET "+confirmEmailPath, s.confirmPage(core.FlowEmailConfirm, resetPasswordPath))
	mux.Handle("GET "+resetPasswordPath, s.confirmPage(core.FlowPasswordReset, resetPasswordPath))
	mux.Handle("POST "+resetPasswordPath, http.HandlerFunc(s.handleResetPasswordFormPOST))

	mux.Handle("POST /auth/links/confirm", http.HandlerFunc(s.handleLinksConfirmPOST))
	mux.Handle("POST /auth/links/password", http.HandlerFunc(s.handleLinksPasswordPOST))

	return s.RequestContext(mux)
}

package authhttp

import "net/http"

func (s *Service) handleLinksPasswordPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLLinkPassword) {
		tooMany(w)
		return
	}

	var req struct {
		Ticket          string `json:"ticket"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid_request")
		return
	}

	res := s.svc.ResetPassword(r.Context(), req.Ticket, req.Password, req.ConfirmPassword)
	writeJSON(w, StatusFor(res.Kind), toLinkResultResp(res))
}

package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/open-rails/linkconfirm/adapters/ginutil"
	"github.com/open-rails/linkconfirm/core"
)

// HandleLinksPasswordPOST handles POST /auth/links/password.
// A password mismatch is answered locally; the ticket stays valid.
func HandleLinksPasswordPOST(svc *core.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	type passwordReq struct {
		Ticket          string `json:"ticket"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	return func(c *gin.Context) {
		if svc == nil {
			ginutil.ServerErrWithLog(c, "linkconfirm_not_initialized", nil, "link password handler mounted without a service")
			return
		}
		if !ginutil.AllowNamed(c, rl, ginutil.RLLinkPassword) {
			ginutil.TooMany(c)
			return
		}
		var req passwordReq
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		res := svc.ResetPassword(c.Request.Context(), req.Ticket, req.Password, req.ConfirmPassword)
		c.JSON(statusFor(res.Kind), newLinkResult(res))
	}
}

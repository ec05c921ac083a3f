package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/open-rails/linkconfirm/adapters/ginutil"
	"github.com/open-rails/linkconfirm/core"
)

// HandleLinksConfirmPOST handles POST /auth/links/confirm.
//
// The body carries either the full link ({"url": ...}) or its parts
// ({"query": ..., "fragment": ...}) as read by the browser.
func HandleLinksConfirmPOST(svc *core.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	type confirmReq struct {
		URL      string `json:"url"`
		Query    string `json:"query"`
		Fragment string `json:"fragment"`
	}
	return func(c *gin.Context) {
		if svc == nil {
			ginutil.ServerErrWithLog(c, "linkconfirm_not_initialized", nil, "link confirm handler mounted without a service")
			return
		}
		if !ginutil.AllowNamed(c, rl, ginutil.RLLinkConfirm) {
			ginutil.TooMany(c)
			return
		}
		var req confirmReq
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		var p core.LinkParameters
		if u := strings.TrimSpace(req.URL); u != "" {
			if req.Query != "" || req.Fragment != "" {
				ginutil.BadRequest(c, "invalid_request")
				return
			}
			p = core.ParseLinkURL(u)
		} else {
			p = core.ParseLink(req.Query, req.Fragment)
		}

		res := svc.Confirm(c.Request.Context(), p)
		c.JSON(statusFor(res.Kind), newLinkResult(res))
	}
}

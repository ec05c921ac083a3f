package authhttp

// Bucket names used by link confirmation endpoints.
const (
	// Browser pages (GET /confirm-email, GET /reset-password)
	RLLinkPage = "link_page"

	RLLinkConfirm  = "link_confirm"
	RLLinkPassword = "link_password"
)

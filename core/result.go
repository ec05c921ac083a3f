package core

import "time"

// ResultKind classifies the outcome of a confirmation or reset submission.
type ResultKind string

const (
	ResultSuccess         ResultKind = "success"
	ResultInvalidLink     ResultKind = "invalid_link"
	ResultProviderError   ResultKind = "provider_error"
	ResultUnexpectedError ResultKind = "unexpected_error"
	ResultConfigError     ResultKind = "config_error"
	// ResultValidationError is a local form error (password mismatch); no provider call was made.
	ResultValidationError ResultKind = "validation_error"
)

// Flow names the user-facing journey a result belongs to.
type Flow string

const (
	FlowEmailConfirm  Flow = "email_confirm"
	FlowPasswordReset Flow = "password_reset"
	// FlowPasswordUpdate is the form submission that follows a validated recovery link.
	FlowPasswordUpdate Flow = "password_update"
)

// FlowFor returns the flow a link type belongs to.
func FlowFor(t LinkType) Flow {
	if t == LinkRecovery {
		return FlowPasswordReset
	}
	return FlowEmailConfirm
}

// ConfirmationResult is derived per request and never persisted.
type ConfirmationResult struct {
	Kind ResultKind
	Flow Flow
	// Detail carries the provider's message for provider errors, the missing
	// variables for config errors, and a short reason otherwise.
	Detail string

	// RedirectTo and RedirectAfter schedule a navigation after success.
	RedirectTo    string
	RedirectAfter time.Duration

	// ResetTicket is issued after a recovery link validates; it is the only way to
	// reach ResetPassword.
	ResetTicket string
}

func (r ConfirmationResult) OK() bool { return r.Kind == ResultSuccess }

// Status maps a result onto the message shown to the user and whether it is
// displayed as an error.
func Status(r ConfirmationResult) (message string, isError bool) {
	switch r.Kind {
	case ResultSuccess:
		switch r.Flow {
		case FlowPasswordReset:
			return "Please enter your new password.", false
		case FlowPasswordUpdate:
			return "Your password has been reset successfully.", false
		default:
			return "Your email has been confirmed. You can now sign in.", false
		}
	case ResultInvalidLink:
		switch r.Flow {
		case FlowPasswordReset:
			return "Invalid or expired reset link. Please request a new password reset.", true
		case FlowPasswordUpdate:
			return "This password reset session has expired. Please request a new password reset.", true
		default:
			return "Invalid verification link.", true
		}
	case ResultValidationError:
		if r.Detail != "" {
			return r.Detail, true
		}
		return "Please check the form and try again.", true
	case ResultProviderError:
		switch r.Flow {
		case FlowPasswordReset:
			return "Error verifying reset link: " + detailOr(r.Detail, "unknown error"), true
		case FlowPasswordUpdate:
			return "Error: " + detailOr(r.Detail, "unknown error"), true
		default:
			return "Error verifying email: " + detailOr(r.Detail, "unknown error"), true
		}
	case ResultConfigError:
		return "The service is not configured correctly. Please contact support.", true
	default:
		return "An unexpected error occurred. Please try again.", true
	}
}

func detailOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

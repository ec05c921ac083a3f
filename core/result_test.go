package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		res     ConfirmationResult
		msg     string
		isError bool
	}{
		{ConfirmationResult{Kind: ResultSuccess, Flow: FlowEmailConfirm}, "Your email has been confirmed. You can now sign in.", false},
		{ConfirmationResult{Kind: ResultSuccess, Flow: FlowPasswordReset}, "Please enter your new password.", false},
		{ConfirmationResult{Kind: ResultSuccess, Flow: FlowPasswordUpdate}, "Your password has been reset successfully.", false},
		{ConfirmationResult{Kind: ResultInvalidLink, Flow: FlowEmailConfirm}, "Invalid verification link.", true},
		{ConfirmationResult{Kind: ResultInvalidLink, Flow: FlowPasswordReset}, "Invalid or expired reset link. Please request a new password reset.", true},
		{ConfirmationResult{Kind: ResultProviderError, Flow: FlowEmailConfirm, Detail: "Token has expired"}, "Error verifying email: Token has expired", true},
		{ConfirmationResult{Kind: ResultProviderError, Flow: FlowPasswordReset}, "Error verifying reset link: unknown error", true},
		{ConfirmationResult{Kind: ResultValidationError, Detail: "Passwords do not match"}, "Passwords do not match", true},
		{ConfirmationResult{Kind: ResultConfigError, Detail: "missing: [provider_key]"}, "The service is not configured correctly. Please contact support.", true},
		{ConfirmationResult{Kind: ResultUnexpectedError, Detail: "dial tcp"}, "An unexpected error occurred. Please try again.", true},
	}
	for _, tc := range cases {
		msg, isErr := Status(tc.res)
		require.Equal(t, tc.msg, msg, "%s/%s", tc.res.Kind, tc.res.Flow)
		require.Equal(t, tc.isError, isErr)
	}
}

func TestFlowFor(t *testing.T) {
	require.Equal(t, FlowPasswordReset, FlowFor(LinkRecovery))
	require.Equal(t, FlowEmailConfirm, FlowFor(LinkSignup))
	require.Equal(t, FlowEmailConfirm, FlowFor(LinkEmail))
}

func TestConfigValidate(t *testing.T) {
	var ce *ConfigError
	require.ErrorAs(t, Config{}.Validate(), &ce)
	require.Equal(t, []string{"provider_url", "provider_key"}, ce.Missing)
	require.NotContains(t, (&ConfigError{Missing: []string{"provider_key"}}).Error(), "anon")
	require.NoError(t, Config{ProviderURL: "https://x", ProviderKey: "k"}.Validate())
}

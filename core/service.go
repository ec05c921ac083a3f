package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/open-rails/linkconfirm/gotrue"
)

// Service dispatches confirmation links to the auth provider and handles the
// password form that follows a recovery link.
type Service struct {
	cfg            Config
	cfgErr         error
	provider       Provider
	verifier       TokenVerifier
	authlog        EventLogger
	ephemeralStore EphemeralStore
	ephemeralMode  EphemeralMode
	now            func() time.Time
}

// NewService builds a Service from an explicit configuration. An invalid
// configuration does not fail construction: every operation then yields a
// ResultConfigError without touching the provider.
func NewService(cfg Config, provider Provider) *Service {
	s := &Service{
		cfg:           cfg.defaulted(),
		provider:      provider,
		ephemeralMode: EphemeralMemory,
		now:           time.Now,
	}
	s.cfgErr = cfg.Validate()
	if s.cfgErr == nil && provider == nil {
		s.cfgErr = &ConfigError{Missing: []string{"provider"}}
	}
	return s
}

func (s *Service) WithTokenVerifier(v TokenVerifier) *Service { s.verifier = v; return s }
func (s *Service) WithEventLogger(l EventLogger) *Service     { s.authlog = l; return s }
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// ConfigErr returns the configuration error recorded at construction, if any.
func (s *Service) ConfigErr() error { return s.cfgErr }

// Config returns the effective (defaulted) configuration.
func (s *Service) Config() Config { return s.cfg }

// Confirm dispatches a link on its own type: signup/email links are verified,
// recovery links are validated and exchanged for a reset ticket.
func (s *Service) Confirm(ctx context.Context, p LinkParameters) ConfirmationResult {
	return s.confirm(ctx, FlowFor(p.Type), p, false)
}

// ConfirmFor is Confirm restricted to one flow. A link of another flow's type is
// an invalid link for this flow (an email link opened on the reset page, say).
func (s *Service) ConfirmFor(ctx context.Context, flow Flow, p LinkParameters) ConfirmationResult {
	return s.confirm(ctx, flow, p, true)
}

func (s *Service) confirm(ctx context.Context, flow Flow, p LinkParameters, restrict bool) (res ConfirmationResult) {
	var userID string
	defer func() {
		if r := recover(); r != nil {
			log.WithContext(ctx).WithField("panic", r).Error("linkconfirm: recovered panic in confirm")
			res = ConfirmationResult{Kind: ResultUnexpectedError, Flow: flow, Detail: "internal_error"}
		}
		s.record(ctx, flow, p.Type, p.Token, res, userID)
	}()

	if s.cfgErr != nil {
		return s.configResult(flow)
	}
	if p.ProviderError != nil && !p.HasToken() {
		return ConfirmationResult{Kind: ResultProviderError, Flow: flow, Detail: p.ProviderError.Error()}
	}
	if !p.HasToken() || p.Type == LinkUnknown {
		return ConfirmationResult{Kind: ResultInvalidLink, Flow: flow, Detail: "missing_token_or_type"}
	}
	if restrict && FlowFor(p.Type) != flow {
		return ConfirmationResult{Kind: ResultInvalidLink, Flow: flow, Detail: "wrong_link_type"}
	}

	switch p.Type {
	case LinkSignup, LinkEmail:
		return s.verifyEmail(ctx, p)
	case LinkRecovery:
		res, userID = s.validateRecovery(ctx, p)
		return res
	default:
		return ConfirmationResult{Kind: ResultInvalidLink, Flow: flow, Detail: "unsupported_type"}
	}
}

func (s *Service) verifyEmail(ctx context.Context, p LinkParameters) ConfirmationResult {
	if _, err := s.provider.VerifyOTP(ctx, p.Token, string(p.Type)); err != nil {
		return classifyErr(FlowEmailConfirm, err)
	}
	return ConfirmationResult{
		Kind:          ResultSuccess,
		Flow:          FlowEmailConfirm,
		RedirectTo:    s.cfg.LoginURL,
		RedirectAfter: s.cfg.RedirectDelay,
	}
}

func (s *Service) validateRecovery(ctx context.Context, p LinkParameters) (ConfirmationResult, string) {
	if s.verifier != nil {
		if _, err := s.verifier.VerifyAccessToken(ctx, p.Token); err != nil {
			log.WithContext(ctx).WithError(err).WithField("token_fp", TokenFingerprint(p.Token)).Info("linkconfirm: recovery token rejected locally")
			return ConfirmationResult{Kind: ResultInvalidLink, Flow: FlowPasswordReset, Detail: "token_rejected"}, ""
		}
	}

	sess, err := s.provider.SetSession(ctx, p.Token, p.RefreshToken)
	if err != nil {
		return classifyErr(FlowPasswordReset, err), ""
	}
	user, err := s.provider.GetUser(ctx, sess)
	if err != nil {
		return classifyErr(FlowPasswordReset, err), ""
	}
	if user == nil || user.ID == "" {
		return ConfirmationResult{Kind: ResultInvalidLink, Flow: FlowPasswordReset, Detail: "no_user"}, ""
	}

	ticket, err := s.issueResetTicket(ctx, sess, user)
	if err != nil {
		return ConfirmationResult{Kind: ResultUnexpectedError, Flow: FlowPasswordReset, Detail: err.Error()}, user.ID
	}
	return ConfirmationResult{Kind: ResultSuccess, Flow: FlowPasswordReset, ResetTicket: ticket}, user.ID
}

// ResetPassword applies a new password for the session unlocked by ticket.
// Mismatched or empty passwords fail locally without consuming the ticket.
func (s *Service) ResetPassword(ctx context.Context, ticket, password, confirm string) (res ConfirmationResult) {
	var userID string
	defer func() {
		if r := recover(); r != nil {
			log.WithContext(ctx).WithField("panic", r).Error("linkconfirm: recovered panic in reset password")
			res = ConfirmationResult{Kind: ResultUnexpectedError, Flow: FlowPasswordUpdate, Detail: "internal_error"}
		}
		s.record(ctx, FlowPasswordUpdate, LinkRecovery, "", res, userID)
	}()

	if s.cfgErr != nil {
		return s.configResult(FlowPasswordUpdate)
	}
	if password == "" {
		return ConfirmationResult{Kind: ResultValidationError, Flow: FlowPasswordUpdate, Detail: "Please enter a new password."}
	}
	if password != confirm {
		return ConfirmationResult{Kind: ResultValidationError, Flow: FlowPasswordUpdate, Detail: "Passwords do not match"}
	}

	data, ok, err := s.takeResetTicket(ctx, ticket)
	if err != nil {
		return ConfirmationResult{Kind: ResultUnexpectedError, Flow: FlowPasswordUpdate, Detail: err.Error()}
	}
	if !ok {
		return ConfirmationResult{Kind: ResultInvalidLink, Flow: FlowPasswordUpdate, Detail: "unknown_ticket"}
	}
	userID = data.UserID

	if _, err := s.provider.UpdateUser(ctx, data.session(), password); err != nil {
		res = classifyErr(FlowPasswordUpdate, err)
		if s.restoreResetTicket(ctx, ticket, data) {
			res.ResetTicket = ticket
		}
		return res
	}
	return ConfirmationResult{
		Kind:          ResultSuccess,
		Flow:          FlowPasswordUpdate,
		RedirectTo:    s.cfg.LoginURL,
		RedirectAfter: s.cfg.RedirectDelay,
	}
}

func (s *Service) configResult(flow Flow) ConfirmationResult {
	var ce *ConfigError
	detail := "misconfigured"
	if errors.As(s.cfgErr, &ce) {
		detail = fmt.Sprintf("missing: %v", ce.Missing)
	}
	return ConfirmationResult{Kind: ResultConfigError, Flow: flow, Detail: detail}
}

// classifyErr maps provider-reported errors to ResultProviderError and
// everything else (transport, decoding, cancellation) to ResultUnexpectedError.
func classifyErr(flow Flow, err error) ConfirmationResult {
	var apiErr *gotrue.APIError
	if errors.As(err, &apiErr) {
		return ConfirmationResult{Kind: ResultProviderError, Flow: flow, Detail: apiErr.Message}
	}
	return ConfirmationResult{Kind: ResultUnexpectedError, Flow: flow, Detail: err.Error()}
}

func (s *Service) record(ctx context.Context, flow Flow, lt LinkType, token string, res ConfirmationResult, userID string) {
	fp := TokenFingerprint(token)
	entry := log.WithContext(ctx).WithFields(log.Fields{
		"flow":      flow,
		"link_type": lt,
		"outcome":   res.Kind,
	})
	if fp != "" {
		entry = entry.WithField("token_fp", fp)
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		entry = entry.WithField("request_id", rid)
	}
	switch res.Kind {
	case ResultSuccess:
		entry.Info("linkconfirm: completed")
	case ResultUnexpectedError, ResultConfigError:
		entry.WithField("detail", res.Detail).Error("linkconfirm: failed")
	default:
		entry.WithField("detail", res.Detail).Warn("linkconfirm: rejected")
	}

	if s.authlog == nil {
		return
	}
	e := ConfirmationEvent{
		ID:               uuid.NewString(),
		OccurredAt:       s.now().UTC(),
		Flow:             flow,
		LinkType:         lt,
		Outcome:          res.Kind,
		Detail:           strPtr(res.Detail),
		TokenFingerprint: strPtr(fp),
		UserID:           strPtr(userID),
		IPAddr:           strPtr(ctxString(ctx, linkCtxKeyClientIP)),
		UserAgent:        strPtr(ctxString(ctx, linkCtxKeyUserAgent)),
	}
	if err := s.authlog.LogConfirmationEvent(ctx, e); err != nil {
		entry.WithError(err).Warn("linkconfirm: audit sink failed")
	}
}

package gotrue

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	jwxjwt "github.com/lestrrat-go/jwx/v2/jwt"
)

// VerifierConfig selects how access tokens are verified locally.
// JWTSecret (HS256, the legacy project secret) wins over JWKSURL (asymmetric signing keys).
type VerifierConfig struct {
	JWTSecret string
	JWKSURL   string
	// Issuer, if set, must match iss exactly.
	Issuer string
	// Audience defaults to "authenticated", the audience GoTrue puts on user tokens.
	Audience string
	Skew     time.Duration
	// HTTPClient is used for JWKS fetches.
	HTTPClient *http.Client
}

var (
	errVerifierNotConfigured = errors.New("verifier_not_configured")
	errMissingToken          = errors.New("missing_token")
	errInvalidToken          = errors.New("invalid_token")
	errMissingSubject        = errors.New("missing_sub")
)

// Verifier checks provider-issued access tokens without a network round trip
// (apart from cached JWKS refreshes).
type Verifier struct {
	cfg VerifierConfig

	mu     sync.Mutex
	cache  *jwk.Cache
	cancel context.CancelFunc
}

func NewVerifier(cfg VerifierConfig) *Verifier {
	if strings.TrimSpace(cfg.Audience) == "" {
		cfg.Audience = "authenticated"
	}
	if cfg.Skew == 0 {
		cfg.Skew = 30 * time.Second
	}
	return &Verifier{cfg: cfg}
}

// Enabled reports whether any verification method is configured.
func (v *Verifier) Enabled() bool {
	return v != nil && (strings.TrimSpace(v.cfg.JWTSecret) != "" || strings.TrimSpace(v.cfg.JWKSURL) != "")
}

// Close stops background JWKS refreshes.
func (v *Verifier) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
		v.cache = nil
	}
}

// VerifyAccessToken verifies signature, expiry, audience and (optionally) issuer and returns sub.
func (v *Verifier) VerifyAccessToken(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errMissingToken
	}
	switch {
	case strings.TrimSpace(v.cfg.JWTSecret) != "":
		return v.verifyHS256(token)
	case strings.TrimSpace(v.cfg.JWKSURL) != "":
		return v.verifyJWKS(ctx, token)
	default:
		return "", errVerifierNotConfigured
	}
}

func (v *Verifier) verifyHS256(token string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithLeeway(v.cfg.Skew),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(v.cfg.Audience),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}
	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(v.cfg.JWTSecret), nil
	}, opts...)
	if err != nil || tok == nil || !tok.Valid {
		return "", errInvalidToken
	}
	sub, _ := claims.GetSubject()
	if sub == "" {
		return "", errMissingSubject
	}
	return sub, nil
}

func (v *Verifier) verifyJWKS(ctx context.Context, token string) (string, error) {
	set, err := v.keySet(ctx)
	if err != nil {
		return "", err
	}
	opts := []jwxjwt.ParseOption{
		jwxjwt.WithKeySet(set, jws.WithInferAlgorithmFromKey(true)),
		jwxjwt.WithValidate(true),
		jwxjwt.WithAcceptableSkew(v.cfg.Skew),
		jwxjwt.WithAudience(v.cfg.Audience),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwxjwt.WithIssuer(v.cfg.Issuer))
	}
	tok, err := jwxjwt.Parse([]byte(token), opts...)
	if err != nil {
		return "", errInvalidToken
	}
	if tok.Subject() == "" {
		return "", errMissingSubject
	}
	return tok.Subject(), nil
}

func (v *Verifier) keySet(ctx context.Context) (jwk.Set, error) {
	v.mu.Lock()
	if v.cache == nil {
		cctx, cancel := context.WithCancel(context.Background())
		c := jwk.NewCache(cctx)
		regOpts := []jwk.RegisterOption{jwk.WithMinRefreshInterval(15 * time.Minute)}
		if v.cfg.HTTPClient != nil {
			regOpts = append(regOpts, jwk.WithHTTPClient(v.cfg.HTTPClient))
		}
		if err := c.Register(v.cfg.JWKSURL, regOpts...); err != nil {
			cancel()
			v.mu.Unlock()
			return nil, err
		}
		v.cache, v.cancel = c, cancel
	}
	c := v.cache
	v.mu.Unlock()
	return c.Get(ctx, v.cfg.JWKSURL)
}

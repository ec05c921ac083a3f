package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout = 10 * time.Second
	// expirySkew treats tokens that expire within this window as already expired.
	expirySkew = 10 * time.Second
	clientInfo = "linkconfirm-go/1"
)

// Client talks to a GoTrue endpoint such as https://<project>.supabase.co/auth/v1.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	now        func() time.Time
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: defaultTimeout},
		now:        time.Now,
	}
}

func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// WithTimeout bounds every provider round trip, on top of the caller's context.
func (c *Client) WithTimeout(d time.Duration) *Client {
	if d > 0 {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
	return c
}

func (c *Client) WithClock(now func() time.Time) *Client {
	if now != nil {
		c.now = now
	}
	return c
}

// VerifyOTP consumes a one-time token hash from an email link.
// Depending on the server version the response carries a session or only the user.
func (c *Client) VerifyOTP(ctx context.Context, token, linkType string) (*Session, error) {
	body := map[string]string{"type": linkType, "token_hash": token}
	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, "/verify", nil, nil, body, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return &Session{User: out.User}, nil
	}
	return out.session(c.now()), nil
}

// SetSession adopts an access/refresh pair taken from a link. A live access
// token is checked against /user; an expired one is exchanged using the refresh token.
func (c *Client) SetSession(ctx context.Context, accessToken, refreshToken string) (*Session, error) {
	accessToken = strings.TrimSpace(accessToken)
	refreshToken = strings.TrimSpace(refreshToken)
	if accessToken == "" {
		return nil, ErrSessionMissing
	}
	exp, err := accessTokenExpiry(accessToken)
	if err != nil {
		return nil, ErrMalformedToken
	}
	if !exp.IsZero() && !exp.After(c.now().Add(expirySkew)) {
		if refreshToken == "" {
			return nil, ErrSessionMissing
		}
		return c.RefreshSession(ctx, refreshToken)
	}

	sess := &Session{Token: &oauth2.Token{
		AccessToken:  accessToken,
		TokenType:    "bearer",
		RefreshToken: refreshToken,
		Expiry:       exp,
	}}
	user, err := c.GetUser(ctx, sess)
	if err != nil {
		return nil, err
	}
	sess.User = user
	return sess, nil
}

// RefreshSession exchanges a refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	q := url.Values{"grant_type": {"refresh_token"}}
	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, "/token", q, nil, map[string]string{"refresh_token": refreshToken}, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, ErrSessionMissing
	}
	return out.session(c.now()), nil
}

// GetUser returns the user behind the session's access token.
func (c *Client) GetUser(ctx context.Context, s *Session) (*User, error) {
	if s.accessToken() == "" {
		return nil, ErrSessionMissing
	}
	var u User
	if err := c.do(ctx, http.MethodGet, "/user", nil, s.Token, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUser sets a new password for the session's user.
func (c *Client) UpdateUser(ctx context.Context, s *Session, password string) (*User, error) {
	if s.accessToken() == "" {
		return nil, ErrSessionMissing
	}
	var u User
	if err := c.do(ctx, http.MethodPut, "/user", nil, s.Token, map[string]string{"password": password}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, tok *oauth2.Token, in, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("gotrue: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("gotrue: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("X-Client-Info", clientInfo)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != nil {
		tok.SetAuthHeader(req)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gotrue: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyResponse
		}
		return fmt.Errorf("gotrue: decode %s %s: %w", method, path, err)
	}
	return nil
}

// accessTokenExpiry reads exp without verifying the signature; the provider
// remains the authority on validity.
func accessTokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, err
	}
	return exp.Time, nil
}

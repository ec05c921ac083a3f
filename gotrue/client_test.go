package gotrue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Auth   string
	APIKey string
	Body   map[string]string
}

func fakeGoTrue(t *testing.T, handle func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
			APIKey: r.Header.Get("apikey"),
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		}
		calls = append(calls, rec)
		handle(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func accessToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"aud": "authenticated",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestVerifyOTP_SendsTokenHashAndType(t *testing.T) {
	srv, calls := fakeGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "at",
			"token_type":    "bearer",
			"expires_in":    3600,
			"refresh_token": "rt",
			"user":          map[string]any{"id": "user-1", "email": "a@example.com"},
		})
	})
	c := NewClient(srv.URL+"/auth/v1/", "anon")

	sess, err := c.VerifyOTP(context.Background(), "abc", "signup")
	require.NoError(t, err)
	require.Equal(t, "at", sess.Token.AccessToken)
	require.Equal(t, "user-1", sess.User.ID)

	require.Len(t, *calls, 1)
	got := (*calls)[0]
	require.Equal(t, http.MethodPost, got.Method)
	require.Equal(t, "/auth/v1/verify", got.Path)
	require.Equal(t, "anon", got.APIKey)
	require.Equal(t, "Bearer anon", got.Auth)
	require.Equal(t, map[string]string{"type": "signup", "token_hash": "abc"}, got.Body)
}

func TestVerifyOTP_ProviderErrorShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
		msg  string
		code string
	}{
		{"msg_and_string_code", `{"code":"otp_expired","msg":"Token has expired or is invalid"}`, "Token has expired or is invalid", "otp_expired"},
		{"numeric_code", `{"code":403,"error_code":"otp_expired","msg":"Email link is invalid or has expired"}`, "Email link is invalid or has expired", "otp_expired"},
		{"oauth_style", `{"error":"invalid_grant","error_description":"Invalid Refresh Token"}`, "Invalid Refresh Token", "invalid_grant"},
		{"message", `{"message":"Invalid API key"}`, "Invalid API key", ""},
		{"not_json", `upstream exploded`, "Forbidden", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := fakeGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := NewClient(srv.URL, "anon").VerifyOTP(context.Background(), "abc", "email")
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			require.Equal(t, http.StatusForbidden, apiErr.Status)
			require.Equal(t, tc.msg, apiErr.Message)
			require.Equal(t, tc.code, apiErr.Code)
		})
	}
}

func TestSetSession_LiveTokenChecksUser(t *testing.T) {
	at := accessToken(t, time.Now().Add(time.Hour))
	srv, calls := fakeGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "user-1", "email": "a@example.com"})
	})
	sess, err := NewClient(srv.URL, "anon").SetSession(context.Background(), at, "rt")
	require.NoError(t, err)
	require.Equal(t, at, sess.Token.AccessToken)
	require.Equal(t, "rt", sess.Token.RefreshToken)
	require.Equal(t, "user-1", sess.User.ID)

	require.Len(t, *calls, 1)
	require.Equal(t, "/user", (*calls)[0].Path)
	require.Equal(t, "Bearer "+at, (*calls)[0].Auth)
}

func TestSetSession_ExpiredTokenRefreshes(t *testing.T) {
	at := accessToken(t, time.Now().Add(-time.Hour))
	srv, calls := fakeGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "fresh",
			"expires_at":    time.Now().Add(time.Hour).Unix(),
			"refresh_token": "rt2",
			"user":          map[string]any{"id": "user-1"},
		})
	})
	sess, err := NewClient(srv.URL, "anon").SetSession(context.Background(), at, "rt")
	require.NoError(t, err)
	require.Equal(t, "fresh", sess.Token.AccessToken)

	require.Len(t, *calls, 1)
	require.Equal(t, "/token", (*calls)[0].Path)
	require.Equal(t, "grant_type=refresh_token", (*calls)[0].Query)
	require.Equal(t, "rt", (*calls)[0].Body["refresh_token"])
}

func TestSetSession_ExpiredWithoutRefresh(t *testing.T) {
	at := accessToken(t, time.Now().Add(-time.Hour))
	srv, calls := fakeGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := NewClient(srv.URL, "anon").SetSession(context.Background(), at, "")
	require.ErrorIs(t, err, ErrSessionMissing)
	require.Empty(t, *calls)
}

func TestSetSession_MalformedToken(t *testing.T) {
	srv, calls := fakeGoTrue(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := NewClient(srv.URL, "anon").SetSession(context.Background(), "not-a-jwt", "rt")
	require.ErrorIs(t, err, ErrMalformedToken)
	require.Empty(t, *calls)
}

func TestUpdateUser_SendsPassword(t *testing.T) {
	at := accessToken(t, time.Now().Add(time.Hour))
	srv, calls := fakeGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "user-1"})
	})
	c := NewClient(srv.URL, "anon")
	sess := &Session{}
	_, err := c.UpdateUser(context.Background(), sess, "pw")
	require.ErrorIs(t, err, ErrSessionMissing)

	sess, err = c.SetSession(context.Background(), at, "")
	require.NoError(t, err)
	u, err := c.UpdateUser(context.Background(), sess, "n3w-password")
	require.NoError(t, err)
	require.Equal(t, "user-1", u.ID)

	last := (*calls)[len(*calls)-1]
	require.Equal(t, http.MethodPut, last.Method)
	require.Equal(t, "/user", last.Path)
	require.Equal(t, "n3w-password", last.Body["password"])
}

func TestClient_TransportErrorIsNotAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, "anon").WithTimeout(time.Second).VerifyOTP(context.Background(), "abc", "signup")
	require.Error(t, err)
	var apiErr *APIError
	require.False(t, errors.As(err, &apiErr))
}

package gotrue

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	jwxjwt "github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"
)

func hsToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestVerifier_HS256(t *testing.T) {
	v := NewVerifier(VerifierConfig{JWTSecret: "s3cret"})
	require.True(t, v.Enabled())

	good := hsToken(t, "s3cret", jwt.MapClaims{"sub": "user-1", "aud": "authenticated", "exp": time.Now().Add(time.Hour).Unix()})
	sub, err := v.VerifyAccessToken(context.Background(), good)
	require.NoError(t, err)
	require.Equal(t, "user-1", sub)

	t.Run("wrong_secret", func(t *testing.T) {
		tok := hsToken(t, "other", jwt.MapClaims{"sub": "user-1", "aud": "authenticated", "exp": time.Now().Add(time.Hour).Unix()})
		_, err := v.VerifyAccessToken(context.Background(), tok)
		require.Error(t, err)
	})
	t.Run("expired", func(t *testing.T) {
		tok := hsToken(t, "s3cret", jwt.MapClaims{"sub": "user-1", "aud": "authenticated", "exp": time.Now().Add(-time.Hour).Unix()})
		_, err := v.VerifyAccessToken(context.Background(), tok)
		require.Error(t, err)
	})
	t.Run("wrong_audience", func(t *testing.T) {
		tok := hsToken(t, "s3cret", jwt.MapClaims{"sub": "user-1", "aud": "anon", "exp": time.Now().Add(time.Hour).Unix()})
		_, err := v.VerifyAccessToken(context.Background(), tok)
		require.Error(t, err)
	})
	t.Run("missing_exp", func(t *testing.T) {
		tok := hsToken(t, "s3cret", jwt.MapClaims{"sub": "user-1", "aud": "authenticated"})
		_, err := v.VerifyAccessToken(context.Background(), tok)
		require.Error(t, err)
	})
	t.Run("empty", func(t *testing.T) {
		_, err := v.VerifyAccessToken(context.Background(), " ")
		require.ErrorIs(t, err, errMissingToken)
	})
}

func TestVerifier_NotConfigured(t *testing.T) {
	v := NewVerifier(VerifierConfig{})
	require.False(t, v.Enabled())
	_, err := v.VerifyAccessToken(context.Background(), "x.y.z")
	require.ErrorIs(t, err, errVerifierNotConfigured)
}

func TestVerifier_JWKS(t *testing.T) {
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	priv, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, priv.Set(jwk.KeyIDKey, "k1"))
	require.NoError(t, priv.Set(jwk.AlgorithmKey, jwa.RS256))
	pub, err := jwk.PublicKeyOf(priv)
	require.NoError(t, err)
	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	}))
	defer srv.Close()

	v := NewVerifier(VerifierConfig{JWKSURL: srv.URL + "/.well-known/jwks.json", Issuer: "https://proj.supabase.co/auth/v1"})
	defer v.Close()

	build := func(iss string) string {
		tok, err := jwxjwt.NewBuilder().
			Subject("user-9").
			Issuer(iss).
			Audience([]string{"authenticated"}).
			Expiration(time.Now().Add(time.Hour)).
			Build()
		require.NoError(t, err)
		signed, err := jwxjwt.Sign(tok, jwxjwt.WithKey(jwa.RS256, priv))
		require.NoError(t, err)
		return string(signed)
	}

	sub, err := v.VerifyAccessToken(context.Background(), build("https://proj.supabase.co/auth/v1"))
	require.NoError(t, err)
	require.Equal(t, "user-9", sub)

	_, err = v.VerifyAccessToken(context.Background(), build("https://evil.example"))
	require.Error(t, err)
}

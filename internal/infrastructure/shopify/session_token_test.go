package shopify

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	verifierAPIKey    = "app-api-key"
	verifierAPISecret = "app-api-secret"
)

func signedToken(t *testing.T, secret string, mutate func(claims jwt.MapClaims)) string {
	t.Helper()
	claims := jwt.MapClaims{
		"dest": "https://acme.myshopify.com",
		"iss":  "https://acme.myshopify.com/admin",
		"aud":  verifierAPIKey,
		"sub":  "42",
		"exp":  time.Now().Add(time.Minute).Unix(),
		"nbf":  time.Now().Add(-time.Minute).Unix(),
	}
	if mutate != nil {
		mutate(claims)
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func TestSessionTokenVerifier(t *testing.T) {
	t.Parallel()

	verifier := NewSessionTokenVerifier(verifierAPIKey, verifierAPISecret)

	t.Run("valid token", func(t *testing.T) {
		claims, err := verifier.Verify(signedToken(t, verifierAPISecret, nil))
		require.NoError(t, err)
		require.Equal(t, "acme.myshopify.com", claims.Shop)
		require.EqualValues(t, 42, claims.UserID)
	})

	t.Run("wrong signing secret", func(t *testing.T) {
		_, err := verifier.Verify(signedToken(t, "forged-secret", nil))
		require.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		_, err := verifier.Verify(signedToken(t, verifierAPISecret, func(c jwt.MapClaims) {
			c["exp"] = time.Now().Add(-time.Minute).Unix()
		}))
		require.Error(t, err)
	})

	t.Run("missing exp", func(t *testing.T) {
		_, err := verifier.Verify(signedToken(t, verifierAPISecret, func(c jwt.MapClaims) {
			delete(c, "exp")
		}))
		require.Error(t, err)
	})

	t.Run("wrong audience", func(t *testing.T) {
		_, err := verifier.Verify(signedToken(t, verifierAPISecret, func(c jwt.MapClaims) {
			c["aud"] = "another-app"
		}))
		require.Error(t, err)
	})

	t.Run("dest outside the platform domain", func(t *testing.T) {
		_, err := verifier.Verify(signedToken(t, verifierAPISecret, func(c jwt.MapClaims) {
			c["dest"] = "https://evil.example.com"
		}))
		require.Error(t, err)
	})

	t.Run("non-numeric sub", func(t *testing.T) {
		_, err := verifier.Verify(signedToken(t, verifierAPISecret, func(c jwt.MapClaims) {
			c["sub"] = "gid://shopify/User/abc"
		}))
		require.Error(t, err)
	})

	t.Run("alg none rejected", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"dest": "https://acme.myshopify.com",
			"aud":  verifierAPIKey,
			"sub":  "42",
			"exp":  time.Now().Add(time.Minute).Unix(),
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = verifier.Verify(raw)
		require.Error(t, err)
	})
}

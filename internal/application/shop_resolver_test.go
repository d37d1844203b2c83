package application

import (
	"encoding/base64"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func bearerToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("irrelevant"))
	require.NoError(t, err)
	return "Bearer " + raw
}

func TestShopResolver(t *testing.T) {
	t.Parallel()

	resolver := NewShopResolver()

	t.Run("shop query parameter wins", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/settings?shop=acme.myshopify.com", nil)
		r.Header.Set("X-Shop-Domain", "other.myshopify.com")

		shop, ok := resolver.Resolve(r)
		require.True(t, ok)
		require.Equal(t, "acme.myshopify.com", shop)
	})

	t.Run("normalizes scheme and case", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/?shop=https%3A%2F%2FACME.myshopify.com%2F", nil)

		shop, ok := resolver.Resolve(r)
		require.True(t, ok)
		require.Equal(t, "acme.myshopify.com", shop)
	})

	t.Run("rejects non-canonical shop parameter", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/?shop=evil.example.com", nil)

		_, ok := resolver.Resolve(r)
		require.False(t, ok)
	})

	t.Run("falls back to shop header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/settings", nil)
		r.Header.Set("X-Shop-Domain", "acme.myshopify.com")

		shop, ok := resolver.Resolve(r)
		require.True(t, ok)
		require.Equal(t, "acme.myshopify.com", shop)
	})

	t.Run("decodes host parameter in admin form", func(t *testing.T) {
		host := base64.StdEncoding.EncodeToString([]byte("acme.myshopify.com/admin"))
		r := httptest.NewRequest("GET", "/?host="+host, nil)

		shop, ok := resolver.Resolve(r)
		require.True(t, ok)
		require.Equal(t, "acme.myshopify.com", shop)
	})

	t.Run("decodes host parameter in store-handle form", func(t *testing.T) {
		host := base64.RawStdEncoding.EncodeToString([]byte("admin.shopify.com/store/acme"))
		r := httptest.NewRequest("GET", "/?host="+host, nil)

		shop, ok := resolver.Resolve(r)
		require.True(t, ok)
		require.Equal(t, "acme.myshopify.com", shop)
	})

	t.Run("malformed host parameter is a non-match", func(t *testing.T) {
		for _, host := range []string{"%%%", "!!!not-base64!!!", base64.StdEncoding.EncodeToString([]byte("garbage"))} {
			r := httptest.NewRequest("GET", "/?host="+host, nil)
			_, ok := resolver.Resolve(r)
			require.False(t, ok, "host %q should not resolve", host)
		}
	})

	t.Run("re-parses the referer for a host parameter", func(t *testing.T) {
		host := base64.StdEncoding.EncodeToString([]byte("acme.myshopify.com/admin"))
		r := httptest.NewRequest("GET", "/api/settings", nil)
		r.Header.Set("Referer", "https://example.com/app?host="+host)

		shop, ok := resolver.Resolve(r)
		require.True(t, ok)
		require.Equal(t, "acme.myshopify.com", shop)
	})

	t.Run("reads the dest claim of a bearer token", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/settings", nil)
		r.Header.Set("Authorization", bearerToken(t, jwt.MapClaims{"dest": "https://acme.myshopify.com"}))

		shop, ok := resolver.Resolve(r)
		require.True(t, ok)
		require.Equal(t, "acme.myshopify.com", shop)
	})

	t.Run("falls back to the iss claim", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/settings", nil)
		r.Header.Set("Authorization", bearerToken(t, jwt.MapClaims{"iss": "https://acme.myshopify.com/admin"}))

		shop, ok := resolver.Resolve(r)
		require.True(t, ok)
		require.Equal(t, "acme.myshopify.com", shop)
	})

	t.Run("garbage bearer token is a non-match", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/settings", nil)
		r.Header.Set("Authorization", "Bearer not.a.jwt")

		_, ok := resolver.Resolve(r)
		require.False(t, ok)
	})

	t.Run("nothing resolvable", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/settings", nil)

		_, ok := resolver.Resolve(r)
		require.False(t, ok)
	})
}

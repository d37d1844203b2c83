package application

import (
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	"github.com/Artisanstories/wholesale-management-app/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// ShopResolver derives the canonical shop domain from an inbound request.
// Every source is best-effort: decode failures are treated as a non-match
// and resolution never fails with an error.
type ShopResolver struct{}

// NewShopResolver creates a new shop resolver
func NewShopResolver() *ShopResolver {
	return &ShopResolver{}
}

// Resolve tries, in order: the shop query parameter, the X-Shop-Domain
// header, the base64 host parameter, the Referer's host parameter, and
// finally the dest/iss claim of a bearer session token.
func (sr *ShopResolver) Resolve(r *http.Request) (string, bool) {
	query := r.URL.Query()

	if shop := domain.NormalizeShopDomain(query.Get("shop")); shop != "" {
		return shop, true
	}

	if shop := domain.NormalizeShopDomain(r.Header.Get("X-Shop-Domain")); shop != "" {
		return shop, true
	}

	if shop := shopFromHostParam(query.Get("host")); shop != "" {
		return shop, true
	}

	if referer := r.Header.Get("Referer"); referer != "" {
		if u, err := url.Parse(referer); err == nil {
			if shop := shopFromHostParam(u.Query().Get("host")); shop != "" {
				return shop, true
			}
		}
	}

	if shop := shopFromBearerToken(r.Header.Get("Authorization")); shop != "" {
		return shop, true
	}

	return "", false
}

// shopFromHostParam decodes the base64 embedding-context parameter App
// Bridge passes around and scans it for the embedded admin URL. Two forms
// exist: "{shop}.myshopify.com/admin" and "admin.shopify.com/store/{handle}".
func shopFromHostParam(host string) string {
	if host == "" {
		return ""
	}

	decoded, err := base64.StdEncoding.DecodeString(host)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(host)
		if err != nil {
			return ""
		}
	}

	adminURL := strings.TrimPrefix(string(decoded), "https://")
	adminURL = strings.TrimSuffix(adminURL, "/")

	if rest, ok := strings.CutPrefix(adminURL, domain.AdminDomain+"/store/"); ok {
		handle, _, _ := strings.Cut(rest, "/")
		return domain.ShopFromHandle(handle)
	}

	if shop, ok := strings.CutSuffix(adminURL, "/admin"); ok {
		return domain.NormalizeShopDomain(shop)
	}

	return ""
}

// shopFromBearerToken decodes (without verifying) an App Bridge session
// token and reads the shop out of its dest or iss claim. Signature
// verification belongs to the middleware; resolution only needs a hint.
func shopFromBearerToken(header string) string {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return ""
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return ""
	}

	for _, claim := range []string{"dest", "iss"} {
		value, _ := claims[claim].(string)
		if value == "" {
			continue
		}
		value = strings.TrimPrefix(value, "https://")
		value, _, _ = strings.Cut(value, "/")
		if shop := domain.NormalizeShopDomain(value); shop != "" {
			return shop
		}
	}

	return ""
}

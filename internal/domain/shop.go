package domain

import (
	"regexp"
	"strings"
)

// AdminDomain is the shared admin console host embedding the app.
const AdminDomain = "admin.shopify.com"

// shopDomainPattern matches canonical myshopify shop domains.
var shopDomainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*\.myshopify\.com$`)

// ValidShopDomain reports whether shop is a canonical shop domain.
func ValidShopDomain(shop string) bool {
	return shopDomainPattern.MatchString(shop)
}

// NormalizeShopDomain trims whitespace and any scheme prefix and
// lower-cases the host. Returns "" when the result is not canonical.
func NormalizeShopDomain(raw string) string {
	shop := strings.TrimSpace(raw)
	shop = strings.TrimPrefix(shop, "https://")
	shop = strings.TrimPrefix(shop, "http://")
	shop = strings.TrimSuffix(shop, "/")
	shop = strings.ToLower(shop)
	if !ValidShopDomain(shop) {
		return ""
	}
	return shop
}

// ShopFromHandle converts a store handle from an admin.shopify.com URL
// into the canonical shop domain.
func ShopFromHandle(handle string) string {
	return NormalizeShopDomain(handle + ".myshopify.com")
}

package ports

import (
	"context"

	shopify "github.com/bold-commerce/go-shopify/v4"
)

// AccessToken is the result of an OAuth code exchange. User fields are
// populated only for online (per-user) grants.
type AccessToken struct {
	Token     string
	Scopes    []string
	UserID    int64
	ExpiresIn int64
}

// PlatformClient defines the Shopify Admin API operations the app uses.
type PlatformClient interface {
	// Authentication
	AuthorizeURL(shop string, scopes []string, redirectURI string, state string, online bool) string
	ExchangeToken(ctx context.Context, shop string, code string) (*AccessToken, error)
	ValidateToken(ctx context.Context, shop string, accessToken string) (bool, error)

	// Product API
	GetProducts(ctx context.Context, shop string, accessToken string, limit int) ([]shopify.Product, error)

	// Customer API
	GetCustomers(ctx context.Context, shop string, accessToken string, limit int) ([]shopify.Customer, error)
	SearchCustomers(ctx context.Context, shop string, accessToken string, query string) ([]shopify.Customer, error)

	// Theme asset API
	GetMainThemeID(ctx context.Context, shop string, accessToken string) (int64, error)
	GetAsset(ctx context.Context, shop string, accessToken string, themeID int64, key string) (string, error)
	PutAsset(ctx context.Context, shop string, accessToken string, themeID int64, key string, value string) error
	DeleteAsset(ctx context.Context, shop string, accessToken string, themeID int64, key string) error
}

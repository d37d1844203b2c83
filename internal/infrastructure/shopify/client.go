package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Artisanstories/wholesale-management-app/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

const (
	exchangeTimeout = 10 * time.Second
	apiVersion      = "2024-01"
)

type client struct {
	apiKey     string
	apiSecret  string
	app        goshopify.App
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new Shopify client adapter
func NewClient(apiKey, apiSecret string, logger zerolog.Logger) ports.PlatformClient {
	return &client{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		httpClient: &http.Client{Timeout: exchangeTimeout},
		logger:     logger,
	}
}

// createClient is a helper to create a goshopify client
func (c *client) createClient(shopDomain string, accessToken string) (*goshopify.Client, error) {
	admin, err := goshopify.NewClient(c.app, shopDomain, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return admin, nil
}

// Authentication

// AuthorizeURL builds the authorization URL the browser is redirected to.
// Online grants carry grant_options[]=per-user so the token is bound to
// the signed-in user.
func (c *client) AuthorizeURL(shop string, scopes []string, redirectURI string, state string, online bool) string {
	authURL := fmt.Sprintf(
		"https://%s/admin/oauth/authorize?client_id=%s&scope=%s&redirect_uri=%s&state=%s",
		shop,
		c.apiKey,
		url.QueryEscape(strings.Join(scopes, ",")),
		url.QueryEscape(redirectURI),
		url.QueryEscape(state),
	)
	if online {
		authURL += "&grant_options%5B%5D=per-user"
	}
	return authURL
}

// ExchangeToken swaps an authorization code for an access token via a
// server-to-server call. One automatic retry on transient network
// failure; HTTP-level rejections are terminal.
func (c *client) ExchangeToken(ctx context.Context, shop string, code string) (*ports.AccessToken, error) {
	token, err := c.exchangeToken(ctx, shop, code)
	if err != nil && isTransient(err) {
		c.logger.Warn().Err(err).Str("shop", shop).Msg("Token exchange failed, retrying once")
		token, err = c.exchangeToken(ctx, shop, code)
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}

func (c *client) exchangeToken(ctx context.Context, shop string, code string) (*ports.AccessToken, error) {
	tokenURL := fmt.Sprintf("https://%s/admin/oauth/access_token", shop)

	values := url.Values{}
	values.Set("client_id", c.apiKey)
	values.Set("client_secret", c.apiSecret)
	values.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("failed to exchange token: status %d, body: %s", resp.StatusCode, string(body))
	}

	var tokenResponse struct {
		AccessToken    string `json:"access_token"`
		Scope          string `json:"scope"`
		ExpiresIn      int64  `json:"expires_in"`
		AssociatedUser struct {
			ID int64 `json:"id"`
		} `json:"associated_user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &ports.AccessToken{
		Token:     tokenResponse.AccessToken,
		Scopes:    splitScopes(tokenResponse.Scope),
		UserID:    tokenResponse.AssociatedUser.ID,
		ExpiresIn: tokenResponse.ExpiresIn,
	}, nil
}

// ValidateToken checks whether a stored token still works by making the
// lightest Admin API call there is. 401/403 means revoked; any other
// response means the token still works.
func (c *client) ValidateToken(ctx context.Context, shop string, accessToken string) (bool, error) {
	probeURL := fmt.Sprintf("https://%s/admin/api/%s/shop.json", shop, apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("token validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return false, nil
	}
	return true, nil
}

// Product API

func (c *client) GetProducts(ctx context.Context, shopDomain string, accessToken string, limit int) ([]goshopify.Product, error) {
	admin, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	products, err := admin.Product.List(ctx, goshopify.ListOptions{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// Customer API

func (c *client) GetCustomers(ctx context.Context, shopDomain string, accessToken string, limit int) ([]goshopify.Customer, error) {
	admin, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	customers, err := admin.Customer.List(ctx, goshopify.ListOptions{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, nil
}

func (c *client) SearchCustomers(ctx context.Context, shopDomain string, accessToken string, query string) ([]goshopify.Customer, error) {
	admin, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	customers, err := admin.Customer.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search customers: %w", err)
	}
	return customers, nil
}

// Theme asset API

func (c *client) GetMainThemeID(ctx context.Context, shopDomain string, accessToken string) (int64, error) {
	admin, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return 0, err
	}
	themes, err := admin.Theme.List(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to list themes: %w", err)
	}
	for _, theme := range themes {
		if theme.Role == "main" {
			return int64(theme.Id), nil
		}
	}
	return 0, errors.New("main theme not found")
}

func (c *client) GetAsset(ctx context.Context, shopDomain string, accessToken string, themeID int64, key string) (string, error) {
	admin, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return "", err
	}
	asset, err := admin.Asset.Get(ctx, uint64(themeID), key)
	if err != nil {
		return "", fmt.Errorf("failed to get asset %s: %w", key, err)
	}
	return asset.Value, nil
}

func (c *client) PutAsset(ctx context.Context, shopDomain string, accessToken string, themeID int64, key string, value string) error {
	admin, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return err
	}
	asset := goshopify.Asset{Key: key, Value: value, ThemeId: uint64(themeID)}
	if _, err := admin.Asset.Update(ctx, uint64(themeID), asset); err != nil {
		return fmt.Errorf("failed to put asset %s: %w", key, err)
	}
	return nil
}

func (c *client) DeleteAsset(ctx context.Context, shopDomain string, accessToken string, themeID int64, key string) error {
	admin, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return err
	}
	if err := admin.Asset.Delete(ctx, uint64(themeID), key); err != nil {
		return fmt.Errorf("failed to delete asset %s: %w", key, err)
	}
	return nil
}

func splitScopes(raw string) []string {
	var scopes []string
	for _, scope := range strings.Split(raw, ",") {
		if scope = strings.TrimSpace(scope); scope != "" {
			scopes = append(scopes, scope)
		}
	}
	return scopes
}

// isTransient reports whether the exchange failed before an HTTP status
// was received (timeouts, refused connections).
func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset")
}

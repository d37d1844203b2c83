package webhook_handlers

import (
	"context"
	"testing"

	"github.com/Artisanstories/wholesale-management-app/internal/application"
	"github.com/Artisanstories/wholesale-management-app/internal/domain"
	"github.com/Artisanstories/wholesale-management-app/internal/infrastructure/repository"
	"github.com/Artisanstories/wholesale-management-app/internal/ports"

	shopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// uninstallPlatform satisfies ports.PlatformClient with just enough theme
// behavior to observe snippet cleanup.
type uninstallPlatform struct {
	assets map[string]string
}

func (p *uninstallPlatform) AuthorizeURL(shop string, scopes []string, redirectURI, state string, online bool) string {
	return ""
}

func (p *uninstallPlatform) ExchangeToken(ctx context.Context, shop, code string) (*ports.AccessToken, error) {
	return nil, nil
}

func (p *uninstallPlatform) ValidateToken(ctx context.Context, shop, token string) (bool, error) {
	return true, nil
}

func (p *uninstallPlatform) GetProducts(ctx context.Context, shop, token string, limit int) ([]shopify.Product, error) {
	return nil, nil
}

func (p *uninstallPlatform) GetCustomers(ctx context.Context, shop, token string, limit int) ([]shopify.Customer, error) {
	return nil, nil
}

func (p *uninstallPlatform) SearchCustomers(ctx context.Context, shop, token, query string) ([]shopify.Customer, error) {
	return nil, nil
}

func (p *uninstallPlatform) GetMainThemeID(ctx context.Context, shop, token string) (int64, error) {
	return 7, nil
}

func (p *uninstallPlatform) GetAsset(ctx context.Context, shop, token string, themeID int64, key string) (string, error) {
	return p.assets[key], nil
}

func (p *uninstallPlatform) PutAsset(ctx context.Context, shop, token string, themeID int64, key, value string) error {
	p.assets[key] = value
	return nil
}

func (p *uninstallPlatform) DeleteAsset(ctx context.Context, shop, token string, themeID int64, key string) error {
	delete(p.assets, key)
	return nil
}

func TestAppUninstalledHandler(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sessions := repository.NewMemorySessionRepository()
	settings := repository.NewMemorySettingsRepository()
	tagRules := repository.NewMemoryTagRuleRepository()
	platform := &uninstallPlatform{assets: map[string]string{
		"snippets/wholesale-pricing.liquid": "snippet body",
		"layout/theme.liquid":               "<head>{% render 'wholesale-pricing' %}\n</head>",
	}}
	themeService := application.NewThemeService(platform, zerolog.Nop())

	handler := NewAppUninstalledHandler(zerolog.Nop(), sessions, settings, tagRules, themeService)
	require.True(t, handler.CanHandle("app/uninstalled"))
	require.False(t, handler.CanHandle("products/update"))

	require.NoError(t, sessions.Store(ctx, &domain.Session{
		ID:          domain.OfflineSessionID("acme.myshopify.com"),
		Shop:        "acme.myshopify.com",
		AccessToken: "shpat_offline",
	}))
	require.NoError(t, sessions.Store(ctx, &domain.Session{
		ID:       domain.OnlineSessionID("acme.myshopify.com", 42),
		Shop:     "acme.myshopify.com",
		IsOnline: true,
		UserID:   42,
	}))
	require.NoError(t, settings.Save(ctx, &domain.Settings{Shop: "acme.myshopify.com", DiscountPercent: 30}))
	require.NoError(t, tagRules.Upsert(ctx, &domain.TagRule{Shop: "acme.myshopify.com", Tag: "vip", DiscountPercent: 30}))

	t.Run("missing shop domain is rejected", func(t *testing.T) {
		err := handler.Handle(ctx, &domain.WebhookEvent{Topic: "app/uninstalled"})
		require.ErrorIs(t, err, domain.ErrClientError)
	})

	t.Run("cleanup removes all per-shop state", func(t *testing.T) {
		err := handler.Handle(ctx, &domain.WebhookEvent{Topic: "app/uninstalled", Shop: "acme.myshopify.com"})
		require.NoError(t, err)

		require.NotContains(t, platform.assets, "snippets/wholesale-pricing.liquid")
		require.NotContains(t, platform.assets["layout/theme.liquid"], "wholesale-pricing")

		saved, err := settings.Get(ctx, "acme.myshopify.com")
		require.NoError(t, err)
		require.Nil(t, saved)

		rules, err := tagRules.List(ctx, "acme.myshopify.com")
		require.NoError(t, err)
		require.Empty(t, rules)

		remaining, err := sessions.FindByShop(ctx, "acme.myshopify.com")
		require.NoError(t, err)
		require.Empty(t, remaining)
	})

	t.Run("idempotent on redelivery", func(t *testing.T) {
		err := handler.Handle(ctx, &domain.WebhookEvent{Topic: "app/uninstalled", Shop: "acme.myshopify.com"})
		require.NoError(t, err)
	})
}

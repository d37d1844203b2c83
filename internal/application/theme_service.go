package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/Artisanstories/wholesale-management-app/internal/domain"
	"github.com/Artisanstories/wholesale-management-app/internal/ports"

	"github.com/rs/zerolog"
)

const (
	snippetKey     = "snippets/wholesale-pricing.liquid"
	themeLayoutKey = "layout/theme.liquid"
	snippetTag     = "{% render 'wholesale-pricing' %}"
	legacyTag      = "{% include 'wholesale-pricing' %}"
)

// snippetSource hides prices from guests and exposes the wholesale
// discount to the storefront for tagged customers.
const snippetSource = `{% comment %} Wholesale pricing: hides prices for guests, exposes discount flags for wholesale customers. Managed by the wholesale app; edits are overwritten. {% endcomment %}
{% if customer %}
  <script>
    window.WHOLESALE_TAGS = {{ customer.tags | json }};
  </script>
{% else %}
  <style>
    .price, .product-price, .product-form__submit { display: none !important; }
  </style>
  <div class="wholesale-login">
    <a href="/account/login" class="button">Login to view wholesale pricing</a>
  </div>
{% endif %}
`

// ThemeService injects and removes the wholesale storefront snippet in
// the shop's main theme through the platform asset API.
type ThemeService struct {
	platform ports.PlatformClient
	logger   zerolog.Logger
}

// NewThemeService creates a new theme service
func NewThemeService(platform ports.PlatformClient, logger zerolog.Logger) *ThemeService {
	return &ThemeService{platform: platform, logger: logger}
}

// InjectSnippet uploads the snippet and adds its render tag to
// layout/theme.liquid if not already present.
func (s *ThemeService) InjectSnippet(ctx context.Context, session *domain.Session) error {
	themeID, err := s.platform.GetMainThemeID(ctx, session.Shop, session.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to find main theme for %s: %w", session.Shop, err)
	}

	if err := s.platform.PutAsset(ctx, session.Shop, session.AccessToken, themeID, snippetKey, snippetSource); err != nil {
		return fmt.Errorf("failed to upload snippet for %s: %w", session.Shop, err)
	}

	layout, err := s.platform.GetAsset(ctx, session.Shop, session.AccessToken, themeID, themeLayoutKey)
	if err != nil {
		return fmt.Errorf("failed to load theme layout for %s: %w", session.Shop, err)
	}

	if strings.Contains(layout, snippetTag) || strings.Contains(layout, legacyTag) {
		return nil
	}

	updated := strings.Replace(layout, "</head>", "  "+snippetTag+"\n</head>", 1)
	if updated == layout {
		return fmt.Errorf("theme layout for %s has no </head> to anchor the snippet", session.Shop)
	}

	if err := s.platform.PutAsset(ctx, session.Shop, session.AccessToken, themeID, themeLayoutKey, updated); err != nil {
		return fmt.Errorf("failed to update theme layout for %s: %w", session.Shop, err)
	}

	s.logger.Info().Str("shop", session.Shop).Int64("theme_id", themeID).Msg("Wholesale snippet injected")
	return nil
}

// RemoveSnippet deletes the snippet asset and strips its tag from the
// layout. Called from uninstall cleanup, so each step is best-effort.
func (s *ThemeService) RemoveSnippet(ctx context.Context, session *domain.Session) error {
	themeID, err := s.platform.GetMainThemeID(ctx, session.Shop, session.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to find main theme for %s: %w", session.Shop, err)
	}

	if err := s.platform.DeleteAsset(ctx, session.Shop, session.AccessToken, themeID, snippetKey); err != nil {
		s.logger.Warn().Err(err).Str("shop", session.Shop).Msg("Failed to delete wholesale snippet asset")
	}

	layout, err := s.platform.GetAsset(ctx, session.Shop, session.AccessToken, themeID, themeLayoutKey)
	if err != nil {
		return fmt.Errorf("failed to load theme layout for %s: %w", session.Shop, err)
	}

	updated := strings.ReplaceAll(layout, snippetTag, "")
	updated = strings.ReplaceAll(updated, legacyTag, "")
	if updated == layout {
		return nil
	}

	if err := s.platform.PutAsset(ctx, session.Shop, session.AccessToken, themeID, themeLayoutKey, updated); err != nil {
		return fmt.Errorf("failed to update theme layout for %s: %w", session.Shop, err)
	}

	s.logger.Info().Str("shop", session.Shop).Int64("theme_id", themeID).Msg("Wholesale snippet removed")
	return nil
}

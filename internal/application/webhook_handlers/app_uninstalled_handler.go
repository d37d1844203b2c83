package webhook_handlers

import (
	"context"
	"fmt"

	"github.com/Artisanstories/wholesale-management-app/internal/application"
	"github.com/Artisanstories/wholesale-management-app/internal/domain"
	"github.com/Artisanstories/wholesale-management-app/internal/ports"

	"github.com/rs/zerolog"
)

// AppUninstalledHandler tears down everything the app holds for a shop
// when the merchant uninstalls: the storefront snippet, the wholesale
// configuration, and every session (online and offline).
type AppUninstalledHandler struct {
	logger       zerolog.Logger
	sessions     ports.SessionRepository
	settings     ports.SettingsRepository
	tagRules     ports.TagRuleRepository
	themeService *application.ThemeService
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler
func NewAppUninstalledHandler(
	logger zerolog.Logger,
	sessions ports.SessionRepository,
	settings ports.SettingsRepository,
	tagRules ports.TagRuleRepository,
	themeService *application.ThemeService,
) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		logger:       logger,
		sessions:     sessions,
		settings:     settings,
		tagRules:     tagRules,
		themeService: themeService,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == "app/uninstalled"
}

// Handle removes per-shop state. Theme cleanup runs first while an
// offline token may still work; session deletion runs last so nothing can
// re-authenticate mid-cleanup.
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	shop := domain.NormalizeShopDomain(event.Shop)
	if shop == "" {
		return fmt.Errorf("app uninstalled webhook without shop domain: %w", domain.ErrClientError)
	}

	// Best-effort: the token is usually already revoked by the time the
	// webhook arrives, so a failed snippet removal is only logged.
	if offline, err := h.sessions.Load(ctx, domain.OfflineSessionID(shop)); err == nil && offline != nil {
		if err := h.themeService.RemoveSnippet(ctx, offline); err != nil {
			h.logger.Warn().Err(err).Str("shop", shop).Msg("Failed to remove wholesale snippet during uninstall")
		}
	}

	if err := h.settings.Delete(ctx, shop); err != nil {
		return fmt.Errorf("failed to delete settings for %s: %w", shop, err)
	}
	if err := h.tagRules.DeleteAllForShop(ctx, shop); err != nil {
		return fmt.Errorf("failed to delete tag rules for %s: %w", shop, err)
	}

	deleted, err := h.sessions.DeleteAllForShop(ctx, shop)
	if err != nil {
		return fmt.Errorf("failed to delete sessions for %s: %w", shop, err)
	}

	h.logger.Info().
		Str("shop", shop).
		Bool("had_sessions", deleted).
		Msg("App uninstalled - cleanup completed")
	return nil
}

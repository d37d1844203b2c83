package application

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Artisanstories/wholesale-management-app/internal/domain"
	"github.com/Artisanstories/wholesale-management-app/internal/ports"

	"github.com/rs/zerolog"
)

// Fallbacks when a shop has not saved settings yet.
const (
	DefaultDiscountPercent = 20.0
	DefaultVATPercent      = 20.0
)

// WholesaleService computes wholesale pricing from per-shop settings and
// tag rules. It is a consumer of the session layer: every method takes the
// authorized session resolved by the middleware.
type WholesaleService struct {
	settings ports.SettingsRepository
	tagRules ports.TagRuleRepository
	platform ports.PlatformClient
	logger   zerolog.Logger
}

// NewWholesaleService creates a new wholesale service
func NewWholesaleService(
	settings ports.SettingsRepository,
	tagRules ports.TagRuleRepository,
	platform ports.PlatformClient,
	logger zerolog.Logger,
) *WholesaleService {
	return &WholesaleService{
		settings: settings,
		tagRules: tagRules,
		platform: platform,
		logger:   logger,
	}
}

// GetSettings returns the shop's settings, falling back to defaults.
func (s *WholesaleService) GetSettings(ctx context.Context, shop string) (*domain.Settings, error) {
	settings, err := s.settings.Get(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings for %s: %w", shop, err)
	}
	if settings == nil {
		return &domain.Settings{
			Shop:            shop,
			DiscountPercent: DefaultDiscountPercent,
			VATPercent:      DefaultVATPercent,
		}, nil
	}
	return settings, nil
}

// SaveSettings validates and upserts the shop's settings.
func (s *WholesaleService) SaveSettings(ctx context.Context, shop string, discountPercent, vatPercent float64) (*domain.Settings, error) {
	if discountPercent < 0 || discountPercent > 100 || vatPercent < 0 || vatPercent > 100 {
		return nil, fmt.Errorf("percentages must be within [0,100]: %w", domain.ErrClientError)
	}

	settings := &domain.Settings{
		Shop:            shop,
		DiscountPercent: discountPercent,
		VATPercent:      vatPercent,
		UpdatedAt:       time.Now(),
	}
	if err := s.settings.Save(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to save settings for %s: %w", shop, err)
	}
	return settings, nil
}

// ListTagRules returns the shop's tag rules sorted by the repository.
func (s *WholesaleService) ListTagRules(ctx context.Context, shop string) ([]*domain.TagRule, error) {
	rules, err := s.tagRules.List(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("failed to list tag rules for %s: %w", shop, err)
	}
	return rules, nil
}

// UpsertTagRule normalizes the tag and upserts the rule.
func (s *WholesaleService) UpsertTagRule(ctx context.Context, shop string, tag string, discountPercent float64) (*domain.TagRule, error) {
	normalized := NormalizeTag(tag)
	if normalized == "" {
		return nil, fmt.Errorf("empty tag: %w", domain.ErrClientError)
	}
	if discountPercent < 0 || discountPercent > 100 {
		return nil, fmt.Errorf("discount must be within [0,100]: %w", domain.ErrClientError)
	}

	rule := &domain.TagRule{
		Shop:            shop,
		Tag:             normalized,
		DiscountPercent: discountPercent,
		UpdatedAt:       time.Now(),
	}
	if err := s.tagRules.Upsert(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to upsert tag rule for %s: %w", shop, err)
	}
	return rule, nil
}

// DeleteTagRule removes one rule by tag.
func (s *WholesaleService) DeleteTagRule(ctx context.Context, shop string, tag string) error {
	normalized := NormalizeTag(tag)
	if normalized == "" {
		return fmt.Errorf("empty tag: %w", domain.ErrClientError)
	}
	if err := s.tagRules.Delete(ctx, shop, normalized); err != nil {
		return fmt.Errorf("failed to delete tag rule for %s: %w", shop, err)
	}
	return nil
}

// BestDiscountForTags returns the highest discount among the rules
// matching any of the customer's tags, falling back to defaultDiscount.
func (s *WholesaleService) BestDiscountForTags(ctx context.Context, shop string, tags []string, defaultDiscount float64) (float64, error) {
	rules, err := s.tagRules.List(ctx, shop)
	if err != nil {
		return 0, fmt.Errorf("failed to list tag rules for %s: %w", shop, err)
	}

	byTag := make(map[string]float64, len(rules))
	for _, rule := range rules {
		byTag[rule.Tag] = rule.DiscountPercent
	}

	best := -1.0
	for _, tag := range tags {
		if discount, ok := byTag[NormalizeTag(tag)]; ok && discount > best {
			best = discount
		}
	}
	if best < 0 {
		return defaultDiscount, nil
	}
	return best, nil
}

// Preview loads a page of products with the session's token and computes
// retail and wholesale prices, VAT inclusive and exclusive.
func (s *WholesaleService) Preview(ctx context.Context, session *domain.Session, limit int) (*domain.Settings, []domain.PriceQuote, error) {
	if limit <= 0 || limit > 250 {
		limit = 25
	}

	settings, err := s.GetSettings(ctx, session.Shop)
	if err != nil {
		return nil, nil, err
	}

	products, err := s.platform.GetProducts(ctx, session.Shop, session.AccessToken, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load products for %s: %w: %v", session.Shop, domain.ErrUpstream, err)
	}

	discount := settings.DiscountPercent / 100
	vat := settings.VATPercent / 100

	var quotes []domain.PriceQuote
	for _, product := range products {
		for _, variant := range product.Variants {
			retail := 0.0
			if variant.Price != nil {
				retail, _ = variant.Price.Float64()
			}
			wholesale := round2(retail * (1 - discount))
			quotes = append(quotes, domain.PriceQuote{
				ProductID:       int64(product.Id),
				ProductTitle:    product.Title,
				VariantID:       int64(variant.Id),
				VariantTitle:    variant.Title,
				Retail:          retail,
				Wholesale:       wholesale,
				RetailIncVAT:    round2(retail * (1 + vat)),
				WholesaleIncVAT: round2(wholesale * (1 + vat)),
			})
		}
	}
	return settings, quotes, nil
}

// NormalizeTag trims and lower-cases a customer tag for rule matching.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// SplitTags parses Shopify's comma-separated customer tag string.
func SplitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if normalized := NormalizeTag(tag); normalized != "" {
			tags = append(tags, normalized)
		}
	}
	return tags
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

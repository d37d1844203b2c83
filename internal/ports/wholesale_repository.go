package ports

import (
	"context"

	"github.com/Artisanstories/wholesale-management-app/internal/domain"
)

// SettingsRepository persists per-shop wholesale defaults.
type SettingsRepository interface {
	Get(ctx context.Context, shop string) (*domain.Settings, error)
	Save(ctx context.Context, settings *domain.Settings) error
	Delete(ctx context.Context, shop string) error
}

// TagRuleRepository persists per-shop tag discount rules.
type TagRuleRepository interface {
	List(ctx context.Context, shop string) ([]*domain.TagRule, error)
	Upsert(ctx context.Context, rule *domain.TagRule) error
	Delete(ctx context.Context, shop string, tag string) error
	DeleteAllForShop(ctx context.Context, shop string) error
}

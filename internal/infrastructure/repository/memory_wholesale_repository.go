package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/Artisanstories/wholesale-management-app/internal/domain"
	"github.com/Artisanstories/wholesale-management-app/internal/ports"
)

// MemorySettingsRepository keeps wholesale settings in a process-local
// map. Pairs with the memory session backend for dev and tests.
type MemorySettingsRepository struct {
	mu       sync.RWMutex
	settings map[string]domain.Settings
}

// NewMemorySettingsRepository creates a new in-memory settings repository
func NewMemorySettingsRepository() ports.SettingsRepository {
	return &MemorySettingsRepository{settings: make(map[string]domain.Settings)}
}

func (r *MemorySettingsRepository) Get(ctx context.Context, shop string) (*domain.Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	settings, ok := r.settings[shop]
	if !ok {
		return nil, nil
	}
	copied := settings
	return &copied, nil
}

func (r *MemorySettingsRepository) Save(ctx context.Context, settings *domain.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[settings.Shop] = *settings
	return nil
}

func (r *MemorySettingsRepository) Delete(ctx context.Context, shop string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.settings, shop)
	return nil
}

// MemoryTagRuleRepository keeps tag rules in a process-local map keyed by
// (shop, tag).
type MemoryTagRuleRepository struct {
	mu    sync.RWMutex
	rules map[string]map[string]domain.TagRule
}

// NewMemoryTagRuleRepository creates a new in-memory tag rule repository
func NewMemoryTagRuleRepository() ports.TagRuleRepository {
	return &MemoryTagRuleRepository{rules: make(map[string]map[string]domain.TagRule)}
}

func (r *MemoryTagRuleRepository) List(ctx context.Context, shop string) ([]*domain.TagRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var rules []*domain.TagRule
	for _, rule := range r.rules[shop] {
		copied := rule
		rules = append(rules, &copied)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Tag < rules[j].Tag })
	return rules, nil
}

func (r *MemoryTagRuleRepository) Upsert(ctx context.Context, rule *domain.TagRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rules[rule.Shop] == nil {
		r.rules[rule.Shop] = make(map[string]domain.TagRule)
	}
	r.rules[rule.Shop][rule.Tag] = *rule
	return nil
}

func (r *MemoryTagRuleRepository) Delete(ctx context.Context, shop string, tag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rules[shop], tag)
	return nil
}

func (r *MemoryTagRuleRepository) DeleteAllForShop(ctx context.Context, shop string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rules, shop)
	return nil
}

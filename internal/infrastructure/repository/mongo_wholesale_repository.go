package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Artisanstories/wholesale-management-app/internal/domain"
	"github.com/Artisanstories/wholesale-management-app/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSettingsRepository persists per-shop wholesale settings, keyed by
// shop domain as the document _id.
type MongoSettingsRepository struct {
	collection *mongo.Collection
}

// NewMongoSettingsRepository creates a new MongoDB settings repository
func NewMongoSettingsRepository(db *mongo.Database) ports.SettingsRepository {
	return &MongoSettingsRepository{collection: db.Collection("wholesale_settings")}
}

// Get retrieves a shop's settings.
func (r *MongoSettingsRepository) Get(ctx context.Context, shop string) (*domain.Settings, error) {
	var settings domain.Settings
	err := r.collection.FindOne(ctx, bson.M{"_id": shop}).Decode(&settings)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &settings, nil
}

// Save upserts a shop's settings.
func (r *MongoSettingsRepository) Save(ctx context.Context, settings *domain.Settings) error {
	doc := *settings
	doc.UpdatedAt = time.Now()

	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": settings.Shop}, bson.M{"$set": doc}, opts)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// Delete removes a shop's settings.
func (r *MongoSettingsRepository) Delete(ctx context.Context, shop string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": shop}); err != nil {
		return fmt.Errorf("failed to delete settings: %w", err)
	}
	return nil
}

// MongoTagRuleRepository persists per-shop tag discount rules keyed by
// (shop, tag).
type MongoTagRuleRepository struct {
	collection *mongo.Collection
}

// NewMongoTagRuleRepository creates a new MongoDB tag rule repository
func NewMongoTagRuleRepository(db *mongo.Database) ports.TagRuleRepository {
	return &MongoTagRuleRepository{collection: db.Collection("wholesale_tag_rules")}
}

// List retrieves a shop's rules ordered by tag.
func (r *MongoTagRuleRepository) List(ctx context.Context, shop string) ([]*domain.TagRule, error) {
	opts := options.Find().SetSort(bson.M{"tag": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"shop": shop}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list tag rules: %w", err)
	}
	defer cursor.Close(ctx)

	var rules []*domain.TagRule
	for cursor.Next(ctx) {
		var rule domain.TagRule
		if err := cursor.Decode(&rule); err != nil {
			return nil, fmt.Errorf("failed to decode tag rule: %w", err)
		}
		rules = append(rules, &rule)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return rules, nil
}

// Upsert saves a rule keyed by (shop, tag).
func (r *MongoTagRuleRepository) Upsert(ctx context.Context, rule *domain.TagRule) error {
	doc := *rule
	doc.UpdatedAt = time.Now()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"shop": rule.Shop, "tag": rule.Tag}
	_, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": doc}, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert tag rule: %w", err)
	}
	return nil
}

// Delete removes one rule.
func (r *MongoTagRuleRepository) Delete(ctx context.Context, shop string, tag string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"shop": shop, "tag": tag}); err != nil {
		return fmt.Errorf("failed to delete tag rule: %w", err)
	}
	return nil
}

// DeleteAllForShop removes every rule for a shop.
func (r *MongoTagRuleRepository) DeleteAllForShop(ctx context.Context, shop string) error {
	if _, err := r.collection.DeleteMany(ctx, bson.M{"shop": shop}); err != nil {
		return fmt.Errorf("failed to delete tag rules: %w", err)
	}
	return nil
}

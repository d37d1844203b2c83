package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Artisanstories/wholesale-management-app/internal/domain"
	"github.com/Artisanstories/wholesale-management-app/internal/ports"

	"github.com/redis/go-redis/v9"
)

const authRequestKeyPrefix = "oauth:state:"

// RedisAuthRequestRepository stores pending authorization requests in
// Redis with a native TTL, which makes nonces both multi-instance safe
// and self-expiring.
type RedisAuthRequestRepository struct {
	client *redis.Client
}

// NewRedisAuthRequestRepository creates a new Redis auth request repository
func NewRedisAuthRequestRepository(client *redis.Client) ports.AuthRequestRepository {
	return &RedisAuthRequestRepository{client: client}
}

// Create records a pending authorization request with the remaining TTL.
func (r *RedisAuthRequestRepository) Create(ctx context.Context, req *domain.AuthorizationRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal authorization request: %w", err)
	}

	ttl := time.Until(req.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("authorization request already expired")
	}

	if err := r.client.Set(ctx, authRequestKeyPrefix+req.Nonce, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store authorization request: %w", err)
	}
	return nil
}

// Consume atomically fetches and deletes the request via GETDEL, so two
// callbacks racing on one nonce resolve to a single winner.
func (r *RedisAuthRequestRepository) Consume(ctx context.Context, nonce string) (*domain.AuthorizationRequest, error) {
	payload, err := r.client.GetDel(ctx, authRequestKeyPrefix+nonce).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume authorization request: %w", err)
	}

	var req domain.AuthorizationRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal authorization request: %w", err)
	}
	return &req, nil
}

package ports

import (
	"context"

	"github.com/Artisanstories/wholesale-management-app/internal/domain"
)

// SessionRepository owns the full Session lifecycle. Store is an atomic
// upsert keyed by id (last write wins); once DeleteAllForShop returns, no
// subsequent Load for that shop's ids may succeed.
type SessionRepository interface {
	// Store upserts a session by id.
	Store(ctx context.Context, session *domain.Session) error

	// Load retrieves a session by id, or (nil, nil) when absent.
	Load(ctx context.Context, id string) (*domain.Session, error)

	// Delete removes a session by id, reporting whether one existed.
	Delete(ctx context.Context, id string) (bool, error)

	// FindByShop retrieves every session (online and offline) for a shop.
	FindByShop(ctx context.Context, shop string) ([]*domain.Session, error)

	// DeleteAllForShop removes every session for a shop, reporting
	// whether any existed. Used by app-uninstall cleanup.
	DeleteAllForShop(ctx context.Context, shop string) (bool, error)
}

// AuthRequestRepository persists pending OAuth authorization requests
// keyed by nonce with a short TTL.
type AuthRequestRepository interface {
	// Create records a pending authorization request.
	Create(ctx context.Context, req *domain.AuthorizationRequest) error

	// Consume atomically retrieves and removes a request by nonce.
	// Returns (nil, nil) when the nonce is unknown or expired.
	Consume(ctx context.Context, nonce string) (*domain.AuthorizationRequest, error)
}

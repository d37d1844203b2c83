package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Artisanstories/wholesale-management-app/internal/domain"
	"github.com/Artisanstories/wholesale-management-app/internal/ports"
)

// MemoryAuthRequestRepository keeps pending authorization requests in a
// process-local map. Expiry is enforced at consume time.
type MemoryAuthRequestRepository struct {
	mu       sync.Mutex
	requests map[string]domain.AuthorizationRequest
}

// NewMemoryAuthRequestRepository creates a new in-memory auth request repository
func NewMemoryAuthRequestRepository() ports.AuthRequestRepository {
	return &MemoryAuthRequestRepository{requests: make(map[string]domain.AuthorizationRequest)}
}

// Create records a pending authorization request keyed by nonce.
func (r *MemoryAuthRequestRepository) Create(ctx context.Context, req *domain.AuthorizationRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[req.Nonce] = *req
	return nil
}

// Consume removes and returns the request for a nonce. A nonce is single
// use: a second consume returns nil even for a live request.
func (r *MemoryAuthRequestRepository) Consume(ctx context.Context, nonce string) (*domain.AuthorizationRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[nonce]
	if !ok {
		return nil, nil
	}
	delete(r.requests, nonce)
	if req.Expired(time.Now()) {
		return nil, nil
	}
	return &req, nil
}

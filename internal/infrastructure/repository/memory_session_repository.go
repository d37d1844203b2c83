package repository

import (
	"context"
	"sync"

	"github.com/Artisanstories/wholesale-management-app/internal/domain"
	"github.com/Artisanstories/wholesale-management-app/internal/ports"
)

// MemorySessionRepository keeps sessions in a process-local map. It
// resets on restart, so it only suits single-instance, non-durable
// deployments and tests.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

// NewMemorySessionRepository creates a new in-memory session repository
func NewMemorySessionRepository() ports.SessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]domain.Session)}
}

// Store upserts a session by id, last write wins.
func (r *MemorySessionRepository) Store(ctx context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = *session
	return nil
}

// Load retrieves a session by id.
func (r *MemorySessionRepository) Load(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := session
	return &copied, nil
}

// Delete removes a session by id.
func (r *MemorySessionRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok, nil
}

// FindByShop retrieves every session for a shop.
func (r *MemorySessionRepository) FindByShop(ctx context.Context, shop string) ([]*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sessions []*domain.Session
	for _, session := range r.sessions {
		if session.Shop == shop {
			copied := session
			sessions = append(sessions, &copied)
		}
	}
	return sessions, nil
}

// DeleteAllForShop removes every session for a shop under one lock, so a
// Load racing the sweep sees either the full set or none of it.
func (r *MemorySessionRepository) DeleteAllForShop(ctx context.Context, shop string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := false
	for id, session := range r.sessions {
		if session.Shop == shop {
			delete(r.sessions, id)
			deleted = true
		}
	}
	return deleted, nil
}

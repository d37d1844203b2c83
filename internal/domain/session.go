package domain

import (
	"fmt"
	"time"
)

// Session represents a shop's (and, for online sessions, a user's)
// authorization grant against the Shopify Admin API.
type Session struct {
	ID          string    `json:"id" bson:"_id"`
	Shop        string    `json:"shop" bson:"shop"`
	AccessToken string    `json:"-" bson:"access_token"`
	Scopes      []string  `json:"scopes" bson:"scopes"`
	IsOnline    bool      `json:"is_online" bson:"is_online"`
	UserID      int64     `json:"user_id,omitempty" bson:"user_id,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// OfflineSessionID returns the deterministic id of the single offline
// session a shop may hold.
func OfflineSessionID(shop string) string {
	return "offline_" + shop
}

// OnlineSessionID returns the deterministic id of the online session
// bound to one signed-in user of a shop.
func OnlineSessionID(shop string, userID int64) string {
	return fmt.Sprintf("%s_%d", shop, userID)
}

// SessionID derives the id for either variant.
func SessionID(shop string, online bool, userID int64) string {
	if online {
		return OnlineSessionID(shop, userID)
	}
	return OfflineSessionID(shop)
}

// Expired reports whether an online session has outlived its user's
// sign-in. Offline sessions never expire.
func (s *Session) Expired(now time.Time) bool {
	return s.IsOnline && !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// AuthorizationRequest binds a nonce to one begin/callback round trip.
// It is short-lived and consumed exactly once.
type AuthorizationRequest struct {
	Nonce        string    `json:"nonce"`
	Shop         string    `json:"shop"`
	CallbackPath string    `json:"callback_path"`
	Scopes       []string  `json:"scopes"`
	IsOnline     bool      `json:"is_online"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the request outlived its TTL.
func (a *AuthorizationRequest) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

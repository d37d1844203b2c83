package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"

	"github.com/Artisanstories/wholesale-management-app/internal/domain"
	"github.com/Artisanstories/wholesale-management-app/internal/ports"

	"github.com/rs/zerolog"
)

// authRequestTTL bounds one browser redirect round trip.
const authRequestTTL = 10 * time.Minute

// AuthService drives the begin/callback OAuth handshake against Shopify
// and owns session creation. Begin must be reached by a top-level browser
// navigation; issuing its redirect from inside the embedded iframe is
// blocked by frame/cookie policy, which is why the inline bounce page
// exists in front of it.
type AuthService struct {
	sessions     ports.SessionRepository
	authRequests ports.AuthRequestRepository
	platform     ports.PlatformClient
	scopes       []string
	appURL       string
	logger       zerolog.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	sessions ports.SessionRepository,
	authRequests ports.AuthRequestRepository,
	platform ports.PlatformClient,
	scopes []string,
	appURL string,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		sessions:     sessions,
		authRequests: authRequests,
		platform:     platform,
		scopes:       scopes,
		appURL:       appURL,
		logger:       logger,
	}
}

// Begin validates the shop, records a single-use nonce and returns the
// platform authorization URL to redirect to.
func (s *AuthService) Begin(ctx context.Context, rawShop string, callbackPath string, online bool) (string, error) {
	shop := domain.NormalizeShopDomain(rawShop)
	if shop == "" {
		return "", fmt.Errorf("shop %q: %w", rawShop, domain.ErrClientError)
	}

	nonceBytes := make([]byte, 16)
	if _, err := rand.Read(nonceBytes); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(nonceBytes)

	req := &domain.AuthorizationRequest{
		Nonce:        nonce,
		Shop:         shop,
		CallbackPath: callbackPath,
		Scopes:       s.scopes,
		IsOnline:     online,
		ExpiresAt:    time.Now().Add(authRequestTTL),
	}
	if err := s.authRequests.Create(ctx, req); err != nil {
		return "", fmt.Errorf("failed to record authorization request: %w: %v", domain.ErrUpstream, err)
	}

	redirectURI := s.appURL + callbackPath
	authURL := s.platform.AuthorizeURL(shop, s.scopes, redirectURI, nonce, online)

	s.logger.Info().
		Str("shop", shop).
		Bool("online", online).
		Msg("OAuth begin: redirecting to authorization URL")

	return authURL, nil
}

// CallbackParams carries the query parameters Shopify returns to the
// callback endpoint.
type CallbackParams struct {
	Shop  string
	Code  string
	State string
	Host  string
}

// Callback validates the returned nonce, exchanges the authorization code
// for an access token and commits the resulting session. Nothing is
// persisted unless the exchange succeeds. Returns the session and the
// embedded-app URL to redirect the browser back into.
func (s *AuthService) Callback(ctx context.Context, params CallbackParams) (*domain.Session, string, error) {
	shop := domain.NormalizeShopDomain(params.Shop)
	if shop == "" || params.Code == "" || params.State == "" {
		return nil, "", fmt.Errorf("missing callback parameters: %w", domain.ErrClientError)
	}

	req, err := s.authRequests.Consume(ctx, params.State)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load authorization request: %w: %v", domain.ErrUpstream, err)
	}
	if req == nil || req.Expired(time.Now()) || req.Shop != shop {
		return nil, "", fmt.Errorf("nonce mismatch or expired for %s: %w", shop, domain.ErrAuthExpired)
	}

	token, err := s.platform.ExchangeToken(ctx, shop, params.Code)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("OAuth token exchange failed")
		return nil, "", fmt.Errorf("token exchange for %s: %w: %v", shop, domain.ErrUpstream, err)
	}

	now := time.Now()
	session := &domain.Session{
		ID:          domain.SessionID(shop, req.IsOnline, token.UserID),
		Shop:        shop,
		AccessToken: token.Token,
		Scopes:      token.Scopes,
		IsOnline:    req.IsOnline,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.IsOnline {
		session.UserID = token.UserID
		session.ExpiresAt = now.Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	if err := s.sessions.Store(ctx, session); err != nil {
		return nil, "", fmt.Errorf("failed to store session for %s: %w: %v", shop, domain.ErrUpstream, err)
	}

	s.logger.Info().
		Str("shop", shop).
		Bool("online", session.IsOnline).
		Strs("scopes", session.Scopes).
		Msg("OAuth callback completed")

	return session, s.EmbeddedAppURL(shop, params.Host), nil
}

// EmbeddedAppURL builds the redirect target back into the embedded shell,
// forwarding the host embedding context when Shopify supplied one so App
// Bridge can re-establish the iframe.
func (s *AuthService) EmbeddedAppURL(shop string, host string) string {
	target := "/app?shop=" + url.QueryEscape(shop)
	if host != "" {
		target += "&host=" + url.QueryEscape(host)
	}
	return target
}

// HasValidSession is the best-effort check behind the inline bounce
// short-circuit: an existing session whose token still validates lets the
// browser skip a full OAuth round trip. Any failure here degrades to
// "no session" and a fresh handshake.
func (s *AuthService) HasValidSession(ctx context.Context, shop string) bool {
	session, err := s.sessions.Load(ctx, domain.OfflineSessionID(shop))
	if err != nil || session == nil {
		return false
	}

	valid, err := s.platform.ValidateToken(ctx, shop, session.AccessToken)
	if err != nil {
		// Network trouble during a best-effort probe; assume the token
		// still works rather than forcing a reinstall.
		s.logger.Warn().Err(err).Str("shop", shop).Msg("Token validation errored, assuming valid")
		return true
	}
	return valid
}

package middleware

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Artisanstories/wholesale-management-app/internal/application"
	"github.com/Artisanstories/wholesale-management-app/internal/domain"
	"github.com/Artisanstories/wholesale-management-app/internal/infrastructure/metrics"
	"github.com/Artisanstories/wholesale-management-app/internal/infrastructure/shopify"
	"github.com/Artisanstories/wholesale-management-app/internal/ports"

	"github.com/rs/zerolog"
)

// Reauthorization signaling headers. A 401 carrying these tells the
// browser-side gateway to run a top-level redirect through the inline
// bounce page instead of retrying the call.
const (
	HeaderReauthorize    = "X-Reauthorize"
	HeaderReauthorizeURL = "X-Reauthorize-Url"
	InlineAuthPath       = "/auth/inline"
)

// shopCookieName is the persisted sign-in indicator used when no bearer
// token accompanies the request.
const shopCookieName = "shopify_app_shop"

// VerifyRequest guards protected handlers. It resolves a candidate
// session from the bearer session token (preferring the online session,
// falling back to the shop's offline session), loads it, and either puts
// it on the context or emits the 401 reauthorization demand. It never
// lets an internal resolution failure escape as anything but that same
// 401; only a session-store failure surfaces as a 500.
type VerifyRequest struct {
	verifier *shopify.SessionTokenVerifier
	sessions ports.SessionRepository
	resolver *application.ShopResolver
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewVerifyRequest creates the middleware
func NewVerifyRequest(
	verifier *shopify.SessionTokenVerifier,
	sessions ports.SessionRepository,
	resolver *application.ShopResolver,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *VerifyRequest {
	return &VerifyRequest{
		verifier: verifier,
		sessions: sessions,
		resolver: resolver,
		metrics:  m,
		logger:   logger,
	}
}

// Handler wraps a protected handler.
func (v *VerifyRequest) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		candidates, ok := v.candidateSessionIDs(r)
		if !ok {
			v.demandReauth(w, r)
			return
		}

		for _, id := range candidates {
			session, err := v.sessions.Load(r.Context(), id)
			if err != nil {
				// An infrastructure fault is not "no session"; forcing a
				// reauthorization here would send the merchant through
				// OAuth for nothing.
				v.logger.Error().Err(err).Str("session_id", id).Msg("Session store read failed")
				http.Error(w, "session store unavailable", http.StatusInternalServerError)
				return
			}
			if session == nil || session.Expired(time.Now()) {
				continue
			}
			next.ServeHTTP(w, r.WithContext(domain.WithSession(r.Context(), session)))
			return
		}

		v.demandReauth(w, r)
	})
}

// candidateSessionIDs resolves the session ids to try, most specific
// first. Token verification failures are swallowed; they simply mean no
// candidate and a reauthorization demand.
func (v *VerifyRequest) candidateSessionIDs(r *http.Request) (ids []string, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			v.logger.Warn().Interface("panic", rec).Msg("Session resolution panicked, demanding reauthorization")
			ids, ok = nil, false
		}
	}()

	if raw, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); found {
		claims, err := v.verifier.Verify(raw)
		if err != nil {
			v.logger.Debug().Err(err).Msg("Bearer session token rejected")
			return nil, false
		}
		return []string{
			domain.OnlineSessionID(claims.Shop, claims.UserID),
			domain.OfflineSessionID(claims.Shop),
		}, true
	}

	if cookie, err := r.Cookie(shopCookieName); err == nil {
		if shop := domain.NormalizeShopDomain(cookie.Value); shop != "" {
			return []string{domain.OfflineSessionID(shop)}, true
		}
	}

	return nil, false
}

// demandReauth writes the idempotent, side-effect-free 401 that triggers
// the client's top-level redirect.
func (v *VerifyRequest) demandReauth(w http.ResponseWriter, r *http.Request) {
	target := InlineAuthPath
	if shop, ok := v.resolver.Resolve(r); ok {
		target += "?shop=" + url.QueryEscape(shop)
	}

	v.metrics.Reauths.Inc()
	w.Header().Set(HeaderReauthorize, "1")
	w.Header().Set(HeaderReauthorizeURL, target)
	http.Error(w, "session required", http.StatusUnauthorized)
}

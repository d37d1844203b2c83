package shopify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Artisanstories/wholesale-management-app/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTokenClaims is the decoded identity of an App Bridge session
// token: which shop the request comes from and which user is signed in.
type SessionTokenClaims struct {
	Shop   string
	UserID int64
}

// SessionTokenVerifier validates the short-lived signed session tokens
// the embedding runtime issues to the browser. These prove current
// user/shop identity only; they are distinct from the long-lived access
// token held server-side and never replace it.
type SessionTokenVerifier struct {
	apiKey    string
	apiSecret []byte
}

// NewSessionTokenVerifier creates a new session token verifier
func NewSessionTokenVerifier(apiKey, apiSecret string) *SessionTokenVerifier {
	return &SessionTokenVerifier{apiKey: apiKey, apiSecret: []byte(apiSecret)}
}

// Verify checks the HS256 signature, expiry and audience, and extracts
// the shop from the dest claim and the user id from sub.
func (v *SessionTokenVerifier) Verify(raw string) (*SessionTokenClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(v.apiKey),
		jwt.WithExpirationRequired(),
	)

	claims := jwt.MapClaims{}
	token, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return v.apiSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to verify session token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("session token invalid")
	}

	dest, _ := claims["dest"].(string)
	shop := domain.NormalizeShopDomain(strings.TrimPrefix(dest, "https://"))
	if shop == "" {
		return nil, fmt.Errorf("session token has no usable dest claim")
	}

	sub, _ := claims["sub"].(string)
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("session token has no usable sub claim: %w", err)
	}

	return &SessionTokenClaims{Shop: shop, UserID: userID}, nil
}

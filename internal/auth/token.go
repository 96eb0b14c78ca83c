// Package auth resolves bearer credentials to caller identities. Identity
// proofing (phone OTP) happens at an external provider; this layer only mints
// and verifies the session tokens issued after it.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/motbungchow/go-food-orderflow/internal/apperr"
)

// Caller roles.
const (
	RoleCustomer   = "customer"
	RoleRestaurant = "restaurant"
	RoleDriver     = "driver"
)

// Identity is the resolved caller of an authenticated request.
type Identity struct {
	UserID       string
	Role         string
	RestaurantID string // set only for restaurant accounts
}

// Claims is the JWT claim set carried by session tokens.
type Claims struct {
	UserID       string `json:"id"`
	Role         string `json:"role"`
	RestaurantID string `json:"restaurantId,omitempty"`
	jwt.RegisteredClaims
}

// Manager mints and verifies HS256 session tokens.
type Manager struct {
	secret  []byte
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewManager returns a Manager. ttl defaults to 7 days, matching the session
// length handed out at phone login.
func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl == 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Manager{
		secret:  []byte(secret),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// Mint issues a signed token for the identity.
func (m *Manager) Mint(ident Identity) (string, error) {
	now := m.nowFunc()
	claims := Claims{
		UserID:       ident.UserID,
		Role:         ident.Role,
		RestaurantID: ident.RestaurantID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify parses and validates a token, returning the caller identity.
func (m *Manager) Verify(token string) (*Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.nowFunc),
	)
	if err != nil {
		return nil, apperr.Authentication("invalid or expired token", err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.UserID == "" {
		return nil, apperr.Authentication("invalid token claims", nil)
	}
	return &Identity{
		UserID:       claims.UserID,
		Role:         claims.Role,
		RestaurantID: claims.RestaurantID,
	}, nil
}

// Package auth issues and resolves login sessions.
//
// A session is an HS256-signed JWT carrying the user id. The token is only
// proof of identity: the user's role is read from the store on every request,
// so demoting or disabling a user takes effect immediately. Logging out
// records the token id in a revocation list until the token would have
// expired anyway.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/warp/inventory-ledger/access"
	"github.com/warp/inventory-ledger/inventory"
)

// Common errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrTokenRevoked = errors.New("token has been revoked")
)

// Claims represents the session JWT claims
type Claims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// Token is an issued session token.
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// Config holds session settings.
type Config struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// Sessions issues, resolves and revokes session tokens.
type Sessions struct {
	secret  []byte
	ttl     time.Duration
	issuer  string
	revoked RevocationList
	users   UserLookup
	now     func() time.Time
}

// UserLookup returns the current state of a user. *inventory.Users
// satisfies it.
type UserLookup interface {
	Lookup(ctx context.Context, id inventory.UserID) (inventory.User, error)
}

// NewSessions creates a session service.
func NewSessions(cfg Config, revoked RevocationList, users UserLookup) *Sessions {
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "inventory-ledger"
	}
	return &Sessions{
		secret:  []byte(cfg.Secret),
		ttl:     cfg.TTL,
		issuer:  cfg.Issuer,
		revoked: revoked,
		users:   users,
		now:     time.Now,
	}
}

// Issue creates a session token for user.
func (s *Sessions) Issue(user inventory.User) (Token, error) {
	now := s.now()
	jti := uuid.New().String()
	expires := now.Add(s.ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(int64(user.ID), 10),
			ExpiresAt: jwt.NewNumericDate(expires),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID:   int64(user.ID),
		Username: user.Username,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return Token{Value: signed, ID: jti, ExpiresAt: expires}, nil
}

// Parse validates the signature and lifetime of a token and returns its claims.
func (s *Sessions) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Resolve turns a session token into the actor of a request. Every failure
// is access.ErrUnauthenticated wrapped around the cause; a user that no
// longer exists is treated like a bad token.
func (s *Sessions) Resolve(ctx context.Context, tokenString string) (access.Actor, error) {
	if tokenString == "" {
		return access.Actor{}, access.ErrUnauthenticated
	}
	claims, err := s.Parse(tokenString)
	if err != nil {
		return access.Actor{}, fmt.Errorf("%w: %w", access.ErrUnauthenticated, err)
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return access.Actor{}, err
	}
	if revoked {
		return access.Actor{}, fmt.Errorf("%w: %w", access.ErrUnauthenticated, ErrTokenRevoked)
	}

	user, err := s.users.Lookup(ctx, inventory.UserID(claims.UserID))
	if inventory.IsNotFound(err) {
		return access.Actor{}, fmt.Errorf("%w: user no longer exists", access.ErrUnauthenticated)
	}
	if err != nil {
		return access.Actor{}, err
	}

	return access.Actor{UserID: int64(user.ID), Username: user.Username, Role: user.Role}, nil
}

// Revoke invalidates a token until it expires. Invalid tokens are ignored.
func (s *Sessions) Revoke(ctx context.Context, tokenString string) error {
	claims, err := s.Parse(tokenString)
	if err != nil {
		return nil
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.revoked.Revoke(ctx, claims.ID, ttl)
}

// Package token issues and validates the HS256 bearer tokens used by the API.
//
// Two kinds exist: short-lived access tokens sent with every authenticated
// request, and longer-lived refresh tokens that can only mint new access
// tokens. Nothing is stored server side, so a token stays valid until it
// expires.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultAccessTTL  = 5 * time.Minute
	DefaultRefreshTTL = 24 * time.Hour

	typeAccess  = "access"
	typeRefresh = "refresh"
)

var (
	// ErrInvalidToken is returned by Refresh for malformed, expired or mistyped refresh tokens.
	ErrInvalidToken = errors.New("token is invalid or expired")
	// ErrUnauthenticated is returned by Authenticate when the access token cannot be trusted.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Claims are the JWT claims carried by both token kinds.
type Claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"token_type"`
}

// Pair is the result of a successful login.
type Pair struct {
	Access  string
	Refresh string
}

// Issuer signs and verifies tokens with a shared secret.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer constructs an Issuer. Non-positive TTLs fall back to the defaults.
func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// Issue creates an access and refresh token bound to accountID.
func (i *Issuer) Issue(accountID uuid.UUID) (Pair, error) {
	access, err := i.sign(accountID, typeAccess, i.accessTTL)
	if err != nil {
		return Pair{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := i.sign(accountID, typeRefresh, i.refreshTTL)
	if err != nil {
		return Pair{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

// Refresh validates a refresh token and returns a new access token for the
// same account.
func (i *Issuer) Refresh(refreshToken string) (string, error) {
	accountID, err := i.parse(refreshToken, typeRefresh)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	access, err := i.sign(accountID, typeAccess, i.accessTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return access, nil
}

// Authenticate resolves the account id carried by an access token.
func (i *Issuer) Authenticate(accessToken string) (uuid.UUID, error) {
	accountID, err := i.parse(accessToken, typeAccess)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return accountID, nil
}

func (i *Issuer) sign(accountID uuid.UUID, tokenType string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   accountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenType: tokenType,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

func (i *Issuer) parse(tokenString, wantType string) (uuid.UUID, error) {
	if strings.TrimSpace(tokenString) == "" {
		return uuid.Nil, errors.New("empty token")
	}

	keyFunc := func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, keyFunc,
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return uuid.Nil, err
	}
	if !token.Valid {
		return uuid.Nil, errors.New("token is invalid")
	}
	if claims.TokenType != wantType {
		return uuid.Nil, fmt.Errorf("token type mismatch: %s", claims.TokenType)
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid subject: %w", err)
	}
	return accountID, nil
}

package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/engagehub/submission/internal/core"
)

const (
	defaultIssuer     = "engagehub-submission"
	defaultAccessTTL  = time.Hour
	defaultRefreshTTL = 30 * 24 * time.Hour
	defaultLeeway     = 30 * time.Second

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// ErrInvalidToken covers every verification failure: bad signature, expiry,
// malformed claims, or the wrong token type.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims carried by both token types. Role and username
// are only present on access tokens.
type Claims struct {
	Username  string `json:"username,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenIssuer issues and verifies HS256 tokens.
type TokenIssuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// IssuerOptions overrides the token defaults; zero values keep them.
type IssuerOptions struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// NewTokenIssuer creates an issuer from a shared secret.
func NewTokenIssuer(secret []byte, opts IssuerOptions) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	ti := &TokenIssuer{
		secret:     secret,
		issuer:     defaultIssuer,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
	if opts.Issuer != "" {
		ti.issuer = opts.Issuer
	}
	if opts.AccessTTL > 0 {
		ti.accessTTL = opts.AccessTTL
	}
	if opts.RefreshTTL > 0 {
		ti.refreshTTL = opts.RefreshTTL
	}
	return ti, nil
}

// IssueAccess creates an access token carrying the user's role.
func (ti *TokenIssuer) IssueAccess(u *core.User) (string, error) {
	return ti.sign(Claims{
		Username:         u.Username,
		Role:             string(u.Role),
		TokenType:        tokenTypeAccess,
		RegisteredClaims: ti.registered(u.ID, ti.accessTTL),
	})
}

// IssueRefresh creates a refresh token carrying only the subject.
func (ti *TokenIssuer) IssueRefresh(u *core.User) (string, error) {
	return ti.sign(Claims{
		TokenType:        tokenTypeRefresh,
		RegisteredClaims: ti.registered(u.ID, ti.refreshTTL),
	})
}

// VerifyAccess validates an access token and returns the caller identity.
func (ti *TokenIssuer) VerifyAccess(token string) (core.Identity, error) {
	claims, err := ti.verify(token, tokenTypeAccess)
	if err != nil {
		return core.Identity{}, err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return core.Identity{}, ErrInvalidToken
	}
	role, err := core.ParseRole(claims.Role)
	if err != nil {
		return core.Identity{}, ErrInvalidToken
	}
	return core.Identity{UserID: userID, Username: claims.Username, Role: role}, nil
}

// VerifyRefresh validates a refresh token and returns the subject user id.
func (ti *TokenIssuer) VerifyRefresh(token string) (uuid.UUID, error) {
	claims, err := ti.verify(token, tokenTypeRefresh)
	if err != nil {
		return uuid.Nil, err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}

func (ti *TokenIssuer) registered(userID uuid.UUID, ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now().UTC()
	return jwt.RegisteredClaims{
		Issuer:    ti.issuer,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
}

func (ti *TokenIssuer) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (ti *TokenIssuer) verify(token, wantType string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return ti.secret, nil
		},
		jwt.WithIssuer(ti.issuer),
		jwt.WithLeeway(defaultLeeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.TokenType != wantType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

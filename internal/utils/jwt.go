package utils // package utils provides token, digest and password helpers

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/orderdesk/internal/model"
)

// ErrInvalidToken is returned for any token that fails signature, algorithm,
// expiry or claim checks. Callers map it to Unauthorized.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken is a signed short-lived JWT sent as a Bearer credential.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// RefreshToken is the raw long-lived token handed to the client in a
// cookie. Only HashRefreshRaw(Raw) is persisted.
type RefreshToken struct {
	Raw string
	Exp time.Time
}

// AccessClaims are the claims embedded in access tokens.
type AccessClaims struct {
	UserID uint64 `json:"id"`
	Role   string `json:"role"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies both token kinds. Access and refresh
// tokens use different secrets so one can never be replayed as the other.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	clock         Clock
}

func NewTokenIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, clock Clock) *TokenIssuer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		clock:         clock,
	}
}

// NewAccessToken builds and signs an HS256 access JWT for the identity.
func (t *TokenIssuer) NewAccessToken(id model.Identity) (AccessToken, error) {
	now := t.clock.Now()
	exp := now.Add(t.accessTTL)
	claims := AccessClaims{
		UserID: id.ID,
		Role:   string(id.Role),
		Email:  id.Email,
		Name:   id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(id.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.accessSecret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies signature, algorithm and expiry against the
// issuer's clock and returns the embedded identity.
func (t *TokenIssuer) ParseAccessToken(raw string) (model.Identity, error) {
	var claims AccessClaims
	if err := t.parse(raw, t.accessSecret, &claims); err != nil {
		return model.Identity{}, err
	}
	role := model.Role(claims.Role)
	if claims.UserID == 0 || !role.Valid() {
		return model.Identity{}, ErrInvalidToken
	}
	return model.Identity{ID: claims.UserID, Role: role, Email: claims.Email, Name: claims.Name}, nil
}

// NewRefreshToken signs a refresh JWT for userID. The random jti makes every
// token unique even when two are issued within the same second.
func (t *TokenIssuer) NewRefreshToken(userID uint64) (RefreshToken, error) {
	now := t.clock.Now()
	exp := now.Add(t.refreshTTL)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   strconv.FormatUint(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.refreshSecret)
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Raw: signed, Exp: exp}, nil
}

// ParseRefreshToken verifies a refresh JWT and returns the user id it was
// issued for. It does not consult storage.
func (t *TokenIssuer) ParseRefreshToken(raw string) (uint64, error) {
	var claims jwt.RegisteredClaims
	if err := t.parse(raw, t.refreshSecret, &claims); err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

func (t *TokenIssuer) parse(raw string, secret []byte, claims jwt.Claims) error {
	if raw == "" {
		return ErrInvalidToken
	}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return ErrInvalidToken
	}
	return nil
}

// HashRefreshRaw returns the SHA-256 hex digest of a raw refresh token. This
// is the only form in which refresh tokens are stored.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

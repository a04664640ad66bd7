package utils

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cppla/aiblog/config"
)

// TokenTTL is the lifetime of staff access tokens.
const TokenTTL = 24 * time.Hour

const (
	tokenIssuer       = "aiblog"
	revokedKeyPrefix  = "jwt:revoked:"
	revocationTimeout = 2 * time.Second
)

// Claims carries the author identity; RegisteredClaims.ID is the revocation handle.
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateToken issues a signed token for the author, valid for duration.
func GenerateToken(userID uint, username string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(config.Get().JWTSecret))
}

// ParseToken verifies signature, issuer and expiry and returns the claims.
func ParseToken(tokenStr string) (*Claims, error) {
	secret := []byte(config.Get().JWTSecret)
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{},
		func(*jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// HashPassword returns the bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// revocations is the in-process fallback when Redis is off or unreachable.
var revocations = struct {
	sync.Mutex
	ids map[string]time.Time
}{ids: map[string]time.Time{}}

// RevokeToken marks a token id as revoked until its natural expiry.
func RevokeToken(id string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if id == "" || ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), revocationTimeout)
		defer cancel()
		if err := rc.Set(ctx, revokedKeyPrefix+id, "1", ttl).Err(); err == nil {
			return
		}
	}

	now := time.Now()
	revocations.Lock()
	defer revocations.Unlock()
	for k, exp := range revocations.ids {
		if now.After(exp) {
			delete(revocations.ids, k)
		}
	}
	revocations.ids[id] = expiresAt
}

// IsTokenRevoked reports whether the token id was revoked and has not expired yet.
func IsTokenRevoked(id string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), revocationTimeout)
		defer cancel()
		if n, err := rc.Exists(ctx, revokedKeyPrefix+id).Result(); err == nil && n > 0 {
			return true
		}
	}
	revocations.Lock()
	defer revocations.Unlock()
	exp, ok := revocations.ids[id]
	return ok && time.Now().Before(exp)
}

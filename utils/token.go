package utils

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var JWTSecret []byte

func init() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		// Default secret untuk development
		secret = "TestSecretKeyPAGOS1945"
	}
	JWTSecret = []byte(secret)
}

// TableClaims is embedded in the guest-facing access token printed on a
// table's QR code.
type TableClaims struct {
	TableID uint `json:"table_id"`
	jwt.RegisteredClaims
}

var (
	rotatedTokens = make(map[string]time.Time)
	rotatedMutex  sync.RWMutex
)

// RevokeTableToken blacklists a rotated-out access token so a previous
// dining party cannot keep using a stale QR code.
func RevokeTableToken(token string) {
	if token == "" {
		return
	}
	rotatedMutex.Lock()
	defer rotatedMutex.Unlock()
	rotatedTokens[token] = time.Now().Add(24 * time.Hour)
}

// IsTableTokenRevoked reports whether a token has been rotated out.
func IsTableTokenRevoked(token string) bool {
	rotatedMutex.RLock()
	defer rotatedMutex.RUnlock()

	expiry, exists := rotatedTokens[token]
	return exists && time.Now().Before(expiry)
}

// CleanupRevokedTokens drops expired blacklist entries. Called from a
// periodic goroutine in main.
func CleanupRevokedTokens() {
	rotatedMutex.Lock()
	defer rotatedMutex.Unlock()

	now := time.Now()
	for token, expiry := range rotatedTokens {
		if now.After(expiry) {
			delete(rotatedTokens, token)
		}
	}
}

// GenerateTableToken issues a fresh access token for a table.
func GenerateTableToken(tableID uint) (string, error) {
	claims := &TableClaims{
		TableID: tableID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 24)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "RestaurantPay",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(JWTSecret)
}

// ParseTableToken validates a guest access token and returns its claims.
func ParseTableToken(tokenString string) (*TableClaims, error) {
	if IsTableTokenRevoked(tokenString) {
		return nil, errors.New("token has been rotated out")
	}

	token, err := jwt.ParseWithClaims(tokenString, &TableClaims{}, func(token *jwt.Token) (interface{}, error) {
		return JWTSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(*TableClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// QRPayloadURL builds the URL encoded into a table's QR code, carrying the
// table id and its current access token.
func QRPayloadURL(tableID uint, token string) string {
	base := os.Getenv("QR_BASE_URL")
	if base == "" {
		base = "https://pay.example.com/t"
	}
	return fmt.Sprintf("%s/%d?token=%s", base, tableID, url.QueryEscape(token))
}

package utils

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"shorts-publisher/infrastructure/logger"

	"github.com/golang-jwt/jwt"
)

func GetCurrentTime() time.Time {
	return time.Now().UTC()
}

func GenerateToken(payload map[string]interface{}, secretKey string) (string, error) {
	var claims jwt.MapClaims = payload
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while generate token")
		return "", err
	}
	return tokenString, nil
}

// ParseToken verifies an HS256 token and returns its claims. Expired tokens are rejected.
func ParseToken(tokenString, secretKey string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

const stateAudience = "tiktok-consent"

// NewOAuthState signs a short-lived state value for the consent redirect.
func NewOAuthState(secretKey string, ttl time.Duration) (string, error) {
	nonce := make([]byte, 12)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	now := GetCurrentTime()
	return GenerateToken(map[string]interface{}{
		"aud":   stateAudience,
		"nonce": hex.EncodeToString(nonce),
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}, secretKey)
}

// VerifyOAuthState checks signature, expiry and audience of a state value.
func VerifyOAuthState(state, secretKey string) error {
	claims, err := ParseToken(state, secretKey)
	if err != nil {
		return fmt.Errorf("invalid oauth state: %w", err)
	}
	if !claims.VerifyAudience(stateAudience, true) {
		return errors.New("invalid oauth state: wrong audience")
	}
	return nil
}

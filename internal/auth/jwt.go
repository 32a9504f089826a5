package auth

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the claims in our JWT token
type JWTClaims struct {
	ConversationID string `json:"conversation_id"`
	Role           string `json:"role"`
	jwt.RegisteredClaims
}

// JWTSecret signs conversation tokens. Overridden from the JWT_SECRET
// environment variable at startup via LoadSecretFromEnv.
var JWTSecret = []byte("peyvand-dev-secret")

// LoadSecretFromEnv replaces the signing secret with the JWT_SECRET
// environment variable when set
func LoadSecretFromEnv() {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		JWTSecret = []byte(secret)
	}
}

// GenerateConversationToken generates a JWT token binding a chat client to
// one conversation
func GenerateConversationToken(conversationID string) (string, error) {
	claims := &JWTClaims{
		ConversationID: conversationID,
		Role:           "chat",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(JWTSecret)
}

// ValidateToken validates a JWT token and returns the claims
func ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return JWTSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrInvalidKey
}

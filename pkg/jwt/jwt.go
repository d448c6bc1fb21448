package jwt

import (
	"fmt"
	"time"

	"github.com/bidwise/bidcore/pkg/config"
	"github.com/bidwise/bidcore/pkg/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type JWTManager interface {
	GenerateToken(userID uuid.UUID, role string) (string, error)
	ValidateAccessToken(tokenString string) (*config.UserClaims, error)
}

type JwtManager struct {
	accessSecret []byte
}

func NewJwtManager() (*JwtManager, error) {
	accessSecret := utils.GetEnv("ACCESS_TOKEN_SECRET", "")
	if accessSecret == "" {
		return nil, fmt.Errorf("JWT secret must be set in environment: ACCESS_TOKEN_SECRET")
	}

	return &JwtManager{
		accessSecret: []byte(accessSecret),
	}, nil
}

// NewJwtManagerWithSecret skips the environment lookup, for tests.
func NewJwtManagerWithSecret(secret string) *JwtManager {
	return &JwtManager{accessSecret: []byte(secret)}
}

// GenerateToken creates an access token carrying the user id and role.
// Production tokens come from the identity provider; this mirrors its
// claim layout so handlers can be exercised locally.
func (jm *JwtManager) GenerateToken(userID uuid.UUID, role string) (string, error) {
	now := time.Now()

	claims := config.UserClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(config.AccessTokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jm.accessSecret)
}

// ValidateAccessToken verifies and returns the claims from an access token string.
func (jm *JwtManager) ValidateAccessToken(tokenString string) (*config.UserClaims, error) {
	claims := &config.UserClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Method.Alg())
		}
		return jm.accessSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}

	return claims, nil
}

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/autoassistgroup/helpdesk-backend/internal/core/domain"
)

// Claims defines the structured data we store in the JWT. Role and full
// name ride along so the realtime layer can derive role and user rooms
// without a database lookup per connection.
type Claims struct {
	UserID   uuid.UUID   `json:"user_id"`
	OrgID    uuid.UUID   `json:"org_id"`
	FullName string      `json:"full_name"`
	Role     domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	secretKey []byte
	ttl       time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secretKey: []byte(secret), ttl: ttl}
}

// GenerateToken creates a new JWT access token for the user
func (tm *TokenManager) GenerateToken(user *domain.User) (string, error) {
	expirationTime := time.Now().Add(tm.ttl)
	claims := &Claims{
		UserID:   user.ID,
		OrgID:    user.OrganizationID,
		FullName: user.FullName,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			Subject:   user.ID.String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secretKey)
}

// ValidateToken parses and validates the token string
func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secretKey, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

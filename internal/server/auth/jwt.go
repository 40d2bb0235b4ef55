// Package auth mints and verifies the HS256 access tokens carried in the
// Authorization header.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sketchhub/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the standard claims plus the user id and role title.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"uid"`
	Role   string `json:"role,omitempty"`
}

// Identity is what the HTTP layer learns from a valid token.
type Identity struct {
	UserID int64
	Role   string
}

func (i Identity) IsAdmin() bool { return i.Role == common.RoleAdmin }

func GenerateToken(id Identity, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID: id.UserID,
		Role:   id.Role,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies the signature and expiry. An expired token yields
// common.ErrTokenExpired, anything else wrong common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, common.ErrTokenExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID <= 0 {
		return Identity{}, common.ErrInvalidToken
	}

	return Identity{UserID: claims.UserID, Role: claims.Role}, nil
}

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/evidencevault/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the bearer token payload: the registered subject carries the user
// id, and roles are listed by name.
type Claims struct {
	jwt.RegisteredClaims
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles"`
}

// GenerateToken signs an HS256 token for the user. Only used by development
// tooling; production tokens come from the identity provider.
func GenerateToken(userID, userName string, roles []Role, secretKey []byte, validityDuration time.Duration) (string, error) {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.String())
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Name:  userName,
		Roles: names,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies tokenString and returns the caller identity. Every
// failure is reported as common.ErrUnauthorized.
func ParseToken(tokenString string, secretKey []byte) (Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, common.Wrap(common.ErrUnauthorized, err, "token expired")
		}
		return Identity{}, common.Wrap(common.ErrUnauthorized, err, "invalid token")
	}

	if !token.Valid {
		return Identity{}, common.Errorf(common.ErrUnauthorized, "invalid token")
	}

	if claims.Subject == "" {
		return Identity{}, common.Errorf(common.ErrUnauthorized, "token has no subject")
	}

	return Identity{
		UserID:   claims.Subject,
		UserName: claims.Name,
		Roles:    ParseRoles(claims.Roles),
	}, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, error) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return "", fmt.Errorf("%w: missing bearer token", common.ErrUnauthorized)
	}
	return header[len(prefix):], nil
}

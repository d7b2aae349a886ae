// internal/auth/token.go
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"challenge-hub/internal/models"
)

// Token expiration time - 24 hours
const tokenExpiration = 24 * time.Hour

// Claims represents the JWT claims issued by the platform's auth service
type Claims struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed token for the given identity. The gateway
// never issues tokens in production; this exists for the simulator and tests.
func GenerateToken(ident *models.Identity, secret string) (string, error) {
	expirationTime := time.Now().Add(tokenExpiration)

	claims := &Claims{
		UserID:    ident.UserID,
		Username:  ident.Username,
		AvatarURL: ident.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "challenge-hub",
			Subject:   ident.UserID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseIdentity validates a bearer token and maps its claims onto an explicit
// Identity value. The raw token is kept so the transport layer can forward it.
func ParseIdentity(tokenString, secret string) (*models.Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		},
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no user id")
	}

	username := claims.Username
	if username == "" {
		username = models.AnonymousAuthor
	}

	return &models.Identity{
		UserID:    claims.UserID,
		Username:  username,
		AvatarURL: claims.AvatarURL,
		Token:     tokenString,
	}, nil
}

// IdentityFromRequest extracts the caller's identity from the Authorization
// header. A missing header yields (nil, nil): the caller is anonymous, which
// is fine for reads and rejected per-mutation by the discussion actor.
func IdentityFromRequest(r *http.Request, secret string) (*models.Identity, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, nil
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, errors.New("invalid authorization format")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	return ParseIdentity(tokenString, secret)
}

package identity

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the claims the platform's own session tokens carry.
type SessionClaims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	IsActive    bool   `json:"is_active"`
	jwt.RegisteredClaims
}

// JWTAuthority validates HMAC-signed session tokens locally. Used when
// no remote identity service is configured; the token is still treated
// as opaque by everything above the Authority seam.
type JWTAuthority struct {
	secret []byte
}

func NewJWTAuthority(secret string) *JWTAuthority {
	return &JWTAuthority{secret: []byte(secret)}
}

func (a *JWTAuthority) Validate(ctx context.Context, tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		// A bad signature or expired token is a definitive rejection,
		// not a downstream failure.
		return nil, nil
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, nil
	}

	expiresAt := time.Time{}
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return &Identity{
		UserID:      claims.UserID,
		DisplayName: claims.DisplayName,
		IsActive:    claims.IsActive,
		ExpiresAt:   expiresAt,
	}, nil
}

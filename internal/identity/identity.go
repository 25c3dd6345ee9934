// Package identity validates opaque bearer tokens through an external
// authority, memoizing successful results under a one-way digest of the
// token. The raw token is never stored or logged.
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Identity describes a validated session.
type Identity struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	IsActive    bool      `json:"is_active"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Authority is the downstream validator consulted on cache miss.
// It returns (nil, nil) for tokens it does not recognize; errors are
// reserved for transport and server failures.
type Authority interface {
	Validate(ctx context.Context, token string) (*Identity, error)
}

// Cache memoizes successful validations keyed by token digest. Entries
// self-expire after the cache's fixed TTL; eviction is purely
// time-based. Implementations must swallow their own failures.
type Cache interface {
	Get(ctx context.Context, tokenHash string) (*Identity, bool)
	Set(ctx context.Context, tokenHash string, id *Identity)
}

// TokenDigest returns the hex SHA-256 of a token. This is the only form
// of the token that ever reaches the cache or the logs.
func TokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

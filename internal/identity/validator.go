package identity

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/filedock/backend/internal/apperrors"
)

const (
	maxValidateAttempts = 3
	retryBaseDelay      = 200 * time.Millisecond

	breakerThreshold = 5
	breakerCooldown  = 30 * time.Second
)

// Validator answers "who is this token" with a cache in front of the
// authority. Any ambiguity - timeout, breaker open, inactive account -
// fails closed as an authentication error.
type Validator struct {
	cache     Cache
	authority Authority

	mu           sync.Mutex
	consecFails  int
	breakerUntil time.Time
}

func NewValidator(cache Cache, authority Authority) *Validator {
	return &Validator{cache: cache, authority: authority}
}

// ValidateSession resolves a bearer token to an identity. Successful
// validations are cached for the cache's TTL; failures never are, so a
// fix on the authority side is immediately visible.
func (v *Validator) ValidateSession(ctx context.Context, token string) (*Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperrors.New(apperrors.KindAuthentication, "missing session token")
	}

	tokenHash := TokenDigest(token)
	if id, ok := v.cache.Get(ctx, tokenHash); ok {
		return id, nil
	}

	if v.breakerOpen() {
		return nil, apperrors.New(apperrors.KindAuthentication, "identity authority unavailable")
	}

	id, err := v.validateWithRetry(ctx, token)
	if err != nil {
		v.recordFailure()
		return nil, apperrors.Wrap(apperrors.KindAuthentication, "session validation failed", err)
	}
	v.recordSuccess()

	if id == nil || !id.IsActive {
		return nil, apperrors.New(apperrors.KindAuthentication, "invalid or expired session")
	}

	v.cache.Set(ctx, tokenHash, id)
	return id, nil
}

// validateWithRetry retries transient transport failures a bounded
// number of times with doubling backoff. Definitive answers (including
// "unknown token") return immediately.
func (v *Validator) validateWithRetry(ctx context.Context, token string) (*Identity, error) {
	var lastErr error
	delay := retryBaseDelay

	for attempt := 1; attempt <= maxValidateAttempts; attempt++ {
		id, err := v.authority.Validate(ctx, token)
		if err == nil {
			return id, nil
		}
		lastErr = err
		if !apperrors.IsKind(err, apperrors.KindTransientDownstream) {
			return nil, err
		}
		if attempt == maxValidateAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, lastErr
}

func (v *Validator) breakerOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return time.Now().Before(v.breakerUntil)
}

func (v *Validator) recordFailure() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.consecFails++
	if v.consecFails >= breakerThreshold {
		v.breakerUntil = time.Now().Add(breakerCooldown)
		v.consecFails = 0
		log.Printf("Identity: authority failing, short-circuiting validations for %s", breakerCooldown)
	}
}

func (v *Validator) recordSuccess() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.consecFails = 0
}

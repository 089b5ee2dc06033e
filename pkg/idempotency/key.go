// Package idempotency validates client supplied Idempotency-Key headers and
// derives the cache keys under which replayable responses are stored.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
)

const (
	MinKeyLength = 16
	MaxKeyLength = 128
	KeyPrefix    = "idempotency"

	anonymousScope = "anonymous"
)

var (
	ErrKeyTooShort = errors.New("idempotency key must be at least 16 characters")
	ErrKeyTooLong  = errors.New("idempotency key must not exceed 128 characters")
	ErrKeyInvalid  = errors.New("idempotency key contains invalid characters")

	validKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9\-_]+$`)
)

type contextKey struct{}

func Validate(key string) error {
	switch {
	case len(key) < MinKeyLength:
		return ErrKeyTooShort
	case len(key) > MaxKeyLength:
		return ErrKeyTooLong
	case !validKeyPattern.MatchString(key):
		return ErrKeyInvalid
	}

	return nil
}

// BuildCacheKey hashes the request identity. The scope keeps two callers
// that happen to pick the same key from replaying each other's responses.
func BuildCacheKey(method, path, scope, key string) string {
	if scope == "" {
		scope = anonymousScope
	}

	hash := sha256.Sum256([]byte(strings.Join([]string{method, path, scope, key}, ":")))

	return KeyPrefix + ":" + hex.EncodeToString(hash[:])
}

func WithKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, contextKey{}, key)
}

func FromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(contextKey{}).(string)

	return key, ok && key != ""
}

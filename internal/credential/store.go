// Package credential holds short-lived session artifacts: refresh-token
// identifiers and magic-link tokens.
package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a key is absent or expired.
var ErrNotFound = errors.New("credential: key not found")

// Store is a TTL key/value store. GetDel must be atomic: of two concurrent
// callers for one key, at most one sees the value.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetDel(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
}

func RefreshKey(userID uuid.UUID, jti string) string {
	return fmt.Sprintf("refresh:%s:%s", userID, jti)
}

func MagicKey(token string) string {
	return "magic:" + token
}

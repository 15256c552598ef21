package kvdb

import (
	"context"
	"errors"
	"time"

	"github.com/zeptools/fieldticket/db"
)

// Handle is the subset of key-value operations the services rely on
type Handle interface {
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, keys ...string) (int64, error)
	// Expire sets/updates expiration for a key
	Expire(ctx context.Context, key string, expiration time.Duration) (bool, error) // found & updated, err

	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error) // val, found, err
	// SetIfAbsent stores value only when key does not exist yet. Reports whether it was stored
	SetIfAbsent(ctx context.Context, key string, value any, expiration time.Duration) (bool, error)
}

type Client interface {
	db.Client[Handle]
	Handle // Methods required for Handle are also required, so, promote it
}

var ErrNotSupported = errors.New("kvdb: operation not supported")

// Package db holds what the SQL and key-value clients have in common
package db

import (
	"context"
	"log"
	"time"
)

type Client[T any] interface {
	Init() error
	Close() error
	Ping(ctx context.Context) error
	DBHandle() T // generic handle
}

// CloseClient closes c and logs the outcome under name. A nil client is skipped
func CloseClient[T any](name string, c Client[T]) error {
	if c == nil {
		return nil
	}
	if err := c.Close(); err != nil {
		log.Printf("[WARN][DB] failed to close %s: %v", name, err)
		return err
	}
	log.Printf("[INFO][DB] %s closed", name)
	return nil
}

// PingClient checks that c answers within timeout
func PingClient[T any](ctx context.Context, name string, c Client[T], timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := time.Now()
	if err := c.Ping(ctx); err != nil {
		log.Printf("[ERROR][DB] %s ping failed: %v", name, err)
		return err
	}
	log.Printf("[INFO][DB] %s ping %s", name, time.Since(start).Round(time.Millisecond))
	return nil
}

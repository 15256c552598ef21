package templates

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"
)

var (
	ErrNotFound = errors.New("template not found")
	// ErrUpstream marks failures worth one more attempt: network errors and 5xx
	ErrUpstream = errors.New("template source unavailable")
)

// Source provides pristine template documents by name
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// FetchWithRetry fetches with a timeout per attempt.
// Only transient failures are retried; a 4xx or ErrNotFound returns immediately
func FetchWithRetry(ctx context.Context, src Source, name string, timeout time.Duration, retries int) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			log.Printf("[WARN][TEMPLATE] retrying %q (attempt %d): %v", name, attempt+1, lastErr)
		}
		data, err := fetchOnce(ctx, src, name, timeout)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if ctx.Err() != nil || !IsTransient(err) {
			break
		}
	}
	return nil, fmt.Errorf("fetch template %q: %w", name, lastErr)
}

func fetchOnce(ctx context.Context, src Source, name string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return src.Fetch(ctx, name)
}

func IsTransient(err error) bool {
	if errors.Is(err, ErrUpstream) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

package throttle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)

func newStore() *BucketStore[string] {
	s := NewBucketStore[string](context.Background(), time.Minute, 10*time.Minute)
	s.SetBucketGroup("render", BucketConf{Burst: 2, Increment: 1, PeriodSec: 10})
	return s
}

func TestAllowRefill(t *testing.T) {
	s := newStore()
	assert.True(t, s.Allow("render", "1.2.3.4", t0))
	assert.True(t, s.Allow("render", "1.2.3.4", t0))
	assert.False(t, s.Allow("render", "1.2.3.4", t0.Add(9*time.Second)))
	assert.True(t, s.Allow("render", "5.6.7.8", t0), "buckets are per client")

	assert.True(t, s.Allow("render", "1.2.3.4", t0.Add(10*time.Second)))
	assert.False(t, s.Allow("render", "1.2.3.4", t0.Add(11*time.Second)))
	// refill is capped at Burst
	assert.True(t, s.Allow("render", "1.2.3.4", t0.Add(time.Hour)))
	assert.True(t, s.Allow("render", "1.2.3.4", t0.Add(time.Hour)))
	assert.False(t, s.Allow("render", "1.2.3.4", t0.Add(time.Hour)))

	assert.False(t, s.Allow("nope", "1.2.3.4", t0))
}

func TestCleanup(t *testing.T) {
	s := newStore()
	s.Allow("render", "old", t0)
	s.Allow("render", "new", t0.Add(9*time.Minute))
	assert.Equal(t, 1, s.Cleanup(t0.Add(11*time.Minute)))
	_, ok := s.GetBucket("render", "old")
	assert.False(t, ok)
	_, ok = s.GetBucket("render", "new")
	assert.True(t, ok)
}

func TestIPWrapper(t *testing.T) {
	s := newStore()
	now := t0
	h := (&IPWrapper{Store: s, GroupID: "render", Now: func() time.Time { return now }}).Wrap(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }),
	)
	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets/render", nil)
		req.RemoteAddr = "127.0.0.1:40000"
		req.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}
	assert.Equal(t, http.StatusOK, call().Code)
	assert.Equal(t, http.StatusOK, call().Code)
	now = t0.Add(3 * time.Second)
	rec := call()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "7", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "too many requests")
}

func TestServiceLifecycle(t *testing.T) {
	s := newStore()
	require.NoError(t, s.Start())
	assert.Error(t, s.Start())
	s.Stop()
	select {
	case err := <-s.Done():
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("no shutdown signal")
	}
}

package web

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, s *Service) error {
	t.Helper()
	select {
	case err := <-s.Done():
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("web service did not finish")
		return nil
	}
}

func TestServiceLifecycle(t *testing.T) {
	s := NewService(context.Background(), "127.0.0.1:0", http.NotFoundHandler())
	assert.Equal(t, "WebService", s.Name())
	require.NoError(t, s.Start())
	assert.Error(t, s.Start())

	s.Stop()
	assert.NoError(t, waitDone(t, s))
}

func TestServiceStopsWithParent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewService(ctx, "127.0.0.1:0", http.NotFoundHandler())
	require.NoError(t, s.Start())
	cancel()
	assert.NoError(t, waitDone(t, s))
}

func TestServiceListenFailure(t *testing.T) {
	s := NewService(context.Background(), "256.0.0.1:bad", http.NotFoundHandler())
	require.NoError(t, s.Start())
	assert.Error(t, waitDone(t, s))
	s.Stop()
}

package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/zeptools/fieldticket/svc"
)

// Service runs the HTTP API as a svc.Service
type Service struct {
	Ctx             context.Context    // Service Context
	cancel          context.CancelFunc // Service Context CancelFunc
	state           int                // internal service state
	done            chan error         // Shutdown Error Channel
	Server          *http.Server
	ShutdownTimeout time.Duration
}

var _ svc.Service = (*Service)(nil)

func NewService(parentCtx context.Context, addr string, router http.Handler) *Service {
	svcCtx, svcCancel := context.WithCancel(parentCtx)
	return &Service{
		Ctx:    svcCtx,
		cancel: svcCancel,
		state:  svc.StateREADY,
		done:   make(chan error, 1),
		Server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ShutdownTimeout: 15 * time.Second,
	}
}

func (s *Service) Name() string {
	return "WebService"
}

func (s *Service) Start() error {
	if s.state != svc.StateREADY {
		return fmt.Errorf("cannot start. not ready")
	}
	s.state = svc.StateRUNNING
	go func() {
		log.Printf("[INFO][WEB] listening on %s ...", s.Server.Addr)
		if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.done <- err
			return
		}
		s.done <- nil
	}()
	go s.waitShutdown()
	return nil
}

// waitShutdown stops accepting new requests once the service context is done.
// Requests already being processed get ShutdownTimeout to finish
func (s *Service) waitShutdown() {
	<-s.Ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()
	if err := s.Server.Shutdown(ctx); err != nil {
		log.Printf("[ERROR][WEB] server shutdown failed: %v", err)
	}
	log.Println("[INFO][WEB] server shutdown complete")
}

func (s *Service) Stop() {
	if s.state != svc.StateRUNNING {
		log.Println("[ERROR][WEB] cannot stop. not running")
		return
	}
	s.cancel()
	s.state = svc.StateSTOPPED
}

func (s *Service) Done() <-chan error {
	return s.done
}

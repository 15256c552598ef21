package uds

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sort"
	"strings"

	"github.com/zeptools/fieldticket/svc"
)

// Service is the operator socket: one command per line, answered in plain text
type Service struct {
	Ctx        context.Context    // Service Context
	cancel     context.CancelFunc // Service Context CancelFunc
	state      int                // internal service state
	done       chan error         // Shutdown Error Channel
	SocketPath string
	CmdMap     map[string]CmdHnd
	listener   net.Listener
}

var _ svc.Service = (*Service)(nil)

func (s *Service) Name() string {
	return "UDSService"
}

func NewService(parentCtx context.Context, sockPath string, cmdMap map[string]CmdHnd) *Service {
	svcCtx, svcCancel := context.WithCancel(parentCtx)
	return &Service{
		Ctx:        svcCtx,
		cancel:     svcCancel,
		state:      svc.StateREADY,
		done:       make(chan error, 1),
		SocketPath: sockPath,
		CmdMap:     cmdMap,
	}
}

// Start the unix socket service in the background.
// Bootstrapping errors are returned immediately.
// Runtime errors are pushed into Done().
func (s *Service) Start() error {
	if s.state != svc.StateREADY {
		return fmt.Errorf("cannot start. not ready")
	}
	// clean up old socket if any
	_ = os.Remove(s.SocketPath)
	listener, err := net.Listen("unix", s.SocketPath)
	if err != nil {
		return fmt.Errorf("listen(%q) failed: %v", s.SocketPath, err)
	}
	s.listener = listener
	// tighten permissions immediately after binding
	if err = os.Chmod(s.SocketPath, 0600); err != nil {
		_ = s.listener.Close()
		_ = os.Remove(s.SocketPath)
		return fmt.Errorf("chmod(%q) failed: %w", s.SocketPath, err)
	}
	s.state = svc.StateRUNNING
	go s.run()
	return nil
}

func (s *Service) Stop() {
	if s.state != svc.StateRUNNING {
		log.Println("[ERROR][UDS] cannot stop. not running")
		return
	}
	s.cancel()
	s.state = svc.StateSTOPPED
	log.Println("[INFO][UDS] service stopped")
}

func (s *Service) Done() <-chan error {
	return s.done
}

func (s *Service) run() {
	go func() {
		<-s.Ctx.Done()
		log.Printf("[INFO][UDS] stopping")
		if err := s.listener.Close(); err != nil {
			log.Printf("[ERROR][UDS] cannot close listener: %v", err)
		}
		// To avoid TOCTOU race, just try removing before checking if it exists.
		if err := os.Remove(s.SocketPath); err != nil && !os.IsNotExist(err) {
			log.Printf("[ERROR][UDS] cannot remove socket file: %v", err)
		}
	}()

	log.Printf("[INFO][UDS] listening on %q ...", s.SocketPath)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				log.Printf("[INFO][UDS] socket closed")
				s.done <- nil // also a clean shutdown
				return
			}
			log.Println("[ERROR][UDS] accept failed:", err)
			continue
		}
		go s.handleConn(conn)
	}
}

func (s *Service) handleConn(c net.Conn) {
	go func() {
		<-s.Ctx.Done()
		_ = c.Close()
	}()
	defer func() {
		if err := c.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Printf("[ERROR][UDS] closing connection: %v", err)
		}
	}()

	reader := bufio.NewReader(io.LimitReader(c, 1<<20)) // 1 MB max per connection
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("[ERROR][UDS] read error: %v", err)
			}
			return
		}
		if !s.Dispatch(s.Ctx, line, c) {
			return
		}
	}
}

// Dispatch runs one command line and reports whether the session continues.
// A known command ends the session, so that scripts can pipe one line in
func (s *Service) Dispatch(ctx context.Context, line string, w io.Writer) bool {
	args := strings.Fields(line)
	if len(args) == 0 {
		return true
	}
	switch args[0] {
	case "quit":
		return false
	case "help":
		s.help(w)
		return true
	}
	cmdHnd, ok := s.CmdMap[args[0]]
	if !ok {
		_, _ = fmt.Fprintf(w, "unknown command: %s\n", args[0])
		return true // give another chance
	}
	log.Printf("[INFO][UDS] requested command `%s`", strings.Join(args, " "))
	if err := s.safeRun(ctx, cmdHnd, args[1:], w); err != nil {
		_, _ = fmt.Fprintf(w, "error: %v\n", err)
		if cmdHnd.Usage != "" {
			_, _ = fmt.Fprintf(w, "usage: %s\n", cmdHnd.Usage)
		}
	}
	return false
}

func (s *Service) safeRun(ctx context.Context, cmdHnd CmdHnd, args []string, w io.Writer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PANIC][UDS] %v", r)
			err = fmt.Errorf("command panicked: %v", r)
		}
	}()
	return cmdHnd.Fn(ctx, args, w)
}

func (s *Service) help(w io.Writer) {
	keys := make([]string, 0, len(s.CmdMap))
	for k := range s.CmdMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	_, _ = fmt.Fprintln(w)
	for _, k := range keys {
		_, _ = fmt.Fprintln(w, s.CmdMap[k].helpLine(k))
	}
	_, _ = fmt.Fprintf(w, "%-24s %s\n", "help", "list commands")
	_, _ = fmt.Fprintf(w, "%-24s %s\n", "quit", "close the session")
	_, _ = fmt.Fprintln(w)
}

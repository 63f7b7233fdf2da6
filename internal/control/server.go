package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"
)

const connTimeout = 5 * time.Second

// ErrAlreadyRunning is returned by Listen when another monitor answers on
// the socket.
var ErrAlreadyRunning = errors.New("a monitor is already running")

// Handler answers one request.
type Handler func(Request) Response

// Server accepts control connections on a unix socket.
type Server struct {
	path    string
	ln      net.Listener
	handler Handler
	logger  *slog.Logger
}

// Listen binds the socket at path. A leftover socket from a crashed run is
// removed; a live one yields ErrAlreadyRunning.
func Listen(path string, handler Handler, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if conn, err := net.DialTimeout("unix", path, time.Second); err == nil {
		_ = conn.Close()
		return nil, ErrAlreadyRunning
	}
	_ = os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o700); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("chmod %s: %w", path, err)
	}
	return &Server{path: path, ln: ln, handler: handler, logger: logger}, nil
}

// Serve handles connections until ctx is cancelled, then closes the
// listener and removes the socket.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.ln.Close()
	}()
	defer os.Remove(s.path)

	s.logger.Debug("control socket listening", "path", s.path)
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept control connection: %w", err)
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(connTimeout))

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		_ = json.NewEncoder(conn).Encode(Response{Error: "invalid request: " + err.Error()})
		return
	}
	resp := s.handler(req)
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		s.logger.Debug("write control response", "error", err)
	}
}

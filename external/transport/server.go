package transport

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ankitluthra/GyanEcho/internal/transport"
	"github.com/gorilla/websocket"
)

const (
	HealthPath = "/healthz"

	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// ConnHandler owns an accepted connection until Serve returns.
type ConnHandler interface {
	Serve(ctx context.Context, conn transport.Conn)
}

type Server struct {
	addr     string
	path     string
	handler  ConnHandler
	upgrader websocket.Upgrader
	conns    sync.WaitGroup
}

func NewServer(addr, path string, handler ConnHandler) *Server {
	return &Server{
		addr:    addr,
		path:    path,
		handler: handler,
		upgrader: websocket.Upgrader{
			// Browser and CLI clients connect from anywhere.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc(s.path, s.handleWebSocket)
	return mux
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	s.conns.Add(1)
	defer s.conns.Done()

	conn := newConn(ws)
	defer func() {
		_ = conn.Close(transport.CloseNormalClosure, "")
	}()
	s.handler.Serve(r.Context(), conn)
}

// ListenAndServe blocks until ctx is done, then shuts the HTTP server down
// and waits for open connections to drain.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("relay server listening", "addr", ln.Addr().String(), "path", s.path)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if serveErr := <-errCh; serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		err = errors.Join(err, serveErr)
	}

	drained := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-shutdownCtx.Done():
		slog.Warn("shutdown timed out waiting for connections")
	}
	return err
}

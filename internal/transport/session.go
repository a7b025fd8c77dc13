package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type SessionConfig struct {
	URL                  string
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
}

// Session is the client side of the transport. It may span several physical
// connections: any close other than a normal closure triggers a reconnect
// after a fixed delay, up to MaxReconnectAttempts consecutive attempts.
type Session struct {
	cfg       SessionConfig
	dialer    Dialer
	onMessage func([]byte)

	mu         sync.Mutex
	state      State
	conn       Conn
	whenOpen   func(Conn)
	reconnects int
	started    bool
	closing    bool
	cancel     context.CancelFunc
	done       chan struct{}

	writeMu sync.Mutex
}

func NewSession(cfg SessionConfig, dialer Dialer, onMessage func([]byte)) *Session {
	if onMessage == nil {
		onMessage = func([]byte) {}
	}
	return &Session{
		cfg:       cfg,
		dialer:    dialer,
		onMessage: onMessage,
		state:     StateClosed,
		done:      make(chan struct{}),
	}
}

func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("transport session already started")
	}
	if s.closing {
		s.mu.Unlock()
		return ErrClosed
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.state = StateConnecting
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) ReconnectAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnects
}

// Done is closed once the session has stopped for good.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Send writes payload when the session is open. While connecting, the first
// send is deferred until the connection opens; further sends are rejected.
func (s *Session) Send(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	switch s.state {
	case StateOpen:
		conn := s.conn
		s.mu.Unlock()
		return s.write(ctx, conn, payload)
	case StateConnecting:
		if s.whenOpen != nil {
			s.mu.Unlock()
			return ErrNotConnected
		}
		s.whenOpen = func(conn Conn) {
			if err := s.write(context.Background(), conn, payload); err != nil {
				slog.Warn("deferred send failed", "error", err, "bytes", len(payload))
			}
		}
		s.mu.Unlock()
		return nil
	default:
		s.mu.Unlock()
		return ErrNotConnected
	}
}

// WhenOpen runs fn once the session is open. It shares the single deferred
// slot with Send.
func (s *Session) WhenOpen(fn func()) error {
	s.mu.Lock()
	switch s.state {
	case StateOpen:
		s.mu.Unlock()
		fn()
		return nil
	case StateConnecting:
		if s.whenOpen != nil {
			s.mu.Unlock()
			return ErrNotConnected
		}
		s.whenOpen = func(Conn) { fn() }
		s.mu.Unlock()
		return nil
	default:
		s.mu.Unlock()
		return ErrNotConnected
	}
}

// Close performs an intentional normal closure; no reconnect follows.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	conn := s.conn
	cancel := s.cancel
	started := s.started
	s.mu.Unlock()

	var err error
	if conn != nil {
		s.writeMu.Lock()
		err = conn.Close(CloseNormalClosure, "client closing")
		s.writeMu.Unlock()
	}
	if cancel != nil {
		cancel()
	}
	if !started {
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
		close(s.done)
	}
	return err
}

func (s *Session) write(ctx context.Context, conn Conn, payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.WriteMessage(ctx, payload); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer s.setState(StateClosed)

	for {
		slog.Info("transport connecting", "url", s.cfg.URL, "attempt", s.ReconnectAttempts())
		conn, err := s.dialer.Dial(ctx, s.cfg.URL)
		if err == nil {
			s.opened(conn)
			err = s.readLoop(ctx, conn)
			s.detach()
		} else {
			s.dropPending()
			slog.Warn("transport dial failed", "url", s.cfg.URL, "error", err)
		}

		if s.isClosing() || ctx.Err() != nil {
			slog.Info("transport closed intentionally")
			return
		}
		if IsNormalClosure(err) {
			slog.Info("transport closed by peer with normal closure")
			return
		}

		s.mu.Lock()
		if s.reconnects >= s.cfg.MaxReconnectAttempts {
			attempts := s.reconnects
			s.mu.Unlock()
			slog.Error("transport reconnect attempts exhausted", "attempts", attempts)
			return
		}
		s.reconnects++
		attempt := s.reconnects
		s.state = StateClosed
		s.mu.Unlock()

		code, _ := CloseCode(err)
		slog.Warn("transport disconnected; reconnecting", "code", code, "attempt", attempt, "max_attempts", s.cfg.MaxReconnectAttempts, "delay", s.cfg.ReconnectDelay)

		timer := time.NewTimer(s.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if s.isClosing() {
			return
		}
		s.setState(StateConnecting)
	}
}

func (s *Session) opened(conn Conn) {
	s.mu.Lock()
	s.state = StateOpen
	s.conn = conn
	s.reconnects = 0
	fire := s.whenOpen
	s.whenOpen = nil
	closing := s.closing
	s.mu.Unlock()

	if closing {
		_ = conn.Close(CloseNormalClosure, "client closing")
		return
	}
	slog.Info("transport connected", "url", s.cfg.URL)
	if fire != nil {
		fire(conn)
	}
}

func (s *Session) readLoop(ctx context.Context, conn Conn) error {
	stop := context.AfterFunc(ctx, func() {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		_ = conn.Close(CloseNormalClosure, "session stopped")
	})
	defer stop()

	for {
		data, err := conn.ReadMessage(ctx)
		if err != nil {
			return err
		}
		s.onMessage(data)
	}
}

func (s *Session) detach() {
	s.mu.Lock()
	s.conn = nil
	s.state = StateClosed
	s.mu.Unlock()
}

func (s *Session) dropPending() {
	s.mu.Lock()
	dropped := s.whenOpen != nil
	s.whenOpen = nil
	s.mu.Unlock()
	if dropped {
		slog.Warn("deferred send dropped; connection attempt failed")
	}
}

func (s *Session) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

package transport

import (
	"context"
	"errors"
	"fmt"
)

const (
	CloseNormalClosure = 1000
	CloseGoingAway     = 1001
	CloseAbnormal      = 1006
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrClosed       = errors.New("transport closed")
)

// Conn is one physical, text-framed message connection.
type Conn interface {
	ReadMessage(ctx context.Context) ([]byte, error)
	WriteMessage(ctx context.Context, data []byte) error
	Close(code int, reason string) error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// CloseError reports the close code received from the peer.
type CloseError struct {
	Code int
	Text string
}

func (e *CloseError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("connection closed with code %d", e.Code)
	}
	return fmt.Sprintf("connection closed with code %d: %s", e.Code, e.Text)
}

func (e *CloseError) Is(target error) bool {
	return target == ErrClosed
}

func CloseCode(err error) (int, bool) {
	var ce *CloseError
	if errors.As(err, &ce) {
		return ce.Code, true
	}
	return 0, false
}

func IsNormalClosure(err error) bool {
	code, ok := CloseCode(err)
	return ok && code == CloseNormalClosure
}

package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/ankitluthra/GyanEcho/internal/transport"
	"github.com/gorilla/websocket"
)

const closeWriteTimeout = time.Second

// wsConn adapts a gorilla websocket.Conn to transport.Conn. Reads must come
// from a single goroutine; writes and Close may be called concurrently.
type wsConn struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

func (w *wsConn) ReadMessage(ctx context.Context) ([]byte, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = w.conn.SetReadDeadline(dl)
		defer w.conn.SetReadDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		_ = w.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		typ, data, err := w.conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, toCloseError(err)
		}
		if typ == websocket.TextMessage || typ == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (w *wsConn) WriteMessage(ctx context.Context, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if dl, ok := ctx.Deadline(); ok {
		_ = w.conn.SetWriteDeadline(dl)
		defer w.conn.SetWriteDeadline(time.Time{})
	}
	if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		if errors.Is(err, websocket.ErrCloseSent) || errors.Is(err, net.ErrClosed) {
			return transport.ErrClosed
		}
		return err
	}
	return nil
}

// Close sends a close frame with code and reason and releases the socket.
// Calls after the first return the first result.
func (w *wsConn) Close(code int, reason string) error {
	w.closeOnce.Do(func() {
		w.writeMu.Lock()
		msg := websocket.FormatCloseMessage(code, reason)
		_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
		w.writeMu.Unlock()
		if err := w.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			w.closeErr = err
		}
	})
	return w.closeErr
}

func toCloseError(err error) error {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return &transport.CloseError{Code: ce.Code, Text: ce.Text}
	}
	// Anything else means the socket went away without a close frame.
	return errors.Join(&transport.CloseError{Code: transport.CloseAbnormal}, err)
}

package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/ankitluthra/GyanEcho/internal/transport"
	"github.com/gorilla/websocket"
)

const defaultHandshakeTimeout = 10 * time.Second

type Dialer struct {
	dialer *websocket.Dialer
}

func NewDialer() *Dialer {
	return &Dialer{dialer: &websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: defaultHandshakeTimeout,
	}}
}

func (d *Dialer) Dial(ctx context.Context, url string) (transport.Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return newConn(conn), nil
}

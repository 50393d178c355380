// Package websocket adapts coder/websocket connections to the client registry.
//
// The server only ever writes to a live-reload socket. The read side is
// handed to CloseRead so that control frames are processed and a peer close
// is noticed promptly.
package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	// DefaultPingInterval is how often idle connections are pinged.
	DefaultPingInterval = 30 * time.Second

	// Time allowed for a ping round trip.
	pingWait = 10 * time.Second
)

// Conn is a write-only push connection.
type Conn struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	closeErr  error
}

// Accept upgrades the request. originPatterns lists additional hosts allowed
// to connect cross-origin; same-origin requests are always accepted.
func Accept(w http.ResponseWriter, r *http.Request, originPatterns []string) (*Conn, error) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  originPatterns,
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		return nil, err
	}

	return &Conn{conn: conn}, nil
}

// Send writes one text message. coder/websocket allows concurrent writers.
func (c *Conn) Send(ctx context.Context, message []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, message)
}

// Close sends a normal closure. Repeated calls return the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close(websocket.StatusNormalClosure, "")
	})
	return c.closeErr
}

// Run blocks until the peer disconnects or ctx is done, pinging the peer every
// pingInterval. A failed ping ends the connection.
func (c *Conn) Run(ctx context.Context, pingInterval time.Duration) {
	if pingInterval <= 0 {
		pingInterval = DefaultPingInterval
	}

	ctx = c.conn.CloseRead(ctx)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, pingWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

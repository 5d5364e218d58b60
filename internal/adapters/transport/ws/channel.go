// Package ws adapts a websocket connection into a bus delivery channel.
package ws

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Default write deadline when the caller's context has none.
const defaultWriteTimeout = 5 * time.Second

// Channel implements bus.Channel over one websocket connection. Writes are
// serialized with a mutex; gorilla/websocket allows only one concurrent
// writer.
type Channel struct {
	id   string
	conn *websocket.Conn

	mu        sync.Mutex
	closeOnce sync.Once
	onClose   func()
}

// Option applies a configuration option to the Channel.
type Option func(*Channel)

// WithOnClose registers a callback fired once when the channel is closed,
// used to unsubscribe the registration.
func WithOnClose(fn func()) Option {
	return func(c *Channel) {
		c.onClose = fn
	}
}

// NewChannel wraps an upgraded websocket connection.
func NewChannel(conn *websocket.Conn, opts ...Option) *Channel {
	c := &Channel{
		id:   uuid.NewString(),
		conn: conn,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID identifies this channel registration.
func (c *Channel) ID() string { return c.id }

// Send writes one serialized event as a text message. A write failure marks
// the channel closed.
func (c *Channel) Send(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(defaultWriteTimeout)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	_ = c.conn.SetWriteDeadline(deadline)

	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.close()
		return err
	}
	return nil
}

// Close tears the connection down and fires the close callback once.
func (c *Channel) Close() error {
	c.close()
	return nil
}

func (c *Channel) close() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
		if c.onClose != nil {
			c.onClose()
		}
	})
}

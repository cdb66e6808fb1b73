// Package signal is the WebSocket channel to the matchmaking server.
package signal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/Roulette/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

type Options struct {
	PingPeriod   time.Duration
	ReadLimit    int64
	WriteTimeout time.Duration
	QueueSize    int
}

func (o Options) withDefaults() Options {
	if o.PingPeriod <= 0 {
		o.PingPeriod = 25 * time.Second
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 1 << 20
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	return o
}

// Client implements core.SignalChannel over one WebSocket.
type Client struct {
	conn *websocket.Conn
	send chan core.Frame
	opts Options
	done chan struct{}
	once sync.Once

	mu      sync.RWMutex
	closed  bool
	started bool
}

var _ core.SignalChannel = (*Client)(nil)

func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	opts = opts.withDefaults()
	log.Info().Str("module", "signal").Str("url", url).Msg("connected")
	return &Client{
		conn: conn,
		send: make(chan core.Frame, opts.QueueSize),
		opts: opts,
		done: make(chan struct{}),
	}, nil
}

// Start runs the pumps. handler gets every decoded inbound signal; onClose
// is called once when the connection ends for any reason other than Close.
// Cancelling ctx closes the client the same way Close does.
func (c *Client) Start(ctx context.Context, handler func(core.Signal), onClose func(error)) {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()

	go c.writePump()
	go c.readPump(handler, onClose)
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()
}

func (c *Client) Send(sig core.Signal) error {
	frame, err := Encode(sig)
	if err != nil {
		return err
	}
	return c.TrySend(frame)
}

func (c *Client) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

// Close stops accepting frames. Frames already queued are still written,
// followed by a close frame, before the socket is closed. Done reports
// when that has happened.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	started := c.started
	c.mu.Unlock()

	if !started {
		c.shutdown()
	}
	log.Info().Str("module", "signal").Int("queued", len(c.send)).Msg("closing")
}

// Done is closed once the socket is closed.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) shutdown() {
	c.once.Do(func() {
		_ = c.conn.Close()
		close(c.done)
	})
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

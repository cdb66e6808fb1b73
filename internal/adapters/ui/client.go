package ui

import (
	"context"
	"errors"
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

// Client is one UI event socket.
type Client struct {
	ID   string
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newClient(id string, conn *websocket.Conn, queue int) *Client {
	return &Client{ID: id, conn: conn, send: make(chan core.Frame, queue)}
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

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) writePump(ctx context.Context, opts Options) {
	ticker := time.NewTicker(opts.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(opts.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "ui").Str("client", c.ID).Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "ui").Str("client", c.ID).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(opts.WriteTimeout)); err != nil {
				return
			}
		}
	}
}

// readPump only drains control frames; the UI sends commands over HTTP.
func (c *Client) readPump(opts Options, onExit func()) {
	defer onExit()
	pongWait := 2 * opts.PingPeriod
	c.conn.SetReadLimit(opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			log.Debug().Err(err).Str("module", "ui").Str("client", c.ID).Msg("readPump closing")
			return
		}
	}
}

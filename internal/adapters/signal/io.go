package signal

import (
	"time"

	"github.com/dkeye/Roulette/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// writePump owns every write on the socket. It exits when the send queue
// is closed and drained, or on the first write error.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				deadline := time.Now().Add(c.opts.WriteTimeout)
				if err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
					log.Debug().Err(err).Str("module", "signal").Msg("writePump close frame")
				}
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(c.opts.WriteTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		}
	}
}

func (c *Client) readPump(handler func(core.Signal), onClose func(error)) {
	var readErr error
	defer func() {
		lost := !c.isClosed()
		c.Close()
		if lost && onClose != nil {
			onClose(readErr)
		}
	}()

	pongWait := 2 * c.opts.PingPeriod
	c.conn.SetReadLimit(c.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !c.isClosed() {
				log.Error().Err(err).Str("module", "signal").Msg("readPump read error")
			}
			readErr = err
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		sig, err := Decode(data)
		if err != nil {
			log.Warn().Err(err).Str("module", "signal").Msg("bad frame")
			continue
		}
		handler(sig)
	}
}

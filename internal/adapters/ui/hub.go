// Package ui pushes lobby events to local UI sockets.
package ui

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/Roulette/internal/core"
	"github.com/dkeye/Roulette/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type Options struct {
	AllowedOrigins []string
	PingPeriod     time.Duration
	ReadLimit      int64
	WriteTimeout   time.Duration
	QueueSize      int
}

func (o Options) withDefaults() Options {
	if o.PingPeriod <= 0 {
		o.PingPeriod = 25 * time.Second
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 4096
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 32
	}
	return o
}

// Event is the frame pushed to UI sockets.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type stateData struct {
	State  domain.LobbyState `json:"state"`
	RoomID domain.RoomID     `json:"roomId,omitempty"`
}

type streamData struct {
	Tracks []core.TrackInfo `json:"tracks"`
}

// Hub fans observer events out to every UI socket. It implements
// core.Observer and never blocks the caller.
type Hub struct {
	opts     Options
	policy   Policy
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

var _ core.Observer = (*Hub)(nil)

func NewHub(policy Policy, opts Options) *Hub {
	if policy == nil {
		policy = SimplePolicy{}
	}
	opts = opts.withDefaults()
	h := &Hub{opts: opts, policy: policy, clients: make(map[*Client]struct{})}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(h.opts.AllowedOrigins, origin)
}

// Serve upgrades the request and streams events until the socket or ctx ends.
func (h *Hub) Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, id string) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ui").Msg("ws upgrade")
		return
	}
	c := newClient(id, ws, h.opts.QueueSize)
	h.add(c)
	log.Info().Str("module", "ui").Str("client", id).Msg("ui connected")

	ctx, cancel := context.WithCancel(ctx)
	go c.writePump(ctx, h.opts)
	go c.readPump(h.opts, func() {
		cancel()
		h.remove(c)
	})
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.Close()
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(ev Event) {
	frame, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "ui").Str("type", ev.Type).Msg("marshal event")
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.TrySend(frame); err == nil || err == ErrClosed {
			continue
		}
		switch h.policy.OnBackPressure(c) {
		case KickClient:
			log.Warn().Str("module", "ui").Str("client", c.ID).Msg("slow ui client kicked")
			h.remove(c)
		case DropFrame, NoAction:
		}
	}
}

func (h *Hub) StateChanged(state domain.LobbyState, room domain.RoomID) {
	h.broadcast(Event{Type: "state", Data: stateData{State: state, RoomID: room}})
}

func (h *Hub) Notice(n core.Notice) {
	h.broadcast(Event{Type: "notice", Data: n})
}

func (h *Hub) ChatAppended(msg domain.ChatMessage) {
	h.broadcast(Event{Type: "chat", Data: msg})
}

func (h *Hub) ChatCleared() {
	h.broadcast(Event{Type: "chat_cleared"})
}

func (h *Hub) RemoteStreamChanged(tracks []core.TrackInfo) {
	if tracks == nil {
		tracks = []core.TrackInfo{}
	}
	h.broadcast(Event{Type: "remote_stream", Data: streamData{Tracks: tracks}})
}

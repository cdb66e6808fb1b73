package ui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Roulette/internal/core"
	"github.com/dkeye/Roulette/internal/domain"
	"github.com/gorilla/websocket"
)

func serveHub(t *testing.T, h *Hub) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Serve(context.Background(), w, r, "test")
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func connect(t *testing.T, h *Hub, url string) *websocket.Conn {
	t.Helper()
	before := h.Clients()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() <= before {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := ws.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return ev.Type, ev.Data
}

func TestHubPushesEvents(t *testing.T) {
	h := NewHub(nil, Options{})
	ws := connect(t, h, serveHub(t, h))

	h.StateChanged(domain.StateConnected, "r1")
	typ, data := readEvent(t, ws)
	if typ != "state" || string(data) != `{"state":"connected","roomId":"r1"}` {
		t.Fatalf("event = %s %s", typ, data)
	}

	h.Notice(core.Notice{Level: core.NoticeInfo, Message: "hi"})
	typ, data = readEvent(t, ws)
	if typ != "notice" || !strings.Contains(string(data), `"message":"hi"`) {
		t.Fatalf("event = %s %s", typ, data)
	}

	h.ChatAppended(domain.ChatMessage{ID: "1", Text: "yo", Author: domain.AuthorPeer})
	typ, data = readEvent(t, ws)
	if typ != "chat" || !strings.Contains(string(data), `"author":"peer"`) {
		t.Fatalf("event = %s %s", typ, data)
	}

	h.ChatCleared()
	if typ, _ = readEvent(t, ws); typ != "chat_cleared" {
		t.Fatalf("event = %s, want chat_cleared", typ)
	}

	h.RemoteStreamChanged(nil)
	typ, data = readEvent(t, ws)
	if typ != "remote_stream" || string(data) != `{"tracks":[]}` {
		t.Fatalf("event = %s %s", typ, data)
	}
}

func TestHubRemovesClosedClient(t *testing.T) {
	h := NewHub(nil, Options{})
	ws := connect(t, h, serveHub(t, h))
	_ = ws.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("closed client still registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type countingPolicy struct {
	action BackpressureAction
	calls  int
}

func (p *countingPolicy) OnBackPressure(*Client) BackpressureAction {
	p.calls++
	return p.action
}

func TestHubBackpressurePolicy(t *testing.T) {
	kick := &countingPolicy{action: KickClient}
	h := NewHub(kick, Options{})
	slow := newClient("slow", nil, 1)
	h.add(slow)

	h.ChatCleared()
	h.ChatCleared()
	if kick.calls != 1 {
		t.Fatalf("policy calls = %d, want 1", kick.calls)
	}
	if h.Clients() != 0 {
		t.Fatal("kicked client still registered")
	}
	if err := slow.TrySend(core.Frame("x")); err != ErrClosed {
		t.Fatalf("TrySend after kick = %v, want ErrClosed", err)
	}

	drop := &countingPolicy{action: DropFrame}
	h = NewHub(drop, Options{})
	lagging := newClient("lagging", nil, 1)
	h.add(lagging)
	h.ChatCleared()
	h.ChatCleared()
	h.ChatCleared()
	if drop.calls != 2 || h.Clients() != 1 {
		t.Fatalf("calls, clients = %d, %d, want 2, 1", drop.calls, h.Clients())
	}
}

func TestCheckOrigin(t *testing.T) {
	h := NewHub(nil, Options{AllowedOrigins: []string{"http://localhost:5173"}})
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	r.Header.Set("Origin", "http://localhost:5173")
	if !h.checkOrigin(r) {
		t.Fatal("allowed origin rejected")
	}
	r.Header.Set("Origin", "http://evil.example")
	if h.checkOrigin(r) {
		t.Fatal("foreign origin accepted")
	}
}

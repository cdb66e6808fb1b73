package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dkeye/Roulette/internal/adapters/ui"
	"github.com/dkeye/Roulette/internal/app/chat"
	"github.com/dkeye/Roulette/internal/app/lobby"
	"github.com/dkeye/Roulette/internal/config"
	"github.com/dkeye/Roulette/internal/core"
	"github.com/dkeye/Roulette/internal/domain"
)

type fakeController struct {
	snap    core.Snapshot
	chatErr error
	cmdErr  error
	texts   []string
	calls   []string
}

func (f *fakeController) Snapshot(context.Context) (core.Snapshot, error) { return f.snap, f.cmdErr }

func (f *fakeController) SendChat(_ context.Context, text string) (domain.ChatMessage, error) {
	f.texts = append(f.texts, text)
	if f.chatErr != nil {
		return domain.ChatMessage{}, f.chatErr
	}
	return domain.ChatMessage{ID: "m1", Text: text, Author: domain.AuthorSelf}, nil
}

func (f *fakeController) Skip(context.Context) error   { f.calls = append(f.calls, "skip"); return f.cmdErr }
func (f *fakeController) Report(context.Context) error { f.calls = append(f.calls, "report"); return f.cmdErr }
func (f *fakeController) Leave(context.Context) error  { f.calls = append(f.calls, "leave"); return f.cmdErr }

func (f *fakeController) SetMuted(_ context.Context, kind string, muted bool) error {
	f.calls = append(f.calls, fmt.Sprintf("mute %s %t", kind, muted))
	return f.cmdErr
}

func newRouter(ctl Controller) http.Handler {
	cfg := &config.Config{Mode: "release", Secret: "test-secret"}
	id := domain.Identity{Email: "me@example.com", DisplayName: "Me"}
	return SetupRouter(context.Background(), cfg, id, ctl, ui.NewHub(nil, ui.Options{}))
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMe(t *testing.T) {
	rec := do(newRouter(&fakeController{}), http.MethodGet, "/api/me", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["email"] != "me@example.com" || body["name"] != "Me" || body["clientToken"] == "" {
		t.Fatalf("body = %v", body)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Fatal("no session cookie set")
	}
}

func TestState(t *testing.T) {
	ctl := &fakeController{snap: core.Snapshot{State: domain.StateConnected, RoomID: "r1", Role: domain.RoleAnswerer}}
	rec := do(newRouter(ctl), http.MethodGet, "/api/state", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	want := `{"state":"connected","roomId":"r1","role":"answerer","chat":[],"remoteTracks":[],"keyframeRequests":0}`
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Fatalf("body = %s, want %s", got, want)
	}
}

func TestChat(t *testing.T) {
	ctl := &fakeController{}
	rec := do(newRouter(ctl), http.MethodPost, "/api/chat", `{"text":"hello"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if len(ctl.texts) != 1 || ctl.texts[0] != "hello" {
		t.Fatalf("texts = %v", ctl.texts)
	}

	if rec := do(newRouter(ctl), http.MethodPost, "/api/chat", `not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad body status = %d, want 400", rec.Code)
	}
}

func TestChatErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{chat.ErrEmptyMessage, http.StatusBadRequest},
		{lobby.ErrNoActiveRoom, http.StatusConflict},
		{chat.ErrRateLimited, http.StatusTooManyRequests},
		{lobby.ErrLeft, http.StatusGone},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := do(newRouter(&fakeController{chatErr: tt.err}), http.MethodPost, "/api/chat", `{"text":"x"}`)
		if rec.Code != tt.want {
			t.Errorf("%v: status = %d, want %d", tt.err, rec.Code, tt.want)
		}
	}
}

func TestCommands(t *testing.T) {
	ctl := &fakeController{}
	h := newRouter(ctl)
	for _, path := range []string{"/api/skip", "/api/report", "/api/leave"} {
		if rec := do(h, http.MethodPost, path, ""); rec.Code != http.StatusNoContent {
			t.Fatalf("%s status = %d, want 204", path, rec.Code)
		}
	}
	if strings.Join(ctl.calls, ",") != "skip,report,leave" {
		t.Fatalf("calls = %v", ctl.calls)
	}
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{lobby.ErrNoActiveRoom, http.StatusConflict},
		{lobby.ErrNotConnected, http.StatusConflict},
		{lobby.ErrLeft, http.StatusGone},
	}
	for _, tt := range tests {
		rec := do(newRouter(&fakeController{cmdErr: tt.err}), http.MethodPost, "/api/skip", "")
		if rec.Code != tt.want {
			t.Errorf("%v: status = %d, want %d", tt.err, rec.Code, tt.want)
		}
	}
}

func TestMute(t *testing.T) {
	ctl := &fakeController{}
	h := newRouter(ctl)
	if rec := do(h, http.MethodPost, "/api/mute", `{"kind":"video","muted":true}`); rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/mute", `{"muted":true}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing kind status = %d, want 400", rec.Code)
	}
	if strings.Join(ctl.calls, ",") != "mute video true" {
		t.Fatalf("calls = %v", ctl.calls)
	}

	ctl = &fakeController{cmdErr: fmt.Errorf("%w: %q", lobby.ErrUnknownKind, "smell")}
	if rec := do(newRouter(ctl), http.MethodPost, "/api/mute", `{"kind":"smell"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown kind status = %d, want 400", rec.Code)
	}
}

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Roulette/internal/domain"
)

func TestVerifySuccess(t *testing.T) {
	var got verifyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/verify-email" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"user":{"name":"Server Name"}}`))
	}))
	defer srv.Close()

	id, err := NewClient(srv.URL+"/", time.Second).Verify(context.Background(), " a@b.c ", "  ")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.Email != "a@b.c" || got.Name != domain.DefaultName {
		t.Fatalf("request body = %+v, want trimmed email and default name", got)
	}
	if id.Email != "a@b.c" || id.DisplayName != "Server Name" {
		t.Fatalf("identity = %+v", id)
	}
}

func TestVerifyKeepsLocalName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	id, err := NewClient(srv.URL, time.Second).Verify(context.Background(), "a@b.c", "Ann")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.DisplayName != "Ann" {
		t.Fatalf("DisplayName = %q, want Ann", id.DisplayName)
	}
}

func TestVerifyMultibyteNames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"name":"Александра Константиновна"}}`))
	}))
	defer srv.Close()

	id, err := NewClient(srv.URL, time.Second).Verify(context.Background(), "a@b.c", "Саша Петрова Иванова")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.DisplayName != "Александра Константиновна" {
		t.Fatalf("DisplayName = %q, want server name", id.DisplayName)
	}
}

func TestVerifyFallsBackToLocalName(t *testing.T) {
	long := strings.Repeat("я", domain.MaxUsernameLen+1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"name":"` + long + `"}}`))
	}))
	defer srv.Close()

	id, err := NewClient(srv.URL, time.Second).Verify(context.Background(), "a@b.c", "Ann")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.DisplayName != "Ann" {
		t.Fatalf("DisplayName = %q, want Ann", id.DisplayName)
	}
}

func TestVerifyRejected(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"error":"Email domain not allowed"}`, "Email domain not allowed"},
		{`oops`, fallbackMessage},
		{`{}`, fallbackMessage},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(tt.body))
		}))

		_, err := NewClient(srv.URL, time.Second).Verify(context.Background(), "a@b.c", "Ann")
		srv.Close()

		var verr *VerificationError
		if !errors.As(err, &verr) {
			t.Fatalf("Verify(%s) = %v, want *VerificationError", tt.body, err)
		}
		if verr.Status != http.StatusForbidden || verr.Message != tt.want {
			t.Fatalf("error = %+v, want 403 %q", verr, tt.want)
		}
	}
}

func TestVerifyTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewClient(srv.URL, 50*time.Millisecond).Verify(context.Background(), "a@b.c", "Ann")
	if !errors.Is(err, ErrVerificationTimeout) {
		t.Fatalf("Verify = %v, want ErrVerificationTimeout", err)
	}
}

func TestVerifyInvalidEmailSkipsRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, time.Second).Verify(context.Background(), "nope", "Ann"); !errors.Is(err, domain.ErrEmailInvalid) {
		t.Fatalf("Verify = %v, want ErrEmailInvalid", err)
	}
	if called {
		t.Fatal("backend called for an invalid email")
	}
}

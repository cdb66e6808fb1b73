// Package auth verifies the user's email against the matchmaking backend
// before the client joins.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dkeye/Roulette/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout  = 10 * time.Second
	fallbackMessage = "Invalid email address"
	verifyPath      = "/api/auth/verify-email"
)

var ErrVerificationTimeout = errors.New("verification timed out")

// VerificationError is a non-2xx answer from the backend.
type VerificationError struct {
	Status  int
	Message string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification failed (%d): %s", e.Status, e.Message)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type verifyRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type verifyResponse struct {
	User struct {
		Name string `json:"name"`
	} `json:"user"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Verify checks email and returns the identity to join with. The backend's
// name wins over the local one when it sends a usable one.
func (c *Client) Verify(ctx context.Context, email, name string) (domain.Identity, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if name == "" {
		name = domain.DefaultName
	}
	local, err := domain.NewIdentity(email, name)
	if err != nil {
		return domain.Identity{}, err
	}

	body, err := json.Marshal(verifyRequest{Email: email, Name: name})
	if err != nil {
		return domain.Identity{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+verifyPath, bytes.NewReader(body))
	if err != nil {
		return domain.Identity{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if isTimeout(err) {
			return domain.Identity{}, ErrVerificationTimeout
		}
		return domain.Identity{}, fmt.Errorf("verify email: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		if isTimeout(err) {
			return domain.Identity{}, ErrVerificationTimeout
		}
		return domain.Identity{}, fmt.Errorf("read verify response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fallbackMessage
		var e errorResponse
		if json.Unmarshal(raw, &e) == nil && strings.TrimSpace(e.Error) != "" {
			msg = e.Error
		}
		log.Warn().Str("module", "auth").Int("status", resp.StatusCode).Str("error", msg).Msg("verification rejected")
		return domain.Identity{}, &VerificationError{Status: resp.StatusCode, Message: msg}
	}

	id := local
	var ok verifyResponse
	if err := json.Unmarshal(raw, &ok); err == nil && strings.TrimSpace(ok.User.Name) != "" {
		if remote, err := domain.NewIdentity(email, ok.User.Name); err == nil {
			id = remote
		} else {
			log.Warn().Str("module", "auth").Err(err).Msg("server name unusable, keeping local name")
		}
	}
	log.Info().Str("module", "auth").Str("email", id.Email).Str("name", id.DisplayName).Msg("email verified")
	return id, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

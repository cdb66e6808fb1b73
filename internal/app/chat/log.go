// Package chat keeps the per-room message log shown next to the video.
package chat

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dkeye/Roulette/internal/domain"
	"github.com/google/uuid"
)

const MaxMessageLen = 1000

var ErrEmptyMessage = errors.New("empty message")

// Log is an ordered, room-scoped message log. It is owned by the lobby loop
// and is not safe for concurrent use.
type Log struct {
	messages []domain.ChatMessage
	now      func() time.Time
}

func NewLog() *Log {
	return &Log{now: time.Now}
}

// Normalize trims text and enforces the length cap.
func Normalize(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MaxMessageLen {
		runes := []rune(text)
		text = string(runes[:MaxMessageLen])
	}
	return text, nil
}

// Append stamps and stores a message. A zero ts means now.
func (l *Log) Append(author domain.Author, name, text string, ts time.Time) domain.ChatMessage {
	if ts.IsZero() {
		ts = l.now()
	}
	msg := domain.ChatMessage{
		ID:          uuid.NewString(),
		Text:        text,
		Author:      author,
		DisplayName: name,
		Timestamp:   ts,
	}
	l.messages = append(l.messages, msg)
	return msg
}

func (l *Log) Messages() []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

func (l *Log) Len() int { return len(l.messages) }

// Reset empties the log. Reports whether anything was dropped.
func (l *Log) Reset() bool {
	had := len(l.messages) > 0
	l.messages = nil
	return had
}

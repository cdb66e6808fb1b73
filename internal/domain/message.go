package domain

import "time"

type Author int

const (
	AuthorSelf Author = iota
	AuthorPeer
)

func (a Author) String() string {
	if a == AuthorSelf {
		return "self"
	}
	return "peer"
}

func (a Author) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// ChatMessage is one entry of a room's chat log.
type ChatMessage struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Author      Author    `json:"author"`
	DisplayName string    `json:"displayName"`
	Timestamp   time.Time `json:"timestamp"`
}

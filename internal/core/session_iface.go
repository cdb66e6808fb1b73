package core

import "github.com/dkeye/Roulette/internal/domain"

//go:generate mockgen -source=session_iface.go -destination=mocks/observer_mock.go -package=mocks

type NoticeLevel string

const (
	NoticeInfo     NoticeLevel = "info"
	NoticeWarning  NoticeLevel = "warning"
	NoticeError    NoticeLevel = "error"
	NoticeBlocking NoticeLevel = "blocking"
)

// Notice is a user-facing alert. None of them end the session.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// TrackInfo is a read-only view of a presented remote track.
type TrackInfo struct {
	ID       string `json:"id"`
	StreamID string `json:"streamId"`
	Kind     string `json:"kind"`
	Codec    string `json:"codec,omitempty"`
	Muted    bool   `json:"muted"`
	Packets  uint64 `json:"packets"`
}

// Snapshot is a read-only view of the lobby for APIs.
type Snapshot struct {
	State        domain.LobbyState    `json:"state"`
	RoomID       domain.RoomID        `json:"roomId,omitempty"`
	Role         domain.Role          `json:"role,omitempty"`
	Chat         []domain.ChatMessage `json:"chat"`
	RemoteTracks []TrackInfo          `json:"remoteTracks"`

	// KeyframeRequests counts PLI/FIR received for the local tracks in the
	// current room.
	KeyframeRequests uint64 `json:"keyframeRequests"`
}

// Observer is the UI layer the lobby reports to. Calls come from the lobby
// loop and must not block.
type Observer interface {
	StateChanged(state domain.LobbyState, room domain.RoomID)
	Notice(n Notice)
	ChatAppended(msg domain.ChatMessage)
	ChatCleared()
	RemoteStreamChanged(tracks []TrackInfo)
}

// NopObserver discards everything.
type NopObserver struct{}

func (NopObserver) StateChanged(domain.LobbyState, domain.RoomID) {}
func (NopObserver) Notice(Notice)                                {}
func (NopObserver) ChatAppended(domain.ChatMessage)              {}
func (NopObserver) ChatCleared()                                 {}
func (NopObserver) RemoteStreamChanged([]TrackInfo)              {}

package core

import (
	"time"

	"github.com/dkeye/Roulette/internal/domain"
	"github.com/pion/webrtc/v4"
)

// Frame is a raw encoded signaling payload.
type Frame []byte

// SignalType names a signaling event on the wire.
type SignalType string

const (
	// Client -> server only.
	SignalJoin           SignalType = "join"
	SignalDisconnectRoom SignalType = "disconnect-room"
	SignalReportUser     SignalType = "report-user"

	// Server -> client only.
	SignalSendOffer        SignalType = "send-offer"
	SignalLobby            SignalType = "lobby"
	SignalUserDisconnected SignalType = "user-disconnected"
	SignalError            SignalType = "error"

	// Both directions.
	SignalOffer        SignalType = "offer"
	SignalAnswer       SignalType = "answer"
	SignalICECandidate SignalType = "add-ice-candidate"
	SignalChatMessage  SignalType = "chat-message"
)

// Signal is one decoded signaling message. Only the fields relevant to
// Type are set.
type Signal struct {
	Type       SignalType
	RoomID     domain.RoomID
	SDP        *webrtc.SessionDescription
	Candidate  *webrtc.ICECandidateInit
	Tag        domain.CandidateTag
	Identity   *domain.Identity
	Interests  []string
	Text       string
	SenderName string
	Timestamp  time.Time
	Error      string
}

// SignalChannel abstracts the persistent channel to the matchmaking server.
// Owned by the adapter; the adapter must Close() it.
type SignalChannel interface {
	Send(Signal) error
	Close()
}

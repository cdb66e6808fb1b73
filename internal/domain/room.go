package domain

// RoomID is the opaque token the matchmaking server issues per pairing.
type RoomID string

// Role is fixed per room session by the signaling event that created it.
type Role int

const (
	RoleOfferer Role = iota + 1
	RoleAnswerer
)

func (r Role) String() string {
	switch r {
	case RoleOfferer:
		return "offerer"
	case RoleAnswerer:
		return "answerer"
	default:
		return "none"
	}
}

func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// CandidateTag marks which side gathered a relayed ICE candidate.
// Offerers gather "sender" candidates, answerers gather "receiver" ones.
type CandidateTag string

const (
	TagSender   CandidateTag = "sender"
	TagReceiver CandidateTag = "receiver"
)

func (t CandidateTag) Valid() bool { return t == TagSender || t == TagReceiver }

type LobbyState int

const (
	StateSearching LobbyState = iota
	StateNegotiating
	StateConnected
	StateLeaving
)

func (s LobbyState) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateNegotiating:
		return "negotiating"
	case StateConnected:
		return "connected"
	case StateLeaving:
		return "leaving"
	default:
		return "unknown"
	}
}

func (s LobbyState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

package lobby

import "errors"

var (
	ErrNoActiveRoom = errors.New("no active room")
	ErrNotConnected = errors.New("not connected to a peer")
	ErrLeft         = errors.New("left the lobby")
	ErrUnknownKind  = errors.New("unknown media kind")
)

// User-facing notice texts.
const (
	PeerLeftNotice    = "The other user disconnected. Searching for a new match..."
	ChannelLostNotice = "Lost connection to the matchmaking server."
	PeerFailedNotice  = "Connection to the other user failed."
	StartFailedNotice = "Could not start a call with the other user. Searching again..."
)

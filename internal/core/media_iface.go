package core

import (
	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// TrackAdder is the part of a peer connection local tracks attach to.
type TrackAdder interface {
	AddTrack(track webrtc.TrackLocal) error
}

// RemoteTrack is an inbound media track. *webrtc.TrackRemote implements it.
type RemoteTrack interface {
	ID() string
	StreamID() string
	Kind() webrtc.RTPCodecType
	Codec() webrtc.RTPCodecParameters
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// PeerConnection is the media-stack connection a room session negotiates.
// Callbacks may fire on any goroutine.
type PeerConnection interface {
	TrackAdder
	// AddRecvOnly asks to receive a kind this side does not send.
	AddRecvOnly(kind webrtc.RTPCodecType) error

	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(webrtc.SessionDescription) error
	SetRemoteDescription(webrtc.SessionDescription) error
	// AddICECandidate applies a remote ICE candidate.
	AddICECandidate(webrtc.ICECandidateInit) error

	OnNegotiationNeeded(func())
	// OnICECandidate sets a callback for newly gathered local ICE candidates.
	OnICECandidate(func(webrtc.ICECandidateInit))
	// OnTrack sets a callback that will be invoked when a new remote track arrives.
	OnTrack(func(RemoteTrack))
	OnConnectionStateChange(func(webrtc.PeerConnectionState))

	// KeyframeRequests counts PLI/FIR received for the local tracks.
	KeyframeRequests() uint64

	// Close releases the connection and its remote track subscriptions.
	Close() error
}

type PeerFactory interface {
	NewPeerConnection() (PeerConnection, error)
}

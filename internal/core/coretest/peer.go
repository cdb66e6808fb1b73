// Package coretest provides in-process fakes of the core interfaces.
package coretest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/Roulette/internal/core"
	"github.com/pion/webrtc/v4"
)

var ErrClosed = errors.New("peer connection closed")

// FakePeer records every call made on it. Callbacks only fire when a test
// triggers them through the Fire/Emit helpers.
type FakePeer struct {
	mu sync.Mutex

	tracks     []webrtc.TrackLocal
	recvOnly   []webrtc.RTPCodecType
	offers     int
	answers    int
	local      *webrtc.SessionDescription
	remote     *webrtc.SessionDescription
	candidates []webrtc.ICECandidateInit
	keyframes  uint64
	closed     bool

	// RemoteErr is returned by SetRemoteDescription when set.
	RemoteErr error

	onNegotiation func()
	onICE         func(webrtc.ICECandidateInit)
	onTrack       func(core.RemoteTrack)
	onState       func(webrtc.PeerConnectionState)
}

var _ core.PeerConnection = (*FakePeer)(nil)

func (p *FakePeer) AddTrack(track webrtc.TrackLocal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.tracks = append(p.tracks, track)
	return nil
}

func (p *FakePeer) AddRecvOnly(kind webrtc.RTPCodecType) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recvOnly = append(p.recvOnly, kind)
	return nil
}

func (p *FakePeer) CreateOffer() (webrtc.SessionDescription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offers++
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: fmt.Sprintf("fake-offer-%d", p.offers)}, nil
}

func (p *FakePeer) CreateAnswer() (webrtc.SessionDescription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.remote == nil {
		return webrtc.SessionDescription{}, errors.New("no remote description")
	}
	p.answers++
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: fmt.Sprintf("fake-answer-%d", p.answers)}, nil
}

func (p *FakePeer) SetLocalDescription(desc webrtc.SessionDescription) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.local = &desc
	return nil
}

func (p *FakePeer) SetRemoteDescription(desc webrtc.SessionDescription) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.RemoteErr != nil {
		return p.RemoteErr
	}
	p.remote = &desc
	return nil
}

func (p *FakePeer) AddICECandidate(c webrtc.ICECandidateInit) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.remote == nil {
		return errors.New("remote description not set")
	}
	p.candidates = append(p.candidates, c)
	return nil
}

func (p *FakePeer) OnNegotiationNeeded(fn func()) {
	p.mu.Lock()
	p.onNegotiation = fn
	p.mu.Unlock()
}

func (p *FakePeer) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	p.mu.Lock()
	p.onICE = fn
	p.mu.Unlock()
}

func (p *FakePeer) OnTrack(fn func(core.RemoteTrack)) {
	p.mu.Lock()
	p.onTrack = fn
	p.mu.Unlock()
}

func (p *FakePeer) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	p.mu.Lock()
	p.onState = fn
	p.mu.Unlock()
}

func (p *FakePeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *FakePeer) KeyframeRequests() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keyframes
}

// RequestKeyframe simulates a PLI from the remote peer.
func (p *FakePeer) RequestKeyframe() {
	p.mu.Lock()
	p.keyframes++
	p.mu.Unlock()
}

// FireNegotiationNeeded invokes the negotiation-needed callback.
func (p *FakePeer) FireNegotiationNeeded() {
	p.mu.Lock()
	fn := p.onNegotiation
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// EmitCandidate reports a locally gathered candidate.
func (p *FakePeer) EmitCandidate(c webrtc.ICECandidateInit) {
	p.mu.Lock()
	fn := p.onICE
	p.mu.Unlock()
	if fn != nil {
		fn(c)
	}
}

func (p *FakePeer) EmitTrack(t core.RemoteTrack) {
	p.mu.Lock()
	fn := p.onTrack
	p.mu.Unlock()
	if fn != nil {
		fn(t)
	}
}

func (p *FakePeer) EmitState(s webrtc.PeerConnectionState) {
	p.mu.Lock()
	fn := p.onState
	p.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func (p *FakePeer) Tracks() []webrtc.TrackLocal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]webrtc.TrackLocal(nil), p.tracks...)
}

func (p *FakePeer) RecvOnly() []webrtc.RTPCodecType {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]webrtc.RTPCodecType(nil), p.recvOnly...)
}

func (p *FakePeer) Offers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offers
}

func (p *FakePeer) Answers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.answers
}

func (p *FakePeer) LocalDescription() *webrtc.SessionDescription {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.local
}

func (p *FakePeer) RemoteDescription() *webrtc.SessionDescription {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remote
}

// Candidates returns the remote candidates applied so far.
func (p *FakePeer) Candidates() []webrtc.ICECandidateInit {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]webrtc.ICECandidateInit(nil), p.candidates...)
}

func (p *FakePeer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// FakeFactory hands out FakePeers and remembers them in creation order.
type FakeFactory struct {
	mu    sync.Mutex
	peers []*FakePeer
	Err   error
}

var _ core.PeerFactory = (*FakeFactory)(nil)

func (f *FakeFactory) NewPeerConnection() (core.PeerConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	p := &FakePeer{}
	f.peers = append(f.peers, p)
	return p, nil
}

func (f *FakeFactory) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.peers)
}

// Peer returns the i-th created peer, or nil.
func (f *FakeFactory) Peer(i int) *FakePeer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.peers) {
		return nil
	}
	return f.peers[i]
}

func (f *FakeFactory) Last() *FakePeer { return f.Peer(f.Count() - 1) }

// Candidate builds a minimal candidate init for tests.
func Candidate(s string) webrtc.ICECandidateInit {
	mid := "0"
	var idx uint16
	return webrtc.ICECandidateInit{Candidate: s, SDPMid: &mid, SDPMLineIndex: &idx}
}

// Package negotiation drives one room's peer connection through
// offer/answer and trickle ICE. A Session's role is fixed when it is built.
package negotiation

import (
	"errors"
	"fmt"

	"github.com/dkeye/Roulette/internal/core"
	"github.com/dkeye/Roulette/internal/domain"
	"github.com/dkeye/Roulette/internal/media"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrForeignTag    = errors.New("candidate tagged for the other role")
	ErrWrongRole     = errors.New("message not valid for this role")
	ErrComplete      = errors.New("handshake already complete")
)

// Options wires a Session to its owner. Post must run fn on the owner's
// event loop, and drop it once the session is no longer current.
type Options struct {
	Token  uint64
	RoomID domain.RoomID
	Peers  core.PeerFactory
	Tracks *media.Tracks
	Signal core.SignalChannel
	Post   func(fn func())

	OnTrack func(core.RemoteTrack)
	OnState func(webrtc.PeerConnectionState)
}

type roleHandler interface {
	role() domain.Role
	localTag() domain.CandidateTag
	remoteTag() domain.CandidateTag
	setup(s *Session) error
	negotiationNeeded(s *Session) error
	remoteDescription(s *Session, desc webrtc.SessionDescription) error
}

// Session is one room's negotiation. Its methods run on the owner's loop and
// are not safe for concurrent use.
type Session struct {
	opts    Options
	handler roleHandler
	pc      core.PeerConnection
	lease   *media.Lease

	pending       []webrtc.ICECandidateInit
	remoteApplied bool
	complete      bool
	closed        bool

	logger zerolog.Logger
}

func newSession(opts Options, h roleHandler) (*Session, error) {
	s := &Session{
		opts:    opts,
		handler: h,
		logger: log.With().
			Str("module", "negotiation").
			Str("room_id", string(opts.RoomID)).
			Uint64("token", opts.Token).
			Str("role", h.role().String()).
			Logger(),
	}

	pc, err := opts.Peers.NewPeerConnection()
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}
	s.pc = pc
	s.bindCallbacks()

	lease, err := opts.Tracks.Attach(pc)
	if err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("attach local tracks: %w", err)
	}
	s.lease = lease

	if err := h.setup(s); err != nil {
		s.Close()
		return nil, err
	}
	s.logger.Info().Msg("session created")
	return s, nil
}

func (s *Session) post(fn func()) {
	if s.opts.Post == nil {
		fn()
		return
	}
	s.opts.Post(fn)
}

func (s *Session) bindCallbacks() {
	s.pc.OnNegotiationNeeded(func() {
		s.post(func() {
			if s.closed {
				return
			}
			if err := s.handler.negotiationNeeded(s); err != nil {
				s.logger.Error().Err(err).Msg("negotiation failed")
			}
		})
	})
	s.pc.OnICECandidate(func(c webrtc.ICECandidateInit) {
		s.post(func() { s.sendCandidate(c) })
	})
	s.pc.OnTrack(func(track core.RemoteTrack) {
		s.post(func() {
			if s.closed || s.opts.OnTrack == nil {
				return
			}
			s.opts.OnTrack(track)
		})
	})
	s.pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		s.post(func() {
			if s.closed {
				return
			}
			s.logger.Debug().Str("state", state.String()).Msg("connection state")
			if s.opts.OnState != nil {
				s.opts.OnState(state)
			}
		})
	})
}

func (s *Session) sendCandidate(c webrtc.ICECandidateInit) {
	if s.closed {
		return
	}
	err := s.opts.Signal.Send(core.Signal{
		Type:      core.SignalICECandidate,
		RoomID:    s.opts.RoomID,
		Candidate: &c,
		Tag:       s.handler.localTag(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("send local candidate")
	}
}

// applyRemote sets the remote description and flushes buffered candidates
// in arrival order.
func (s *Session) applyRemote(desc webrtc.SessionDescription) error {
	if err := s.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	s.remoteApplied = true

	pending := s.pending
	s.pending = nil
	for _, c := range pending {
		if err := s.pc.AddICECandidate(c); err != nil {
			s.logger.Debug().Err(err).Msg("buffered candidate rejected")
		}
	}
	if len(pending) > 0 {
		s.logger.Debug().Int("count", len(pending)).Msg("flushed buffered candidates")
	}
	return nil
}

// HandleAnswer applies the remote answer. Only the Offerer accepts one.
func (s *Session) HandleAnswer(desc webrtc.SessionDescription) error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.handler.role() != domain.RoleOfferer {
		return ErrWrongRole
	}
	return s.handler.remoteDescription(s, desc)
}

// HandleCandidate applies or buffers a remote candidate carrying tag.
func (s *Session) HandleCandidate(tag domain.CandidateTag, c webrtc.ICECandidateInit) error {
	if s.closed {
		return ErrSessionClosed
	}
	if tag != s.handler.remoteTag() {
		return ErrForeignTag
	}
	if !s.remoteApplied {
		s.pending = append(s.pending, c)
		return nil
	}
	if err := s.pc.AddICECandidate(c); err != nil {
		return fmt.Errorf("add ice candidate: %w", err)
	}
	return nil
}

// SendChat relays a chat line to the peer through the server.
func (s *Session) SendChat(text string) error {
	if s.closed {
		return ErrSessionClosed
	}
	return s.opts.Signal.Send(core.Signal{
		Type:   core.SignalChatMessage,
		RoomID: s.opts.RoomID,
		Text:   text,
	})
}

// Close releases the peer connection. Local tracks keep running.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.pending = nil
	s.lease.Detach()
	if err := s.pc.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("close peer connection")
	}
	s.logger.Info().Msg("session closed")
}

func (s *Session) Token() uint64         { return s.opts.Token }
func (s *Session) RoomID() domain.RoomID { return s.opts.RoomID }
func (s *Session) Role() domain.Role     { return s.handler.role() }
func (s *Session) Complete() bool        { return s.complete }
func (s *Session) Closed() bool          { return s.closed }
func (s *Session) Pending() int          { return len(s.pending) }

// KeyframeRequests counts PLI/FIR the peer sent for the local tracks.
func (s *Session) KeyframeRequests() uint64 { return s.pc.KeyframeRequests() }

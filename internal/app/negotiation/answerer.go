package negotiation

import (
	"fmt"

	"github.com/dkeye/Roulette/internal/core"
	"github.com/dkeye/Roulette/internal/domain"
	"github.com/pion/webrtc/v4"
)

type answerer struct{}

// NewAnswerer starts a session for an inbound offer and answers it before
// returning.
func NewAnswerer(opts Options, offer webrtc.SessionDescription) (*Session, error) {
	s, err := newSession(opts, answerer{})
	if err != nil {
		return nil, err
	}
	if err := s.handler.remoteDescription(s, offer); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (answerer) role() domain.Role              { return domain.RoleAnswerer }
func (answerer) localTag() domain.CandidateTag  { return domain.TagReceiver }
func (answerer) remoteTag() domain.CandidateTag { return domain.TagSender }

func (answerer) setup(*Session) error { return nil }

// The answerer never offers.
func (answerer) negotiationNeeded(s *Session) error {
	s.logger.Debug().Msg("negotiation needed on answerer, ignoring")
	return nil
}

func (answerer) remoteDescription(s *Session, offer webrtc.SessionDescription) error {
	if s.complete {
		return ErrComplete
	}
	if offer.Type != webrtc.SDPTypeOffer {
		return fmt.Errorf("%w: got %s", ErrWrongRole, offer.Type)
	}
	if err := s.applyRemote(offer); err != nil {
		return err
	}

	answer, err := s.pc.CreateAnswer()
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if err := s.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}
	if err := s.opts.Signal.Send(core.Signal{
		Type:   core.SignalAnswer,
		RoomID: s.opts.RoomID,
		SDP:    &answer,
	}); err != nil {
		return fmt.Errorf("send answer: %w", err)
	}
	s.complete = true
	s.logger.Info().Msg("answer sent")
	return nil
}

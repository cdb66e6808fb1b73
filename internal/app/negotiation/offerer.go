package negotiation

import (
	"fmt"

	"github.com/dkeye/Roulette/internal/core"
	"github.com/dkeye/Roulette/internal/domain"
	"github.com/pion/webrtc/v4"
)

type offerer struct {
	offered bool
}

// NewOfferer starts a session that will send the room's single offer once
// the connection asks for negotiation.
func NewOfferer(opts Options) (*Session, error) {
	return newSession(opts, &offerer{})
}

func (o *offerer) role() domain.Role              { return domain.RoleOfferer }
func (o *offerer) localTag() domain.CandidateTag  { return domain.TagSender }
func (o *offerer) remoteTag() domain.CandidateTag { return domain.TagReceiver }

// setup asks to receive the kinds this client does not send so the offer
// always carries audio and video sections.
func (o *offerer) setup(s *Session) error {
	audio, video := s.opts.Tracks.Kinds()
	if !audio {
		if err := s.pc.AddRecvOnly(webrtc.RTPCodecTypeAudio); err != nil {
			return fmt.Errorf("add audio transceiver: %w", err)
		}
	}
	if !video {
		if err := s.pc.AddRecvOnly(webrtc.RTPCodecTypeVideo); err != nil {
			return fmt.Errorf("add video transceiver: %w", err)
		}
	}
	return nil
}

func (o *offerer) negotiationNeeded(s *Session) error {
	if o.offered {
		s.logger.Info().Msg("negotiation needed again, ignoring")
		return nil
	}
	o.offered = true

	offer, err := s.pc.CreateOffer()
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := s.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}
	if err := s.opts.Signal.Send(core.Signal{
		Type:   core.SignalOffer,
		RoomID: s.opts.RoomID,
		SDP:    &offer,
	}); err != nil {
		return fmt.Errorf("send offer: %w", err)
	}
	s.logger.Info().Msg("offer sent")
	return nil
}

func (o *offerer) remoteDescription(s *Session, desc webrtc.SessionDescription) error {
	if s.complete {
		return ErrComplete
	}
	if desc.Type != webrtc.SDPTypeAnswer {
		return fmt.Errorf("%w: got %s", ErrWrongRole, desc.Type)
	}
	if err := s.applyRemote(desc); err != nil {
		return err
	}
	s.complete = true
	s.logger.Info().Msg("answer applied")
	return nil
}

// Offered reports whether the offer went out.
func (s *Session) Offered() bool {
	o, ok := s.handler.(*offerer)
	return ok && o.offered
}

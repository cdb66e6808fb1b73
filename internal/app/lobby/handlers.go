package lobby

import (
	"errors"

	"github.com/dkeye/Roulette/internal/app/chat"
	"github.com/dkeye/Roulette/internal/app/negotiation"
	"github.com/dkeye/Roulette/internal/core"
	"github.com/dkeye/Roulette/internal/domain"
	"github.com/rs/zerolog/log"
)

func (l *Lobby) handleSignal(sig core.Signal) {
	if l.state == domain.StateLeaving {
		return
	}
	switch sig.Type {
	case core.SignalSendOffer:
		l.onSendOffer(sig)
	case core.SignalOffer:
		l.onOffer(sig)
	case core.SignalAnswer:
		l.onAnswer(sig)
	case core.SignalICECandidate:
		l.onCandidate(sig)
	case core.SignalUserDisconnected:
		log.Info().Str("module", "lobby").Str("room_id", string(l.room)).Msg("peer disconnected")
		l.enterSearching()
		l.notice(core.NoticeInfo, PeerLeftNotice)
	case core.SignalLobby:
		l.enterSearching()
	case core.SignalChatMessage:
		l.onChat(sig)
	case core.SignalError:
		log.Warn().Str("module", "lobby").Str("error", sig.Error).Msg("server error")
		l.notice(core.NoticeError, sig.Error)
	default:
		log.Debug().Str("module", "lobby").Str("event", string(sig.Type)).Msg("unhandled signal")
	}
}

func (l *Lobby) onSendOffer(sig core.Signal) {
	if sig.RoomID == "" {
		log.Warn().Str("module", "lobby").Msg("send-offer without room id")
		return
	}
	l.teardown()
	s, err := negotiation.NewOfferer(l.sessionOptions(sig.RoomID))
	if err != nil {
		l.sessionFailed(sig.RoomID, err)
		return
	}
	l.session = s
	l.setState(domain.StateNegotiating)
}

func (l *Lobby) onOffer(sig core.Signal) {
	if sig.RoomID == "" || sig.SDP == nil {
		log.Warn().Str("module", "lobby").Msg("offer without room id or sdp")
		return
	}
	if l.session != nil && l.session.RoomID() == sig.RoomID && l.session.Role() == domain.RoleAnswerer {
		log.Debug().Str("module", "lobby").Str("room_id", string(sig.RoomID)).Msg("duplicate offer ignored")
		return
	}
	l.teardown()
	s, err := negotiation.NewAnswerer(l.sessionOptions(sig.RoomID), *sig.SDP)
	if err != nil {
		l.sessionFailed(sig.RoomID, err)
		return
	}
	l.session = s
	l.setState(domain.StateConnected)
}

func (l *Lobby) onAnswer(sig core.Signal) {
	if !l.inRoom(sig.RoomID) || l.session.Role() != domain.RoleOfferer {
		log.Debug().Str("module", "lobby").Str("room_id", string(sig.RoomID)).Msg("answer for no offer, ignoring")
		return
	}
	if sig.SDP == nil {
		log.Warn().Str("module", "lobby").Msg("answer without sdp")
		return
	}
	err := l.session.HandleAnswer(*sig.SDP)
	switch {
	case errors.Is(err, negotiation.ErrComplete):
		log.Debug().Str("module", "lobby").Str("room_id", string(sig.RoomID)).Msg("duplicate answer ignored")
	case err != nil:
		log.Error().Str("module", "lobby").Err(err).Str("room_id", string(sig.RoomID)).Msg("apply answer")
		l.notice(core.NoticeWarning, PeerFailedNotice)
	default:
		l.setState(domain.StateConnected)
	}
}

func (l *Lobby) onCandidate(sig core.Signal) {
	if sig.Candidate == nil {
		log.Warn().Str("module", "lobby").Msg("candidate message without candidate")
		return
	}
	if !l.inRoom(sig.RoomID) {
		log.Debug().Str("module", "lobby").Str("room_id", string(sig.RoomID)).Msg("candidate for stale room")
		return
	}
	if err := l.session.HandleCandidate(sig.Tag, *sig.Candidate); err != nil {
		log.Debug().Str("module", "lobby").Err(err).Str("tag", string(sig.Tag)).Msg("candidate not applied")
	}
}

func (l *Lobby) onChat(sig core.Signal) {
	if l.session == nil || (sig.RoomID != "" && sig.RoomID != l.session.RoomID()) {
		log.Debug().Str("module", "lobby").Str("room_id", string(sig.RoomID)).Msg("chat for no active room")
		return
	}
	text, err := chat.Normalize(sig.Text)
	if err != nil {
		return
	}
	name := sig.SenderName
	if name == "" {
		name = DefaultPeerName
	}
	msg := l.chat.Append(domain.AuthorPeer, name, text, sig.Timestamp)
	l.opts.Observer.ChatAppended(msg)
}

// inRoom reports whether room is the active session's room.
func (l *Lobby) inRoom(room domain.RoomID) bool {
	return l.session != nil && l.session.RoomID() == room
}

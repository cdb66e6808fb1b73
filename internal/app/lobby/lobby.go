// Package lobby is the matchmaking state machine. All of its state lives on
// one event loop goroutine; signaling events, peer callbacks and local
// commands reach it as queued closures.
package lobby

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/Roulette/internal/app/chat"
	"github.com/dkeye/Roulette/internal/app/negotiation"
	"github.com/dkeye/Roulette/internal/app/surface"
	"github.com/dkeye/Roulette/internal/core"
	"github.com/dkeye/Roulette/internal/domain"
	"github.com/dkeye/Roulette/internal/media"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// DefaultPeerName labels peer chat lines that arrive without a sender name.
const DefaultPeerName = "Stranger"

type Options struct {
	Identity  domain.Identity
	Interests []string

	Signal   core.SignalChannel
	Peers    core.PeerFactory
	Tracks   *media.Tracks
	Surface  *surface.Surface
	Observer core.Observer
	Limiter  *chat.RateLimiter
}

type Lobby struct {
	opts  Options
	queue *queue
	done  chan struct{}

	// Loop-owned.
	state   domain.LobbyState
	room    domain.RoomID
	session *negotiation.Session
	token   uint64
	chat    *chat.Log
}

func New(opts Options) *Lobby {
	if opts.Surface == nil {
		opts.Surface = surface.New()
	}
	if opts.Observer == nil {
		opts.Observer = core.NopObserver{}
	}
	return &Lobby{
		opts:  opts,
		queue: newQueue(),
		done:  make(chan struct{}),
		chat:  chat.NewLog(),
	}
}

// Run announces the user, enters Searching and processes events until the
// user leaves or ctx ends. It must be called once.
func (l *Lobby) Run(ctx context.Context) error {
	defer close(l.done)

	err := l.opts.Signal.Send(core.Signal{
		Type:      core.SignalJoin,
		Identity:  &l.opts.Identity,
		Interests: l.opts.Interests,
	})
	if err != nil {
		l.opts.Signal.Close()
		return fmt.Errorf("send join: %w", err)
	}
	log.Info().Str("module", "lobby").Str("email", l.opts.Identity.Email).Msg("joined, searching")
	l.opts.Observer.StateChanged(domain.StateSearching, "")

	for {
		for fn := l.queue.pop(); fn != nil; fn = l.queue.pop() {
			fn()
			if l.state == domain.StateLeaving {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			l.leave()
			return ctx.Err()
		case <-l.queue.notify:
		}
	}
}

// Done is closed once Run has returned.
func (l *Lobby) Done() <-chan struct{} { return l.done }

func (l *Lobby) post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	l.queue.push(fn)
	return true
}

// do runs fn on the loop and waits for its result.
func (l *Lobby) do(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	if !l.post(func() { errc <- fn() }) {
		return ErrLeft
	}
	select {
	case err := <-errc:
		return err
	case <-l.done:
		select {
		case err := <-errc:
			return err
		default:
			return ErrLeft
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deliver hands an inbound signal to the loop. It never blocks.
func (l *Lobby) Deliver(sig core.Signal) {
	l.post(func() { l.handleSignal(sig) })
}

// ChannelClosed reports the loss of the signaling channel. The state is kept;
// there is no reconnect.
func (l *Lobby) ChannelClosed(err error) {
	l.post(func() {
		if l.state == domain.StateLeaving {
			return
		}
		log.Warn().Str("module", "lobby").Err(err).Msg("signaling channel lost")
		l.notice(core.NoticeError, ChannelLostNotice)
	})
}

func (l *Lobby) Skip(ctx context.Context) error {
	return l.do(ctx, l.skip)
}

func (l *Lobby) Report(ctx context.Context) error {
	return l.do(ctx, func() error {
		if l.session == nil || l.state != domain.StateConnected {
			return ErrNotConnected
		}
		room := l.session.RoomID()
		if err := l.opts.Signal.Send(core.Signal{Type: core.SignalReportUser, RoomID: room}); err != nil {
			log.Warn().Str("module", "lobby").Err(err).Str("room_id", string(room)).Msg("send report")
		}
		log.Info().Str("module", "lobby").Str("room_id", string(room)).Msg("peer reported")
		return l.skip()
	})
}

func (l *Lobby) Leave(ctx context.Context) error {
	return l.do(ctx, func() error {
		l.leave()
		return nil
	})
}

// SendChat appends text as the local user's line and relays it to the peer.
func (l *Lobby) SendChat(ctx context.Context, text string) (domain.ChatMessage, error) {
	var msg domain.ChatMessage
	err := l.do(ctx, func() error {
		if l.session == nil {
			return ErrNoActiveRoom
		}
		text, err := chat.Normalize(text)
		if err != nil {
			return err
		}
		if !l.opts.Limiter.Allow() {
			return chat.ErrRateLimited
		}
		msg = l.chat.Append(domain.AuthorSelf, l.opts.Identity.DisplayName, text, time.Time{})
		l.opts.Observer.ChatAppended(msg)
		if err := l.session.SendChat(text); err != nil {
			log.Warn().Str("module", "lobby").Err(err).Msg("send chat message")
		}
		return nil
	})
	return msg, err
}

// SetMuted pauses or resumes the remote peer's audio or video sinks. It
// holds across rooms until changed.
func (l *Lobby) SetMuted(ctx context.Context, kind string, muted bool) error {
	codecType := webrtc.NewRTPCodecType(kind)
	if codecType == webrtc.RTPCodecTypeUnknown {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return l.do(ctx, func() error {
		l.opts.Surface.SetMuted(codecType, muted)
		if l.session != nil {
			l.opts.Observer.RemoteStreamChanged(l.opts.Surface.Tracks())
		}
		return nil
	})
}

func (l *Lobby) Snapshot(ctx context.Context) (core.Snapshot, error) {
	var snap core.Snapshot
	err := l.do(ctx, func() error {
		snap = core.Snapshot{
			State:        l.state,
			Chat:         l.chat.Messages(),
			RemoteTracks: l.opts.Surface.Tracks(),
		}
		if l.session != nil {
			snap.RoomID = l.session.RoomID()
			snap.Role = l.session.Role()
			snap.KeyframeRequests = l.session.KeyframeRequests()
		}
		return nil
	})
	return snap, err
}

func (l *Lobby) skip() error {
	if l.session == nil {
		return ErrNoActiveRoom
	}
	room := l.session.RoomID()
	if err := l.opts.Signal.Send(core.Signal{Type: core.SignalDisconnectRoom}); err != nil {
		log.Warn().Str("module", "lobby").Err(err).Str("room_id", string(room)).Msg("send disconnect-room")
	}
	log.Info().Str("module", "lobby").Str("room_id", string(room)).Msg("left room")
	l.enterSearching()
	return nil
}

func (l *Lobby) leave() {
	if l.state == domain.StateLeaving {
		return
	}
	if l.session != nil {
		_ = l.skip()
	}
	l.teardown()
	l.opts.Signal.Close()
	l.setState(domain.StateLeaving)
	log.Info().Str("module", "lobby").Int("unprocessed", l.queue.len()).Msg("left lobby")
}

// teardown drops every trace of the current room.
func (l *Lobby) teardown() {
	if l.session != nil {
		l.session.Close()
		l.session = nil
	}
	if l.opts.Surface.Clear() {
		l.opts.Observer.RemoteStreamChanged(nil)
	}
	if l.chat.Reset() {
		l.opts.Observer.ChatCleared()
	}
}

func (l *Lobby) enterSearching() {
	l.teardown()
	l.setState(domain.StateSearching)
}

func (l *Lobby) setState(state domain.LobbyState) {
	var room domain.RoomID
	if l.session != nil {
		room = l.session.RoomID()
	}
	if l.state == state && l.room == room {
		return
	}
	l.state = state
	l.room = room
	log.Debug().Str("module", "lobby").Str("state", state.String()).Str("room_id", string(room)).Msg("state changed")
	l.opts.Observer.StateChanged(state, room)
}

func (l *Lobby) notice(level core.NoticeLevel, msg string) {
	l.opts.Observer.Notice(core.Notice{Level: level, Message: msg})
}

// current reports whether token belongs to the live session.
func (l *Lobby) current(token uint64) bool {
	return l.session != nil && l.session.Token() == token
}

func (l *Lobby) sessionOptions(room domain.RoomID) negotiation.Options {
	l.token++
	token := l.token
	return negotiation.Options{
		Token:  token,
		RoomID: room,
		Peers:  l.opts.Peers,
		Tracks: l.opts.Tracks,
		Signal: l.opts.Signal,
		Post: func(fn func()) {
			l.post(func() {
				if !l.current(token) {
					log.Debug().Str("module", "lobby").Uint64("token", token).Msg("dropping stale peer event")
					return
				}
				fn()
			})
		},
		OnTrack: l.remoteTrack,
		OnState: l.peerState,
	}
}

func (l *Lobby) remoteTrack(track core.RemoteTrack) {
	if l.opts.Surface.Attach(track) {
		l.opts.Observer.RemoteStreamChanged(l.opts.Surface.Tracks())
	}
}

func (l *Lobby) peerState(state webrtc.PeerConnectionState) {
	if state == webrtc.PeerConnectionStateFailed {
		log.Warn().Str("module", "lobby").Str("room_id", string(l.session.RoomID())).Msg("peer connection failed")
		l.notice(core.NoticeWarning, PeerFailedNotice)
	}
}

// sessionFailed gives the room back to the server and searches again.
func (l *Lobby) sessionFailed(room domain.RoomID, err error) {
	log.Error().Str("module", "lobby").Err(err).Str("room_id", string(room)).Msg("start session")
	if sendErr := l.opts.Signal.Send(core.Signal{Type: core.SignalDisconnectRoom}); sendErr != nil {
		log.Warn().Str("module", "lobby").Err(sendErr).Msg("send disconnect-room")
	}
	l.notice(core.NoticeError, StartFailedNotice)
	l.enterSearching()
}

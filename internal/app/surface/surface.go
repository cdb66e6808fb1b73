// Package surface presents the remote peer's stream: one relay per remote
// track, forwarding RTP into the sinks opened for it.
package surface

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/dkeye/Roulette/internal/core"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

type Surface struct {
	mu       sync.Mutex
	streamID string
	relays   map[string]*Relay
	openers  map[string]SinkOpener
	muted    map[webrtc.RTPCodecType]bool
	loops    sync.WaitGroup
}

func New() *Surface {
	return &Surface{
		relays:  make(map[string]*Relay),
		openers: make(map[string]SinkOpener),
		muted:   make(map[webrtc.RTPCodecType]bool),
	}
}

// Use registers an opener consulted for every track attached afterwards.
func (s *Surface) Use(name string, open SinkOpener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openers[name] = open
}

// Attach presents track. A track already presented is a no-op; a track of
// another stream replaces the current stream. Reports whether the presented
// track set changed.
func (s *Surface) Attach(track core.RemoteTrack) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.streamID != "" && s.streamID != track.StreamID() {
		log.Info().Str("module", "surface").Str("old_stream", s.streamID).Str("stream_id", track.StreamID()).Msg("replacing remote stream")
		s.stopAllLocked()
	}
	if _, ok := s.relays[track.ID()]; ok {
		return false
	}
	s.streamID = track.StreamID()

	logger := log.With().
		Str("module", "surface").
		Str("track_id", track.ID()).
		Str("kind", track.Kind().String()).
		Logger()

	ctx, cancel := context.WithCancel(context.Background())
	relay := NewRelay(track, cancel)
	for name, open := range s.openers {
		sink, err := open(track)
		if err != nil {
			logger.Error().Err(err).Str("sink", name).Msg("open sink")
			continue
		}
		if sink == nil {
			continue
		}
		out := &output{sink: sink}
		if s.muted[track.Kind()] {
			out.set(outputMuted)
		}
		relay.addOutput(name, out)
	}
	s.relays[track.ID()] = relay

	logger.Info().Msg("starting relay loop")
	s.loops.Add(1)
	go func() {
		defer s.loops.Done()
		relay.loop(ctx, &logger)
	}()
	return true
}

// SetMuted pauses or resumes forwarding for every sink of kind, including
// those of tracks attached later.
func (s *Surface) SetMuted(kind webrtc.RTPCodecType, muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted[kind] = muted
	for _, relay := range s.relays {
		if relay.Src.Kind() == kind {
			relay.setMuted(muted)
		}
	}
	log.Info().Str("module", "surface").Str("kind", kind.String()).Bool("muted", muted).Msg("mute changed")
}

func (s *Surface) Muted(kind webrtc.RTPCodecType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted[kind]
}

// Clear stops presenting. Reports whether anything was presented.
func (s *Surface) Clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	had := len(s.relays) > 0
	s.stopAllLocked()
	return had
}

func (s *Surface) stopAllLocked() {
	for id, relay := range s.relays {
		relay.stop()
		delete(s.relays, id)
	}
	s.streamID = ""
}

// Wait blocks until every relay loop has returned and closed its sinks, or
// ctx ends.
func (s *Surface) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.loops.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tracks lists the presented tracks ordered by kind then id.
func (s *Surface) Tracks() []core.TrackInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.TrackInfo, 0, len(s.relays))
	for _, relay := range s.relays {
		kind := relay.Src.Kind()
		out = append(out, core.TrackInfo{
			ID:       relay.Src.ID(),
			StreamID: relay.Src.StreamID(),
			Kind:     kind.String(),
			Codec:    relay.Src.Codec().MimeType,
			Muted:    s.muted[kind],
			Packets:  relay.packets.Load(),
		})
	}
	slices.SortFunc(out, func(a, b core.TrackInfo) int {
		if c := strings.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

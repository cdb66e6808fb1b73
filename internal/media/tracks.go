// Package media owns the local audio/video tracks for the whole client
// lifetime. Room sessions only borrow them.
package media

import (
	"errors"
	"sync"

	"github.com/dkeye/Roulette/internal/core"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var ErrReleased = errors.New("local tracks released")

// Tracks is the shared set of local tracks. Either track may be absent.
type Tracks struct {
	audio webrtc.TrackLocal
	video webrtc.TrackLocal

	mu       sync.Mutex
	attached int
	released bool
	stop     func()
}

// NewTracks wraps already created tracks. stop, if set, runs once on Release.
func NewTracks(audio, video webrtc.TrackLocal, stop func()) *Tracks {
	return &Tracks{audio: audio, video: video, stop: stop}
}

func (t *Tracks) Audio() webrtc.TrackLocal { return t.audio }
func (t *Tracks) Video() webrtc.TrackLocal { return t.video }

// Kinds reports which kinds this client sends.
func (t *Tracks) Kinds() (audio, video bool) {
	if t == nil {
		return false, false
	}
	return t.audio != nil, t.video != nil
}

// Lease is one peer connection's borrow of the tracks.
type Lease struct {
	owner *Tracks
	once  sync.Once
}

// Attach adds every present track to pc. The tracks stay owned by t.
func (t *Tracks) Attach(pc core.TrackAdder) (*Lease, error) {
	if t == nil {
		return &Lease{}, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return nil, ErrReleased
	}
	for _, track := range []webrtc.TrackLocal{t.audio, t.video} {
		if track == nil {
			continue
		}
		if err := pc.AddTrack(track); err != nil {
			return nil, err
		}
	}
	t.attached++
	return &Lease{owner: t}, nil
}

// Detach ends the borrow. It never stops the tracks.
func (l *Lease) Detach() {
	if l == nil || l.owner == nil {
		return
	}
	l.once.Do(func() {
		l.owner.mu.Lock()
		l.owner.attached--
		l.owner.mu.Unlock()
	})
}

// Attached returns the number of live leases.
func (t *Tracks) Attached() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attached
}

func (t *Tracks) Released() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.released
}

// Release is the single final release, called by the top-level client on
// full leave.
func (t *Tracks) Release() {
	if t == nil {
		return
	}
	t.mu.Lock()
	if t.released {
		t.mu.Unlock()
		return
	}
	t.released = true
	stop := t.stop
	leases := t.attached
	t.mu.Unlock()

	if stop != nil {
		stop()
	}
	log.Info().Str("module", "media").Int("leases", leases).Msg("local tracks released")
}

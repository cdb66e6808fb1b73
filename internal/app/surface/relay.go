package surface

import (
	"context"
	"io"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/dkeye/Roulette/internal/core"
	"github.com/pion/rtp"
	"github.com/rs/zerolog"
)

// Sink consumes the RTP packets of one presented remote track. A sink that
// is also an io.Closer is closed by its relay once it is no longer fed.
type Sink interface {
	WriteRTP(pkt *rtp.Packet) error
}

// SinkOpener makes the sink for a newly presented track. A nil sink with a
// nil error means the opener has no use for that track.
type SinkOpener func(track core.RemoteTrack) (Sink, error)

type outputState int32

const (
	outputLive outputState = iota
	outputMuted
	outputDropped
)

type output struct {
	sink  Sink
	state atomic.Int32
}

func (o *output) get() outputState     { return outputState(o.state.Load()) }
func (o *output) set(state outputState) { o.state.Store(int32(state)) }

// Relay pumps one remote track into its outputs. Outputs are closed only
// from the loop goroutine, so a sink is never closed mid-write.
type Relay struct {
	Src core.RemoteTrack

	mu      sync.RWMutex
	outputs map[string]*output

	packets atomic.Uint64
	cancel  context.CancelFunc
}

func NewRelay(src core.RemoteTrack, cancel context.CancelFunc) *Relay {
	return &Relay{
		Src:     src,
		outputs: make(map[string]*output),
		cancel:  cancel,
	}
}

func (r *Relay) loop(ctx context.Context, logger *zerolog.Logger) {
	defer r.closeAll(logger)
	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("relay ctx done")
			return
		default:
		}
		pkt, _, err := r.Src.ReadRTP()
		if err != nil {
			logger.Debug().Err(err).Uint64("packets", r.packets.Load()).Msg("relay read RTP stopped")
			return
		}
		if r.packets.Add(1) == 1 {
			logger.Info().Msg("first remote packet")
		}
		r.forward(pkt, logger)
	}
}

func (r *Relay) forward(pkt *rtp.Packet, logger *zerolog.Logger) {
	r.mu.RLock()
	snapshot := maps.Clone(r.outputs)
	r.mu.RUnlock()

	var dropped []string
	for name, out := range snapshot {
		switch out.get() {
		case outputDropped:
			dropped = append(dropped, name)
		case outputLive:
			if err := out.sink.WriteRTP(pkt); err != nil {
				logger.Error().Err(err).Str("sink", name).Msg("sink write failed, dropping it")
				out.set(outputDropped)
				dropped = append(dropped, name)
			}
		}
	}
	if len(dropped) > 0 {
		r.remove(dropped, logger)
	}
}

func (r *Relay) remove(names []string, logger *zerolog.Logger) {
	r.mu.Lock()
	removed := make([]*output, 0, len(names))
	for _, name := range names {
		if out, ok := r.outputs[name]; ok {
			removed = append(removed, out)
			delete(r.outputs, name)
		}
	}
	r.mu.Unlock()
	for _, out := range removed {
		closeSink(out.sink, logger)
	}
}

func (r *Relay) closeAll(logger *zerolog.Logger) {
	r.mu.Lock()
	outputs := r.outputs
	r.outputs = make(map[string]*output)
	r.mu.Unlock()
	for _, out := range outputs {
		out.set(outputDropped)
		closeSink(out.sink, logger)
	}
}

func closeSink(sink Sink, logger *zerolog.Logger) {
	c, ok := sink.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		logger.Warn().Err(err).Msg("close sink")
	}
}

func (r *Relay) addOutput(name string, out *output) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs[name] = out
}

func (r *Relay) setMuted(muted bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, out := range r.outputs {
		switch {
		case out.get() == outputDropped:
		case muted:
			out.set(outputMuted)
		default:
			out.set(outputLive)
		}
	}
}

// stop ends feeding. The loop closes the outputs once ReadRTP returns.
func (r *Relay) stop() {
	r.mu.RLock()
	for _, out := range r.outputs {
		out.set(outputDropped)
	}
	r.mu.RUnlock()
	if r.cancel != nil {
		r.cancel()
	}
}

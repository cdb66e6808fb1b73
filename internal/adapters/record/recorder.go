// Package record writes the remote peer's media to disk, one file per
// presented track.
package record

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dkeye/Roulette/internal/app/surface"
	"github.com/dkeye/Roulette/internal/core"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/h264writer"
	"github.com/pion/webrtc/v4/pkg/media/ivfwriter"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"github.com/rs/zerolog/log"
)

type Recorder struct {
	dir string
	now func() time.Time
}

func New(dir string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create record dir: %w", err)
	}
	return &Recorder{dir: dir, now: time.Now}, nil
}

// Open starts a file for track. It matches surface.SinkOpener; tracks of a
// codec it cannot containerize get no sink.
func (r *Recorder) Open(track core.RemoteTrack) (surface.Sink, error) {
	codec := track.Codec()
	base := filepath.Join(r.dir, fmt.Sprintf("%s-%s-%s",
		r.now().Format("20060102-150405"), clean(track.StreamID()), clean(track.ID())))

	var (
		sink surface.Sink
		path string
	)
	switch mime := codec.MimeType; {
	case strings.EqualFold(mime, webrtc.MimeTypeOpus):
		channels := codec.Channels
		if channels == 0 {
			channels = 2
		}
		path = base + ".ogg"
		w, err := oggwriter.New(path, codec.ClockRate, channels)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		sink = w
	case strings.EqualFold(mime, webrtc.MimeTypeVP8), strings.EqualFold(mime, webrtc.MimeTypeAV1):
		ivfCodec := webrtc.MimeTypeVP8
		if strings.EqualFold(mime, webrtc.MimeTypeAV1) {
			ivfCodec = webrtc.MimeTypeAV1
		}
		path = base + ".ivf"
		w, err := ivfwriter.New(path, ivfwriter.WithCodec(ivfCodec))
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		sink = w
	case strings.EqualFold(mime, webrtc.MimeTypeH264):
		path = base + ".h264"
		w, err := h264writer.New(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		sink = w
	default:
		log.Warn().Str("module", "record").Str("codec", mime).Str("track_id", track.ID()).Msg("codec not recordable, skipping track")
		return nil, nil
	}

	log.Info().Str("module", "record").Str("path", path).Str("track_id", track.ID()).Msg("recording")
	return sink, nil
}

// clean keeps ids usable as file name parts.
func clean(id string) string {
	id = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, id)
	if len(id) > 32 {
		id = id[:32]
	}
	if id == "" {
		id = "track"
	}
	return id
}

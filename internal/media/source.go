package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrPermissionDenied blocks session entry until the user grants access.
	ErrPermissionDenied = errors.New("media permission denied")
	ErrDeviceNotFound   = errors.New("media device not found")
	ErrUnsupportedCodec = errors.New("unsupported codec")
)

const (
	StreamID        = "roulette"
	oggPageDuration = 20 * time.Millisecond
	opusClockRate   = 48000
)

// Source supplies the local tracks once per client lifetime.
type Source interface {
	Acquire(ctx context.Context) (*Tracks, error)
}

// FileSource plays an Ogg/Opus file as the microphone and an IVF file as the
// camera, looping both. An empty path leaves that track absent.
type FileSource struct {
	AudioPath string
	VideoPath string
}

func (s FileSource) Acquire(ctx context.Context) (*Tracks, error) {
	logger := log.With().Str("module", "media").Logger()

	var (
		audio, video webrtc.TrackLocal
		pumps        []func(context.Context)
		files        []*os.File
	)
	closeFiles := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	if s.AudioPath != "" {
		f, err := openMedia(s.AudioPath)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
		track, pump, err := newOggPump(f, &logger)
		if err != nil {
			closeFiles()
			return nil, err
		}
		audio = track
		pumps = append(pumps, pump)
	}
	if s.VideoPath != "" {
		f, err := openMedia(s.VideoPath)
		if err != nil {
			closeFiles()
			return nil, err
		}
		files = append(files, f)
		track, pump, err := newIVFPump(f, &logger)
		if err != nil {
			closeFiles()
			return nil, err
		}
		video = track
		pumps = append(pumps, pump)
	}
	if audio == nil && video == nil {
		logger.Warn().Msg("no local media configured, joining receive-only")
	}

	pumpCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	var wg sync.WaitGroup
	for _, pump := range pumps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pump(pumpCtx)
		}()
	}
	stop := func() {
		cancel()
		wg.Wait()
		closeFiles()
	}
	return NewTracks(audio, video, stop), nil
}

func openMedia(path string) (*os.File, error) {
	f, err := os.Open(path)
	switch {
	case err == nil:
		return f, nil
	case errors.Is(err, fs.ErrPermission):
		return nil, fmt.Errorf("%w: %s: allow read access and restart", ErrPermissionDenied, path)
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, path)
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
}

func newOggPump(f *os.File, logger *zerolog.Logger) (*webrtc.TrackLocalStaticSample, func(context.Context), error) {
	if _, _, err := oggreader.NewWith(f); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedCodec, f.Name(), err)
	}
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", StreamID)
	if err != nil {
		return nil, nil, err
	}

	pump := func(ctx context.Context) {
		ticker := time.NewTicker(oggPageDuration)
		defer ticker.Stop()
		for ctx.Err() == nil {
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				logger.Error().Err(err).Str("file", f.Name()).Msg("audio rewind")
				return
			}
			ogg, _, err := oggreader.NewWith(f)
			if err != nil {
				logger.Error().Err(err).Str("file", f.Name()).Msg("audio reader")
				return
			}
			var lastGranule uint64
			for pages := 0; ; pages++ {
				page, header, err := ogg.ParseNextPage()
				if errors.Is(err, io.EOF) && pages == 0 {
					logger.Warn().Str("file", f.Name()).Msg("audio file has no pages")
					return
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					logger.Error().Err(err).Str("file", f.Name()).Msg("audio page")
					return
				}
				samples := header.GranulePosition - lastGranule
				lastGranule = header.GranulePosition
				duration := time.Duration(samples) * time.Second / opusClockRate
				if err := track.WriteSample(pionmedia.Sample{Data: page, Duration: duration}); err != nil {
					logger.Debug().Err(err).Msg("audio write sample")
				}
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}
	}
	return track, pump, nil
}

func newIVFPump(f *os.File, logger *zerolog.Logger) (*webrtc.TrackLocalStaticSample, func(context.Context), error) {
	_, header, err := ivfreader.NewWith(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedCodec, f.Name(), err)
	}
	mime, err := mimeForFourCC(header.FourCC)
	if err != nil {
		return nil, nil, err
	}
	track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: mime}, "video", StreamID)
	if err != nil {
		return nil, nil, err
	}
	frameDuration := time.Second / 30
	if header.TimebaseDenominator != 0 {
		frameDuration = time.Duration(header.TimebaseNumerator) * time.Second / time.Duration(header.TimebaseDenominator)
	}

	pump := func(ctx context.Context) {
		ticker := time.NewTicker(frameDuration)
		defer ticker.Stop()
		for ctx.Err() == nil {
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				logger.Error().Err(err).Str("file", f.Name()).Msg("video rewind")
				return
			}
			ivf, _, err := ivfreader.NewWith(f)
			if err != nil {
				logger.Error().Err(err).Str("file", f.Name()).Msg("video reader")
				return
			}
			for frames := 0; ; frames++ {
				frame, _, err := ivf.ParseNextFrame()
				if errors.Is(err, io.EOF) && frames == 0 {
					logger.Warn().Str("file", f.Name()).Msg("video file has no frames")
					return
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					logger.Error().Err(err).Str("file", f.Name()).Msg("video frame")
					return
				}
				if err := track.WriteSample(pionmedia.Sample{Data: frame, Duration: frameDuration}); err != nil {
					logger.Debug().Err(err).Msg("video write sample")
				}
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}
	}
	return track, pump, nil
}

func mimeForFourCC(fourcc string) (string, error) {
	switch fourcc {
	case "VP80":
		return webrtc.MimeTypeVP8, nil
	case "VP90":
		return webrtc.MimeTypeVP9, nil
	case "AV01":
		return webrtc.MimeTypeAV1, nil
	default:
		return "", fmt.Errorf("%w: fourcc %q", ErrUnsupportedCodec, fourcc)
	}
}

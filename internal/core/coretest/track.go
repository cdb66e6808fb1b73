package coretest

import (
	"io"
	"sync"

	"github.com/dkeye/Roulette/internal/core"
	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// FakeTrack is a remote track fed by Push and ended by End.
type FakeTrack struct {
	id       string
	streamID string
	kind     webrtc.RTPCodecType
	codec    webrtc.RTPCodecParameters

	packets chan *rtp.Packet
	endOnce sync.Once
}

var _ core.RemoteTrack = (*FakeTrack)(nil)

// NewFakeTrack makes a track carrying Opus for audio and VP8 for video.
func NewFakeTrack(id, streamID string, kind webrtc.RTPCodecType) *FakeTrack {
	codec := webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
		PayloadType:        96,
	}
	if kind == webrtc.RTPCodecTypeAudio {
		codec = webrtc.RTPCodecParameters{
			RTPCodecCapability: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
			PayloadType:        111,
		}
	}
	return &FakeTrack{id: id, streamID: streamID, kind: kind, codec: codec, packets: make(chan *rtp.Packet, 16)}
}

// WithCodec overrides the track's codec.
func (t *FakeTrack) WithCodec(mimeType string) *FakeTrack {
	t.codec.MimeType = mimeType
	return t
}

func (t *FakeTrack) ID() string                { return t.id }
func (t *FakeTrack) StreamID() string          { return t.streamID }
func (t *FakeTrack) Kind() webrtc.RTPCodecType { return t.kind }

func (t *FakeTrack) Codec() webrtc.RTPCodecParameters { return t.codec }

func (t *FakeTrack) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	pkt, ok := <-t.packets
	if !ok {
		return nil, nil, io.EOF
	}
	return pkt, nil, nil
}

func (t *FakeTrack) Push(pkt *rtp.Packet) { t.packets <- pkt }

// End makes pending and future reads return io.EOF.
func (t *FakeTrack) End() { t.endOnce.Do(func() { close(t.packets) }) }

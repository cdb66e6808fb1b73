package rtc

import (
	"fmt"
	"time"

	"github.com/dkeye/Roulette/internal/core"
	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/intervalpli"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const DefaultPLIInterval = 3 * time.Second

var DefaultICEServers = []string{"stun:stun.l.google.com:19302"}

type FactoryOptions struct {
	ICEServers  []string
	PLIInterval time.Duration
}

// Factory builds peer connections sharing one pion API: default codecs,
// default interceptors plus periodic keyframe requests, zerolog logging.
type Factory struct {
	api    *webrtc.API
	config webrtc.Configuration
}

var _ core.PeerFactory = (*Factory)(nil)

func NewFactory(opts FactoryOptions) (*Factory, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register default codecs: %w", err)
	}

	registry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, registry); err != nil {
		return nil, fmt.Errorf("register default interceptors: %w", err)
	}

	interval := opts.PLIInterval
	if interval <= 0 {
		interval = DefaultPLIInterval
	}
	intervalPli, err := intervalpli.NewReceiverInterceptor(intervalpli.GeneratorInterval(interval))
	if err != nil {
		return nil, fmt.Errorf("new interval pli: %w", err)
	}
	registry.Add(intervalPli)

	settings := webrtc.SettingEngine{LoggerFactory: LoggerFactory{Base: log.Logger}}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithInterceptorRegistry(registry),
		webrtc.WithSettingEngine(settings),
	)
	log.Info().Str("module", "webrtc").Dur("pli_interval", interval).Strs("ice_servers", opts.ICEServers).Msg("peer factory ready")
	return &Factory{api: api, config: WebRTCConfig(opts.ICEServers)}, nil
}

// WebRTCConfig builds a configuration with one ICE server entry per URL.
func WebRTCConfig(urls []string) webrtc.Configuration {
	cfg := webrtc.Configuration{}
	for _, u := range urls {
		cfg.ICEServers = append(cfg.ICEServers, webrtc.ICEServer{URLs: []string{u}})
	}
	return cfg
}

func (f *Factory) NewPeerConnection() (core.PeerConnection, error) {
	pc, err := f.api.NewPeerConnection(f.config)
	if err != nil {
		return nil, err
	}
	return newConnection(pc), nil
}

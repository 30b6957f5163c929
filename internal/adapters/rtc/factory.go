// Package rtc implements transport sessions on pion/webrtc.
package rtc

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pion/interceptor"
	"github.com/pion/logging"
	"github.com/pion/transport/v3"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/satoru2478-wq/v-calls/internal/core"
)

const candidatePoolSize = 10

type Options struct {
	ICEServers []string
	// Net replaces the host network, e.g. with a vnet in tests.
	Net transport.Net
	// LoggerFactory defaults to the zerolog bridge at warn level.
	LoggerFactory logging.LoggerFactory
}

// Factory opens one Connection per call attempt from a shared webrtc.API.
type Factory struct {
	api    *webrtc.API
	config webrtc.Configuration
}

func Configuration(servers []string) webrtc.Configuration {
	cfg := webrtc.Configuration{ICECandidatePoolSize: candidatePoolSize}
	if len(servers) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: servers}}
	}
	return cfg
}

func NewFactory(o Options) (*Factory, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}
	reg := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, reg); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	se := webrtc.SettingEngine{}
	se.LoggerFactory = o.LoggerFactory
	if se.LoggerFactory == nil {
		se.LoggerFactory = NewLoggerFactory(log.Logger, zerolog.WarnLevel)
	}
	if o.Net != nil {
		se.SetNet(o.Net)
	}

	return &Factory{
		api: webrtc.NewAPI(
			webrtc.WithMediaEngine(m),
			webrtc.WithInterceptorRegistry(reg),
			webrtc.WithSettingEngine(se),
		),
		config: Configuration(o.ICEServers),
	}, nil
}

// NewSession sends the stream's tracks, or only receives audio when the
// stream has none.
func (f *Factory) NewSession(stream core.LocalStream) (core.TransportSession, error) {
	return f.Open(stream)
}

func (f *Factory) Open(stream core.LocalStream) (*Connection, error) {
	pc, err := f.api.NewPeerConnection(f.config)
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}
	c := newConnection(pc, uuid.NewString()[:8])

	var tracks []webrtc.TrackLocal
	if stream != nil {
		tracks = stream.Tracks()
	}
	for _, t := range tracks {
		if err := c.addSender(t); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("add track %s: %w", t.ID(), err)
		}
	}
	if len(tracks) == 0 {
		if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		}); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("add audio transceiver: %w", err)
		}
	}
	return c, nil
}

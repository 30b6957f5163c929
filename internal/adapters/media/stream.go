// Package media provides audio sources and a recorder for the peer CLI.
// Sources play into a local Opus track; nothing here touches a sound card.
package media

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog/log"

	"github.com/satoru2478-wq/v-calls/internal/core"
)

// FrameDuration is the Opus frame length every source paces itself to.
const FrameDuration = 20 * time.Millisecond

func opusCapability(c core.MediaConstraints) webrtc.RTPCodecCapability {
	channels := uint16(2)
	if c.Channels == 1 {
		channels = 1
	}
	return webrtc.RTPCodecCapability{
		MimeType:    webrtc.MimeTypeOpus,
		ClockRate:   48000,
		Channels:    channels,
		SDPFmtpLine: "minptime=10;useinbandfec=1",
	}
}

func newTrack(c core.MediaConstraints) (*webrtc.TrackLocalStaticSample, error) {
	track, err := webrtc.NewTrackLocalStaticSample(opusCapability(c), "audio", "vcall-"+uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDevice, err)
	}
	return track, nil
}

// nextSample yields the next frame to play. A false ok ends the stream.
type nextSample func() (s media.Sample, ok bool)

// sampleSink is where a stream writes its frames; the track in production.
type sampleSink interface {
	WriteSample(media.Sample) error
}

// stream paces samples into its track until stopped. While muted the source
// is not read at all, so a file resumes where it paused.
type stream struct {
	track  *webrtc.TrackLocalStaticSample
	muted  atomic.Bool
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func startStream(track *webrtc.TrackLocalStaticSample, sink sampleSink, next nextSample, release func()) *stream {
	ctx, cancel := context.WithCancel(context.Background())
	s := &stream{track: track, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		if release != nil {
			defer release()
		}
		ticker := time.NewTicker(FrameDuration)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.muted.Load() {
					continue
				}
				sample, ok := next()
				if !ok {
					return
				}
				if err := sink.WriteSample(sample); err != nil {
					log.Warn().Err(err).Str("module", "media").Msg("write sample")
					return
				}
			}
		}
	}()
	return s
}

func (s *stream) Tracks() []webrtc.TrackLocal { return []webrtc.TrackLocal{s.track} }

func (s *stream) SetEnabled(on bool) {
	if s.muted.Swap(!on) != !on {
		log.Debug().Str("module", "media").Str("track", s.track.ID()).Bool("enabled", on).Msg("microphone toggled")
	}
}

func (s *stream) Stop() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

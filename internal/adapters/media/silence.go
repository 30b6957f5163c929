package media

import (
	"context"

	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog/log"

	"github.com/satoru2478-wq/v-calls/internal/core"
)

// opusSilence is one 20ms Opus frame of digital silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

// Silence is a MediaSource that never fails and sends silent Opus frames.
type Silence struct{}

func (Silence) Acquire(ctx context.Context, c core.MediaConstraints) (core.LocalStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	track, err := newTrack(c)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("module", "media").Str("track", track.ID()).Msg("silence source started")
	return startStream(track, track, func() (media.Sample, bool) {
		return media.Sample{Data: opusSilence, Duration: FrameDuration}, true
	}, nil), nil
}

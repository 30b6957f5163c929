package media

import (
	"errors"
	"fmt"
	"io"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"github.com/rs/zerolog/log"
)

// PacketReader is the part of *webrtc.TrackRemote a Recorder reads from.
type PacketReader interface {
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// Recorder writes one remote Opus track into an Ogg file.
type Recorder struct {
	path string
	w    *oggwriter.OggWriter
}

func NewRecorder(path string, channels uint16) (*Recorder, error) {
	if channels == 0 {
		channels = 2
	}
	w, err := oggwriter.New(path, 48000, channels)
	if err != nil {
		return nil, fmt.Errorf("create recording %s: %w", path, err)
	}
	return &Recorder{path: path, w: w}, nil
}

// Record copies packets until src ends. A clean end of track returns nil.
func (r *Recorder) Record(src PacketReader) error {
	written := 0
	defer func() {
		log.Info().Str("module", "media").Str("file", r.path).Int("packets", written).Msg("recording finished")
	}()
	for {
		pkt, _, err := src.ReadRTP()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read remote audio: %w", err)
		}
		if err := r.w.WriteRTP(pkt); err != nil {
			return fmt.Errorf("write recording: %w", err)
		}
		written++
	}
}

func (r *Recorder) Close() error {
	return r.w.Close()
}

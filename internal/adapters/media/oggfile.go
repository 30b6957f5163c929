package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
	"github.com/rs/zerolog/log"

	"github.com/satoru2478-wq/v-calls/internal/core"
)

// OggFile plays an Ogg/Opus file on a loop.
type OggFile struct {
	Path string
}

type oggLoop struct {
	path        string
	f           *os.File
	reader      *oggreader.OggReader
	lastGranule uint64
}

func openOgg(path string) (*os.File, *oggreader.OggReader, *oggreader.OggHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, nil, nil, fmt.Errorf("%w: %v", core.ErrPermissionDenied, err)
		}
		return nil, nil, nil, fmt.Errorf("%w: %v", core.ErrDevice, err)
	}
	reader, header, err := oggreader.NewWith(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, nil, fmt.Errorf("%w: %s is not Ogg/Opus: %v", core.ErrDevice, path, err)
	}
	return f, reader, header, nil
}

func (o OggFile) Acquire(ctx context.Context, c core.MediaConstraints) (core.LocalStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, reader, header, err := openOgg(o.Path)
	if err != nil {
		return nil, err
	}
	c.Channels = int(header.Channels)
	track, err := newTrack(c)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	l := &oggLoop{path: o.Path, f: f, reader: reader}
	log.Info().Str("module", "media").Str("file", o.Path).Uint8("channels", header.Channels).Msg("playing file")
	return startStream(track, track, l.next, l.close), nil
}

func (l *oggLoop) next() (media.Sample, bool) {
	rewound := false
	for {
		page, header, err := l.reader.ParseNextPage()
		if errors.Is(err, io.EOF) {
			if rewound {
				return media.Sample{}, false
			}
			if err := l.rewind(); err != nil {
				log.Warn().Err(err).Str("module", "media").Msg("rewind failed")
				return media.Sample{}, false
			}
			rewound = true
			continue
		}
		if err != nil {
			log.Warn().Err(err).Str("module", "media").Msg("read ogg page")
			return media.Sample{}, false
		}
		if bytes.HasPrefix(page, []byte("OpusTags")) {
			continue
		}
		count := header.GranulePosition - l.lastGranule
		l.lastGranule = header.GranulePosition
		d := time.Duration(count) * time.Second / 48000
		if d <= 0 || d > time.Second {
			d = FrameDuration
		}
		return media.Sample{Data: page, Duration: d}, true
	}
}

// rewind reopens the file, since the reader has already consumed the ID header.
func (l *oggLoop) rewind() error {
	l.close()
	f, reader, _, err := openOgg(l.path)
	if err != nil {
		return err
	}
	l.f, l.reader, l.lastGranule = f, reader, 0
	return nil
}

func (l *oggLoop) close() {
	if l.f != nil {
		_ = l.f.Close()
		l.f = nil
	}
}

package core

//go:generate mockgen -destination=mocks/mock_media.go -package=mocks . MediaSource,LocalStream,TransportSession,TransportFactory

import (
	"context"
	"errors"
	"time"

	"github.com/pion/webrtc/v4"
)

var (
	ErrPermissionDenied = errors.New("media: permission denied")
	ErrDevice           = errors.New("media: device error")
)

// MediaConstraints mirrors what a browser peer asks getUserMedia for.
type MediaConstraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
	Latency          time.Duration
	SampleRate       int
	Channels         int
}

func DefaultAudioConstraints() MediaConstraints {
	return MediaConstraints{
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
		Latency:          0,
		SampleRate:       48000,
		Channels:         2,
	}
}

// LocalStream is acquired audio ready to be attached to a TransportSession.
type LocalStream interface {
	Tracks() []webrtc.TrackLocal
	// SetEnabled mutes (false) or unmutes the capture without releasing it.
	SetEnabled(on bool)
	// Stop releases the capture. Safe to call more than once.
	Stop()
}

// MediaSource fails with ErrPermissionDenied or ErrDevice.
type MediaSource interface {
	Acquire(ctx context.Context, c MediaConstraints) (LocalStream, error)
}

// TransportSession is the negotiated audio channel as the engine sees it.
// Every call may fail independently.
type TransportSession interface {
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(webrtc.SessionDescription) error
	SetRemoteDescription(webrtc.SessionDescription) error
	// AddICECandidate applies a remote ICE candidate.
	AddICECandidate(webrtc.ICECandidateInit) error
	// OnLocalCandidate sets a callback for newly gathered local ICE candidates.
	OnLocalCandidate(func(webrtc.ICECandidateInit))
	// OnRemoteTrack sets a callback that will be invoked when remote audio arrives.
	OnRemoteTrack(func(*webrtc.TrackRemote))
	Close() error
}

// TransportFactory opens one TransportSession per call attempt.
type TransportFactory interface {
	NewSession(stream LocalStream) (TransportSession, error)
}

package rtc

import (
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Connection is a trickle-ICE PeerConnection behind core.TransportSession.
type Connection struct {
	pc     *webrtc.PeerConnection
	id     string
	logger zerolog.Logger

	mu      sync.Mutex
	onICE   func(webrtc.ICECandidateInit)
	onTrack func(*webrtc.TrackRemote)

	connected     chan struct{}
	connectedOnce sync.Once
	closeOnce     sync.Once
}

func newConnection(pc *webrtc.PeerConnection, id string) *Connection {
	c := &Connection{
		pc:        pc,
		id:        id,
		logger:    log.With().Str("module", "webrtc").Str("conn", id).Logger(),
		connected: make(chan struct{}),
	}

	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		c.logger.Info().Str("ice_state", s.String()).Msg("ICE state")
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		c.logger.Info().Str("peer_connection_state", s.String()).Msg("Peer state")
		if s == webrtc.PeerConnectionStateConnected {
			c.connectedOnce.Do(func() { close(c.connected) })
		}
	})

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		c.mu.Lock()
		fn := c.onICE
		c.mu.Unlock()
		if fn != nil {
			fn(cand.ToJSON())
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		c.logger.Info().
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Str("codec", track.Codec().MimeType).
			Msg("OnTrack received")
		c.mu.Lock()
		fn := c.onTrack
		c.mu.Unlock()
		if fn != nil {
			fn(track)
		}
	})

	return c
}

func (c *Connection) CreateOffer() (webrtc.SessionDescription, error) {
	return c.pc.CreateOffer(nil)
}

func (c *Connection) CreateAnswer() (webrtc.SessionDescription, error) {
	return c.pc.CreateAnswer(nil)
}

func (c *Connection) SetLocalDescription(d webrtc.SessionDescription) error {
	return c.pc.SetLocalDescription(d)
}

func (c *Connection) SetRemoteDescription(d webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(d)
}

func (c *Connection) AddICECandidate(ci webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(ci)
}

// OnLocalCandidate sets the callback for gathered candidates. Gathering
// starts with SetLocalDescription, so set it before that.
func (c *Connection) OnLocalCandidate(fn func(webrtc.ICECandidateInit)) {
	c.mu.Lock()
	c.onICE = fn
	c.mu.Unlock()
}

// OnRemoteTrack sets application-level callback for remote tracks.
func (c *Connection) OnRemoteTrack(fn func(*webrtc.TrackRemote)) {
	c.mu.Lock()
	c.onTrack = fn
	c.mu.Unlock()
}

// Connected is closed once the peer connection first reports connected.
func (c *Connection) Connected() <-chan struct{} { return c.connected }

func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if err = c.pc.Close(); err != nil {
			c.logger.Error().Err(err).Msg("close error")
			return
		}
		c.logger.Info().Msg("closed")
	})
	return err
}

// addSender attaches track and drains its RTCP so the interceptors keep running.
func (c *Connection) addSender(track webrtc.TrackLocal) error {
	sender, err := c.pc.AddTrack(track)
	if err != nil {
		return err
	}
	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()
	return nil
}

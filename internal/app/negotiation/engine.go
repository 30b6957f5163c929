package negotiation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/satoru2478-wq/v-calls/internal/core"
	"github.com/satoru2478-wq/v-calls/internal/domain"
)

const defaultQueueSize = 64

// Handlers are optional callbacks. They run on the engine's goroutine
// (OnRemoteTrack on the transport's) and must not block.
type Handlers struct {
	OnPhase       func(Phase)
	OnError       func(error)
	OnChat        func(text string)
	OnRemoteTrack func(*webrtc.TrackRemote)
}

type Config struct {
	Constraints core.MediaConstraints
	BufferLimit int
	QueueSize   int
}

func DefaultConfig() Config {
	return Config{
		Constraints: core.DefaultAudioConstraints(),
		BufferLimit: DefaultBufferLimit,
		QueueSize:   defaultQueueSize,
	}
}

type Deps struct {
	Session    *domain.Session
	Signal     core.SignalConnection
	Media      core.MediaSource
	Transports core.TransportFactory
	Handlers   Handlers
}

// Engine owns one call attempt. Events are handled one at a time by Run;
// Hangup may be called from anywhere.
type Engine struct {
	session    *domain.Session
	signal     core.SignalConnection
	media      core.MediaSource
	transports core.TransportFactory
	handlers   Handlers
	cfg        Config
	peerID     string
	logger     zerolog.Logger

	events  chan Event
	done    chan struct{}
	endOnce sync.Once

	mu        sync.Mutex
	phase     Phase
	remoteSet bool
	buffer    *CandidateBuffer
	stream    core.LocalStream
	transport core.TransportSession
	local     webrtc.SessionDescription
	micOff    bool
}

func New(d Deps, cfg Config) *Engine {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.BufferLimit <= 0 {
		cfg.BufferLimit = DefaultBufferLimit
	}
	return &Engine{
		session:    d.Session,
		signal:     d.Signal,
		media:      d.Media,
		transports: d.Transports,
		handlers:   d.Handlers,
		cfg:        cfg,
		peerID:     uuid.NewString(),
		logger: log.With().
			Str("module", "negotiation").
			Str("room", string(d.Session.Room())).
			Str("role", string(d.Session.Role())).
			Logger(),
		events: make(chan Event, cfg.QueueSize),
		done:   make(chan struct{}),
		buffer: NewCandidateBuffer(cfg.BufferLimit),
	}
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{Phase: e.phase, Role: e.session.Role(), RemoteSet: e.remoteSet}
}

func (e *Engine) Phase() Phase { return e.Snapshot().Phase }

// Done is closed once the call has ended.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Run processes events until the call ends or ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			e.Hangup()
			return ctx.Err()
		case <-e.done:
			return nil
		case ev := <-e.events:
			e.Step(ctx, ev)
		}
	}
}

// Start begins the call: acquire audio, open the transport, announce ready.
func (e *Engine) Start() { e.post(Event{Kind: EventStart}) }

func (e *Engine) SendChat(text string) { e.post(Event{Kind: EventSendChat, Text: text}) }

// SetMicEnabled mutes or unmutes local audio. The choice also applies to a
// stream acquired later. It reports whether a stream is live right now.
func (e *Engine) SetMicEnabled(on bool) bool {
	e.mu.Lock()
	e.micOff = !on
	stream := e.stream
	e.mu.Unlock()
	if stream == nil {
		return false
	}
	stream.SetEnabled(on)
	e.logger.Info().Bool("mic", on).Msg("microphone toggled")
	return true
}

// Deliver takes one frame from the relay. Frames for other rooms are dropped
// before anything else looks at them.
func (e *Engine) Deliver(f core.Frame) {
	m, err := core.DecodeMessage(f)
	if err != nil {
		e.logger.Warn().Err(err).Msg("dropping undecodable frame")
		return
	}
	if m.Room != e.session.Room() {
		e.logger.Debug().Str("foreign_room", string(m.Room)).Msg("dropping foreign room message")
		return
	}
	if err := m.Validate(); err != nil {
		e.logger.Warn().Err(err).Msg("dropping malformed message")
		return
	}
	e.post(eventFromMessage(m))
}

// Hangup releases media and closes the transport synchronously. A step that
// is still running notices and stops when its current call returns.
func (e *Engine) Hangup() {
	e.mu.Lock()
	if e.phase == PhaseEnded {
		e.mu.Unlock()
		return
	}
	e.phase = PhaseEnded
	stream, t := e.stream, e.transport
	e.stream, e.transport = nil, nil
	e.mu.Unlock()

	e.endOnce.Do(func() { close(e.done) })
	if stream != nil {
		stream.Stop()
	}
	if t != nil {
		if err := t.Close(); err != nil {
			e.logger.Warn().Err(err).Msg("transport close")
		}
	}
	e.logger.Info().Msg("call ended")
	e.emitPhase(PhaseEnded)
}

// Step handles a single event. Run calls it; tests drive it directly.
func (e *Engine) Step(ctx context.Context, ev Event) {
	snap := e.Snapshot()
	plan := Transition(snap, ev)
	if len(plan.Effects) == 0 && plan.Next == snap.Phase {
		e.logger.Debug().Str("phase", snap.Phase.String()).Str("event", ev.Kind.String()).Msg("event ignored")
		return
	}

	for _, eff := range plan.Effects {
		if err := e.run(ctx, eff, ev); err != nil {
			e.report(eff, err)
			return
		}
		if plan.Next != PhaseEnded && e.Phase() == PhaseEnded {
			e.logger.Debug().Str("effect", eff.String()).Msg("call ended during step, dropping the rest")
			return
		}
	}
	e.commit(plan.Next)
}

func (e *Engine) commit(next Phase) {
	e.mu.Lock()
	if e.phase == next || e.phase == PhaseEnded {
		e.mu.Unlock()
		return
	}
	prev := e.phase
	e.phase = next
	e.mu.Unlock()

	e.logger.Info().Str("from", prev.String()).Str("to", next.String()).Msg("phase change")
	e.emitPhase(next)
}

func (e *Engine) run(ctx context.Context, eff Effect, ev Event) error {
	switch eff {
	case EffectAcquireMedia:
		return e.acquireMedia(ctx)
	case EffectOpenTransport:
		return e.openTransport()
	case EffectSendReady:
		e.send(core.Message{Type: core.TypeReady, Role: e.session.Role(), Peer: e.peerID})
	case EffectCreateOffer:
		return e.createLocal(webrtc.SDPTypeOffer)
	case EffectCreateAnswer:
		return e.createLocal(webrtc.SDPTypeAnswer)
	case EffectSendOffer, EffectSendAnswer:
		e.mu.Lock()
		local := e.local
		e.mu.Unlock()
		typ := core.TypeOffer
		if eff == EffectSendAnswer {
			typ = core.TypeAnswer
		}
		e.send(core.Message{Type: typ, SDP: &local})
	case EffectSetRemote:
		return e.setRemote(ev.SDP)
	case EffectDrainBuffer:
		return e.drain()
	case EffectApplyCandidate:
		t, err := e.currentTransport()
		if err != nil {
			return negotiationErr("add candidate", err)
		}
		if err := t.AddICECandidate(ev.Candidate); err != nil {
			return negotiationErr("add candidate", err)
		}
	case EffectBufferCandidate:
		e.mu.Lock()
		ok := e.buffer.Push(ev.Candidate)
		n := e.buffer.Len()
		e.mu.Unlock()
		if !ok {
			return ErrBufferFull
		}
		e.logger.Debug().Int("buffered", n).Msg("candidate buffered")
	case EffectSendCandidate:
		c := ev.Candidate
		e.send(core.Message{Type: core.TypeCandidate, Candidate: &c})
	case EffectDeliverChat:
		if h := e.handlers.OnChat; h != nil {
			h(ev.Text)
		}
	case EffectSendChat:
		e.send(core.Message{Type: core.TypeChat, Text: ev.Text})
	case EffectReportGlare:
		return fmt.Errorf("%w (from peer %q)", ErrGlare, ev.FromPeer)
	case EffectRelease:
		e.Hangup()
	default:
		return fmt.Errorf("unknown effect %v", eff)
	}
	return nil
}

func (e *Engine) acquireMedia(ctx context.Context) error {
	stream, err := e.media.Acquire(ctx, e.cfg.Constraints)
	if err != nil {
		if errors.Is(err, core.ErrPermissionDenied) {
			return &PermissionError{Err: err}
		}
		return fmt.Errorf("acquire media: %w", err)
	}
	e.mu.Lock()
	if e.phase == PhaseEnded {
		e.mu.Unlock()
		stream.Stop()
		return ErrEnded
	}
	e.stream = stream
	if e.micOff {
		stream.SetEnabled(false)
	}
	e.mu.Unlock()
	return nil
}

func (e *Engine) openTransport() error {
	e.mu.Lock()
	stream := e.stream
	e.mu.Unlock()

	t, err := e.transports.NewSession(stream)
	if err != nil {
		e.releaseStream(stream)
		return negotiationErr("open transport", err)
	}
	t.OnLocalCandidate(func(c webrtc.ICECandidateInit) {
		e.post(Event{Kind: EventLocalCandidate, Candidate: c})
	})
	t.OnRemoteTrack(func(track *webrtc.TrackRemote) {
		e.logger.Info().Msg("remote audio live")
		if h := e.handlers.OnRemoteTrack; h != nil {
			h(track)
		}
	})

	e.mu.Lock()
	if e.phase == PhaseEnded {
		e.mu.Unlock()
		_ = t.Close()
		return ErrEnded
	}
	e.transport = t
	e.mu.Unlock()
	return nil
}

func (e *Engine) releaseStream(stream core.LocalStream) {
	e.mu.Lock()
	if e.stream == stream {
		e.stream = nil
	}
	e.mu.Unlock()
	if stream != nil {
		stream.Stop()
	}
}

func (e *Engine) createLocal(typ webrtc.SDPType) error {
	t, err := e.currentTransport()
	if err != nil {
		return negotiationErr("create "+typ.String(), err)
	}
	var d webrtc.SessionDescription
	if typ == webrtc.SDPTypeOffer {
		d, err = t.CreateOffer()
	} else {
		d, err = t.CreateAnswer()
	}
	if err != nil {
		return negotiationErr("create "+typ.String(), err)
	}
	if err := t.SetLocalDescription(d); err != nil {
		return negotiationErr("set local "+typ.String(), err)
	}
	e.mu.Lock()
	e.local = d
	e.mu.Unlock()
	return nil
}

func (e *Engine) setRemote(d webrtc.SessionDescription) error {
	t, err := e.currentTransport()
	if err != nil {
		return negotiationErr("set remote "+d.Type.String(), err)
	}
	if err := t.SetRemoteDescription(d); err != nil {
		return negotiationErr("set remote "+d.Type.String(), err)
	}
	e.mu.Lock()
	e.remoteSet = true
	e.mu.Unlock()
	return nil
}

// drain applies buffered candidates in arrival order. A candidate that fails
// is logged and skipped.
func (e *Engine) drain() error {
	e.mu.Lock()
	items := e.buffer.Drain()
	t := e.transport
	e.mu.Unlock()
	if len(items) == 0 {
		return nil
	}
	if t == nil {
		return negotiationErr("drain candidates", ErrNoTransport)
	}
	for i, c := range items {
		if e.Phase() == PhaseEnded {
			return ErrEnded
		}
		if err := t.AddICECandidate(c); err != nil {
			e.logger.Warn().Err(err).Int("index", i).Msg("buffered candidate rejected")
		}
	}
	e.logger.Debug().Int("applied", len(items)).Msg("candidate buffer drained")
	return nil
}

func (e *Engine) currentTransport() (core.TransportSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.transport == nil {
		return nil, ErrNoTransport
	}
	return e.transport, nil
}

func (e *Engine) send(m core.Message) {
	m.Room = e.session.Room()
	f, err := m.Encode()
	if err != nil {
		e.logger.Error().Err(err).Msg("encode message")
		return
	}
	if err := e.signal.TrySend(f); err != nil {
		e.logger.Warn().Err(err).Str("type", string(m.Type)).Msg("signal send failed")
	}
}

func (e *Engine) post(ev Event) {
	select {
	case e.events <- ev:
	case <-e.done:
	}
}

func (e *Engine) report(eff Effect, err error) {
	var perm *PermissionError
	switch {
	case errors.Is(err, ErrEnded):
		e.logger.Debug().Str("effect", eff.String()).Msg("result arrived after hangup, ignored")
	case errors.As(err, &perm), errors.Is(err, ErrGlare):
		e.logger.Warn().Err(err).Str("effect", eff.String()).Msg("call attempt failed")
		if h := e.handlers.OnError; h != nil {
			h(err)
		}
	case errors.Is(err, ErrBufferFull):
		e.logger.Warn().Int("limit", e.cfg.BufferLimit).Msg("candidate dropped, buffer full")
	default:
		e.logger.Error().Err(err).Str("effect", eff.String()).Msg("negotiation step failed")
	}
}

func (e *Engine) emitPhase(p Phase) {
	if h := e.handlers.OnPhase; h != nil {
		h(p)
	}
}

func eventFromMessage(m core.Message) Event {
	switch m.Type {
	case core.TypeReady:
		return Event{Kind: EventReady, FromRole: m.Role, FromPeer: m.Peer}
	case core.TypeOffer:
		return Event{Kind: EventOffer, SDP: withType(*m.SDP, webrtc.SDPTypeOffer)}
	case core.TypeAnswer:
		return Event{Kind: EventAnswer, SDP: withType(*m.SDP, webrtc.SDPTypeAnswer)}
	case core.TypeCandidate:
		return Event{Kind: EventRemoteCandidate, Candidate: *m.Candidate}
	default:
		return Event{Kind: EventChat, Text: m.Text}
	}
}

func withType(d webrtc.SessionDescription, typ webrtc.SDPType) webrtc.SessionDescription {
	if d.Type == webrtc.SDPTypeUnknown {
		d.Type = typ
	}
	return d
}

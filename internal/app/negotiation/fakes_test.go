package negotiation

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/satoru2478-wq/v-calls/internal/core"
	"github.com/satoru2478-wq/v-calls/internal/domain"
)

type fakeSignal struct {
	mu   sync.Mutex
	sent []core.Message
	err  error
}

func (s *fakeSignal) TrySend(f core.Frame) error {
	m, err := core.DecodeMessage(f)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, m)
	return s.err
}

func (s *fakeSignal) Close() {}

func (s *fakeSignal) types() []core.MessageType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.MessageType, 0, len(s.sent))
	for _, m := range s.sent {
		out = append(out, m.Type)
	}
	return out
}

func (s *fakeSignal) last() core.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return core.Message{}
	}
	return s.sent[len(s.sent)-1]
}

type fakeStream struct {
	stopped atomic.Int32
	muted   atomic.Bool
}

func (s *fakeStream) Tracks() []webrtc.TrackLocal { return nil }

func (s *fakeStream) SetEnabled(on bool) { s.muted.Store(!on) }

func (s *fakeStream) Stop() { s.stopped.Add(1) }

type fakeMedia struct {
	err     error
	entered chan struct{}
	gate    chan struct{}
	stream  *fakeStream
}

func (m *fakeMedia) Acquire(ctx context.Context, _ core.MediaConstraints) (core.LocalStream, error) {
	if m.entered != nil {
		close(m.entered)
	}
	if m.gate != nil {
		<-m.gate
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.stream, nil
}

// fakeTransport records every call as a short string, e.g. "set-remote:answer"
// or "add:<candidate>".
type fakeTransport struct {
	mu      sync.Mutex
	calls   []string
	fail    map[string]error
	onLocal func(webrtc.ICECandidateInit)
	closed  int
}

func (t *fakeTransport) record(call string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, call)
	return t.fail[call]
}

func (t *fakeTransport) CreateOffer() (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0 offer"}, t.record("create-offer")
}

func (t *fakeTransport) CreateAnswer() (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0 answer"}, t.record("create-answer")
}

func (t *fakeTransport) SetLocalDescription(d webrtc.SessionDescription) error {
	return t.record("set-local:" + d.Type.String())
}

func (t *fakeTransport) SetRemoteDescription(d webrtc.SessionDescription) error {
	return t.record("set-remote:" + d.Type.String())
}

func (t *fakeTransport) AddICECandidate(c webrtc.ICECandidateInit) error {
	return t.record("add:" + c.Candidate)
}

func (t *fakeTransport) OnLocalCandidate(f func(webrtc.ICECandidateInit)) {
	t.mu.Lock()
	t.onLocal = f
	t.mu.Unlock()
}

func (t *fakeTransport) OnRemoteTrack(func(*webrtc.TrackRemote)) {}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	t.closed++
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) log() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.calls...)
}

func (t *fakeTransport) added() []string {
	var out []string
	for _, c := range t.log() {
		if len(c) > 4 && c[:4] == "add:" {
			out = append(out, c[4:])
		}
	}
	return out
}

type fakeFactory struct {
	t      *fakeTransport
	err    error
	opened atomic.Int32
}

func (f *fakeFactory) NewSession(core.LocalStream) (core.TransportSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.opened.Add(1)
	return f.t, nil
}

type harness struct {
	e         *Engine
	signal    *fakeSignal
	media     *fakeMedia
	transport *fakeTransport
	factory   *fakeFactory

	mu     sync.Mutex
	errs   []error
	phases []Phase
	chats  []string
}

func newHarness(t *testing.T, session *domain.Session, cfg Config) *harness {
	t.Helper()
	h := &harness{
		signal:    &fakeSignal{},
		media:     &fakeMedia{stream: &fakeStream{}},
		transport: &fakeTransport{fail: map[string]error{}},
	}
	h.factory = &fakeFactory{t: h.transport}
	h.e = New(Deps{
		Session:    session,
		Signal:     h.signal,
		Media:      h.media,
		Transports: h.factory,
		Handlers: Handlers{
			OnPhase: func(p Phase) { h.mu.Lock(); h.phases = append(h.phases, p); h.mu.Unlock() },
			OnError: func(err error) { h.mu.Lock(); h.errs = append(h.errs, err); h.mu.Unlock() },
			OnChat:  func(s string) { h.mu.Lock(); h.chats = append(h.chats, s); h.mu.Unlock() },
		},
	}, cfg)
	return h
}

func initiatorHarness(t *testing.T) *harness {
	t.Helper()
	s, err := domain.NewSession("")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return newHarness(t, s, DefaultConfig())
}

func responderHarness(t *testing.T) *harness {
	t.Helper()
	s, err := domain.NewSession("room42")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return newHarness(t, s, DefaultConfig())
}

// pump steps every queued event, including ones queued while stepping.
func (h *harness) pump() {
	for {
		select {
		case ev := <-h.e.events:
			h.e.Step(context.Background(), ev)
		default:
			return
		}
	}
}

func (h *harness) deliver(t *testing.T, m core.Message) {
	t.Helper()
	if m.Room == "" {
		m.Room = h.e.session.Room()
	}
	f, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode(%v): %v", m.Type, err)
	}
	h.e.Deliver(f)
	h.pump()
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	h.e.Start()
	h.pump()
}

func (h *harness) reported() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]error(nil), h.errs...)
}

func offerMsg() core.Message {
	return core.Message{Type: core.TypeOffer, SDP: &webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0 remote offer"}}
}

func answerMsg() core.Message {
	return core.Message{Type: core.TypeAnswer, SDP: &webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0 remote answer"}}
}

func candidateMsg(s string) core.Message {
	mid := "0"
	var idx uint16
	return core.Message{Type: core.TypeCandidate, Candidate: &webrtc.ICECandidateInit{Candidate: s, SDPMid: &mid, SDPMLineIndex: &idx}}
}

func readyMsg(role domain.Role) core.Message {
	return core.Message{Type: core.TypeReady, Role: role, Peer: "other-peer"}
}

package negotiation

import (
	"context"
	"testing"

	"github.com/pion/webrtc/v4"
	"go.uber.org/mock/gomock"

	"github.com/satoru2478-wq/v-calls/internal/core"
	"github.com/satoru2478-wq/v-calls/internal/core/mocks"
	"github.com/satoru2478-wq/v-calls/internal/domain"
)

func TestResponderCallOrderWithMocks(t *testing.T) {
	ctrl := gomock.NewController(t)

	stream := mocks.NewMockLocalStream(ctrl)
	media := mocks.NewMockMediaSource(ctrl)
	transport := mocks.NewMockTransportSession(ctrl)
	factory := mocks.NewMockTransportFactory(ctrl)

	session, err := domain.NewSession("abc123")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0 offer"}
	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0 answer"}
	first := webrtc.ICECandidateInit{Candidate: "candidate:1"}
	second := webrtc.ICECandidateInit{Candidate: "candidate:2"}
	late := webrtc.ICECandidateInit{Candidate: "candidate:3"}

	gomock.InOrder(
		media.EXPECT().Acquire(gomock.Any(), core.DefaultAudioConstraints()).Return(stream, nil),
		factory.EXPECT().NewSession(stream).Return(transport, nil),
		transport.EXPECT().OnLocalCandidate(gomock.Any()),
		transport.EXPECT().OnRemoteTrack(gomock.Any()),
		transport.EXPECT().SetRemoteDescription(offer).Return(nil),
		transport.EXPECT().CreateAnswer().Return(answer, nil),
		transport.EXPECT().SetLocalDescription(answer).Return(nil),
		transport.EXPECT().AddICECandidate(first).Return(nil),
		transport.EXPECT().AddICECandidate(second).Return(nil),
		transport.EXPECT().AddICECandidate(late).Return(nil),
		stream.EXPECT().Stop(),
		transport.EXPECT().Close().Return(nil),
	)

	signal := &fakeSignal{}
	e := New(Deps{Session: session, Signal: signal, Media: media, Transports: factory}, DefaultConfig())
	ctx := context.Background()

	e.Step(ctx, Event{Kind: EventStart})
	e.Step(ctx, Event{Kind: EventRemoteCandidate, Candidate: first})
	e.Step(ctx, Event{Kind: EventRemoteCandidate, Candidate: second})
	e.Step(ctx, Event{Kind: EventOffer, SDP: offer})
	e.Step(ctx, Event{Kind: EventRemoteCandidate, Candidate: late})
	e.Step(ctx, Event{Kind: EventAnswer, SDP: answer})
	e.Hangup()

	if got := signal.last(); got.Type != core.TypeAnswer || got.SDP == nil || got.SDP.SDP != answer.SDP {
		t.Fatalf("last sent = %+v, want the answer", got)
	}
}

// Package negotiation drives one peer's offer/answer/candidate exchange.
//
// The protocol is expressed as a pure transition function over a Snapshot
// (phase, role, whether a remote description is set) and an Event. The
// resulting Plan lists effects in execution order; the Engine runs them and
// commits the next phase only when all of them succeed.
package negotiation

import (
	"fmt"

	"github.com/pion/webrtc/v4"

	"github.com/satoru2478-wq/v-calls/internal/domain"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingPeer
	PhaseOfferExchanged
	PhaseAwaitingOffer
	PhaseConnected
	PhaseEnded
)

var phaseNames = [...]string{
	PhaseIdle:           "idle",
	PhaseAwaitingPeer:   "awaiting-peer",
	PhaseOfferExchanged: "offer-exchanged",
	PhaseAwaitingOffer:  "awaiting-offer",
	PhaseConnected:      "connected",
	PhaseEnded:          "ended",
}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// PreConnected reports whether remote candidates may still need buffering.
func (p Phase) PreConnected() bool {
	return p != PhaseConnected && p != PhaseEnded
}

type EventKind int

const (
	// EventStart is the user starting (Initiator) or joining (Responder) a call.
	EventStart EventKind = iota
	EventReady
	EventOffer
	EventAnswer
	EventRemoteCandidate
	EventLocalCandidate
	EventChat
	EventSendChat
	EventHangup
)

var eventNames = [...]string{
	EventStart:           "start",
	EventReady:           "ready",
	EventOffer:           "offer",
	EventAnswer:          "answer",
	EventRemoteCandidate: "remote-candidate",
	EventLocalCandidate:  "local-candidate",
	EventChat:            "chat",
	EventSendChat:        "send-chat",
	EventHangup:          "hangup",
}

func (k EventKind) String() string {
	if k >= 0 && int(k) < len(eventNames) {
		return eventNames[k]
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is one input to the state machine. Only the fields matching Kind
// are meaningful.
type Event struct {
	Kind      EventKind
	SDP       webrtc.SessionDescription
	Candidate webrtc.ICECandidateInit
	Text      string
	// FromRole is the role a ready sender announced, empty when it did not.
	FromRole domain.Role
	FromPeer string
}

type Snapshot struct {
	Phase     Phase
	Role      domain.Role
	RemoteSet bool
}

type Effect int

const (
	EffectAcquireMedia Effect = iota
	EffectOpenTransport
	EffectSendReady
	// EffectCreateOffer builds the offer and sets it as local description.
	EffectCreateOffer
	EffectSendOffer
	EffectSetRemote
	// EffectCreateAnswer builds the answer and sets it as local description.
	EffectCreateAnswer
	EffectSendAnswer
	EffectDrainBuffer
	EffectApplyCandidate
	EffectBufferCandidate
	EffectSendCandidate
	EffectDeliverChat
	EffectSendChat
	EffectReportGlare
	EffectRelease
)

var effectNames = [...]string{
	EffectAcquireMedia:    "acquire-media",
	EffectOpenTransport:   "open-transport",
	EffectSendReady:       "send-ready",
	EffectCreateOffer:     "create-offer",
	EffectSendOffer:       "send-offer",
	EffectSetRemote:       "set-remote",
	EffectCreateAnswer:    "create-answer",
	EffectSendAnswer:      "send-answer",
	EffectDrainBuffer:     "drain-buffer",
	EffectApplyCandidate:  "apply-candidate",
	EffectBufferCandidate: "buffer-candidate",
	EffectSendCandidate:   "send-candidate",
	EffectDeliverChat:     "deliver-chat",
	EffectSendChat:        "send-chat",
	EffectReportGlare:     "report-glare",
	EffectRelease:         "release",
}

func (e Effect) String() string {
	if e >= 0 && int(e) < len(effectNames) {
		return effectNames[e]
	}
	return fmt.Sprintf("effect(%d)", int(e))
}

// Plan is what Transition decided: run Effects in order, then move to Next.
type Plan struct {
	Next    Phase
	Effects []Effect
}

package negotiation

import "github.com/satoru2478-wq/v-calls/internal/domain"

func stay(s Snapshot, effects ...Effect) Plan {
	return Plan{Next: s.Phase, Effects: effects}
}

func move(next Phase, effects ...Effect) Plan {
	return Plan{Next: next, Effects: effects}
}

// Transition is the whole protocol. It has no side effects; every pair not
// listed below leaves the phase unchanged and does nothing.
func Transition(s Snapshot, ev Event) Plan {
	if s.Phase == PhaseEnded {
		return stay(s)
	}
	initiator := s.Role == domain.RoleInitiator

	switch ev.Kind {
	case EventHangup:
		return move(PhaseEnded, EffectRelease)

	case EventStart:
		if s.Phase != PhaseIdle {
			return stay(s)
		}
		next := PhaseAwaitingOffer
		if initiator {
			next = PhaseAwaitingPeer
		}
		return move(next, EffectAcquireMedia, EffectOpenTransport, EffectSendReady)

	case EventReady:
		if !initiator || s.Phase != PhaseAwaitingPeer {
			return stay(s)
		}
		if ev.FromRole == domain.RoleInitiator {
			return stay(s, EffectReportGlare)
		}
		return move(PhaseOfferExchanged, EffectCreateOffer, EffectSendOffer)

	case EventOffer:
		if initiator {
			if s.Phase == PhaseAwaitingPeer || s.Phase == PhaseOfferExchanged {
				return stay(s, EffectReportGlare)
			}
			return stay(s)
		}
		if s.Phase != PhaseAwaitingOffer {
			return stay(s)
		}
		return move(PhaseConnected, EffectSetRemote, EffectCreateAnswer, EffectSendAnswer, EffectDrainBuffer)

	case EventAnswer:
		if !initiator || s.Phase != PhaseOfferExchanged {
			return stay(s)
		}
		return move(PhaseConnected, EffectSetRemote, EffectDrainBuffer)

	case EventRemoteCandidate:
		if !s.Phase.PreConnected() || s.RemoteSet {
			return stay(s, EffectApplyCandidate)
		}
		return stay(s, EffectBufferCandidate)

	case EventLocalCandidate:
		return stay(s, EffectSendCandidate)

	case EventChat:
		return stay(s, EffectDeliverChat)

	case EventSendChat:
		return stay(s, EffectSendChat)
	}
	return stay(s)
}

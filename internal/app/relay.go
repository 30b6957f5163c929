package app

import (
	"github.com/rs/zerolog/log"

	"github.com/satoru2478-wq/v-calls/internal/core"
)

// Relay forwards opaque frames from one connection to all the others.
// It parses nothing and keeps nothing once a frame is queued.
type Relay struct {
	Hub    *core.Hub
	Policy Policy
}

func NewRelay(hub *core.Hub, policy Policy) *Relay {
	return &Relay{Hub: hub, Policy: policy}
}

func (r *Relay) Accept(sid core.SessionID, conn core.SignalConnection) {
	r.Hub.Add(sid, conn)
}

func (r *Relay) OnMessage(sid core.SessionID, data core.Frame) {
	res := r.Hub.Broadcast(sid, data)
	if r.Policy == nil {
		return
	}
	for _, d := range res.Dropped {
		switch r.Policy.OnBackPressure(d.SID, d.Err) {
		case KickMember:
			if conn, ok := r.Hub.Remove(d.SID); ok {
				log.Warn().Str("module", "app.relay").Str("sid", string(d.SID)).Msg("kicking slow connection")
				conn.Close()
			}
		case DropFrame:
			log.Debug().Str("module", "app.relay").Str("sid", string(d.SID)).Err(d.Err).Msg("frame dropped")
		case NoAction:
		}
	}
}

// OnClose forgets sid. The other peers are not told.
func (r *Relay) OnClose(sid core.SessionID) {
	r.Hub.Remove(sid)
}

package core

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Delivery records one recipient that did not get a frame.
type Delivery struct {
	SID SessionID
	Err error
}

// PublishResult reports delivery stats/backpressure to the relay.
type PublishResult struct {
	SendTo  int
	Dropped []Delivery
}

// Hub is the relay's open-connection set. It has no notion of rooms and
// never touches adapter-owned resources.
type Hub struct {
	mu    sync.RWMutex
	bySID map[SessionID]SignalConnection
}

func NewHub() *Hub {
	return &Hub{bySID: make(map[SessionID]SignalConnection)}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.bySID)
}

func (h *Hub) Add(sid SessionID, conn SignalConnection) {
	h.mu.Lock()
	h.bySID[sid] = conn
	n := len(h.bySID)
	h.mu.Unlock()
	log.Info().Str("module", "core.hub").Str("sid", string(sid)).Int("open", n).Msg("connection added")
}

// Remove drops sid from the set and returns its connection, if any.
func (h *Hub) Remove(sid SessionID) (SignalConnection, bool) {
	h.mu.Lock()
	conn, ok := h.bySID[sid]
	delete(h.bySID, sid)
	n := len(h.bySID)
	h.mu.Unlock()
	if ok {
		log.Info().Str("module", "core.hub").Str("sid", string(sid)).Int("open", n).Msg("connection removed")
	}
	return conn, ok
}

// Broadcast queues data on every connection except from. Recipients are
// snapshotted first so a connection closing meanwhile only loses its own copy.
func (h *Hub) Broadcast(from SessionID, data Frame) PublishResult {
	h.mu.RLock()
	targets := make(map[SessionID]SignalConnection, len(h.bySID))
	for sid, c := range h.bySID {
		if sid != from {
			targets[sid] = c
		}
	}
	h.mu.RUnlock()

	res := PublishResult{}
	for sid, c := range targets {
		if err := c.TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, Delivery{SID: sid, Err: err})
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.hub").Str("from", string(from)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

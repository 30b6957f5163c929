package negotiation

import "github.com/pion/webrtc/v4"

const DefaultBufferLimit = 64

// CandidateBuffer queues remote candidates that arrived before a remote
// description. It is owned by one Engine and never shared.
type CandidateBuffer struct {
	limit   int
	items   []webrtc.ICECandidateInit
	drained bool
}

// NewCandidateBuffer returns a FIFO holding at most limit candidates;
// limit <= 0 means DefaultBufferLimit.
func NewCandidateBuffer(limit int) *CandidateBuffer {
	if limit <= 0 {
		limit = DefaultBufferLimit
	}
	return &CandidateBuffer{limit: limit}
}

// Push appends c. It returns false when the buffer is full or already drained.
func (b *CandidateBuffer) Push(c webrtc.ICECandidateInit) bool {
	if b.drained || len(b.items) >= b.limit {
		return false
	}
	b.items = append(b.items, c)
	return true
}

// Drain hands out every queued candidate in arrival order. Only the first
// call returns anything.
func (b *CandidateBuffer) Drain() []webrtc.ICECandidateInit {
	if b.drained {
		return nil
	}
	b.drained = true
	out := b.items
	b.items = nil
	return out
}

func (b *CandidateBuffer) Len() int { return len(b.items) }

func (b *CandidateBuffer) Drained() bool { return b.drained }

package core

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []Frame
	err    error
	closed bool
}

func (c *fakeConn) TrySend(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	if c.err != nil {
		return c.err
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) received() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Frame(nil), c.frames...)
}

func sid(i int) SessionID { return SessionID(fmt.Sprintf("c%d", i)) }

func TestBroadcastSkipsSender(t *testing.T) {
	h := NewHub()
	a, b, c := &fakeConn{}, &fakeConn{}, &fakeConn{}
	h.Add("a", a)
	h.Add("b", b)
	h.Add("c", c)

	payload := Frame(`{"type":"ready","room":"abc123"}`)
	res := h.Broadcast("a", payload)

	if res.SendTo != 2 {
		t.Fatalf("SendTo = %d, want 2", res.SendTo)
	}
	if got := a.received(); len(got) != 0 {
		t.Fatalf("sender got %d frames, want 0", len(got))
	}
	for name, conn := range map[string]*fakeConn{"b": b, "c": c} {
		got := conn.received()
		if len(got) != 1 {
			t.Fatalf("%s got %d frames, want 1", name, len(got))
		}
		if !bytes.Equal(got[0], payload) {
			t.Fatalf("%s got %q, want %q", name, got[0], payload)
		}
	}
}

func TestBroadcastDeliversToNMinusOne(t *testing.T) {
	for n := 1; n <= 6; n++ {
		h := NewHub()
		conns := make([]*fakeConn, n)
		for i := range conns {
			conns[i] = &fakeConn{}
			h.Add(sid(i), conns[i])
		}
		for i := range conns {
			res := h.Broadcast(sid(i), Frame("x"))
			if res.SendTo != n-1 {
				t.Fatalf("n=%d from=%d: SendTo = %d, want %d", n, i, res.SendTo, n-1)
			}
		}
		for i, c := range conns {
			if got := len(c.received()); got != n-1 {
				t.Fatalf("n=%d conn %d received %d, want %d", n, i, got, n-1)
			}
		}
	}
}

func TestBroadcastFailsOpenPerRecipient(t *testing.T) {
	h := NewHub()
	slow := &fakeConn{err: ErrBackpressure}
	gone := &fakeConn{}
	gone.Close()
	ok := &fakeConn{}
	h.Add("sender", &fakeConn{})
	h.Add("slow", slow)
	h.Add("gone", gone)
	h.Add("ok", ok)

	res := h.Broadcast("sender", Frame("hello"))

	if res.SendTo != 1 {
		t.Fatalf("SendTo = %d, want 1", res.SendTo)
	}
	if len(res.Dropped) != 2 {
		t.Fatalf("len(Dropped) = %d, want 2", len(res.Dropped))
	}
	for _, d := range res.Dropped {
		switch d.SID {
		case "slow":
			if !errors.Is(d.Err, ErrBackpressure) {
				t.Fatalf("slow err = %v, want ErrBackpressure", d.Err)
			}
		case "gone":
			if !errors.Is(d.Err, ErrConnClosed) {
				t.Fatalf("gone err = %v, want ErrConnClosed", d.Err)
			}
		default:
			t.Fatalf("unexpected dropped sid %q", d.SID)
		}
	}
	if got := len(ok.received()); got != 1 {
		t.Fatalf("ok received %d, want 1", got)
	}
}

func TestRemove(t *testing.T) {
	h := NewHub()
	c := &fakeConn{}
	h.Add("a", c)
	got, ok := h.Remove("a")
	if !ok || got != c {
		t.Fatalf("Remove(a) = %v, %v; want conn, true", got, ok)
	}
	if _, ok := h.Remove("a"); ok {
		t.Fatalf("second Remove(a) reported ok")
	}
	if h.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", h.Count())
	}
}

func TestBroadcastConcurrentClose(t *testing.T) {
	h := NewHub()
	conns := make([]*fakeConn, 16)
	for i := range conns {
		conns[i] = &fakeConn{}
		h.Add(sid(i), conns[i])
	}
	var wg sync.WaitGroup
	for i := range conns {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				conns[i].Close()
				h.Remove(sid(i))
				return
			}
			h.Broadcast(sid(i), Frame("x"))
		}(i)
	}
	wg.Wait()
	if h.Count() != len(conns)/2 {
		t.Fatalf("Count() = %d, want %d", h.Count(), len(conns)/2)
	}
}

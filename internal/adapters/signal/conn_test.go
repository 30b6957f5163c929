package signal

import (
	"errors"
	"testing"
	"time"

	"github.com/satoru2478-wq/v-calls/internal/core"
)

type nopWS struct{ closed int }

func (n *nopWS) ReadMessage() (int, []byte, error) { return 0, nil, errors.New("eof") }
func (n *nopWS) WriteMessage(int, []byte) error { return nil }
func (n *nopWS) SetWriteDeadline(time.Time) error { return nil }
func (n *nopWS) SetReadDeadline(time.Time) error { return nil }
func (n *nopWS) SetReadLimit(int64) {}
func (n *nopWS) SetPongHandler(func(string) error) {}
func (n *nopWS) Close() error {
	n.closed++
	return nil
}

func TestTrySendBackpressure(t *testing.T) {
	c := NewWsSignalConn(&nopWS{}, 1)
	if err := c.TrySend(core.Frame("a")); err != nil {
		t.Fatalf("first TrySend: %v", err)
	}
	if err := c.TrySend(core.Frame("b")); !errors.Is(err, core.ErrBackpressure) {
		t.Fatalf("second TrySend = %v, want ErrBackpressure", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	ws := &nopWS{}
	c := NewWsSignalConn(ws, 1)
	c.Close()
	c.Close()
	if ws.closed != 1 {
		t.Fatalf("underlying Close called %d times, want 1", ws.closed)
	}
	if err := c.TrySend(core.Frame("a")); !errors.Is(err, core.ErrConnClosed) {
		t.Fatalf("TrySend after Close = %v, want ErrConnClosed", err)
	}
}

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Second)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatalf("first two frames rejected")
	}
	if rl.Allow("a") {
		t.Fatalf("third frame in window allowed")
	}
	if !rl.Allow("b") {
		t.Fatalf("other connection limited")
	}

	now = now.Add(1100 * time.Millisecond)
	if !rl.Allow("a") {
		t.Fatalf("frame after window rejected")
	}

	rl.Forget("a")
	if _, ok := rl.history["a"]; ok {
		t.Fatalf("history kept after Forget")
	}
}

package signal

import (
	"sync"
	"time"

	"github.com/satoru2478-wq/v-calls/internal/core"
)

// WSConn is an indirection over *websocket.Conn to ease testing.
type WSConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(mt int, data []byte) error
	SetWriteDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

// WsSignalConn queues outbound frames for a write pump.
// It implements core.SignalConnection.
type WsSignalConn struct {
	conn WSConn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func NewWsSignalConn(conn WSConn, buffer int) *WsSignalConn {
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}
	return &WsSignalConn{
		conn: conn,
		send: make(chan core.Frame, buffer),
	}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

package core

import "errors"

// Frame is a raw signaling payload. The relay forwards it byte for byte.
type Frame []byte

// SessionID names one open relay connection.
type SessionID string

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
// TrySend never blocks: it queues f or fails with ErrBackpressure/ErrConnClosed.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

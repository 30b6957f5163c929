package negotiation

import (
	"errors"
	"fmt"
)

var (
	ErrGlare       = errors.New("both peers claim the initiator role for this room")
	ErrEnded       = errors.New("call already ended")
	ErrNoTransport = errors.New("transport session not open")
	ErrBufferFull  = errors.New("candidate buffer full")
)

// PermissionError means media acquisition was refused. It is the only
// failure shown to the user; the attempt stays idle.
type PermissionError struct {
	Err error
}

func (e *PermissionError) Error() string { return fmt.Sprintf("microphone access denied: %v", e.Err) }

func (e *PermissionError) Unwrap() error { return e.Err }

// NegotiationError wraps a failed description or candidate operation. It is
// logged and swallowed, so the call may stay where it was.
type NegotiationError struct {
	Op  string
	Err error
}

func (e *NegotiationError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *NegotiationError) Unwrap() error { return e.Err }

func negotiationErr(op string, err error) error {
	return &NegotiationError{Op: op, Err: err}
}

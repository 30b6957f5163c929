package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxRoomIDLen = 64
	roomIDLen    = 12
)

var (
	ErrRoomIDEmpty   = errors.New("room id empty")
	ErrRoomIDTooLong = errors.New("room id too long")
)

// RoomID groups two peers' signaling traffic. The relay never looks at it.
type RoomID string

// NewRoomID returns a fresh id for an initiator to share.
func NewRoomID() RoomID {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return RoomID(raw[:roomIDLen])
}

// ParseRoomID validates an id received out-of-band.
func ParseRoomID(s string) (RoomID, error) {
	s = strings.TrimSpace(s)
	if len(s) == 0 {
		return "", ErrRoomIDEmpty
	}
	if len(s) > MaxRoomIDLen {
		return "", ErrRoomIDTooLong
	}
	return RoomID(s), nil
}

func (id RoomID) String() string { return string(id) }

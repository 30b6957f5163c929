// Package domain contains session metadata shared by the relay and the peers.
package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const RoomQueryParam = "room"

var ErrNoRoomInAddress = errors.New("address carries no room")

// Session is fixed at start: a different role or room means a new Session.
type Session struct {
	role Role
	room RoomID
}

// NewSession makes a Responder for a given room, or an Initiator with a
// freshly generated room when room is empty.
func NewSession(room string) (*Session, error) {
	if strings.TrimSpace(room) == "" {
		return &Session{role: RoleInitiator, room: NewRoomID()}, nil
	}
	id, err := ParseRoomID(room)
	if err != nil {
		return nil, err
	}
	return &Session{role: RoleResponder, room: id}, nil
}

// SessionFromAddress accepts a shared address (http://host/?room=abc123) or a
// bare room id and always yields a Responder.
func SessionFromAddress(addr string) (*Session, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, ErrNoRoomInAddress
	}
	if !strings.Contains(addr, "?") && !strings.Contains(addr, "://") {
		return NewSession(addr)
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse address: %w", err)
	}
	room := u.Query().Get(RoomQueryParam)
	if room == "" {
		return nil, ErrNoRoomInAddress
	}
	return NewSession(room)
}

func (s *Session) Role() Role { return s.role }
func (s *Session) Room() RoomID { return s.room }
func (s *Session) Initiator() bool { return s.role == RoleInitiator }

// ShareURL renders the joinable address for base, replacing any room
// parameter it already carries.
func (s *Session) ShareURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse share base: %w", err)
	}
	q := u.Query()
	q.Set(RoomQueryParam, string(s.room))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

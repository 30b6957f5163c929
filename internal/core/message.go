package core

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"

	"github.com/satoru2478-wq/v-calls/internal/domain"
)

type MessageType string

const (
	TypeReady     MessageType = "ready"
	TypeOffer     MessageType = "offer"
	TypeAnswer    MessageType = "answer"
	TypeCandidate MessageType = "candidate"
	TypeChat      MessageType = "chat"
)

var (
	ErrUnknownType    = errors.New("unknown message type")
	ErrMissingPayload = errors.New("message payload missing")
)

// Message is one signaling message as it travels through the relay.
// Peer and Role only appear on ready and may be absent.
type Message struct {
	Type      MessageType                `json:"type"`
	Room      domain.RoomID              `json:"room"`
	SDP       *webrtc.SessionDescription `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
	Text      string                     `json:"text,omitempty"`
	Peer      string                     `json:"peer,omitempty"`
	Role      domain.Role                `json:"role,omitempty"`
}

// DecodeMessage only checks JSON syntax; callers filter by room before
// calling Validate.
func DecodeMessage(data Frame) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	return m, nil
}

func (m Message) Validate() error {
	switch m.Type {
	case TypeReady, TypeChat:
		return nil
	case TypeOffer, TypeAnswer:
		if m.SDP == nil || m.SDP.SDP == "" {
			return fmt.Errorf("%s: %w", m.Type, ErrMissingPayload)
		}
		return nil
	case TypeCandidate:
		if m.Candidate == nil {
			return fmt.Errorf("%s: %w", m.Type, ErrMissingPayload)
		}
		return nil
	default:
		return fmt.Errorf("%q: %w", m.Type, ErrUnknownType)
	}
}

func (m Message) Encode() (Frame, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Type, err)
	}
	return b, nil
}

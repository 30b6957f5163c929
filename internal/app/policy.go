package app

import (
	"errors"
	"fmt"

	"github.com/satoru2478-wq/v-calls/internal/core"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

// Policy decides what happens to a recipient whose queue could not take a frame.
type Policy interface {
	OnBackPressure(sid core.SessionID, err error) BackpressureAction
}

// SimplePolicy applies Action to full queues. Closed connections are left
// to their own close path.
type SimplePolicy struct {
	Action BackpressureAction
}

func (p SimplePolicy) OnBackPressure(_ core.SessionID, err error) BackpressureAction {
	if errors.Is(err, core.ErrConnClosed) {
		return NoAction
	}
	return p.Action
}

// ParsePolicy maps the backpressure config value to a Policy.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "", "drop":
		return SimplePolicy{Action: DropFrame}, nil
	case "kick":
		return SimplePolicy{Action: KickMember}, nil
	default:
		return nil, fmt.Errorf("unknown backpressure policy %q", name)
	}
}

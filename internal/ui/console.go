package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/satoru2478-wq/v-calls/internal/app/negotiation"
)

// Console prints call status lines. Safe for concurrent use.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, s)
}

// Invite shows the room id and the address to hand to the other side.
func (c *Console) Invite(room, url string) {
	body := lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.Render(IconCall+" New call"),
		"",
		fmt.Sprintf("%s Room: %s", IconRoom, room),
		fmt.Sprintf("%s Join: %s", IconLink, url),
		"",
		MutedStyle.Render("Open the link in a browser or run: vcall "+url),
	)
	c.println(BoxStyle.Render(body))
}

func (c *Console) Joining(room string) {
	c.println(fmt.Sprintf("%s Joining room %s", IconRoom, TitleStyle.Render(room)))
}

func PhaseText(p negotiation.Phase) string {
	switch p {
	case negotiation.PhaseAwaitingPeer:
		return IconWaiting + " Waiting for the other side to join"
	case negotiation.PhaseOfferExchanged:
		return IconWaiting + " Offer sent, waiting for an answer"
	case negotiation.PhaseAwaitingOffer:
		return IconWaiting + " Waiting for the caller's offer"
	case negotiation.PhaseConnected:
		return IconSuccess + " Connected"
	case negotiation.PhaseEnded:
		return "Call ended"
	default:
		return p.String()
	}
}

func (c *Console) Phase(p negotiation.Phase) {
	line := PhaseText(p)
	if p == negotiation.PhaseConnected {
		line = SuccessStyle.Render(line)
	}
	c.println(StatusStyle.Render(p.String()) + " " + line)
}

func (c *Console) Chat(text string) {
	c.println(PeerStyle.Render(IconPeer+" peer:") + " " + text)
}

func (c *Console) Error(err error) {
	c.println(fmt.Sprintf("%s %s", ErrorStyle.Render(IconError), ErrorStyle.Render(err.Error())))
}

func (c *Console) Warning(msg string) {
	c.println(fmt.Sprintf("%s %s", WarningStyle.Render(IconWarning), WarningStyle.Render(msg)))
}

func (c *Console) Info(msg string) {
	c.println(MutedStyle.Render(msg))
}

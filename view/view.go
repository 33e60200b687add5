package view

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mqy/minichat/auth"
	"github.com/mqy/minichat/conversation"
	"github.com/mqy/minichat/history"
	"github.com/mqy/minichat/registry"
)

const (
	dayLayout  = "Mon, 02 Jan 2006"
	timeLayout = "15:04"
	prompt     = "> "
)

var (
	dayStyle    = lipgloss.NewStyle().Bold(true)
	selfStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	peerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	hintStyle   = lipgloss.NewStyle().Faint(true).Italic(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	onlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	unreadStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// Conversation renders one conversation as text: day headers, messages, typing hint and prompt.
type Conversation struct {
	Self     string
	Peer     string
	Location *time.Location // nil is time.Local
}

// Render writes the transcript of days followed by the composer prompt.
func (v *Conversation) Render(w io.Writer, days *conversation.DayView, peerTyping bool) error {
	var b strings.Builder

	it := days.Iter()
	empty := true
	for {
		day, ok := it.Next()
		if !ok {
			break
		}
		empty = false
		b.WriteString(dayStyle.Render("-- " + day.Date.Format(dayLayout) + " --"))
		b.WriteByte('\n')
		for _, m := range day.Messages {
			at, _ := m.Time()
			who := peerStyle.Render(m.From)
			if m.From == v.Self {
				who = selfStyle.Render("me")
			}
			fmt.Fprintf(&b, "[%s] %s: %s\n", at.In(v.location()).Format(timeLayout), who, m.Body)
		}
	}
	if empty {
		b.WriteString(hintStyle.Render("no messages yet, say hi to " + v.Peer))
		b.WriteByte('\n')
	}
	if peerTyping {
		b.WriteString(hintStyle.Render(v.Peer + " is typing..."))
		b.WriteByte('\n')
	}
	b.WriteString(prompt)

	_, err := io.WriteString(w, b.String())
	return err
}

func (v *Conversation) location() *time.Location {
	if v.Location == nil {
		return time.Local
	}
	return v.Location
}

// RenderPeers writes the peer list of the superadmin, one numbered line per peer.
func RenderPeers(w io.Writer, peers []registry.PeerState) error {
	var b strings.Builder
	if len(peers) == 0 {
		b.WriteString(hintStyle.Render("no peers"))
		b.WriteByte('\n')
	}
	for i, p := range peers {
		mark := " "
		if p.Selected {
			mark = "*"
		}
		status := "offline"
		if p.Online {
			status = onlineStyle.Render("online")
		}
		name := p.Identity.Email
		if p.Identity.Name != "" {
			name = fmt.Sprintf("%s <%s>", p.Identity.Name, p.Identity.Email)
		}
		fmt.Fprintf(&b, "%s %d. %s (%s)", mark, i+1, name, status)
		if p.Unread > 0 {
			b.WriteString(" " + unreadStyle.Render(fmt.Sprintf("[%d unread]", p.Unread)))
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// ErrorText is the user-visible text of a chat failure.
func ErrorText(err error) string {
	var authErr *history.AuthError
	var netErr *history.NetworkError
	switch {
	case errors.As(err, &authErr), errors.Is(err, auth.ErrUnauthenticated):
		return errStyle.Render("session expired, please sign in again")
	case errors.As(err, &netErr):
		return errStyle.Render("unable to load chat")
	default:
		return errStyle.Render(err.Error())
	}
}

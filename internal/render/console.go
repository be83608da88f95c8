// Package render provides a terminal presentation adapter, used by the
// simulator and as a reference for transport-layer renderers.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/highroller/derby/internal/session"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	laneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	noticeStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("9"))
	potStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// Console renders round snapshots as styled text.
type Console struct {
	out         io.Writer
	trackLength int
}

// NewConsole creates a console presenter writing to out.
func NewConsole(out io.Writer, trackLength int) *Console {
	return &Console{out: out, trackLength: trackLength}
}

func (c *Console) Render(snap session.Snapshot) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render(header(snap)))
	b.WriteString("\n")
	for _, l := range snap.Lanes {
		pos := l.Position
		if pos > c.trackLength-1 {
			pos = c.trackLength - 1
		}
		track := strings.Repeat("=", pos) + ">" + strings.Repeat("-", c.trackLength-1-pos)
		b.WriteString(laneStyle.Render(fmt.Sprintf("%2d. %s [%s] %s (%d:1)", l.Index, l.Icon, track, l.Name, l.Odds)))
		b.WriteString("\n")
	}
	b.WriteString(potStyle.Render(fmt.Sprintf("pot %d chips, exposure %d", snap.TotalPot, snap.Exposure)))
	b.WriteString("\n")
	for _, bet := range snap.Bets {
		fmt.Fprintf(&b, "  %s: %d on lane %d\n", bet.Participant, bet.CurrentStake, bet.Selection)
	}
	if snap.Notice != "" {
		b.WriteString(noticeStyle.Render(snap.Notice))
		b.WriteString("\n")
	}

	_, err := fmt.Fprint(c.out, b.String())
	return err
}

func (c *Console) Notify(snap session.Snapshot, text string, _ time.Duration) error {
	_, err := fmt.Fprintln(c.out, noticeStyle.Render(text))
	return err
}

func header(snap session.Snapshot) string {
	switch snap.Status {
	case session.StatusBetting:
		return "🏇 Betting is open"
	case session.StatusCountdown:
		return fmt.Sprintf("🏇 Race starts in %d...", snap.CountdownLeft)
	case session.StatusRunning:
		return fmt.Sprintf("🏇 Stage %d", snap.Stage)
	case session.StatusFinished:
		return "🏁 Race finished"
	case session.StatusCancelled:
		return "🏇 Race cancelled"
	case session.StatusTimedOut:
		return "🏇 Race expired"
	}
	return string(snap.Status)
}

var _ session.Presenter = (*Console)(nil)

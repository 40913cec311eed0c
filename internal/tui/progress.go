package tui

import (
	"fmt"
	"strings"
)

// Progress displays a progress bar with an optional message.
type Progress struct {
	percent float64
	message string
	width   int
	styles  Styles
}

// NewProgress creates a progress bar 40 cells wide.
func NewProgress() Progress {
	return Progress{
		width:  40,
		styles: DefaultStyles(),
	}
}

// Percent returns the current fraction (0.0 to 1.0).
func (p Progress) Percent() float64 {
	return p.percent
}

// SetPercent sets the fraction, clamped to [0, 1].
func (p Progress) SetPercent(percent float64) Progress {
	p.percent = min(max(percent, 0), 1)
	return p
}

// SetMessage sets the status message.
func (p Progress) SetMessage(message string) Progress {
	p.message = message
	return p
}

// WithWidth sets the bar width.
func (p Progress) WithWidth(width int) Progress {
	p.width = width
	return p
}

// View renders the progress bar.
func (p Progress) View() string {
	var b strings.Builder

	barWidth := max(p.width-2, 0)
	filled := int(p.percent * float64(barWidth))
	bar := fmt.Sprintf("[%s%s]",
		strings.Repeat("█", filled),
		strings.Repeat("░", barWidth-filled),
	)
	b.WriteString(p.styles.ProgressBar.Render(bar))
	fmt.Fprintf(&b, " %3.0f%%", p.percent*100)

	if p.message != "" {
		b.WriteString("\n")
		b.WriteString(p.styles.Help.Render(p.message))
	}
	return b.String()
}

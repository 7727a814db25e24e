package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ScanProgress shows how far a scan is through its timeout and how many
// devices have been reported so far.
type ScanProgress struct {
	Label   string        // e.g., "Scanning"
	Timeout time.Duration // Scan ceiling; the bar is full when reached
	Elapsed time.Duration // Time since the scan started
	Found   int           // Devices reported so far
	Width   int           // Terminal width
	bar     progress.Model
}

// NewScanProgress creates a new progress display
func NewScanProgress(label string, timeout time.Duration) *ScanProgress {
	p := &ScanProgress{
		Label:   label,
		Timeout: timeout,
	}
	return p.SetWidth(GetTerminalWidth())
}

// SetWidth sets the terminal width for responsive rendering
func (p *ScanProgress) SetWidth(width int) *ScanProgress {
	p.Width = width
	barWidth := width - 40 // Leave room for label, percentage and count
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}
	p.bar = progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	return p
}

// Update records the elapsed time and device count
func (p *ScanProgress) Update(elapsed time.Duration, found int) {
	p.Elapsed = elapsed
	p.Found = found
}

// Percent returns the completed fraction, capped at 1.
// The scan ends on the first rotation tick past the timeout, so elapsed can
// overshoot it.
func (p *ScanProgress) Percent() float64 {
	if p.Timeout <= 0 {
		return 0
	}
	pct := float64(p.Elapsed) / float64(p.Timeout)
	if pct > 1 {
		return 1
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// Render returns the styled progress line
func (p *ScanProgress) Render() string {
	found := "no devices yet"
	switch {
	case p.Found == 1:
		found = "1 device"
	case p.Found > 1:
		found = fmt.Sprintf("%d devices", p.Found)
	}

	return lipgloss.NewStyle().
		PaddingLeft(2).
		Render(fmt.Sprintf("%s  %s  %3.0f%%  %s",
			ProgressLabelStyle.UnsetPaddingLeft().Render(p.Label),
			p.bar.ViewAs(p.Percent()),
			p.Percent()*100,
			DeviceMetaStyle.Render(found),
		))
}

// String implements fmt.Stringer
func (p *ScanProgress) String() string {
	return p.Render()
}

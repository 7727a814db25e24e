package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Printer provides methods for printing UI components to a writer.
// It is safe for concurrent use; a live progress line drawn with
// PrintLive is cleared before any other output.
type Printer struct {
	mu    sync.Mutex
	out   io.Writer
	width int
	live  bool // a progress line is on screen
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// SetWidth overrides the detected terminal width
func (p *Printer) SetWidth(width int) *Printer {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.width = width
	return p
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearLive()
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	p.Println("")
}

// PrintHeader prints a command header box followed by a blank line
func (p *Printer) PrintHeader(h *Header) {
	h.SetWidth(p.Width())
	p.Println(h.Render())
	p.Newline()
}

// PrintResult prints a result box preceded by a blank line
func (p *Printer) PrintResult(r *Result) {
	r.SetWidth(p.Width())
	p.Newline()
	p.Println(r.Render())
}

// PrintLive draws content on the current line, replacing the previous live
// line. Used for progress that updates in place.
func (p *Printer) PrintLive(content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearLive()
	_, _ = fmt.Fprint(p.out, content)
	p.live = true
}

// ClearLive removes the live line, if any
func (p *Printer) ClearLive() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearLive()
}

func (p *Printer) clearLive() {
	if !p.live {
		return
	}
	_, _ = fmt.Fprint(p.out, "\r"+strings.Repeat(" ", p.width)+"\r")
	p.live = false
}

package console

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Tag prefixes every printed line.
const Tag = "roku-cli"

const (
	colorInfo    = lipgloss.Color("81")  // teal
	colorError   = lipgloss.Color("196") // bright red
	colorSuccess = lipgloss.Color("40")  // green
)

// Printer writes styled outcome lines.
type Printer struct {
	out io.Writer

	success lipgloss.Style
	info    lipgloss.Style
	failure lipgloss.Style
}

// New creates a Printer writing to w, or to stderr when w is nil.
func New(w io.Writer) *Printer {
	if w == nil {
		w = os.Stderr
	}

	renderer := lipgloss.NewRenderer(w)

	return &Printer{
		out:     w,
		success: renderer.NewStyle().Foreground(colorSuccess),
		info:    renderer.NewStyle().Foreground(colorInfo),
		failure: renderer.NewStyle().Foreground(colorError).Bold(true),
	}
}

// Success prints a SUCCESS line.
func (p *Printer) Success(format string, args ...any) {
	p.print(p.success, "SUCCESS", format, args...)
}

// Info prints an INFO line.
func (p *Printer) Info(format string, args ...any) {
	p.print(p.info, "INFO", format, args...)
}

// Error prints an ERROR line with the error message.
func (p *Printer) Error(err error) {
	p.print(p.failure, "ERROR", "%s", err.Error())
}

func (p *Printer) print(style lipgloss.Style, level, format string, args ...any) {
	line := fmt.Sprintf("[%s][%s]: %s", Tag, level, fmt.Sprintf(format, args...))

	_, _ = fmt.Fprintln(p.out, style.Render(line))
}

// Package terminal binds the generation controller to a terminal: the trigger
// is a status line on stderr, image slots are files in an output directory,
// and notices go to the console or a native dialog.
package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// StatusLine is a Trigger rendered as a single status line. On a terminal the
// line is redrawn in place; otherwise each distinct label is printed once,
// ignoring spinner frames.
type StatusLine struct {
	mu        sync.Mutex
	out       io.Writer
	tty       bool
	idle      string
	label     string
	enabled   bool
	lastPrint string
}

// NewStatusLine returns a StatusLine writing to out with the given idle label.
func NewStatusLine(out io.Writer, idle string) *StatusLine {
	return &StatusLine{
		out:     out,
		tty:     isTerminal(out),
		idle:    idle,
		label:   idle,
		enabled: true,
	}
}

// isTerminal reports whether w is a file attached to a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (s *StatusLine) Label() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.label
}

func (s *StatusLine) SetLabel(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.label = label

	if s.tty {
		if label == s.idle {
			fmt.Fprint(s.out, "\r\033[K")
			return
		}
		fmt.Fprintf(s.out, "\r\033[K%s", label)
		return
	}

	if label == s.idle {
		s.lastPrint = ""
		return
	}
	stem := strings.TrimRight(label, `|/-\ `)
	if stem == s.lastPrint {
		return
	}
	s.lastPrint = stem
	fmt.Fprintln(s.out, stem)
}

func (s *StatusLine) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// Enabled reports whether the trigger accepts activations.
func (s *StatusLine) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// MessageLine is the persistent error display. Non-empty text is printed
// once per change.
type MessageLine struct {
	mu   sync.Mutex
	out  io.Writer
	text string
}

func NewMessageLine(out io.Writer) *MessageLine {
	return &MessageLine{out: out}
}

func (m *MessageLine) SetText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if text == m.text {
		return
	}
	m.text = text
	if text != "" {
		fmt.Fprintf(m.out, "Error: %s\n", text)
	}
}

// Text returns the message currently shown.
func (m *MessageLine) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

// Field is a fixed TextField value, typically filled from flags or prompts.
type Field string

func (f Field) Value() string { return string(f) }

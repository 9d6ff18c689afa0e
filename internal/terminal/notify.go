package terminal

import (
	"errors"
	"fmt"
	"io"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
)

// dialogTitle is the window title of native dialogs.
const dialogTitle = "Comix Generator"

// ConsoleNotifier prints blocking notices as their own line.
type ConsoleNotifier struct {
	out io.Writer
}

func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{out: out}
}

func (n *ConsoleNotifier) Alert(message string) {
	fmt.Fprintf(n.out, "\n%s\n", message)
}

// DialogNotifier shows notices in a native dialog and blocks until it is
// dismissed. When no dialog can be shown it falls back to the console.
type DialogNotifier struct {
	fallback *ConsoleNotifier
	show     func(text string, options ...zenity.Option) error
}

func NewDialogNotifier(fallback io.Writer) *DialogNotifier {
	return &DialogNotifier{
		fallback: NewConsoleNotifier(fallback),
		show:     zenity.Warning,
	}
}

func (n *DialogNotifier) Alert(message string) {
	err := n.show(message, zenity.Title(dialogTitle), zenity.OKLabel("OK"))
	if err == nil || errors.Is(err, zenity.ErrCanceled) {
		return
	}
	log.Warn().Err(err).Msg("Native dialog unavailable, printing notice")
	n.fallback.Alert(message)
}

// PromptDialog asks for one line of text in a native entry dialog.
// Cancelling returns zenity.ErrCanceled.
func PromptDialog(label string) (string, error) {
	return zenity.Entry(label, zenity.Title(dialogTitle))
}

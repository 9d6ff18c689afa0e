package terminal

import (
	"fmt"
	"io"

	"github.com/fpang/comix-generator/internal/comix"
	"github.com/fpang/comix-generator/internal/controller"
)

// IdleLabel is the status line label while no request is in flight.
const IdleLabel = "comix"

// Options configure a Surface.
type Options struct {
	OutputDir    string
	ThumbnailMax int
	// Dialogs selects native dialogs for notices.
	Dialogs bool
}

// Surface is the full set of terminal UI elements for one controller.
type Surface struct {
	Status   *StatusLine
	Images   [comix.CaptionCount]*FileSlot
	Final    *FileSlot
	Message  *MessageLine
	Notifier controller.Notifier
}

// NewSurface builds the terminal elements. Status and messages go to out.
func NewSurface(out io.Writer, opts Options) *Surface {
	s := &Surface{
		Status:  NewStatusLine(out, IdleLabel),
		Final:   NewFileSlot(opts.OutputDir, "final-image", opts.ThumbnailMax),
		Message: NewMessageLine(out),
	}
	for i := range s.Images {
		s.Images[i] = NewFileSlot(opts.OutputDir, fmt.Sprintf("image%d", i+1), opts.ThumbnailMax)
	}
	if opts.Dialogs {
		s.Notifier = NewDialogNotifier(out)
	} else {
		s.Notifier = NewConsoleNotifier(out)
	}
	return s
}

// Handles binds the surface and the given inputs for a controller.
func (s *Surface) Handles(title string, captions [comix.CaptionCount]string) controller.Handles {
	h := controller.Handles{
		Title:    Field(title),
		Trigger:  s.Status,
		Final:    s.Final,
		Message:  s.Message,
		Notifier: s.Notifier,
	}
	for i := range captions {
		h.Captions[i] = Field(captions[i])
		h.Images[i] = s.Images[i]
	}
	return h
}

// Slots returns the panel slots followed by the final slot.
func (s *Surface) Slots() []*FileSlot {
	return append(s.Images[:], s.Final)
}

package controller

import (
	"context"
	"fmt"

	"github.com/fpang/comix-generator/internal/comix"
)

// TextField is an input the controller reads on each activation.
type TextField interface {
	Value() string
}

// Trigger is the control that starts a generation. It is disabled while a
// request is in flight and shows the spinner in its label.
type Trigger interface {
	Label() string
	SetLabel(label string)
	SetEnabled(enabled bool)
}

// ImageSlot displays one generated image by position.
type ImageSlot interface {
	// SetSource shows the image given as a data URI.
	SetSource(dataURI string) error
	// MarkGenerated flags the slot as holding generated content.
	MarkGenerated()
	// Clear removes any previously shown image.
	Clear()
}

// MessageArea is the persistent inline error display.
type MessageArea interface {
	SetText(text string)
}

// Notifier shows blocking notices (validation failure, deadline exceeded).
type Notifier interface {
	Alert(message string)
}

// Generator performs the network call.
type Generator interface {
	Generate(ctx context.Context, req comix.GenerationRequest) (*comix.GenerationResult, error)
}

// Handles are the UI elements a Controller drives. They are resolved once by
// the surface that builds the controller.
type Handles struct {
	Title    TextField
	Captions [comix.CaptionCount]TextField
	Trigger  Trigger
	Images   [comix.CaptionCount]ImageSlot
	Final    ImageSlot
	Message  MessageArea
	Notifier Notifier
}

func (h Handles) validate() error {
	if h.Title == nil {
		return fmt.Errorf("title field is required")
	}
	for i, f := range h.Captions {
		if f == nil {
			return fmt.Errorf("caption field %d is required", i+1)
		}
	}
	if h.Trigger == nil {
		return fmt.Errorf("trigger is required")
	}
	for i, s := range h.Images {
		if s == nil {
			return fmt.Errorf("image slot %d is required", i+1)
		}
	}
	if h.Final == nil {
		return fmt.Errorf("final image slot is required")
	}
	if h.Message == nil {
		return fmt.Errorf("message area is required")
	}
	if h.Notifier == nil {
		return fmt.Errorf("notifier is required")
	}
	return nil
}

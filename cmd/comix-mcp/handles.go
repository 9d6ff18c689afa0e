package main

import (
	"sync"

	"github.com/fpang/comix-generator/internal/comix"
	"github.com/fpang/comix-generator/internal/controller"
	"github.com/fpang/comix-generator/internal/terminal"
)

// memorySlot keeps the shown image in memory for the tool result.
type memorySlot struct {
	mu        sync.Mutex
	asset     comix.ImageAsset
	filled    bool
	generated bool
}

func (s *memorySlot) SetSource(dataURI string) error {
	asset, err := comix.ParseDataURI(dataURI)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asset = asset
	s.filled = true
	return nil
}

func (s *memorySlot) MarkGenerated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generated = true
}

func (s *memorySlot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asset = comix.ImageAsset{}
	s.filled = false
	s.generated = false
}

func (s *memorySlot) get() (comix.ImageAsset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.asset, s.filled && s.generated
}

// noticeRecorder keeps notices so they can be returned to the client.
type noticeRecorder struct {
	mu      sync.Mutex
	notices []string
}

func (n *noticeRecorder) Alert(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, message)
}

func (n *noticeRecorder) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.notices) == 0 {
		return ""
	}
	return n.notices[len(n.notices)-1]
}

// session is the set of handles for one tool call.
type session struct {
	status  *terminal.StatusLine
	panels  [comix.CaptionCount]*memorySlot
	final   *memorySlot
	message *terminal.MessageLine
	notices *noticeRecorder
}

func newSession(status *terminal.StatusLine, message *terminal.MessageLine) *session {
	s := &session{
		status:  status,
		final:   &memorySlot{},
		message: message,
		notices: &noticeRecorder{},
	}
	for i := range s.panels {
		s.panels[i] = &memorySlot{}
	}
	return s
}

func (s *session) handles(title string, captions [comix.CaptionCount]string) controller.Handles {
	h := controller.Handles{
		Title:    terminal.Field(title),
		Trigger:  s.status,
		Final:    s.final,
		Message:  s.message,
		Notifier: s.notices,
	}
	for i := range captions {
		h.Captions[i] = terminal.Field(captions[i])
		h.Images[i] = s.panels[i]
	}
	return h
}

package controller

import (
	"context"
	"sync"

	"github.com/fpang/comix-generator/internal/comix"
)

type fakeField string

func (f fakeField) Value() string { return string(f) }

// fakeTrigger records every label and enable/disable transition.
type fakeTrigger struct {
	mu       sync.Mutex
	label    string
	enabled  bool
	labels   []string
	enables  int
	disables int
}

func newFakeTrigger(label string) *fakeTrigger {
	return &fakeTrigger{label: label, enabled: true}
}

func (t *fakeTrigger) Label() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.label
}

func (t *fakeTrigger) SetLabel(label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.label = label
	t.labels = append(t.labels, label)
}

func (t *fakeTrigger) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if enabled {
		t.enables++
	} else {
		t.disables++
	}
}

func (t *fakeTrigger) snapshot() (label string, enabled bool, enables, disables, labelCount int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.label, t.enabled, t.enables, t.disables, len(t.labels)
}

func (t *fakeTrigger) allLabels() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.labels...)
}

type fakeSlot struct {
	mu        sync.Mutex
	src       string
	generated bool
	cleared   int
	err       error
}

func (s *fakeSlot) SetSource(uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.src = uri
	return nil
}

func (s *fakeSlot) MarkGenerated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generated = true
}

func (s *fakeSlot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src = ""
	s.generated = false
	s.cleared++
}

func (s *fakeSlot) source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src
}

type fakeMessage struct {
	mu   sync.Mutex
	text string
}

func (m *fakeMessage) SetText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
}

func (m *fakeMessage) get() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []string
}

func (n *fakeNotifier) Alert(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, msg)
}

func (n *fakeNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.alerts...)
}

// fakeGenerator delegates to fn and records the requests it saw.
type fakeGenerator struct {
	mu       sync.Mutex
	requests []comix.GenerationRequest
	fn       func(ctx context.Context, req comix.GenerationRequest) (*comix.GenerationResult, error)
}

func (g *fakeGenerator) Generate(ctx context.Context, req comix.GenerationRequest) (*comix.GenerationResult, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	return g.fn(ctx, req)
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

// page bundles a full set of fake handles.
type page struct {
	trigger  *fakeTrigger
	slots    [comix.CaptionCount]*fakeSlot
	final    *fakeSlot
	message  *fakeMessage
	notifier *fakeNotifier
}

func newPage(title string, captions ...string) (*page, Handles) {
	p := &page{
		trigger:  newFakeTrigger("Generate"),
		final:    &fakeSlot{},
		message:  &fakeMessage{},
		notifier: &fakeNotifier{},
	}
	h := Handles{
		Title:    fakeField(title),
		Trigger:  p.trigger,
		Final:    p.final,
		Message:  p.message,
		Notifier: p.notifier,
	}
	for i := range p.slots {
		p.slots[i] = &fakeSlot{}
		h.Images[i] = p.slots[i]
		if i < len(captions) {
			h.Captions[i] = fakeField(captions[i])
		} else {
			h.Captions[i] = fakeField("")
		}
	}
	return p, h
}

func threePanelResult() *comix.GenerationResult {
	return &comix.GenerationResult{
		Images: []comix.ImageAsset{
			{ContentType: "image/jpeg", Base64: "AAAA", Prompt: "I woke up"},
			{ContentType: "image/jpeg", Base64: "BBBB", Prompt: "I ate breakfast"},
			{ContentType: "image/jpeg", Base64: "CCCC", Prompt: "I went to work"},
		},
		FinalImage: comix.ImageAsset{ContentType: "image/png", Base64: "DDDD"},
	}
}

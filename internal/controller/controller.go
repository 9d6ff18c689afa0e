// Package controller implements the Generate-Request Controller: one
// activation reads the title and three captions, validates them, sends a
// single generation request under a deadline while showing a busy spinner,
// and then fills the image slots or shows an error.
//
// State machine:
//
//	Idle -> Validating -> Idle                       (empty caption)
//	                   -> AwaitingResponse -> Idle   (success | error | timeout)
//
// Every path out of AwaitingResponse restores the trigger exactly once.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fpang/comix-generator/internal/comix"
	"github.com/fpang/comix-generator/internal/comixapi"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultTimeout is how long the controller waits for a response.
	DefaultTimeout = 120 * time.Second

	// DefaultSpinnerInterval is the spinner frame period.
	DefaultSpinnerInterval = 250 * time.Millisecond

	// GeneratingLabel prefixes the spinner frame on the busy trigger.
	GeneratingLabel = "Generating..."
)

var (
	// ErrBusy is returned by Submit while another request is in flight.
	ErrBusy = errors.New("a generation request is already in flight")

	// ErrTimeout is returned when the deadline passes before a response.
	ErrTimeout = errors.New("generation timed out")
)

// State is the controller's position in its state machine.
type State int32

const (
	StateIdle State = iota
	StateValidating
	StateAwaitingResponse
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateAwaitingResponse:
		return "awaiting_response"
	default:
		return "idle"
	}
}

// Outcome is how an activation ended.
type Outcome int

const (
	// OutcomeNone means no activation happened (ErrBusy).
	OutcomeNone Outcome = iota
	OutcomeInvalid
	OutcomeSuccess
	OutcomeError
	OutcomeTimeout
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInvalid:
		return "invalid"
	case OutcomeSuccess:
		return "success"
	case OutcomeError:
		return "error"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "none"
	}
}

// Observer is told about every activation that reached the network.
type Observer func(outcome Outcome, elapsed time.Duration)

// Option customizes a Controller.
type Option func(*Controller)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithSpinnerInterval overrides DefaultSpinnerInterval.
func WithSpinnerInterval(d time.Duration) Option {
	return func(c *Controller) { c.spinInterval = d }
}

// WithToken attaches a quota token to every request.
func WithToken(token string) Option {
	return func(c *Controller) { c.token = token }
}

// WithObserver registers an outcome observer.
func WithObserver(obs Observer) Option {
	return func(c *Controller) { c.observer = obs }
}

// Controller drives one set of UI handles. At most one request is in flight
// per Controller.
type Controller struct {
	h            Handles
	gen          Generator
	timeout      time.Duration
	spinInterval time.Duration
	token        string
	observer     Observer
	idleLabel    string

	busy  atomic.Bool
	state atomic.Int32

	// mu serializes writes to the handles between the submitting goroutine
	// and the spinner goroutine.
	mu      sync.Mutex
	current *attempt

	// restored is set once the idle UI has been drawn and cleared when the
	// next attempt begins.
	restored bool
}

// attempt is the busy-state bookkeeping for one request.
type attempt struct {
	once    sync.Once
	spinner *spinner
}

// New builds a Controller. The trigger's current label is remembered as the
// idle label.
func New(h Handles, gen Generator, opts ...Option) (*Controller, error) {
	if err := h.validate(); err != nil {
		return nil, err
	}
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}

	c := &Controller{
		h:            h,
		gen:          gen,
		timeout:      DefaultTimeout,
		spinInterval: DefaultSpinnerInterval,
		idleLabel:    h.Trigger.Label(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", c.timeout)
	}
	if c.spinInterval <= 0 {
		return nil, fmt.Errorf("spinner interval must be positive, got %s", c.spinInterval)
	}
	return c, nil
}

// State reports the current state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Submit handles one activation of the trigger. Failures are reported through
// the handles; the returned error carries the same failure for callers that
// need it (exit codes, tool results).
func (c *Controller) Submit(ctx context.Context) (Outcome, error) {
	if !c.busy.CompareAndSwap(false, true) {
		log.Debug().Msg("Trigger activated while busy, ignoring")
		return OutcomeNone, ErrBusy
	}
	defer c.busy.Store(false)

	c.state.Store(int32(StateValidating))
	req, err := c.collect()
	if err != nil {
		c.state.Store(int32(StateIdle))
		log.Warn().Err(err).Msg("Generation request rejected")
		c.h.Notifier.Alert(comix.MsgMissingCaptions)
		return OutcomeInvalid, err
	}
	req.Token = c.token

	a := c.begin()
	defer c.finish(a)

	start := time.Now()
	outcome, err := c.await(ctx, req, a)
	elapsed := time.Since(start)

	log.Info().
		Str("outcome", outcome.String()).
		Dur("elapsed", elapsed).
		Msg("Generation finished")
	if c.observer != nil {
		c.observer(outcome, elapsed)
	}
	return outcome, err
}

// Reset restores the idle UI: spinner stopped, trigger enabled with its
// original label. Calling it repeatedly has the same effect as calling it once,
// and a request that completes after a Reset does not restore the UI again.
//
// Reset does not abandon an in-flight request. Until that Submit returns,
// another Submit still answers ErrBusy and its result is still rendered.
func (c *Controller) Reset() {
	c.mu.Lock()
	a := c.current
	c.mu.Unlock()

	if a != nil {
		c.finish(a)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.restored {
		return
	}
	c.h.Trigger.SetLabel(c.idleLabel)
	c.h.Trigger.SetEnabled(true)
	c.restored = true
}

// collect reads and validates the inputs.
func (c *Controller) collect() (comix.GenerationRequest, error) {
	captions := make([]string, comix.CaptionCount)
	for i, f := range c.h.Captions {
		captions[i] = f.Value()
	}
	return comix.NewGenerationRequest(c.h.Title.Value(), captions)
}

// begin enters the busy state.
func (c *Controller) begin() *attempt {
	a := &attempt{}

	c.mu.Lock()
	c.state.Store(int32(StateAwaitingResponse))
	c.current = a
	c.restored = false
	c.h.Message.SetText("")
	c.h.Trigger.SetEnabled(false)
	c.mu.Unlock()

	a.spinner = startSpinner(c.spinInterval, func(frame string) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.h.Trigger.SetLabel(GeneratingLabel + " " + frame)
	})
	return a
}

// finish leaves the busy state. Only the first call per attempt has an effect.
func (c *Controller) finish(a *attempt) {
	a.once.Do(func() {
		// The spinner takes c.mu to draw, so halt it before locking.
		a.spinner.halt()

		c.mu.Lock()
		defer c.mu.Unlock()
		c.h.Trigger.SetLabel(c.idleLabel)
		c.h.Trigger.SetEnabled(true)
		if c.current == a {
			c.current = nil
			c.restored = true
		}
		c.state.Store(int32(StateIdle))
	})
}

type generation struct {
	result *comix.GenerationResult
	err    error
}

// await runs the request under the deadline and applies its outcome.
func (c *Controller) await(parent context.Context, req comix.GenerationRequest, a *attempt) (Outcome, error) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	// Buffered so a generator that ignores ctx can still deliver and exit
	// after the controller has stopped listening.
	done := make(chan generation, 1)
	go func() {
		res, err := c.gen.Generate(ctx, req)
		done <- generation{result: res, err: err}
	}()

	select {
	case g := <-done:
		if g.err != nil {
			if ownDeadline(parent, ctx) {
				return c.timedOut(a, ctx.Err())
			}
			return c.failed(g.err), g.err
		}
		if err := c.render(g.result); err != nil {
			return c.failed(err), err
		}
		return OutcomeSuccess, nil

	case <-ctx.Done():
		go discardLate(done)
		if ownDeadline(parent, ctx) {
			return c.timedOut(a, ctx.Err())
		}
		cause := ctx.Err()
		if perr := parent.Err(); perr != nil {
			cause = perr
		}
		err := fmt.Errorf("generation cancelled: %w", cause)
		return c.failed(err), err
	}
}

// ownDeadline reports whether ctx ended because of the controller's timeout
// rather than anything the caller's context did.
func ownDeadline(parent, ctx context.Context) bool {
	return parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// timedOut resets the UI before the blocking notice so the trigger is usable
// once the notice is dismissed.
func (c *Controller) timedOut(a *attempt, cause error) (Outcome, error) {
	c.finish(a)
	log.Warn().Dur("timeout", c.timeout).Msg("Generation deadline exceeded")
	c.h.Notifier.Alert(comix.MsgTooLong)
	return OutcomeTimeout, fmt.Errorf("%w after %s: %w", ErrTimeout, c.timeout, cause)
}

// failed shows err in the message area.
func (c *Controller) failed(err error) Outcome {
	msg := err.Error()
	var apiErr *comixapi.APIError
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}
	log.Error().Err(err).Msg("Generation failed")

	c.mu.Lock()
	c.h.Message.SetText(msg)
	c.mu.Unlock()
	return OutcomeError
}

// render fills the panel slots by position and the final slot. Slots without
// a matching image are cleared so nothing from an earlier result remains. If
// any slot cannot be filled, every slot is cleared.
func (c *Controller) render(res *comix.GenerationResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.fill(res); err != nil {
		for _, slot := range c.h.Images {
			slot.Clear()
		}
		c.h.Final.Clear()
		return err
	}
	return nil
}

// fill writes res into the slots. Callers hold c.mu.
func (c *Controller) fill(res *comix.GenerationResult) error {
	if res == nil {
		return fmt.Errorf("empty generation result")
	}
	if err := res.Validate(); err != nil {
		return err
	}

	for i, slot := range c.h.Images {
		if i >= len(res.Images) {
			slot.Clear()
			continue
		}
		img := res.Images[i]
		if err := slot.SetSource(img.DataURI()); err != nil {
			return fmt.Errorf("show image %d: %w", i+1, err)
		}
		slot.MarkGenerated()
		log.Debug().Int("image", i+1).Str("prompt", img.PromptText()).Msg("Prompt for image")
	}

	if err := c.h.Final.SetSource(res.FinalImage.DataURI()); err != nil {
		return fmt.Errorf("show final image: %w", err)
	}
	c.h.Final.MarkGenerated()
	if p := res.FinalImage.PromptText(); p != "" {
		log.Debug().Str("prompt", p).Msg("Prompt for final image")
	}
	return nil
}

// discardLate drains a result that arrives after the controller gave up.
func discardLate(done <-chan generation) {
	g := <-done
	log.Debug().Bool("succeeded", g.err == nil).Msg("Discarded late generation result")
}

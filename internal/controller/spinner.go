package controller

import "time"

// spinnerFrames is the busy indicator cycle shown after the generating label.
var spinnerFrames = [...]string{"|", "/", "-", "\\"}

// spinner redraws a label on a fixed interval until stopped.
type spinner struct {
	stop chan struct{}
	done chan struct{}
}

// startSpinner draws frame 0 immediately, then calls draw with each next
// frame every interval. draw runs on the spinner goroutine.
func startSpinner(interval time.Duration, draw func(frame string)) *spinner {
	s := &spinner{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	draw(spinnerFrames[0])

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		i := 0
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				i = (i + 1) % len(spinnerFrames)
				draw(spinnerFrames[i])
			}
		}
	}()
	return s
}

// halt stops the goroutine and waits for it, so no frame is drawn after
// halt returns. Must be called at most once.
func (s *spinner) halt() {
	close(s.stop)
	<-s.done
}

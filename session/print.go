package session

import (
	"context"
	"fmt"

	"github.com/vvuk/cassini/sdcp"
)

// printObservationWindow bounds how many status pushes Print waits through
// before giving up on seeing the BUSY+printing transition.
const printObservationWindow = 5

// Print issues START_PRINTING and reports whether the printer actually
// started: true the first time a status push shows CurrentStatus BUSY with
// a non-idle print phase, false if no such transition shows up within the
// observation window.
func (s *Session) Print(ctx context.Context, filename string) (bool, error) {
	s.setState(StateStarting)

	// Register the watch before submitting so a status push racing the
	// command response is not missed.
	statusCh := make(chan sdcp.StatusSnapshot, printObservationWindow)
	s.mu.Lock()
	s.printWatch = statusCh
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.printWatch = nil
		s.mu.Unlock()
	}()

	if _, err := s.Submit(ctx, sdcp.StartPrinting, sdcp.StartPrintingData{Filename: filename, StartLayer: 0}); err != nil {
		return false, s.fail(fmt.Errorf("session: START_PRINTING: %w", err))
	}

	// Status pushes arrive on the printer's report period, which can be
	// slower than command acks; allow the steady-state bound.
	watchCtx, cancel := context.WithTimeout(ctx, 2*s.getTimeout())
	defer cancel()

	for i := 0; i < printObservationWindow; i++ {
		select {
		case status := <-statusCh:
			if status.CurrentStatus == sdcp.StatusBusy && status.PrintInfo.Status > 0 {
				s.setState(StatePrinting)
				return true, nil
			}
		case <-watchCtx.Done():
			return false, nil
		}
	}
	return false, nil
}

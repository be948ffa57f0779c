package gonogo

import "time"

// Phase is the state of the trial loop at a given elapsed time.
type Phase int

const (
	PhasePresenting Phase = iota
	PhaseInterStimulus
	PhaseEvaluating
)

func (x Phase) String() string {
	return []string{"presenting", "inter_stimulus", "evaluating"}[x]
}

// PhaseAt returns the phase for elapsed time since stimulus onset. The loop
// derives the phase from the clock on every pass instead of counting frames,
// so a slow frame moves the boundary check forward, never the boundary.
func PhaseAt(elapsed, stimulus, total time.Duration) Phase {
	switch {
	case elapsed < stimulus:
		return PhasePresenting
	case elapsed < total:
		return PhaseInterStimulus
	default:
		return PhaseEvaluating
	}
}

// trialState latches the first abort and the first in-window response of a
// trial. Later key presses never change a latched value.
type trialState struct {
	responseKey Key
	abortKey    Key
	window      time.Duration

	responded bool
	rt        time.Duration

	aborted bool
	abortAt time.Duration
}

func newTrialState(responseKey, abortKey Key, window time.Duration) *trialState {
	return &trialState{
		responseKey: responseKey,
		abortKey:    abortKey,
		window:      window,
	}
}

// observe applies polled events in delivery order. Responses stamped before
// onset or at/after the window end are not attributed to this trial; an abort
// counts whenever it was pressed.
func (s *trialState) observe(events []KeyEvent) {
	for _, ev := range events {
		switch ev.Key {
		case s.abortKey:
			if !s.aborted {
				s.aborted = true
				s.abortAt = ev.At
			}
		case s.responseKey:
			if s.responded || ev.At < 0 || ev.At >= s.window {
				continue
			}
			s.responded = true
			s.rt = ev.At
		}
	}
}

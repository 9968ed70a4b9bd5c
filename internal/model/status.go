package model

import "fmt"

// TimerState is the lifecycle state of one stage timer.
type TimerState string

const (
	TimerIdle     TimerState = "idle"
	TimerRunning  TimerState = "running"
	TimerPaused   TimerState = "paused"
	TimerFinished TimerState = "finished"
)

var terminalTimerStates = map[TimerState]bool{
	TimerFinished: true,
}

// idle → running ⇄ paused; running → finished when the countdown hits zero.
// Reset is handled separately: it is allowed from every state.
var validTimerTransitions = map[TimerState]map[TimerState]bool{
	TimerIdle: {
		TimerRunning: true,
	},
	TimerRunning: {
		TimerPaused:   true,
		TimerFinished: true,
	},
	TimerPaused: {
		TimerRunning: true,
	},
}

func IsTimerTerminal(s TimerState) bool {
	return terminalTimerStates[s]
}

func ValidateTimerTransition(from, to TimerState) error {
	if to == TimerIdle {
		return nil
	}
	if IsTimerTerminal(from) {
		return fmt.Errorf("cannot transition from terminal timer state %q", from)
	}
	allowed, ok := validTimerTransitions[from]
	if !ok {
		return fmt.Errorf("unknown timer state %q", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid timer transition: %q → %q", from, to)
	}
	return nil
}

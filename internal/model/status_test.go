package model

import "testing"

func TestIsTimerTerminal(t *testing.T) {
	tests := []struct {
		state    TimerState
		terminal bool
	}{
		{TimerIdle, false},
		{TimerRunning, false},
		{TimerPaused, false},
		{TimerFinished, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := IsTimerTerminal(tt.state); got != tt.terminal {
				t.Errorf("IsTimerTerminal(%q) = %v, want %v", tt.state, got, tt.terminal)
			}
		})
	}
}

func TestValidateTimerTransition(t *testing.T) {
	tests := []struct {
		from, to TimerState
		ok       bool
	}{
		{TimerIdle, TimerRunning, true},
		{TimerRunning, TimerPaused, true},
		{TimerPaused, TimerRunning, true},
		{TimerRunning, TimerFinished, true},
		{TimerIdle, TimerPaused, false},
		{TimerIdle, TimerFinished, false},
		{TimerPaused, TimerFinished, false},
		{TimerRunning, TimerRunning, false},
		{TimerFinished, TimerRunning, false},
		{TimerFinished, TimerIdle, true},
		{TimerPaused, TimerIdle, true},
		{TimerState("bogus"), TimerRunning, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := ValidateTimerTransition(tt.from, tt.to)
			if tt.ok && err != nil {
				t.Errorf("expected transition allowed, got %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected transition rejected")
			}
		})
	}
}

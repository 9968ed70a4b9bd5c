// Package staging walks an ordered list of stages, one timer at a time.
package staging

import (
	"errors"
	"fmt"

	"github.com/msageha/devtimer/internal/agitation"
	"github.com/msageha/devtimer/internal/model"
	"github.com/msageha/devtimer/internal/timer"
)

// ErrNoStages is returned when a process has nothing to run.
var ErrNoStages = errors.New("at least one stage is required")

// ModeLookup returns the current version of a named mode.
type ModeLookup func(name string) (*agitation.Mode, bool)

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithTimerOptions passes options to every timer the sequencer builds.
func WithTimerOptions(opts ...timer.Option) Option {
	return func(s *Sequencer) { s.timerOpts = append(s.timerOpts, opts...) }
}

// OnStageFinished registers a callback run when any stage's countdown ends.
func OnStageFinished(fn func(index int, snap timer.Snapshot)) Option {
	return func(s *Sequencer) { s.onFinished = fn }
}

// Sequencer owns the timer of the current stage. Like timer.Timer it has a
// single owner.
type Sequencer struct {
	stages     []timer.Stage
	resolver   timer.PhaseResolver
	timerOpts  []timer.Option
	onFinished func(int, timer.Snapshot)

	index   int
	current *timer.Timer
}

// New validates every stage up front and builds an idle timer for the first.
func New(stages []timer.Stage, resolver timer.PhaseResolver, opts ...Option) (*Sequencer, error) {
	if len(stages) == 0 {
		return nil, ErrNoStages
	}
	for i, st := range stages {
		if st.DurationSeconds <= 0 {
			return nil, fmt.Errorf("stage %d (%q): %w", i+1, st.Label, timer.ErrInvalidDuration)
		}
	}

	s := &Sequencer{
		stages:   append([]timer.Stage(nil), stages...),
		resolver: resolver,
	}
	for _, opt := range opts {
		opt(s)
	}

	t, err := s.build(0)
	if err != nil {
		return nil, err
	}
	s.current = t
	return s, nil
}

func (s *Sequencer) build(index int) (*timer.Timer, error) {
	opts := append([]timer.Option(nil), s.timerOpts...)
	if s.onFinished != nil {
		fn := s.onFinished
		opts = append(opts, timer.WithFinishHook(func(snap timer.Snapshot) { fn(index, snap) }))
	}
	return timer.New(s.stages[index], s.resolver, opts...)
}

func (s *Sequencer) Current() *timer.Timer { return s.current }
func (s *Sequencer) Index() int            { return s.index }

// Stages returns a copy of the stage list.
func (s *Sequencer) Stages() []timer.Stage {
	return append([]timer.Stage(nil), s.stages...)
}

func (s *Sequencer) HasNextStage() bool {
	return s.index < len(s.stages)-1
}

// Advance replaces the finished timer with an idle one for the next stage.
// Calling it before the current stage has finished, or after the last one,
// is a programming error.
func (s *Sequencer) Advance() *timer.Timer {
	if s.current.State() != model.TimerFinished {
		panic(fmt.Sprintf("staging: advance from stage %d in state %q", s.index, s.current.State()))
	}
	if !s.HasNextStage() {
		panic(fmt.Sprintf("staging: advance past last stage %d", s.index))
	}
	t, err := s.build(s.index + 1)
	if err != nil {
		// durations were validated in New
		panic(fmt.Sprintf("staging: build stage %d: %v", s.index+1, err))
	}
	s.index++
	s.current = t
	return t
}

// RebindPending swaps the mode of every stage that has not started yet for
// the version lookup returns. The running stage keeps the mode it started
// with. The current stage is rebound only while it is still idle. It returns
// the number of stages whose mode changed.
func (s *Sequencer) RebindPending(lookup ModeLookup) int {
	from := s.index + 1
	if s.current.State() == model.TimerIdle {
		from = s.index
	}

	changed := 0
	for i := from; i < len(s.stages); i++ {
		name := s.stages[i].ModeName()
		if name == "" {
			continue
		}
		m, ok := lookup(name)
		if !ok || m.Fingerprint() == s.stages[i].Mode.Fingerprint() {
			continue
		}
		s.stages[i].Mode = m
		changed++
		if i == s.index {
			t, err := s.build(i)
			if err == nil {
				s.current = t
			}
		}
	}
	return changed
}

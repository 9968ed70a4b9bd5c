// Package timer runs one processing stage second by second, switching the
// agitate/rest sub-phases its agitation mode prescribes.
//
// A Timer has a single owner. It is driven by calling Tick once per elapsed
// second and is not safe for concurrent use.
package timer

import (
	"errors"
	"fmt"

	"github.com/msageha/devtimer/internal/agitation"
	"github.com/msageha/devtimer/internal/model"
)

var (
	// ErrInvalidDuration rejects stages that are not at least one second long.
	ErrInvalidDuration = errors.New("stage duration must be positive")
	// ErrInvalidTransition is returned for commands the current state does not allow.
	ErrInvalidTransition = errors.New("invalid timer transition")
)

// PhaseResolver answers which phase a mode prescribes for a minute.
// agitation.Engine is the production implementation.
type PhaseResolver interface {
	PhaseAt(minute, totalMinutes int, mode *agitation.Mode) agitation.Phase
}

// Stage is one chemical step. A nil Mode means no agitation at all.
type Stage struct {
	Label           string
	DurationSeconds int
	Mode            *agitation.Mode
}

// ModeName returns the stage's mode name, or "" for none.
func (s Stage) ModeName() string {
	if s.Mode == nil {
		return ""
	}
	return s.Mode.Name()
}

// Snapshot is what a presentation layer needs to render the timer.
type Snapshot struct {
	Label                    string           `json:"label" yaml:"label"`
	State                    model.TimerState `json:"state" yaml:"state"`
	RemainingSeconds         int              `json:"remaining_seconds" yaml:"remaining_seconds"`
	TotalSeconds             int              `json:"total_seconds" yaml:"total_seconds"`
	CurrentMinute            int              `json:"current_minute" yaml:"current_minute"`
	TotalMinutes             int              `json:"total_minutes" yaml:"total_minutes"`
	IsInAgitationSubPhase    bool             `json:"is_in_agitation_sub_phase" yaml:"is_in_agitation_sub_phase"`
	SubPhaseRemainingSeconds int              `json:"sub_phase_remaining_seconds" yaml:"sub_phase_remaining_seconds"`
	Phase                    agitation.Phase  `json:"phase" yaml:"phase"`
	PhaseDescription         string           `json:"phase_description" yaml:"phase_description"`
}

// Option configures a Timer.
type Option func(*Timer)

// WithFeedback sets the sink for sub-phase and completion cues.
func WithFeedback(f Feedback) Option {
	return func(t *Timer) {
		if f != nil {
			t.feedback = f
		}
	}
}

// WithFinishHook registers a callback run once when the countdown reaches zero.
func WithFinishHook(fn func(Snapshot)) Option {
	return func(t *Timer) { t.onFinish = fn }
}

// Timer is the countdown state machine for one stage.
type Timer struct {
	stage    Stage
	resolver PhaseResolver
	feedback Feedback
	onFinish func(Snapshot)

	state         model.TimerState
	totalSeconds  int
	totalMinutes  int
	remaining     int
	currentMinute int
	agitating     bool
	subRemaining  int
	phase         agitation.Phase
}

// New creates an idle timer for stage.
func New(stage Stage, resolver PhaseResolver, opts ...Option) (*Timer, error) {
	if stage.DurationSeconds <= 0 {
		return nil, fmt.Errorf("stage %q: %w (got %d)", stage.Label, ErrInvalidDuration, stage.DurationSeconds)
	}
	if resolver == nil {
		return nil, fmt.Errorf("stage %q: phase resolver is required", stage.Label)
	}
	t := &Timer{
		stage:        stage,
		resolver:     resolver,
		feedback:     nopFeedback{},
		totalSeconds: stage.DurationSeconds,
		totalMinutes: (stage.DurationSeconds + 59) / 60,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.seed()
	return t, nil
}

func (t *Timer) seed() {
	t.state = model.TimerIdle
	t.remaining = t.totalSeconds
	t.currentMinute = 1
	t.agitating = false
	t.subRemaining = 0
	t.phase = t.resolve(1)
}

func (t *Timer) Stage() Stage            { return t.stage }
func (t *Timer) State() model.TimerState { return t.state }

// Start begins the countdown from idle and enters the first minute's phase.
func (t *Timer) Start() error {
	if t.state != model.TimerIdle {
		return fmt.Errorf("%w: start from %q", ErrInvalidTransition, t.state)
	}
	if err := t.transition(model.TimerRunning); err != nil {
		return err
	}
	t.enterPhase(t.resolve(t.currentMinute))
	return nil
}

// Pause stops the countdown. Sub-phase bookkeeping is kept as is.
func (t *Timer) Pause() error {
	return t.transition(model.TimerPaused)
}

// Resume continues a paused countdown exactly where it stopped.
func (t *Timer) Resume() error {
	if t.state != model.TimerPaused {
		return fmt.Errorf("%w: resume from %q", ErrInvalidTransition, t.state)
	}
	return t.transition(model.TimerRunning)
}

// Reset returns to idle with the same stage, from any state.
func (t *Timer) Reset() {
	t.seed()
}

// Tick advances the countdown by one second. It does nothing unless running.
func (t *Timer) Tick() Snapshot {
	if t.state != model.TimerRunning {
		return t.Snapshot()
	}

	t.remaining--
	if t.remaining <= 0 {
		t.finish()
		return t.Snapshot()
	}

	t.currentMinute = (t.totalSeconds-t.remaining)/60 + 1

	// A new phase restarts the sub-phase countdown on the minute boundary
	// instead of letting the previous cycle run out.
	if phase := t.resolve(t.currentMinute); phase != t.phase {
		t.enterPhase(phase)
		return t.Snapshot()
	}

	t.advanceSubPhase()
	return t.Snapshot()
}

// Snapshot reports the current state without changing it.
func (t *Timer) Snapshot() Snapshot {
	return Snapshot{
		Label:                    t.stage.Label,
		State:                    t.state,
		RemainingSeconds:         t.remaining,
		TotalSeconds:             t.totalSeconds,
		CurrentMinute:            t.currentMinute,
		TotalMinutes:             t.totalMinutes,
		IsInAgitationSubPhase:    t.agitating,
		SubPhaseRemainingSeconds: t.subRemaining,
		Phase:                    t.phase,
		PhaseDescription:         t.phase.Description,
	}
}

func (t *Timer) resolve(minute int) agitation.Phase {
	return t.resolver.PhaseAt(minute, t.totalMinutes, t.stage.Mode)
}

func (t *Timer) transition(to model.TimerState) error {
	if err := model.ValidateTimerTransition(t.state, to); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	t.state = to
	return nil
}

func (t *Timer) finish() {
	t.remaining = 0
	t.state = model.TimerFinished
	t.agitating = false
	t.subRemaining = 0
	t.feedback.Fire(FeedbackStageComplete)
	if t.onFinish != nil {
		t.onFinish(t.Snapshot())
	}
}

func (t *Timer) enterPhase(phase agitation.Phase) {
	t.phase = phase
	pt := phase.Type

	switch pt.Kind {
	case agitation.PhaseCycle:
		if pt.AgitationSeconds > 0 {
			t.beginSubPhase(true, pt.AgitationSeconds)
		} else {
			t.beginSubPhase(false, pt.RestSeconds)
		}
	case agitation.PhasePeriodic:
		if t.fits(pt.IntervalSeconds) {
			t.subRemaining = pt.IntervalSeconds
			t.setAgitating(false)
		} else {
			t.subRemaining = 0
		}
	case agitation.PhaseContinuous, agitation.PhaseCustom:
		t.subRemaining = 0
		t.setAgitating(true)
	default:
		t.subRemaining = 0
		t.setAgitating(false)
	}
}

// advanceSubPhase counts down the active agitate/rest/interval span. When one
// second is left, the next span is chosen now so it begins on the next second.
func (t *Timer) advanceSubPhase() {
	pt := t.phase.Type
	if !pt.HasCountdown() || t.subRemaining == 0 {
		return
	}
	if t.subRemaining > 1 {
		t.subRemaining--
		return
	}

	switch pt.Kind {
	case agitation.PhaseCycle:
		next := !t.agitating
		d := cycleSpan(pt, next)
		if d == 0 {
			// zero-length half: repeat the current one
			next = t.agitating
			d = cycleSpan(pt, next)
		}
		t.beginSubPhase(next, d)
	case agitation.PhasePeriodic:
		if t.fits(pt.IntervalSeconds) {
			t.subRemaining = pt.IntervalSeconds
			t.feedback.Fire(FeedbackPulse)
		} else {
			t.subRemaining = 0
		}
	}
}

// beginSubPhase enters an agitate or rest span of d seconds unless it would
// be cut off by the end of the stage. A suppressed span leaves the agitation
// flag untouched and the countdown at zero until the phase changes.
func (t *Timer) beginSubPhase(agitate bool, d int) {
	if !t.fits(d) {
		t.subRemaining = 0
		return
	}
	t.agitating = agitate
	t.subRemaining = d
	if agitate {
		t.feedback.Fire(FeedbackAgitate)
	} else {
		t.feedback.Fire(FeedbackRest)
	}
}

// fits reports whether a span of d seconds starting now ends no later than
// the stage. remaining has already been decremented for this tick, so it is
// the number of seconds left after it.
func (t *Timer) fits(d int) bool {
	maxPossibleDuration := t.remaining
	return d > 0 && d <= maxPossibleDuration
}

func (t *Timer) setAgitating(v bool) {
	if t.agitating == v {
		return
	}
	t.agitating = v
	if v {
		t.feedback.Fire(FeedbackAgitate)
	} else {
		t.feedback.Fire(FeedbackRest)
	}
}

func cycleSpan(pt agitation.PhaseType, agitate bool) int {
	if agitate {
		return pt.AgitationSeconds
	}
	return pt.RestSeconds
}

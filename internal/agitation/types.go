// Package agitation holds the agitation rule model and the pure functions that
// turn a rule set into the phase governing a given minute of a process.
package agitation

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRule is returned when a rule cannot be constructed from its parts.
	ErrInvalidRule = errors.New("invalid agitation rule")
	// ErrNoDefaultRule is returned by Mode.Validate when no catch-all rule exists.
	ErrNoDefaultRule = errors.New("mode has no default rule")
)

// Action is the instruction a rule yields once it wins resolution.
type Action string

const (
	ActionContinuous Action = "continuous"
	ActionStill      Action = "still"
	ActionCycle      Action = "cycle"
	ActionPeriodic   Action = "periodic"
	ActionRotations  Action = "rotations"
)

var validActions = map[Action]bool{
	ActionContinuous: true,
	ActionStill:      true,
	ActionCycle:      true,
	ActionPeriodic:   true,
	ActionRotations:  true,
}

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	return validActions[a]
}

func (a Action) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("unknown action %q", string(a))
	}
	return []byte(a), nil
}

func (a *Action) UnmarshalText(text []byte) error {
	v := Action(text)
	if !v.Valid() {
		return fmt.Errorf("unknown action %q", string(text))
	}
	*a = v
	return nil
}

// ConditionType selects how a rule's Values are matched against a minute.
type ConditionType string

const (
	ConditionExactMinutes  ConditionType = "exact_minutes"
	ConditionMinuteRange   ConditionType = "minute_range"
	ConditionFirstMinute   ConditionType = "first_minute"
	ConditionLastMinute    ConditionType = "last_minute"
	ConditionEveryNMinutes ConditionType = "every_n_minutes"
	ConditionAfterMinute   ConditionType = "after_minute"
	ConditionDefault       ConditionType = "default"
)

var validConditions = map[ConditionType]bool{
	ConditionExactMinutes:  true,
	ConditionMinuteRange:   true,
	ConditionFirstMinute:   true,
	ConditionLastMinute:    true,
	ConditionEveryNMinutes: true,
	ConditionAfterMinute:   true,
	ConditionDefault:       true,
}

// Valid reports whether c is one of the known condition types.
func (c ConditionType) Valid() bool {
	return validConditions[c]
}

func (c ConditionType) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("unknown condition %q", string(c))
	}
	return []byte(c), nil
}

func (c *ConditionType) UnmarshalText(text []byte) error {
	v := ConditionType(text)
	if !v.Valid() {
		return fmt.Errorf("unknown condition %q", string(text))
	}
	*c = v
	return nil
}

// Parameter keys understood by the interpreter.
const (
	ParamAgitationSeconds = "agitation_seconds"
	ParamRestSeconds      = "rest_seconds"
	ParamIntervalSeconds  = "interval_seconds"
	ParamRotations        = "rotations"
)

// PhaseKind mirrors Action with rotations folded into a described custom phase.
type PhaseKind string

const (
	PhaseContinuous PhaseKind = "continuous"
	PhaseStill      PhaseKind = "still"
	PhaseCycle      PhaseKind = "cycle"
	PhasePeriodic   PhaseKind = "periodic"
	PhaseCustom     PhaseKind = "custom"
)

// PhaseType is a fully instantiated agitation instruction. Only the fields
// relevant to Kind are non-zero, so two PhaseTypes compare equal with ==
// exactly when they describe the same instruction.
type PhaseType struct {
	Kind             PhaseKind `json:"kind" yaml:"kind"`
	AgitationSeconds int       `json:"agitation_seconds,omitempty" yaml:"agitation_seconds,omitempty"`
	RestSeconds      int       `json:"rest_seconds,omitempty" yaml:"rest_seconds,omitempty"`
	IntervalSeconds  int       `json:"interval_seconds,omitempty" yaml:"interval_seconds,omitempty"`
	Rotations        int       `json:"rotations,omitempty" yaml:"rotations,omitempty"`
}

// HasCountdown reports whether the phase drives a sub-phase countdown.
func (t PhaseType) HasCountdown() bool {
	return t.Kind == PhaseCycle || t.Kind == PhasePeriodic
}

// Phase is the resolved answer for one minute of a process.
type Phase struct {
	Type        PhaseType `json:"type" yaml:"type"`
	Description string    `json:"description" yaml:"description"`
}

func Continuous() PhaseType { return PhaseType{Kind: PhaseContinuous} }

func Still() PhaseType { return PhaseType{Kind: PhaseStill} }

func Cycle(agitationSeconds, restSeconds int) PhaseType {
	return PhaseType{Kind: PhaseCycle, AgitationSeconds: agitationSeconds, RestSeconds: restSeconds}
}

func Periodic(intervalSeconds int) PhaseType {
	return PhaseType{Kind: PhasePeriodic, IntervalSeconds: intervalSeconds}
}

func Custom(rotations int) PhaseType {
	return PhaseType{Kind: PhaseCustom, Rotations: rotations}
}

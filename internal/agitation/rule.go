package agitation

import (
	"fmt"
	"slices"
)

// Rule is one conditional agitation instruction. It is immutable once built;
// use NewRule to construct one and the accessors to read it.
type Rule struct {
	priority   int
	condition  ConditionType
	values     []int
	action     Action
	parameters map[string]int
}

// NewRule validates and builds a rule. Values and parameters are copied.
func NewRule(priority int, condition ConditionType, values []int, action Action, parameters map[string]int) (Rule, error) {
	if !condition.Valid() {
		return Rule{}, fmt.Errorf("%w: unknown condition %q", ErrInvalidRule, condition)
	}
	if !action.Valid() {
		return Rule{}, fmt.Errorf("%w: unknown action %q", ErrInvalidRule, action)
	}
	if err := validateValues(condition, values); err != nil {
		return Rule{}, fmt.Errorf("%w: %s: %v", ErrInvalidRule, condition, err)
	}
	if err := validateParameters(action, parameters); err != nil {
		return Rule{}, fmt.Errorf("%w: %s: %v", ErrInvalidRule, action, err)
	}

	r := Rule{
		priority:  priority,
		condition: condition,
		values:    slices.Clone(values),
		action:    action,
	}
	if len(parameters) > 0 {
		r.parameters = make(map[string]int, len(parameters))
		for k, v := range parameters {
			r.parameters[k] = v
		}
	}
	return r, nil
}

// MustRule is NewRule for static rule tables; it panics on invalid input.
func MustRule(priority int, condition ConditionType, values []int, action Action, parameters map[string]int) Rule {
	r, err := NewRule(priority, condition, values, action, parameters)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Rule) Priority() int            { return r.priority }
func (r Rule) Condition() ConditionType { return r.condition }
func (r Rule) Action() Action           { return r.action }

// Values returns a copy of the condition parameters.
func (r Rule) Values() []int { return slices.Clone(r.values) }

// Param returns a named action parameter and whether it was set.
func (r Rule) Param(key string) (int, bool) {
	v, ok := r.parameters[key]
	return v, ok
}

// Parameters returns a copy of the action parameters.
func (r Rule) Parameters() map[string]int {
	out := make(map[string]int, len(r.parameters))
	for k, v := range r.parameters {
		out[k] = v
	}
	return out
}

// Equal reports value equality.
func (r Rule) Equal(o Rule) bool {
	if r.priority != o.priority || r.condition != o.condition || r.action != o.action {
		return false
	}
	if !slices.Equal(r.values, o.values) {
		return false
	}
	if len(r.parameters) != len(o.parameters) {
		return false
	}
	for k, v := range r.parameters {
		if ov, ok := o.parameters[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

func (r Rule) String() string {
	return fmt.Sprintf("%s%v->%s%v@%d", r.condition, r.values, r.action, r.parameters, r.priority)
}

func validateValues(condition ConditionType, values []int) error {
	switch condition {
	case ConditionExactMinutes:
		if len(values) == 0 {
			return fmt.Errorf("requires at least one minute")
		}
		for _, v := range values {
			if v < 1 {
				return fmt.Errorf("minute %d must be >= 1", v)
			}
		}
	case ConditionMinuteRange:
		if len(values) != 2 {
			return fmt.Errorf("requires [lo, hi], got %d values", len(values))
		}
		if values[0] < 1 || values[0] > values[1] {
			return fmt.Errorf("invalid range [%d, %d]", values[0], values[1])
		}
	case ConditionEveryNMinutes:
		if len(values) < 1 || len(values) > 2 {
			return fmt.Errorf("requires [n] or [n, after], got %d values", len(values))
		}
		if values[0] < 1 {
			return fmt.Errorf("n must be >= 1, got %d", values[0])
		}
		if len(values) == 2 && values[1] < 0 {
			return fmt.Errorf("threshold must be >= 0, got %d", values[1])
		}
	case ConditionAfterMinute:
		if len(values) != 1 {
			return fmt.Errorf("requires [threshold], got %d values", len(values))
		}
		if values[0] < 0 {
			return fmt.Errorf("threshold must be >= 0, got %d", values[0])
		}
	case ConditionFirstMinute, ConditionLastMinute, ConditionDefault:
		if len(values) != 0 {
			return fmt.Errorf("takes no values, got %d", len(values))
		}
	}
	return nil
}

func validateParameters(action Action, params map[string]int) error {
	for k, v := range params {
		if v < 0 {
			return fmt.Errorf("parameter %s must be >= 0, got %d", k, v)
		}
	}
	switch action {
	case ActionCycle:
		agitate, hasAgitate := params[ParamAgitationSeconds]
		rest, hasRest := params[ParamRestSeconds]
		if !hasAgitate && !hasRest {
			return fmt.Errorf("requires %s or %s", ParamAgitationSeconds, ParamRestSeconds)
		}
		if agitate == 0 && rest == 0 {
			return fmt.Errorf("%s and %s cannot both be zero", ParamAgitationSeconds, ParamRestSeconds)
		}
	case ActionPeriodic:
		if params[ParamIntervalSeconds] < 1 {
			return fmt.Errorf("requires positive %s", ParamIntervalSeconds)
		}
	case ActionRotations:
		if params[ParamRotations] < 1 {
			return fmt.Errorf("requires positive %s", ParamRotations)
		}
	}
	return nil
}

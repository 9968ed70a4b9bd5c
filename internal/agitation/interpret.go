package agitation

import "fmt"

// Describer renders a phase for people. Localisation lives behind it.
type Describer interface {
	Describe(t PhaseType) string
}

// EnglishDescriber is the built-in Describer.
type EnglishDescriber struct{}

func (EnglishDescriber) Describe(t PhaseType) string {
	switch t.Kind {
	case PhaseContinuous:
		return "Continuous agitation"
	case PhaseStill:
		return "Still"
	case PhaseCycle:
		return fmt.Sprintf("Agitate %ds / rest %ds", t.AgitationSeconds, t.RestSeconds)
	case PhasePeriodic:
		return fmt.Sprintf("Agitate every %ds", t.IntervalSeconds)
	case PhaseCustom:
		if t.Rotations == 1 {
			return "1 rotation"
		}
		return fmt.Sprintf("%d rotations", t.Rotations)
	}
	return string(t.Kind)
}

var defaultDescriber Describer = EnglishDescriber{}

// stillFallback stands in when no rule matches a minute.
var stillFallback = Rule{condition: ConditionDefault, action: ActionStill}

// Interpret maps the winning rule to the concrete phase for the minute.
func Interpret(rule Rule, minute, totalMinutes int) Phase {
	return InterpretWith(defaultDescriber, rule, minute, totalMinutes)
}

// InterpretWith is Interpret with a caller supplied Describer.
func InterpretWith(d Describer, rule Rule, _, _ int) Phase {
	var t PhaseType
	switch rule.action {
	case ActionContinuous:
		t = Continuous()
	case ActionCycle:
		t = Cycle(rule.parameters[ParamAgitationSeconds], rule.parameters[ParamRestSeconds])
	case ActionPeriodic:
		t = Periodic(rule.parameters[ParamIntervalSeconds])
	case ActionRotations:
		t = Custom(rule.parameters[ParamRotations])
	default:
		t = Still()
	}
	return Phase{Type: t, Description: d.Describe(t)}
}

// PhaseAt resolves and interprets in one step. A minute no rule covers is
// still, never an error.
func PhaseAt(minute, totalMinutes int, rules []Rule) Phase {
	return phaseAtWith(defaultDescriber, minute, totalMinutes, rules)
}

func phaseAtWith(d Describer, minute, totalMinutes int, rules []Rule) Phase {
	rule, ok := Resolve(minute, totalMinutes, rules)
	if !ok {
		rule = stillFallback
	}
	return InterpretWith(d, rule, minute, totalMinutes)
}

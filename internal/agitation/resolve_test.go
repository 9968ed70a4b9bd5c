package agitation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cycleParams(agitate, rest int) map[string]int {
	return map[string]int{ParamAgitationSeconds: agitate, ParamRestSeconds: rest}
}

func orwoRules() []Rule {
	return []Rule{
		MustRule(10, ConditionFirstMinute, nil, ActionCycle, cycleParams(45, 15)),
		MustRule(10, ConditionLastMinute, nil, ActionCycle, cycleParams(45, 15)),
		MustRule(1, ConditionDefault, nil, ActionCycle, cycleParams(15, 45)),
	}
}

func TestResolve_Deterministic(t *testing.T) {
	rules := orwoRules()
	first, ok := Resolve(4, 8, rules)
	require.True(t, ok)
	for i := 0; i < 50; i++ {
		got, ok := Resolve(4, 8, rules)
		require.True(t, ok)
		assert.True(t, first.Equal(got))
	}
}

func TestResolve_PriorityOrdering(t *testing.T) {
	low := MustRule(1, ConditionDefault, nil, ActionStill, nil)
	high := MustRule(10, ConditionExactMinutes, []int{3}, ActionContinuous, nil)

	for name, rules := range map[string][]Rule{
		"high first": {high, low},
		"low first":  {low, high},
	} {
		t.Run(name, func(t *testing.T) {
			got, ok := Resolve(3, 8, rules)
			require.True(t, ok)
			assert.Equal(t, ActionContinuous, got.Action())
			assert.Equal(t, 10, got.Priority())
		})
	}
}

func TestResolve_TieGoesToEarliest(t *testing.T) {
	a := MustRule(5, ConditionDefault, nil, ActionStill, nil)
	b := MustRule(5, ConditionDefault, nil, ActionContinuous, nil)

	got, ok := Resolve(2, 4, []Rule{a, b})
	require.True(t, ok)
	assert.Equal(t, ActionStill, got.Action())

	got, ok = Resolve(2, 4, []Rule{b, a})
	require.True(t, ok)
	assert.Equal(t, ActionContinuous, got.Action())
}

func TestResolve_EveryNMinutes(t *testing.T) {
	rules := []Rule{MustRule(5, ConditionEveryNMinutes, []int{5, 10}, ActionContinuous, nil)}

	for _, m := range []int{15, 20, 25, 30, 35} {
		_, ok := Resolve(m, 40, rules)
		assert.True(t, ok, "minute %d should match", m)
	}
	for _, m := range []int{1, 5, 10, 11, 12, 13, 14, 16, 17, 18, 19, 21} {
		_, ok := Resolve(m, 40, rules)
		assert.False(t, ok, "minute %d should not match", m)
	}
}

func TestResolve_EveryNMinutesWithoutThreshold(t *testing.T) {
	rules := []Rule{MustRule(5, ConditionEveryNMinutes, []int{3}, ActionContinuous, nil)}

	var matched []int
	for m := 1; m <= 10; m++ {
		if _, ok := Resolve(m, 10, rules); ok {
			matched = append(matched, m)
		}
	}
	assert.Equal(t, []int{3, 6, 9}, matched)
}

func TestResolve_GenericConditions(t *testing.T) {
	tests := []struct {
		name   string
		rule   Rule
		minute int
		total  int
		want   bool
	}{
		{"exact hit", MustRule(1, ConditionExactMinutes, []int{2, 5}, ActionStill, nil), 5, 8, true},
		{"exact miss", MustRule(1, ConditionExactMinutes, []int{2, 5}, ActionStill, nil), 3, 8, false},
		{"range low edge", MustRule(1, ConditionMinuteRange, []int{2, 4}, ActionStill, nil), 2, 8, true},
		{"range high edge", MustRule(1, ConditionMinuteRange, []int{2, 4}, ActionStill, nil), 4, 8, true},
		{"range outside", MustRule(1, ConditionMinuteRange, []int{2, 4}, ActionStill, nil), 5, 8, false},
		{"first", MustRule(1, ConditionFirstMinute, nil, ActionStill, nil), 1, 8, true},
		{"not first", MustRule(1, ConditionFirstMinute, nil, ActionStill, nil), 2, 8, false},
		{"last", MustRule(1, ConditionLastMinute, nil, ActionStill, nil), 8, 8, true},
		{"not last", MustRule(1, ConditionLastMinute, nil, ActionStill, nil), 7, 8, false},
		{"after", MustRule(1, ConditionAfterMinute, []int{3}, ActionStill, nil), 4, 8, true},
		{"at threshold", MustRule(1, ConditionAfterMinute, []int{3}, ActionStill, nil), 3, 8, false},
		{"default", MustRule(1, ConditionDefault, nil, ActionStill, nil), 6, 8, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Resolve(tt.minute, tt.total, []Rule{tt.rule})
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestPhaseAt_ORWO(t *testing.T) {
	rules := orwoRules()
	for m := 1; m <= 8; m++ {
		p := PhaseAt(m, 8, rules)
		if m == 1 || m == 8 {
			assert.Equal(t, Cycle(45, 15), p.Type, "minute %d", m)
		} else {
			assert.Equal(t, Cycle(15, 45), p.Type, "minute %d", m)
		}
	}
}

func TestPhaseAt_FallbackToStill(t *testing.T) {
	rules := []Rule{MustRule(1, ConditionExactMinutes, []int{5}, ActionContinuous, nil)}

	_, ok := Resolve(3, 8, rules)
	assert.False(t, ok)

	p := PhaseAt(3, 8, rules)
	assert.Equal(t, Still(), p.Type)
	assert.Equal(t, "Still", p.Description)

	assert.Equal(t, Still(), PhaseAt(1, 1, nil).Type)
}

func TestInterpret(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		want Phase
	}{
		{"continuous", MustRule(1, ConditionDefault, nil, ActionContinuous, nil),
			Phase{Type: Continuous(), Description: "Continuous agitation"}},
		{"still", MustRule(1, ConditionDefault, nil, ActionStill, nil),
			Phase{Type: Still(), Description: "Still"}},
		{"cycle", MustRule(1, ConditionDefault, nil, ActionCycle, cycleParams(10, 50)),
			Phase{Type: Cycle(10, 50), Description: "Agitate 10s / rest 50s"}},
		{"cycle missing rest", MustRule(1, ConditionDefault, nil, ActionCycle, map[string]int{ParamAgitationSeconds: 30}),
			Phase{Type: Cycle(30, 0), Description: "Agitate 30s / rest 0s"}},
		{"periodic", MustRule(1, ConditionDefault, nil, ActionPeriodic, map[string]int{ParamIntervalSeconds: 30}),
			Phase{Type: Periodic(30), Description: "Agitate every 30s"}},
		{"one rotation", MustRule(1, ConditionDefault, nil, ActionRotations, map[string]int{ParamRotations: 1}),
			Phase{Type: Custom(1), Description: "1 rotation"}},
		{"rotations", MustRule(1, ConditionDefault, nil, ActionRotations, map[string]int{ParamRotations: 4}),
			Phase{Type: Custom(4), Description: "4 rotations"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Interpret(tt.rule, 1, 8))
		})
	}
}

type upperDescriber struct{}

func (upperDescriber) Describe(t PhaseType) string { return "PHASE " + string(t.Kind) }

func TestInterpretWith_CustomDescriber(t *testing.T) {
	p := InterpretWith(upperDescriber{}, MustRule(1, ConditionDefault, nil, ActionStill, nil), 1, 1)
	assert.Equal(t, "PHASE still", p.Description)
}

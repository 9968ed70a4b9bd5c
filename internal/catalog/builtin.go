package catalog

import (
	"fmt"

	"github.com/msageha/devtimer/internal/agitation"
)

func cycle(agitate, rest int) map[string]int {
	return map[string]int{
		agitation.ParamAgitationSeconds: agitate,
		agitation.ParamRestSeconds:      rest,
	}
}

var builtinDefinitions = []agitation.ModeDefinition{
	{
		Name:        "orwo",
		Description: "45s agitation in the first and last minute, 15s every other minute",
		Rules: []agitation.RuleDefinition{
			{Priority: 10, Condition: agitation.ConditionFirstMinute, Action: agitation.ActionCycle, Parameters: cycle(45, 15)},
			{Priority: 10, Condition: agitation.ConditionLastMinute, Action: agitation.ActionCycle, Parameters: cycle(45, 15)},
			{Priority: 1, Condition: agitation.ConditionDefault, Action: agitation.ActionCycle, Parameters: cycle(15, 45)},
		},
	},
	{
		Name:        "kodak",
		Description: "30s initial agitation, then 5s every 30s",
		Rules: []agitation.RuleDefinition{
			{Priority: 10, Condition: agitation.ConditionFirstMinute, Action: agitation.ActionCycle, Parameters: cycle(30, 30)},
			{Priority: 1, Condition: agitation.ConditionDefault, Action: agitation.ActionCycle, Parameters: cycle(5, 25)},
		},
	},
	{
		Name:        "ilford",
		Description: "Continuous first minute, then 10s each minute",
		Rules: []agitation.RuleDefinition{
			{Priority: 10, Condition: agitation.ConditionFirstMinute, Action: agitation.ActionContinuous},
			{Priority: 1, Condition: agitation.ConditionDefault, Action: agitation.ActionCycle, Parameters: cycle(10, 50)},
		},
	},
	{
		Name:        "continuous",
		Description: "Agitate throughout",
		Rules: []agitation.RuleDefinition{
			{Priority: 1, Condition: agitation.ConditionDefault, Action: agitation.ActionContinuous},
		},
	},
	{
		Name:        "stand",
		Description: "Continuous first minute, then no agitation",
		Rules: []agitation.RuleDefinition{
			{Priority: 10, Condition: agitation.ConditionFirstMinute, Action: agitation.ActionContinuous},
			{Priority: 1, Condition: agitation.ConditionDefault, Action: agitation.ActionStill},
		},
	},
	{
		Name:        "semi-stand",
		Description: "Continuous first minute, 10s every ten minutes, otherwise still",
		Rules: []agitation.RuleDefinition{
			{Priority: 10, Condition: agitation.ConditionFirstMinute, Action: agitation.ActionContinuous},
			{Priority: 5, Condition: agitation.ConditionEveryNMinutes, Values: []int{10}, Action: agitation.ActionCycle, Parameters: cycle(10, 50)},
			{Priority: 1, Condition: agitation.ConditionDefault, Action: agitation.ActionStill},
		},
	},
	{
		Name:        "pulse",
		Description: "One inversion every 60s",
		Rules: []agitation.RuleDefinition{
			{Priority: 1, Condition: agitation.ConditionDefault, Action: agitation.ActionPeriodic,
				Parameters: map[string]int{agitation.ParamIntervalSeconds: 60}},
		},
	},
}

// Builtins returns the modes shipped with devtimer, in a fixed order.
func Builtins() []*agitation.Mode {
	out := make([]*agitation.Mode, 0, len(builtinDefinitions))
	for _, def := range builtinDefinitions {
		m, err := agitation.BuildMode(def, false)
		if err != nil {
			panic(fmt.Sprintf("catalog: built-in mode %s: %v", def.Name, err))
		}
		out = append(out, m)
	}
	return out
}

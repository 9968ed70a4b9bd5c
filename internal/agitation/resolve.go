package agitation

import "slices"

// Resolve returns the rule governing minute (1-indexed) of a process lasting
// totalMinutes. The highest priority match wins and ties go to the rule
// declared first. ok is false when no rule matches.
func Resolve(minute, totalMinutes int, rules []Rule) (winner Rule, ok bool) {
	for _, r := range rules {
		if !r.matches(minute, totalMinutes) {
			continue
		}
		// Strictly greater keeps the earliest rule on ties.
		if !ok || r.priority > winner.priority {
			winner = r
			ok = true
		}
	}
	return winner, ok
}

func (r Rule) matches(minute, totalMinutes int) bool {
	// every_n_minutes needs the periodic offset as well as the threshold,
	// otherwise "every 5 after 10" would match minute 11.
	if r.condition == ConditionEveryNMinutes {
		n, after := r.values[0], 0
		if len(r.values) > 1 {
			after = r.values[1]
		}
		return minute > after && minute >= after+n && (minute-after)%n == 0
	}

	switch r.condition {
	case ConditionExactMinutes:
		return slices.Contains(r.values, minute)
	case ConditionMinuteRange:
		return r.values[0] <= minute && minute <= r.values[1]
	case ConditionFirstMinute:
		return minute == 1
	case ConditionLastMinute:
		return minute == totalMinutes
	case ConditionAfterMinute:
		return minute > r.values[0]
	case ConditionDefault:
		return true
	}
	return false
}

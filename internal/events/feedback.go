package events

import "github.com/msageha/devtimer/internal/timer"

// BusFeedback publishes timer cues as EventFeedback. Data carries the cue
// kind and the label of the stage it belongs to.
type BusFeedback struct {
	bus   *Bus
	label func() string
}

// NewBusFeedback returns a timer.Feedback publishing to bus. label is called
// on every cue to name the current stage and may be nil.
func NewBusFeedback(bus *Bus, label func() string) *BusFeedback {
	return &BusFeedback{bus: bus, label: label}
}

func (f *BusFeedback) Fire(kind timer.FeedbackKind) {
	data := map[string]interface{}{"kind": string(kind)}
	if f.label != nil {
		data["stage"] = f.label()
	}
	f.bus.Publish(EventFeedback, data)
}

package timer

// FeedbackKind names the cue a confirmed transition produces.
type FeedbackKind string

const (
	FeedbackAgitate       FeedbackKind = "agitate"
	FeedbackRest          FeedbackKind = "rest"
	FeedbackPulse         FeedbackKind = "pulse"
	FeedbackStageComplete FeedbackKind = "stage_complete"
)

// Feedback is a fire-and-forget sink for haptic, sound or notification cues.
// Fire is called synchronously from Tick and must not block.
type Feedback interface {
	Fire(kind FeedbackKind)
}

// FeedbackFunc adapts a function to Feedback.
type FeedbackFunc func(kind FeedbackKind)

func (f FeedbackFunc) Fire(kind FeedbackKind) { f(kind) }

type nopFeedback struct{}

func (nopFeedback) Fire(FeedbackKind) {}

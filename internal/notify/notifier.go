package notify

import (
	"fmt"

	"github.com/msageha/devtimer/internal/events"
)

// SendFunc delivers one notification.
type SendFunc func(title, message string) error

// Notifier is an events.Subscriber that notifies on feedback and session
// completion events.
type Notifier struct {
	title   string
	send    SendFunc
	onError func(error)
}

type Option func(*Notifier)

// WithSender replaces Send, mostly for tests.
func WithSender(fn SendFunc) Option {
	return func(n *Notifier) { n.send = fn }
}

// WithErrorHandler receives delivery failures, which are otherwise dropped.
func WithErrorHandler(fn func(error)) Option {
	return func(n *Notifier) { n.onError = fn }
}

func NewNotifier(title string, opts ...Option) *Notifier {
	n := &Notifier{title: title, send: Send}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Subscribe registers the notifier on bus and returns the unsubscribe func.
func (n *Notifier) Subscribe(bus *events.Bus) func() {
	u1 := bus.Subscribe(events.EventFeedback, n.Handle)
	u2 := bus.Subscribe(events.EventSessionFinished, n.Handle)
	return func() {
		u1()
		u2()
	}
}

// Handle sends the notification for e, if any.
func (n *Notifier) Handle(e events.Event) {
	msg := Message(e)
	if msg == "" {
		return
	}
	if err := n.send(n.title, msg); err != nil && n.onError != nil {
		n.onError(err)
	}
}

// Message renders the notification body for e, or "" when e is not worth
// interrupting for.
func Message(e events.Event) string {
	stage, _ := e.Data["stage"].(string)
	prefix := ""
	if stage != "" {
		prefix = stage + ": "
	}

	switch e.Type {
	case events.EventFeedback:
		kind, _ := e.Data["kind"].(string)
		switch kind {
		case "agitate":
			return prefix + "Agitate"
		case "rest":
			return prefix + "Rest"
		case "pulse":
			return prefix + "Invert once"
		case "stage_complete":
			return prefix + "Stage complete"
		}
	case events.EventSessionFinished:
		if n, ok := e.Data["stages"].(int); ok {
			return fmt.Sprintf("All %d stages complete", n)
		}
		return "All stages complete"
	}
	return ""
}

package port

import "context"

// Message is a plain-text e-mail
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers e-mail
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Metrics records workflow counters
type Metrics interface {
	RecordTransition(trigger, from, to string)
	RecordRefusal(trigger, reason string)
	RecordNotification(kind, status string)
	RecordNudge(nudgeType string)
}

// NoopMetrics discards all measurements
type NoopMetrics struct{}

func (NoopMetrics) RecordTransition(trigger, from, to string) {}
func (NoopMetrics) RecordRefusal(trigger, reason string)      {}
func (NoopMetrics) RecordNotification(kind, status string)    {}
func (NoopMetrics) RecordNudge(nudgeType string)              {}

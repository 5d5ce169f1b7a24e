package phoneconfirm

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventConfirmationRequested ActivityEventType = "phone.confirmation.requested"
	ActivityEventConfirmationEvicted   ActivityEventType = "phone.confirmation.evicted"
	ActivityEventConfirmationVerified  ActivityEventType = "phone.confirmation.verified"
	ActivityEventConfirmationRejected  ActivityEventType = "phone.confirmation.rejected"
	ActivityEventActivationRedeemed    ActivityEventType = "phone.activation.redeemed"
	ActivityEventActivationRejected    ActivityEventType = "phone.activation.rejected"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType      ActivityEventType
	PhoneNumber    string
	ConfirmationID string
	Metadata       map[string]any
	OccurredAt     time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

package activitymap

import (
	"context"
	"strings"
	"time"

	phoneconfirm "github.com/goliatone/go-phoneconfirm"
)

const (
	// MetadataKeyPhoneSubject stores the opaque subject derived from the phone number.
	MetadataKeyPhoneSubject = "phone_subject"
	// MetadataKeyPhonePrefix stores the plus sign and first four digits of the phone number.
	MetadataKeyPhonePrefix = "phone_prefix"
)

const (
	defaultChannel    = "phone"
	defaultObjectType = "phone_confirmation"
	defaultActorID    = "system"
	prefixDigits      = 4
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel          string
	objectType       string
	actorFallback    string
	objectIDResolver func(phoneconfirm.ActivityEvent) string
	now              func() time.Time
}

// Normalize converts a phoneconfirm.ActivityEvent into a generic shape.
// The raw phone number never leaves this function; the actor is the phone
// subject instead.
func Normalize(event phoneconfirm.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	subject := phoneconfirm.PhoneSubject(strings.TrimSpace(event.PhoneNumber))
	actorID := firstNonEmpty(subject, strings.TrimSpace(options.actorFallback))

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = options.now().UTC()
	}

	return Normalized{
		ActorID:    actorID,
		Verb:       string(event.EventType),
		ObjectType: strings.TrimSpace(options.objectType),
		ObjectID:   resolveObjectID(event, options.objectIDResolver),
		Channel:    strings.TrimSpace(options.channel),
		Metadata:   normalizeMetadata(event, subject),
		OccurredAt: occurredAt,
	}
}

// Sink adapts a callback receiving normalized records to phoneconfirm.ActivitySink.
func Sink(emit func(Normalized) error, opts ...Option) phoneconfirm.ActivitySink {
	return phoneconfirm.ActivitySinkFunc(func(_ context.Context, event phoneconfirm.ActivityEvent) error {
		if emit == nil {
			return nil
		}
		return emit(Normalize(event, opts...))
	})
}

// WithDefaultChannel sets the default channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithDefaultObjectType sets the default object type for normalized records.
func WithDefaultObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithObjectIDResolver overrides object-id extraction from ActivityEvent.
func WithObjectIDResolver(resolver func(phoneconfirm.ActivityEvent) string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.objectIDResolver = resolver
	}
}

// WithActorFallback sets the actor id used when the event carries no phone.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// WithClock sets the time source for events without OccurredAt.
func WithClock(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if opts == nil || now == nil {
			return
		}
		opts.now = now
	}
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
		now:           time.Now,
	}
}

func resolveObjectID(event phoneconfirm.ActivityEvent, resolver func(phoneconfirm.ActivityEvent) string) string {
	if resolver != nil {
		return strings.TrimSpace(resolver(event))
	}
	return strings.TrimSpace(event.ConfirmationID)
}

func normalizeMetadata(event phoneconfirm.ActivityEvent, subject string) map[string]any {
	metadata := cloneMap(event.Metadata)

	if subject != "" {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[MetadataKeyPhoneSubject] = subject
	}

	if prefix := phonePrefix(event.PhoneNumber); prefix != "" {
		if metadata == nil {
			metadata = map[string]any{}
		}
		if _, exists := metadata[MetadataKeyPhonePrefix]; !exists {
			metadata[MetadataKeyPhonePrefix] = prefix
		}
	}

	return metadata
}

func phonePrefix(phone string) string {
	phone = strings.TrimSpace(phone)
	if !strings.HasPrefix(phone, "+") || len(phone) <= prefixDigits+1 {
		return ""
	}
	return phone[:prefixDigits+1]
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

package phoneconfirm

import (
	"context"
	"time"

	"github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

// Logger is the structured logger used across the package
type Logger = glog.Logger

// LoggerProvider hands out named loggers
type LoggerProvider = glog.LoggerProvider

// ResolveLogger picks provider > logger > nop and always returns a usable logger.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	resolvedProvider, resolved := glog.Resolve(name, provider, logger)
	if resolvedProvider != nil {
		if named := resolvedProvider.GetLogger(name); named != nil {
			resolved = named
		}
	}
	return resolvedProvider, glog.Ensure(resolved)
}

// ConfirmationStore is the persistence contract the lifecycle relies on.
//
// Implementations must enforce unique id and activation_key values and should
// index (created_at, phone_number, code) and (phone_number, code). Every call
// is expected to be atomic on its own; absent records are reported with
// ErrConfirmationNotFound.
type ConfirmationStore interface {
	Insert(ctx context.Context, record *Confirmation) (uuid.UUID, error)
	CountByPhone(ctx context.Context, phoneNumber string) (int, error)
	OldestByPhone(ctx context.Context, phoneNumber string) (*Confirmation, error)
	// Find returns the most recent record for phone and code created at or
	// after notOlderThan. Ties on created_at resolve by the highest id.
	Find(ctx context.Context, phoneNumber, code string, notOlderThan time.Time) (*Confirmation, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Confirmation, error)
	Delete(ctx context.Context, record *Confirmation) error
	DeleteAllByPhone(ctx context.Context, phoneNumber string) (int, error)
}

// CappedConfirmationStore is implemented by stores that can insert a record
// and enforce the per phone cap atomically. It returns the evicted record, if
// any, and the phone's count after the insert.
type CappedConfirmationStore interface {
	InsertCapped(ctx context.Context, record *Confirmation, limit int) (*Confirmation, int, error)
}

// SMSSender delivers text messages. Transport lives outside this package.
type SMSSender interface {
	SendSMS(ctx context.Context, from string, to []string, body string) error
}

// SMSSenderFunc adapts a function to the SMSSender interface.
type SMSSenderFunc func(ctx context.Context, from string, to []string, body string) error

// SendSMS implements SMSSender.
func (f SMSSenderFunc) SendSMS(ctx context.Context, from string, to []string, body string) error {
	if f == nil {
		return nil
	}
	return f(ctx, from, to, body)
}

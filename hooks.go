package phoneconfirm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// HookEvent names a notification emitted by the lifecycle
type HookEvent string

const (
	// HookConfirmationIssued fires after a confirmation record has been stored.
	HookConfirmationIssued HookEvent = "confirmation_issued"
	// HookActivationCreated fires after a code matched, before the phone's records are purged.
	HookActivationCreated HookEvent = "activation_created"
	// HookConfirmationSMSSent fires after SMSDeliveryHandler delivered a code.
	HookConfirmationSMSSent HookEvent = "confirmation_sms_sent"
)

// ConfirmationIssued is the payload of HookConfirmationIssued
type ConfirmationIssued struct {
	ConfirmationID string
	PhoneNumber    string
	FirstName      string
	Code           string
	// Silent is set when the silent filter matched; delivery should be skipped.
	Silent bool
}

// ActivationCreated is the payload of HookActivationCreated
type ActivationCreated struct {
	PhoneNumber string
	// Subject is PhoneSubject(PhoneNumber), also carried as the token sub claim.
	Subject        string
	FirstName      string
	ExpirationDate time.Time
	// ActivationKey is the opaque per record key.
	ActivationKey string
	// ActivationToken is the signed token handed back to the caller.
	ActivationToken string
	// User is whatever the caller passed through WithActivationUser.
	User any
}

// ConfirmationSMSSent is the payload of HookConfirmationSMSSent
type ConfirmationSMSSent struct {
	ConfirmationID string
	PhoneNumber    string
}

// ConfirmationIssuedHandler handles HookConfirmationIssued
type ConfirmationIssuedHandler func(ctx context.Context, event ConfirmationIssued) error

// ActivationCreatedHandler handles HookActivationCreated
type ActivationCreatedHandler func(ctx context.Context, event ActivationCreated) error

// ConfirmationSMSSentHandler handles HookConfirmationSMSSent
type ConfirmationSMSSentHandler func(ctx context.Context, event ConfirmationSMSSent) error

type namedHandler[T any] struct {
	name    string
	handler func(ctx context.Context, event T) error
}

// Hooks keeps the handlers registered per event. Dispatch is best effort:
// every handler runs, failures are logged with the handler name and the
// remaining handlers still run.
type Hooks struct {
	mu                 sync.RWMutex
	confirmationIssued []namedHandler[ConfirmationIssued]
	activationCreated  []namedHandler[ActivationCreated]
	smsSent            []namedHandler[ConfirmationSMSSent]
	logger             Logger
	loggerProvider     LoggerProvider
}

// NewHooks returns an empty registry
func NewHooks() *Hooks {
	provider, logger := ResolveLogger("phoneconfirm.hooks", nil, nil)
	return &Hooks{
		logger:         logger,
		loggerProvider: provider,
	}
}

// WithLogger overrides the logger used to report handler failures.
func (h *Hooks) WithLogger(logger Logger) *Hooks {
	h.loggerProvider, h.logger = ResolveLogger("phoneconfirm.hooks", nil, logger)
	return h
}

// WithLoggerProvider overrides the logger provider.
func (h *Hooks) WithLoggerProvider(provider LoggerProvider) *Hooks {
	h.loggerProvider, h.logger = ResolveLogger("phoneconfirm.hooks", provider, h.logger)
	return h
}

// OnConfirmationIssued registers a handler under name.
func (h *Hooks) OnConfirmationIssued(name string, handler ConfirmationIssuedHandler) *Hooks {
	if h == nil || handler == nil {
		return h
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.confirmationIssued = append(h.confirmationIssued, namedHandler[ConfirmationIssued]{
		name:    handlerName(name),
		handler: handler,
	})
	return h
}

// OnActivationCreated registers a handler under name.
func (h *Hooks) OnActivationCreated(name string, handler ActivationCreatedHandler) *Hooks {
	if h == nil || handler == nil {
		return h
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.activationCreated = append(h.activationCreated, namedHandler[ActivationCreated]{
		name:    handlerName(name),
		handler: handler,
	})
	return h
}

// OnConfirmationSMSSent registers a handler under name.
func (h *Hooks) OnConfirmationSMSSent(name string, handler ConfirmationSMSSentHandler) *Hooks {
	if h == nil || handler == nil {
		return h
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.smsSent = append(h.smsSent, namedHandler[ConfirmationSMSSent]{
		name:    handlerName(name),
		handler: handler,
	})
	return h
}

// EmitConfirmationIssued runs every confirmation_issued handler and returns
// the joined handler errors.
func (h *Hooks) EmitConfirmationIssued(ctx context.Context, event ConfirmationIssued) error {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	handlers := append([]namedHandler[ConfirmationIssued](nil), h.confirmationIssued...)
	h.mu.RUnlock()

	return dispatch(ctx, h.logger, HookConfirmationIssued, event.PhoneNumber, handlers, event)
}

// EmitActivationCreated runs every activation_created handler and returns
// the joined handler errors.
func (h *Hooks) EmitActivationCreated(ctx context.Context, event ActivationCreated) error {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	handlers := append([]namedHandler[ActivationCreated](nil), h.activationCreated...)
	h.mu.RUnlock()

	return dispatch(ctx, h.logger, HookActivationCreated, event.PhoneNumber, handlers, event)
}

// EmitConfirmationSMSSent runs every confirmation_sms_sent handler and
// returns the joined handler errors.
func (h *Hooks) EmitConfirmationSMSSent(ctx context.Context, event ConfirmationSMSSent) error {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	handlers := append([]namedHandler[ConfirmationSMSSent](nil), h.smsSent...)
	h.mu.RUnlock()

	return dispatch(ctx, h.logger, HookConfirmationSMSSent, event.PhoneNumber, handlers, event)
}

func dispatch[T any](ctx context.Context, logger Logger, event HookEvent, phoneNumber string, handlers []namedHandler[T], payload T) error {
	var joined error
	for _, nh := range handlers {
		if err := runHandler(ctx, nh, payload); err != nil {
			hookErr := &HookError{Event: event, Handler: nh.name, Err: err}
			if logger != nil {
				logger.Error("hook handler failed",
					"event", string(event),
					"handler", nh.name,
					"phone_number", phoneNumber,
					"error", err,
				)
			}
			joined = errors.Join(joined, hookErr)
		}
	}
	return joined
}

func runHandler[T any](ctx context.Context, nh namedHandler[T], payload T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return nh.handler(ctx, payload)
}

func handlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unnamed"
	}
	return name
}

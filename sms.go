package phoneconfirm

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const codePlaceholder = "%(code)s"

// SMSDeliveryHandler sends the confirmation code through an SMSSender.
// Register Handle on Hooks.OnConfirmationIssued. When hooks are attached with
// WithHooks, every delivered code fires confirmation_sms_sent.
type SMSDeliveryHandler struct {
	sender   SMSSender
	hooks    *Hooks
	message  string
	from     string
	logger   Logger
	provider LoggerProvider
}

// NewSMSDeliveryHandler uses SMSMessage and FromNumber from cfg.
func NewSMSDeliveryHandler(sender SMSSender, cfg Config) *SMSDeliveryHandler {
	provider, logger := ResolveLogger("phoneconfirm.sms", nil, nil)
	message := cfg.SMSMessage
	if strings.TrimSpace(message) == "" {
		message = DefaultSMSMessage
	}
	return &SMSDeliveryHandler{
		sender:   sender,
		message:  message,
		from:     cfg.FromNumber,
		logger:   logger,
		provider: provider,
	}
}

// WithLogger overrides the handler logger.
func (h *SMSDeliveryHandler) WithLogger(logger Logger) *SMSDeliveryHandler {
	h.provider, h.logger = ResolveLogger("phoneconfirm.sms", nil, logger)
	return h
}

// WithLoggerProvider overrides the handler logger provider.
func (h *SMSDeliveryHandler) WithLoggerProvider(provider LoggerProvider) *SMSDeliveryHandler {
	h.provider, h.logger = ResolveLogger("phoneconfirm.sms", provider, h.logger)
	return h
}

// WithHooks sets the registry notified after a successful delivery.
func (h *SMSDeliveryHandler) WithHooks(hooks *Hooks) *SMSDeliveryHandler {
	h.hooks = hooks
	return h
}

// Render builds the message body for code.
func (h *SMSDeliveryHandler) Render(code string) string {
	return strings.ReplaceAll(h.message, codePlaceholder, code)
}

// Handle is a ConfirmationIssuedHandler.
func (h *SMSDeliveryHandler) Handle(ctx context.Context, event ConfirmationIssued) error {
	body := h.Render(event.Code)

	if event.Silent {
		h.logger.Debug("filtered phone confirmation SMS", "to", event.PhoneNumber)
		return nil
	}

	if h.sender == nil {
		return goerrors.New("sms sender is not configured", goerrors.CategoryInternal)
	}

	if err := h.sender.SendSMS(ctx, h.from, []string{event.PhoneNumber}, body); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to send confirmation SMS")
	}

	// handler failures are logged by the registry
	_ = h.hooks.EmitConfirmationSMSSent(ctx, ConfirmationSMSSent{
		ConfirmationID: event.ConfirmationID,
		PhoneNumber:    event.PhoneNumber,
	})

	return nil
}

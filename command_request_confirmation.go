package phoneconfirm

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
)

type RequestConfirmationMessage struct {
	PhoneNumber string  `json:"phone_number" example:"+15551234567" doc:"Phone number to confirm."`
	FirstName   *string `json:"first_name,omitempty" example:"Pepe" doc:"Optional display name."`
	OnResponse  func(resp *RequestConfirmationResponse)
}

func (m RequestConfirmationMessage) Type() string { return "phone.confirmation.request" }

func (m RequestConfirmationMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.PhoneNumber, validation.Required, validation.Length(3, 32)),
		validation.Field(&m.FirstName, validation.NilOrNotEmpty, validation.Length(1, maxFirstNameLength)),
	)
}

type RequestConfirmationResponse struct {
	ConfirmationID string
	Confirmation   *Confirmation
}

type RequestConfirmationHandler struct {
	lifecycle Lifecycle
}

func NewRequestConfirmationHandler(lifecycle Lifecycle) *RequestConfirmationHandler {
	return &RequestConfirmationHandler{lifecycle: lifecycle}
}

func (h *RequestConfirmationHandler) Execute(ctx context.Context, msg RequestConfirmationMessage) error {
	select {
	case <-ctx.Done():
		return cancelledError(ctx, "context cancelled during phone confirmation request")
	default:
		return h.execute(ctx, msg)
	}
}

func (h *RequestConfirmationHandler) execute(ctx context.Context, msg RequestConfirmationMessage) error {
	if h == nil || h.lifecycle == nil {
		return missingLifecycleError()
	}

	if err := msg.Validate(); err != nil {
		return invalidMessageError(err)
	}

	record, err := h.lifecycle.RequestConfirmation(ctx, msg.PhoneNumber, msg.FirstName)
	if err != nil {
		return err
	}

	resp := &RequestConfirmationResponse{
		ConfirmationID: record.ID.String(),
		Confirmation:   record,
	}
	storeResult(ctx, resp)

	if msg.OnResponse != nil {
		msg.OnResponse(resp)
	}

	return nil
}

package phoneconfirm

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

type ConfirmMobileCodeMessage struct {
	ConfirmationID   string `json:"confirmation_id" example:"0190f5c4-8a4e-7c53-9a53-0d9b0e6f0c11" doc:"Confirmation record id."`
	ConfirmationCode string `json:"confirmation_code" example:"012345" doc:"Confirmation code."`
	OnResponse       func(resp *ConfirmResponse)
}

func (m ConfirmMobileCodeMessage) Type() string { return "phone.confirmation.confirm_mobile" }

func (m ConfirmMobileCodeMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ConfirmationID, validation.Required, is.UUID),
		validation.Field(&m.ConfirmationCode, validation.Required, is.Digit),
	)
}

type ConfirmMobileCodeHandler struct {
	lifecycle Lifecycle
}

func NewConfirmMobileCodeHandler(lifecycle Lifecycle) *ConfirmMobileCodeHandler {
	return &ConfirmMobileCodeHandler{lifecycle: lifecycle}
}

func (h *ConfirmMobileCodeHandler) Execute(ctx context.Context, msg ConfirmMobileCodeMessage) error {
	select {
	case <-ctx.Done():
		return cancelledError(ctx, "context cancelled during mobile phone confirmation")
	default:
		return h.execute(ctx, msg)
	}
}

func (h *ConfirmMobileCodeHandler) execute(ctx context.Context, msg ConfirmMobileCodeMessage) error {
	if h == nil || h.lifecycle == nil {
		return missingLifecycleError()
	}

	if err := msg.Validate(); err != nil {
		return ErrInvalidCode
	}

	result, err := h.lifecycle.VerifyByIDAndCode(ctx, msg.ConfirmationID, msg.ConfirmationCode)
	if err != nil {
		return err
	}

	resp := newConfirmResponse(result)
	storeResult(ctx, resp)

	if msg.OnResponse != nil {
		msg.OnResponse(resp)
	}

	return nil
}

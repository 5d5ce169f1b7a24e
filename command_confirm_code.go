package phoneconfirm

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// ConfirmResponse is delivered after a code has been accepted
type ConfirmResponse struct {
	PhoneNumber     string
	ActivationToken string
	ExpirationDate  string
	Result          *VerifyResult
}

func newConfirmResponse(result *VerifyResult) *ConfirmResponse {
	return &ConfirmResponse{
		PhoneNumber:     result.Confirmation.PhoneNumber,
		ActivationToken: result.ActivationToken,
		ExpirationDate:  result.ExpirationDate.Format(time.RFC3339),
		Result:          result,
	}
}

type ConfirmCodeMessage struct {
	PhoneNumber string `json:"phone_number" example:"+15551234567" doc:"Phone number the code was sent to."`
	Code        string `json:"code" example:"012345" doc:"Confirmation code."`
	// User is forwarded to activation_created listeners.
	User       any `json:"-"`
	OnResponse func(resp *ConfirmResponse)
}

func (m ConfirmCodeMessage) Type() string { return "phone.confirmation.confirm" }

func (m ConfirmCodeMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.PhoneNumber, validation.Required, validation.Length(3, 32)),
		validation.Field(&m.Code, validation.Required, is.Digit),
	)
}

type ConfirmCodeHandler struct {
	lifecycle Lifecycle
}

func NewConfirmCodeHandler(lifecycle Lifecycle) *ConfirmCodeHandler {
	return &ConfirmCodeHandler{lifecycle: lifecycle}
}

func (h *ConfirmCodeHandler) Execute(ctx context.Context, msg ConfirmCodeMessage) error {
	select {
	case <-ctx.Done():
		return cancelledError(ctx, "context cancelled during phone confirmation")
	default:
		return h.execute(ctx, msg)
	}
}

func (h *ConfirmCodeHandler) execute(ctx context.Context, msg ConfirmCodeMessage) error {
	if h == nil || h.lifecycle == nil {
		return missingLifecycleError()
	}

	if err := msg.Validate(); err != nil {
		return ErrInvalidCode
	}

	result, err := h.lifecycle.VerifyByPhoneAndCode(ctx, msg.PhoneNumber, msg.Code, WithActivationUser(msg.User))
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

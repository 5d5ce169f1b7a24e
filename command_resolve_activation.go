package phoneconfirm

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
)

type ResolveActivationTokenMessage struct {
	ActivationToken string `json:"activation_token" doc:"Token returned by a successful confirmation."`
	OnResponse      func(resp *ResolveActivationTokenResponse)
}

func (m ResolveActivationTokenMessage) Type() string { return "phone.activation.resolve" }

func (m ResolveActivationTokenMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ActivationToken, validation.Required),
	)
}

type ResolveActivationTokenResponse struct {
	PhoneNumber string
}

type ResolveActivationTokenHandler struct {
	lifecycle Lifecycle
}

func NewResolveActivationTokenHandler(lifecycle Lifecycle) *ResolveActivationTokenHandler {
	return &ResolveActivationTokenHandler{lifecycle: lifecycle}
}

func (h *ResolveActivationTokenHandler) Execute(ctx context.Context, msg ResolveActivationTokenMessage) error {
	select {
	case <-ctx.Done():
		return cancelledError(ctx, "context cancelled during activation token resolution")
	default:
		return h.execute(ctx, msg)
	}
}

func (h *ResolveActivationTokenHandler) execute(ctx context.Context, msg ResolveActivationTokenMessage) error {
	if h == nil || h.lifecycle == nil {
		return missingLifecycleError()
	}

	if err := msg.Validate(); err != nil {
		return ErrInvalidToken
	}

	phone, err := h.lifecycle.ValidateActivationToken(ctx, msg.ActivationToken)
	if err != nil {
		return err
	}

	resp := &ResolveActivationTokenResponse{PhoneNumber: phone}
	storeResult(ctx, resp)

	if msg.OnResponse != nil {
		msg.OnResponse(resp)
	}

	return nil
}

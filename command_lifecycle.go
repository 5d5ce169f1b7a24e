package phoneconfirm

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
)

// Lifecycle is the part of Service the command handlers depend on
type Lifecycle interface {
	RequestConfirmation(ctx context.Context, phoneNumber string, firstName *string) (*Confirmation, error)
	VerifyByPhoneAndCode(ctx context.Context, phoneNumber, code string, opts ...VerifyOption) (*VerifyResult, error)
	VerifyByIDAndCode(ctx context.Context, id, code string, opts ...VerifyOption) (*VerifyResult, error)
	ValidateActivationToken(ctx context.Context, token string) (string, error)
}

var _ Lifecycle = (*Service)(nil)

var (
	_ gocmd.Commander[RequestConfirmationMessage]    = (*RequestConfirmationHandler)(nil)
	_ gocmd.Commander[ConfirmCodeMessage]            = (*ConfirmCodeHandler)(nil)
	_ gocmd.Commander[ConfirmMobileCodeMessage]      = (*ConfirmMobileCodeHandler)(nil)
	_ gocmd.Commander[ResolveActivationTokenMessage] = (*ResolveActivationTokenHandler)(nil)
)

func cancelledError(ctx context.Context, msg string) error {
	return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, msg)
}

func missingLifecycleError() error {
	return goerrors.New("phone confirmation lifecycle is required", goerrors.CategoryInternal)
}

func invalidMessageError(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid phone confirmation message")
}

// storeResult hands value to a go-command result collector when ctx carries one
func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}

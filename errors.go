package phoneconfirm

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCode           = "INVALID_CONFIRMATION_CODE"
	TextCodeInvalidToken          = "INVALID_ACTIVATION_TOKEN"
	TextCodeInvalidPhoneNumber    = "INVALID_PHONE_NUMBER"
	TextCodeConfirmationNotFound  = "CONFIRMATION_NOT_FOUND"
	TextCodeDuplicateConfirmation = "DUPLICATE_CONFIRMATION"
	TextCodeFirstNameTooLong      = "FIRST_NAME_TOO_LONG"
)

// ErrInvalidCode is returned for wrong, expired or unknown codes alike
var ErrInvalidCode = goerrors.New("the code or phone number are invalid", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidCode).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidToken is returned for malformed, forged or expired activation tokens
var ErrInvalidToken = goerrors.New("invalid activation key", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidPhoneNumber is returned when a phone number cannot be normalized
var ErrInvalidPhoneNumber = goerrors.New("invalid phone number", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidPhoneNumber).
	WithCode(goerrors.CodeBadRequest)

// ErrFirstNameTooLong is returned when a first name exceeds 120 characters
var ErrFirstNameTooLong = goerrors.New("first name is too long", goerrors.CategoryValidation).
	WithTextCode(TextCodeFirstNameTooLong).
	WithCode(goerrors.CodeBadRequest)

// ErrConfirmationNotFound is the store level "no such record" error
var ErrConfirmationNotFound = goerrors.New("phone confirmation not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeConfirmationNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrDuplicateConfirmation is returned when an insert would break id or activation key uniqueness
var ErrDuplicateConfirmation = goerrors.New("phone confirmation already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateConfirmation).
	WithCode(goerrors.CodeConflict)

// ErrTokenMalformed means the token could not be decoded or its signature did not verify
var ErrTokenMalformed = errors.New("activation token is malformed")

// ErrTokenExpired means the token is older than the activation timeout
var ErrTokenExpired = errors.New("activation token is expired")

// HookError describes a single handler failure during hook dispatch.
type HookError struct {
	Event   HookEvent
	Handler string
	Err     error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s handler %q failed: %v", e.Event, e.Handler, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// IsConfirmationNotFound reports whether err marks a missing record
func IsConfirmationNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrConfirmationNotFound)
}

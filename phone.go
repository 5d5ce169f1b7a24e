package phoneconfirm

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// NormalizePhoneNumber parses raw and formats it as E.164.
//
// Numbers without a leading "+" need a defaultRegion (e.g. "US"). With strict
// set the number must be assigned in its numbering plan, otherwise only its
// length has to be plausible.
func NormalizePhoneNumber(raw, defaultRegion string, strict bool) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidPhoneNumber
	}

	num, err := phonenumbers.Parse(trimmed, strings.ToUpper(strings.TrimSpace(defaultRegion)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPhoneNumber, err)
	}

	if strict {
		if !phonenumbers.IsValidNumber(num) {
			return "", ErrInvalidPhoneNumber
		}
	} else if !phonenumbers.IsPossibleNumber(num) {
		return "", ErrInvalidPhoneNumber
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}

package phoneconfirm

import (
	"strings"

	"github.com/google/uuid"
)

// parseConfirmationID accepts the canonical uuid forms and rejects the nil uuid.
func parseConfirmationID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, err
	}
	if id == uuid.Nil {
		return uuid.Nil, ErrConfirmationNotFound
	}
	return id, nil
}

// IsConfirmationID reports whether raw can identify a confirmation record.
func IsConfirmationID(raw string) bool {
	_, err := parseConfirmationID(raw)
	return err == nil
}

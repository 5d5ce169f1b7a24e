package phoneconfirm

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// maxFirstNameLength matches the first_name column width.
const maxFirstNameLength = 120

// Confirmation stores a confirmation code issued for a phone number.
// Records are append only: they are created, matched and deleted, never updated.
type Confirmation struct {
	bun.BaseModel `bun:"table:phone_confirmations,alias:pc"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"confirmation_id"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	PhoneNumber   string    `bun:"phone_number,notnull" json:"phone_number"`
	Code          string    `bun:"code,notnull" json:"-"`
	FirstName     *string   `bun:"first_name,type:varchar(120)" json:"first_name,omitempty"`
	ActivationKey string    `bun:"activation_key,notnull,unique" json:"-"`
}

func (c *Confirmation) String() string {
	if c == nil {
		return ""
	}
	return c.PhoneNumber
}

// GetFirstName returns the optional display name or an empty string.
func (c *Confirmation) GetFirstName() string {
	if c == nil || c.FirstName == nil {
		return ""
	}
	return *c.FirstName
}

func (c *Confirmation) clone() *Confirmation {
	if c == nil {
		return nil
	}
	out := *c
	if c.FirstName != nil {
		name := *c.FirstName
		out.FirstName = &name
	}
	return &out
}

// VerifyResult is returned after a code has been matched and consumed.
type VerifyResult struct {
	// Confirmation is the matched record. It no longer exists in the store.
	Confirmation *Confirmation
	// ActivationToken is the signed token that resolves back to the phone number.
	ActivationToken string
	// ExpirationDate is the client facing expiration, driven by TokenPeriod.
	ExpirationDate time.Time
}

func validFirstName(name *string) bool {
	return name == nil || utf8.RuneCountInString(*name) <= maxFirstNameLength
}

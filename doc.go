// Package phoneconfirm issues and verifies short lived phone number
// confirmation codes and exchanges a verified code for a signed activation
// token.
//
// Lifecycle:
//   - Service.RequestConfirmation stores a Confirmation with a random numeric
//     code, evicts the oldest record once a phone holds more than
//     MaxConfirmations, and fires the confirmation_issued hook. Delivery is
//     left to hook handlers; SMSDeliveryHandler sends through any SMSSender.
//   - Service.VerifyByPhoneAndCode and Service.VerifyByIDAndCode match a code,
//     mint an activation token, fire activation_created and delete every
//     confirmation of the phone. Wrong, expired and unknown codes all report
//     ErrInvalidCode.
//   - Service.ValidateActivationToken resolves a token back to its phone
//     number or reports ErrInvalidToken.
//
// Storage:
//   - ConfirmationStore is satisfied by MemoryStore and by the bun backed
//     Confirmations repository. The repository package wires the embedded SQL
//     migrations through go-persistence-bun.
//
// Hooks run best effort. A failing or panicking handler is logged with its
// name and never fails the operation that fired it.
package phoneconfirm

// Package payments turns a booking into an opaque payment reference. The
// engine stores the reference on the appointment and never interprets it.
package payments

import "context"

type Charge struct {
	BusinessID  string
	ServiceID   string
	CustomerID  string
	AmountCents int64
	Currency    string
	Description string
}

// Collaborator produces a payment reference for a charge before the slot is
// claimed. Implementations may return an empty reference when no payment is
// required.
type Collaborator interface {
	Reference(ctx context.Context, charge Charge) (string, error)
}

// Disabled is the no-payment collaborator used in dev mode and for free
// services.
type Disabled struct{}

func (Disabled) Reference(context.Context, Charge) (string, error) {
	return "", nil
}

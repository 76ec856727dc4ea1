// Package payment adapts external payment processors to the two calls the
// checkout flow needs: open an intent for an amount, and later ask whether
// that intent has been paid.
package payment

import (
	"context"
	"errors"
)

// ErrGateway wraps failures talking to the processor.  Callers treat it as
// "payment state unknown" and never as a declined payment.
var ErrGateway = errors.New("payment gateway error")

// Intent identifies a payment the client has to complete.  ClientSecret is
// handed to the browser (an authorize URI or a scannable source id);
// IntentID is what the server later confirms.
type Intent struct {
	ClientSecret string `json:"clientSecret"`
	IntentID     string `json:"intentId"`
}

// Gateway is implemented by every processor adapter.  Amounts are integer
// minor units of Currency.
type Gateway interface {
	CreateIntent(ctx context.Context, amountCents int64, description, currency string) (Intent, error)
	// ConfirmIntent reports whether the intent reached a succeeded state.
	// A pending or failed intent is (false, nil).
	ConfirmIntent(ctx context.Context, intentID string) (bool, error)
}

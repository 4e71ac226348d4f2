package payment

import (
	"context"
	"errors"
)

// ErrDeclined marks provider-reported confirmation failures (card declined
// and similar). The order stays PENDING and can be retried from history.
var ErrDeclined = errors.New("payment: declined by provider")

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Intent is the ephemeral provider-issued authorization scoped to exactly one
// order at a time.
type Intent struct {
	ClientSecret string `json:"clientSecret"`
	Status       Status `json:"status,omitempty"`
}

// Instrument carries the user-entered payment method handed to the provider.
// The raw card number never transits the shop API.
type Instrument struct {
	PaymentMethodID string
	CardholderName  string
}

// Confirmer is the outbound port for driving the external payment
// confirmation step. It belongs to the domain to express the workflow's
// dependency without binding to a concrete provider SDK.
type Confirmer interface {
	Confirm(ctx context.Context, intent Intent, instrument Instrument) (Status, error)
}

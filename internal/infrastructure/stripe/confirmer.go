// Package stripe adapts the payment confirmation port to the Stripe SDK.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/richclaudfelixjp/storefront/internal/domain/payment"
	"github.com/richclaudfelixjp/storefront/internal/observability"
	stripego "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
)

var ErrBadClientSecret = errors.New("stripe: malformed client secret")

// Confirmer drives a payment intent to completion with the user's payment
// method. It implements payment.Confirmer.
type Confirmer struct {
	log observability.Logger
}

func NewConfirmer(secretKey string, tel observability.Observability) (*Confirmer, error) {
	if secretKey == "" {
		return nil, errors.New("stripe: secret key is required")
	}
	stripego.Key = secretKey

	logger := observability.NopLogger()
	if tel != nil {
		logger = tel.Logger()
	}
	return &Confirmer{
		log: logger.With(observability.F("component", "stripe_confirmer")),
	}, nil
}

func (c *Confirmer) Confirm(ctx context.Context, intent payment.Intent, instrument payment.Instrument) (payment.Status, error) {
	id, err := intentID(intent.ClientSecret)
	if err != nil {
		return payment.StatusFailed, err
	}

	params := &stripego.PaymentIntentConfirmParams{
		Params: stripego.Params{Context: ctx},
	}
	if instrument.PaymentMethodID != "" {
		params.PaymentMethod = stripego.String(instrument.PaymentMethodID)
	}

	pi, err := paymentintent.Confirm(id, params)
	if err != nil {
		var stripeErr *stripego.Error
		if errors.As(err, &stripeErr) {
			c.log.Warn("payment_confirm_declined",
				observability.F("intent_id", id),
				observability.F("code", string(stripeErr.Code)),
			)
			return payment.StatusFailed, fmt.Errorf("%w: %s", payment.ErrDeclined, stripeErr.Msg)
		}
		return payment.StatusFailed, fmt.Errorf("stripe: confirm intent: %w", err)
	}

	if pi.Status != stripego.PaymentIntentStatusSucceeded {
		c.log.Warn("payment_confirm_incomplete",
			observability.F("intent_id", id),
			observability.F("status", string(pi.Status)),
		)
		return payment.StatusFailed, fmt.Errorf("%w: intent status %s", payment.ErrDeclined, pi.Status)
	}

	c.log.Info("payment_confirmed", observability.F("intent_id", id))
	return payment.StatusSucceeded, nil
}

// intentID recovers the intent identifier from a client secret of the form
// pi_<id>_secret_<nonce>.
func intentID(clientSecret string) (string, error) {
	idx := strings.Index(clientSecret, "_secret")
	if !strings.HasPrefix(clientSecret, "pi_") || idx < 0 {
		return "", ErrBadClientSecret
	}
	return clientSecret[:idx], nil
}

package payments

import (
	"context"
	"log/slog"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
)

// Stripe creates a PaymentIntent per booking and hands back its id. The
// intent is created uncaptured; capture happens out of band once the owner
// approves the appointment.
type Stripe struct {
	logger *slog.Logger
}

func NewStripe(apiKey string, logger *slog.Logger) *Stripe {
	stripe.Key = apiKey
	return &Stripe{logger: logger}
}

func (s *Stripe) Reference(ctx context.Context, charge Charge) (string, error) {
	if charge.AmountCents <= 0 {
		return "", nil
	}
	currency := charge.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(charge.AmountCents),
		Currency:      stripe.String(currency),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		Description:   stripe.String(charge.Description),
	}
	params.Context = ctx
	params.AddMetadata("business_id", charge.BusinessID)
	params.AddMetadata("service_id", charge.ServiceID)
	params.AddMetadata("customer_id", charge.CustomerID)

	intent, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}
	s.logger.Info("payment intent created", "payment_intent_id", intent.ID, "amount_cents", charge.AmountCents)
	return intent.ID, nil
}

package services

import (
	"errors"
	"fmt"
	"os"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

var (
	ErrPaymentNotSucceeded   = errors.New("payment has not succeeded")
	ErrPaymentAmountMismatch = errors.New("payment amount does not match booking cost")
)

// PaymentService wraps Stripe PaymentIntents. Bookings are only created
// after the intent reports succeeded, unless test mode is switched on via
// PAYMENTS_TEST_MODE (never the default).
type PaymentService struct {
	testMode bool
}

func NewPaymentService() *PaymentService {
	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
	return &PaymentService{
		testMode: os.Getenv("PAYMENTS_TEST_MODE") == "true",
	}
}

// TestMode reports whether the payment check is bypassed
func (p *PaymentService) TestMode() bool {
	return p.testMode
}

// CreateIntent opens a payment intent for the given amount in cents
func (p *PaymentService) CreateIntent(amountCents int64, rideID, passengerID uint) (id, clientSecret string, err error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("ride_id", fmt.Sprintf("%d", rideID))
	params.AddMetadata("passenger_id", fmt.Sprintf("%d", passengerID))

	intent, err := paymentintent.New(params)
	if err != nil {
		return "", "", err
	}
	return intent.ID, intent.ClientSecret, nil
}

// VerifyIntent confirms the intent exists, has succeeded, and was charged
// for the expected amount. Checking the amount stops a cheap intent from
// authorizing a larger booking. In test mode the check is skipped entirely.
func (p *PaymentService) VerifyIntent(intentID string, amountCents int64) error {
	if p.testMode {
		return nil
	}
	if intentID == "" {
		return ErrPaymentNotSucceeded
	}

	intent, err := paymentintent.Get(intentID, nil)
	if err != nil {
		return err
	}
	return checkIntent(intent, amountCents)
}

func checkIntent(intent *stripe.PaymentIntent, amountCents int64) error {
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return ErrPaymentNotSucceeded
	}
	if intent.Amount != amountCents {
		return ErrPaymentAmountMismatch
	}
	return nil
}

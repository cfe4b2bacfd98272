package services

import (
	"errors"
	"testing"

	"github.com/stripe/stripe-go/v74"
)

func TestCheckIntent(t *testing.T) {
	tests := []struct {
		name    string
		intent  *stripe.PaymentIntent
		amount  int64
		wantErr error
	}{
		{
			"succeeded with matching amount",
			&stripe.PaymentIntent{Status: stripe.PaymentIntentStatusSucceeded, Amount: 7200},
			7200,
			nil,
		},
		{
			"amount for fewer seats than booked",
			&stripe.PaymentIntent{Status: stripe.PaymentIntentStatusSucceeded, Amount: 5600},
			16800,
			ErrPaymentAmountMismatch,
		},
		{
			"not yet succeeded",
			&stripe.PaymentIntent{Status: stripe.PaymentIntentStatusRequiresPaymentMethod, Amount: 7200},
			7200,
			ErrPaymentNotSucceeded,
		},
	}
	for _, tt := range tests {
		if err := checkIntent(tt.intent, tt.amount); !errors.Is(err, tt.wantErr) {
			t.Errorf("%s: checkIntent() = %v, want %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestVerifyIntentTestMode(t *testing.T) {
	t.Setenv("PAYMENTS_TEST_MODE", "true")
	svc := NewPaymentService()
	if !svc.TestMode() {
		t.Fatal("expected test mode on")
	}
	if err := svc.VerifyIntent("", 123); err != nil {
		t.Errorf("test mode should bypass verification, got %v", err)
	}
}

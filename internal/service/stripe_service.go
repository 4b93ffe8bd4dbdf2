package service

import (
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/refund"
)

// StripeService wraps the Stripe checkout and refund calls used by the
// booking lifecycle. The API key is set globally in main.
type StripeService struct {
	successURL string
	cancelURL  string
}

func NewStripeService(successURL, cancelURL string) *StripeService {
	return &StripeService{successURL: successURL, cancelURL: cancelURL}
}

// CreateCheckoutSession opens a one-off payment session and returns the
// hosted checkout URL plus the session ID the webhook will echo back.
func (s *StripeService) CreateCheckoutSession(amount int64, currency, description, customerEmail string) (string, string, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(description),
					},
					UnitAmount: stripe.Int64(amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(s.successURL),
		CancelURL:     stripe.String(s.cancelURL),
		CustomerEmail: stripe.String(customerEmail),
	}

	sess, err := session.New(params)
	if err != nil {
		return "", "", err
	}
	return sess.URL, sess.ID, nil
}

// RefundBySessionID refunds the payment intent behind a checkout session.
// amountMinor is the refund in minor units; without it Stripe refunds the
// full charge, which would ignore any late-cancellation penalty.
func (s *StripeService) RefundBySessionID(sessionID string, amountMinor int64) error {
	sess, err := session.Get(sessionID, nil)
	if err != nil {
		return err
	}
	if sess.PaymentIntent == nil || sess.PaymentIntent.ID == "" {
		return fmt.Errorf("no payment intent for session %s", sessionID)
	}
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(sess.PaymentIntent.ID),
	}
	if amountMinor > 0 {
		params.Amount = stripe.Int64(amountMinor)
	}
	_, err = refund.New(params)
	return err
}

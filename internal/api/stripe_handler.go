package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"parkpulse/internal/logger"
	"parkpulse/internal/service"
)

type StripeWebhookHandler struct {
	secret  string
	service *service.ReservationService
	log     zerolog.Logger
}

func NewStripeWebhookHandler(secret string, svc *service.ReservationService) *StripeWebhookHandler {
	return &StripeWebhookHandler{secret: secret, service: svc, log: logger.New("stripe-webhook")}
}

// HandleWebhook handles POST /api/stripe/webhook. The signature check
// rejects anything Stripe did not sign.
func (h *StripeWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const maxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.log.Error().Err(err).Msg("reading webhook body failed")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.secret)
	if err != nil {
		h.log.Warn().Err(err).Msg("webhook signature verification failed")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			h.log.Warn().Err(err).Msg("parsing checkout session failed")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		paymentIntentID := ""
		if sess.PaymentIntent != nil {
			paymentIntentID = sess.PaymentIntent.ID
		}
		if err := h.service.ConfirmBySessionID(sess.ID, paymentIntentID); err != nil {
			h.log.Error().Err(err).Str("session", sess.ID).Msg("confirming booking failed")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	case "charge.refunded":
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			h.log.Warn().Err(err).Msg("parsing charge failed")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		// Checkout sessions carry the payment intent; resolve back to the
		// booking through it when present.
		if charge.PaymentIntent != nil {
			if err := h.service.MarkRefundedByPaymentIntent(charge.PaymentIntent.ID); err != nil {
				h.log.Warn().Err(err).Str("payment_intent", charge.PaymentIntent.ID).Msg("marking refund failed")
			}
		}
	default:
		h.log.Debug().Str("type", string(event.Type)).Msg("ignoring webhook event")
	}
	w.WriteHeader(http.StatusOK)
}

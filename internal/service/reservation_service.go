package service

import (
	"encoding/base64"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	qrcode "github.com/skip2/go-qrcode"

	"parkpulse/internal/config"
	"parkpulse/internal/db"
	"parkpulse/internal/entities"
	apperr "parkpulse/internal/errors"
	"parkpulse/internal/eventbus"
	"parkpulse/internal/logger"
	"parkpulse/internal/metrics"
	"parkpulse/internal/repository"
)

// ReservationService fronts the booking ledger: it owns the booking
// lifecycle and is the only writer of booking state.
type ReservationService struct {
	store  repository.Store
	stripe *StripeService
	sender *SenderService
	bus    *eventbus.Bus
	cfg    config.BookingConfig
	log    zerolog.Logger
}

func NewReservationService(store repository.Store, stripe *StripeService, sender *SenderService, bus *eventbus.Bus, cfg config.BookingConfig) *ReservationService {
	return &ReservationService{
		store:  store,
		stripe: stripe,
		sender: sender,
		bus:    bus,
		cfg:    cfg,
		log:    logger.New("reservations"),
	}
}

// CreateBooking validates the window, checks capacity, freezes the price in
// effect and opens a Stripe checkout session. The frozen price never
// changes afterwards, whatever the recompute cycle does to the live
// dynamic price.
func (s *ReservationService) CreateBooking(req *entities.BookingRequest) (*entities.BookingResponse, error) {
	now := time.Now().UTC()
	if err := validateWindow(req.StartTime, req.EndTime, now); err != nil {
		return nil, err
	}

	slot, err := s.store.GetSlot(req.SlotID)
	if err != nil {
		return nil, err
	}
	if slot.Maintenance {
		return nil, apperr.Conflict("slot %s is under maintenance", slot.ID)
	}

	price := frozenPrice(slot.DynamicPrice, req.StartTime, req.EndTime)
	code := fmt.Sprintf("%08X", now.UnixNano()%0x100000000)
	booking := &db.Booking{
		ID:            uuid.NewString(),
		Code:          code,
		UserID:        req.UserID,
		UserName:      req.UserName,
		UserEmail:     req.UserEmail,
		UserPhone:     req.UserPhone,
		SlotID:        req.SlotID,
		Status:        db.BookingPending,
		StartTime:     req.StartTime.UTC(),
		EndTime:       req.EndTime.UTC(),
		TotalPrice:    price,
		PaymentStatus: db.PaymentPending,
		PaymentMethod: req.PaymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if qrPNG, err := qrcode.Encode("parkpulse:"+code, qrcode.Medium, 256); err != nil {
		s.log.Warn().Err(err).Str("code", code).Msg("qr generation failed, booking continues without one")
	} else {
		booking.QRCode = base64.StdEncoding.EncodeToString(qrPNG)
	}

	var checkoutURL string
	if s.stripe != nil {
		url, sessionID, err := s.stripe.CreateCheckoutSession(minorUnits(price), "inr", "Parking at "+slot.Location.Address, req.UserEmail)
		if err != nil {
			return nil, fmt.Errorf("opening checkout session: %w", err)
		}
		booking.StripeSessionID = sessionID
		checkoutURL = url
	}

	if err := s.store.CreateBooking(booking, slot.TotalSpots); err != nil {
		metrics.BookingConflicts.Inc()
		return nil, err
	}
	// Immediate windows take a live spot right away; future windows are
	// held by the ledger overlap count until check-in. SpotHeld records the
	// reservation so every terminal transition returns the spot exactly once.
	if !booking.StartTime.After(now) {
		if err := s.store.Reserve(slot.ID); err != nil {
			s.log.Warn().Err(err).Str("slot", slot.ID).Msg("live spot reservation failed after ledger insert")
		} else {
			booking.SpotHeld = true
			if err := s.store.UpdateBooking(booking); err != nil {
				s.log.Error().Err(err).Str("booking", booking.Code).Msg("recording held spot failed")
			}
		}
	}
	metrics.BookingsCreated.Inc()
	s.bus.Publish(eventbus.Event{
		Kind:      eventbus.BookingCreated,
		BookingID: booking.ID,
		SlotID:    booking.SlotID,
		Message:   fmt.Sprintf("New booking %s for slot %s", booking.Code, booking.SlotID),
		At:        now,
	})

	resp := entities.BookingToResponse(booking)
	resp.CheckoutURL = checkoutURL
	return resp, nil
}

func (s *ReservationService) GetByCode(code string) (*entities.BookingResponse, error) {
	b, err := s.store.GetBookingByCode(code)
	if err != nil {
		return nil, err
	}
	return entities.BookingToResponse(b), nil
}

// ConfirmBySessionID moves a booking to confirmed/paid after the Stripe
// checkout webhook, then notifies the user. The payment intent is recorded
// so later refund webhooks can find their way back.
func (s *ReservationService) ConfirmBySessionID(sessionID, paymentIntentID string) error {
	b, err := s.store.GetBookingBySessionID(sessionID)
	if err != nil {
		return err
	}
	if !b.Status.CanTransition(db.BookingConfirmed) {
		return apperr.InvalidState("booking %s cannot be confirmed from %s", b.Code, b.Status)
	}
	b.Status = db.BookingConfirmed
	b.PaymentStatus = db.PaymentPaid
	b.PaymentIntentID = paymentIntentID
	if err := s.store.UpdateBooking(b); err != nil {
		return err
	}
	s.bus.Publish(eventbus.Event{
		Kind:      eventbus.BookingConfirmed,
		BookingID: b.ID,
		SlotID:    b.SlotID,
		Message:   fmt.Sprintf("Booking %s confirmed", b.Code),
		At:        time.Now().UTC(),
	})
	if s.sender != nil {
		s.sender.SendBookingEmail(b, "confirmed")
		s.sender.SendBookingSMS(b, "confirmed")
	}
	return nil
}

// CheckIn activates a confirmed booking when the driver scans in.
func (s *ReservationService) CheckIn(code string) (*entities.BookingResponse, error) {
	b, err := s.store.GetBookingByCode(code)
	if err != nil {
		return nil, err
	}
	if !b.Status.CanTransition(db.BookingActive) {
		return nil, apperr.InvalidState("booking %s cannot check in from %s", b.Code, b.Status)
	}
	now := time.Now().UTC()
	b.Status = db.BookingActive
	b.CheckedInAt = &now
	// A parked car occupies a live spot from check-in until the booking
	// leaves the active state.
	if !b.SpotHeld {
		if err := s.store.Reserve(b.SlotID); err != nil {
			s.log.Warn().Err(err).Str("slot", b.SlotID).Msg("live spot reservation failed at check-in")
		} else {
			b.SpotHeld = true
		}
	}
	if err := s.store.UpdateBooking(b); err != nil {
		return nil, err
	}
	return entities.BookingToResponse(b), nil
}

// Cancel applies the cancellation-window refund policy: a full refund when
// cancelling more than the window before start, the late-cancel penalty
// otherwise.
func (s *ReservationService) Cancel(code string) (*entities.BookingResponse, error) {
	b, err := s.store.GetBookingByCode(code)
	if err != nil {
		return nil, err
	}
	if !b.Status.CanTransition(db.BookingCancelled) {
		return nil, apperr.InvalidState("booking %s cannot be cancelled from %s", b.Code, b.Status)
	}

	now := time.Now().UTC()
	window := time.Duration(s.cfg.CancellationWindowMinutes) * time.Minute
	refund := b.TotalPrice
	if b.StartTime.Sub(now) < window {
		refund = round2(b.TotalPrice * (1 - s.cfg.LateCancelPenaltyFraction))
	}

	if b.PaymentStatus == db.PaymentPaid && s.stripe != nil && b.StripeSessionID != "" {
		if err := s.stripe.RefundBySessionID(b.StripeSessionID, minorUnits(refund)); err != nil {
			return nil, fmt.Errorf("refunding booking %s: %w", b.Code, err)
		}
		b.PaymentStatus = db.PaymentRefunded
	}

	heldSpot := b.SpotHeld
	b.Status = db.BookingCancelled
	b.RefundAmount = refund
	b.SpotHeld = false
	if err := s.store.UpdateBooking(b); err != nil {
		return nil, err
	}
	if heldSpot {
		if err := s.store.Release(b.SlotID); err != nil {
			s.log.Warn().Err(err).Str("slot", b.SlotID).Msg("spot release failed after cancellation")
		}
	}
	metrics.BookingsCancelled.Inc()
	s.bus.Publish(eventbus.Event{
		Kind:      eventbus.BookingCancelled,
		BookingID: b.ID,
		SlotID:    b.SlotID,
		Message:   fmt.Sprintf("Booking %s cancelled, refund %.2f", b.Code, refund),
		At:        now,
	})
	if s.sender != nil {
		s.sender.SendBookingEmail(b, "cancelled")
		s.sender.SendBookingSMS(b, "cancelled")
	}
	return entities.BookingToResponse(b), nil
}

// MarkRefundedByPaymentIntent reflects an out-of-band Stripe refund.
func (s *ReservationService) MarkRefundedByPaymentIntent(paymentIntentID string) error {
	b, err := s.store.GetBookingByPaymentIntent(paymentIntentID)
	if err != nil {
		return err
	}
	b.PaymentStatus = db.PaymentRefunded
	return s.store.UpdateBooking(b)
}

func (s *ReservationService) ListBookings(f repository.BookingFilter) ([]*entities.BookingResponse, error) {
	bookings, err := s.store.ListBookings(f)
	if err != nil {
		return nil, err
	}
	out := make([]*entities.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, entities.BookingToResponse(b))
	}
	return out, nil
}

func validateWindow(start, end, now time.Time) error {
	if start.IsZero() || end.IsZero() {
		return apperr.Validation("start_time and end_time are required")
	}
	if !end.After(start) {
		return apperr.Validation("end_time must be after start_time")
	}
	if end.Before(now) {
		return apperr.Validation("booking window is entirely in the past")
	}
	return nil
}

// frozenPrice bills whole hours at the dynamic rate in effect, rounding
// partial hours up.
func frozenPrice(hourlyRate float64, start, end time.Time) float64 {
	hours := math.Ceil(end.Sub(start).Hours())
	if hours < 1 {
		hours = 1
	}
	return round2(hourlyRate * hours)
}

// minorUnits converts a rupee amount to the integer paise Stripe expects.
func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

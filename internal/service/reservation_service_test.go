package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkpulse/internal/config"
	"parkpulse/internal/db"
	"parkpulse/internal/entities"
	apperr "parkpulse/internal/errors"
	"parkpulse/internal/eventbus"
	"parkpulse/internal/repository"
)

func reservationFixture(t *testing.T) (*ReservationService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	require.NoError(t, store.CreateSlot(&db.Slot{
		ID:             "s1",
		OperatorID:     "op-1",
		Location:       db.Location{Address: "Race Course Road"},
		Type:           db.SlotPremium,
		BasePrice:      50,
		DynamicPrice:   100,
		TotalSpots:     2,
		AvailableSpots: 2,
		Status:         db.SlotAvailable,
	}))
	svc := NewReservationService(store, nil, nil, eventbus.New(), config.Default().Booking)
	return svc, store
}

func futureRequest() *entities.BookingRequest {
	start := time.Now().UTC().Add(4 * time.Hour).Truncate(time.Minute)
	return &entities.BookingRequest{
		SlotID:    "s1",
		UserID:    "user-1",
		UserName:  "Priya",
		UserEmail: "priya@example.com",
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
	}
}

func TestCreateBookingFreezesPrice(t *testing.T) {
	svc, store := reservationFixture(t)

	resp, err := svc.CreateBooking(futureRequest())
	require.NoError(t, err)
	assert.Equal(t, 200.0, resp.TotalPrice, "2 hours at the dynamic rate of 100")
	assert.Equal(t, db.BookingPending, resp.Status)
	assert.NotEmpty(t, resp.Code)
	assert.NotEmpty(t, resp.QRCode)

	// A later price recompute does not touch the frozen total.
	require.NoError(t, store.SetDynamicPrice("s1", 150))
	got, err := svc.GetByCode(resp.Code)
	require.NoError(t, err)
	assert.Equal(t, 200.0, got.TotalPrice)
}

func TestCreateBookingPartialHourRoundsUp(t *testing.T) {
	svc, _ := reservationFixture(t)

	req := futureRequest()
	req.EndTime = req.StartTime.Add(90 * time.Minute)
	resp, err := svc.CreateBooking(req)
	require.NoError(t, err)
	assert.Equal(t, 200.0, resp.TotalPrice, "90 minutes bills as 2 hours")
}

func TestCreateBookingValidation(t *testing.T) {
	svc, _ := reservationFixture(t)

	req := futureRequest()
	req.EndTime = req.StartTime
	_, err := svc.CreateBooking(req)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	req = futureRequest()
	req.StartTime = time.Now().UTC().Add(-5 * time.Hour)
	req.EndTime = time.Now().UTC().Add(-3 * time.Hour)
	_, err = svc.CreateBooking(req)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	req = futureRequest()
	req.StartTime = time.Time{}
	req.EndTime = time.Time{}
	_, err = svc.CreateBooking(req)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreateBookingFullWindowConflicts(t *testing.T) {
	svc, _ := reservationFixture(t)

	_, err := svc.CreateBooking(futureRequest())
	require.NoError(t, err)
	_, err = svc.CreateBooking(futureRequest())
	require.NoError(t, err)

	_, err = svc.CreateBooking(futureRequest())
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCreateBookingMaintenanceConflicts(t *testing.T) {
	svc, store := reservationFixture(t)
	require.NoError(t, store.SetMaintenance("s1", true))

	_, err := svc.CreateBooking(futureRequest())
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestImmediateBookingTakesLiveSpot(t *testing.T) {
	svc, store := reservationFixture(t)

	req := futureRequest()
	req.StartTime = time.Now().UTC().Add(-time.Minute)
	req.EndTime = req.StartTime.Add(2 * time.Hour)
	_, err := svc.CreateBooking(req)
	require.NoError(t, err)

	s, err := store.GetSlot("s1")
	require.NoError(t, err)
	assert.Equal(t, 1, s.AvailableSpots)
}

func TestConfirmAndCheckIn(t *testing.T) {
	svc, store := reservationFixture(t)

	resp, err := svc.CreateBooking(futureRequest())
	require.NoError(t, err)

	b, err := store.GetBookingByCode(resp.Code)
	require.NoError(t, err)
	b.StripeSessionID = "cs_test_1"
	require.NoError(t, store.UpdateBooking(b))

	require.NoError(t, svc.ConfirmBySessionID("cs_test_1", "pi_test_1"))
	got, err := svc.GetByCode(resp.Code)
	require.NoError(t, err)
	assert.Equal(t, db.BookingConfirmed, got.Status)
	assert.Equal(t, db.PaymentPaid, got.PaymentStatus)

	checked, err := svc.CheckIn(resp.Code)
	require.NoError(t, err)
	assert.Equal(t, db.BookingActive, checked.Status)

	// Re-confirming an active booking violates the state machine.
	err = svc.ConfirmBySessionID("cs_test_1", "pi_test_1")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestCheckInTakesLiveSpot(t *testing.T) {
	svc, store := reservationFixture(t)

	resp, err := svc.CreateBooking(futureRequest())
	require.NoError(t, err)

	b, err := store.GetBookingByCode(resp.Code)
	require.NoError(t, err)
	b.Status = db.BookingConfirmed
	require.NoError(t, store.UpdateBooking(b))

	s, _ := store.GetSlot("s1")
	require.Equal(t, 2, s.AvailableSpots, "a future booking holds no live spot before check-in")

	_, err = svc.CheckIn(resp.Code)
	require.NoError(t, err)

	s, _ = store.GetSlot("s1")
	assert.Equal(t, 1, s.AvailableSpots, "a checked-in car occupies a live spot")
	b, _ = store.GetBookingByCode(resp.Code)
	assert.True(t, b.SpotHeld)
}

func TestCheckInRequiresConfirmed(t *testing.T) {
	svc, _ := reservationFixture(t)

	resp, err := svc.CreateBooking(futureRequest())
	require.NoError(t, err)

	_, err = svc.CheckIn(resp.Code)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestCancelEarlyFullRefund(t *testing.T) {
	svc, _ := reservationFixture(t)

	resp, err := svc.CreateBooking(futureRequest())
	require.NoError(t, err)

	got, err := svc.Cancel(resp.Code)
	require.NoError(t, err)
	assert.Equal(t, db.BookingCancelled, got.Status)
	assert.Equal(t, resp.TotalPrice, got.RefundAmount)
}

func TestCancelLateKeepsPenalty(t *testing.T) {
	svc, _ := reservationFixture(t)

	req := futureRequest()
	req.StartTime = time.Now().UTC().Add(10 * time.Minute)
	req.EndTime = req.StartTime.Add(2 * time.Hour)
	resp, err := svc.CreateBooking(req)
	require.NoError(t, err)

	got, err := svc.Cancel(resp.Code)
	require.NoError(t, err)
	// Default penalty keeps half inside the 30 minute window.
	assert.Equal(t, resp.TotalPrice/2, got.RefundAmount)
}

func TestCancelTerminalBookingFails(t *testing.T) {
	svc, _ := reservationFixture(t)

	resp, err := svc.CreateBooking(futureRequest())
	require.NoError(t, err)
	_, err = svc.Cancel(resp.Code)
	require.NoError(t, err)

	_, err = svc.Cancel(resp.Code)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestCancelLiveBookingReleasesSpot(t *testing.T) {
	svc, store := reservationFixture(t)

	req := futureRequest()
	req.StartTime = time.Now().UTC().Add(-time.Minute)
	req.EndTime = req.StartTime.Add(2 * time.Hour)
	resp, err := svc.CreateBooking(req)
	require.NoError(t, err)

	s, _ := store.GetSlot("s1")
	require.Equal(t, 1, s.AvailableSpots)

	_, err = svc.Cancel(resp.Code)
	require.NoError(t, err)

	s, _ = store.GetSlot("s1")
	assert.Equal(t, 2, s.AvailableSpots)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(10000), minorUnits(100))
	assert.Equal(t, int64(14999), minorUnits(149.99))
	assert.Equal(t, int64(3333), minorUnits(33.33))
	// Half of the frozen 2-hour total, the late-cancellation refund.
	assert.Equal(t, int64(10000), minorUnits(round2(200*0.5)))
}

func TestBookingStateMachine(t *testing.T) {
	allowed := map[db.BookingStatus][]db.BookingStatus{
		db.BookingPending:   {db.BookingConfirmed, db.BookingCancelled},
		db.BookingConfirmed: {db.BookingActive, db.BookingCancelled, db.BookingNoShow},
		db.BookingActive:    {db.BookingCompleted},
		db.BookingCompleted: {},
		db.BookingCancelled: {},
		db.BookingNoShow:    {},
	}
	all := []db.BookingStatus{
		db.BookingPending, db.BookingConfirmed, db.BookingActive,
		db.BookingCompleted, db.BookingCancelled, db.BookingNoShow,
	}
	for from, tos := range allowed {
		ok := map[db.BookingStatus]bool{}
		for _, to := range tos {
			ok[to] = true
		}
		for _, to := range all {
			assert.Equal(t, ok[to], from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

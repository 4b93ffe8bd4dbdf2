package repository

import (
	"time"

	"parkpulse/internal/db"
)

// SlotFilter narrows slot listings. Zero values mean "no constraint".
type SlotFilter struct {
	OperatorID string
	Status     db.SlotStatus
	Type       db.SlotType
	Query      string // free-text match on address/landmark
	MaxPrice   float64
}

// BookingFilter narrows booking listings.
type BookingFilter struct {
	SlotID     string
	OperatorID string
	UserID     string
	Status     db.BookingStatus
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

// AlertFilter narrows alert listings.
type AlertFilter struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}

// SlotStore is the slot registry: the authoritative owner of slot capacity
// and live state. Reserve and Release are serialized per slot so two
// concurrent reservations of the last spot cannot both succeed.
type SlotStore interface {
	CreateSlot(s *db.Slot) error
	GetSlot(id string) (*db.Slot, error)
	ListSlots(f SlotFilter) ([]*db.Slot, error)
	// Reserve takes one spot; returns ErrConflict when none are free or the
	// slot is under maintenance.
	Reserve(id string) error
	// Release returns one spot; a no-op above TotalSpots.
	Release(id string) error
	SetMaintenance(id string, on bool) error
	UpdateSpots(id string, totalSpots int) error
	// SetDynamicPrice and SetPrediction write derived annotations only;
	// they never touch capacity.
	SetDynamicPrice(id string, price float64) error
	SetPrediction(id string, p db.PredictedAvailability) error
}

// BookingStore is the booking ledger: the exclusive owner of the booking
// lifecycle.
type BookingStore interface {
	// CreateBooking inserts the booking after atomically verifying that
	// concurrent capacity-holding bookings on the slot stay within
	// totalSpots for the requested window; returns ErrConflict otherwise.
	CreateBooking(b *db.Booking, totalSpots int) error
	GetBooking(id string) (*db.Booking, error)
	GetBookingByCode(code string) (*db.Booking, error)
	GetBookingBySessionID(sessionID string) (*db.Booking, error)
	GetBookingByPaymentIntent(paymentIntentID string) (*db.Booking, error)
	ListBookings(f BookingFilter) ([]*db.Booking, error)
	UpdateBooking(b *db.Booking) error
	CountOverlapping(slotID string, start, end time.Time) (int, error)
	// DeletePendingBefore drops pending bookings created before the cutoff
	// and returns them, so callers can give back any live spots they held.
	DeletePendingBefore(cutoff time.Time) ([]*db.Booking, error)
}

type AlertStore interface {
	AddAlert(a *db.Alert) error
	ListAlerts(f AlertFilter) ([]*db.Alert, int, error)
	MarkAlertRead(id string) error
	DeleteAlert(id string) error
}

type RuleStore interface {
	UpsertRule(r *db.PricingRule) error
	GetRule(id string) (*db.PricingRule, error)
	ListRulesBySlot(slotID string) ([]*db.PricingRule, error)
	DeleteRule(id string) error
}

// HistoryStore feeds the demand estimator and availability predictor.
type HistoryStore interface {
	AppendOccupancy(ev db.OccupancyEvent) error
	HistorySince(slotID string, since time.Time) ([]db.OccupancyEvent, error)
	AllHistorySince(since time.Time) ([]db.OccupancyEvent, error)
	AddDemandEvent(ev db.DemandEvent) error
	ActiveDemandEvents(slotID string, at time.Time) ([]db.DemandEvent, error)
}

type OperatorStore interface {
	CreateOperator(email, passwordHash string) error
	GetOperatorByEmail(email string) (*db.Operator, error)
}

// Store aggregates every repository the service layer needs.
type Store interface {
	SlotStore
	BookingStore
	AlertStore
	RuleStore
	HistoryStore
	OperatorStore
}

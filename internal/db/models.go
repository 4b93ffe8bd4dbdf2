package db

import "time"

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotReserved  SlotStatus = "reserved"
	SlotOccupied  SlotStatus = "occupied"
)

func (s SlotStatus) Valid() bool {
	switch s {
	case SlotAvailable, SlotReserved, SlotOccupied:
		return true
	}
	return false
}

type SlotType string

const (
	SlotStandard SlotType = "standard"
	SlotPremium  SlotType = "premium"
	SlotEV       SlotType = "ev"
	SlotDisabled SlotType = "disabled"
)

func (t SlotType) Valid() bool {
	switch t {
	case SlotStandard, SlotPremium, SlotEV, SlotDisabled:
		return true
	}
	return false
}

type Location struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Address  string  `json:"address"`
	Landmark string  `json:"landmark,omitempty"`
}

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// PredictedAvailability is a derived annotation, recomputed on a schedule
// and never written by booking operations.
type PredictedAvailability struct {
	Available   bool       `json:"available"`
	Probability float64    `json:"probability"` // 0..100
	Confidence  Confidence `json:"confidence"`
	TimeWindow  string     `json:"time_window"`
	Stale       bool       `json:"stale,omitempty"`
	ComputedAt  time.Time  `json:"computed_at"`
}

type Slot struct {
	ID           string
	OperatorID   string
	Location     Location
	Status       SlotStatus
	Type         SlotType
	BasePrice    float64
	DynamicPrice float64
	Amenities    []string
	Rating       float64
	TotalSpots   int
	// AvailableSpots is owned by the registry: 0 <= AvailableSpots <= TotalSpots.
	AvailableSpots int
	Maintenance    bool
	Prediction     PredictedAvailability
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingActive    BookingStatus = "active"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
	BookingNoShow    BookingStatus = "no-show"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingActive, BookingCompleted, BookingCancelled, BookingNoShow:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingCompleted, BookingCancelled, BookingNoShow:
		return true
	}
	return false
}

// CanTransition encodes the one-directional booking state machine:
// pending -> confirmed -> active -> completed, pending|confirmed ->
// cancelled, confirmed -> no-show. Terminal bookings never come back.
func (s BookingStatus) CanTransition(to BookingStatus) bool {
	switch s {
	case BookingPending:
		return to == BookingConfirmed || to == BookingCancelled
	case BookingConfirmed:
		return to == BookingActive || to == BookingCancelled || to == BookingNoShow
	case BookingActive:
		return to == BookingCompleted
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentRefunded, PaymentFailed:
		return true
	}
	return false
}

type Booking struct {
	ID        string
	Code      string
	UserID    string
	UserName  string
	UserEmail string
	UserPhone string
	SlotID    string
	Status    BookingStatus
	// Window is [StartTime, EndTime).
	StartTime     time.Time
	EndTime       time.Time
	ActualEndTime *time.Time
	// TotalPrice is frozen at creation from the dynamic price in effect;
	// later recomputes never touch it.
	TotalPrice      float64
	PaymentStatus   PaymentStatus
	PaymentMethod   string
	QRCode          string
	RefundAmount    float64
	CheckedInAt   *time.Time
	NoShowFlagged bool
	// SpotHeld marks a booking currently holding a live spot in the
	// registry. Set when an immediate-start booking reserves at creation or
	// when a driver checks in; cleared on every terminal transition so the
	// spot is returned exactly once.
	SpotHeld        bool
	StripeSessionID string
	PaymentIntentID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Overlaps reports whether the booking window intersects [start, end).
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}

// HoldsCapacity reports whether the booking counts against slot capacity.
func (b *Booking) HoldsCapacity() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed || b.Status == BookingActive
}

type RuleCondition string

const (
	RuleDemand    RuleCondition = "demand"
	RuleTime      RuleCondition = "time"
	RuleOccupancy RuleCondition = "occupancy"
	RuleEvent     RuleCondition = "event"
)

func (c RuleCondition) Valid() bool {
	switch c {
	case RuleDemand, RuleTime, RuleOccupancy, RuleEvent:
		return true
	}
	return false
}

type PricingRule struct {
	ID         string
	SlotID     string
	Condition  RuleCondition
	Threshold  float64
	Multiplier float64
	Active     bool
}

type AlertType string

const (
	AlertReservation  AlertType = "reservation"
	AlertCancellation AlertType = "cancellation"
	AlertNoShow       AlertType = "no-show"
	AlertMaintenance  AlertType = "maintenance"
	AlertHighDemand   AlertType = "high-demand"
)

func (t AlertType) Valid() bool {
	switch t {
	case AlertReservation, AlertCancellation, AlertNoShow, AlertMaintenance, AlertHighDemand:
		return true
	}
	return false
}

type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

func (s AlertSeverity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// Alert is an operator-facing event record. It is created by the alert
// watcher and mutated only by mark-read or delete.
type Alert struct {
	ID        string
	Type      AlertType
	Severity  AlertSeverity
	Message   string
	SlotID    string
	BookingID string
	Timestamp time.Time
	Read      bool
}

type DemandBand string

const (
	DemandLow      DemandBand = "low"
	DemandMedium   DemandBand = "medium"
	DemandHigh     DemandBand = "high"
	DemandCritical DemandBand = "critical"
)

func (b DemandBand) Valid() bool {
	switch b {
	case DemandLow, DemandMedium, DemandHigh, DemandCritical:
		return true
	}
	return false
}

// OccupancyEvent is one hourly history sample feeding the demand estimator
// and the availability predictor.
type OccupancyEvent struct {
	SlotID   string
	Time     time.Time
	Occupied int
	Total    int
	Bookings int
}

// DemandEvent is a manually flagged high-demand window (concert, match...)
// boosting the estimator during [Start, End).
type DemandEvent struct {
	ID     string
	SlotID string // empty means city-wide
	Name   string
	Start  time.Time
	End    time.Time
}

type Operator struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

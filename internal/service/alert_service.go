package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"parkpulse/internal/db"
	"parkpulse/internal/eventbus"
	"parkpulse/internal/logger"
	"parkpulse/internal/metrics"
	"parkpulse/internal/repository"
)

// AlertService owns the operator alert feed. Alerts are append-only: the
// operator can mark them read or delete them, nothing else mutates them.
type AlertService struct {
	store repository.AlertStore
	log   zerolog.Logger
}

func NewAlertService(store repository.AlertStore) *AlertService {
	return &AlertService{store: store, log: logger.New("alerts")}
}

// Emit records a new alert.
func (s *AlertService) Emit(typ db.AlertType, severity db.AlertSeverity, message, slotID, bookingID string) {
	a := &db.Alert{
		ID:        uuid.NewString(),
		Type:      typ,
		Severity:  severity,
		Message:   message,
		SlotID:    slotID,
		BookingID: bookingID,
		Timestamp: time.Now().UTC(),
	}
	if err := s.store.AddAlert(a); err != nil {
		s.log.Error().Err(err).Str("type", string(typ)).Msg("failed to record alert")
		return
	}
	metrics.AlertsEmitted.WithLabelValues(string(typ)).Inc()
}

func (s *AlertService) List(unreadOnly bool, limit, offset int) ([]*db.Alert, int, error) {
	return s.store.ListAlerts(repository.AlertFilter{UnreadOnly: unreadOnly, Limit: limit, Offset: offset})
}

func (s *AlertService) MarkRead(id string) error {
	return s.store.MarkAlertRead(id)
}

func (s *AlertService) Delete(id string) error {
	return s.store.DeleteAlert(id)
}

// Watch turns ledger transitions published on the bus into alerts. It runs
// until the bus closes.
func (s *AlertService) Watch(bus *eventbus.Bus) {
	sub := bus.Subscribe()
	go func() {
		for ev := range sub {
			switch ev.Kind {
			case eventbus.BookingCreated, eventbus.BookingConfirmed:
				s.Emit(db.AlertReservation, db.SeverityInfo, ev.Message, ev.SlotID, ev.BookingID)
			case eventbus.BookingCancelled:
				s.Emit(db.AlertCancellation, db.SeverityWarning, ev.Message, ev.SlotID, ev.BookingID)
			case eventbus.MaintenanceSet:
				s.Emit(db.AlertMaintenance, db.SeverityWarning, ev.Message, ev.SlotID, "")
			}
		}
	}()
}

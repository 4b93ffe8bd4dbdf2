package service

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"parkpulse/internal/config"
	"parkpulse/internal/db"
	"parkpulse/internal/logger"
	"parkpulse/internal/repository"
)

// JobService runs the scheduled booking lifecycle sweeps. They are
// deliberately asynchronous to booking creation: no-show detection and
// completion are cron checks, not inline work.
type JobService struct {
	store  repository.Store
	alerts *AlertService
	cfg    config.BookingConfig
	log    zerolog.Logger
}

func NewJobService(store repository.Store, alerts *AlertService, cfg config.BookingConfig) *JobService {
	return &JobService{store: store, alerts: alerts, cfg: cfg, log: logger.New("jobs")}
}

// CompleteFinished moves active bookings past their end time to completed
// and returns their spots to the registry.
func (s *JobService) CompleteFinished(now time.Time) error {
	active, err := s.store.ListBookings(repository.BookingFilter{Status: db.BookingActive})
	if err != nil {
		return fmt.Errorf("sweep: listing active bookings: %w", err)
	}
	for _, b := range active {
		if b.EndTime.After(now) {
			continue
		}
		end := b.EndTime
		held := b.SpotHeld
		b.Status = db.BookingCompleted
		b.ActualEndTime = &end
		b.SpotHeld = false
		if err := s.store.UpdateBooking(b); err != nil {
			s.log.Error().Err(err).Str("booking", b.Code).Msg("sweep: completion update failed")
			continue
		}
		if held {
			if err := s.store.Release(b.SlotID); err != nil {
				s.log.Warn().Err(err).Str("slot", b.SlotID).Msg("sweep: spot release failed")
			}
		}
	}
	return nil
}

// FlagNoShows declares confirmed bookings whose grace period elapsed with
// no check-in. The NoShowFlagged guard makes the critical alert fire
// exactly once per booking.
func (s *JobService) FlagNoShows(now time.Time) error {
	confirmed, err := s.store.ListBookings(repository.BookingFilter{Status: db.BookingConfirmed})
	if err != nil {
		return fmt.Errorf("sweep: listing confirmed bookings: %w", err)
	}
	grace := time.Duration(s.cfg.GracePeriodMinutes) * time.Minute
	for _, b := range confirmed {
		if b.CheckedInAt != nil || b.NoShowFlagged {
			continue
		}
		if now.Before(b.StartTime.Add(grace)) {
			continue
		}
		held := b.SpotHeld
		b.Status = db.BookingNoShow
		b.NoShowFlagged = true
		b.SpotHeld = false
		if err := s.store.UpdateBooking(b); err != nil {
			s.log.Error().Err(err).Str("booking", b.Code).Msg("sweep: no-show update failed")
			continue
		}
		if held {
			if err := s.store.Release(b.SlotID); err != nil {
				s.log.Warn().Err(err).Str("slot", b.SlotID).Msg("sweep: spot release failed")
			}
		}
		s.alerts.Emit(db.AlertNoShow, db.SeverityCritical,
			fmt.Sprintf("No-show: booking %s missed its %d-minute grace period", b.Code, s.cfg.GracePeriodMinutes),
			b.SlotID, b.ID)
	}
	return nil
}

// PurgeStalePending drops pending bookings whose checkout was never
// completed within the TTL, freeing their held capacity.
func (s *JobService) PurgeStalePending(now time.Time) error {
	cutoff := now.Add(-time.Duration(s.cfg.PendingTTLMinutes) * time.Minute)
	purged, err := s.store.DeletePendingBefore(cutoff)
	if err != nil {
		return fmt.Errorf("sweep: purging stale pending bookings: %w", err)
	}
	for _, b := range purged {
		if !b.SpotHeld {
			continue
		}
		if err := s.store.Release(b.SlotID); err != nil {
			s.log.Warn().Err(err).Str("slot", b.SlotID).Msg("sweep: spot release failed")
		}
	}
	if len(purged) > 0 {
		s.log.Info().Int("purged", len(purged)).Msg("sweep: dropped stale pending bookings")
	}
	return nil
}

// RunSweeps executes all lifecycle sweeps; failures are isolated per sweep.
func (s *JobService) RunSweeps() {
	now := time.Now().UTC()
	if err := s.CompleteFinished(now); err != nil {
		s.log.Error().Err(err).Msg("completion sweep failed")
	}
	if err := s.FlagNoShows(now); err != nil {
		s.log.Error().Err(err).Msg("no-show sweep failed")
	}
	if err := s.PurgeStalePending(now); err != nil {
		s.log.Error().Err(err).Msg("pending purge failed")
	}
}

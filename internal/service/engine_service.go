package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"parkpulse/internal/config"
	"parkpulse/internal/db"
	"parkpulse/internal/logger"
	"parkpulse/internal/metrics"
	"parkpulse/internal/repository"
)

// EngineService drives the background recompute cycle: demand score,
// dynamic price and availability prediction per slot. It only writes
// derived annotations and never touches capacity, so it can run while
// bookings are being taken.
type EngineService struct {
	store     repository.Store
	estimator *DemandEstimator
	pricer    *PricingEngine
	predictor *AvailabilityPredictor
	alerts    *AlertService
	cfg       config.EngineConfig
	log       zerolog.Logger

	mu         sync.Mutex
	lastScores map[string]float64
}

func NewEngineService(store repository.Store, estimator *DemandEstimator, pricer *PricingEngine, predictor *AvailabilityPredictor, alerts *AlertService, cfg config.EngineConfig) *EngineService {
	return &EngineService{
		store:      store,
		estimator:  estimator,
		pricer:     pricer,
		predictor:  predictor,
		alerts:     alerts,
		cfg:        cfg,
		log:        logger.New("engine"),
		lastScores: make(map[string]float64),
	}
}

// Recompute runs one full cycle over every slot. Per-slot failures degrade
// that slot to its last-known-good annotation flagged stale; they never
// abort the cycle.
func (e *EngineService) Recompute() {
	now := time.Now().UTC()
	metrics.RecomputeRuns.Inc()

	slots, err := e.store.ListSlots(repository.SlotFilter{})
	if err != nil {
		e.log.Error().Err(err).Msg("recompute: listing slots failed, keeping previous annotations")
		return
	}
	for _, slot := range slots {
		if err := e.recomputeSlot(slot, now); err != nil {
			metrics.RecomputeFailures.Inc()
			e.log.Warn().Err(err).Str("slot", slot.ID).Msg("recompute degraded to last-known-good")
			e.markStale(slot)
		}
	}
}

func (e *EngineService) recomputeSlot(slot *db.Slot, now time.Time) error {
	score, err := e.estimator.Score(slot, now)
	if err != nil {
		return fmt.Errorf("demand score: %w", err)
	}
	e.checkHighDemand(slot.ID, score)

	events, err := e.store.ActiveDemandEvents(slot.ID, now)
	if err != nil {
		return fmt.Errorf("demand events: %w", err)
	}
	price := e.pricer.Price(PricingInputs{
		Slot:        slot,
		DemandScore: score,
		Rules:       mustRules(e.store, slot.ID),
		EventActive: len(events) > 0,
		Now:         now,
	})
	if err := e.store.SetDynamicPrice(slot.ID, price); err != nil {
		return fmt.Errorf("price write: %w", err)
	}
	metrics.DynamicPrice.WithLabelValues(slot.ID).Set(price)

	since := now.Add(-time.Duration(e.cfg.HistoryDays) * 24 * time.Hour)
	history, err := e.store.HistorySince(slot.ID, since)
	if err != nil {
		return fmt.Errorf("history read: %w", err)
	}
	bookings, err := e.store.ListBookings(repository.BookingFilter{SlotID: slot.ID})
	if err != nil {
		return fmt.Errorf("ledger read: %w", err)
	}
	pred := e.predictor.Predict(slot, bookings, history, now)
	if err := e.store.SetPrediction(slot.ID, pred); err != nil {
		return fmt.Errorf("prediction write: %w", err)
	}
	return nil
}

// checkHighDemand emits a high-demand alert on an upward threshold
// crossing only, so a slot sitting above the threshold does not spam the
// feed every cycle.
func (e *EngineService) checkHighDemand(slotID string, score float64) {
	e.mu.Lock()
	prev, seen := e.lastScores[slotID]
	e.lastScores[slotID] = score
	e.mu.Unlock()

	if score >= e.cfg.HighDemandThreshold && (!seen || prev < e.cfg.HighDemandThreshold) {
		e.alerts.Emit(db.AlertHighDemand, db.SeverityWarning,
			fmt.Sprintf("High demand on slot %s (score %.2f)", slotID, score), slotID, "")
	}
}

// markStale keeps the previous prediction but flags it so consumers can
// tell it is no longer fresh.
func (e *EngineService) markStale(slot *db.Slot) {
	pred := slot.Prediction
	pred.Stale = true
	if err := e.store.SetPrediction(slot.ID, pred); err != nil {
		e.log.Error().Err(err).Str("slot", slot.ID).Msg("stale flag write failed")
	}
}

// SampleOccupancy appends one history sample per slot. Scheduled hourly, it
// is what turns live state into estimator input.
func (e *EngineService) SampleOccupancy() {
	now := time.Now().UTC()
	slots, err := e.store.ListSlots(repository.SlotFilter{})
	if err != nil {
		e.log.Error().Err(err).Msg("occupancy sampling: listing slots failed")
		return
	}
	for _, slot := range slots {
		count, err := e.store.CountOverlapping(slot.ID, now, now.Add(time.Hour))
		if err != nil {
			e.log.Warn().Err(err).Str("slot", slot.ID).Msg("occupancy sampling: overlap count failed")
			count = 0
		}
		ev := db.OccupancyEvent{
			SlotID:   slot.ID,
			Time:     now.Truncate(time.Hour),
			Occupied: slot.TotalSpots - slot.AvailableSpots,
			Total:    slot.TotalSpots,
			Bookings: count,
		}
		if err := e.store.AppendOccupancy(ev); err != nil {
			e.log.Warn().Err(err).Str("slot", slot.ID).Msg("occupancy sampling: append failed")
		}
	}
}

func mustRules(store repository.RuleStore, slotID string) []*db.PricingRule {
	rules, err := store.ListRulesBySlot(slotID)
	if err != nil {
		return nil
	}
	return rules
}

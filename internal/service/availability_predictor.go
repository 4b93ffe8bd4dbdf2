package service

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"parkpulse/internal/config"
	"parkpulse/internal/db"
)

// AvailabilityPredictor estimates when a spot will free up in a slot and
// how much to trust that estimate.
type AvailabilityPredictor struct {
	cfg config.EngineConfig
}

func NewAvailabilityPredictor(cfg config.EngineConfig) *AvailabilityPredictor {
	return &AvailabilityPredictor{cfg: cfg}
}

// Predict derives the availability annotation for a slot. It never fails:
// thin history only lowers the confidence band.
func (p *AvailabilityPredictor) Predict(slot *db.Slot, bookings []*db.Booking, history []db.OccupancyEvent, now time.Time) db.PredictedAvailability {
	pred := db.PredictedAvailability{
		Confidence: p.confidence(history),
		ComputedAt: now,
	}

	if !slot.Maintenance && slot.AvailableSpots > 0 {
		headroom := float64(slot.AvailableSpots) / float64(max(slot.TotalSpots, 1))
		pred.Available = true
		pred.Probability = round2(clamp01(0.5+0.5*headroom) * 100)
		if headroom >= 0.4 {
			pred.TimeWindow = windowLabel(2 * time.Hour)
		} else {
			pred.TimeWindow = windowLabel(time.Hour)
		}
		return pred
	}

	wait := p.timeToAvailability(bookings, history, now)
	pred.Available = false
	// Probability decays with the predicted wait; a spot expected free
	// within minutes is near certain, one hours away is a coin toss.
	pred.Probability = round2(100 * math.Exp(-wait.Hours()/2))
	pred.TimeWindow = windowLabel(wait)
	if slot.Maintenance {
		pred.Probability = 0
		pred.TimeWindow = "Under maintenance"
		pred.Confidence = db.ConfidenceHigh
	}
	return pred
}

// timeToAvailability is the gap until the earliest active booking ends plus
// the expected vacancy-to-next-occupancy delay observed in history.
func (p *AvailabilityPredictor) timeToAvailability(bookings []*db.Booking, history []db.OccupancyEvent, now time.Time) time.Duration {
	var earliest time.Time
	for _, b := range bookings {
		if b.Status != db.BookingActive && b.Status != db.BookingConfirmed {
			continue
		}
		if !b.StartTime.After(now) && b.EndTime.After(now) {
			if earliest.IsZero() || b.EndTime.Before(earliest) {
				earliest = b.EndTime
			}
		}
	}
	wait := time.Hour
	if !earliest.IsZero() {
		wait = earliest.Sub(now)
	}
	return wait + meanFullStreak(history)
}

// meanFullStreak estimates how long the slot historically stays saturated
// once full, from consecutive at-capacity samples.
func meanFullStreak(history []db.OccupancyEvent) time.Duration {
	var streaks []float64
	run := 0
	for _, ev := range history {
		if ev.Total > 0 && ev.Occupied >= ev.Total {
			run++
			continue
		}
		if run > 0 {
			streaks = append(streaks, float64(run))
			run = 0
		}
	}
	if run > 0 {
		streaks = append(streaks, float64(run))
	}
	if len(streaks) == 0 {
		return 15 * time.Minute
	}
	return time.Duration(stat.Mean(streaks, nil) * float64(time.Hour) / 4)
}

// confidence bands the estimate by sample size and variance of the
// occupancy fraction.
func (p *AvailabilityPredictor) confidence(history []db.OccupancyEvent) db.Confidence {
	if len(history) < p.cfg.MinSamples/2 {
		return db.ConfidenceLow
	}
	fracs := make([]float64, len(history))
	for i, ev := range history {
		fracs[i] = occupancyFraction(ev)
	}
	variance := stat.Variance(fracs, nil)
	if len(history) >= p.cfg.MinSamples && variance <= p.cfg.VarianceThreshold {
		return db.ConfidenceHigh
	}
	return db.ConfidenceMedium
}

// windowLabel snaps a predicted time-to-availability onto the fixed set of
// human-readable windows.
func windowLabel(wait time.Duration) string {
	switch {
	case wait <= 15*time.Minute:
		return "Next 15 minutes"
	case wait <= time.Hour:
		return "Next 1 hour"
	case wait <= 2*time.Hour:
		return "Next 2 hours"
	default:
		return "3+ hours"
	}
}

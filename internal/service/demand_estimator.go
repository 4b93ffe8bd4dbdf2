package service

import (
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"parkpulse/internal/config"
	"parkpulse/internal/db"
	"parkpulse/internal/logger"
	"parkpulse/internal/repository"
)

const (
	histWeight  = 0.5
	trendWeight = 0.3
	eventWeight = 0.2

	// Buckets with fewer samples fall back to slot-type, then city-wide
	// averages.
	minBucketSamples = 3
	trendSamples     = 6
	neutralScore     = 0.5
)

// DemandEstimator produces a demand score in [0,1] per (slot, hour) from
// the rolling occupancy history.
type DemandEstimator struct {
	store repository.Store
	cfg   config.EngineConfig
	log   zerolog.Logger
}

func NewDemandEstimator(store repository.Store, cfg config.EngineConfig) *DemandEstimator {
	return &DemandEstimator{store: store, cfg: cfg, log: logger.New("demand-estimator")}
}

// Score estimates booking pressure for the slot at the given hour. It is a
// weighted combination of the historical rate for the (hour-of-day,
// day-of-week) bucket, the recent occupancy trend, and any flagged
// high-demand event. The result is always within [0,1].
func (e *DemandEstimator) Score(slot *db.Slot, at time.Time) (float64, error) {
	since := at.Add(-time.Duration(e.cfg.HistoryDays) * 24 * time.Hour)
	history, err := e.store.HistorySince(slot.ID, since)
	if err != nil {
		return 0, err
	}

	hist := e.historicalRate(slot, history, at, since)
	trend := trendComponent(history)
	boost := 0.0
	events, err := e.store.ActiveDemandEvents(slot.ID, at)
	if err != nil {
		e.log.Warn().Err(err).Str("slot", slot.ID).Msg("demand events unavailable, skipping boost")
	} else if len(events) > 0 {
		boost = 1.0
	}

	return clamp01(histWeight*hist + trendWeight*trend + eventWeight*boost), nil
}

// historicalRate averages the booking rate over samples sharing the target
// hour-of-day and day-of-week. With insufficient history it degrades to the
// slot-type average for that hour, then the city-wide average, then a
// neutral score.
func (e *DemandEstimator) historicalRate(slot *db.Slot, history []db.OccupancyEvent, at time.Time, since time.Time) float64 {
	var rates []float64
	for _, ev := range history {
		if ev.Time.Hour() == at.Hour() && ev.Time.Weekday() == at.Weekday() {
			rates = append(rates, bookingRate(ev))
		}
	}
	if len(rates) >= minBucketSamples {
		return clamp01(stat.Mean(rates, nil))
	}

	all, err := e.store.AllHistorySince(since)
	if err != nil || len(all) == 0 {
		return neutralScore
	}

	typeIDs := map[string]bool{}
	if slots, err := e.store.ListSlots(repository.SlotFilter{Type: slot.Type}); err == nil {
		for _, s := range slots {
			typeIDs[s.ID] = true
		}
	}

	var typeRates, cityRates []float64
	for _, ev := range all {
		if ev.Time.Hour() != at.Hour() {
			continue
		}
		r := bookingRate(ev)
		cityRates = append(cityRates, r)
		if typeIDs[ev.SlotID] {
			typeRates = append(typeRates, r)
		}
	}
	if len(typeRates) >= minBucketSamples {
		return clamp01(stat.Mean(typeRates, nil))
	}
	if len(cityRates) >= minBucketSamples {
		return clamp01(stat.Mean(cityRates, nil))
	}
	return neutralScore
}

// trendComponent maps the slope of the most recent occupancy samples onto
// [0,1]: 0.5 is flat, rising occupancy pushes towards 1.
func trendComponent(history []db.OccupancyEvent) float64 {
	if len(history) < 2 {
		return neutralScore
	}
	recent := history
	if len(recent) > trendSamples {
		recent = recent[len(recent)-trendSamples:]
	}
	xs := make([]float64, len(recent))
	ys := make([]float64, len(recent))
	origin := recent[0].Time
	for i, ev := range recent {
		xs[i] = ev.Time.Sub(origin).Hours()
		ys[i] = occupancyFraction(ev)
	}
	_, slope := stat.LinearRegression(xs, ys, nil, false)
	// Coinciding sample timestamps have zero x-variance and the regression
	// returns NaN, which clamp01 would pass through.
	if math.IsNaN(slope) {
		return neutralScore
	}
	return clamp01(neutralScore + 2*slope)
}

// Band maps a demand score onto the heatmap bands.
func Band(score float64) db.DemandBand {
	switch {
	case score < 0.25:
		return db.DemandLow
	case score < 0.5:
		return db.DemandMedium
	case score < 0.75:
		return db.DemandHigh
	default:
		return db.DemandCritical
	}
}

func bookingRate(ev db.OccupancyEvent) float64 {
	if ev.Total == 0 {
		return 0
	}
	return float64(ev.Bookings) / float64(ev.Total)
}

func occupancyFraction(ev db.OccupancyEvent) float64 {
	if ev.Total == 0 {
		return 0
	}
	return float64(ev.Occupied) / float64(ev.Total)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

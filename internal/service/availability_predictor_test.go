package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"parkpulse/internal/config"
	"parkpulse/internal/db"
)

func predictorFixture() (*AvailabilityPredictor, time.Time) {
	return NewAvailabilityPredictor(config.Default().Engine), time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
}

func flatHistory(n int, occupied, total int, from time.Time) []db.OccupancyEvent {
	out := make([]db.OccupancyEvent, n)
	for i := range out {
		out[i] = db.OccupancyEvent{SlotID: "s1", Time: from.Add(time.Duration(i) * time.Hour), Occupied: occupied, Total: total}
	}
	return out
}

func TestPredictFreeSlot(t *testing.T) {
	p, now := predictorFixture()
	slot := &db.Slot{ID: "s1", TotalSpots: 10, AvailableSpots: 8}

	pred := p.Predict(slot, nil, nil, now)
	assert.True(t, pred.Available)
	assert.Equal(t, "Next 2 hours", pred.TimeWindow)
	assert.Equal(t, 90.0, pred.Probability)
	assert.Equal(t, now, pred.ComputedAt)
	assert.False(t, pred.Stale)
}

func TestPredictNearlyFullSlot(t *testing.T) {
	p, now := predictorFixture()
	slot := &db.Slot{ID: "s1", TotalSpots: 10, AvailableSpots: 1}

	pred := p.Predict(slot, nil, nil, now)
	assert.True(t, pred.Available)
	assert.Equal(t, "Next 1 hour", pred.TimeWindow)
}

func TestPredictFullSlotUsesEarliestEnd(t *testing.T) {
	p, now := predictorFixture()
	slot := &db.Slot{ID: "s1", TotalSpots: 2, AvailableSpots: 0}
	bookings := []*db.Booking{
		{ID: "b1", SlotID: "s1", Status: db.BookingActive, StartTime: now.Add(-time.Hour), EndTime: now.Add(10 * time.Minute)},
		{ID: "b2", SlotID: "s1", Status: db.BookingActive, StartTime: now.Add(-time.Hour), EndTime: now.Add(3 * time.Hour)},
	}

	pred := p.Predict(slot, bookings, nil, now)
	assert.False(t, pred.Available)
	// 10 minutes to the earliest end plus the 15-minute fallback streak.
	assert.Equal(t, "Next 1 hour", pred.TimeWindow)
	assert.Greater(t, pred.Probability, 50.0)
}

func TestPredictMaintenance(t *testing.T) {
	p, now := predictorFixture()
	slot := &db.Slot{ID: "s1", TotalSpots: 5, AvailableSpots: 5, Maintenance: true}

	pred := p.Predict(slot, nil, nil, now)
	assert.False(t, pred.Available)
	assert.Zero(t, pred.Probability)
	assert.Equal(t, "Under maintenance", pred.TimeWindow)
	assert.Equal(t, db.ConfidenceHigh, pred.Confidence)
}

func TestConfidenceBands(t *testing.T) {
	p, now := predictorFixture()

	// MinSamples defaults to 10; below half of it confidence is low.
	pred := p.Predict(&db.Slot{ID: "s1", TotalSpots: 5, AvailableSpots: 3}, nil, flatHistory(3, 2, 5, now.Add(-24*time.Hour)), now)
	assert.Equal(t, db.ConfidenceLow, pred.Confidence)

	// Plenty of samples with zero variance is high confidence.
	pred = p.Predict(&db.Slot{ID: "s1", TotalSpots: 5, AvailableSpots: 3}, nil, flatHistory(12, 2, 5, now.Add(-24*time.Hour)), now)
	assert.Equal(t, db.ConfidenceHigh, pred.Confidence)

	// Noisy history lands in the middle.
	noisy := flatHistory(12, 0, 5, now.Add(-24*time.Hour))
	for i := range noisy {
		if i%2 == 0 {
			noisy[i].Occupied = 5
		}
	}
	pred = p.Predict(&db.Slot{ID: "s1", TotalSpots: 5, AvailableSpots: 3}, nil, noisy, now)
	assert.Equal(t, db.ConfidenceMedium, pred.Confidence)
}

func TestWindowLabels(t *testing.T) {
	cases := []struct {
		wait time.Duration
		want string
	}{
		{10 * time.Minute, "Next 15 minutes"},
		{15 * time.Minute, "Next 15 minutes"},
		{45 * time.Minute, "Next 1 hour"},
		{90 * time.Minute, "Next 2 hours"},
		{4 * time.Hour, "3+ hours"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, windowLabel(tc.wait), "wait %s", tc.wait)
	}
}

func TestMeanFullStreak(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 15*time.Minute, meanFullStreak(nil))

	// Two two-hour saturated streaks average to two units of 15 minutes
	// each, i.e. 30 minutes.
	history := []db.OccupancyEvent{
		{Time: now, Occupied: 5, Total: 5},
		{Time: now.Add(time.Hour), Occupied: 5, Total: 5},
		{Time: now.Add(2 * time.Hour), Occupied: 3, Total: 5},
		{Time: now.Add(3 * time.Hour), Occupied: 5, Total: 5},
		{Time: now.Add(4 * time.Hour), Occupied: 5, Total: 5},
	}
	assert.Equal(t, 30*time.Minute, meanFullStreak(history))
}

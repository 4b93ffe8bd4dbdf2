package repository

import (
	"fmt"
	"math"
	"time"

	"parkpulse/internal/db"
)

// SeedDemo loads the Coimbatore demo fleet plus two weeks of synthetic
// hourly occupancy history so the pricing and prediction cycle has data to
// work with from the first recompute.
func SeedDemo(store Store, now time.Time) error {
	slots := []*db.Slot{
		{
			ID:         "slot-1",
			OperatorID: "op-1",
			Location: db.Location{
				Lat: 11.0168, Lng: 76.9558,
				Address:  "RS Puram, Coimbatore, Tamil Nadu 641002",
				Landmark: "Near Brookefields Mall",
			},
			Type: db.SlotPremium, BasePrice: 80, DynamicPrice: 80,
			Amenities:  []string{"Covered", "EV Charging", "Security", "CCTV"},
			Rating:     4.8,
			TotalSpots: 50, AvailableSpots: 12,
		},
		{
			ID:         "slot-2",
			OperatorID: "op-1",
			Location: db.Location{
				Lat: 11.0510, Lng: 76.9636,
				Address:  "Gandhipuram, Coimbatore, Tamil Nadu 641012",
				Landmark: "Near City Bus Stand",
			},
			Type: db.SlotStandard, BasePrice: 10, DynamicPrice: 10,
			Amenities:  []string{"Covered", "Security"},
			Rating:     4.5,
			TotalSpots: 30, AvailableSpots: 8,
		},
		{
			ID:         "slot-3",
			OperatorID: "op-1",
			Location: db.Location{
				Lat: 11.0079, Lng: 76.9662,
				Address:  "Saibaba Colony, Coimbatore, Tamil Nadu 641011",
				Landmark: "Near Race Course",
			},
			Type: db.SlotEV, BasePrice: 120, DynamicPrice: 120,
			Amenities:  []string{"Covered", "EV Charging", "Security", "CCTV", "Valet"},
			Rating:     4.9,
			TotalSpots: 20, AvailableSpots: 0,
		},
		{
			ID:         "slot-4",
			OperatorID: "op-1",
			Location: db.Location{
				Lat: 11.0272, Lng: 77.0228,
				Address:  "Peelamedu, Coimbatore, Tamil Nadu 641004",
				Landmark: "Near Airport",
			},
			Type: db.SlotStandard, BasePrice: 12, DynamicPrice: 12,
			Amenities:  []string{"Security"},
			Rating:     4.2,
			TotalSpots: 40, AvailableSpots: 25,
		},
	}
	for _, s := range slots {
		s.CreatedAt = now
		s.UpdatedAt = now
		if err := store.CreateSlot(s); err != nil {
			return fmt.Errorf("seeding slot %s: %w", s.ID, err)
		}
	}

	rules := []*db.PricingRule{
		{ID: "rule-1", SlotID: "slot-1", Condition: db.RuleDemand, Threshold: 75, Multiplier: 1.5, Active: true},
		{ID: "rule-2", SlotID: "slot-3", Condition: db.RuleOccupancy, Threshold: 90, Multiplier: 2.0, Active: true},
		{ID: "rule-3", SlotID: "slot-4", Condition: db.RuleTime, Threshold: 18, Multiplier: 1.25, Active: true},
	}
	for _, r := range rules {
		if err := store.UpsertRule(r); err != nil {
			return fmt.Errorf("seeding rule %s: %w", r.ID, err)
		}
	}

	// Synthetic diurnal history: morning and evening peaks, quiet nights.
	start := now.Add(-14 * 24 * time.Hour).Truncate(time.Hour)
	for _, s := range slots {
		for t := start; t.Before(now); t = t.Add(time.Hour) {
			frac := 0.25 + 0.35*peak(float64(t.Hour()), 9) + 0.4*peak(float64(t.Hour()), 18)
			occupied := int(frac * float64(s.TotalSpots))
			ev := db.OccupancyEvent{
				SlotID:   s.ID,
				Time:     t,
				Occupied: occupied,
				Total:    s.TotalSpots,
				Bookings: occupied / 2,
			}
			if err := store.AppendOccupancy(ev); err != nil {
				return fmt.Errorf("seeding history for %s: %w", s.ID, err)
			}
		}
	}
	return nil
}

// peak is a smooth bump centered on the given hour.
func peak(hour, center float64) float64 {
	d := hour - center
	return math.Exp(-(d * d) / 8)
}

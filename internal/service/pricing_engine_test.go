package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"parkpulse/internal/db"
)

func pricingSlot() *db.Slot {
	return &db.Slot{
		ID:             "s1",
		BasePrice:      100,
		TotalSpots:     10,
		AvailableSpots: 10,
	}
}

func TestPriceNoRules(t *testing.T) {
	engine := NewPricingEngine(3.0)
	got := engine.Price(PricingInputs{Slot: pricingSlot(), DemandScore: 0.9, Now: time.Now()})
	assert.Equal(t, 100.0, got)
}

func TestPriceDemandRule(t *testing.T) {
	engine := NewPricingEngine(3.0)
	slot := pricingSlot()
	rules := []*db.PricingRule{
		{ID: "r1", SlotID: "s1", Condition: db.RuleDemand, Threshold: 75, Multiplier: 1.5, Active: true},
	}

	got := engine.Price(PricingInputs{Slot: slot, DemandScore: 0.8, Rules: rules, Now: time.Now()})
	assert.Equal(t, 150.0, got)

	// Below threshold the base price stands again.
	got = engine.Price(PricingInputs{Slot: slot, DemandScore: 0.5, Rules: rules, Now: time.Now()})
	assert.Equal(t, 100.0, got)
}

func TestPriceMaxMultiplierWins(t *testing.T) {
	engine := NewPricingEngine(3.0)
	slot := pricingSlot()
	slot.AvailableSpots = 0 // 100% occupancy
	rules := []*db.PricingRule{
		{ID: "r1", SlotID: "s1", Condition: db.RuleDemand, Threshold: 50, Multiplier: 1.5, Active: true},
		{ID: "r2", SlotID: "s1", Condition: db.RuleOccupancy, Threshold: 90, Multiplier: 2.0, Active: true},
	}

	got := engine.Price(PricingInputs{Slot: slot, DemandScore: 0.8, Rules: rules, Now: time.Now()})
	assert.Equal(t, 200.0, got, "the largest satisfied multiplier applies, they do not stack")
}

func TestPriceSurgeCeiling(t *testing.T) {
	engine := NewPricingEngine(3.0)
	slot := pricingSlot()
	rules := []*db.PricingRule{
		{ID: "r1", SlotID: "s1", Condition: db.RuleDemand, Threshold: 10, Multiplier: 5.0, Active: true},
	}

	got := engine.Price(PricingInputs{Slot: slot, DemandScore: 0.9, Rules: rules, Now: time.Now()})
	assert.Equal(t, 300.0, got)
}

func TestPriceIgnoresInactiveAndForeignRules(t *testing.T) {
	engine := NewPricingEngine(3.0)
	slot := pricingSlot()
	rules := []*db.PricingRule{
		{ID: "r1", SlotID: "s1", Condition: db.RuleDemand, Threshold: 10, Multiplier: 2.0, Active: false},
		{ID: "r2", SlotID: "other", Condition: db.RuleDemand, Threshold: 10, Multiplier: 2.5, Active: true},
	}

	got := engine.Price(PricingInputs{Slot: slot, DemandScore: 0.9, Rules: rules, Now: time.Now()})
	assert.Equal(t, 100.0, got)
}

func TestPriceTimeAndEventRules(t *testing.T) {
	engine := NewPricingEngine(3.0)
	slot := pricingSlot()
	evening := time.Date(2026, 9, 1, 18, 30, 0, 0, time.UTC)
	rules := []*db.PricingRule{
		{ID: "r1", SlotID: "s1", Condition: db.RuleTime, Threshold: 18, Multiplier: 1.25, Active: true},
		{ID: "r2", SlotID: "s1", Condition: db.RuleEvent, Threshold: 0, Multiplier: 1.75, Active: true},
	}

	got := engine.Price(PricingInputs{Slot: slot, DemandScore: 0, Rules: rules, EventActive: false, Now: evening})
	assert.Equal(t, 125.0, got)

	got = engine.Price(PricingInputs{Slot: slot, DemandScore: 0, Rules: rules, EventActive: true, Now: evening})
	assert.Equal(t, 175.0, got)

	morning := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	got = engine.Price(PricingInputs{Slot: slot, DemandScore: 0, Rules: rules, Now: morning})
	assert.Equal(t, 100.0, got)
}

func TestPriceDeterministic(t *testing.T) {
	engine := NewPricingEngine(3.0)
	in := PricingInputs{
		Slot:        pricingSlot(),
		DemandScore: 0.66,
		Rules: []*db.PricingRule{
			{ID: "r1", SlotID: "s1", Condition: db.RuleDemand, Threshold: 60, Multiplier: 1.4, Active: true},
		},
		Now: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
	}
	first := engine.Price(in)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, engine.Price(in))
	}
}

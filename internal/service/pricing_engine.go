package service

import (
	"math"
	"time"

	"parkpulse/internal/db"
)

// PricingInputs is everything a price computation depends on. The engine is
// a pure function of these inputs: same inputs, same price.
type PricingInputs struct {
	Slot        *db.Slot
	DemandScore float64
	Rules       []*db.PricingRule
	EventActive bool
	Now         time.Time
}

// PricingEngine derives a slot's dynamic price from its base price, the
// demand score and the active pricing rules. Rule combination policy is
// max-multiplier-wins, bounded by the surge ceiling.
type PricingEngine struct {
	ceiling float64
}

func NewPricingEngine(surgeCeiling float64) *PricingEngine {
	if surgeCeiling < 1 {
		surgeCeiling = 1
	}
	return &PricingEngine{ceiling: surgeCeiling}
}

// Price evaluates every active rule against live state and returns
// basePrice x min(ceiling, max(1, best satisfied multiplier)). With no
// satisfied rule the base price stands.
func (p *PricingEngine) Price(in PricingInputs) float64 {
	mult := 1.0
	for _, r := range in.Rules {
		if !r.Active || r.SlotID != in.Slot.ID {
			continue
		}
		if p.satisfied(r, in) && r.Multiplier > mult {
			mult = r.Multiplier
		}
	}
	if mult > p.ceiling {
		mult = p.ceiling
	}
	return round2(in.Slot.BasePrice * mult)
}

func (p *PricingEngine) satisfied(r *db.PricingRule, in PricingInputs) bool {
	switch r.Condition {
	case db.RuleDemand:
		// Threshold on the 0..100 scale the operator UI uses.
		return in.DemandScore*100 >= r.Threshold
	case db.RuleOccupancy:
		return occupancyPct(in.Slot) >= r.Threshold
	case db.RuleTime:
		return in.Now.Hour() == int(r.Threshold)
	case db.RuleEvent:
		return in.EventActive
	}
	return false
}

func occupancyPct(s *db.Slot) float64 {
	if s.TotalSpots == 0 {
		return 0
	}
	return 100 * float64(s.TotalSpots-s.AvailableSpots) / float64(s.TotalSpots)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

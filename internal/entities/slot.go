package entities

import (
	"time"

	"parkpulse/internal/db"
)

type SlotResponse struct {
	ID               string                   `json:"id"`
	OperatorID       string                   `json:"operator_id"`
	Location         db.Location              `json:"location"`
	Status           db.SlotStatus            `json:"status"`
	Type             db.SlotType              `json:"type"`
	BasePrice        float64                  `json:"base_price"`
	DynamicPrice     float64                  `json:"dynamic_price"`
	Amenities        []string                 `json:"amenities"`
	Rating           float64                  `json:"rating"`
	TotalSpots       int                      `json:"total_spots"`
	AvailableSpots   int                      `json:"available_spots"`
	Maintenance      bool                     `json:"maintenance,omitempty"`
	DistanceKm       float64                  `json:"distance_km,omitempty"`
	Prediction       db.PredictedAvailability `json:"predicted_availability"`
	Rules            []*db.PricingRule        `json:"pricing_rules,omitempty"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

func SlotToResponse(s *db.Slot) *SlotResponse {
	return &SlotResponse{
		ID:             s.ID,
		OperatorID:     s.OperatorID,
		Location:       s.Location,
		Status:         s.Status,
		Type:           s.Type,
		BasePrice:      s.BasePrice,
		DynamicPrice:   s.DynamicPrice,
		Amenities:      s.Amenities,
		Rating:         s.Rating,
		TotalSpots:     s.TotalSpots,
		AvailableSpots: s.AvailableSpots,
		Maintenance:    s.Maintenance,
		Prediction:     s.Prediction,
		UpdatedAt:      s.UpdatedAt,
	}
}

type CreateSlotRequest struct {
	ID         string      `json:"id"`
	OperatorID string      `json:"operator_id"`
	Location   db.Location `json:"location"`
	Type       db.SlotType `json:"type"`
	BasePrice  float64     `json:"base_price"`
	Amenities  []string    `json:"amenities"`
	TotalSpots int         `json:"total_spots"`
}

type PricingRuleRequest struct {
	Condition  db.RuleCondition `json:"condition"`
	Threshold  float64          `json:"threshold"`
	Multiplier float64          `json:"multiplier"`
	Active     bool             `json:"active"`
}

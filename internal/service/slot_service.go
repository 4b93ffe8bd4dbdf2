package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"parkpulse/internal/db"
	"parkpulse/internal/entities"
	apperr "parkpulse/internal/errors"
	"parkpulse/internal/eventbus"
	"parkpulse/internal/logger"
	"parkpulse/internal/repository"
	"parkpulse/internal/utils"
)

// SlotSearch carries the public search parameters.
type SlotSearch struct {
	Status   db.SlotStatus
	Type     db.SlotType
	Query    string
	MaxPrice float64
	Lat      float64
	Lng      float64
	HasPoint bool
	Sort     string // distance | price | rating
}

// SlotService serves the public slot catalog and the operator-side slot
// management operations.
type SlotService struct {
	store repository.Store
	bus   *eventbus.Bus
	log   zerolog.Logger
}

func NewSlotService(store repository.Store, bus *eventbus.Bus) *SlotService {
	return &SlotService{store: store, bus: bus, log: logger.New("slots")}
}

// Search lists slots matching the filters, annotated with distance when a
// point is given, sorted per the request.
func (s *SlotService) Search(q SlotSearch) ([]*entities.SlotResponse, error) {
	slots, err := s.store.ListSlots(repository.SlotFilter{
		Status:   q.Status,
		Type:     q.Type,
		Query:    q.Query,
		MaxPrice: q.MaxPrice,
	})
	if err != nil {
		return nil, err
	}

	out := make([]*entities.SlotResponse, 0, len(slots))
	for _, slot := range slots {
		resp := entities.SlotToResponse(slot)
		if q.HasPoint {
			resp.DistanceKm = utils.HaversineKm(q.Lat, q.Lng, slot.Location.Lat, slot.Location.Lng)
		}
		out = append(out, resp)
	}

	switch q.Sort {
	case "distance":
		if q.HasPoint {
			sort.Slice(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
		}
	case "price":
		sort.Slice(out, func(i, j int) bool { return out[i].DynamicPrice < out[j].DynamicPrice })
	case "rating":
		sort.Slice(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	}
	return out, nil
}

// Get returns one slot with its active pricing rules attached.
func (s *SlotService) Get(id string) (*entities.SlotResponse, error) {
	slot, err := s.store.GetSlot(id)
	if err != nil {
		return nil, err
	}
	resp := entities.SlotToResponse(slot)
	rules, err := s.store.ListRulesBySlot(id)
	if err != nil {
		s.log.Warn().Err(err).Str("slot", id).Msg("listing rules failed, returning slot without them")
	} else {
		resp.Rules = rules
	}
	return resp, nil
}

// Create registers a new slot for an operator.
func (s *SlotService) Create(req *entities.CreateSlotRequest) (*entities.SlotResponse, error) {
	if req.TotalSpots <= 0 {
		return nil, apperr.Validation("total_spots must be positive")
	}
	if req.BasePrice <= 0 {
		return nil, apperr.Validation("base_price must be positive")
	}
	if !req.Type.Valid() {
		return nil, apperr.Validation("unknown slot type %q", req.Type)
	}
	now := time.Now().UTC()
	slot := &db.Slot{
		ID:             req.ID,
		OperatorID:     req.OperatorID,
		Location:       req.Location,
		Status:         db.SlotAvailable,
		Type:           req.Type,
		BasePrice:      req.BasePrice,
		DynamicPrice:   req.BasePrice,
		Amenities:      req.Amenities,
		TotalSpots:     req.TotalSpots,
		AvailableSpots: req.TotalSpots,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateSlot(slot); err != nil {
		return nil, err
	}
	return entities.SlotToResponse(slot), nil
}

// UpdateSpots resizes a slot's capacity.
func (s *SlotService) UpdateSpots(id string, totalSpots int) error {
	if totalSpots <= 0 {
		return apperr.Validation("total_spots must be positive")
	}
	return s.store.UpdateSpots(id, totalSpots)
}

// SetMaintenance toggles the maintenance flag and announces it, so the
// alert feed picks it up.
func (s *SlotService) SetMaintenance(id string, on bool) error {
	if err := s.store.SetMaintenance(id, on); err != nil {
		return err
	}
	state := "cleared"
	if on {
		state = "set"
	}
	s.bus.Publish(eventbus.Event{
		Kind:    eventbus.MaintenanceSet,
		SlotID:  id,
		Message: fmt.Sprintf("Maintenance %s on slot %s", state, id),
		At:      time.Now().UTC(),
	})
	return nil
}

func (s *SlotService) ListRules(slotID string) ([]*db.PricingRule, error) {
	if _, err := s.store.GetSlot(slotID); err != nil {
		return nil, err
	}
	return s.store.ListRulesBySlot(slotID)
}

func (s *SlotService) AddRule(slotID string, req *entities.PricingRuleRequest) (*db.PricingRule, error) {
	if _, err := s.store.GetSlot(slotID); err != nil {
		return nil, err
	}
	if err := validateRule(req); err != nil {
		return nil, err
	}
	rule := &db.PricingRule{
		ID:         uuid.NewString(),
		SlotID:     slotID,
		Condition:  req.Condition,
		Threshold:  req.Threshold,
		Multiplier: req.Multiplier,
		Active:     req.Active,
	}
	if err := s.store.UpsertRule(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *SlotService) UpdateRule(id string, req *entities.PricingRuleRequest) (*db.PricingRule, error) {
	rule, err := s.store.GetRule(id)
	if err != nil {
		return nil, err
	}
	if err := validateRule(req); err != nil {
		return nil, err
	}
	rule.Condition = req.Condition
	rule.Threshold = req.Threshold
	rule.Multiplier = req.Multiplier
	rule.Active = req.Active
	if err := s.store.UpsertRule(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *SlotService) DeleteRule(id string) error {
	return s.store.DeleteRule(id)
}

// AddDemandEvent registers an external demand driver (concert, match) the
// estimator and pricing engine factor in while it is active.
func (s *SlotService) AddDemandEvent(ev db.DemandEvent) error {
	if ev.SlotID != "" {
		if _, err := s.store.GetSlot(ev.SlotID); err != nil {
			return err
		}
	}
	if !ev.End.After(ev.Start) {
		return apperr.Validation("event window must end after it starts")
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	return s.store.AddDemandEvent(ev)
}

func validateRule(req *entities.PricingRuleRequest) error {
	if !req.Condition.Valid() {
		return apperr.Validation("unknown rule condition %q", req.Condition)
	}
	if req.Multiplier <= 0 {
		return apperr.Validation("multiplier must be positive")
	}
	return nil
}

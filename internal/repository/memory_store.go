package repository

import (
	"sort"
	"strings"
	"sync"
	"time"

	"parkpulse/internal/db"
	apperr "parkpulse/internal/errors"
)

// MemoryStore is the in-memory Store implementation. It backs the demo
// deployment and the test suite. All getters return copies so callers can
// never mutate registry state without going through a store operation.
type MemoryStore struct {
	mu        sync.RWMutex
	slotLocks map[string]*sync.Mutex
	slots     map[string]*db.Slot
	bookings  map[string]*db.Booking
	byCode    map[string]string
	bySession map[string]string
	alerts    []*db.Alert
	rules     map[string]*db.PricingRule
	history   map[string][]db.OccupancyEvent
	events    []db.DemandEvent
	operators map[string]*db.Operator
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		slotLocks: make(map[string]*sync.Mutex),
		slots:     make(map[string]*db.Slot),
		bookings:  make(map[string]*db.Booking),
		byCode:    make(map[string]string),
		bySession: make(map[string]string),
		rules:     make(map[string]*db.PricingRule),
		history:   make(map[string][]db.OccupancyEvent),
		operators: make(map[string]*db.Operator),
	}
}

// lockSlot serializes capacity-changing operations per slot. The returned
// func releases the lock.
func (m *MemoryStore) lockSlot(id string) func() {
	m.mu.Lock()
	l, ok := m.slotLocks[id]
	if !ok {
		l = &sync.Mutex{}
		m.slotLocks[id] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func cloneSlot(s *db.Slot) *db.Slot {
	c := *s
	c.Amenities = append([]string(nil), s.Amenities...)
	return &c
}

func cloneBooking(b *db.Booking) *db.Booking {
	c := *b
	if b.ActualEndTime != nil {
		t := *b.ActualEndTime
		c.ActualEndTime = &t
	}
	if b.CheckedInAt != nil {
		t := *b.CheckedInAt
		c.CheckedInAt = &t
	}
	return &c
}

// recomputeStatus derives the slot status from capacity and maintenance.
// Policy: maintenance blocks the slot (reserved), zero free spots means
// occupied, anything else is available.
func recomputeStatus(s *db.Slot) {
	switch {
	case s.Maintenance:
		s.Status = db.SlotReserved
	case s.AvailableSpots == 0:
		s.Status = db.SlotOccupied
	default:
		s.Status = db.SlotAvailable
	}
}

func (m *MemoryStore) CreateSlot(s *db.Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[s.ID]; ok {
		return apperr.Conflict("slot %s already exists", s.ID)
	}
	if s.TotalSpots < 0 || s.AvailableSpots < 0 || s.AvailableSpots > s.TotalSpots {
		return apperr.Validation("slot %s spots out of range", s.ID)
	}
	c := cloneSlot(s)
	recomputeStatus(c)
	m.slots[s.ID] = c
	return nil
}

func (m *MemoryStore) GetSlot(id string) (*db.Slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.slots[id]
	if !ok {
		return nil, apperr.NotFound("slot %s", id)
	}
	return cloneSlot(s), nil
}

func (m *MemoryStore) ListSlots(f SlotFilter) ([]*db.Slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*db.Slot
	for _, s := range m.slots {
		if f.OperatorID != "" && s.OperatorID != f.OperatorID {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if f.Type != "" && s.Type != f.Type {
			continue
		}
		if f.MaxPrice > 0 && s.DynamicPrice > f.MaxPrice {
			continue
		}
		if f.Query != "" {
			q := strings.ToLower(f.Query)
			if !strings.Contains(strings.ToLower(s.Location.Address), q) &&
				!strings.Contains(strings.ToLower(s.Location.Landmark), q) {
				continue
			}
		}
		out = append(out, cloneSlot(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) Reserve(id string) error {
	defer m.lockSlot(id)()
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return apperr.NotFound("slot %s", id)
	}
	if s.Maintenance {
		return apperr.Conflict("slot %s is under maintenance", id)
	}
	if s.AvailableSpots == 0 {
		return apperr.Conflict("slot %s has no free spots", id)
	}
	s.AvailableSpots--
	recomputeStatus(s)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) Release(id string) error {
	defer m.lockSlot(id)()
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return apperr.NotFound("slot %s", id)
	}
	if s.AvailableSpots < s.TotalSpots {
		s.AvailableSpots++
	}
	recomputeStatus(s)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) SetMaintenance(id string, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return apperr.NotFound("slot %s", id)
	}
	s.Maintenance = on
	recomputeStatus(s)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) UpdateSpots(id string, totalSpots int) error {
	if totalSpots < 0 {
		return apperr.Validation("total spots must be non-negative")
	}
	defer m.lockSlot(id)()
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return apperr.NotFound("slot %s", id)
	}
	taken := s.TotalSpots - s.AvailableSpots
	s.TotalSpots = totalSpots
	s.AvailableSpots = totalSpots - taken
	if s.AvailableSpots < 0 {
		s.AvailableSpots = 0
	}
	recomputeStatus(s)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) SetDynamicPrice(id string, price float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return apperr.NotFound("slot %s", id)
	}
	s.DynamicPrice = price
	return nil
}

func (m *MemoryStore) SetPrediction(id string, p db.PredictedAvailability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return apperr.NotFound("slot %s", id)
	}
	s.Prediction = p
	return nil
}

func (m *MemoryStore) CreateBooking(b *db.Booking, totalSpots int) error {
	defer m.lockSlot(b.SlotID)()
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, ex := range m.bookings {
		if ex.SlotID == b.SlotID && ex.HoldsCapacity() && ex.Overlaps(b.StartTime, b.EndTime) {
			count++
		}
	}
	if count >= totalSpots {
		return apperr.Conflict("slot %s fully booked for the requested window", b.SlotID)
	}
	m.bookings[b.ID] = cloneBooking(b)
	m.byCode[b.Code] = b.ID
	if b.StripeSessionID != "" {
		m.bySession[b.StripeSessionID] = b.ID
	}
	return nil
}

func (m *MemoryStore) GetBooking(id string) (*db.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, apperr.NotFound("booking %s", id)
	}
	return cloneBooking(b), nil
}

func (m *MemoryStore) GetBookingByCode(code string) (*db.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byCode[code]
	if !ok {
		return nil, apperr.NotFound("booking with code %s", code)
	}
	return cloneBooking(m.bookings[id]), nil
}

func (m *MemoryStore) GetBookingBySessionID(sessionID string) (*db.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.bySession[sessionID]
	if !ok {
		return nil, apperr.NotFound("booking with session %s", sessionID)
	}
	return cloneBooking(m.bookings[id]), nil
}

func (m *MemoryStore) GetBookingByPaymentIntent(paymentIntentID string) (*db.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.bookings {
		if b.PaymentIntentID != "" && b.PaymentIntentID == paymentIntentID {
			return cloneBooking(b), nil
		}
	}
	return nil, apperr.NotFound("booking with payment intent %s", paymentIntentID)
}

func (m *MemoryStore) ListBookings(f BookingFilter) ([]*db.Booking, error) {
	m.mu.RLock()
	var out []*db.Booking
	for _, b := range m.bookings {
		if f.SlotID != "" && b.SlotID != f.SlotID {
			continue
		}
		if f.UserID != "" && b.UserID != f.UserID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && b.EndTime.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && b.StartTime.After(f.To) {
			continue
		}
		if f.OperatorID != "" {
			s, ok := m.slots[b.SlotID]
			if !ok || s.OperatorID != f.OperatorID {
				continue
			}
		}
		out = append(out, cloneBooking(b))
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryStore) UpdateBooking(b *db.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[b.ID]; !ok {
		return apperr.NotFound("booking %s", b.ID)
	}
	b.UpdatedAt = time.Now().UTC()
	m.bookings[b.ID] = cloneBooking(b)
	if b.StripeSessionID != "" {
		m.bySession[b.StripeSessionID] = b.ID
	}
	return nil
}

func (m *MemoryStore) CountOverlapping(slotID string, start, end time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, b := range m.bookings {
		if b.SlotID == slotID && b.HoldsCapacity() && b.Overlaps(start, end) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) DeletePendingBefore(cutoff time.Time) ([]*db.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var purged []*db.Booking
	for id, b := range m.bookings {
		if b.Status == db.BookingPending && b.CreatedAt.Before(cutoff) {
			purged = append(purged, cloneBooking(b))
			delete(m.bookings, id)
			delete(m.byCode, b.Code)
			delete(m.bySession, b.StripeSessionID)
		}
	}
	return purged, nil
}

func (m *MemoryStore) AddAlert(a *db.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *a
	m.alerts = append(m.alerts, &c)
	return nil
}

func (m *MemoryStore) ListAlerts(f AlertFilter) ([]*db.Alert, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var filtered []*db.Alert
	for _, a := range m.alerts {
		if f.UnreadOnly && a.Read {
			continue
		}
		c := *a
		filtered = append(filtered, &c)
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Timestamp.After(filtered[j].Timestamp) })
	total := len(filtered)
	if f.Offset > 0 {
		if f.Offset >= len(filtered) {
			return nil, total, nil
		}
		filtered = filtered[f.Offset:]
	}
	if f.Limit > 0 && len(filtered) > f.Limit {
		filtered = filtered[:f.Limit]
	}
	return filtered, total, nil
}

func (m *MemoryStore) MarkAlertRead(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		if a.ID == id {
			a.Read = true
			return nil
		}
	}
	return apperr.NotFound("alert %s", id)
}

func (m *MemoryStore) DeleteAlert(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.alerts {
		if a.ID == id {
			m.alerts = append(m.alerts[:i], m.alerts[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("alert %s", id)
}

func (m *MemoryStore) UpsertRule(r *db.PricingRule) error {
	if !r.Condition.Valid() {
		return apperr.Validation("unknown rule condition %q", r.Condition)
	}
	if r.Multiplier <= 0 {
		return apperr.Validation("rule multiplier must be positive")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *r
	m.rules[r.ID] = &c
	return nil
}

func (m *MemoryStore) GetRule(id string) (*db.PricingRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rules[id]
	if !ok {
		return nil, apperr.NotFound("pricing rule %s", id)
	}
	c := *r
	return &c, nil
}

func (m *MemoryStore) ListRulesBySlot(slotID string) ([]*db.PricingRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*db.PricingRule
	for _, r := range m.rules {
		if r.SlotID == slotID {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) DeleteRule(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[id]; !ok {
		return apperr.NotFound("pricing rule %s", id)
	}
	delete(m.rules, id)
	return nil
}

func (m *MemoryStore) AppendOccupancy(ev db.OccupancyEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[ev.SlotID] = append(m.history[ev.SlotID], ev)
	return nil
}

func (m *MemoryStore) HistorySince(slotID string, since time.Time) ([]db.OccupancyEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []db.OccupancyEvent
	for _, ev := range m.history[slotID] {
		if !ev.Time.Before(since) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *MemoryStore) AllHistorySince(since time.Time) ([]db.OccupancyEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []db.OccupancyEvent
	for _, evs := range m.history {
		for _, ev := range evs {
			if !ev.Time.Before(since) {
				out = append(out, ev)
			}
		}
	}
	return out, nil
}

func (m *MemoryStore) AddDemandEvent(ev db.DemandEvent) error {
	if !ev.End.After(ev.Start) {
		return apperr.Validation("demand event end must be after start")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *MemoryStore) ActiveDemandEvents(slotID string, at time.Time) ([]db.DemandEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []db.DemandEvent
	for _, ev := range m.events {
		if ev.SlotID != "" && ev.SlotID != slotID {
			continue
		}
		if !at.Before(ev.Start) && at.Before(ev.End) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateOperator(email, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.operators[email]; ok {
		return apperr.Conflict("operator %s already exists", email)
	}
	m.operators[email] = &db.Operator{
		ID:           email,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	return nil
}

func (m *MemoryStore) GetOperatorByEmail(email string) (*db.Operator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	op, ok := m.operators[email]
	if !ok {
		return nil, apperr.NotFound("operator %s", email)
	}
	c := *op
	return &c, nil
}

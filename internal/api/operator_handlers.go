package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"parkpulse/internal/auth"
	"parkpulse/internal/db"
	"parkpulse/internal/entities"
	"parkpulse/internal/repository"
	"parkpulse/internal/service"
)

// OperatorHandler serves the authenticated operator API: dashboard,
// analytics, alerts, slot management and pricing rules.
type OperatorHandler struct {
	Auth      *service.AuthService
	Dashboard *service.DashboardService
	Alerts    *service.AlertService
	Slots     *service.SlotService
	Bookings  *service.ReservationService
}

func NewOperatorHandler(auth *service.AuthService, dashboard *service.DashboardService, alerts *service.AlertService, slots *service.SlotService, bookings *service.ReservationService) *OperatorHandler {
	return &OperatorHandler{
		Auth:      auth,
		Dashboard: dashboard,
		Alerts:    alerts,
		Slots:     slots,
		Bookings:  bookings,
	}
}

// Login handles POST /operator/login.
func (h *OperatorHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	token, err := h.Auth.Login(req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// GetDashboard handles GET /operator/dashboard. The operator is always the
// one from the token; callers cannot read another operator's fleet.
func (h *OperatorHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.Dashboard.Dashboard(auth.OperatorID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

// GetAnalytics handles GET /operator/analytics.
func (h *OperatorHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.Dashboard.Analytics(auth.OperatorID(r.Context()), r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

// ListBookings handles GET /operator/bookings.
func (h *OperatorHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repository.BookingFilter{
		OperatorID: auth.OperatorID(r.Context()),
		SlotID:     q.Get("slot_id"),
		Status:     db.BookingStatus(q.Get("status")),
	}
	f.Limit, f.Offset = pagination(q.Get("limit"), q.Get("offset"))
	bookings, err := h.Bookings.ListBookings(f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// ListAlerts handles GET /operator/alerts.
func (h *OperatorHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pagination(q.Get("limit"), q.Get("offset"))
	alerts, total, err := h.Alerts.List(q.Get("unread") == "true", limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.AlertList{
		Total:  total,
		Limit:  limit,
		Offset: offset,
		Alerts: alerts,
	})
}

// MarkAlertRead handles PUT /operator/alerts/{id}/read.
func (h *OperatorHandler) MarkAlertRead(w http.ResponseWriter, r *http.Request) {
	if err := h.Alerts.MarkRead(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "alert marked read"})
}

// DeleteAlert handles DELETE /operator/alerts/{id}.
func (h *OperatorHandler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	if err := h.Alerts.Delete(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "alert deleted"})
}

// CreateSlot handles POST /operator/slots.
func (h *OperatorHandler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	var req entities.CreateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	slot, err := h.Slots.Create(&req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, slot)
}

// UpdateSpots handles PUT /operator/slots/{id}/spots.
func (h *OperatorHandler) UpdateSpots(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TotalSpots int `json:"total_spots"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.Slots.UpdateSpots(mux.Vars(r)["id"], req.TotalSpots); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "capacity updated"})
}

// SetMaintenance handles PUT /operator/slots/{id}/maintenance.
func (h *OperatorHandler) SetMaintenance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Maintenance bool `json:"maintenance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.Slots.SetMaintenance(mux.Vars(r)["id"], req.Maintenance); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "maintenance updated"})
}

// ListRules handles GET /operator/slots/{id}/rules.
func (h *OperatorHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Slots.ListRules(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

// AddRule handles POST /operator/slots/{id}/rules.
func (h *OperatorHandler) AddRule(w http.ResponseWriter, r *http.Request) {
	var req entities.PricingRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	rule, err := h.Slots.AddRule(mux.Vars(r)["id"], &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

// UpdateRule handles PUT /operator/rules/{id}.
func (h *OperatorHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	var req entities.PricingRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	rule, err := h.Slots.UpdateRule(mux.Vars(r)["id"], &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// DeleteRule handles DELETE /operator/rules/{id}.
func (h *OperatorHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := h.Slots.DeleteRule(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "rule deleted"})
}

// AddDemandEvent handles POST /operator/events.
func (h *OperatorHandler) AddDemandEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SlotID string    `json:"slot_id"`
		Name   string    `json:"name"`
		Start  time.Time `json:"start"`
		End    time.Time `json:"end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	ev := db.DemandEvent{SlotID: req.SlotID, Name: req.Name, Start: req.Start, End: req.End}
	if err := h.Slots.AddDemandEvent(ev); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "event registered"})
}

func pagination(limitStr, offsetStr string) (limit, offset int) {
	if v, err := strconv.Atoi(limitStr); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.Atoi(offsetStr); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

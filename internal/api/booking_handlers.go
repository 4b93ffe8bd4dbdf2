package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"parkpulse/internal/entities"
	"parkpulse/internal/service"
)

type BookingHandler struct {
	Service *service.ReservationService
}

func NewBookingHandler(svc *service.ReservationService) *BookingHandler {
	return &BookingHandler{Service: svc}
}

// CreateBooking handles POST /api/bookings.
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req entities.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	resp, err := h.Service.CreateBooking(&req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GetBooking handles GET /api/bookings/{code}.
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Service.GetByCode(mux.Vars(r)["code"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CheckIn handles POST /api/bookings/{code}/checkin.
func (h *BookingHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Service.CheckIn(mux.Vars(r)["code"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CancelBooking handles POST /api/bookings/{code}/cancel.
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Service.Cancel(mux.Vars(r)["code"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"parkpulse/internal/db"
	"parkpulse/internal/service"
)

type SlotHandler struct {
	Service *service.SlotService
}

func NewSlotHandler(svc *service.SlotService) *SlotHandler {
	return &SlotHandler{Service: svc}
}

// SearchSlots handles GET /api/slots.
func (h *SlotHandler) SearchSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := service.SlotSearch{
		Status: db.SlotStatus(q.Get("status")),
		Type:   db.SlotType(q.Get("type")),
		Query:  q.Get("q"),
		Sort:   q.Get("sort"),
	}
	if v := q.Get("max_price"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			http.Error(w, "invalid max_price", http.StatusBadRequest)
			return
		}
		search.MaxPrice = p
	}
	latStr, lngStr := q.Get("lat"), q.Get("lng")
	if latStr != "" && lngStr != "" {
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lng, errLng := strconv.ParseFloat(lngStr, 64)
		if errLat != nil || errLng != nil {
			http.Error(w, "invalid coordinates", http.StatusBadRequest)
			return
		}
		search.Lat, search.Lng, search.HasPoint = lat, lng, true
	}

	slots, err := h.Service.Search(search)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

// GetSlot handles GET /api/slots/{id}.
func (h *SlotHandler) GetSlot(w http.ResponseWriter, r *http.Request) {
	slot, err := h.Service.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

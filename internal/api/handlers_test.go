package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkpulse/internal/config"
	"parkpulse/internal/db"
	"parkpulse/internal/entities"
	"parkpulse/internal/eventbus"
	"parkpulse/internal/repository"
	"parkpulse/internal/service"
)

func testRouter(t *testing.T) (*mux.Router, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	require.NoError(t, store.CreateSlot(&db.Slot{
		ID:             "s1",
		OperatorID:     "op-1",
		Location:       db.Location{Lat: 11.0168, Lng: 76.9558, Address: "DB Road, RS Puram"},
		Status:         db.SlotAvailable,
		Type:           db.SlotPremium,
		BasePrice:      80,
		DynamicPrice:   80,
		TotalSpots:     5,
		AvailableSpots: 5,
	}))

	bus := eventbus.New()
	t.Cleanup(bus.Close)
	cfg := config.Default()

	reservations := service.NewReservationService(store, nil, nil, bus, cfg.Booking)
	slots := service.NewSlotService(store, bus)

	slotHandler := NewSlotHandler(slots)
	bookingHandler := NewBookingHandler(reservations)

	r := mux.NewRouter()
	r.HandleFunc("/api/slots", slotHandler.SearchSlots).Methods("GET")
	r.HandleFunc("/api/slots/{id}", slotHandler.GetSlot).Methods("GET")
	r.HandleFunc("/api/bookings", bookingHandler.CreateBooking).Methods("POST")
	r.HandleFunc("/api/bookings/{code}", bookingHandler.GetBooking).Methods("GET")
	r.HandleFunc("/api/bookings/{code}/checkin", bookingHandler.CheckIn).Methods("POST")
	r.HandleFunc("/api/bookings/{code}/cancel", bookingHandler.CancelBooking).Methods("POST")
	return r, store
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bookingBody(slotID string) entities.BookingRequest {
	start := time.Now().UTC().Add(2 * time.Hour)
	return entities.BookingRequest{
		SlotID:    slotID,
		UserID:    "user-1",
		UserName:  "Arun",
		UserEmail: "arun@example.com",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	}
}

func TestSearchSlots(t *testing.T) {
	r, _ := testRouter(t)

	w := doJSON(t, r, "GET", "/api/slots", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []entities.SlotResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID)

	// Free-text filter misses.
	w = doJSON(t, r, "GET", "/api/slots?q=gandhipuram", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Empty(t, got)

	// Distance annotation when coordinates are supplied.
	w = doJSON(t, r, "GET", "/api/slots?lat=11.0&lng=77.0&sort=distance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Greater(t, got[0].DistanceKm, 0.0)

	w = doJSON(t, r, "GET", "/api/slots?max_price=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSlotNotFound(t *testing.T) {
	r, _ := testRouter(t)

	w := doJSON(t, r, "GET", "/api/slots/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	r, store := testRouter(t)

	w := doJSON(t, r, "POST", "/api/bookings", bookingBody("s1"))
	require.Equal(t, http.StatusCreated, w.Code)

	var created entities.BookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Code)
	assert.Equal(t, db.BookingPending, created.Status)

	w = doJSON(t, r, "GET", "/api/bookings/"+created.Code, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Check-in before confirmation violates the state machine.
	w = doJSON(t, r, "POST", fmt.Sprintf("/api/bookings/%s/checkin", created.Code), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	b, err := store.GetBookingByCode(created.Code)
	require.NoError(t, err)
	b.Status = db.BookingConfirmed
	require.NoError(t, store.UpdateBooking(b))

	w = doJSON(t, r, "POST", fmt.Sprintf("/api/bookings/%s/checkin", created.Code), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, "POST", fmt.Sprintf("/api/bookings/%s/cancel", created.Code), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "active bookings cannot be cancelled")
}

func TestCreateBookingErrors(t *testing.T) {
	r, _ := testRouter(t)

	req := httptest.NewRequest("POST", "/api/bookings", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, "POST", "/api/bookings", bookingBody("ghost"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	body := bookingBody("s1")
	body.EndTime = body.StartTime
	w = doJSON(t, r, "POST", "/api/bookings", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCapacityConflictOverHTTP(t *testing.T) {
	r, store := testRouter(t)
	require.NoError(t, store.UpdateSpots("s1", 1))

	w := doJSON(t, r, "POST", "/api/bookings", bookingBody("s1"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, "POST", "/api/bookings", bookingBody("s1"))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetBookingNotFound(t *testing.T) {
	r, _ := testRouter(t)

	w := doJSON(t, r, "GET", "/api/bookings/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

package entities

import (
	"time"

	"parkpulse/internal/db"
)

type DemandHeatmapEntry struct {
	Hour              int           `json:"hour"`
	Band              db.DemandBand `json:"demand"`
	PredictedBookings int           `json:"predicted_bookings"`
	Confidence        float64       `json:"confidence"`
}

type OperatorDashboard struct {
	TotalSlots      int                  `json:"total_slots"`
	OccupancyRate   float64              `json:"occupancy_rate"`
	ActiveBookings  int                  `json:"active_bookings"`
	TodayRevenue    float64              `json:"today_revenue"`
	WeekRevenue     float64              `json:"week_revenue"`
	MonthRevenue    float64              `json:"month_revenue"`
	PredictedDemand []DemandHeatmapEntry `json:"predicted_demand"`
	RecentBookings  []*BookingResponse   `json:"recent_bookings"`
	Alerts          []*db.Alert          `json:"alerts"`
	GeneratedAt     time.Time            `json:"generated_at"`
	Degraded        bool                 `json:"degraded,omitempty"`
}

type RevenueData struct {
	Date     string  `json:"date"`
	Amount   float64 `json:"amount"`
	Bookings int     `json:"bookings"`
}

type OccupancyData struct {
	Date          string  `json:"date"`
	Rate          float64 `json:"rate"`
	TotalSlots    int     `json:"total_slots"`
	OccupiedSlots int     `json:"occupied_slots"`
}

type PeakHourData struct {
	Hour     int     `json:"hour"`
	Bookings int     `json:"bookings"`
	Revenue  float64 `json:"revenue"`
}

type Analytics struct {
	Period                 string         `json:"period"`
	Revenue                []RevenueData  `json:"revenue"`
	Occupancy              []OccupancyData `json:"occupancy"`
	PeakHours              []PeakHourData `json:"peak_hours"`
	AverageBookingDuration float64        `json:"average_booking_duration_hours"`
	NoShowRate             float64        `json:"no_show_rate"`
}

type AlertList struct {
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
	Alerts []*db.Alert `json:"alerts"`
}

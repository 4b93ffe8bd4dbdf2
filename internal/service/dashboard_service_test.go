package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkpulse/internal/config"
	"parkpulse/internal/db"
	"parkpulse/internal/repository"
)

func dashboardFixture(t *testing.T) (*DashboardService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	require.NoError(t, store.CreateSlot(&db.Slot{
		ID: "s1", OperatorID: "op-1", Type: db.SlotStandard,
		BasePrice: 40, DynamicPrice: 40, TotalSpots: 10, AvailableSpots: 6,
	}))
	require.NoError(t, store.CreateSlot(&db.Slot{
		ID: "s2", OperatorID: "op-1", Type: db.SlotPremium,
		BasePrice: 80, DynamicPrice: 80, TotalSpots: 10, AvailableSpots: 10,
	}))
	estimator := NewDemandEstimator(store, config.Default().Engine)
	return NewDashboardService(store, estimator), store
}

func paidBooking(id string, created time.Time, price float64, status db.BookingStatus) *db.Booking {
	return &db.Booking{
		ID: id, Code: "C-" + id, SlotID: "s1", UserID: "u1",
		Status: status, PaymentStatus: db.PaymentPaid,
		StartTime: created, EndTime: created.Add(2 * time.Hour),
		TotalPrice: price, CreatedAt: created,
	}
}

func TestDashboardAggregates(t *testing.T) {
	svc, store := dashboardFixture(t)
	now := time.Now().UTC()

	require.NoError(t, store.CreateBooking(paidBooking("b1", now, 100, db.BookingActive), 10))
	require.NoError(t, store.CreateBooking(paidBooking("b2", now.AddDate(0, 0, -3), 200, db.BookingCompleted), 10))
	require.NoError(t, store.CreateBooking(paidBooking("b3", now.AddDate(0, 0, -40), 400, db.BookingCompleted), 10))

	dash, err := svc.Dashboard("op-1")
	require.NoError(t, err)

	assert.Equal(t, 2, dash.TotalSlots)
	assert.Equal(t, 20.0, dash.OccupancyRate, "4 of 20 spots taken")
	assert.Equal(t, 1, dash.ActiveBookings)
	assert.Equal(t, 100.0, dash.TodayRevenue)
	assert.Equal(t, 300.0, dash.WeekRevenue)
	assert.Equal(t, 300.0, dash.MonthRevenue, "the 40-day-old booking is outside the month window")
	assert.Len(t, dash.PredictedDemand, 24)
	assert.NotEmpty(t, dash.RecentBookings)
	assert.False(t, dash.GeneratedAt.IsZero())
}

func TestDashboardHeatmapBands(t *testing.T) {
	svc, _ := dashboardFixture(t)

	dash, err := svc.Dashboard("op-1")
	require.NoError(t, err)
	require.Len(t, dash.PredictedDemand, 24)

	seen := map[int]bool{}
	for _, entry := range dash.PredictedDemand {
		assert.True(t, entry.Band.Valid(), "hour %d band %q", entry.Hour, entry.Band)
		assert.GreaterOrEqual(t, entry.Hour, 0)
		assert.Less(t, entry.Hour, 24)
		seen[entry.Hour] = true
	}
	assert.Len(t, seen, 24, "every hour of the day appears once")
}

func TestDashboardScopedToOperator(t *testing.T) {
	svc, store := dashboardFixture(t)
	require.NoError(t, store.CreateSlot(&db.Slot{
		ID: "s3", OperatorID: "op-2", Type: db.SlotStandard,
		BasePrice: 30, DynamicPrice: 30, TotalSpots: 5, AvailableSpots: 5,
	}))

	dash, err := svc.Dashboard("op-1")
	require.NoError(t, err)
	assert.Equal(t, 2, dash.TotalSlots)

	other, err := svc.Dashboard("op-2")
	require.NoError(t, err)
	assert.Equal(t, 1, other.TotalSlots)
}

func TestAnalyticsPeriods(t *testing.T) {
	svc, store := dashboardFixture(t)
	now := time.Now().UTC()

	require.NoError(t, store.CreateBooking(paidBooking("b1", now.Add(-time.Hour), 150, db.BookingCompleted), 10))
	noShow := paidBooking("b2", now.AddDate(0, 0, -2), 80, db.BookingNoShow)
	require.NoError(t, store.CreateBooking(noShow, 10))

	got, err := svc.Analytics("op-1", "week")
	require.NoError(t, err)
	assert.Equal(t, "week", got.Period)
	assert.Len(t, got.Revenue, 7)
	assert.Equal(t, 50.0, got.NoShowRate, "one of two bookings was a no-show")
	assert.Equal(t, 2.0, got.AverageBookingDuration)

	var total float64
	for _, day := range got.Revenue {
		total += day.Amount
	}
	assert.Equal(t, 230.0, total)

	got, err = svc.Analytics("op-1", "year")
	require.NoError(t, err)
	assert.Len(t, got.Revenue, 12)

	// Unknown periods default to a week.
	got, err = svc.Analytics("op-1", "fortnight")
	require.NoError(t, err)
	assert.Equal(t, "week", got.Period)
}

func TestAnalyticsPeakHours(t *testing.T) {
	svc, store := dashboardFixture(t)
	now := time.Now().UTC()
	at := time.Date(now.Year(), now.Month(), now.Day(), 18, 0, 0, 0, time.UTC).AddDate(0, 0, -1)

	for i, id := range []string{"p1", "p2", "p3"} {
		b := paidBooking(id, at.Add(time.Duration(i)*time.Minute), 100, db.BookingCompleted)
		require.NoError(t, store.CreateBooking(b, 10))
	}

	got, err := svc.Analytics("op-1", "week")
	require.NoError(t, err)
	require.NotEmpty(t, got.PeakHours)

	found := false
	for _, p := range got.PeakHours {
		if p.Hour == 18 {
			found = true
			assert.Equal(t, 3, p.Bookings)
			assert.Equal(t, 300.0, p.Revenue)
		}
	}
	assert.True(t, found, "the 18:00 cluster shows up as a peak hour")
}

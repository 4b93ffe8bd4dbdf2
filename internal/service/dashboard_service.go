package service

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"parkpulse/internal/db"
	"parkpulse/internal/entities"
	"parkpulse/internal/logger"
	"parkpulse/internal/repository"
)

// DashboardService aggregates the operator-facing views. Aggregation reads
// from the registry and the ledger; a failing estimator degrades the
// heatmap, never the whole dashboard.
type DashboardService struct {
	store     repository.Store
	estimator *DemandEstimator
	log       zerolog.Logger
}

func NewDashboardService(store repository.Store, estimator *DemandEstimator) *DashboardService {
	return &DashboardService{store: store, estimator: estimator, log: logger.New("dashboard")}
}

// Dashboard builds the operator landing view.
func (s *DashboardService) Dashboard(operatorID string) (*entities.OperatorDashboard, error) {
	now := time.Now().UTC()
	slots, err := s.store.ListSlots(repository.SlotFilter{OperatorID: operatorID})
	if err != nil {
		return nil, fmt.Errorf("listing slots: %w", err)
	}

	dash := &entities.OperatorDashboard{GeneratedAt: now}
	dash.TotalSlots = len(slots)

	var totalSpots, occupiedSpots int
	for _, slot := range slots {
		totalSpots += slot.TotalSpots
		occupiedSpots += slot.TotalSpots - slot.AvailableSpots
	}
	if totalSpots > 0 {
		dash.OccupancyRate = round2(100 * float64(occupiedSpots) / float64(totalSpots))
	}

	active, err := s.store.ListBookings(repository.BookingFilter{
		OperatorID: operatorID,
		Status:     db.BookingActive,
	})
	if err != nil {
		return nil, fmt.Errorf("listing active bookings: %w", err)
	}
	dash.ActiveBookings = len(active)

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dash.TodayRevenue = s.revenueSince(operatorID, dayStart)
	dash.WeekRevenue = s.revenueSince(operatorID, dayStart.AddDate(0, 0, -6))
	dash.MonthRevenue = s.revenueSince(operatorID, dayStart.AddDate(0, -1, 0))

	dash.PredictedDemand, dash.Degraded = s.heatmap(slots, now)

	recent, err := s.store.ListBookings(repository.BookingFilter{OperatorID: operatorID, Limit: 10})
	if err != nil {
		return nil, fmt.Errorf("listing recent bookings: %w", err)
	}
	for _, b := range recent {
		dash.RecentBookings = append(dash.RecentBookings, entities.BookingToResponse(b))
	}

	alerts, _, err := s.store.ListAlerts(repository.AlertFilter{Limit: 20})
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	dash.Alerts = alerts
	return dash, nil
}

// heatmap projects the demand score over the next 24 hours, averaged across
// the operator's slots. Estimator errors degrade the affected hour to the
// medium band and flag the dashboard.
func (s *DashboardService) heatmap(slots []*db.Slot, now time.Time) ([]entities.DemandHeatmapEntry, bool) {
	entries := make([]entities.DemandHeatmapEntry, 0, 24)
	degraded := false
	var totalSpots int
	for _, slot := range slots {
		totalSpots += slot.TotalSpots
	}
	for h := 0; h < 24; h++ {
		at := now.Add(time.Duration(h) * time.Hour)
		var sum float64
		var n int
		for _, slot := range slots {
			score, err := s.estimator.Score(slot, at)
			if err != nil {
				s.log.Warn().Err(err).Str("slot", slot.ID).Int("hour", at.Hour()).Msg("heatmap score failed")
				degraded = true
				continue
			}
			sum += score
			n++
		}
		avg := 0.5
		if n > 0 {
			avg = sum / float64(n)
		}
		entries = append(entries, entities.DemandHeatmapEntry{
			Hour:              at.Hour(),
			Band:              Band(avg),
			PredictedBookings: int(avg * float64(totalSpots)),
			Confidence:        round2(float64(n) / float64(max(len(slots), 1))),
		})
	}
	return entries, degraded
}

func (s *DashboardService) revenueSince(operatorID string, since time.Time) float64 {
	bookings, err := s.store.ListBookings(repository.BookingFilter{
		OperatorID: operatorID,
		From:       since,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("revenue query failed")
		return 0
	}
	var total float64
	for _, b := range bookings {
		if b.PaymentStatus == db.PaymentPaid && !b.CreatedAt.Before(since) {
			total += b.TotalPrice
		}
	}
	return round2(total)
}

// Analytics builds the reporting view for a period: "week", "month" or
// "year".
func (s *DashboardService) Analytics(operatorID, period string) (*entities.Analytics, error) {
	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var since time.Time
	var buckets int
	var step time.Duration
	switch period {
	case "week":
		buckets, step = 7, 24*time.Hour
	case "month":
		buckets, step = 30, 24*time.Hour
	case "year":
		buckets, step = 12, 0 // monthly buckets, stepped by AddDate below
	default:
		period = "week"
		buckets, step = 7, 24*time.Hour
	}
	if step > 0 {
		since = dayStart.Add(-time.Duration(buckets-1) * step)
	} else {
		since = time.Date(now.Year()-1, now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	}

	bookings, err := s.store.ListBookings(repository.BookingFilter{
		OperatorID: operatorID,
		From:       since,
	})
	if err != nil {
		return nil, fmt.Errorf("listing bookings: %w", err)
	}

	out := &entities.Analytics{Period: period}
	out.Revenue = revenueSeries(bookings, since, buckets, step)
	out.PeakHours = peakHours(bookings)
	out.AverageBookingDuration, out.NoShowRate = durationAndNoShow(bookings)

	occ, err := s.occupancySeries(operatorID, since, buckets, step)
	if err != nil {
		s.log.Warn().Err(err).Msg("occupancy series failed, returning analytics without it")
	} else {
		out.Occupancy = occ
	}
	return out, nil
}

func bucketLabel(t time.Time, step time.Duration) string {
	if step == 0 {
		return t.Format("2006-01")
	}
	return t.Format("2006-01-02")
}

func bucketStart(since time.Time, i int, step time.Duration) time.Time {
	if step == 0 {
		return since.AddDate(0, i, 0)
	}
	return since.Add(time.Duration(i) * step)
}

func revenueSeries(bookings []*db.Booking, since time.Time, buckets int, step time.Duration) []entities.RevenueData {
	out := make([]entities.RevenueData, buckets)
	for i := range out {
		out[i].Date = bucketLabel(bucketStart(since, i, step), step)
	}
	for _, b := range bookings {
		if b.PaymentStatus != db.PaymentPaid {
			continue
		}
		for i := buckets - 1; i >= 0; i-- {
			if !b.CreatedAt.Before(bucketStart(since, i, step)) {
				out[i].Amount = round2(out[i].Amount + b.TotalPrice)
				out[i].Bookings++
				break
			}
		}
	}
	return out
}

func peakHours(bookings []*db.Booking) []entities.PeakHourData {
	byHour := make(map[int]*entities.PeakHourData)
	for _, b := range bookings {
		h := b.StartTime.Hour()
		p, ok := byHour[h]
		if !ok {
			p = &entities.PeakHourData{Hour: h}
			byHour[h] = p
		}
		p.Bookings++
		if b.PaymentStatus == db.PaymentPaid {
			p.Revenue = round2(p.Revenue + b.TotalPrice)
		}
	}
	out := make([]entities.PeakHourData, 0, 24)
	for h := 0; h < 24; h++ {
		if p, ok := byHour[h]; ok {
			out = append(out, *p)
		}
	}
	return out
}

func durationAndNoShow(bookings []*db.Booking) (avgHours, noShowRate float64) {
	var durSum float64
	var durN, noShows int
	for _, b := range bookings {
		switch b.Status {
		case db.BookingCompleted:
			end := b.EndTime
			if b.ActualEndTime != nil {
				end = *b.ActualEndTime
			}
			durSum += end.Sub(b.StartTime).Hours()
			durN++
		case db.BookingNoShow:
			noShows++
		}
	}
	if durN > 0 {
		avgHours = round2(durSum / float64(durN))
	}
	if len(bookings) > 0 {
		noShowRate = round2(100 * float64(noShows) / float64(len(bookings)))
	}
	return avgHours, noShowRate
}

// occupancySeries averages the sampled occupancy history per bucket.
func (s *DashboardService) occupancySeries(operatorID string, since time.Time, buckets int, step time.Duration) ([]entities.OccupancyData, error) {
	slots, err := s.store.ListSlots(repository.SlotFilter{OperatorID: operatorID})
	if err != nil {
		return nil, err
	}
	slotIDs := make(map[string]bool, len(slots))
	for _, slot := range slots {
		slotIDs[slot.ID] = true
	}

	history, err := s.store.AllHistorySince(since)
	if err != nil {
		return nil, err
	}

	type acc struct{ occupied, total, samples int }
	accs := make([]acc, buckets)
	for _, ev := range history {
		if !slotIDs[ev.SlotID] {
			continue
		}
		for i := buckets - 1; i >= 0; i-- {
			if !ev.Time.Before(bucketStart(since, i, step)) {
				accs[i].occupied += ev.Occupied
				accs[i].total += ev.Total
				accs[i].samples++
				break
			}
		}
	}

	out := make([]entities.OccupancyData, buckets)
	for i := range out {
		out[i].Date = bucketLabel(bucketStart(since, i, step), step)
		out[i].TotalSlots = len(slots)
		if accs[i].total > 0 {
			out[i].Rate = round2(100 * float64(accs[i].occupied) / float64(accs[i].total))
			out[i].OccupiedSlots = accs[i].occupied / max(accs[i].samples, 1)
		}
	}
	return out, nil
}

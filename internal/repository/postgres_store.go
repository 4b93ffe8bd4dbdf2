package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"parkpulse/internal/db"
	apperr "parkpulse/internal/errors"
)

// PostgresStore is the durable Store implementation. Per-slot serialization
// of capacity updates is delegated to the database: guarded UPDATEs for
// Reserve/Release and a row lock around the capacity-checked insert.
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(sqlDB *sql.DB) *PostgresStore {
	return &PostgresStore{DB: sqlDB}
}

const slotColumns = `id, operator_id, lat, lng, address, landmark, status, type,
	base_price, dynamic_price, amenities, rating, total_spots, available_spots,
	maintenance, pred_available, pred_probability, pred_confidence, pred_window,
	pred_stale, pred_computed_at, created_at, updated_at`

func scanSlot(row interface{ Scan(...any) error }) (*db.Slot, error) {
	var s db.Slot
	var predComputedAt sql.NullTime
	err := row.Scan(
		&s.ID, &s.OperatorID, &s.Location.Lat, &s.Location.Lng, &s.Location.Address,
		&s.Location.Landmark, &s.Status, &s.Type, &s.BasePrice, &s.DynamicPrice,
		pq.Array(&s.Amenities), &s.Rating, &s.TotalSpots, &s.AvailableSpots,
		&s.Maintenance, &s.Prediction.Available, &s.Prediction.Probability,
		&s.Prediction.Confidence, &s.Prediction.TimeWindow, &s.Prediction.Stale,
		&predComputedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if predComputedAt.Valid {
		s.Prediction.ComputedAt = predComputedAt.Time
	}
	return &s, nil
}

func (r *PostgresStore) CreateSlot(s *db.Slot) error {
	query := `
		INSERT INTO slots
		(id, operator_id, lat, lng, address, landmark, status, type, base_price,
		 dynamic_price, amenities, rating, total_spots, available_spots, maintenance,
		 created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,NOW(),NOW())`
	_, err := r.DB.Exec(query,
		s.ID, s.OperatorID, s.Location.Lat, s.Location.Lng, s.Location.Address,
		s.Location.Landmark, s.Status, s.Type, s.BasePrice, s.DynamicPrice,
		pq.Array(s.Amenities), s.Rating, s.TotalSpots, s.AvailableSpots, s.Maintenance,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return apperr.Conflict("slot %s already exists", s.ID)
		}
		return fmt.Errorf("error inserting slot: %w", err)
	}
	return nil
}

func (r *PostgresStore) GetSlot(id string) (*db.Slot, error) {
	row := r.DB.QueryRow(`SELECT `+slotColumns+` FROM slots WHERE id = $1`, id)
	s, err := scanSlot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("slot %s", id)
		}
		return nil, fmt.Errorf("error querying slot: %w", err)
	}
	return s, nil
}

func (r *PostgresStore) ListSlots(f SlotFilter) ([]*db.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE 1=1`
	var args []any
	idx := 1
	add := func(cond string, val any) {
		query += fmt.Sprintf(" AND "+cond, idx)
		args = append(args, val)
		idx++
	}
	if f.OperatorID != "" {
		add("operator_id = $%d", f.OperatorID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.MaxPrice > 0 {
		add("dynamic_price <= $%d", f.MaxPrice)
	}
	if f.Query != "" {
		query += fmt.Sprintf(" AND (address ILIKE '%%' || $%d || '%%' OR landmark ILIKE '%%' || $%d || '%%')", idx, idx)
		args = append(args, f.Query)
		idx++
	}
	query += ` ORDER BY id`

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing slots: %w", err)
	}
	defer rows.Close()

	var out []*db.Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning slot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresStore) Reserve(id string) error {
	result, err := r.DB.Exec(`
		UPDATE slots SET
			available_spots = available_spots - 1,
			status = CASE WHEN available_spots - 1 = 0 THEN 'occupied' ELSE 'available' END,
			updated_at = NOW()
		WHERE id = $1 AND available_spots > 0 AND NOT maintenance`, id)
	if err != nil {
		return fmt.Errorf("error reserving slot: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetSlot(id); err != nil {
			return err
		}
		return apperr.Conflict("slot %s has no free spots", id)
	}
	return nil
}

func (r *PostgresStore) Release(id string) error {
	result, err := r.DB.Exec(`
		UPDATE slots SET
			available_spots = LEAST(available_spots + 1, total_spots),
			status = CASE WHEN maintenance THEN 'reserved' ELSE 'available' END,
			updated_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error releasing slot: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("slot %s", id)
	}
	return nil
}

func (r *PostgresStore) SetMaintenance(id string, on bool) error {
	result, err := r.DB.Exec(`
		UPDATE slots SET
			maintenance = $2,
			status = CASE
				WHEN $2 THEN 'reserved'
				WHEN available_spots = 0 THEN 'occupied'
				ELSE 'available'
			END,
			updated_at = NOW()
		WHERE id = $1`, id, on)
	if err != nil {
		return fmt.Errorf("error setting maintenance: %w", err)
	}
	return requireRow(result, id)
}

func (r *PostgresStore) UpdateSpots(id string, totalSpots int) error {
	if totalSpots < 0 {
		return apperr.Validation("total spots must be non-negative")
	}
	result, err := r.DB.Exec(`
		UPDATE slots SET
			available_spots = GREATEST(0, $2 - (total_spots - available_spots)),
			total_spots = $2,
			updated_at = NOW()
		WHERE id = $1`, id, totalSpots)
	if err != nil {
		return fmt.Errorf("error updating spots: %w", err)
	}
	return requireRow(result, id)
}

func (r *PostgresStore) SetDynamicPrice(id string, price float64) error {
	result, err := r.DB.Exec(`UPDATE slots SET dynamic_price = $2 WHERE id = $1`, id, price)
	if err != nil {
		return fmt.Errorf("error setting dynamic price: %w", err)
	}
	return requireRow(result, id)
}

func (r *PostgresStore) SetPrediction(id string, p db.PredictedAvailability) error {
	result, err := r.DB.Exec(`
		UPDATE slots SET
			pred_available = $2, pred_probability = $3, pred_confidence = $4,
			pred_window = $5, pred_stale = $6, pred_computed_at = $7
		WHERE id = $1`,
		id, p.Available, p.Probability, p.Confidence, p.TimeWindow, p.Stale, p.ComputedAt)
	if err != nil {
		return fmt.Errorf("error setting prediction: %w", err)
	}
	return requireRow(result, id)
}

func requireRow(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("slot %s", id)
	}
	return nil
}

const bookingColumns = `id, code, user_id, user_name, user_email, user_phone,
	slot_id, status, start_time, end_time,
	actual_end_time, total_price, payment_status, payment_method, qr_code,
	refund_amount, checked_in_at, no_show_flagged, spot_held, stripe_session_id,
	payment_intent_id, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*db.Booking, error) {
	var b db.Booking
	var actualEnd, checkedIn sql.NullTime
	err := row.Scan(
		&b.ID, &b.Code, &b.UserID, &b.UserName, &b.UserEmail, &b.UserPhone,
		&b.SlotID, &b.Status, &b.StartTime, &b.EndTime,
		&actualEnd, &b.TotalPrice, &b.PaymentStatus, &b.PaymentMethod, &b.QRCode,
		&b.RefundAmount, &checkedIn, &b.NoShowFlagged, &b.SpotHeld, &b.StripeSessionID,
		&b.PaymentIntentID, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if actualEnd.Valid {
		b.ActualEndTime = &actualEnd.Time
	}
	if checkedIn.Valid {
		b.CheckedInAt = &checkedIn.Time
	}
	return &b, nil
}

func (r *PostgresStore) CreateBooking(b *db.Booking, totalSpots int) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return fmt.Errorf("error beginning booking tx: %w", err)
	}
	defer tx.Rollback()

	// Row lock on the slot serializes concurrent capacity checks.
	var lockedID string
	if err := tx.QueryRow(`SELECT id FROM slots WHERE id = $1 FOR UPDATE`, b.SlotID).Scan(&lockedID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("slot %s", b.SlotID)
		}
		return fmt.Errorf("error locking slot: %w", err)
	}

	var count int
	err = tx.QueryRow(`
		SELECT COUNT(*) FROM bookings
		WHERE slot_id = $1
		  AND status IN ('pending', 'confirmed', 'active')
		  AND start_time < $3 AND end_time > $2`,
		b.SlotID, b.StartTime, b.EndTime).Scan(&count)
	if err != nil {
		return fmt.Errorf("error counting overlapping bookings: %w", err)
	}
	if count >= totalSpots {
		return apperr.Conflict("slot %s fully booked for the requested window", b.SlotID)
	}

	_, err = tx.Exec(`
		INSERT INTO bookings
		(id, code, user_id, user_name, user_email, user_phone, slot_id, status,
		 start_time, end_time, total_price, payment_status, payment_method, qr_code,
		 refund_amount, no_show_flagged, spot_held, stripe_session_id, payment_intent_id,
		 created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,NOW(),NOW())`,
		b.ID, b.Code, b.UserID, b.UserName, b.UserEmail, b.UserPhone, b.SlotID,
		b.Status, b.StartTime, b.EndTime, b.TotalPrice, b.PaymentStatus,
		b.PaymentMethod, b.QRCode, b.RefundAmount, b.NoShowFlagged, b.SpotHeld,
		b.StripeSessionID, b.PaymentIntentID)
	if err != nil {
		return fmt.Errorf("error inserting booking: %w", err)
	}
	return tx.Commit()
}

func (r *PostgresStore) GetBooking(id string) (*db.Booking, error) {
	return r.getBookingWhere(`id = $1`, id)
}

func (r *PostgresStore) GetBookingByCode(code string) (*db.Booking, error) {
	return r.getBookingWhere(`code = $1`, code)
}

func (r *PostgresStore) GetBookingBySessionID(sessionID string) (*db.Booking, error) {
	return r.getBookingWhere(`stripe_session_id = $1`, sessionID)
}

func (r *PostgresStore) GetBookingByPaymentIntent(paymentIntentID string) (*db.Booking, error) {
	return r.getBookingWhere(`payment_intent_id = $1`, paymentIntentID)
}

func (r *PostgresStore) getBookingWhere(where string, arg any) (*db.Booking, error) {
	row := r.DB.QueryRow(`SELECT `+bookingColumns+` FROM bookings WHERE `+where, arg)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("booking %v", arg)
		}
		return nil, fmt.Errorf("error querying booking: %w", err)
	}
	return b, nil
}

func (r *PostgresStore) ListBookings(f BookingFilter) ([]*db.Booking, error) {
	cols := `b.id, b.code, b.user_id, b.user_name, b.user_email, b.user_phone,
		b.slot_id, b.status, b.start_time, b.end_time,
		b.actual_end_time, b.total_price, b.payment_status, b.payment_method, b.qr_code,
		b.refund_amount, b.checked_in_at, b.no_show_flagged, b.spot_held, b.stripe_session_id,
		b.payment_intent_id, b.created_at, b.updated_at`
	query := `SELECT ` + cols + ` FROM bookings b`
	if f.OperatorID != "" {
		query += ` JOIN slots s ON b.slot_id = s.id`
	}
	query += ` WHERE 1=1`
	var args []any
	idx := 1
	add := func(cond string, val any) {
		query += fmt.Sprintf(" AND "+cond, idx)
		args = append(args, val)
		idx++
	}
	if f.SlotID != "" {
		add("b.slot_id = $%d", f.SlotID)
	}
	if f.OperatorID != "" {
		add("s.operator_id = $%d", f.OperatorID)
	}
	if f.UserID != "" {
		add("b.user_id = $%d", f.UserID)
	}
	if f.Status != "" {
		add("b.status = $%d", f.Status)
	}
	if !f.From.IsZero() {
		add("b.end_time >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("b.start_time <= $%d", f.To)
	}
	query += ` ORDER BY b.created_at DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", f.Offset)
	}

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing bookings: %w", err)
	}
	defer rows.Close()

	var out []*db.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresStore) UpdateBooking(b *db.Booking) error {
	result, err := r.DB.Exec(`
		UPDATE bookings SET
			status = $2, actual_end_time = $3, payment_status = $4, refund_amount = $5,
			checked_in_at = $6, no_show_flagged = $7, spot_held = $8,
			stripe_session_id = $9, payment_intent_id = $10, updated_at = NOW()
		WHERE id = $1`,
		b.ID, b.Status, b.ActualEndTime, b.PaymentStatus, b.RefundAmount,
		b.CheckedInAt, b.NoShowFlagged, b.SpotHeld, b.StripeSessionID, b.PaymentIntentID)
	if err != nil {
		return fmt.Errorf("error updating booking: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("booking %s", b.ID)
	}
	return nil
}

func (r *PostgresStore) CountOverlapping(slotID string, start, end time.Time) (int, error) {
	var count int
	err := r.DB.QueryRow(`
		SELECT COUNT(*) FROM bookings
		WHERE slot_id = $1
		  AND status IN ('pending', 'confirmed', 'active')
		  AND start_time < $3 AND end_time > $2`,
		slotID, start, end).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting overlapping bookings: %w", err)
	}
	return count, nil
}

func (r *PostgresStore) DeletePendingBefore(cutoff time.Time) ([]*db.Booking, error) {
	rows, err := r.DB.Query(`
		DELETE FROM bookings WHERE status = 'pending' AND created_at < $1
		RETURNING `+bookingColumns, cutoff)
	if err != nil {
		return nil, fmt.Errorf("error deleting stale pending bookings: %w", err)
	}
	defer rows.Close()

	var purged []*db.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning purged booking: %w", err)
		}
		purged = append(purged, b)
	}
	return purged, rows.Err()
}

func (r *PostgresStore) AddAlert(a *db.Alert) error {
	_, err := r.DB.Exec(`
		INSERT INTO alerts (id, type, severity, message, slot_id, booking_id, ts, read)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.Type, a.Severity, a.Message, a.SlotID, a.BookingID, a.Timestamp, a.Read)
	if err != nil {
		return fmt.Errorf("error inserting alert: %w", err)
	}
	return nil
}

func (r *PostgresStore) ListAlerts(f AlertFilter) ([]*db.Alert, int, error) {
	where := ``
	if f.UnreadOnly {
		where = ` WHERE NOT read`
	}
	var total int
	if err := r.DB.QueryRow(`SELECT COUNT(*) FROM alerts` + where).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting alerts: %w", err)
	}
	query := `SELECT id, type, severity, message, slot_id, booking_id, ts, read FROM alerts` + where + ` ORDER BY ts DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", f.Offset)
	}
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing alerts: %w", err)
	}
	defer rows.Close()

	var out []*db.Alert
	for rows.Next() {
		var a db.Alert
		if err := rows.Scan(&a.ID, &a.Type, &a.Severity, &a.Message, &a.SlotID, &a.BookingID, &a.Timestamp, &a.Read); err != nil {
			return nil, 0, fmt.Errorf("error scanning alert: %w", err)
		}
		out = append(out, &a)
	}
	return out, total, rows.Err()
}

func (r *PostgresStore) MarkAlertRead(id string) error {
	result, err := r.DB.Exec(`UPDATE alerts SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error marking alert read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("alert %s", id)
	}
	return nil
}

func (r *PostgresStore) DeleteAlert(id string) error {
	result, err := r.DB.Exec(`DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting alert: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("alert %s", id)
	}
	return nil
}

func (r *PostgresStore) UpsertRule(rule *db.PricingRule) error {
	if !rule.Condition.Valid() {
		return apperr.Validation("unknown rule condition %q", rule.Condition)
	}
	if rule.Multiplier <= 0 {
		return apperr.Validation("rule multiplier must be positive")
	}
	_, err := r.DB.Exec(`
		INSERT INTO pricing_rules (id, slot_id, condition, threshold, multiplier, active)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET
			condition = EXCLUDED.condition, threshold = EXCLUDED.threshold,
			multiplier = EXCLUDED.multiplier, active = EXCLUDED.active`,
		rule.ID, rule.SlotID, rule.Condition, rule.Threshold, rule.Multiplier, rule.Active)
	if err != nil {
		return fmt.Errorf("error upserting pricing rule: %w", err)
	}
	return nil
}

func (r *PostgresStore) GetRule(id string) (*db.PricingRule, error) {
	var rule db.PricingRule
	err := r.DB.QueryRow(`
		SELECT id, slot_id, condition, threshold, multiplier, active
		FROM pricing_rules WHERE id = $1`, id).
		Scan(&rule.ID, &rule.SlotID, &rule.Condition, &rule.Threshold, &rule.Multiplier, &rule.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("pricing rule %s", id)
		}
		return nil, fmt.Errorf("error querying pricing rule: %w", err)
	}
	return &rule, nil
}

func (r *PostgresStore) ListRulesBySlot(slotID string) ([]*db.PricingRule, error) {
	rows, err := r.DB.Query(`
		SELECT id, slot_id, condition, threshold, multiplier, active
		FROM pricing_rules WHERE slot_id = $1 ORDER BY id`, slotID)
	if err != nil {
		return nil, fmt.Errorf("error listing pricing rules: %w", err)
	}
	defer rows.Close()

	var out []*db.PricingRule
	for rows.Next() {
		var rule db.PricingRule
		if err := rows.Scan(&rule.ID, &rule.SlotID, &rule.Condition, &rule.Threshold, &rule.Multiplier, &rule.Active); err != nil {
			return nil, fmt.Errorf("error scanning pricing rule: %w", err)
		}
		out = append(out, &rule)
	}
	return out, rows.Err()
}

func (r *PostgresStore) DeleteRule(id string) error {
	result, err := r.DB.Exec(`DELETE FROM pricing_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting pricing rule: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("pricing rule %s", id)
	}
	return nil
}

func (r *PostgresStore) AppendOccupancy(ev db.OccupancyEvent) error {
	_, err := r.DB.Exec(`
		INSERT INTO occupancy_events (slot_id, ts, occupied, total, bookings)
		VALUES ($1,$2,$3,$4,$5)`,
		ev.SlotID, ev.Time, ev.Occupied, ev.Total, ev.Bookings)
	if err != nil {
		return fmt.Errorf("error appending occupancy event: %w", err)
	}
	return nil
}

func (r *PostgresStore) HistorySince(slotID string, since time.Time) ([]db.OccupancyEvent, error) {
	return r.queryHistory(`SELECT slot_id, ts, occupied, total, bookings FROM occupancy_events
		WHERE slot_id = $1 AND ts >= $2 ORDER BY ts`, slotID, since)
}

func (r *PostgresStore) AllHistorySince(since time.Time) ([]db.OccupancyEvent, error) {
	return r.queryHistory(`SELECT slot_id, ts, occupied, total, bookings FROM occupancy_events
		WHERE ts >= $1 ORDER BY ts`, since)
}

func (r *PostgresStore) queryHistory(query string, args ...any) ([]db.OccupancyEvent, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying occupancy history: %w", err)
	}
	defer rows.Close()

	var out []db.OccupancyEvent
	for rows.Next() {
		var ev db.OccupancyEvent
		if err := rows.Scan(&ev.SlotID, &ev.Time, &ev.Occupied, &ev.Total, &ev.Bookings); err != nil {
			return nil, fmt.Errorf("error scanning occupancy event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *PostgresStore) AddDemandEvent(ev db.DemandEvent) error {
	if !ev.End.After(ev.Start) {
		return apperr.Validation("demand event end must be after start")
	}
	_, err := r.DB.Exec(`
		INSERT INTO demand_events (id, slot_id, name, start_time, end_time)
		VALUES ($1,$2,$3,$4,$5)`,
		ev.ID, ev.SlotID, ev.Name, ev.Start, ev.End)
	if err != nil {
		return fmt.Errorf("error inserting demand event: %w", err)
	}
	return nil
}

func (r *PostgresStore) ActiveDemandEvents(slotID string, at time.Time) ([]db.DemandEvent, error) {
	rows, err := r.DB.Query(`
		SELECT id, slot_id, name, start_time, end_time FROM demand_events
		WHERE (slot_id = '' OR slot_id = $1) AND start_time <= $2 AND end_time > $2`,
		slotID, at)
	if err != nil {
		return nil, fmt.Errorf("error querying demand events: %w", err)
	}
	defer rows.Close()

	var out []db.DemandEvent
	for rows.Next() {
		var ev db.DemandEvent
		if err := rows.Scan(&ev.ID, &ev.SlotID, &ev.Name, &ev.Start, &ev.End); err != nil {
			return nil, fmt.Errorf("error scanning demand event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *PostgresStore) CreateOperator(email, passwordHash string) error {
	_, err := r.DB.Exec(`INSERT INTO operators (id, email, password_hash, created_at) VALUES ($1,$1,$2,NOW())`, email, passwordHash)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return apperr.Conflict("operator %s already exists", email)
		}
		return fmt.Errorf("error inserting operator: %w", err)
	}
	return nil
}

func (r *PostgresStore) GetOperatorByEmail(email string) (*db.Operator, error) {
	var op db.Operator
	err := r.DB.QueryRow(`SELECT id, email, password_hash, created_at FROM operators WHERE email = $1`, email).
		Scan(&op.ID, &op.Email, &op.PasswordHash, &op.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("operator %s", email)
		}
		return nil, fmt.Errorf("error querying operator: %w", err)
	}
	return &op, nil
}

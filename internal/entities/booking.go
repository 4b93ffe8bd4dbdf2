package entities

import (
	"time"

	"parkpulse/internal/db"
)

type BookingRequest struct {
	SlotID        string    `json:"slot_id"`
	UserID        string    `json:"user_id"`
	UserName      string    `json:"user_name"`
	UserEmail     string    `json:"user_email"`
	UserPhone     string    `json:"user_phone"`
	PaymentMethod string    `json:"payment_method"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
}

type BookingResponse struct {
	ID            string           `json:"id"`
	Code          string           `json:"code"`
	SlotID        string           `json:"slot_id"`
	UserID        string           `json:"user_id"`
	Status        db.BookingStatus `json:"status"`
	StartTime     time.Time        `json:"start_time"`
	EndTime       time.Time        `json:"end_time"`
	ActualEndTime *time.Time       `json:"actual_end_time,omitempty"`
	TotalPrice    float64          `json:"total_price"`
	PaymentStatus db.PaymentStatus `json:"payment_status"`
	PaymentMethod string           `json:"payment_method"`
	QRCode        string           `json:"qr_code,omitempty"`
	RefundAmount  float64          `json:"refund_amount,omitempty"`
	CheckoutURL   string           `json:"checkout_url,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func BookingToResponse(b *db.Booking) *BookingResponse {
	return &BookingResponse{
		ID:            b.ID,
		Code:          b.Code,
		SlotID:        b.SlotID,
		UserID:        b.UserID,
		Status:        b.Status,
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		ActualEndTime: b.ActualEndTime,
		TotalPrice:    b.TotalPrice,
		PaymentStatus: b.PaymentStatus,
		PaymentMethod: b.PaymentMethod,
		QRCode:        b.QRCode,
		RefundAmount:  b.RefundAmount,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

// BookingEmailData feeds the confirmation email template.
type BookingEmailData struct {
	UserName           string
	BookingCode        string
	SlotAddress        string
	StartTimeFormatted string
	EndTimeFormatted   string
	TotalPrice         float64
	Status             string
	CurrentYear        int
}

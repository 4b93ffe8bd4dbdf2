package service

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"parkpulse/internal/db"
	"parkpulse/internal/entities"
	"parkpulse/internal/logger"
)

// SenderService composes and dispatches user notifications. Delivery is
// fire-and-forget: a failed email or SMS never fails the booking flow.
type SenderService struct {
	log zerolog.Logger
}

func NewSenderService() *SenderService {
	return &SenderService{log: logger.New("sender")}
}

func (s *SenderService) SendBookingEmail(b *db.Booking, status string) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.FixedZone("IST", 5*3600+1800)
	}

	data := entities.BookingEmailData{
		UserName:           b.UserName,
		BookingCode:        b.Code,
		SlotAddress:        b.SlotID,
		StartTimeFormatted: b.StartTime.In(loc).Format("02 Jan 2006 15:04 MST"),
		EndTimeFormatted:   b.EndTime.In(loc).Format("02 Jan 2006 15:04 MST"),
		TotalPrice:         b.TotalPrice,
		Status:             status,
		CurrentYear:        time.Now().In(loc).Year(),
	}

	subject := fmt.Sprintf("Your ParkPulse booking is %s - Code: %s", status, data.BookingCode)
	plainBody := fmt.Sprintf(
		"Hello %s,\n\nYour parking booking is %s.\n\n"+
			"Booking Details:\n"+
			"Booking Code: %s\n"+
			"Check-in: %s\n"+
			"Check-out: %s\n"+
			"Total: INR %.2f\n\n"+
			"Show the QR code from the app at the gate.\n\n"+
			"Thank you for choosing ParkPulse.",
		data.UserName, status, data.BookingCode,
		data.StartTimeFormatted, data.EndTimeFormatted, data.TotalPrice,
	)

	htmlBody := plainBody
	tmplPath := filepath.Join("internal", "templates", "booking_email.html")
	if tmpl, err := template.ParseFiles(tmplPath); err == nil {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err == nil {
			htmlBody = buf.String()
		} else {
			s.log.Warn().Err(err).Str("code", data.BookingCode).Msg("email template execution failed, sending plain text")
		}
	}

	go func() {
		if err := SendEmailWithSendGrid(b.UserEmail, data.UserName, subject, plainBody, htmlBody); err != nil {
			s.log.Warn().Err(err).Str("code", data.BookingCode).Msg("booking email delivery failed")
		}
	}()
}

func (s *SenderService) SendBookingSMS(b *db.Booking, status string) {
	if b.UserPhone == "" {
		return
	}
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.FixedZone("IST", 5*3600+1800)
	}

	msg := fmt.Sprintf("ParkPulse: your booking %s is %s. Check-in: %s. Details in your email.",
		b.Code, status, b.StartTime.In(loc).Format("02/01 15:04"))

	go func() {
		if err := SendSMSWithTwilio(b.UserPhone, msg); err != nil {
			s.log.Warn().Err(err).Str("code", b.Code).Msg("booking SMS delivery failed")
		}
	}()
}

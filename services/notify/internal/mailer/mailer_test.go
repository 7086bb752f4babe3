package mailer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/venue-bookings/pkg/config"
	"github.com/diagnosis/venue-bookings/pkg/events"
)

func TestNewPicksDevMailer(t *testing.T) {
	assert.IsType(t, &DevMailer{}, New(config.EmailConfig{DevMode: true, MailerSendKey: "key"}))
	assert.IsType(t, &DevMailer{}, New(config.EmailConfig{}))
	assert.IsType(t, &MailerSend{}, New(config.EmailConfig{MailerSendKey: "key", FromEmail: "a@b.c"}))
	assert.IsType(t, &SMTPMailer{}, New(config.EmailConfig{SMTPHost: "mailpit", SMTPPort: 1025}))
}

func TestSMTPMessage(t *testing.T) {
	m := NewSMTPMailer("mailpit", 1025, "noreply@venues.local", "", "")
	assert.Equal(t, "mailpit:1025", m.addr)
	assert.Nil(t, m.auth)

	msg := string(m.message("abc", Email{ToEmail: " alice@example.com ", Subject: "Booked", Text: "line one\nline two"}))
	assert.Contains(t, msg, "To: alice@example.com\r\n")
	assert.Contains(t, msg, "Message-ID: <abc@mailpit>\r\n")
	assert.Contains(t, msg, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
	assert.True(t, strings.HasSuffix(msg, "line one\r\nline two\r\n"))

	_, err := m.Send(context.Background(), Email{})
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestDevMailer(t *testing.T) {
	d := &DevMailer{}

	id, err := d.Send(context.Background(), Email{ToEmail: "alice@example.com", Subject: "hi"})
	require.NoError(t, err)
	assert.Contains(t, id, "dev-")

	_, err = d.Send(context.Background(), Email{ToEmail: "  "})
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestTemplates(t *testing.T) {
	starts := time.Date(2026, 3, 11, 18, 0, 0, 0, time.UTC)

	created := BookingConfirmation(events.BookingCreatedEvent{
		BookingID:    7,
		UserEmail:    "alice@example.com",
		VenueName:    "Rock & Roll Gym",
		SessionTitle: "Bouldering",
		StartsAt:     starts,
	})
	assert.Equal(t, "alice@example.com", created.ToEmail)
	assert.Equal(t, "Booked: Bouldering at Rock & Roll Gym", created.Subject)
	assert.Contains(t, created.Text, "Booking #7")
	assert.Empty(t, created.HTML)

	canceled := BookingCancellation(events.BookingCanceledEvent{
		BookingID:    7,
		UserEmail:    "alice@example.com",
		VenueName:    "Gym",
		SessionTitle: "Bouldering",
		StartsAt:     starts,
	})
	assert.Equal(t, "Cancelled: Bouldering at Gym", canceled.Subject)
	assert.Contains(t, canceled.Text, "was cancelled")
}

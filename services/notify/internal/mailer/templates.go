package mailer

import (
	"fmt"

	"github.com/diagnosis/venue-bookings/pkg/events"
)

const startsAtLayout = "Mon Jan 2, 2006 15:04 MST"

func BookingConfirmation(e events.BookingCreatedEvent) Email {
	when := e.StartsAt.Format(startsAtLayout)
	return Email{
		ToEmail: e.UserEmail,
		Subject: fmt.Sprintf("Booked: %s at %s", e.SessionTitle, e.VenueName),
		Text:    fmt.Sprintf("You're booked for %s at %s on %s.\nBooking #%d",
			e.SessionTitle, e.VenueName, when, e.BookingID),
	}
}

func BookingCancellation(e events.BookingCanceledEvent) Email {
	when := e.StartsAt.Format(startsAtLayout)
	return Email{
		ToEmail: e.UserEmail,
		Subject: fmt.Sprintf("Cancelled: %s at %s", e.SessionTitle, e.VenueName),
		Text:    fmt.Sprintf("Your booking for %s at %s on %s was cancelled.\nBooking #%d",
			e.SessionTitle, e.VenueName, when, e.BookingID),
	}
}

package domain

import "time"

type BookingStatus string

const (
	BookingBooked    BookingStatus = "BOOKED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingAttended  BookingStatus = "ATTENDED"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case BookingBooked, BookingCancelled, BookingAttended:
		return BookingStatus(s), true
	default:
		return "", false
	}
}

// IsTerminal reports whether no further transition is possible.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingCancelled || s == BookingAttended
}

type Booking struct {
	ID          int64         `json:"id"`
	SessionID   int64         `json:"session_id"`
	VenueID     int64         `json:"venue_id"`
	UserID      int64         `json:"user_id"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	CancelledAt *time.Time    `json:"cancelled_at,omitempty"`
}

// IsOwner checks if the given user ID owns this booking
func (b *Booking) IsOwner(userID int64) bool {
	return b.UserID == userID
}

type SessionSummary struct {
	ID       int64      `json:"id"`
	Title    string     `json:"title"`
	StartsAt time.Time  `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`
}

type VenueSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// BookingDetails is a booking joined with the session and venue fields
// clients need to render it.
type BookingDetails struct {
	Booking
	Session SessionSummary `json:"session"`
	Venue   VenueSummary   `json:"venue"`
}

type NewBooking struct {
	VenueID   int64
	SessionID int64
	UserID    int64
}

type BookingFilter struct {
	Status *BookingStatus
	Limit  int
	Offset int
}

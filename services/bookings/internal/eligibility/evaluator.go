// Package eligibility holds the pure booking and cancellation rules.
// Nothing here performs I/O; callers fetch state and pass it in.
package eligibility

import (
	"time"

	"github.com/diagnosis/venue-bookings/services/bookings/internal/domain"
)

// Decision is the outcome of an evaluation. Reason is empty when Allowed.
type Decision struct {
	Allowed bool
	Reason  domain.Reason
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason domain.Reason) Decision { return Decision{Reason: reason} }

// Err returns nil for an allowed decision and the matching *domain.BookingError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return domain.Denial(d.Reason)
}

type Input struct {
	Session            *domain.Session
	RequiresMembership bool
	Membership         *domain.Membership // nil when the user has none
	Now                time.Time
}

// Evaluate decides whether a user may book a session. Checks run in a fixed
// order and the first failure wins. ALREADY_BOOKED is never returned here;
// duplicates are detected when the booking is written.
func Evaluate(in Input) Decision {
	if in.Session.HasStarted(in.Now) {
		return deny(domain.ReasonSessionStarted)
	}
	if in.Session.IsFull() {
		return deny(domain.ReasonSessionFull)
	}
	if in.RequiresMembership && !in.Membership.IsActive() {
		return deny(domain.ReasonNotAMember)
	}
	return allow()
}

type CancelInput struct {
	Booking         *domain.Booking // nil when the booking does not exist
	VenueID         int64
	UserID          int64
	SessionStartsAt time.Time
	Now             time.Time
}

// EvaluateCancellation decides whether a booking may move from BOOKED to CANCELLED.
func EvaluateCancellation(in CancelInput) Decision {
	b := in.Booking
	switch {
	case b == nil:
		return deny(domain.ReasonNotFound)
	case b.VenueID != in.VenueID:
		return deny(domain.ReasonVenueMismatch)
	case !b.IsOwner(in.UserID):
		return deny(domain.ReasonForbidden)
	case b.Status == domain.BookingCancelled:
		return deny(domain.ReasonAlreadyCancelled)
	case b.Status == domain.BookingAttended:
		return deny(domain.ReasonAlreadyAttended)
	case !in.SessionStartsAt.After(in.Now):
		return deny(domain.ReasonSessionAlreadyStarted)
	}
	return allow()
}

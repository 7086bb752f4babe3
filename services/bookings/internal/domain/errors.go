package domain

import "errors"

// Reason is the machine-readable code returned to clients when a booking
// operation is refused.
type Reason string

const (
	ReasonSessionStarted Reason = "SESSION_STARTED"
	ReasonSessionFull    Reason = "SESSION_FULL"
	ReasonNotAMember     Reason = "NOT_A_MEMBER"
	ReasonAlreadyBooked  Reason = "ALREADY_BOOKED"

	ReasonNotFound              Reason = "NOT_FOUND"
	ReasonVenueMismatch         Reason = "VENUE_MISMATCH"
	ReasonForbidden             Reason = "FORBIDDEN"
	ReasonAlreadyCancelled      Reason = "ALREADY_CANCELLED"
	ReasonAlreadyAttended       Reason = "ALREADY_ATTENDED"
	ReasonSessionAlreadyStarted Reason = "SESSION_ALREADY_STARTED"
)

var reasonMessages = map[Reason]string{
	ReasonSessionStarted:        "Session has already started",
	ReasonSessionFull:           "Session is full",
	ReasonNotAMember:            "An active venue membership is required",
	ReasonAlreadyBooked:         "You have already booked this session",
	ReasonNotFound:              "Booking not found",
	ReasonVenueMismatch:         "Booking does not belong to this venue",
	ReasonForbidden:             "You can only cancel your own bookings",
	ReasonAlreadyCancelled:      "Booking is already cancelled",
	ReasonAlreadyAttended:       "Booking was already attended",
	ReasonSessionAlreadyStarted: "Cannot cancel a booking once the session has started",
}

// BookingError is a business-rule refusal. Two BookingErrors match under
// errors.Is when their reasons are equal.
type BookingError struct {
	Reason  Reason
	Message string
}

func (e *BookingError) Error() string {
	return string(e.Reason) + ": " + e.Message
}

func (e *BookingError) Is(target error) bool {
	t, ok := target.(*BookingError)
	return ok && t.Reason == e.Reason
}

func Denial(reason Reason) *BookingError {
	msg, ok := reasonMessages[reason]
	if !ok {
		msg = "Booking request denied"
	}
	return &BookingError{Reason: reason, Message: msg}
}

var (
	ErrSessionFull      = Denial(ReasonSessionFull)
	ErrSessionStarted   = Denial(ReasonSessionStarted)
	ErrNotAMember       = Denial(ReasonNotAMember)
	ErrDuplicateBooking = Denial(ReasonAlreadyBooked)
	ErrAlreadyCancelled = Denial(ReasonAlreadyCancelled)
)

var (
	ErrVenueNotFound      = errors.New("venue not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrPlanNotFound       = errors.New("plan not found")
	ErrMembershipExists   = errors.New("membership already exists")
	ErrForbidden          = errors.New("insufficient venue permissions")
	ErrOwnerImmutable     = errors.New("the OWNER role cannot be assigned or removed")
)

// ValidationError wraps malformed client input.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

func Invalid(err error) error {
	return &ValidationError{Err: err}
}

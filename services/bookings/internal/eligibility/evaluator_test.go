package eligibility

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/venue-bookings/services/bookings/internal/domain"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func intPtr(n int) *int { return &n }

func session(startsIn time.Duration, capacity *int, booked int) *domain.Session {
	return &domain.Session{ID: 1, VenueID: 7, StartsAt: now.Add(startsIn), Capacity: capacity, BookedCount: booked}
}

func activeMember() *domain.Membership {
	return &domain.Membership{VenueID: 7, UserID: 42, Role: domain.RoleMember, Status: domain.MembershipActive}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name  string
		in    Input
		allow bool
		want  domain.Reason
	}{
		{
			name:  "open session with room",
			in:    Input{Session: session(24*time.Hour, intPtr(10), 3), Now: now},
			allow: true,
		},
		{
			name:  "unlimited capacity never fills",
			in:    Input{Session: session(time.Hour, nil, 10000), Now: now},
			allow: true,
		},
		{
			name: "started exactly now",
			in:   Input{Session: session(0, intPtr(10), 0), Now: now},
			want: domain.ReasonSessionStarted,
		},
		{
			name: "started in the past",
			in:   Input{Session: session(-time.Minute, nil, 0), Now: now},
			want: domain.ReasonSessionStarted,
		},
		{
			name: "started wins over full",
			in:   Input{Session: session(-time.Hour, intPtr(1), 1), Now: now},
			want: domain.ReasonSessionStarted,
		},
		{
			name: "booked count equals capacity",
			in:   Input{Session: session(time.Hour, intPtr(5), 5), Now: now},
			want: domain.ReasonSessionFull,
		},
		{
			name: "booked count above capacity",
			in:   Input{Session: session(time.Hour, intPtr(5), 6), Now: now},
			want: domain.ReasonSessionFull,
		},
		{
			name: "full wins over membership",
			in:   Input{Session: session(time.Hour, intPtr(1), 1), RequiresMembership: true, Now: now},
			want: domain.ReasonSessionFull,
		},
		{
			name: "membership required and missing",
			in:   Input{Session: session(time.Hour, nil, 0), RequiresMembership: true, Now: now},
			want: domain.ReasonNotAMember,
		},
		{
			name: "membership required and pending",
			in: Input{
				Session:            session(time.Hour, nil, 0),
				RequiresMembership: true,
				Membership:         &domain.Membership{Status: domain.MembershipPending},
				Now:                now,
			},
			want: domain.ReasonNotAMember,
		},
		{
			name: "membership required and revoked",
			in: Input{
				Session:            session(time.Hour, nil, 0),
				RequiresMembership: true,
				Membership:         &domain.Membership{Status: domain.MembershipRevoked},
				Now:                now,
			},
			want: domain.ReasonNotAMember,
		},
		{
			name: "membership required and active",
			in: Input{
				Session:            session(time.Hour, intPtr(2), 1),
				RequiresMembership: true,
				Membership:         activeMember(),
				Now:                now,
			},
			allow: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.in)
			assert.Equal(t, tt.allow, got.Allowed)
			assert.Equal(t, tt.want, got.Reason)
		})
	}
}

func TestEvaluate_FullForEveryCapacity(t *testing.T) {
	for n := 1; n <= 50; n++ {
		got := Evaluate(Input{Session: session(time.Hour, intPtr(n), n), Now: now})
		require.False(t, got.Allowed, "capacity %d", n)
		require.Equal(t, domain.ReasonSessionFull, got.Reason)
	}
}

func TestEvaluate_StartedRegardlessOfCapacity(t *testing.T) {
	for _, capacity := range []*int{nil, intPtr(1), intPtr(100)} {
		for _, ago := range []time.Duration{0, time.Second, 48 * time.Hour} {
			got := Evaluate(Input{Session: session(-ago, capacity, 0), Now: now})
			require.Equal(t, domain.ReasonSessionStarted, got.Reason)
		}
	}
}

func TestDecisionErr(t *testing.T) {
	assert.NoError(t, allow().Err())

	err := deny(domain.ReasonSessionFull).Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSessionFull))

	var be *domain.BookingError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, domain.ReasonSessionFull, be.Reason)
}

func TestEvaluateCancellation(t *testing.T) {
	booked := func() *domain.Booking {
		return &domain.Booking{ID: 9, SessionID: 1, VenueID: 7, UserID: 42, Status: domain.BookingBooked}
	}
	withStatus := func(s domain.BookingStatus) *domain.Booking {
		b := booked()
		b.Status = s
		return b
	}
	future := now.Add(time.Hour)

	tests := []struct {
		name  string
		in    CancelInput
		allow bool
		want  domain.Reason
	}{
		{
			name:  "owner cancels before start",
			in:    CancelInput{Booking: booked(), VenueID: 7, UserID: 42, SessionStartsAt: future, Now: now},
			allow: true,
		},
		{
			name: "missing booking",
			in:   CancelInput{VenueID: 7, UserID: 42, SessionStartsAt: future, Now: now},
			want: domain.ReasonNotFound,
		},
		{
			name: "other venue",
			in:   CancelInput{Booking: booked(), VenueID: 8, UserID: 99, SessionStartsAt: now, Now: now},
			want: domain.ReasonVenueMismatch,
		},
		{
			name: "other user",
			in:   CancelInput{Booking: withStatus(domain.BookingCancelled), VenueID: 7, UserID: 99, SessionStartsAt: future, Now: now},
			want: domain.ReasonForbidden,
		},
		{
			name: "already cancelled",
			in:   CancelInput{Booking: withStatus(domain.BookingCancelled), VenueID: 7, UserID: 42, SessionStartsAt: now, Now: now},
			want: domain.ReasonAlreadyCancelled,
		},
		{
			name: "attended",
			in:   CancelInput{Booking: withStatus(domain.BookingAttended), VenueID: 7, UserID: 42, SessionStartsAt: now, Now: now},
			want: domain.ReasonAlreadyAttended,
		},
		{
			name: "session starts now",
			in:   CancelInput{Booking: booked(), VenueID: 7, UserID: 42, SessionStartsAt: now, Now: now},
			want: domain.ReasonSessionAlreadyStarted,
		},
		{
			name: "session started earlier",
			in:   CancelInput{Booking: booked(), VenueID: 7, UserID: 42, SessionStartsAt: now.Add(-time.Hour), Now: now},
			want: domain.ReasonSessionAlreadyStarted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateCancellation(tt.in)
			assert.Equal(t, tt.allow, got.Allowed)
			assert.Equal(t, tt.want, got.Reason)
		})
	}
}

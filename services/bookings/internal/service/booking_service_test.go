package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/venue-bookings/pkg/events"
	"github.com/diagnosis/venue-bookings/services/bookings/internal/domain"
	"github.com/diagnosis/venue-bookings/services/bookings/internal/policy"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

const (
	ownerID int64 = 1
	aliceID int64 = 10
	bobID   int64 = 11
)

var (
	owner = policy.Subject{UserID: ownerID, Email: "owner@example.com", PlatformRole: "user"}
	alice = policy.Subject{UserID: aliceID, Email: "alice@example.com", PlatformRole: "user"}
	bob   = policy.Subject{UserID: bobID, Email: "bob@example.com", PlatformRole: "user"}
)

type fixture struct {
	db        *memDB
	publisher *recordingPublisher
	bookings  *bookingService
	venues    *venueService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := func() time.Time { return testNow }
	db := newMemDB(clock)
	pub := &recordingPublisher{}
	authz := policy.NewAuthorizer(memMemberships{db})

	bs := NewBookingService(memVenues{db}, memSessions{db}, memMemberships{db}, memBookings{db}, authz, pub).(*bookingService)
	bs.now = clock
	vs := NewVenueService(memVenues{db}, memSessions{db}, memMemberships{db}, memPlans{db}, authz).(*venueService)
	vs.now = clock

	return &fixture{db: db, publisher: pub, bookings: bs, venues: vs}
}

func capacity(n int) *int { return &n }

func requireReason(t *testing.T, err error, want domain.Reason) {
	t.Helper()
	var be *domain.BookingError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, want, be.Reason)
}

func TestBookCancelRebookScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	venue := f.db.addVenue(ownerID, false)
	session := f.db.addSession(venue.ID, testNow.Add(24*time.Hour), capacity(1))

	first, err := f.bookings.Book(ctx, alice, venue.ID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingBooked, first.Status)
	assert.Equal(t, session.Title, first.Session.Title)
	assert.Equal(t, venue.Name, first.Venue.Name)

	_, err = f.bookings.Book(ctx, alice, venue.ID, session.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDuplicateBooking)
	requireReason(t, err, domain.ReasonAlreadyBooked)

	cancelled, err := f.bookings.Cancel(ctx, alice, venue.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	_, err = f.bookings.Cancel(ctx, alice, venue.ID, first.ID)
	requireReason(t, err, domain.ReasonAlreadyCancelled)

	second, err := f.bookings.Book(ctx, alice, venue.ID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingBooked, second.Status)
	assert.NotEqual(t, first.ID, second.ID)

	assert.Equal(t, []string{events.BookingCreated, events.BookingCanceled, events.BookingCreated}, f.publisher.subjects())
	created, ok := f.publisher.events[0].data.(events.BookingCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", created.UserEmail)
	assert.Equal(t, first.ID, created.BookingID)
}

func TestBookDenials(t *testing.T) {
	ctx := context.Background()

	t.Run("session full", func(t *testing.T) {
		f := newFixture(t)
		venue := f.db.addVenue(ownerID, false)
		session := f.db.addSession(venue.ID, testNow.Add(time.Hour), capacity(1))
		_, err := f.bookings.Book(ctx, bob, venue.ID, session.ID)
		require.NoError(t, err)

		_, err = f.bookings.Book(ctx, alice, venue.ID, session.ID)
		assert.ErrorIs(t, err, domain.ErrSessionFull)
	})

	t.Run("session started regardless of capacity", func(t *testing.T) {
		f := newFixture(t)
		venue := f.db.addVenue(ownerID, false)
		session := f.db.addSession(venue.ID, testNow, nil)

		_, err := f.bookings.Book(ctx, alice, venue.ID, session.ID)
		requireReason(t, err, domain.ReasonSessionStarted)
		assert.Empty(t, f.publisher.subjects())
	})

	t.Run("membership required", func(t *testing.T) {
		f := newFixture(t)
		venue := f.db.addVenue(ownerID, true)
		session := f.db.addSession(venue.ID, testNow.Add(time.Hour), nil)

		_, err := f.bookings.Book(ctx, alice, venue.ID, session.ID)
		requireReason(t, err, domain.ReasonNotAMember)

		f.db.addMember(venue.ID, aliceID, domain.RoleMember, domain.MembershipPending)
		_, err = f.bookings.Book(ctx, alice, venue.ID, session.ID)
		requireReason(t, err, domain.ReasonNotAMember)

		f.db.addMember(venue.ID, aliceID, domain.RoleMember, domain.MembershipActive)
		b, err := f.bookings.Book(ctx, alice, venue.ID, session.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingBooked, b.Status)
	})

	t.Run("unknown venue and session", func(t *testing.T) {
		f := newFixture(t)
		venue := f.db.addVenue(ownerID, false)
		other := f.db.addVenue(ownerID, false)
		session := f.db.addSession(other.ID, testNow.Add(time.Hour), nil)

		_, err := f.bookings.Book(ctx, alice, 999, session.ID)
		assert.ErrorIs(t, err, domain.ErrVenueNotFound)

		_, err = f.bookings.Book(ctx, alice, venue.ID, session.ID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}

func TestBookFillsUpToCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	venue := f.db.addVenue(ownerID, false)
	session := f.db.addSession(venue.ID, testNow.Add(time.Hour), capacity(3))

	for uid := int64(100); uid < 103; uid++ {
		_, err := f.bookings.Book(ctx, policy.Subject{UserID: uid}, venue.ID, session.ID)
		require.NoError(t, err)
	}
	_, err := f.bookings.Book(ctx, policy.Subject{UserID: 200}, venue.ID, session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionFull)
}

type failingMemberships struct{ memMemberships }

func (failingMemberships) Get(context.Context, int64, int64) (*domain.Membership, error) {
	return nil, errors.New("connection reset")
}

func TestBookLookupFailure(t *testing.T) {
	f := newFixture(t)
	venue := f.db.addVenue(ownerID, false)
	session := f.db.addSession(venue.ID, testNow.Add(time.Hour), nil)
	f.bookings.memberships = failingMemberships{memMemberships{f.db}}

	_, err := f.bookings.Book(context.Background(), alice, venue.ID, session.ID)
	require.Error(t, err)
	var be *domain.BookingError
	assert.False(t, errors.As(err, &be))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestBookPublishFailureIsNotSurfaced(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("nats down")
	venue := f.db.addVenue(ownerID, false)
	session := f.db.addSession(venue.ID, testNow.Add(time.Hour), nil)

	b, err := f.bookings.Book(context.Background(), alice, venue.ID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingBooked, b.Status)
}

func TestCancelDenials(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	venue := f.db.addVenue(ownerID, false)
	other := f.db.addVenue(ownerID, false)
	session := f.db.addSession(venue.ID, testNow.Add(time.Hour), nil)

	booking, err := f.bookings.Book(ctx, alice, venue.ID, session.ID)
	require.NoError(t, err)

	_, err = f.bookings.Cancel(ctx, alice, venue.ID, 999)
	requireReason(t, err, domain.ReasonNotFound)

	_, err = f.bookings.Cancel(ctx, alice, other.ID, booking.ID)
	requireReason(t, err, domain.ReasonVenueMismatch)

	_, err = f.bookings.Cancel(ctx, bob, venue.ID, booking.ID)
	requireReason(t, err, domain.ReasonForbidden)
	assert.Equal(t, domain.BookingBooked, f.db.booking(booking.ID).Status)

	// Venue owners cannot cancel on a member's behalf either.
	_, err = f.bookings.Cancel(ctx, owner, venue.ID, booking.ID)
	requireReason(t, err, domain.ReasonForbidden)

	f.bookings.now = func() time.Time { return testNow.Add(2 * time.Hour) }
	_, err = f.bookings.Cancel(ctx, alice, venue.ID, booking.ID)
	requireReason(t, err, domain.ReasonSessionAlreadyStarted)
	assert.Equal(t, domain.BookingBooked, f.db.booking(booking.ID).Status)
}

func TestCancelAttended(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	venue := f.db.addVenue(ownerID, false)
	session := f.db.addSession(venue.ID, testNow.Add(time.Hour), nil)
	booking, err := f.bookings.Book(ctx, alice, venue.ID, session.ID)
	require.NoError(t, err)

	f.db.mu.Lock()
	f.db.bookings[booking.ID].Status = domain.BookingAttended
	f.db.mu.Unlock()

	_, err = f.bookings.Cancel(ctx, alice, venue.ID, booking.ID)
	requireReason(t, err, domain.ReasonAlreadyAttended)
}

// racingBookings cancels the row behind the service's back right before its
// own conditional update runs.
type racingBookings struct{ memBookings }

func (r racingBookings) Cancel(ctx context.Context, id int64) (*domain.BookingDetails, error) {
	if _, err := r.memBookings.Cancel(ctx, id); err != nil {
		return nil, err
	}
	return r.memBookings.Cancel(ctx, id)
}

func TestCancelLosesRace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	venue := f.db.addVenue(ownerID, false)
	session := f.db.addSession(venue.ID, testNow.Add(time.Hour), nil)
	booking, err := f.bookings.Book(ctx, alice, venue.ID, session.ID)
	require.NoError(t, err)

	f.bookings.bookings = racingBookings{memBookings{f.db}}
	_, err = f.bookings.Cancel(ctx, alice, venue.ID, booking.ID)
	requireReason(t, err, domain.ReasonAlreadyCancelled)
}

func TestRoster(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	venue := f.db.addVenue(ownerID, false)
	session := f.db.addSession(venue.ID, testNow.Add(time.Hour), nil)
	f.db.addMember(venue.ID, aliceID, domain.RoleMember, domain.MembershipActive)

	_, err := f.bookings.Book(ctx, alice, venue.ID, session.ID)
	require.NoError(t, err)
	_, err = f.bookings.Book(ctx, bob, venue.ID, session.ID)
	require.NoError(t, err)

	_, err = f.bookings.Roster(ctx, alice, venue.ID, session.ID, domain.BookingFilter{})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	roster, err := f.bookings.Roster(ctx, owner, venue.ID, session.ID, domain.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, roster, 2)

	_, err = f.bookings.Roster(ctx, owner, venue.ID, 999, domain.BookingFilter{})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestListMine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	venue := f.db.addVenue(ownerID, false)
	s1 := f.db.addSession(venue.ID, testNow.Add(time.Hour), nil)
	s2 := f.db.addSession(venue.ID, testNow.Add(2*time.Hour), nil)

	b1, err := f.bookings.Book(ctx, alice, venue.ID, s1.ID)
	require.NoError(t, err)
	_, err = f.bookings.Book(ctx, alice, venue.ID, s2.ID)
	require.NoError(t, err)
	_, err = f.bookings.Book(ctx, bob, venue.ID, s2.ID)
	require.NoError(t, err)
	_, err = f.bookings.Cancel(ctx, alice, venue.ID, b1.ID)
	require.NoError(t, err)

	mine, err := f.bookings.ListMine(ctx, aliceID, domain.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	booked := domain.BookingBooked
	live, err := f.bookings.ListMine(ctx, aliceID, domain.BookingFilter{Status: &booked})
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, s2.ID, live[0].SessionID)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/venue-bookings/pkg/events"
	"github.com/diagnosis/venue-bookings/pkg/logger"
	"github.com/diagnosis/venue-bookings/pkg/metrics"
	"github.com/diagnosis/venue-bookings/services/bookings/internal/domain"
	"github.com/diagnosis/venue-bookings/services/bookings/internal/eligibility"
	"github.com/diagnosis/venue-bookings/services/bookings/internal/policy"
	"github.com/diagnosis/venue-bookings/services/bookings/internal/repository"
)

type BookingService interface {
	Book(ctx context.Context, sub policy.Subject, venueID, sessionID int64) (*domain.BookingDetails, error)
	Cancel(ctx context.Context, sub policy.Subject, venueID, bookingID int64) (*domain.BookingDetails, error)
	ListMine(ctx context.Context, userID int64, f domain.BookingFilter) ([]domain.BookingDetails, error)
	Roster(ctx context.Context, sub policy.Subject, venueID, sessionID int64, f domain.BookingFilter) ([]domain.BookingDetails, error)
}

type bookingService struct {
	venues      repository.VenueRepository
	sessions    repository.SessionRepository
	memberships repository.MembershipRepository
	bookings    repository.BookingRepository
	authz       *policy.Authorizer
	publisher   events.Publisher
	now         func() time.Time
}

func NewBookingService(
	venues repository.VenueRepository,
	sessions repository.SessionRepository,
	memberships repository.MembershipRepository,
	bookings repository.BookingRepository,
	authz *policy.Authorizer,
	publisher events.Publisher,
) BookingService {
	return &bookingService{
		venues:      venues,
		sessions:    sessions,
		memberships: memberships,
		bookings:    bookings,
		authz:       authz,
		publisher:   publisher,
		now:         time.Now,
	}
}

func (s *bookingService) Book(ctx context.Context, sub policy.Subject, venueID, sessionID int64) (*domain.BookingDetails, error) {
	var (
		venue      *domain.Venue
		session    *domain.Session
		membership *domain.Membership
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		venue, err = s.venues.GetByID(gctx, venueID)
		return err
	})
	g.Go(func() error {
		var err error
		// The caller's own live booking does not count against capacity here;
		// if one exists the write reports it as a duplicate.
		session, err = s.sessions.GetWithCount(gctx, venueID, sessionID, sub.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		membership, err = s.memberships.Get(gctx, venueID, sub.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load booking state: %w", err)
	}
	if venue == nil {
		return nil, domain.ErrVenueNotFound
	}
	if session == nil {
		return nil, domain.ErrSessionNotFound
	}

	decision := eligibility.Evaluate(eligibility.Input{
		Session:            session,
		RequiresMembership: venue.RequiresMembership,
		Membership:         membership,
		Now:                s.now(),
	})
	if !decision.Allowed {
		s.denied(ctx, decision.Reason, sessionID)
		return nil, decision.Err()
	}

	booking, err := s.bookings.Create(ctx, domain.NewBooking{VenueID: venueID, SessionID: sessionID, UserID: sub.UserID})
	if err != nil {
		var be *domain.BookingError
		if errors.As(err, &be) {
			s.denied(ctx, be.Reason, sessionID)
			return nil, err
		}
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	metrics.IncBookingCreated()
	logger.InfoContext(ctx, "booking created", "booking_id", booking.ID, "session_id", sessionID)

	event := events.BookingCreatedEvent{
		BookingID:    booking.ID,
		SessionID:    booking.SessionID,
		VenueID:      booking.VenueID,
		UserID:       booking.UserID,
		UserEmail:    sub.Email,
		VenueName:    booking.Venue.Name,
		SessionTitle: booking.Session.Title,
		StartsAt:     booking.Session.StartsAt,
		CreatedAt:    booking.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, events.BookingCreated, event); err != nil {
		logger.ErrorContext(ctx, "failed to publish booking created event", "error", err, "booking_id", booking.ID)
	}

	return booking, nil
}

func (s *bookingService) denied(ctx context.Context, reason domain.Reason, sessionID int64) {
	metrics.IncBookingDenied(string(reason))
	logger.InfoContext(ctx, "booking denied", "reason", reason, "session_id", sessionID)
}

func (s *bookingService) Cancel(ctx context.Context, sub policy.Subject, venueID, bookingID int64) (*domain.BookingDetails, error) {
	if err := s.checkCancellation(ctx, sub, venueID, bookingID); err != nil {
		return nil, err
	}

	cancelled, err := s.bookings.Cancel(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	if cancelled == nil {
		// The row left BOOKED between the check and the update.
		if err := s.checkCancellation(ctx, sub, venueID, bookingID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("cancel booking %d: state changed concurrently", bookingID)
	}

	metrics.IncBookingCanceled()
	logger.InfoContext(ctx, "booking canceled", "booking_id", bookingID)

	event := events.BookingCanceledEvent{
		BookingID:    cancelled.ID,
		SessionID:    cancelled.SessionID,
		VenueID:      cancelled.VenueID,
		UserID:       cancelled.UserID,
		UserEmail:    sub.Email,
		VenueName:    cancelled.Venue.Name,
		SessionTitle: cancelled.Session.Title,
		StartsAt:     cancelled.Session.StartsAt,
		CanceledAt:   s.now(),
	}
	if cancelled.CancelledAt != nil {
		event.CanceledAt = *cancelled.CancelledAt
	}
	if err := s.publisher.Publish(ctx, events.BookingCanceled, event); err != nil {
		logger.ErrorContext(ctx, "failed to publish booking canceled event", "error", err, "booking_id", bookingID)
	}

	return cancelled, nil
}

func (s *bookingService) checkCancellation(ctx context.Context, sub policy.Subject, venueID, bookingID int64) error {
	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("load booking: %w", err)
	}

	in := eligibility.CancelInput{VenueID: venueID, UserID: sub.UserID, Now: s.now()}
	if current != nil {
		in.Booking = &current.Booking
		in.SessionStartsAt = current.Session.StartsAt
	}
	return eligibility.EvaluateCancellation(in).Err()
}

func (s *bookingService) ListMine(ctx context.Context, userID int64, f domain.BookingFilter) ([]domain.BookingDetails, error) {
	return s.bookings.ListByUser(ctx, userID, f)
}

func (s *bookingService) Roster(ctx context.Context, sub policy.Subject, venueID, sessionID int64, f domain.BookingFilter) ([]domain.BookingDetails, error) {
	if err := s.authz.Require(ctx, sub, venueID, policy.ViewRoster); err != nil {
		return nil, err
	}
	session, err := s.sessions.GetWithCount(ctx, venueID, sessionID, 0)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrSessionNotFound
	}
	return s.bookings.ListBySession(ctx, sessionID, f)
}

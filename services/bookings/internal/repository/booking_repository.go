package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/venue-bookings/services/bookings/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	// Create writes a BOOKED row if the session still has room. It returns
	// domain.ErrDuplicateBooking when the user already holds a live booking
	// and domain.ErrSessionFull when the last seat is gone.
	Create(ctx context.Context, nb domain.NewBooking) (*domain.BookingDetails, error)
	GetByID(ctx context.Context, id int64) (*domain.BookingDetails, error)
	// Cancel moves a BOOKED row to CANCELLED. Returns nil, nil when the row
	// was not in BOOKED state.
	Cancel(ctx context.Context, id int64) (*domain.BookingDetails, error)
	ListByUser(ctx context.Context, userID int64, f domain.BookingFilter) ([]domain.BookingDetails, error)
	ListBySession(ctx context.Context, sessionID int64, f domain.BookingFilter) ([]domain.BookingDetails, error)
}

type bookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &bookingRepository{pool: pool}
}

const bookingDetailsSelect = `SELECT
	b.id, b.session_id, b.venue_id, b.user_id, b.status, b.created_at, b.updated_at, b.cancelled_at,
	s.title, s.starts_at, s.ends_at, v.name
FROM bookings b
JOIN sessions s ON s.id = b.session_id
JOIN venues v ON v.id = b.venue_id`

func scanBookingDetails(row pgx.Row) (*domain.BookingDetails, error) {
	var d domain.BookingDetails
	err := row.Scan(
		&d.ID, &d.SessionID, &d.VenueID, &d.UserID, &d.Status, &d.CreatedAt, &d.UpdatedAt, &d.CancelledAt,
		&d.Session.Title, &d.Session.StartsAt, &d.Session.EndsAt, &d.Venue.Name,
	)
	if err != nil {
		return nil, err
	}
	d.Session.ID = d.SessionID
	d.Venue.ID = d.VenueID
	return &d, nil
}

func (r *bookingRepository) Create(ctx context.Context, nb domain.NewBooking) (*domain.BookingDetails, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serializes writers per session so the count below cannot go stale.
	var capacity *int
	err = tx.QueryRow(ctx,
		`SELECT capacity FROM sessions WHERE id=$1 AND venue_id=$2 FOR UPDATE`,
		nb.SessionID, nb.VenueID,
	).Scan(&capacity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO bookings (session_id, venue_id, user_id, status) VALUES ($1,$2,$3,'BOOKED') RETURNING id`,
		nb.SessionID, nb.VenueID, nb.UserID,
	).Scan(&id)
	if isUniqueViolation(err, liveBookingConstraint) {
		return nil, domain.ErrDuplicateBooking
	}
	if err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}

	if capacity != nil {
		var booked int
		err = tx.QueryRow(ctx,
			`SELECT count(*) FROM bookings WHERE session_id=$1 AND status='BOOKED'`,
			nb.SessionID,
		).Scan(&booked)
		if err != nil {
			return nil, fmt.Errorf("count bookings: %w", err)
		}
		if booked > *capacity {
			return nil, domain.ErrSessionFull
		}
	}

	d, err := scanBookingDetails(tx.QueryRow(ctx, bookingDetailsSelect+` WHERE b.id=$1`, id))
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return d, nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*domain.BookingDetails, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	d, err := scanBookingDetails(r.pool.QueryRow(ctx, bookingDetailsSelect+` WHERE b.id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

func (r *bookingRepository) Cancel(ctx context.Context, id int64) (*domain.BookingDetails, error) {
	const q = `WITH b AS (
		UPDATE bookings SET status='CANCELLED', cancelled_at=now(), updated_at=now()
		WHERE id=$1 AND status='BOOKED'
		RETURNING id, session_id, venue_id, user_id, status, created_at, updated_at, cancelled_at
	)
	SELECT b.id, b.session_id, b.venue_id, b.user_id, b.status, b.created_at, b.updated_at, b.cancelled_at,
		s.title, s.starts_at, s.ends_at, v.name
	FROM b
	JOIN sessions s ON s.id = b.session_id
	JOIN venues v ON v.id = b.venue_id`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	d, err := scanBookingDetails(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

func (r *bookingRepository) ListByUser(ctx context.Context, userID int64, f domain.BookingFilter) ([]domain.BookingDetails, error) {
	return r.list(ctx, `b.user_id=$1`, userID, f, `s.starts_at DESC, b.id DESC`)
}

func (r *bookingRepository) ListBySession(ctx context.Context, sessionID int64, f domain.BookingFilter) ([]domain.BookingDetails, error) {
	return r.list(ctx, `b.session_id=$1`, sessionID, f, `b.created_at, b.id`)
}

func (r *bookingRepository) list(ctx context.Context, where string, id int64, f domain.BookingFilter, order string) ([]domain.BookingDetails, error) {
	limit, offset := clampPage(f.Limit, f.Offset)

	q := bookingDetailsSelect + ` WHERE ` + where
	args := []any{id}
	if f.Status != nil {
		q += ` AND b.status=$2 ORDER BY ` + order + ` LIMIT $3 OFFSET $4`
		args = append(args, *f.Status, limit, offset)
	} else {
		q += ` ORDER BY ` + order + ` LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.BookingDetails
	for rows.Next() {
		d, err := scanBookingDetails(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *d)
	}
	return bookings, rows.Err()
}

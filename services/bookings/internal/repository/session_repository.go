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

type SessionRepository interface {
	Create(ctx context.Context, venueID int64, req *domain.CreateSessionRequest) (*domain.Session, error)
	// GetWithCount loads a session of the venue with the number of BOOKED rows.
	// Rows owned by excludeUserID are left out of the count; pass 0 to count all.
	GetWithCount(ctx context.Context, venueID, sessionID, excludeUserID int64) (*domain.Session, error)
	ListUpcoming(ctx context.Context, venueID int64, from time.Time, limit, offset int) ([]domain.Session, error)
}

type sessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepository{pool: pool}
}

const sessionCols = `s.id, s.venue_id, s.title, s.starts_at, s.ends_at, s.capacity, s.created_at`

const bookedCountExpr = `(SELECT count(*) FROM bookings b
	WHERE b.session_id = s.id AND b.status = 'BOOKED' AND b.user_id <> %s)`

// bookedCount counts live seats of s.id held by anyone but the user in arg.
func bookedCount(arg string) string {
	return fmt.Sprintf(bookedCountExpr, arg)
}

func scanSession(row pgx.Row, withCount bool) (*domain.Session, error) {
	var s domain.Session
	dest := []any{&s.ID, &s.VenueID, &s.Title, &s.StartsAt, &s.EndsAt, &s.Capacity, &s.CreatedAt}
	if withCount {
		dest = append(dest, &s.BookedCount)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepository) Create(ctx context.Context, venueID int64, req *domain.CreateSessionRequest) (*domain.Session, error) {
	const q = `INSERT INTO sessions AS s (venue_id, title, starts_at, ends_at, capacity)
	VALUES ($1,$2,$3,$4,$5) RETURNING ` + sessionCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanSession(r.pool.QueryRow(ctx, q, venueID, req.Title, req.StartsAt, req.EndsAt, req.Capacity), false)
}

func (r *sessionRepository) GetWithCount(ctx context.Context, venueID, sessionID, excludeUserID int64) (*domain.Session, error) {
	q := `SELECT ` + sessionCols + `, ` + bookedCount("$3") + `
	FROM sessions s WHERE s.venue_id=$1 AND s.id=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	s, err := scanSession(r.pool.QueryRow(ctx, q, venueID, sessionID, excludeUserID), true)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *sessionRepository) ListUpcoming(ctx context.Context, venueID int64, from time.Time, limit, offset int) ([]domain.Session, error) {
	limit, offset = clampPage(limit, offset)
	q := `SELECT ` + sessionCols + `, ` + bookedCount("0") + `
	FROM sessions s WHERE s.venue_id=$1 AND s.starts_at > $2
	ORDER BY s.starts_at, s.id LIMIT $3 OFFSET $4`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, venueID, from, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		s, err := scanSession(rows, true)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

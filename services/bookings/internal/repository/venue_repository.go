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

type VenueRepository interface {
	Create(ctx context.Context, req *domain.CreateVenueRequest, ownerID int64) (*domain.Venue, error)
	GetByID(ctx context.Context, id int64) (*domain.Venue, error)
	List(ctx context.Context, limit, offset int) ([]domain.Venue, error)
}

type venueRepository struct {
	pool *pgxpool.Pool
}

func NewVenueRepository(pool *pgxpool.Pool) VenueRepository {
	return &venueRepository{pool: pool}
}

const venueCols = `id, name, description, requires_membership, created_by, created_at, updated_at`

func scanVenue(row pgx.Row) (*domain.Venue, error) {
	var v domain.Venue
	err := row.Scan(&v.ID, &v.Name, &v.Description, &v.RequiresMembership, &v.CreatedBy, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Create inserts the venue and makes its creator the ACTIVE owner in one transaction.
func (r *venueRepository) Create(ctx context.Context, req *domain.CreateVenueRequest, ownerID int64) (*domain.Venue, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertVenue = `INSERT INTO venues (name, description, requires_membership, created_by)
	VALUES ($1,$2,$3,$4) RETURNING ` + venueCols
	v, err := scanVenue(tx.QueryRow(ctx, insertVenue, req.Name, req.Description, req.RequiresMembership, ownerID))
	if err != nil {
		return nil, fmt.Errorf("insert venue: %w", err)
	}

	const insertOwner = `INSERT INTO memberships (venue_id, user_id, role, status) VALUES ($1,$2,$3,$4)`
	if _, err := tx.Exec(ctx, insertOwner, v.ID, ownerID, domain.RoleOwner, domain.MembershipActive); err != nil {
		return nil, fmt.Errorf("insert owner membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return v, nil
}

func (r *venueRepository) GetByID(ctx context.Context, id int64) (*domain.Venue, error) {
	const q = `SELECT ` + venueCols + ` FROM venues WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	v, err := scanVenue(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

func (r *venueRepository) List(ctx context.Context, limit, offset int) ([]domain.Venue, error) {
	limit, offset = clampPage(limit, offset)
	const q = `SELECT ` + venueCols + ` FROM venues ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var venues []domain.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		venues = append(venues, *v)
	}
	return venues, rows.Err()
}

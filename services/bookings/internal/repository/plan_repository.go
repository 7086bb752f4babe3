package repository

import (
	"context"
	"errors"
	"time"

	"github.com/diagnosis/venue-bookings/services/bookings/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PlanRepository interface {
	Create(ctx context.Context, venueID int64, req *domain.CreatePlanRequest) (*domain.Plan, error)
	GetByID(ctx context.Context, venueID, planID int64) (*domain.Plan, error)
	List(ctx context.Context, venueID int64, activeOnly bool) ([]domain.Plan, error)
}

type planRepository struct {
	pool *pgxpool.Pool
}

func NewPlanRepository(pool *pgxpool.Pool) PlanRepository {
	return &planRepository{pool: pool}
}

const planCols = `id, venue_id, name, description, price_cents, currency, interval, active, created_at`

func scanPlan(row pgx.Row) (*domain.Plan, error) {
	var p domain.Plan
	err := row.Scan(&p.ID, &p.VenueID, &p.Name, &p.Description, &p.PriceCents, &p.Currency, &p.Interval, &p.Active, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *planRepository) Create(ctx context.Context, venueID int64, req *domain.CreatePlanRequest) (*domain.Plan, error) {
	const q = `INSERT INTO plans (venue_id, name, description, price_cents, currency, interval)
	VALUES ($1,$2,$3,$4,$5,$6) RETURNING ` + planCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanPlan(r.pool.QueryRow(ctx, q, venueID, req.Name, req.Description, req.PriceCents, req.Currency, req.Interval))
}

func (r *planRepository) GetByID(ctx context.Context, venueID, planID int64) (*domain.Plan, error) {
	const q = `SELECT ` + planCols + ` FROM plans WHERE venue_id=$1 AND id=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanPlan(r.pool.QueryRow(ctx, q, venueID, planID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *planRepository) List(ctx context.Context, venueID int64, activeOnly bool) ([]domain.Plan, error) {
	const q = `SELECT ` + planCols + ` FROM plans
	WHERE venue_id=$1 AND (active OR NOT $2)
	ORDER BY price_cents, id`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, venueID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []domain.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

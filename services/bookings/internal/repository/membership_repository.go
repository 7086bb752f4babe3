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

type MembershipRepository interface {
	Get(ctx context.Context, venueID, userID int64) (*domain.Membership, error)
	List(ctx context.Context, venueID int64, limit, offset int) ([]domain.Membership, error)
	Create(ctx context.Context, m *domain.Membership) (*domain.Membership, error)
	Update(ctx context.Context, venueID, userID int64, u domain.MembershipUpdate) (*domain.Membership, error)
}

type membershipRepository struct {
	pool *pgxpool.Pool
}

func NewMembershipRepository(pool *pgxpool.Pool) MembershipRepository {
	return &membershipRepository{pool: pool}
}

const membershipCols = `venue_id, user_id, role, status, plan_id, created_at, updated_at`

func scanMembership(row pgx.Row) (*domain.Membership, error) {
	var m domain.Membership
	err := row.Scan(&m.VenueID, &m.UserID, &m.Role, &m.Status, &m.PlanID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *membershipRepository) Get(ctx context.Context, venueID, userID int64) (*domain.Membership, error) {
	const q = `SELECT ` + membershipCols + ` FROM memberships WHERE venue_id=$1 AND user_id=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	m, err := scanMembership(r.pool.QueryRow(ctx, q, venueID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

func (r *membershipRepository) List(ctx context.Context, venueID int64, limit, offset int) ([]domain.Membership, error) {
	limit, offset = clampPage(limit, offset)
	const q = `SELECT ` + membershipCols + ` FROM memberships WHERE venue_id=$1
	ORDER BY created_at, user_id LIMIT $2 OFFSET $3`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, venueID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (r *membershipRepository) Create(ctx context.Context, m *domain.Membership) (*domain.Membership, error) {
	const q = `INSERT INTO memberships (venue_id, user_id, role, status, plan_id)
	VALUES ($1,$2,$3,$4,$5) RETURNING ` + membershipCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	created, err := scanMembership(r.pool.QueryRow(ctx, q, m.VenueID, m.UserID, m.Role, m.Status, m.PlanID))
	if isUniqueViolation(err, membershipPKey) {
		return nil, domain.ErrMembershipExists
	}
	if err != nil {
		return nil, fmt.Errorf("insert membership: %w", err)
	}
	return created, nil
}

// Update applies the non-nil fields of u and drops the plan when u.ClearPlan
// is set. Returns nil, nil when the membership does not exist.
func (r *membershipRepository) Update(ctx context.Context, venueID, userID int64, u domain.MembershipUpdate) (*domain.Membership, error) {
	const q = `UPDATE memberships SET
		role = COALESCE($3, role),
		status = COALESCE($4, status),
		plan_id = CASE WHEN $6 THEN NULL ELSE COALESCE($5, plan_id) END,
		updated_at = now()
	WHERE venue_id=$1 AND user_id=$2
	RETURNING ` + membershipCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	m, err := scanMembership(r.pool.QueryRow(ctx, q, venueID, userID, u.Role, u.Status, u.PlanID, u.ClearPlan))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if isForeignKeyViolation(err) {
		return nil, domain.ErrPlanNotFound
	}
	return m, err
}

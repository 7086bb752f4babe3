package service

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/venue-bookings/pkg/logger"
	"github.com/diagnosis/venue-bookings/services/bookings/internal/domain"
	"github.com/diagnosis/venue-bookings/services/bookings/internal/policy"
	"github.com/diagnosis/venue-bookings/services/bookings/internal/repository"
)

type VenueService interface {
	CreateVenue(ctx context.Context, sub policy.Subject, req *domain.CreateVenueRequest) (*domain.Venue, error)
	GetVenue(ctx context.Context, venueID int64) (*domain.Venue, error)
	ListVenues(ctx context.Context, limit, offset int) ([]domain.Venue, error)

	CreateSession(ctx context.Context, sub policy.Subject, venueID int64, req *domain.CreateSessionRequest) (*domain.Session, error)
	GetSession(ctx context.Context, venueID, sessionID int64) (*domain.Session, error)
	ListSessions(ctx context.Context, venueID int64, limit, offset int) ([]domain.Session, error)

	Join(ctx context.Context, sub policy.Subject, venueID int64) (*domain.Membership, error)
	ListMembers(ctx context.Context, sub policy.Subject, venueID int64, limit, offset int) ([]domain.Membership, error)
	GetMember(ctx context.Context, sub policy.Subject, venueID, userID int64) (*domain.Membership, error)
	UpdateMember(ctx context.Context, sub policy.Subject, venueID, userID int64, patch domain.MembershipPatch) (*domain.Membership, error)

	CreatePlan(ctx context.Context, sub policy.Subject, venueID int64, req *domain.CreatePlanRequest) (*domain.Plan, error)
	ListPlans(ctx context.Context, sub policy.Subject, venueID int64) ([]domain.Plan, error)
}

type venueService struct {
	venues      repository.VenueRepository
	sessions    repository.SessionRepository
	memberships repository.MembershipRepository
	plans       repository.PlanRepository
	authz       *policy.Authorizer
	now         func() time.Time
}

func NewVenueService(
	venues repository.VenueRepository,
	sessions repository.SessionRepository,
	memberships repository.MembershipRepository,
	plans repository.PlanRepository,
	authz *policy.Authorizer,
) VenueService {
	return &venueService{
		venues:      venues,
		sessions:    sessions,
		memberships: memberships,
		plans:       plans,
		authz:       authz,
		now:         time.Now,
	}
}

func (s *venueService) CreateVenue(ctx context.Context, sub policy.Subject, req *domain.CreateVenueRequest) (*domain.Venue, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, domain.Invalid(err)
	}
	v, err := s.venues.Create(ctx, req, sub.UserID)
	if err != nil {
		return nil, fmt.Errorf("create venue: %w", err)
	}
	logger.InfoContext(ctx, "venue created", "venue_id", v.ID)
	return v, nil
}

func (s *venueService) GetVenue(ctx context.Context, venueID int64) (*domain.Venue, error) {
	v, err := s.venues.GetByID(ctx, venueID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, domain.ErrVenueNotFound
	}
	return v, nil
}

func (s *venueService) ListVenues(ctx context.Context, limit, offset int) ([]domain.Venue, error) {
	return s.venues.List(ctx, limit, offset)
}

func (s *venueService) CreateSession(ctx context.Context, sub policy.Subject, venueID int64, req *domain.CreateSessionRequest) (*domain.Session, error) {
	if _, err := s.GetVenue(ctx, venueID); err != nil {
		return nil, err
	}
	if err := s.authz.Require(ctx, sub, venueID, policy.ManageSessions); err != nil {
		return nil, err
	}
	req.Normalize()
	if err := req.Validate(s.now()); err != nil {
		return nil, domain.Invalid(err)
	}
	session, err := s.sessions.Create(ctx, venueID, req)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	logger.InfoContext(ctx, "session created", "session_id", session.ID)
	return session, nil
}

func (s *venueService) GetSession(ctx context.Context, venueID, sessionID int64) (*domain.Session, error) {
	session, err := s.sessions.GetWithCount(ctx, venueID, sessionID, 0)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *venueService) ListSessions(ctx context.Context, venueID int64, limit, offset int) ([]domain.Session, error) {
	if _, err := s.GetVenue(ctx, venueID); err != nil {
		return nil, err
	}
	return s.sessions.ListUpcoming(ctx, venueID, s.now(), limit, offset)
}

// Join adds the caller as a MEMBER. Venues that require membership start the
// member as PENDING until a manager activates it.
func (s *venueService) Join(ctx context.Context, sub policy.Subject, venueID int64) (*domain.Membership, error) {
	v, err := s.GetVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}
	status := domain.MembershipActive
	if v.RequiresMembership {
		status = domain.MembershipPending
	}
	return s.memberships.Create(ctx, &domain.Membership{
		VenueID: venueID,
		UserID:  sub.UserID,
		Role:    domain.RoleMember,
		Status:  status,
	})
}

func (s *venueService) ListMembers(ctx context.Context, sub policy.Subject, venueID int64, limit, offset int) ([]domain.Membership, error) {
	if _, err := s.GetVenue(ctx, venueID); err != nil {
		return nil, err
	}
	if err := s.authz.Require(ctx, sub, venueID, policy.ViewMembers); err != nil {
		return nil, err
	}
	return s.memberships.List(ctx, venueID, limit, offset)
}

// GetMember returns a membership to its own user or to anyone who may view members.
func (s *venueService) GetMember(ctx context.Context, sub policy.Subject, venueID, userID int64) (*domain.Membership, error) {
	if sub.UserID != userID {
		if err := s.authz.Require(ctx, sub, venueID, policy.ViewMembers); err != nil {
			return nil, err
		}
	}
	m, err := s.memberships.Get(ctx, venueID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrMembershipNotFound
	}
	return m, nil
}

func (s *venueService) UpdateMember(ctx context.Context, sub policy.Subject, venueID, userID int64, patch domain.MembershipPatch) (*domain.Membership, error) {
	if _, err := s.GetVenue(ctx, venueID); err != nil {
		return nil, err
	}
	if err := s.authz.Require(ctx, sub, venueID, policy.ManageMembers); err != nil {
		return nil, err
	}
	update, err := patch.Parse()
	if err != nil {
		return nil, domain.Invalid(err)
	}

	target, err := s.memberships.Get(ctx, venueID, userID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, domain.ErrMembershipNotFound
	}
	if err := checkOwnerChange(target, update); err != nil {
		return nil, err
	}
	if touchesAdmin(target, update) {
		if err := s.authz.Require(ctx, sub, venueID, policy.ManageAdmins); err != nil {
			return nil, err
		}
	}
	if update.PlanID != nil {
		plan, err := s.plans.GetByID(ctx, venueID, *update.PlanID)
		if err != nil {
			return nil, err
		}
		if plan == nil {
			return nil, domain.ErrPlanNotFound
		}
	}

	updated, err := s.memberships.Update(ctx, venueID, userID, update)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, domain.ErrMembershipNotFound
	}
	logger.InfoContext(ctx, "membership updated", "member_id", userID, "role", updated.Role, "status", updated.Status)
	return updated, nil
}

// checkOwnerChange rejects updates that would create, demote or deactivate an OWNER.
func checkOwnerChange(target *domain.Membership, u domain.MembershipUpdate) error {
	if u.Role != nil && (*u.Role == domain.RoleOwner) != (target.Role == domain.RoleOwner) {
		return domain.ErrOwnerImmutable
	}
	if target.Role == domain.RoleOwner && u.Status != nil && *u.Status != domain.MembershipActive {
		return domain.ErrOwnerImmutable
	}
	return nil
}

func touchesAdmin(target *domain.Membership, u domain.MembershipUpdate) bool {
	if target.Role == domain.RoleAdmin {
		return u.Role != nil || u.Status != nil
	}
	return u.Role != nil && *u.Role == domain.RoleAdmin
}

func (s *venueService) CreatePlan(ctx context.Context, sub policy.Subject, venueID int64, req *domain.CreatePlanRequest) (*domain.Plan, error) {
	if _, err := s.GetVenue(ctx, venueID); err != nil {
		return nil, err
	}
	if err := s.authz.Require(ctx, sub, venueID, policy.ManagePlans); err != nil {
		return nil, err
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, domain.Invalid(err)
	}
	plan, err := s.plans.Create(ctx, venueID, req)
	if err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}
	logger.InfoContext(ctx, "plan created", "plan_id", plan.ID)
	return plan, nil
}

// ListPlans shows inactive plans only to callers who manage plans.
func (s *venueService) ListPlans(ctx context.Context, sub policy.Subject, venueID int64) ([]domain.Plan, error) {
	if _, err := s.GetVenue(ctx, venueID); err != nil {
		return nil, err
	}
	canManage, err := s.authz.Can(ctx, sub, venueID, policy.ManagePlans)
	if err != nil {
		return nil, err
	}
	return s.plans.List(ctx, venueID, !canManage)
}

// Package policy is the single place venue permissions are decided.
package policy

import (
	"context"
	"fmt"

	"github.com/diagnosis/venue-bookings/pkg/auth"
	"github.com/diagnosis/venue-bookings/services/bookings/internal/domain"
)

type Capability string

const (
	ViewMembers    Capability = "view_members"
	ManageMembers  Capability = "manage_members"
	ManageAdmins   Capability = "manage_admins"
	ManagePlans    Capability = "manage_plans"
	ManageSessions Capability = "manage_sessions"
	ViewRoster     Capability = "view_roster"
)

var allCapabilities = []Capability{ViewMembers, ManageMembers, ManageAdmins, ManagePlans, ManageSessions, ViewRoster}

var roleCapabilities = map[domain.Role]map[Capability]bool{
	domain.RoleOwner:  set(allCapabilities...),
	domain.RoleAdmin:  set(ViewMembers, ManageMembers, ManagePlans, ManageSessions, ViewRoster),
	domain.RoleMember: set(),
}

func set(caps ...Capability) map[Capability]bool {
	m := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		m[c] = true
	}
	return m
}

// Subject is the caller being authorized.
type Subject struct {
	UserID       int64
	Email        string
	PlatformRole string
}

func SubjectFromClaims(c *auth.Claims) Subject {
	if c == nil {
		return Subject{}
	}
	return Subject{UserID: c.Sub, Email: c.Email, PlatformRole: c.Role}
}

// Grants reports whether a membership carries the capability. Only ACTIVE
// memberships grant anything.
func Grants(m *domain.Membership, c Capability) bool {
	if !m.IsActive() {
		return false
	}
	return roleCapabilities[m.Role][c]
}

// Capabilities lists what a membership may do, in a stable order.
func Capabilities(m *domain.Membership) []Capability {
	var out []Capability
	for _, c := range allCapabilities {
		if Grants(m, c) {
			out = append(out, c)
		}
	}
	return out
}

type MembershipFinder interface {
	Get(ctx context.Context, venueID, userID int64) (*domain.Membership, error)
}

type Authorizer struct {
	memberships MembershipFinder
}

func NewAuthorizer(memberships MembershipFinder) *Authorizer {
	return &Authorizer{memberships: memberships}
}

func (a *Authorizer) Can(ctx context.Context, sub Subject, venueID int64, c Capability) (bool, error) {
	if sub.PlatformRole == auth.RoleAdmin {
		return true, nil
	}
	if sub.UserID == 0 {
		return false, nil
	}
	m, err := a.memberships.Get(ctx, venueID, sub.UserID)
	if err != nil {
		return false, fmt.Errorf("load membership: %w", err)
	}
	return Grants(m, c), nil
}

// Require is Can that turns a refusal into domain.ErrForbidden.
func (a *Authorizer) Require(ctx context.Context, sub Subject, venueID int64, c Capability) error {
	ok, err := a.Can(ctx, sub, venueID, c)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrForbidden
	}
	return nil
}

func (a *Authorizer) CanManageVenue(ctx context.Context, sub Subject, venueID int64) (bool, error) {
	return a.Can(ctx, sub, venueID, ManageMembers)
}

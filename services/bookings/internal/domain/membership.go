package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(s)) {
	case RoleOwner, RoleAdmin, RoleMember:
		return Role(strings.ToUpper(s)), true
	default:
		return "", false
	}
}

type MembershipStatus string

const (
	MembershipActive  MembershipStatus = "ACTIVE"
	MembershipPending MembershipStatus = "PENDING"
	MembershipRevoked MembershipStatus = "REVOKED"
)

func ParseMembershipStatus(s string) (MembershipStatus, bool) {
	switch MembershipStatus(strings.ToUpper(s)) {
	case MembershipActive, MembershipPending, MembershipRevoked:
		return MembershipStatus(strings.ToUpper(s)), true
	default:
		return "", false
	}
}

type Membership struct {
	VenueID   int64            `json:"venue_id"`
	UserID    int64            `json:"user_id"`
	Role      Role             `json:"role"`
	Status    MembershipStatus `json:"status"`
	PlanID    *int64           `json:"plan_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func (m *Membership) IsActive() bool {
	return m != nil && m.Status == MembershipActive
}

// OptionalID tells an absent JSON field apart from an explicit null.
type OptionalID struct {
	Set   bool
	Value *int64
}

func SetID(id int64) OptionalID { return OptionalID{Set: true, Value: &id} }

func (o *OptionalID) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var id int64
	if err := json.Unmarshal(b, &id); err != nil {
		return fmt.Errorf("plan_id must be an integer or null")
	}
	o.Value = &id
	return nil
}

// MembershipPatch carries the optional fields a manager may change.
// "plan_id": null removes the member's plan.
type MembershipPatch struct {
	Role   *string    `json:"role,omitempty"`
	Status *string    `json:"status,omitempty"`
	PlanID OptionalID `json:"plan_id"`
}

// MembershipUpdate is a validated MembershipPatch.
type MembershipUpdate struct {
	Role      *Role
	Status    *MembershipStatus
	PlanID    *int64
	ClearPlan bool
}

func (p MembershipPatch) Parse() (MembershipUpdate, error) {
	var u MembershipUpdate
	if p.Role == nil && p.Status == nil && !p.PlanID.Set {
		return u, fmt.Errorf("at least one of role, status, plan_id is required")
	}
	if p.Role != nil {
		role, ok := ParseRole(*p.Role)
		if !ok {
			return u, fmt.Errorf("invalid role %q", *p.Role)
		}
		u.Role = &role
	}
	if p.Status != nil {
		status, ok := ParseMembershipStatus(*p.Status)
		if !ok {
			return u, fmt.Errorf("invalid status %q", *p.Status)
		}
		u.Status = &status
	}
	if p.PlanID.Set {
		u.PlanID = p.PlanID.Value
		u.ClearPlan = p.PlanID.Value == nil
	}
	return u, nil
}

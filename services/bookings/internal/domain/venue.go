package domain

import (
	"fmt"
	"strings"
	"time"
)

type Venue struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	RequiresMembership bool      `json:"requires_membership"`
	CreatedBy          int64     `json:"created_by"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (v *Venue) Summary() VenueSummary {
	return VenueSummary{ID: v.ID, Name: v.Name}
}

type CreateVenueRequest struct {
	Name               string `json:"name"`
	Description        string `json:"description"`
	RequiresMembership bool   `json:"requires_membership"`
}

func (r *CreateVenueRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
}

func (r *CreateVenueRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(r.Name) > MaxNameLength {
		return fmt.Errorf("name must be at most %d characters", MaxNameLength)
	}
	return nil
}

type Session struct {
	ID        int64      `json:"id"`
	VenueID   int64      `json:"venue_id"`
	Title     string     `json:"title"`
	StartsAt  time.Time  `json:"starts_at"`
	EndsAt    *time.Time `json:"ends_at,omitempty"`
	Capacity  *int       `json:"capacity,omitempty"` // nil means unlimited
	CreatedAt time.Time  `json:"created_at"`

	// BookedCount is the number of BOOKED rows at lookup time.
	BookedCount int `json:"booked_count"`
}

// HasStarted reports whether the session start is at or before now.
func (s *Session) HasStarted(now time.Time) bool {
	return !s.StartsAt.After(now)
}

// IsFull reports whether a capped session has no free spot left.
func (s *Session) IsFull() bool {
	return s.Capacity != nil && s.BookedCount >= *s.Capacity
}

func (s *Session) Summary() SessionSummary {
	return SessionSummary{ID: s.ID, Title: s.Title, StartsAt: s.StartsAt, EndsAt: s.EndsAt}
}

type CreateSessionRequest struct {
	Title    string     `json:"title"`
	StartsAt time.Time  `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`
	Capacity *int       `json:"capacity,omitempty"`
}

func (r *CreateSessionRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
}

func (r *CreateSessionRequest) Validate(now time.Time) error {
	if r.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(r.Title) > MaxNameLength {
		return fmt.Errorf("title must be at most %d characters", MaxNameLength)
	}
	if !r.StartsAt.After(now) {
		return fmt.Errorf("starts_at must be in the future")
	}
	if r.EndsAt != nil && !r.EndsAt.After(r.StartsAt) {
		return fmt.Errorf("ends_at must be after starts_at")
	}
	if r.Capacity != nil && *r.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive when set")
	}
	return nil
}

const MaxNameLength = 200

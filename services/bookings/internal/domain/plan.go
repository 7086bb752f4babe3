package domain

import (
	"fmt"
	"strings"
	"time"
)

type PlanInterval string

const (
	IntervalMonth PlanInterval = "MONTH"
	IntervalYear  PlanInterval = "YEAR"
	IntervalOnce  PlanInterval = "ONCE"
)

type Plan struct {
	ID          int64        `json:"id"`
	VenueID     int64        `json:"venue_id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	PriceCents  int64        `json:"price_cents"`
	Currency    string       `json:"currency"`
	Interval    PlanInterval `json:"interval"`
	Active      bool         `json:"active"`
	CreatedAt   time.Time    `json:"created_at"`
}

type CreatePlanRequest struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	PriceCents  int64        `json:"price_cents"`
	Currency    string       `json:"currency"`
	Interval    PlanInterval `json:"interval"`
}

func (r *CreatePlanRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	if r.Currency == "" {
		r.Currency = "USD"
	}
	r.Interval = PlanInterval(strings.ToUpper(strings.TrimSpace(string(r.Interval))))
}

func (r *CreatePlanRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(r.Name) > MaxNameLength {
		return fmt.Errorf("name must be at most %d characters", MaxNameLength)
	}
	if r.PriceCents < 0 {
		return fmt.Errorf("price_cents must not be negative")
	}
	if len(r.Currency) != 3 {
		return fmt.Errorf("currency must be a 3-letter code")
	}
	switch r.Interval {
	case IntervalMonth, IntervalYear, IntervalOnce:
	default:
		return fmt.Errorf("interval must be one of MONTH, YEAR, ONCE")
	}
	return nil
}

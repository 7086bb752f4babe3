package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/diagnosis/venue-bookings/services/bookings/internal/domain"
)

// memDB is an in-memory stand-in for Postgres that enforces the same
// live-booking uniqueness and capacity rules as the SQL repositories.
type memDB struct {
	mu          sync.Mutex
	now         func() time.Time
	nextID      int64
	venues      map[int64]*domain.Venue
	sessions    map[int64]*domain.Session
	memberships map[[2]int64]*domain.Membership
	plans       map[int64]*domain.Plan
	bookings    map[int64]*domain.Booking
}

func newMemDB(now func() time.Time) *memDB {
	return &memDB{
		now:         now,
		venues:      map[int64]*domain.Venue{},
		sessions:    map[int64]*domain.Session{},
		memberships: map[[2]int64]*domain.Membership{},
		plans:       map[int64]*domain.Plan{},
		bookings:    map[int64]*domain.Booking{},
	}
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

func (db *memDB) liveCount(sessionID, excludeUserID int64) int {
	n := 0
	for _, b := range db.bookings {
		if b.SessionID == sessionID && b.Status == domain.BookingBooked && b.UserID != excludeUserID {
			n++
		}
	}
	return n
}

func (db *memDB) details(b *domain.Booking) *domain.BookingDetails {
	s := db.sessions[b.SessionID]
	v := db.venues[b.VenueID]
	return &domain.BookingDetails{Booking: *b, Session: s.Summary(), Venue: v.Summary()}
}

// seed helpers

func (db *memDB) addVenue(ownerID int64, requiresMembership bool) *domain.Venue {
	db.mu.Lock()
	defer db.mu.Unlock()
	v := &domain.Venue{ID: db.id(), Name: "Court House", RequiresMembership: requiresMembership, CreatedBy: ownerID, CreatedAt: db.now()}
	db.venues[v.ID] = v
	db.memberships[[2]int64{v.ID, ownerID}] = &domain.Membership{
		VenueID: v.ID, UserID: ownerID, Role: domain.RoleOwner, Status: domain.MembershipActive,
	}
	return v
}

func (db *memDB) addSession(venueID int64, startsAt time.Time, capacity *int) *domain.Session {
	db.mu.Lock()
	defer db.mu.Unlock()
	s := &domain.Session{ID: db.id(), VenueID: venueID, Title: "Evening doubles", StartsAt: startsAt, Capacity: capacity, CreatedAt: db.now()}
	db.sessions[s.ID] = s
	return s
}

func (db *memDB) addMember(venueID, userID int64, role domain.Role, status domain.MembershipStatus) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.memberships[[2]int64{venueID, userID}] = &domain.Membership{VenueID: venueID, UserID: userID, Role: role, Status: status}
}

func (db *memDB) addPlan(venueID int64, active bool) *domain.Plan {
	db.mu.Lock()
	defer db.mu.Unlock()
	p := &domain.Plan{ID: db.id(), VenueID: venueID, Name: "Monthly", PriceCents: 2500, Currency: "USD", Interval: domain.IntervalMonth, Active: active}
	db.plans[p.ID] = p
	return p
}

func (db *memDB) booking(id int64) domain.Booking {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.bookings[id]
}

type memVenues struct{ db *memDB }

func (r memVenues) Create(_ context.Context, req *domain.CreateVenueRequest, ownerID int64) (*domain.Venue, error) {
	v := r.db.addVenue(ownerID, req.RequiresMembership)
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	v.Name, v.Description = req.Name, req.Description
	cp := *v
	return &cp, nil
}

func (r memVenues) GetByID(_ context.Context, id int64) (*domain.Venue, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	v, ok := r.db.venues[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (r memVenues) List(_ context.Context, _, _ int) ([]domain.Venue, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.Venue
	for _, v := range r.db.venues {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memSessions struct{ db *memDB }

func (r memSessions) Create(_ context.Context, venueID int64, req *domain.CreateSessionRequest) (*domain.Session, error) {
	s := r.db.addSession(venueID, req.StartsAt, req.Capacity)
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s.Title, s.EndsAt = req.Title, req.EndsAt
	cp := *s
	return &cp, nil
}

func (r memSessions) GetWithCount(_ context.Context, venueID, sessionID, excludeUserID int64) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.sessions[sessionID]
	if !ok || s.VenueID != venueID {
		return nil, nil
	}
	cp := *s
	cp.BookedCount = r.db.liveCount(sessionID, excludeUserID)
	return &cp, nil
}

func (r memSessions) ListUpcoming(_ context.Context, venueID int64, from time.Time, _, _ int) ([]domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.Session
	for _, s := range r.db.sessions {
		if s.VenueID == venueID && s.StartsAt.After(from) {
			cp := *s
			cp.BookedCount = r.db.liveCount(s.ID, 0)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

type memMemberships struct{ db *memDB }

func (r memMemberships) Get(_ context.Context, venueID, userID int64) (*domain.Membership, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.memberships[[2]int64{venueID, userID}]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r memMemberships) List(_ context.Context, venueID int64, _, _ int) ([]domain.Membership, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.Membership
	for k, m := range r.db.memberships {
		if k[0] == venueID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r memMemberships) Create(_ context.Context, m *domain.Membership) (*domain.Membership, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := [2]int64{m.VenueID, m.UserID}
	if _, ok := r.db.memberships[key]; ok {
		return nil, domain.ErrMembershipExists
	}
	cp := *m
	cp.CreatedAt, cp.UpdatedAt = r.db.now(), r.db.now()
	r.db.memberships[key] = &cp
	out := cp
	return &out, nil
}

func (r memMemberships) Update(_ context.Context, venueID, userID int64, u domain.MembershipUpdate) (*domain.Membership, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.memberships[[2]int64{venueID, userID}]
	if !ok {
		return nil, nil
	}
	if u.Role != nil {
		m.Role = *u.Role
	}
	if u.Status != nil {
		m.Status = *u.Status
	}
	if u.ClearPlan {
		m.PlanID = nil
	}
	if u.PlanID != nil {
		m.PlanID = u.PlanID
	}
	m.UpdatedAt = r.db.now()
	cp := *m
	return &cp, nil
}

type memPlans struct{ db *memDB }

func (r memPlans) Create(_ context.Context, venueID int64, req *domain.CreatePlanRequest) (*domain.Plan, error) {
	p := r.db.addPlan(venueID, true)
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p.Name, p.Description, p.PriceCents, p.Currency, p.Interval = req.Name, req.Description, req.PriceCents, req.Currency, req.Interval
	cp := *p
	return &cp, nil
}

func (r memPlans) GetByID(_ context.Context, venueID, planID int64) (*domain.Plan, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.plans[planID]
	if !ok || p.VenueID != venueID {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r memPlans) List(_ context.Context, venueID int64, activeOnly bool) ([]domain.Plan, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.Plan
	for _, p := range r.db.plans {
		if p.VenueID == venueID && (p.Active || !activeOnly) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memBookings struct{ db *memDB }

func (r memBookings) Create(_ context.Context, nb domain.NewBooking) (*domain.BookingDetails, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.sessions[nb.SessionID]
	if !ok || s.VenueID != nb.VenueID {
		return nil, domain.ErrSessionNotFound
	}
	for _, b := range r.db.bookings {
		if b.SessionID == nb.SessionID && b.UserID == nb.UserID && b.Status != domain.BookingCancelled {
			return nil, domain.ErrDuplicateBooking
		}
	}
	if s.Capacity != nil && r.db.liveCount(nb.SessionID, 0) >= *s.Capacity {
		return nil, domain.ErrSessionFull
	}
	b := &domain.Booking{
		ID: r.db.id(), SessionID: nb.SessionID, VenueID: nb.VenueID, UserID: nb.UserID,
		Status: domain.BookingBooked, CreatedAt: r.db.now(), UpdatedAt: r.db.now(),
	}
	r.db.bookings[b.ID] = b
	return r.db.details(b), nil
}

func (r memBookings) GetByID(_ context.Context, id int64) (*domain.BookingDetails, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.bookings[id]
	if !ok {
		return nil, nil
	}
	return r.db.details(b), nil
}

func (r memBookings) Cancel(_ context.Context, id int64) (*domain.BookingDetails, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.bookings[id]
	if !ok || b.Status != domain.BookingBooked {
		return nil, nil
	}
	now := r.db.now()
	b.Status = domain.BookingCancelled
	b.CancelledAt = &now
	b.UpdatedAt = now
	return r.db.details(b), nil
}

func (r memBookings) ListByUser(_ context.Context, userID int64, f domain.BookingFilter) ([]domain.BookingDetails, error) {
	return r.list(func(b *domain.Booking) bool { return b.UserID == userID }, f), nil
}

func (r memBookings) ListBySession(_ context.Context, sessionID int64, f domain.BookingFilter) ([]domain.BookingDetails, error) {
	return r.list(func(b *domain.Booking) bool { return b.SessionID == sessionID }, f), nil
}

func (r memBookings) list(match func(*domain.Booking) bool, f domain.BookingFilter) []domain.BookingDetails {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.BookingDetails
	for _, b := range r.db.bookings {
		if match(b) && (f.Status == nil || b.Status == *f.Status) {
			out = append(out, *r.db.details(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type published struct {
	subject string
	data    any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{subject: subject, data: data})
	return p.err
}

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.subject)
	}
	return out
}

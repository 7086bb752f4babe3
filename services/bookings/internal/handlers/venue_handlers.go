package handlers

import (
	"net/http"

	"github.com/diagnosis/venue-bookings/pkg/response"
	"github.com/diagnosis/venue-bookings/services/bookings/internal/domain"
)

func (h *Handlers) CreateVenue(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(r)
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	var req domain.CreateVenueRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	venue, err := h.venues.CreateVenue(r.Context(), sub, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, venue)
}

func (h *Handlers) ListVenues(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	venues, err := h.venues.ListVenues(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, nonNil(venues))
}

func (h *Handlers) GetVenue(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "venueId")
	if !ok {
		return
	}
	venue, err := h.venues.GetVenue(r.Context(), ids[0])
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, venue)
}

func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(r)
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	ids, ok := pathIDs(w, r, "venueId")
	if !ok {
		return
	}
	var req domain.CreateSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.venues.CreateSession(r.Context(), sub, ids[0], &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, session)
}

func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "venueId")
	if !ok {
		return
	}
	limit, offset := parsePagination(r)
	sessions, err := h.venues.ListSessions(r.Context(), ids[0], limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, nonNil(sessions))
}

func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "venueId", "sessionId")
	if !ok {
		return
	}
	session, err := h.venues.GetSession(r.Context(), ids[0], ids[1])
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, session)
}

func (h *Handlers) JoinVenue(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(r)
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	ids, ok := pathIDs(w, r, "venueId")
	if !ok {
		return
	}
	m, err := h.venues.Join(r.Context(), sub, ids[0])
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, m)
}

func (h *Handlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(r)
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	ids, ok := pathIDs(w, r, "venueId")
	if !ok {
		return
	}
	limit, offset := parsePagination(r)
	members, err := h.venues.ListMembers(r.Context(), sub, ids[0], limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, nonNil(members))
}

func (h *Handlers) GetMember(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(r)
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	ids, ok := pathIDs(w, r, "venueId", "userId")
	if !ok {
		return
	}
	m, err := h.venues.GetMember(r.Context(), sub, ids[0], ids[1])
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, m)
}

// UpdateMember patches a member's role, status or plan.
func (h *Handlers) UpdateMember(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(r)
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	ids, ok := pathIDs(w, r, "venueId", "userId")
	if !ok {
		return
	}
	var patch domain.MembershipPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	m, err := h.venues.UpdateMember(r.Context(), sub, ids[0], ids[1], patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, m)
}

func (h *Handlers) CreatePlan(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(r)
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	ids, ok := pathIDs(w, r, "venueId")
	if !ok {
		return
	}
	var req domain.CreatePlanRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	plan, err := h.venues.CreatePlan(r.Context(), sub, ids[0], &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, plan)
}

func (h *Handlers) ListPlans(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(r)
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	ids, ok := pathIDs(w, r, "venueId")
	if !ok {
		return
	}
	plans, err := h.venues.ListPlans(r.Context(), sub, ids[0])
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, nonNil(plans))
}

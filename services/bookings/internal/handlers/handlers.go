package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/venue-bookings/pkg/logger"
	mw "github.com/diagnosis/venue-bookings/pkg/middleware"
	"github.com/diagnosis/venue-bookings/pkg/response"
	"github.com/diagnosis/venue-bookings/services/bookings/internal/domain"
	"github.com/diagnosis/venue-bookings/services/bookings/internal/policy"
	"github.com/diagnosis/venue-bookings/services/bookings/internal/service"
)

type Handlers struct {
	bookings service.BookingService
	venues   service.VenueService
}

func New(bookings service.BookingService, venues service.VenueService) *Handlers {
	return &Handlers{bookings: bookings, venues: venues}
}

// Mount registers the authenticated API. Callers install RequireJWT first.
func (h *Handlers) Mount(r chi.Router) {
	r.Get("/me/bookings", h.ListMyBookings)

	r.Route("/venues", func(r chi.Router) {
		r.Post("/", h.CreateVenue)
		r.Get("/", h.ListVenues)

		r.Route("/{venueId}", func(r chi.Router) {
			r.Use(venueContext)
			r.Get("/", h.GetVenue)

			r.Post("/sessions", h.CreateSession)
			r.Get("/sessions", h.ListSessions)
			r.Get("/sessions/{sessionId}", h.GetSession)
			r.Post("/sessions/{sessionId}/book", h.Book)
			r.Get("/sessions/{sessionId}/bookings", h.Roster)

			r.Post("/bookings/{bookingId}/cancel", h.CancelBooking)

			r.Post("/members/join", h.JoinVenue)
			r.Get("/members", h.ListMembers)
			r.Get("/members/{userId}", h.GetMember)
			r.Patch("/members/{userId}", h.UpdateMember)

			r.Post("/plans", h.CreatePlan)
			r.Get("/plans", h.ListPlans)
		})
	})
}

// venueContext tags request logs with the venue being addressed.
func venueContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := pathID(r, "venueId"); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), logger.VenueIDKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

func subject(r *http.Request) (policy.Subject, bool) {
	claims := mw.Claims(r)
	if claims == nil {
		return policy.Subject{}, false
	}
	return policy.SubjectFromClaims(claims), true
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// pathIDs parses the named URL params in order, writing a 400 on the first bad one.
func pathIDs(w http.ResponseWriter, r *http.Request, names ...string) ([]int64, bool) {
	ids := make([]int64, len(names))
	for i, name := range names {
		id, err := pathID(r, name)
		if err != nil {
			response.BadRequest(w, err.Error())
			return nil, false
		}
		ids[i] = id
	}
	return ids, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return false
	}
	return true
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func parseBookingFilter(w http.ResponseWriter, r *http.Request) (domain.BookingFilter, bool) {
	var f domain.BookingFilter
	f.Limit, f.Offset = parsePagination(r)
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := domain.ParseBookingStatus(raw)
		if !ok {
			response.BadRequest(w, "Invalid status parameter")
			return f, false
		}
		f.Status = &st
	}
	return f, true
}

// denialStatus maps a refusal reason to its HTTP status.
func denialStatus(reason domain.Reason) int {
	switch reason {
	case domain.ReasonNotFound:
		return http.StatusNotFound
	case domain.ReasonForbidden:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

// writeError turns service errors into responses. Anything unrecognised is a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var be *domain.BookingError
	if errors.As(err, &be) {
		response.Denied(w, denialStatus(be.Reason), be.Message, string(be.Reason))
		return
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		response.BadRequest(w, ve.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrVenueNotFound):
		response.NotFound(w, "Venue not found")
	case errors.Is(err, domain.ErrSessionNotFound):
		response.NotFound(w, "Session not found")
	case errors.Is(err, domain.ErrMembershipNotFound):
		response.NotFound(w, "Membership not found")
	case errors.Is(err, domain.ErrPlanNotFound):
		response.BadRequest(w, "Plan does not belong to this venue")
	case errors.Is(err, domain.ErrOwnerImmutable):
		response.BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		response.Forbidden(w, "Insufficient venue permissions")
	case errors.Is(err, domain.ErrMembershipExists):
		response.Conflict(w, "Already a member of this venue")
	default:
		response.InternalError(w, r, err)
	}
}

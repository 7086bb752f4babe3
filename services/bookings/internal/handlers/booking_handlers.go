package handlers

import (
	"net/http"

	"github.com/diagnosis/venue-bookings/pkg/response"
)

// Book reserves a seat in a session for the caller.
func (h *Handlers) Book(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(r)
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	ids, ok := pathIDs(w, r, "venueId", "sessionId")
	if !ok {
		return
	}

	booking, err := h.bookings.Book(r.Context(), sub, ids[0], ids[1])
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, booking)
}

// CancelBooking cancels one of the caller's own bookings.
func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(r)
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	ids, ok := pathIDs(w, r, "venueId", "bookingId")
	if !ok {
		return
	}

	booking, err := h.bookings.Cancel(r.Context(), sub, ids[0], ids[1])
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, booking)
}

func (h *Handlers) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(r)
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	f, ok := parseBookingFilter(w, r)
	if !ok {
		return
	}

	bookings, err := h.bookings.ListMine(r.Context(), sub.UserID, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, nonNil(bookings))
}

// Roster lists the bookings of a session for venue staff.
func (h *Handlers) Roster(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(r)
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	ids, ok := pathIDs(w, r, "venueId", "sessionId")
	if !ok {
		return
	}
	f, ok := parseBookingFilter(w, r)
	if !ok {
		return
	}

	bookings, err := h.bookings.Roster(r.Context(), sub, ids[0], ids[1], f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, nonNil(bookings))
}

// nonNil keeps empty lists encoding as [] instead of null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/diagnosis/venue-bookings/pkg/middleware"
	"github.com/diagnosis/venue-bookings/pkg/response"
	"github.com/diagnosis/venue-bookings/services/auth/internal/domain"
	"github.com/diagnosis/venue-bookings/services/auth/internal/service"
)

type Handlers struct {
	authService service.AuthService
	limiter     *mw.RateLimiter
	jwtSecret   string
}

func New(authService service.AuthService, limiter *mw.RateLimiter, jwtSecret string) *Handlers {
	return &Handlers{authService: authService, limiter: limiter, jwtSecret: jwtSecret}
}

// Mount registers the auth routes. Credential endpoints are throttled per client IP.
func (h *Handlers) Mount(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.limiter.Middleware)
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
	})
	r.With(mw.RequireJWT(h.jwtSecret)).Get("/me", h.Me)
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	user, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, user)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	tokens, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, tokens)
}

func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		response.BadRequest(w, "refresh_token is required")
		return
	}

	tokens, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, tokens)
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	claims := mw.Claims(r)
	if claims == nil {
		response.Unauthorized(w, "Authentication required")
		return
	}
	user, err := h.authService.GetUser(r.Context(), claims.Sub)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, user)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		response.BadRequest(w, ve.Error())
	case errors.Is(err, domain.ErrEmailTaken):
		response.Conflict(w, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		response.Unauthorized(w, "Invalid email or password")
	case errors.Is(err, domain.ErrUserNotFound):
		response.NotFound(w, "User not found")
	default:
		response.InternalError(w, r, err)
	}
}

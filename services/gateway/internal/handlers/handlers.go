package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/venue-bookings/pkg/logger"
	mw "github.com/diagnosis/venue-bookings/pkg/middleware"
	"github.com/diagnosis/venue-bookings/pkg/response"
	"github.com/diagnosis/venue-bookings/services/gateway/internal/proxy"
)

const maxBodyBytes = 1 << 20

type Handlers struct {
	authProxy     *proxy.ServiceProxy
	bookingsProxy *proxy.ServiceProxy
	limiter       *mw.RateLimiter
}

func New(authProxy, bookingsProxy *proxy.ServiceProxy, limiter *mw.RateLimiter) *Handlers {
	return &Handlers{
		authProxy:     authProxy,
		bookingsProxy: bookingsProxy,
		limiter:       limiter,
	}
}

// Mount routes the public API. Authentication is left to the upstream
// services, which validate the bearer token themselves.
func (h *Handlers) Mount(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if h.limiter != nil {
				r.Use(h.limiter.Middleware)
			}
			r.HandleFunc("/*", h.forward(h.authProxy))
		})
		r.HandleFunc("/*", h.forward(h.bookingsProxy))
	})
}

func (h *Handlers) forward(upstream *proxy.ServiceProxy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.proxyRequest(w, r, upstream)
	}
}

// clientIP replaces any client-supplied X-Forwarded-For so upstreams that
// trust the gateway see the address the gateway resolved.
func (h *Handlers) clientIP(r *http.Request) string {
	if h.limiter != nil {
		return h.limiter.ClientIP(r)
	}
	return mw.PeerIP(r)
}

func (h *Handlers) proxyRequest(w http.ResponseWriter, r *http.Request, upstream *proxy.ServiceProxy) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		response.BadRequest(w, "Failed to read request body")
		return
	}
	defer r.Body.Close()

	path := r.URL.EscapedPath()
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	headers := r.Header.Clone()
	headers.Set("X-Forwarded-For", h.clientIP(r))

	resp, err := upstream.ProxyRequest(r.Context(), r.Method, path, body, headers)
	if err != nil {
		logger.ErrorContext(r.Context(), "Service proxy error", "error", err, "upstream", upstream.Name(), "path", path)
		response.WriteError(w, http.StatusBadGateway, "Service unavailable", response.CodeUpstream)
		return
	}
	defer resp.Body.Close()

	proxy.CopyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.ErrorContext(r.Context(), "Failed to copy response body", "error", err)
	}
}

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"kindergarten/internal/security"
	"kindergarten/internal/session"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	sessions session.Store
	cookies  *security.CookieCodec
	csrf     *security.CSRFSigner
	limiter  *security.RateLimiter
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(sessions session.Store, cookies *security.CookieCodec, csrf *security.CSRFSigner, limiter *security.RateLimiter) *Middleware {
	return &Middleware{
		sessions: sessions,
		cookies:  cookies,
		csrf:     csrf,
		limiter:  limiter,
	}
}

// LoadSession opens the Session Gate named by the session cookie and
// provisions it in the request context. Requests without a valid cookie get
// a fresh, unauthenticated gate.
func (m *Middleware) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if cookie, err := r.Cookie(security.SessionCookieName); err == nil {
			id, err = m.cookies.Decode(cookie.Value)
			if err != nil {
				slog.Debug("discarding session cookie", "error", err)
				http.SetCookie(w, security.CreateDeleteCookie(r))
			}
		}

		gate, err := session.Open(r.Context(), m.sessions, id)
		if err != nil {
			slog.Error("failed to load session", "session_id", id, "error", err)
		}

		next.ServeHTTP(w, r.WithContext(session.WithGate(r.Context(), gate)))
	})
}

// RequireAuth redirects unauthenticated requests to the login page
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !session.FromContext(r.Context()).IsAuthenticated() {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CSRFProtect validates the CSRF token of state-changing requests
func (m *Middleware) CSRFProtect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-CSRF-Token")
		if token == "" {
			token = r.FormValue("csrf_token")
		}

		gate := session.FromContext(r.Context())
		if !m.csrf.Valid(gate.ID(), token) {
			slog.Warn("csrf token rejected", "path", r.URL.Path, "session_id", gate.ID())
			http.Error(w, ErrForbidden, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit throttles requests per client IP
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := security.ClientIP(r)
		if !m.limiter.Allow(ip) {
			slog.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			http.Error(w, ErrTooManyRequests, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Logging logs every request with its status and duration
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

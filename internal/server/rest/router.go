// Package rest exposes the user service over HTTP.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/and161185/shop-users/internal/authz"
	"github.com/and161185/shop-users/internal/errs"
)

// RouterOption configures NewRouter.
type RouterOption func(*routerOptions)

type routerOptions struct {
	trustProxy bool
}

// WithTrustedProxy takes the client address from X-Forwarded-For / X-Real-IP.
// Enable only when every request arrives through a proxy that overwrites
// those headers; otherwise clients choose the address the login limiter sees.
func WithTrustedProxy(on bool) RouterOption {
	return func(o *routerOptions) { o.trustProxy = on }
}

// NewRouter wires the /api/users routes.
func NewRouter(h *UserHandler, guard *authz.Guard, log *zap.Logger, opts ...RouterOption) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	var o routerOptions
	for _, opt := range opts {
		opt(&o)
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if o.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(accessLog(log))
	r.Use(recoverer(log))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, log, errs.NotFound("resource not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, Envelope{Code: http.StatusMethodNotAllowed, Message: "method not allowed"})
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Get("/{userId}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(authenticate(guard, log))
			r.Get("/me", h.Me)
			r.Put("/{userId}", h.Update)
		})
	})
	return r
}

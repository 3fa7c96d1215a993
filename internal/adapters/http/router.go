package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter registers the HTTP routes and middleware stack.
// Centralizing routes here ensures consistent auth and error behavior across
// endpoints.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/auth/v1", func(r chi.Router) {
		r.Post("/register", handler.register)
		r.Post("/login", handler.login)
		r.Post("/refresh", handler.refresh)
		r.Post("/logout", handler.logout)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Post("/logout-all", handler.logoutAll)
			r.Get("/sessions", handler.listSessions)
			r.Delete("/sessions/{session_id}", handler.revokeSession)
			r.Get("/overview", handler.securityOverview)
			r.Get("/login-history", handler.loginHistory)
			r.Post("/deactivate", handler.deactivateAccount)
		})
	})

	r.Route("/alerts/v1", func(r chi.Router) {
		r.Use(handler.authMiddleware)
		r.Post("/", handler.raiseAlert)
		r.Get("/{alert_id}", handler.getAlert)
		r.Post("/{alert_id}/escalate", handler.escalateAlert)
		r.Post("/{alert_id}/notify", handler.notifyAlert)
		r.Post("/{alert_id}/resolve", handler.resolveAlert)
		r.Post("/{alert_id}/assign", handler.assignAlert)
		r.Get("/patterns/{principal_id}", handler.alertPatterns)
	})

	r.Route("/signals/v1", func(r chi.Router) {
		r.Use(handler.authMiddleware)
		r.Post("/chat", handler.chatSignal)
		r.Post("/predictions", handler.predictionSignal)
	})

	return r
}

package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/satriajat/helpdesk-management/internal/attachment"
	"github.com/satriajat/helpdesk-management/internal/auth"
	"github.com/satriajat/helpdesk-management/internal/classify"
	"github.com/satriajat/helpdesk-management/internal/obs"
	"github.com/satriajat/helpdesk-management/internal/orgunit"
	"github.com/satriajat/helpdesk-management/internal/ticket"
	"github.com/satriajat/helpdesk-management/internal/transport/middleware"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth       *auth.Handler
	Ticket     *ticket.Handler
	Attachment *attachment.Handler
	Classify   *classify.Handler
	OrgUnit    *orgunit.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, metricsEnabled bool, metricsPath string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestMeta)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	if metricsEnabled {
		path := metricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, obs.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		// Health check route
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Auth routes
		if h.Auth != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", h.Auth.Login)
				sr.Post("/refresh", h.Auth.RefreshToken)
				sr.Post("/logout", h.Auth.Logout)
			})
		}

		if h.Auth == nil {
			return
		}

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			// Portal ticket routes
			if h.Ticket != nil {
				pr.Route("/tickets", func(tr chi.Router) {
					tr.Post("/", h.Ticket.Create)
					tr.Get("/", h.Ticket.List)
					tr.Get("/{id}", h.Ticket.GetByID)
					tr.Post("/{id}/export", h.Ticket.Export)

					if h.Attachment != nil {
						tr.Post("/{id}/attachments/presign", h.Attachment.Presign)
						tr.Get("/{id}/attachments/{attachmentID}/download", h.Attachment.Download)
					}
				})
			}

			// Agent routes; the agent gate itself runs in the services so
			// denials follow the same error taxonomy as everything else.
			pr.Route("/agent", func(ar chi.Router) {
				if h.Ticket != nil {
					ar.Get("/queues", h.Ticket.AgentQueues)
					ar.Post("/tickets/{id}/assign", h.Ticket.Assign)
					ar.Post("/tickets/{id}/status", h.Ticket.ChangeStatus)
					ar.Post("/tickets/{id}/messages", h.Ticket.PostMessage)
				}
				if h.Attachment != nil {
					ar.Get("/tickets/{id}/attachments/{attachmentID}/download", h.Attachment.DownloadForAgent)
				}
			})

			// Classification and retrieval
			if h.Classify != nil {
				pr.Route("/ai", func(cr chi.Router) {
					cr.Post("/classify", h.Classify.Classify)
					cr.Get("/search", h.Classify.Search)
				})
			}

			// Org tree administration
			if h.OrgUnit != nil {
				pr.Route("/admin/org-units", func(or chi.Router) {
					or.Use(middleware.RequirePermissions(auth.PermAdmin))
					or.Post("/", h.OrgUnit.Create)
					or.Get("/{id}", h.OrgUnit.Get)
					or.Get("/{id}/descendants", h.OrgUnit.Descendants)
				})
			}
		})
	})
}

// NotFoundJSON keeps unknown routes on the JSON error envelope.
func NotFoundJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"code":404,"message":"route not found"}`))
}

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/infra/http/middleware"
)

type RouterConfig struct {
	AuthSecret  []byte
	CORSOrigins []string
	Log         *zap.Logger

	Health        *HealthHandler
	Leads         *LeadHandler
	Conversations *ConversationHandler
	Campaigns     *CampaignHandler
	Tasks         *TaskHandler
	Notifications *NotificationHandler
	Dashboard     *DashboardHandler
	Users         *UserHandler
	Exports       *ExportHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(cfg.Log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", cfg.Health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.AuthSecret))

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", cfg.Leads.List)
			r.Post("/", cfg.Leads.Create)
			r.Post("/bulk-stage", cfg.Leads.BulkStage)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.Leads.Get)
				r.Patch("/", cfg.Leads.Patch)
				r.Put("/", cfg.Leads.Replace)
				r.Delete("/", cfg.Leads.Archive)
				r.Post("/restore", cfg.Leads.Restore)
				r.Get("/conversations", cfg.Conversations.List)
				r.Post("/conversations", cfg.Conversations.Create)
			})
		})
		r.Delete("/conversations/{id}", cfg.Conversations.Delete)

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", cfg.Campaigns.List)
			r.Post("/", cfg.Campaigns.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.Campaigns.Get)
				r.Patch("/", cfg.Campaigns.Patch)
				r.Put("/", cfg.Campaigns.Replace)
				r.Delete("/", cfg.Campaigns.Archive)
				r.Put("/steps", cfg.Campaigns.ReplaceSteps)
				r.Post("/status", cfg.Campaigns.ChangeStatus)
				r.Post("/leads", cfg.Campaigns.Enroll)
				r.Delete("/leads/{leadId}", cfg.Campaigns.Unenroll)
				r.Get("/stats", cfg.Campaigns.Stats)
			})
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", cfg.Tasks.List)
			r.Post("/", cfg.Tasks.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.Tasks.Get)
				r.Patch("/", cfg.Tasks.Patch)
				r.Put("/", cfg.Tasks.Replace)
				r.Delete("/", cfg.Tasks.Delete)
				r.Post("/complete", cfg.Tasks.Complete)
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", cfg.Notifications.List)
			r.Post("/read", cfg.Notifications.MarkRead)
			r.Post("/{id}/unread", cfg.Notifications.MarkUnread)
			r.Post("/{id}/archive", cfg.Notifications.Archive)
			r.Delete("/{id}", cfg.Notifications.Delete)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/", cfg.Dashboard.Metrics)
			r.Get("/timeline", cfg.Dashboard.Timeline)
			r.Get("/metrics/{metric}", cfg.Dashboard.Historical)
			r.Get("/recommendations", cfg.Dashboard.Recommendations)
			r.Get("/priority-tasks", cfg.Dashboard.PriorityTasks)
		})
		r.Post("/suggestions/{id}/accept", cfg.Dashboard.Accept)
		r.Post("/suggestions/{id}/dismiss", cfg.Dashboard.Dismiss)

		r.Route("/users/me", func(r chi.Router) {
			r.Get("/", cfg.Users.Me)
			r.Patch("/", cfg.Users.UpdateMe)
			r.Get("/preferences", cfg.Users.Preferences)
			r.Put("/preferences", cfg.Users.UpdatePreferences)
		})

		r.Post("/exports", cfg.Exports.Export)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponse(w, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})
	return r
}

package handlers

import (
	"issuehub/middleware"
	"issuehub/services"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Version is reported by the root endpoint.
const Version = "v1"

type RouterConfig struct {
	Services    *services.Services
	Log         zerolog.Logger
	CORSOrigins []string
	Metrics     bool // expose /metrics and record request durations
	Development bool
}

func NewRouter(cfg RouterConfig) http.Handler {
	authHandler := NewAuthHandler(cfg.Services.Accounts, cfg.Log)
	projectHandler := NewProjectHandler(cfg.Services.Projects, cfg.Log)
	issueHandler := NewIssueHandler(cfg.Services.Issues, cfg.Log)
	commentHandler := NewCommentHandler(cfg.Services.Comments, cfg.Log)
	requireUser := middleware.RequireUser(cfg.Services.Accounts, cfg.Log)

	r := chi.NewRouter()
	r.Use(chimid.RequestID)
	r.Use(chimid.RealIP)
	r.Use(middleware.RequestLogger(cfg.Log))
	r.Use(chimid.Recoverer)
	if cfg.Metrics {
		r.Use(middleware.Metrics)
	}
	r.Use(middleware.SecureHeaders(cfg.Development))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           int((24 * time.Hour).Seconds()),
		}))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "IssueHub API running", "version": Version})
	})
	if cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/auth/signup", authHandler.Signup)
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Get("/auth/me", authHandler.Me)
			r.Get("/me", authHandler.Me)

			r.Route("/projects", func(r chi.Router) {
				r.Post("/", projectHandler.Create)
				r.Get("/", projectHandler.List)
				r.Delete("/{projectID}", projectHandler.Delete)
				r.Post("/{projectID}/members", projectHandler.AddMember)
				r.Get("/{projectID}/members", projectHandler.ListMembers)
				r.Post("/{projectID}/issues", issueHandler.Create)
				r.Get("/{projectID}/issues", issueHandler.List)
			})

			r.Route("/issues/{issueID}", func(r chi.Router) {
				r.Get("/", issueHandler.Detail)
				r.Patch("/", issueHandler.Update)
				r.Delete("/", issueHandler.Delete)
				r.Post("/comments", commentHandler.Create)
				r.Get("/comments", commentHandler.List)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusNotFound, "", "Not Found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusMethodNotAllowed, "", "Method Not Allowed", nil)
	})
	return r
}

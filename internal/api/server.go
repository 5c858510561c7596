// Package api exposes the progression core over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zennify/zennify/internal/app/engagement"
	"github.com/zennify/zennify/internal/app/identity"
	"github.com/zennify/zennify/internal/health"
	"github.com/zennify/zennify/internal/infra/events"
	"github.com/zennify/zennify/internal/platform/logger"
)

// Version is reported by /api/version.
const Version = "0.1.0"

// Deps are the services the server routes to.
type Deps struct {
	Identity      *identity.Service
	Progress      *engagement.ProgressService
	Quests        *engagement.QuestService
	Moods         *engagement.MoodService
	Notifications *engagement.NotificationService
	Hub           *events.Hub
	Health        *health.Checker
	Logger        *logger.Logger
	CORSOrigins   []string
}

// Server is the Zennify HTTP API server.
type Server struct {
	Deps
	log            *logger.Logger
	metricsEnabled bool
	heartbeat      time.Duration

	draining  chan struct{}
	drainOnce sync.Once
}

// NewServer creates a new API server.
func NewServer(d Deps) *Server {
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		Deps:      d,
		log:       log.With("component", "HTTPServer"),
		heartbeat: 15 * time.Second,
		draining:  make(chan struct{}),
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(instrument)

	r.Get("/health", s.handleHealth)
	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": Version})
	})
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalog/quests", s.handleCatalog)

		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Post("/signup", s.handleSignUp)
			r.Post("/signin", s.handleSignIn)
			r.Post("/signout", s.handleSignOut)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			// Streams outlive the request timeout below.
			r.Get("/events", s.handleEvents)
			r.Get("/auth/state", s.handleAuthState)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(30 * time.Second))

				r.Get("/progress", s.handleProgress)
				r.Get("/badges", s.handleBadges)

				r.Get("/quests", s.handleQuests)
				r.Post("/quests", s.handleCreateQuest)
				r.Post("/quests/{date}/{questID}/complete", s.handleCompleteQuest)

				r.Get("/moods", s.handleMoodHistory)
				r.Get("/moods/trend", s.handleMoodTrend)
				r.Get("/moods/{date}", s.handleGetMood)
				r.Put("/moods/{date}", s.handlePutMood)

				r.Get("/notifications", s.handleNotifications)
				r.Post("/notifications/{id}/shown", s.handleNotificationShown)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	status, code := "ok", http.StatusOK
	if !s.Health.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": s.Health.Statuses(),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    http.StatusText(status),
		},
	})
}

// decodeJSON reads a JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// Package api exposes the dashboard views and mutations over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/azure/outreach-dashboard/internal/identity"
	"github.com/azure/outreach-dashboard/internal/models"
	"github.com/azure/outreach-dashboard/internal/viewmodel"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// ActorHeader carries the id of the signed-in user
const ActorHeader = "X-User-ID"

// Handler serves the dashboard API
type Handler struct {
	social   *viewmodel.SocialDashboard
	emails   *viewmodel.EmailDashboard
	cache    *viewmodel.ViewCache
	location *time.Location
	started  time.Time
}

// NewHandler creates the API handler. Timestamps sent without an offset are
// read in loc.
func NewHandler(social *viewmodel.SocialDashboard, emails *viewmodel.EmailDashboard, cache *viewmodel.ViewCache, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		social:   social,
		emails:   emails,
		cache:    cache,
		location: loc,
		started:  time.Now(),
	}
}

// Router builds the mux router with every route registered
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware, actorMiddleware)

	// Health check endpoint
	router.HandleFunc("/health", h.health).Methods("GET")

	// Cache metrics endpoint
	router.HandleFunc("/metrics", h.metrics).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()

	posts := api.PathPrefix("/publications").Subrouter()
	posts.HandleFunc("", h.listPublications).Methods("GET")
	posts.HandleFunc("", h.createPublication).Methods("POST")
	posts.HandleFunc("/batch", h.createPublications).Methods("POST")
	posts.HandleFunc("/trend", h.publicationTrend).Methods("GET")
	posts.HandleFunc("/stats", h.publicationStats).Methods("GET")
	posts.HandleFunc("/dashboard", h.publicationDashboard).Methods("GET")
	posts.HandleFunc("/report", h.exportReport).Methods("POST")
	posts.HandleFunc("/reports", h.listArchivedReports).Methods("GET")
	posts.HandleFunc("/reports/{name}", h.getArchivedReport).Methods("GET")
	posts.HandleFunc("/reports/{name}", h.deleteArchivedReport).Methods("DELETE")
	posts.HandleFunc("/{id}", h.getPublication).Methods("GET")
	posts.HandleFunc("/{id}", h.updatePublication).Methods("PATCH")
	posts.HandleFunc("/{id}", h.deletePublication).Methods("DELETE")

	emails := api.PathPrefix("/emails").Subrouter()
	emails.HandleFunc("", h.listEmails).Methods("GET")
	emails.HandleFunc("", h.createEmail).Methods("POST")
	emails.HandleFunc("/batch", h.createEmails).Methods("POST")
	emails.HandleFunc("/pending", h.pendingEmails).Methods("GET")
	emails.HandleFunc("/reclassify", h.reclassifyEmails).Methods("POST")
	emails.HandleFunc("/stats", h.emailStats).Methods("GET")
	emails.HandleFunc("/by-state", h.emailsByState).Methods("GET")
	emails.HandleFunc("/top-recipients", h.topRecipients).Methods("GET")
	emails.HandleFunc("/trend", h.emailTrend).Methods("GET")
	emails.HandleFunc("/dashboard", h.emailDashboard).Methods("GET")
	emails.HandleFunc("/{id}", h.getEmail).Methods("GET")
	emails.HandleFunc("/{id}", h.updateEmail).Methods("PATCH")
	emails.HandleFunc("/{id}", h.deleteEmail).Methods("DELETE")

	return router
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"cache":          h.cache.Stats(),
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	})
}

// actorMiddleware moves the actor header into the request context
func actorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor := r.Header.Get(ActorHeader); actor != "" {
			r = r.WithContext(identity.WithActor(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Debug("HTTP request")
	})
}

type errorResponse struct {
	Error    string         `json:"error"`
	Failures []failureEntry `json:"failures,omitempty"`
}

type failureEntry struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrNothingToExport):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrPartialBatchFailure):
		return http.StatusMultiStatus
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logrus.Errorf("Request failed: %v", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return models.ValidationError("corpo da requisição inválido: " + err.Error())
	}
	return nil
}

func queryFilters(r *http.Request) (models.Filters, error) {
	q := r.URL.Query()
	return models.ParseFilters(q.Get("dataInicio"), q.Get("dataFim"))
}

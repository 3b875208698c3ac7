package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/adi-verma/quantscanner/internal/api/handlers"
	"github.com/adi-verma/quantscanner/internal/api/ws"
	"github.com/adi-verma/quantscanner/pkg/logger"
)

// NewRouter wires every endpoint. Routing lives in this function only.
func NewRouter(
	healthHandler *handlers.HealthHandler,
	scanHandler *handlers.ScanHandler,
	reportHandler *handlers.ReportHandler,
	watchlistHandler *handlers.WatchlistHandler,
	jobsHandler *handlers.JobsHandler,
	hub *ws.Hub,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	// Health
	r.HandleFunc("/health", healthHandler.Get).Methods("GET")

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Scan endpoints. "latest" registers before the session wildcard.
	api.HandleFunc("/scan", scanHandler.Trigger).Methods("POST")
	api.HandleFunc("/scan/latest", reportHandler.GetLatest).Methods("GET")
	api.HandleFunc("/scan/attrition", watchlistHandler.GetAttrition).Methods("GET")
	api.HandleFunc("/scan/{session_id}", reportHandler.GetBySession).Methods("GET")

	// Watchlist
	api.HandleFunc("/watchlist/weekly", watchlistHandler.GetWeekly).Methods("GET")

	// Scheduler
	api.HandleFunc("/jobs", jobsHandler.GetStats).Methods("GET")

	// Scan progress stream
	r.Handle("/ws/progress", hub)

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

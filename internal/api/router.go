package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/marchino/etfwatch/internal/api/handlers"
	"github.com/marchino/etfwatch/pkg/logger"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(marketHandler *handlers.MarketHandler, feed *Feed, publicDir string, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")
	r.HandleFunc("/ping", healthCheckHandler).Methods("GET")

	// API
	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/market-status", marketHandler.GetMarketStatus).Methods("GET")
	apiRouter.HandleFunc("/update-all", marketHandler.SubmitUpdate).Methods("POST")
	apiRouter.HandleFunc("/update-funds", marketHandler.SubmitFundUpdate).Methods("POST")
	apiRouter.HandleFunc("/passes/{id}", marketHandler.GetPassStatus).Methods("GET")

	// Live market feed
	r.HandleFunc("/ws/market", feed.Serve)

	// Dashboard static files
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(publicDir)))

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status.
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "etfwatch-api",
	})
}

// loggingMiddleware logs HTTP requests.
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

// recoveryMiddleware recovers from panics.
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

// internal/api/router.go
package api

import (
	"net/http"
	"time"

	"cp1-controllers/internal/interfaces"

	"github.com/gorilla/mux"
)

// NewRouter API 라우트 구성
func NewRouter(h *Handler, logger interfaces.Logger) *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", h.HealthCheck).Methods("GET")

	// Robot state
	api.HandleFunc("/battery", h.GetBattery).Methods("GET")
	api.HandleFunc("/pose", h.GetPose).Methods("GET")

	// Obstacles
	api.HandleFunc("/obstacles", h.ListObstacles).Methods("GET")
	api.HandleFunc("/obstacles", h.PlaceObstacle).Methods("POST")
	api.HandleFunc("/obstacles/{name}", h.RemoveObstacle).Methods("DELETE")

	// Mission history
	api.HandleFunc("/missions", h.ListMissions).Methods("GET")
	api.HandleFunc("/missions/{missionId}", h.GetMission).Methods("GET")

	router.Use(corsMiddleware)
	router.Use(loggingMiddleware(logger))

	return router
}

// NewServer HTTP 서버 생성
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(logger interfaces.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debugf("%s %s %s %v", r.Method, r.RequestURI, r.RemoteAddr, time.Since(start))
		})
	}
}

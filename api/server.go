// Package api exposes a read-only JSON view over the scan cache, the
// historical archive, open theses and the risk state for query tooling.
package api

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"momentum-scout/database/dailycache"
	"momentum-scout/database/history"
	"momentum-scout/database/theses"
	"momentum-scout/database/types"
)

// RiskReporter provides the circuit breaker snapshot without the server
// holding the breaker itself
type RiskReporter interface {
	Status() types.RiskStatus
}

// Server handles HTTP API requests
type Server struct {
	cache   *dailycache.Repository
	archive *history.Repository
	theses  *theses.Repository
	risk    RiskReporter
}

// NewServer creates a new API server instance
func NewServer(cache *dailycache.Repository, archive *history.Repository, thesisRepo *theses.Repository, risk RiskReporter) *Server {
	return &Server{
		cache:   cache,
		archive: archive,
		theses:  thesisRepo,
		risk:    risk,
	}
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port int) error {
	mux := http.NewServeMux()

	// Scan cache routes
	mux.HandleFunc("GET /api/movers", s.handleGetMovers)
	mux.HandleFunc("GET /api/movers/validity", s.handleGetCacheValidity)
	mux.HandleFunc("GET /api/regime", s.handleGetRegime)

	// Historical archive routes
	mux.HandleFunc("GET /api/history", s.handleGetHistory)
	mux.HandleFunc("GET /api/history/range", s.handleGetDateRange)
	mux.HandleFunc("GET /api/history/stats", s.handleGetStatistics)
	mux.HandleFunc("GET /api/history/symbols/{symbol}", s.handleGetSymbolAppearances)

	// Position routes
	mux.HandleFunc("GET /api/positions/open", s.handleGetOpenPositions)
	mux.HandleFunc("GET /api/positions/{orderId}/checks", s.handleGetPriceChecks)

	// Risk routes
	mux.HandleFunc("GET /api/risk/status", s.handleGetRiskStatus)

	mux.HandleFunc("GET /health", s.handleHealth)

	handler := s.corsMiddleware(s.loggingMiddleware(mux))

	serverAddr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Printf("🚀 API Server starting on %s", serverAddr)
	return http.ListenAndServe(serverAddr, handler)
}

// Middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

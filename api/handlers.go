package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func parseLimit(r *http.Request, fallback, max int) int {
	limit := fallback
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if val, err := strconv.Atoi(limitStr); err == nil && val > 0 {
			limit = val
		}
	}
	if max > 0 && limit > max {
		limit = max
	}
	return limit
}

func (s *Server) handleGetMovers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	date := query.Get("date")
	direction := query.Get("direction")
	limit := parseLimit(r, 50, 200)

	records, err := s.cache.Read(date, direction, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}

func (s *Server) handleGetCacheValidity(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		latest, err := s.cache.LatestScanDate()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		date = latest
	}

	valid, err := s.cache.IsValid(date, time.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"date":  date,
		"valid": valid,
	})
}

func (s *Server) handleGetRegime(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	regime, err := s.cache.Regime(date)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if regime == nil {
		http.Error(w, "no regime recorded for date", http.StatusNotFound)
		return
	}
	respondJSON(w, regime)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	symbol := query.Get("symbol")
	startDate := query.Get("start")
	endDate := query.Get("end")

	if startDate == "" {
		http.Error(w, "start date is required", http.StatusBadRequest)
		return
	}

	records, err := s.archive.Query(symbol, startDate, endDate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}

func (s *Server) handleGetDateRange(w http.ResponseWriter, r *http.Request) {
	info, err := s.archive.DateRange()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, info)
}

func (s *Server) handleGetStatistics(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	startDate := query.Get("start")
	endDate := query.Get("end")
	if startDate == "" || endDate == "" {
		http.Error(w, "start and end dates are required", http.StatusBadRequest)
		return
	}

	stats, err := s.archive.Statistics(startDate, endDate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, stats)
}

func (s *Server) handleGetSymbolAppearances(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}

	appearances, err := s.archive.SymbolAppearances(symbol)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, appearances)
}

func (s *Server) handleGetOpenPositions(w http.ResponseWriter, r *http.Request) {
	open, err := s.theses.OpenAll()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"count":     len(open),
		"positions": open,
	})
}

func (s *Server) handleGetPriceChecks(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderId")
	if orderID == "" {
		http.Error(w, "order id is required", http.StatusBadRequest)
		return
	}
	limit := parseLimit(r, 100, 500)

	checks, err := s.theses.PriceChecks(orderID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"order_id": orderID,
		"count":    len(checks),
		"checks":   checks,
	})
}

func (s *Server) handleGetRiskStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.risk.Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

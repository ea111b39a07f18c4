package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/abd-ghreeb/venture-pulse/internal/store"
)

func (s *Server) listVentures(w http.ResponseWriter, r *http.Request) {
	ventures, err := s.ventures.SearchVentures(r.Context(), store.VentureFilter{})
	if err != nil {
		s.logger.Error("list ventures", zap.Error(err))
		writeError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, store.ProjectAll(ventures), http.StatusOK)
}

func (s *Server) filterVentures(w http.ResponseWriter, r *http.Request) {
	filter, err := parseVentureFilter(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ventures, err := s.ventures.SearchVentures(r.Context(), filter)
	if err != nil {
		s.logger.Error("filter ventures", zap.Error(err))
		writeError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, store.ProjectAll(ventures), http.StatusOK)
}

func (s *Server) getVenture(w http.ResponseWriter, r *http.Request) {
	ventureID := strings.TrimSpace(chi.URLParam(r, "id"))
	venture, err := s.ventures.GetVenture(r.Context(), ventureID)
	if err != nil {
		s.logger.Error("get venture", zap.String("venture_id", ventureID), zap.Error(err))
		writeError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if venture == nil {
		writeError(w, "venture not found", http.StatusNotFound)
		return
	}
	writeJSONStatus(w, store.Project(*venture), http.StatusOK)
}

func (s *Server) dashboardStats(w http.ResponseWriter, r *http.Request) {
	ventures, err := s.ventures.SearchVentures(r.Context(), store.VentureFilter{})
	if err != nil {
		s.logger.Error("dashboard stats", zap.Error(err))
		writeError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, store.Summarize(ventures), http.StatusOK)
}

type badQueryError struct {
	param string
}

func (e badQueryError) Error() string {
	return "invalid " + e.param
}

func parseVentureFilter(r *http.Request) (store.VentureFilter, error) {
	values := r.URL.Query()
	filter := store.VentureFilter{
		Pod:    strings.TrimSpace(values.Get("pod")),
		Stage:  strings.TrimSpace(values.Get("stage")),
		Health: strings.TrimSpace(values.Get("health")),
		Text:   strings.TrimSpace(values.Get("search")),
	}
	if raw := strings.TrimSpace(values.Get("min_runway")); raw != "" {
		runway, err := strconv.Atoi(raw)
		if err != nil {
			return store.VentureFilter{}, badQueryError{param: "min_runway"}
		}
		filter.MinRunway = &runway
	}
	if raw := strings.TrimSpace(values.Get("max_burn")); raw != "" {
		burn, err := decimal.NewFromString(raw)
		if err != nil {
			return store.VentureFilter{}, badQueryError{param: "max_burn"}
		}
		filter.MaxBurn = &burn
	}
	return filter, nil
}

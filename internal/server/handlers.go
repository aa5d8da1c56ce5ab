package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/logger"
	"github.com/spigell/matchmaker/internal/match"
	"github.com/spigell/matchmaker/internal/profile"
)

// Item is one entry of the suggestions response.
type Item struct {
	CandidateID string       `json:"candidateId"`
	Name        string       `json:"name"`
	Score       int          `json:"score"`
	Explanation string       `json:"explanation"`
	Tier        match.Tier   `json:"tier"`
	Source      match.Source `json:"source"`
	Intro       string       `json:"intro,omitempty"`
}

type suggestionsResponse struct {
	CustomerID  string `json:"customerId"`
	Suggestions []Item `json:"suggestions"`
}

type historyResponse struct {
	CustomerID  string              `json:"customerId"`
	Suggestions []*match.Suggestion `json:"suggestions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	customerID := mux.Vars(r)["customerId"]

	ranked, err := s.engine.Suggest(r.Context(), customerID)
	if err != nil {
		s.writeError(w, customerID, err)
		return
	}

	items := make([]Item, 0, len(ranked))
	for _, rk := range ranked {
		items = append(items, Item{
			CandidateID: rk.CandidateID,
			Name:        rk.CandidateName,
			Score:       rk.Score,
			Explanation: rk.Explanation,
			Tier:        rk.Tier,
			Source:      rk.Source,
			Intro:       rk.Intro,
		})
	}

	writeJSON(w, http.StatusOK, suggestionsResponse{CustomerID: customerID, Suggestions: items})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	customerID := mux.Vars(r)["customerId"]

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	list, err := s.engine.History(r.Context(), customerID, limit)
	if err != nil {
		s.writeError(w, customerID, err)
		return
	}
	if list == nil {
		list = []*match.Suggestion{}
	}

	writeJSON(w, http.StatusOK, historyResponse{CustomerID: customerID, Suggestions: list})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(s.checks))
	for _, c := range s.checks {
		if err := c.pinger.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", zap.String("dependency", c.name), zap.Error(err))
			deps[c.name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[c.name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}
	writeJSON(w, status, map[string]any{"status": state, "dependencies": deps})
}

func (s *Server) writeError(w http.ResponseWriter, customerID string, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String(logger.FieldCustomer, customerID), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request cancelled or timed out"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

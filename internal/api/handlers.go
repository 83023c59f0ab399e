package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"linkcheck/internal/storage"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	account, accountLinks := s.orch.ActiveAccount()
	s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"state":         s.orch.State(),
		"stats":         s.orch.Stats(),
		"account":       account,
		"account_links": accountLinks,
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.orch.Stop()
	s.respondWithJSON(w, http.StatusAccepted, map[string]string{"message": "stop requested"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	urlParam := r.URL.Query().Get("url")
	if urlParam == "" {
		s.respondWithError(w, http.StatusBadRequest, "URL query parameter is required")
		return
	}
	if s.audit == nil {
		s.respondWithError(w, http.StatusNotFound, "audit store not configured")
		return
	}

	result, err := s.audit.LatestResult(r.Context(), urlParam)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondWithError(w, http.StatusNotFound, "no audited result for URL")
			return
		}
		s.logger.Error("failed to query audit history", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "could not retrieve history")
		return
	}

	s.respondWithJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	healthStatus := make(map[string]string)
	healthy := true

	if s.audit == nil {
		healthStatus["postgres"] = "disabled"
	} else if err := s.audit.Ping(ctx); err != nil {
		healthStatus["postgres"] = "unhealthy"
		healthy = false
		s.logger.Error("health check failed for postgres", zap.Error(err))
	} else {
		healthStatus["postgres"] = "healthy"
	}

	if s.cache == nil {
		healthStatus["redis"] = "disabled"
	} else if err := s.cache.Ping(ctx); err != nil {
		healthStatus["redis"] = "unhealthy"
		healthy = false
		s.logger.Error("health check failed for redis", zap.Error(err))
	} else {
		healthStatus["redis"] = "healthy"
	}

	if !healthy {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}
	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

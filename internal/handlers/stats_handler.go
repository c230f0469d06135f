package handlers

import (
	"net/http"

	"loan-backend/internal/services"
	"loan-backend/pkg/utils"
)

type StatsHandler struct {
	Service *services.StatsService
}

func NewStatsHandler(s *services.StatsService) *StatsHandler {
	return &StatsHandler{Service: s}
}

func (h *StatsHandler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.AdminStats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, stats)
}

func (h *StatsHandler) AgentStats(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentID(w, r)
	if !ok {
		return
	}
	stats, err := h.Service.AgentStats(r.Context(), agent)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, stats)
}

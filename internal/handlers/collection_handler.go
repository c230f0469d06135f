package handlers

import (
	"net/http"

	"loan-backend/internal/apperrors"
	"loan-backend/internal/middleware"
	"loan-backend/internal/models"
	"loan-backend/internal/services"
	"loan-backend/pkg/utils"
)

// CollectionHandler serves the collection endpoints of both roles and the agent workspace
type CollectionHandler struct {
	Collections  *services.CollectionService
	Installments *services.InstallmentService
	Borrowers    *services.BorrowerService
}

func NewCollectionHandler(collections *services.CollectionService, installments *services.InstallmentService, borrowers *services.BorrowerService) *CollectionHandler {
	return &CollectionHandler{
		Collections:  collections,
		Installments: installments,
		Borrowers:    borrowers,
	}
}

// agentID returns the agents.id of the caller; AGENT routes are useless without one
func agentID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, ok := middleware.GetAgentIDFromContext(r.Context())
	if !ok {
		writeError(w, r, apperrors.Forbidden("no agent profile for this user"))
	}
	return id, ok
}

func (h *CollectionHandler) collect(w http.ResponseWriter, r *http.Request, by services.Collector, idVar string) {
	id, err := pathID(r, idVar)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.CollectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.Collections.Collect(r.Context(), by, id, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, result)
}

// AgentCollect handles POST /api/agent/collect/{installmentId}. The installment must belong
// to one of the agent's borrowers.
func (h *CollectionHandler) AgentCollect(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	agent, ok := agentID(w, r)
	if !ok {
		return
	}
	h.collect(w, r, services.Collector{UserID: userID, AgentID: &agent}, "installmentId")
}

// AdminCollect handles POST /api/admin/installments/{id}/collect
func (h *CollectionHandler) AdminCollect(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	h.collect(w, r, services.Collector{UserID: userID}, "id")
}

func (h *CollectionHandler) AgentBorrowers(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentID(w, r)
	if !ok {
		return
	}
	f, err := borrowerFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f.AgentID = &agent
	borrowers, err := h.Borrowers.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, borrowers)
}

func (h *CollectionHandler) AgentBorrower(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentID(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.Borrowers.GetForAgent(r.Context(), agent, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, b)
}

// DueInstallments lists PENDING and OVERDUE rows due up to today for the agent's borrowers
func (h *CollectionHandler) DueInstallments(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentID(w, r)
	if !ok {
		return
	}
	due, err := h.Installments.DueForAgent(r.Context(), agent)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if due == nil {
		due = []models.Installment{}
	}
	utils.JSON(w, http.StatusOK, due)
}

package handlers

import (
	"net/http"

	"loan-backend/internal/models"
	"loan-backend/internal/services"
	"loan-backend/pkg/utils"
)

type InstallmentHandler struct {
	Service *services.InstallmentService
}

func NewInstallmentHandler(s *services.InstallmentService) *InstallmentHandler {
	return &InstallmentHandler{Service: s}
}

func (h *InstallmentHandler) GetInstallment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	inst, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, inst)
}

func (h *InstallmentHandler) UpdateInstallment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.UpdateInstallmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	inst, err := h.Service.Update(r.Context(), id, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, inst)
}

func (h *InstallmentHandler) DeleteInstallment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "Installment deleted successfully"})
}

// Overdue runs the sweep and returns the rows it marked
func (h *InstallmentHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	marked, err := h.Service.Sweep(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if marked == nil {
		marked = []models.Installment{}
	}
	utils.JSON(w, http.StatusOK, marked)
}

// Generate adds this month's interest-only rows to monthly loans that lack one
func (h *InstallmentHandler) Generate(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.GenerateMonthly(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, result)
}

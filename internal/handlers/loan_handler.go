package handlers

import (
	"fmt"
	"net/http"

	"loan-backend/internal/models"
	"loan-backend/internal/services"
	"loan-backend/pkg/utils"
)

type LoanHandler struct {
	Service *services.LoanService
}

func NewLoanHandler(s *services.LoanService) *LoanHandler {
	return &LoanHandler{Service: s}
}

// PreviewLoan returns the schedule a loan would get without saving it
func (h *LoanHandler) PreviewLoan(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLoanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	preview, err := h.Service.Preview(&req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, preview)
}

func (h *LoanHandler) ListBorrowerLoans(w http.ResponseWriter, r *http.Request) {
	borrowerID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	loans, err := h.Service.ListByBorrower(r.Context(), borrowerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, loans)
}

// CreateBorrowerLoan creates a loan and its full schedule
func (h *LoanHandler) CreateBorrowerLoan(w http.ResponseWriter, r *http.Request) {
	borrowerID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.CreateLoanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	loan, err := h.Service.Create(r.Context(), borrowerID, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, loan)
}

func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	loan, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, loan)
}

func (h *LoanHandler) Statement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	pdf, _, err := h.Service.Statement(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePDF(w, fmt.Sprintf("loan_%d_statement.pdf", id), pdf)
}

// ArchiveStatement uploads the statement PDF; 503 when no bucket is configured
func (h *LoanHandler) ArchiveStatement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	key, err := h.Service.ArchiveStatement(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, map[string]string{"key": key})
}

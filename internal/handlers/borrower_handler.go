package handlers

import (
	"net/http"
	"strconv"

	"loan-backend/internal/apperrors"
	"loan-backend/internal/models"
	"loan-backend/internal/services"
	"loan-backend/pkg/utils"
)

type BorrowerHandler struct {
	Service *services.BorrowerService
}

func NewBorrowerHandler(s *services.BorrowerService) *BorrowerHandler {
	return &BorrowerHandler{Service: s}
}

// borrowerFilter reads ?search=&agent_id=&limit=&offset=
func borrowerFilter(r *http.Request) (models.BorrowerFilter, error) {
	q := r.URL.Query()
	f := models.BorrowerFilter{Search: q.Get("search")}
	if raw := q.Get("agent_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return f, apperrors.Invalid("agent_id must be an integer")
		}
		f.AgentID = &id
	}
	var err error
	if f.Limit, err = queryInt(r, "limit", 0); err != nil {
		return f, err
	}
	if f.Offset, err = queryInt(r, "offset", 0); err != nil {
		return f, err
	}
	return f, nil
}

func (h *BorrowerHandler) ListBorrowers(w http.ResponseWriter, r *http.Request) {
	f, err := borrowerFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	borrowers, err := h.Service.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, borrowers)
}

func (h *BorrowerHandler) CreateBorrower(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBorrowerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.Service.Create(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, b)
}

func (h *BorrowerHandler) GetBorrower(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, b)
}

func (h *BorrowerHandler) UpdateBorrower(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.UpdateBorrowerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.Service.Update(r.Context(), id, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, b)
}

// DeleteBorrower answers 409 while the borrower has an ACTIVE loan
func (h *BorrowerHandler) DeleteBorrower(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "Borrower deleted successfully"})
}

// ImportBorrowers creates a batch of borrowers and their first loans atomically
func (h *BorrowerHandler) ImportBorrowers(w http.ResponseWriter, r *http.Request) {
	var req models.ImportBorrowersRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.Service.Import(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, result)
}

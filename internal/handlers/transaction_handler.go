package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"loan-backend/internal/apperrors"
	"loan-backend/internal/models"
	"loan-backend/internal/services"
	"loan-backend/internal/timeutil"
	"loan-backend/pkg/utils"
)

type TransactionHandler struct {
	Service *services.TransactionService
}

func NewTransactionHandler(s *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{Service: s}
}

// transactionFilter reads ?search=&type=&category=&from=&to=&created_by=&page=&limit=
func transactionFilter(r *http.Request) (models.TransactionFilter, error) {
	q := r.URL.Query()
	f := models.TransactionFilter{
		Search:   q.Get("search"),
		Type:     models.TransactionType(q.Get("type")),
		Category: models.Category(q.Get("category")),
	}
	for name, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		t, err := timeutil.ParseDate(raw)
		if err != nil {
			return f, apperrors.Invalid("%s must be a YYYY-MM-DD date", name)
		}
		*dst = &t
	}
	if raw := q.Get("created_by"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return f, apperrors.Invalid("created_by must be an integer")
		}
		f.CreatedBy = &id
	}
	var err error
	if f.Page, err = queryInt(r, "page", 1); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(r, "limit", 0); err != nil {
		return f, err
	}
	return f, nil
}

func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := transactionFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.Service.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, page)
}

func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.CreateTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.Service.Create(r.Context(), userID, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, t)
}

func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, t)
}

func (h *TransactionHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.UpdateTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.Service.Update(r.Context(), id, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, t)
}

// DeleteTransaction removes a ledger row and, for a collection row, reverts its installment
func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rev, err := h.Service.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, rev)
}

func (h *TransactionHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	pdf, err := h.Service.Receipt(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePDF(w, fmt.Sprintf("receipt_%d.pdf", id), pdf)
}

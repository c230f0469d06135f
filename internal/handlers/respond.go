package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"loan-backend/internal/apperrors"
	"loan-backend/internal/middleware"
	"loan-backend/pkg/utils"
)

const maxBodyBytes = 1 << 20

var errBadBody = errors.New("invalid request body")

// decodeJSON reads a JSON body into v and runs struct validation on it.
// A *validationError is returned for rule failures so the caller can list them.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %v", apperrors.ErrInvalidRequest, errBadBody)
		}
		return fmt.Errorf("%w: %v: %v", apperrors.ErrInvalidRequest, errBadBody, err)
	}
	if err := validate.Struct(v); err != nil {
		return &validationError{details: ToFieldErrors(err)}
	}
	return nil
}

type validationError struct {
	details []FieldError
}

func (e *validationError) Error() string { return "validation failed" }

func (e *validationError) Unwrap() error { return apperrors.ErrInvalidRequest }

// pathID parses a positive integer mux variable
func pathID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id <= 0 {
		return 0, apperrors.Invalid("%s must be a positive integer", name)
	}
	return id, nil
}

// writeError maps err onto its status code. Internal errors are logged and
// replaced with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)

	var ve *validationError
	if errors.As(err, &ve) {
		utils.JSON(w, http.StatusBadRequest, ErrorResponse{Error: ve.Error(), Details: ve.details})
		return
	}
	if status == http.StatusInternalServerError {
		middleware.LoggerFromContext(r.Context()).Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		utils.Error(w, status, "internal server error")
		return
	}
	utils.Error(w, status, err.Error())
}

func writePDF(w http.ResponseWriter, filename string, body []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// queryInt reads an optional integer query parameter
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Invalid("%s must be an integer", name)
	}
	return n, nil
}

package lending

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"libracore/internal/errs"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the lending endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/loans", h.handleBorrow)
	r.Post("/loans/{id}/return", h.handleReturn)
	r.Get("/users/{id}/loans", h.handleLoansByUser)
	r.Get("/users/{id}/fine", h.handleTotalFine)
	r.Get("/loans/active/count", h.handleActiveCount)
}

func (h *Handler) handleBorrow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID     uuid.UUID `json:"user_id"`
		BookID     uuid.UUID `json:"book_id"`
		BorrowDate time.Time `json:"borrow_date"`
		ReturnDate time.Time `json:"return_date"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	loan, err := h.service.Borrow(r.Context(), req.UserID, req.BookID, req.BorrowDate, req.ReturnDate)
	if err != nil {
		http.Error(w, err.Error(), borrowStatus(err))
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(loan)
}

func borrowStatus(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrIneligible),
		errors.Is(err, errs.ErrNoCopies),
		errors.Is(err, errs.ErrAlreadyBorrowed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid loan ID", http.StatusBadRequest)
		return
	}

	loan, err := h.service.Return(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, errs.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, errs.ErrLoanClosed):
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}

	json.NewEncoder(w).Encode(loan)
}

func (h *Handler) handleLoansByUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid user ID", http.StatusBadRequest)
		return
	}

	loans, err := h.service.LoansByUser(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errs.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	json.NewEncoder(w).Encode(loans)
}

func (h *Handler) handleTotalFine(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid user ID", http.StatusBadRequest)
		return
	}

	total, err := h.service.TotalUnpaidFine(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errs.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	json.NewEncoder(w).Encode(struct {
		TotalFine int `json:"total_fine"`
	}{TotalFine: total})
}

func (h *Handler) handleActiveCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.ActiveLoanCount(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(struct {
		Count int `json:"count"`
	}{Count: count})
}

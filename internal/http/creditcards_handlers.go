package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"finbook/internal/audit"
	"finbook/internal/store"
)

type CreditCardHandler struct {
	db       *sql.DB
	logger   requestLogger
	validate *validator.Validate
	activity *audit.Log
}

func NewCreditCardHandler(db *sql.DB, logger requestLogger, validate *validator.Validate, activity *audit.Log) *CreditCardHandler {
	return &CreditCardHandler{
		db:       db,
		logger:   logger,
		validate: validate,
		activity: activity,
	}
}

type createCreditCardRequest struct {
	Name        string `json:"name" validate:"required"`
	AccountID   int64  `json:"account_id" validate:"required,gt=0"`
	CreditLimit string `json:"credit_limit"`
	ClosingDay  int    `json:"closing_day" validate:"omitempty,min=1,max=28"`
	DueDay      int    `json:"due_day" validate:"omitempty,min=1,max=28"`
}

type updateCreditCardRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1"`
	CreditLimit *string `json:"credit_limit"`
	ClosingDay  *int    `json:"closing_day" validate:"omitempty,min=1,max=28"`
	DueDay      *int    `json:"due_day" validate:"omitempty,min=1,max=28"`
}

func (h *CreditCardHandler) List(w http.ResponseWriter, r *http.Request) {
	cards, err := store.ListCreditCards(r.Context(), h.db)
	if err != nil {
		h.logger.Error("list credit cards failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list credit cards")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"credit_cards": cards})
}

func (h *CreditCardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCreditCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid json body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	card, err := store.CreateCreditCard(r.Context(), h.db, store.CreateCreditCardInput{
		Name:        req.Name,
		AccountID:   req.AccountID,
		CreditLimit: req.CreditLimit,
		ClosingDay:  req.ClosingDay,
		DueDay:      req.DueDay,
	})
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			writeError(w, http.StatusBadRequest, "validation_error", "account does not exist")
			return
		}
		if errors.Is(err, store.ErrCreditCardNameEmpty) ||
			errors.Is(err, store.ErrCreditCardBadDay) ||
			errors.Is(err, store.ErrBadAmount) {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		h.logger.Error("create credit card failed", "error", err)
		writeError(w, http.StatusInternalServerError, "create_failed", "failed to create credit card")
		return
	}

	h.activity.Info(r.Context(), "create_credit_card", "credit_card",
		fmt.Sprintf("created credit card %s", card.Name), card.ID)
	writeJSON(w, http.StatusCreated, card)
}

func (h *CreditCardHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid credit card id")
		return
	}
	card, err := store.GetCreditCard(r.Context(), h.db, id)
	if err != nil {
		if errors.Is(err, store.ErrCreditCardNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "credit card not found")
			return
		}
		h.logger.Error("get credit card failed", "error", err)
		writeError(w, http.StatusInternalServerError, "lookup_failed", "failed to fetch credit card")
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (h *CreditCardHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid credit card id")
		return
	}
	var req updateCreditCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid json body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	card, err := store.UpdateCreditCard(r.Context(), h.db, id, store.UpdateCreditCardInput{
		Name:        req.Name,
		CreditLimit: req.CreditLimit,
		ClosingDay:  req.ClosingDay,
		DueDay:      req.DueDay,
	})
	if err != nil {
		if errors.Is(err, store.ErrCreditCardNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "credit card not found")
			return
		}
		if errors.Is(err, store.ErrCreditCardBadDay) || errors.Is(err, store.ErrBadAmount) {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		h.logger.Error("update credit card failed", "error", err)
		writeError(w, http.StatusInternalServerError, "update_failed", "failed to update credit card")
		return
	}

	h.activity.Info(r.Context(), "update_credit_card", "credit_card",
		fmt.Sprintf("updated credit card %s", card.Name), card.ID)
	writeJSON(w, http.StatusOK, card)
}

func (h *CreditCardHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid credit card id")
		return
	}
	if err := store.DeactivateCreditCard(r.Context(), h.db, id); err != nil {
		if errors.Is(err, store.ErrCreditCardNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "credit card not found")
			return
		}
		h.logger.Error("deactivate credit card failed", "error", err)
		writeError(w, http.StatusInternalServerError, "deactivate_failed", "failed to deactivate credit card")
		return
	}

	h.activity.Info(r.Context(), "deactivate_credit_card", "credit_card",
		fmt.Sprintf("deactivated credit card %d", id), id)
	w.WriteHeader(http.StatusNoContent)
}

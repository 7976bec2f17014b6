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

type AccountHandler struct {
	db       *sql.DB
	logger   requestLogger
	validate *validator.Validate
	activity *audit.Log
}

func NewAccountHandler(db *sql.DB, logger requestLogger, validate *validator.Validate, activity *audit.Log) *AccountHandler {
	return &AccountHandler{
		db:       db,
		logger:   logger,
		validate: validate,
		activity: activity,
	}
}

type createAccountRequest struct {
	Name           string `json:"name" validate:"required"`
	Type           string `json:"type" validate:"omitempty,oneof=checking savings wallet investment"`
	Currency       string `json:"currency" validate:"omitempty,len=3,alpha"`
	OpeningBalance string `json:"opening_balance"`
	Notes          string `json:"notes"`
}

type updateAccountRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1"`
	Type     *string `json:"type" validate:"omitempty,oneof=checking savings wallet investment"`
	Currency *string `json:"currency" validate:"omitempty,len=3,alpha"`
	Notes    *string `json:"notes"`
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := store.ListAccounts(r.Context(), h.db)
	if err != nil {
		h.logger.Error("list accounts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list accounts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid json body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	account, err := store.CreateAccount(r.Context(), h.db, store.CreateAccountInput{
		Name:           req.Name,
		Type:           req.Type,
		Currency:       req.Currency,
		OpeningBalance: req.OpeningBalance,
		Notes:          req.Notes,
	})
	if err != nil {
		if errors.Is(err, store.ErrAccountNameEmpty) ||
			errors.Is(err, store.ErrAccountBadType) ||
			errors.Is(err, store.ErrBadAmount) {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		h.logger.Error("create account failed", "error", err)
		writeError(w, http.StatusInternalServerError, "create_failed", "failed to create account")
		return
	}

	h.activity.Info(r.Context(), "create_account", "account",
		fmt.Sprintf("created account %s", account.Name), account.ID)
	writeJSON(w, http.StatusCreated, account)
}

func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid account id")
		return
	}
	account, err := store.GetAccount(r.Context(), h.db, id)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "account not found")
			return
		}
		h.logger.Error("get account failed", "error", err)
		writeError(w, http.StatusInternalServerError, "lookup_failed", "failed to fetch account")
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid account id")
		return
	}
	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid json body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	account, err := store.UpdateAccount(r.Context(), h.db, id, store.UpdateAccountInput{
		Name:     req.Name,
		Type:     req.Type,
		Currency: req.Currency,
		Notes:    req.Notes,
	})
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "account not found")
			return
		}
		if errors.Is(err, store.ErrAccountBadType) {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		h.logger.Error("update account failed", "error", err)
		writeError(w, http.StatusInternalServerError, "update_failed", "failed to update account")
		return
	}

	h.activity.Info(r.Context(), "update_account", "account",
		fmt.Sprintf("updated account %s", account.Name), account.ID)
	writeJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid account id")
		return
	}
	if err := store.DeactivateAccount(r.Context(), h.db, id); err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "account not found")
			return
		}
		h.logger.Error("deactivate account failed", "error", err)
		writeError(w, http.StatusInternalServerError, "deactivate_failed", "failed to deactivate account")
		return
	}

	h.activity.Info(r.Context(), "deactivate_account", "account",
		fmt.Sprintf("deactivated account %d", id), id)
	w.WriteHeader(http.StatusNoContent)
}

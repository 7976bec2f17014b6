package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"finbook/internal/audit"
	"finbook/internal/store"
)

const dateLayout = "2006-01-02"

type TransactionHandler struct {
	db       *sql.DB
	logger   requestLogger
	validate *validator.Validate
	activity *audit.Log
}

func NewTransactionHandler(db *sql.DB, logger requestLogger, validate *validator.Validate, activity *audit.Log) *TransactionHandler {
	return &TransactionHandler{
		db:       db,
		logger:   logger,
		validate: validate,
		activity: activity,
	}
}

type createTransactionRequest struct {
	Description  string  `json:"description" validate:"required"`
	Amount       string  `json:"amount" validate:"required"`
	Kind         string  `json:"kind" validate:"omitempty,oneof=income expense transfer"`
	OccurredOn   string  `json:"occurred_on" validate:"required,datetime=2006-01-02"`
	AccountID    int64   `json:"account_id" validate:"required,gt=0"`
	CategoryID   *int64  `json:"category_id" validate:"omitempty,gt=0"`
	CreditCardID *int64  `json:"credit_card_id" validate:"omitempty,gt=0"`
	Notes        string  `json:"notes"`
	TagIDs       []int64 `json:"tag_ids" validate:"omitempty,dive,gt=0"`
}

type updateTransactionRequest struct {
	Description  *string `json:"description" validate:"omitempty,min=1"`
	Amount       *string `json:"amount"`
	Kind         *string `json:"kind" validate:"omitempty,oneof=income expense transfer"`
	OccurredOn   *string `json:"occurred_on" validate:"omitempty,datetime=2006-01-02"`
	CategoryID   *int64  `json:"category_id" validate:"omitempty,gt=0"`
	CreditCardID *int64  `json:"credit_card_id" validate:"omitempty,gt=0"`
	Notes        *string `json:"notes"`
	TagIDs       []int64 `json:"tag_ids" validate:"omitempty,dive,gt=0"`
}

func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid json body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	occurredOn, err := time.Parse(dateLayout, req.OccurredOn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "occurred_on must be YYYY-MM-DD")
		return
	}

	transaction, err := store.CreateTransaction(r.Context(), h.db, store.CreateTransactionInput{
		Description:  req.Description,
		Amount:       req.Amount,
		Kind:         req.Kind,
		OccurredOn:   occurredOn,
		AccountID:    req.AccountID,
		CategoryID:   req.CategoryID,
		CreditCardID: req.CreditCardID,
		Notes:        req.Notes,
		TagIDs:       req.TagIDs,
	})
	if err != nil {
		if isTransactionInputError(err) {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		h.logger.Error("create transaction failed", "error", err)
		writeError(w, http.StatusInternalServerError, "create_failed", "failed to create transaction")
		return
	}

	h.activity.Info(r.Context(), "create_transaction", "transaction",
		fmt.Sprintf("created transaction %s (%s %s)", transaction.Description, transaction.Kind, transaction.Amount),
		transaction.ID)
	writeJSON(w, http.StatusCreated, transaction)
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTransactionFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}
	transactions, err := store.ListTransactions(r.Context(), h.db, filter)
	if err != nil {
		if errors.Is(err, store.ErrTransactionBadKind) {
			writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
			return
		}
		h.logger.Error("list transactions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list transactions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": transactions})
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid transaction id")
		return
	}
	transaction, err := store.GetTransaction(r.Context(), h.db, id)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "transaction not found")
			return
		}
		h.logger.Error("get transaction failed", "error", err)
		writeError(w, http.StatusInternalServerError, "lookup_failed", "failed to fetch transaction")
		return
	}
	writeJSON(w, http.StatusOK, transaction)
}

func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid transaction id")
		return
	}
	var req updateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid json body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	input := store.UpdateTransactionInput{
		Description:  req.Description,
		Amount:       req.Amount,
		Kind:         req.Kind,
		CategoryID:   req.CategoryID,
		CreditCardID: req.CreditCardID,
		Notes:        req.Notes,
		TagIDs:       req.TagIDs,
	}
	if req.OccurredOn != nil {
		occurredOn, err := time.Parse(dateLayout, *req.OccurredOn)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "occurred_on must be YYYY-MM-DD")
			return
		}
		input.OccurredOn = &occurredOn
	}

	transaction, err := store.UpdateTransaction(r.Context(), h.db, id, input)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "transaction not found")
			return
		}
		if isTransactionInputError(err) {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		h.logger.Error("update transaction failed", "error", err)
		writeError(w, http.StatusInternalServerError, "update_failed", "failed to update transaction")
		return
	}

	h.activity.Info(r.Context(), "update_transaction", "transaction",
		fmt.Sprintf("updated transaction %s", transaction.Description), transaction.ID)
	writeJSON(w, http.StatusOK, transaction)
}

func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid transaction id")
		return
	}
	if err := store.DeleteTransaction(r.Context(), h.db, id); err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "transaction not found")
			return
		}
		h.logger.Error("delete transaction failed", "error", err)
		writeError(w, http.StatusInternalServerError, "delete_failed", "failed to delete transaction")
		return
	}

	h.activity.Info(r.Context(), "delete_transaction", "transaction",
		fmt.Sprintf("deleted transaction %d", id), id)
	w.WriteHeader(http.StatusNoContent)
}

// Summary aggregates a date range, defaulting to the current month.
func (h *TransactionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)

	var err error
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err = time.Parse(dateLayout, raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_filter", "from must be YYYY-MM-DD")
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err = time.Parse(dateLayout, raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_filter", "to must be YYYY-MM-DD")
			return
		}
	}
	accountID, err := queryInt64(r, "account_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_filter", "account_id must be an integer")
		return
	}

	summary, err := store.SummarizeTransactions(r.Context(), h.db, from, to, accountID)
	if err != nil {
		h.logger.Error("summarize transactions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "summary_failed", "failed to summarize transactions")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func parseTransactionFilter(r *http.Request) (store.TransactionFilter, error) {
	var (
		filter store.TransactionFilter
		err    error
	)
	if filter.AccountID, err = queryInt64(r, "account_id"); err != nil {
		return filter, errors.New("account_id must be an integer")
	}
	if filter.CategoryID, err = queryInt64(r, "category_id"); err != nil {
		return filter, errors.New("category_id must be an integer")
	}
	if filter.CreditCardID, err = queryInt64(r, "credit_card_id"); err != nil {
		return filter, errors.New("credit_card_id must be an integer")
	}
	if filter.TagID, err = queryInt64(r, "tag_id"); err != nil {
		return filter, errors.New("tag_id must be an integer")
	}
	filter.Kind = r.URL.Query().Get("kind")
	filter.Query = r.URL.Query().Get("q")
	if raw := r.URL.Query().Get("from"); raw != "" {
		if filter.From, err = time.Parse(dateLayout, raw); err != nil {
			return filter, errors.New("from must be YYYY-MM-DD")
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if filter.To, err = time.Parse(dateLayout, raw); err != nil {
			return filter, errors.New("to must be YYYY-MM-DD")
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return filter, errors.New("limit must be a positive integer")
		}
		filter.Limit = limit
	}
	return filter, nil
}

func queryInt64(r *http.Request, key string) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

// isTransactionInputError covers everything the client can fix, including
// references to rows that do not exist.
func isTransactionInputError(err error) bool {
	return errors.Is(err, store.ErrDescriptionEmpty) ||
		errors.Is(err, store.ErrBadAmount) ||
		errors.Is(err, store.ErrTransactionBadKind) ||
		errors.Is(err, store.ErrOccurredOnEmpty) ||
		errors.Is(err, store.ErrAccountNotFound) ||
		errors.Is(err, store.ErrCategoryNotFound) ||
		errors.Is(err, store.ErrCreditCardNotFound) ||
		errors.Is(err, store.ErrTagNotFound)
}

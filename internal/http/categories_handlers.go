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

type CategoryHandler struct {
	db       *sql.DB
	logger   requestLogger
	validate *validator.Validate
	activity *audit.Log
}

func NewCategoryHandler(db *sql.DB, logger requestLogger, validate *validator.Validate, activity *audit.Log) *CategoryHandler {
	return &CategoryHandler{
		db:       db,
		logger:   logger,
		validate: validate,
		activity: activity,
	}
}

type createCategoryRequest struct {
	Name  string `json:"name" validate:"required"`
	Kind  string `json:"kind" validate:"omitempty,oneof=income expense"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

type updateCategoryRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1"`
	Kind  *string `json:"kind" validate:"omitempty,oneof=income expense"`
	Color *string `json:"color" validate:"omitempty,hexcolor"`
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := store.ListCategories(r.Context(), h.db)
	if err != nil {
		h.logger.Error("list categories failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list categories")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid json body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	category, err := store.CreateCategory(r.Context(), h.db, store.CreateCategoryInput{
		Name:  req.Name,
		Kind:  req.Kind,
		Color: req.Color,
	})
	if err != nil {
		if errors.Is(err, store.ErrCategoryNameEmpty) ||
			errors.Is(err, store.ErrCategoryNameExists) ||
			errors.Is(err, store.ErrCategoryBadKind) {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		h.logger.Error("create category failed", "error", err)
		writeError(w, http.StatusInternalServerError, "create_failed", "failed to create category")
		return
	}

	h.activity.Info(r.Context(), "create_category", "category",
		fmt.Sprintf("created category %s", category.Name), category.ID)
	writeJSON(w, http.StatusCreated, category)
}

func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid category id")
		return
	}
	category, err := store.GetCategory(r.Context(), h.db, id)
	if err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "category not found")
			return
		}
		h.logger.Error("get category failed", "error", err)
		writeError(w, http.StatusInternalServerError, "lookup_failed", "failed to fetch category")
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid category id")
		return
	}
	var req updateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid json body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	category, err := store.UpdateCategory(r.Context(), h.db, id, store.UpdateCategoryInput{
		Name:  req.Name,
		Kind:  req.Kind,
		Color: req.Color,
	})
	if err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "category not found")
			return
		}
		if errors.Is(err, store.ErrCategoryNameExists) || errors.Is(err, store.ErrCategoryBadKind) {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		h.logger.Error("update category failed", "error", err)
		writeError(w, http.StatusInternalServerError, "update_failed", "failed to update category")
		return
	}

	h.activity.Info(r.Context(), "update_category", "category",
		fmt.Sprintf("updated category %s", category.Name), category.ID)
	writeJSON(w, http.StatusOK, category)
}

func (h *CategoryHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid category id")
		return
	}
	if err := store.ArchiveCategory(r.Context(), h.db, id); err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "category not found")
			return
		}
		h.logger.Error("archive category failed", "error", err)
		writeError(w, http.StatusInternalServerError, "archive_failed", "failed to archive category")
		return
	}

	h.activity.Info(r.Context(), "archive_category", "category",
		fmt.Sprintf("archived category %d", id), id)
	w.WriteHeader(http.StatusNoContent)
}

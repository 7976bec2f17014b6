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

type TagHandler struct {
	db       *sql.DB
	logger   requestLogger
	validate *validator.Validate
	activity *audit.Log
}

func NewTagHandler(db *sql.DB, logger requestLogger, validate *validator.Validate, activity *audit.Log) *TagHandler {
	return &TagHandler{
		db:       db,
		logger:   logger,
		validate: validate,
		activity: activity,
	}
}

type createTagRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	tags, err := store.ListTags(r.Context(), h.db)
	if err != nil {
		h.logger.Error("list tags failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list tags")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

func (h *TagHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid json body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	tag, err := store.CreateTag(r.Context(), h.db, req.Name)
	if err != nil {
		if errors.Is(err, store.ErrTagNameEmpty) || errors.Is(err, store.ErrTagNameExists) {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		h.logger.Error("create tag failed", "error", err)
		writeError(w, http.StatusInternalServerError, "create_failed", "failed to create tag")
		return
	}

	h.activity.Info(r.Context(), "create_tag", "tag",
		fmt.Sprintf("created tag %s", tag.Name), tag.ID)
	writeJSON(w, http.StatusCreated, tag)
}

func (h *TagHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid tag id")
		return
	}
	tag, err := store.GetTag(r.Context(), h.db, id)
	if err != nil {
		if errors.Is(err, store.ErrTagNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "tag not found")
			return
		}
		h.logger.Error("get tag failed", "error", err)
		writeError(w, http.StatusInternalServerError, "get_failed", "failed to load tag")
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

func (h *TagHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid tag id")
		return
	}
	if err := store.DeleteTag(r.Context(), h.db, id); err != nil {
		if errors.Is(err, store.ErrTagNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "tag not found")
			return
		}
		h.logger.Error("delete tag failed", "error", err)
		writeError(w, http.StatusInternalServerError, "delete_failed", "failed to delete tag")
		return
	}

	h.activity.Info(r.Context(), "delete_tag", "tag",
		fmt.Sprintf("deleted tag %d", id), id)
	w.WriteHeader(http.StatusNoContent)
}

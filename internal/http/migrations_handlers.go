package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"finbook/internal/metrics"
	"finbook/internal/migration"
)

// MigrationHandler exposes the recorded migration groups and lets an
// operator replay them. Replays are deliberate admin actions; nothing
// here runs on a schedule.
type MigrationHandler struct {
	db       *sql.DB
	logger   requestLogger
	validate *validator.Validate
	executor *migration.Executor
	metrics  *metrics.Metrics
}

func NewMigrationHandler(db *sql.DB, logger requestLogger, validate *validator.Validate, executor *migration.Executor, m *metrics.Metrics) *MigrationHandler {
	return &MigrationHandler{
		db:       db,
		logger:   logger,
		validate: validate,
		executor: executor,
		metrics:  m,
	}
}

type createGroupRequest struct {
	Name        string   `json:"name"`
	UpQueries   []string `json:"up_queries" validate:"required,min=1,dive,required"`
	DownQueries []string `json:"down_queries" validate:"omitempty,dive,required"`
}

func (h *MigrationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_filter", "limit must be a positive integer")
			return
		}
		limit = n
	}
	groups, err := migration.ListGroups(r.Context(), h.db, limit)
	if err != nil {
		h.logger.Error("list migration groups failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list migration groups")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (h *MigrationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid group id")
		return
	}
	group, err := migration.GetGroup(r.Context(), h.db, id)
	if err != nil {
		if errors.Is(err, migration.ErrGroupNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "migration group not found")
			return
		}
		h.logger.Error("get migration group failed", "error", err)
		writeError(w, http.StatusInternalServerError, "lookup_failed", "failed to fetch migration group")
		return
	}
	entries, err := migration.ListEntries(r.Context(), h.db, id)
	if err != nil {
		h.logger.Error("list migration entries failed", "error", err)
		writeError(w, http.StatusInternalServerError, "lookup_failed", "failed to fetch migration entries")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"group": group, "entries": entries})
}

func (h *MigrationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid json body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	group, err := h.executor.CreateGroup(r.Context(), req.Name, req.UpQueries, req.DownQueries)
	if err != nil {
		h.logger.Error("create migration group failed", "error", err)
		writeError(w, http.StatusInternalServerError, "create_failed", "failed to create migration group")
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

func (h *MigrationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	h.replay(w, r, migration.DirectionApply)
}

func (h *MigrationHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	h.replay(w, r, migration.DirectionRollback)
}

func (h *MigrationHandler) replay(w http.ResponseWriter, r *http.Request, direction migration.Direction) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid group id")
		return
	}

	err = h.executor.ExecuteGroup(r.Context(), id, direction)
	h.metrics.RecordReplay(string(direction), err == nil)
	if err != nil {
		if errors.Is(err, migration.ErrGroupNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "migration group not found")
			return
		}
		h.logger.Error("replay migration group failed", "group_id", id, "direction", string(direction), "error", err)
		writeError(w, http.StatusConflict, "replay_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"group_id":  id,
		"direction": string(direction),
		"status":    "ok",
	})
}

package ops

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/queuekit/queuekit/pkg/logger"
	"github.com/queuekit/queuekit/pkg/queue"
)

// TaskStore is the read-and-repair surface the operator API needs.
// *pgqueue.Storage satisfies it.
type TaskStore interface {
	GetTask(ctx context.Context, taskID uuid.UUID) (*queue.Task, error)
	SearchTasks(ctx context.Context, orgID *uuid.UUID, substring string, limit int) ([]queue.Task, error)
	ListStuck(ctx context.Context, olderThan time.Duration, limit int) ([]queue.Task, error)
	ListDLQ(ctx context.Context, orgID *uuid.UUID, limit int) ([]queue.TasksDlq, error)
	RequeueTask(ctx context.Context, taskID uuid.UUID) error
}

// API serves the operator endpoints: task lookup and search, the stuck
// list, the dead letter queue and manual requeue. Everything except
// requeue is read-only.
type API struct {
	store  TaskStore
	health []func(context.Context) error
	log    *slog.Logger
}

// NewAPI creates the operator API. Health check funcs run on every
// GET /health call; pass pg.Healthcheck(pool) to cover the database.
func NewAPI(store TaskStore, log *slog.Logger, health ...func(context.Context) error) *API {
	if log == nil {
		log = slog.Default()
	}
	return &API{store: store, health: health, log: log}
}

// Router builds the chi router for the API.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", a.handleHealth)
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", a.handleSearch)
		r.Get("/stuck", a.handleStuck)
		r.Get("/{taskID}", a.handleGet)
		r.Post("/{taskID}/requeue", a.handleRequeue)
	})
	r.Get("/dlq", a.handleDLQ)

	return r
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	for _, check := range a.health {
		if err := check(r.Context()); err != nil {
			a.log.ErrorContext(r.Context(), "health check failed", logger.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	orgID, err := parseOrgParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid org parameter")
		return
	}

	tasks, err := a.store.SearchTasks(r.Context(), orgID, r.URL.Query().Get("q"), parseLimit(r))
	if err != nil {
		a.log.ErrorContext(r.Context(), "task search failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, taskList{Tasks: tasks, Count: len(tasks)})
}

func (a *API) handleStuck(w http.ResponseWriter, r *http.Request) {
	olderThan := time.Hour
	if raw := r.URL.Query().Get("older_than"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "invalid older_than parameter")
			return
		}
		olderThan = d
	}

	tasks, err := a.store.ListStuck(r.Context(), olderThan, parseLimit(r))
	if err != nil {
		a.log.ErrorContext(r.Context(), "stuck task listing failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}
	writeJSON(w, http.StatusOK, taskList{Tasks: tasks, Count: len(tasks)})
}

func (a *API) handleGet(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	task, err := a.store.GetTask(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, queue.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		a.log.ErrorContext(r.Context(), "task lookup failed", logger.TaskID(taskID), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (a *API) handleRequeue(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	if err := a.store.RequeueTask(r.Context(), taskID); err != nil {
		switch {
		case errors.Is(err, queue.ErrTaskNotFound):
			writeError(w, http.StatusNotFound, "task not found")
		case errors.Is(err, queue.ErrTaskNotProcessing):
			writeError(w, http.StatusConflict, "task is not in processing state")
		default:
			a.log.ErrorContext(r.Context(), "requeue failed", logger.TaskID(taskID), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "requeue failed")
		}
		return
	}

	a.log.InfoContext(r.Context(), "task requeued by operator", logger.TaskID(taskID))
	writeJSON(w, http.StatusOK, map[string]string{"status": "requeued"})
}

func (a *API) handleDLQ(w http.ResponseWriter, r *http.Request) {
	orgID, err := parseOrgParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid org parameter")
		return
	}

	entries, err := a.store.ListDLQ(r.Context(), orgID, parseLimit(r))
	if err != nil {
		a.log.ErrorContext(r.Context(), "DLQ listing failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

type taskList struct {
	Tasks []queue.Task `json:"tasks"`
	Count int          `json:"count"`
}

func parseOrgParam(r *http.Request) (*uuid.UUID, error) {
	raw := r.URL.Query().Get("org")
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

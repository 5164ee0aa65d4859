package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"archie-core-commerce-sync/internal/application"
	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// SyncRunner runs tenant orchestrations
type SyncRunner interface {
	RunSync(ctx context.Context, req application.RunSyncRequest) ([]domain.PlatformResult, error)
}

// ScheduledRunner runs batch auto-syncs
type ScheduledRunner interface {
	RunScheduled(ctx context.Context, scope domain.ScheduleScope, syncType domain.SyncType) (*domain.ScheduledSummary, error)
}

// SyncAPI serves the internal sync and queue RPC endpoints
type SyncAPI struct {
	orchestrator SyncRunner
	scheduler    ScheduledRunner
	queue        ports.SyncQueue
	logger       zerolog.Logger
}

// NewSyncAPI creates the internal RPC endpoints
func NewSyncAPI(orchestrator SyncRunner, scheduler ScheduledRunner, queue ports.SyncQueue, logger zerolog.Logger) *SyncAPI {
	return &SyncAPI{
		orchestrator: orchestrator,
		scheduler:    scheduler,
		queue:        queue,
		logger:       logger,
	}
}

// Routes mounts the endpoints under /internal
func (a *SyncAPI) Routes(r chi.Router) {
	r.Post("/sync/run", a.HandleRunSync)
	r.Post("/sync/scheduled", a.HandleRunScheduled)
	r.Post("/queue", a.HandleEnqueue)
	r.Get("/queue/failed", a.HandleListFailed)
	r.Post("/queue/{id}/requeue", a.HandleRequeue)
}

// HandleRunSync runs RunSync for one tenant
func (a *SyncAPI) HandleRunSync(w http.ResponseWriter, r *http.Request) {
	var req application.RunSyncRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	for _, t := range req.SyncTypes {
		if !t.IsValid() {
			writeError(w, http.StatusBadRequest, "unknown sync type "+string(t))
			return
		}
	}

	results, err := a.orchestrator.RunSync(r.Context(), req)
	if err != nil {
		a.logger.Error().Err(err).Str("userId", req.UserID).Msg("Sync run failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"results": results,
	})
}

type scheduledRequest struct {
	IntegrationID string          `json:"integration_id,omitempty"`
	UserID        string          `json:"user_id,omitempty"`
	SyncType      domain.SyncType `json:"sync_type,omitempty"`
}

// HandleRunScheduled runs a batch auto-sync over the requested scope
func (a *SyncAPI) HandleRunScheduled(w http.ResponseWriter, r *http.Request) {
	var req scheduledRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SyncType != "" && !req.SyncType.IsValid() {
		writeError(w, http.StatusBadRequest, "unknown sync type "+string(req.SyncType))
		return
	}

	summary, err := a.scheduler.RunScheduled(r.Context(), domain.ScheduleScope{
		IntegrationID: req.IntegrationID,
		UserID:        req.UserID,
	}, req.SyncType)
	if err != nil {
		a.logger.Error().Err(err).Msg("Scheduled sync failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"summary": summary,
	})
}

// HandleEnqueue stores a sync queue item
func (a *SyncAPI) HandleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req domain.EnqueueRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := a.queue.Enqueue(r.Context(), req)
	if err != nil {
		a.logger.Error().Err(err).Str("entityId", req.EntityID).Msg("Failed to enqueue item")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"id":      id,
	})
}

// HandleListFailed lists terminal queue items
func (a *SyncAPI) HandleListFailed(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	items, err := a.queue.ListFailed(r.Context(), limit)
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to list failed queue items")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []*domain.QueueItem{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"items":   items,
	})
}

// HandleRequeue resets a failed item to pending
func (a *SyncAPI) HandleRequeue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := a.queue.Requeue(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrQueueItemNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, domain.ErrQueueItemNotFailed):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		a.logger.Error().Err(err).Str("itemId", id).Msg("Failed to requeue item")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.logger.Info().Str("itemId", id).Msg("Queue item requeued by operator")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"id":      id,
	})
}

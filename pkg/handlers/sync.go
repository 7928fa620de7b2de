package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/actoengine/actoengine/pkg/apperrors"
	"github.com/actoengine/actoengine/pkg/logging"
	"github.com/actoengine/actoengine/pkg/models"
	"github.com/actoengine/actoengine/pkg/services"
)

// SyncHandler handles connection verification, linking and sync status.
type SyncHandler struct {
	syncService       services.SyncService
	connectionService services.ConnectionService
	logger            *zap.Logger
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(syncService services.SyncService, connectionService services.ConnectionService, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		syncService:       syncService,
		connectionService: connectionService,
		logger:            logger,
	}
}

// RegisterRoutes registers the sync handler's routes on the given mux.
func (h *SyncHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/connections/verify", h.VerifyConnection)
	mux.HandleFunc("POST /api/projects/link", h.LinkNew)
	mux.HandleFunc("POST /api/projects/{pid}/link", h.Link)
	mux.HandleFunc("POST /api/projects/{pid}/resync", h.ReSync)
	mux.HandleFunc("GET /api/projects/{pid}/sync-status", h.SyncStatus)
}

type connectionRequest struct {
	ConnectionString string `json:"connection_string"`
	ActorID          int64  `json:"actor_id"`
}

type linkResponse struct {
	ProjectID int64  `json:"project_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// syncStatusResponse is the status payload. A project that has never been
// synced gets an explicit zero-progress record rather than a 404; the
// project existing is what matters.
type syncStatusResponse struct {
	ProjectID int64  `json:"project_id"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	Synced    bool   `json:"synced"`
}

// VerifyConnection handles POST /api/connections/verify.
// The connection string in the request is used for one connection attempt
// and discarded.
func (h *SyncHandler) VerifyConnection(w http.ResponseWriter, r *http.Request) {
	var req connectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	result, err := h.connectionService.Verify(r.Context(), req.ConnectionString)
	if err != nil {
		// Parse errors can quote the raw connection string; the response
		// carries a fixed message and the detail stays in server logs,
		// redacted.
		h.logger.Warn("connection string rejected", zap.String("reason", logging.SanitizeError(err)))
		writeError(w, h.logger, http.StatusBadRequest, "invalid_connection_string", "Invalid connection string")
		return
	}
	writeResult(w, h.logger, http.StatusOK, result)
}

// Link handles POST /api/projects/{pid}/link.
// Responds as soon as the background sync is dispatched.
func (h *SyncHandler) Link(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r, h.logger)
	if !ok {
		return
	}
	h.startSync(w, r, id, h.syncService.LinkProject)
}

// LinkNew handles POST /api/projects/link: link without an existing project.
// A project named after the target database is created as part of the link.
func (h *SyncHandler) LinkNew(w http.ResponseWriter, r *http.Request) {
	h.startSync(w, r, 0, h.syncService.LinkProject)
}

// ReSync handles POST /api/projects/{pid}/resync.
func (h *SyncHandler) ReSync(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r, h.logger)
	if !ok {
		return
	}
	h.startSync(w, r, id, h.syncService.ReSyncProject)
}

func (h *SyncHandler) startSync(w http.ResponseWriter, r *http.Request, id int64, start func(ctx context.Context, projectID int64, rawConnectionString string, actorID int64) (int64, string, error)) {
	var req connectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	syncedID, ack, err := start(r.Context(), id, req.ConnectionString, req.ActorID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			writeError(w, h.logger, http.StatusNotFound, "not_found", "Project not found")
		case errors.Is(err, apperrors.ErrSyncInProgress):
			writeError(w, h.logger, http.StatusConflict, "sync_in_progress", "A sync is already running for this project")
		case errors.Is(err, apperrors.ErrUnsupportedEngine):
			writeError(w, h.logger, http.StatusBadRequest, "unsupported_engine", "No adapter is registered for this database engine")
		default:
			h.logger.Warn("sync request rejected",
				zap.Int64("project_id", id),
				zap.String("reason", logging.SanitizeError(err)))
			writeError(w, h.logger, http.StatusBadRequest, "sync_rejected", "Sync request rejected")
		}
		return
	}

	writeResult(w, h.logger, http.StatusAccepted, linkResponse{
		ProjectID: syncedID,
		Status:    "accepted",
		Message:   ack,
	})
}

// SyncStatus handles GET /api/projects/{pid}/sync-status.
func (h *SyncHandler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r, h.logger)
	if !ok {
		return
	}

	status, err := h.syncService.GetSyncStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "not_found", "Project not found")
			return
		}
		h.logger.Error("Failed to get sync status", zap.Int64("project_id", id), zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "internal_error", "Failed to get sync status")
		return
	}

	if status == nil {
		writeResult(w, h.logger, http.StatusOK, syncStatusResponse{
			ProjectID: id,
			Status:    "Never synced",
			Progress:  0,
			Synced:    false,
		})
		return
	}

	writeResult(w, h.logger, http.StatusOK, syncStatusResponse{
		ProjectID: status.ProjectID,
		Status:    status.Status,
		Progress:  status.Progress,
		Synced:    status.Status == models.SyncStatusCompleted,
	})
}

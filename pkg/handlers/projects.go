package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/actoengine/actoengine/pkg/apperrors"
	"github.com/actoengine/actoengine/pkg/services"
)

// ProjectsHandler handles project CRUD and schema retrieval.
type ProjectsHandler struct {
	projectService services.ProjectService
	logger         *zap.Logger
}

// NewProjectsHandler creates a new projects handler.
func NewProjectsHandler(projectService services.ProjectService, logger *zap.Logger) *ProjectsHandler {
	return &ProjectsHandler{
		projectService: projectService,
		logger:         logger,
	}
}

// RegisterRoutes registers the projects handler's routes on the given mux.
func (h *ProjectsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/projects", h.List)
	mux.HandleFunc("POST /api/projects", h.Create)
	mux.HandleFunc("GET /api/projects/{pid}", h.Get)
	mux.HandleFunc("PUT /api/projects/{pid}", h.Update)
	mux.HandleFunc("DELETE /api/projects/{pid}", h.Delete)
	mux.HandleFunc("GET /api/projects/{pid}/schema", h.GetSchema)
}

type projectRequest struct {
	Name    string `json:"name"`
	ActorID int64  `json:"actor_id"`
}

// Create handles POST /api/projects.
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	project, err := h.projectService.CreateProject(r.Context(), req.Name, req.ActorID)
	if err != nil {
		h.logger.Error("Failed to create project", zap.Error(err))
		writeError(w, h.logger, http.StatusBadRequest, "create_failed", err.Error())
		return
	}
	writeResult(w, h.logger, http.StatusCreated, project)
}

// List handles GET /api/projects.
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projectService.ListProjects(r.Context())
	if err != nil {
		h.logger.Error("Failed to list projects", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "internal_error", "Failed to list projects")
		return
	}
	writeResult(w, h.logger, http.StatusOK, projects)
}

// Get handles GET /api/projects/{pid}.
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r, h.logger)
	if !ok {
		return
	}

	project, err := h.projectService.GetProject(r.Context(), id)
	if err != nil {
		h.respondProjectError(w, id, err, "Failed to get project")
		return
	}
	writeResult(w, h.logger, http.StatusOK, project)
}

// Update handles PUT /api/projects/{pid}.
func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r, h.logger)
	if !ok {
		return
	}

	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	project, err := h.projectService.UpdateProject(r.Context(), id, req.Name, req.ActorID)
	if err != nil {
		h.respondProjectError(w, id, err, "Failed to update project")
		return
	}
	writeResult(w, h.logger, http.StatusOK, project)
}

// Delete handles DELETE /api/projects/{pid}.
func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r, h.logger)
	if !ok {
		return
	}

	var req projectRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := h.projectService.DeleteProject(r.Context(), id, req.ActorID); err != nil {
		h.respondProjectError(w, id, err, "Failed to delete project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSchema handles GET /api/projects/{pid}/schema.
func (h *ProjectsHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r, h.logger)
	if !ok {
		return
	}

	schema, err := h.projectService.GetProjectSchema(r.Context(), id)
	if err != nil {
		h.respondProjectError(w, id, err, "Failed to get project schema")
		return
	}
	writeResult(w, h.logger, http.StatusOK, schema)
}

func (h *ProjectsHandler) respondProjectError(w http.ResponseWriter, id int64, err error, logMessage string) {
	if errors.Is(err, apperrors.ErrNotFound) {
		writeError(w, h.logger, http.StatusNotFound, "not_found", "Project not found")
		return
	}
	h.logger.Error(logMessage, zap.Int64("project_id", id), zap.Error(err))
	writeError(w, h.logger, http.StatusInternalServerError, "internal_error", logMessage)
}

// projectID extracts and validates the {pid} path value.
func projectID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("pid"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, logger, http.StatusBadRequest, "invalid_project_id", "Invalid project ID")
		return 0, false
	}
	return id, true
}

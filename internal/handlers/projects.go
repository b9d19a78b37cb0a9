package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/pulsehub/pulsehub/internal/services"
	"github.com/pulsehub/pulsehub/pkg/response"
)

// ProjectHandler exposes project CRUD and connection-state reads.
type ProjectHandler struct {
	projects *services.ProjectService
}

func NewProjectHandler(projects *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

type createProjectRequest struct {
	Name     string         `json:"project_name" validate:"required,min=1,max=128"`
	Settings datatypes.JSON `json:"settings"`
}

type updateProjectRequest struct {
	Name     *string        `json:"project_name" validate:"omitempty,min=1,max=128"`
	Settings datatypes.JSON `json:"settings"`
}

// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req createProjectRequest
	if !bindAndValidate(c, &req) {
		return
	}

	project, err := h.projects.Create(requestContext(c), currentUserID(c), services.CreateProjectInput{
		Name:     req.Name,
		Settings: req.Settings,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, project)
}

// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projects.List(requestContext(c), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, projects)
}

// GET /api/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.projects.Get(requestContext(c), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, project)
}

// PATCH /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	var req updateProjectRequest
	if !bindAndValidate(c, &req) {
		return
	}

	project, err := h.projects.Update(requestContext(c), currentUserID(c), c.Param("id"), services.UpdateProjectInput{
		Name:     req.Name,
		Settings: req.Settings,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, project)
}

// GET /api/projects/:id/connections
func (h *ProjectHandler) Connections(c *gin.Context) {
	state, err := h.projects.GetConnections(requestContext(c), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

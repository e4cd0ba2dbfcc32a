package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CreateProjectPayload is validated before the body is forwarded
type CreateProjectPayload struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// UpdateProjectPayload is validated before the body is forwarded
type UpdateProjectPayload struct {
	Name        *string `json:"name" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

// AddMemberPayload is the shape for project/workspace membership additions
type AddMemberPayload struct {
	UserID string `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"omitempty,max=100"`
}

// @Summary List projects
// @Tags projects
// @Security CookieAuth
// @Router /api/projects [get]
func (s *Server) listProjects(c *gin.Context) {
	s.proxy(c, http.MethodGet, "/projects")
}

// @Summary Create project
// @Tags projects
// @Security CookieAuth
// @Param request body CreateProjectPayload true "Create project request"
// @Router /api/projects [post]
func (s *Server) createProject(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	var payload CreateProjectPayload
	if !s.validateJSON(c, body, &payload) {
		return
	}

	s.proxyBody(c, http.MethodPost, "/projects", body)
}

// @Summary Get project
// @Tags projects
// @Security CookieAuth
// @Param id path string true "Project ID"
// @Router /api/projects/{id} [get]
func (s *Server) getProject(c *gin.Context) {
	s.proxy(c, http.MethodGet, "/projects/"+c.Param("id"))
}

// @Summary Update project
// @Tags projects
// @Security CookieAuth
// @Param id path string true "Project ID"
// @Param request body UpdateProjectPayload true "Update project request"
// @Router /api/projects/{id} [patch]
func (s *Server) updateProject(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	var payload UpdateProjectPayload
	if !s.validateJSON(c, body, &payload) {
		return
	}

	s.proxyBody(c, http.MethodPatch, "/projects/"+c.Param("id"), body)
}

// @Summary Delete project
// @Tags projects
// @Security CookieAuth
// @Param id path string true "Project ID"
// @Router /api/projects/{id} [delete]
func (s *Server) deleteProject(c *gin.Context) {
	s.proxy(c, http.MethodDelete, "/projects/"+c.Param("id"))
}

// @Summary List project members
// @Tags projects
// @Security CookieAuth
// @Router /api/projects/{id}/users [get]
func (s *Server) listProjectUsers(c *gin.Context) {
	s.proxy(c, http.MethodGet, "/projects/"+c.Param("id")+"/users")
}

// @Summary Add project member
// @Tags projects
// @Security CookieAuth
// @Param request body AddMemberPayload true "Add member request"
// @Router /api/projects/{id}/users [post]
func (s *Server) addProjectUser(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	var payload AddMemberPayload
	if !s.validateJSON(c, body, &payload) {
		return
	}

	s.proxyBody(c, http.MethodPost, "/projects/"+c.Param("id")+"/users", body)
}

// @Summary Remove project member
// @Tags projects
// @Security CookieAuth
// @Router /api/projects/{id}/users/{userId} [delete]
func (s *Server) removeProjectUser(c *gin.Context) {
	s.proxy(c, http.MethodDelete, "/projects/"+c.Param("id")+"/users/"+c.Param("userId"))
}

// @Summary List project model assignments
// @Tags projects
// @Security CookieAuth
// @Router /api/projects/{id}/models [get]
func (s *Server) listProjectModels(c *gin.Context) {
	s.proxy(c, http.MethodGet, "/projects/"+c.Param("id")+"/models")
}

// @Summary Replace project model assignments
// @Description Admin only
// @Tags projects
// @Security CookieAuth
// @Failure 403 {object} map[string]interface{}
// @Router /api/projects/{id}/models [put]
func (s *Server) updateProjectModels(c *gin.Context) {
	s.proxy(c, http.MethodPut, "/projects/"+c.Param("id")+"/models")
}

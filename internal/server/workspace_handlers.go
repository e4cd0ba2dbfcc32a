package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CreateWorkspacePayload is validated before the body is forwarded
type CreateWorkspacePayload struct {
	Name      string `json:"name" validate:"required,max=200"`
	ProjectID string `json:"project_id" validate:"omitempty"`
}

// UpdateWorkspacePayload is validated before the body is forwarded
type UpdateWorkspacePayload struct {
	Name *string `json:"name" validate:"omitempty,max=200"`
}

// @Summary List workspaces
// @Tags workspaces
// @Security CookieAuth
// @Router /api/workspaces [get]
func (s *Server) listWorkspaces(c *gin.Context) {
	s.proxy(c, http.MethodGet, "/workspaces")
}

// @Summary Create workspace
// @Tags workspaces
// @Security CookieAuth
// @Param request body CreateWorkspacePayload true "Create workspace request"
// @Router /api/workspaces [post]
func (s *Server) createWorkspace(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	var payload CreateWorkspacePayload
	if !s.validateJSON(c, body, &payload) {
		return
	}

	s.proxyBody(c, http.MethodPost, "/workspaces", body)
}

// @Summary Get workspace
// @Tags workspaces
// @Security CookieAuth
// @Param id path string true "Workspace ID"
// @Router /api/workspaces/{id} [get]
func (s *Server) getWorkspace(c *gin.Context) {
	s.proxy(c, http.MethodGet, "/workspaces/"+c.Param("id"))
}

// @Summary Update workspace
// @Tags workspaces
// @Security CookieAuth
// @Param id path string true "Workspace ID"
// @Param request body UpdateWorkspacePayload true "Update workspace request"
// @Router /api/workspaces/{id} [patch]
func (s *Server) updateWorkspace(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	var payload UpdateWorkspacePayload
	if !s.validateJSON(c, body, &payload) {
		return
	}

	s.proxyBody(c, http.MethodPatch, "/workspaces/"+c.Param("id"), body)
}

// @Summary Delete workspace
// @Tags workspaces
// @Security CookieAuth
// @Param id path string true "Workspace ID"
// @Router /api/workspaces/{id} [delete]
func (s *Server) deleteWorkspace(c *gin.Context) {
	s.proxy(c, http.MethodDelete, "/workspaces/"+c.Param("id"))
}

// @Summary List workspace members
// @Tags workspaces
// @Security CookieAuth
// @Router /api/workspaces/{id}/users [get]
func (s *Server) listWorkspaceUsers(c *gin.Context) {
	s.proxy(c, http.MethodGet, "/workspaces/"+c.Param("id")+"/users")
}

// @Summary Add workspace member
// @Tags workspaces
// @Security CookieAuth
// @Param request body AddMemberPayload true "Add member request"
// @Router /api/workspaces/{id}/users [post]
func (s *Server) addWorkspaceUser(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	var payload AddMemberPayload
	if !s.validateJSON(c, body, &payload) {
		return
	}

	s.proxyBody(c, http.MethodPost, "/workspaces/"+c.Param("id")+"/users", body)
}

// @Summary Remove workspace member
// @Tags workspaces
// @Security CookieAuth
// @Router /api/workspaces/{id}/users/{userId} [delete]
func (s *Server) removeWorkspaceUser(c *gin.Context) {
	s.proxy(c, http.MethodDelete, "/workspaces/"+c.Param("id")+"/users/"+c.Param("userId"))
}

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CreateUserPayload is validated before the body is forwarded
type CreateUserPayload struct {
	Email   string `json:"email" validate:"required,email"`
	Name    string `json:"name" validate:"required,max=200"`
	IsAdmin bool   `json:"is_admin"`
}

// UpdateUserPayload is validated before the body is forwarded
type UpdateUserPayload struct {
	Email   *string `json:"email" validate:"omitempty,email"`
	Name    *string `json:"name" validate:"omitempty,max=200"`
	IsAdmin *bool   `json:"is_admin"`
}

// @Summary List users
// @Tags users
// @Produce json
// @Security CookieAuth
// @Success 200 {array} map[string]interface{}
// @Router /api/users [get]
func (s *Server) listUsers(c *gin.Context) {
	s.proxy(c, http.MethodGet, "/users")
}

// @Summary Get user
// @Tags users
// @Produce json
// @Security CookieAuth
// @Param id path string true "User ID"
// @Router /api/users/{id} [get]
func (s *Server) getUser(c *gin.Context) {
	s.proxy(c, http.MethodGet, "/users/"+c.Param("id"))
}

// @Summary Create user
// @Description Create a new user (admin only)
// @Tags users
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body CreateUserPayload true "Create user request"
// @Failure 403 {object} map[string]interface{}
// @Router /api/users [post]
func (s *Server) createUser(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	var payload CreateUserPayload
	if !s.validateJSON(c, body, &payload) {
		return
	}

	s.proxyBody(c, http.MethodPost, "/users", body)
}

// @Summary Update user
// @Description Update a user (admin only). Tolerates the backend's uncertain
// verb contract by falling back PATCH -> PUT -> POST on 405.
// @Tags users
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param id path string true "User ID"
// @Param request body UpdateUserPayload true "Update user request"
// @Failure 403 {object} map[string]interface{}
// @Router /api/users/{id} [patch]
func (s *Server) updateUser(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	var payload UpdateUserPayload
	if !s.validateJSON(c, body, &payload) {
		return
	}

	sess := currentSession(c)
	resp, err := s.backend.UpdateUser(c.Request.Context(), sess, c.Param("id"), body)
	if err != nil {
		s.writeProxyError(c, err)
		return
	}
	defer resp.Body.Close()

	s.relay(c, resp)
}

// @Summary Delete user
// @Description Delete a user (admin only)
// @Tags users
// @Produce json
// @Security CookieAuth
// @Param id path string true "User ID"
// @Failure 403 {object} map[string]interface{}
// @Router /api/users/{id} [delete]
func (s *Server) deleteUser(c *gin.Context) {
	s.proxy(c, http.MethodDelete, "/users/"+c.Param("id"))
}

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary List models
// @Description List the AI model catalog
// @Tags models
// @Security CookieAuth
// @Router /api/models [get]
func (s *Server) listModels(c *gin.Context) {
	s.proxy(c, http.MethodGet, "/models")
}

// @Summary Get default model
// @Tags models
// @Security CookieAuth
// @Router /api/models/default [get]
func (s *Server) getDefaultModel(c *gin.Context) {
	s.proxy(c, http.MethodGet, "/models/default")
}

// @Summary Set default model
// @Description Admin only
// @Tags models
// @Security CookieAuth
// @Failure 403 {object} map[string]interface{}
// @Router /api/models/default [put]
func (s *Server) updateDefaultModel(c *gin.Context) {
	s.proxy(c, http.MethodPut, "/models/default")
}

// @Summary List providers
// @Description List the AI provider catalog
// @Tags models
// @Security CookieAuth
// @Router /api/providers [get]
func (s *Server) listProviders(c *gin.Context) {
	s.proxy(c, http.MethodGet, "/providers")
}

package server

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/consoled-dev/consoled/internal/backend"
)

// maxUploadBytes bounds the total multipart payload buffered per request
const maxUploadBytes = 64 << 20 // 64 MB

// @Summary List project files
// @Tags files
// @Security CookieAuth
// @Router /api/projects/{id}/files [get]
func (s *Server) listProjectFiles(c *gin.Context) {
	s.proxy(c, http.MethodGet, "/projects/"+c.Param("id")+"/files")
}

// @Summary Upload project files
// @Description Forwards a multipart form to the backend. An omitted ttl
// defaults to one year from now.
// @Tags files
// @Accept multipart/form-data
// @Security CookieAuth
// @Param files formData file true "Files to upload"
// @Param ttl formData string false "Expiry date (YYYY-MM-DD)"
// @Router /api/projects/{id}/files [post]
func (s *Server) uploadProjectFiles(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one file is required"})
		return
	}

	ttl := c.PostForm("ttl")
	if ttl != "" {
		if _, err := time.Parse("2006-01-02", ttl); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ttl must be formatted YYYY-MM-DD"})
			return
		}
	}

	uploads := make([]backend.Upload, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
			return
		}

		uploads = append(uploads, backend.Upload{
			Name: header.Filename,
			TTL:  ttl,
			Data: data,
		})
	}

	sess := currentSession(c)
	resp, err := s.backend.UploadFiles(c.Request.Context(), sess, "/projects/"+c.Param("id")+"/files", uploads)
	if err != nil {
		s.writeProxyError(c, err)
		return
	}
	defer resp.Body.Close()

	s.relay(c, resp)
}

// @Summary Delete project file
// @Tags files
// @Security CookieAuth
// @Router /api/projects/{id}/files/{fileId} [delete]
func (s *Server) deleteProjectFile(c *gin.Context) {
	s.proxy(c, http.MethodDelete, "/projects/"+c.Param("id")+"/files/"+c.Param("fileId"))
}

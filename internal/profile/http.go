package profile

import (
	"errors"
	"net/http"

	"github.com/abduss/contactbook/internal/auth"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts profile endpoints on an authenticated group.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.GET("/me", handler.me)
	group.PATCH("/avatar", handler.uploadAvatar)
}

type httpHandler struct {
	service *Service
}

func (h *httpHandler) me(c *gin.Context) {
	u, ok := auth.RequireUser(c)
	if !ok {
		return
	}

	p, err := h.service.Me(c.Request.Context(), u)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *httpHandler) uploadAvatar(c *gin.Context) {
	u, ok := auth.RequireUser(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrMissingFile.Error()})
		return
	}

	p, err := h.service.UploadAvatar(c.Request.Context(), u, fileHeader)
	if err != nil {
		switch {
		case errors.Is(err, ErrAvatarTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		case errors.Is(err, ErrUnsupportedImage), errors.Is(err, ErrMissingFile):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upload avatar"})
		}
		return
	}
	c.JSON(http.StatusOK, p)
}

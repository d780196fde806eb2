package contact

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/abduss/contactbook/internal/auth"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts contact endpoints on a group that already requires
// authentication. listMiddleware runs before the listing handler only.
func RegisterRoutes(group *gin.RouterGroup, service *Service, listMiddleware ...gin.HandlerFunc) {
	handler := &httpHandler{service: service}

	group.POST("/", handler.createContact)
	group.GET("/", append(listMiddleware, handler.listContacts)...)
	group.GET("/upcoming_birthdays", handler.upcomingBirthdays)
	group.GET("/upcoming_birthdays/", handler.upcomingBirthdays)
	group.GET("/:contactID", handler.getContact)
	group.PUT("/:contactID", handler.updateContact)
	group.DELETE("/:contactID", handler.deleteContact)
}

type httpHandler struct {
	service *Service
}

type contactRequest struct {
	FirstName   string  `json:"first_name" binding:"required,max=50"`
	LastName    string  `json:"last_name" binding:"required,max=50"`
	Email       string  `json:"email" binding:"required,email,max=100"`
	PhoneNumber string  `json:"phone_number" binding:"required,max=20"`
	BirthDate   Date    `json:"birth_date"`
	ExtraData   *string `json:"extra_data" binding:"omitempty,max=250"`
}

func (r contactRequest) input() Input {
	return Input{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		PhoneNumber: r.PhoneNumber,
		BirthDate:   r.BirthDate,
		ExtraData:   r.ExtraData,
	}
}

type listQuery struct {
	Query     string `form:"q"`
	FirstName string `form:"first_name"`
	LastName  string `form:"last_name"`
	Email     string `form:"email"`
	Offset    int    `form:"offset"`
	Limit     int    `form:"limit"`
}

func (h *httpHandler) createContact(c *gin.Context) {
	owner, ok := auth.RequireUser(c)
	if !ok {
		return
	}

	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.Create(c.Request.Context(), owner.ID, req.input())
	if err != nil {
		writeError(c, err, "failed to create contact")
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *httpHandler) listContacts(c *gin.Context) {
	owner, ok := auth.RequireUser(c)
	if !ok {
		return
	}

	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contacts, err := h.service.List(c.Request.Context(), owner.ID, ListFilter{
		Query:     q.Query,
		FirstName: q.FirstName,
		LastName:  q.LastName,
		Email:     q.Email,
		Offset:    q.Offset,
		Limit:     q.Limit,
	})
	if err != nil {
		writeError(c, err, "failed to list contacts")
		return
	}
	c.JSON(http.StatusOK, contacts)
}

func (h *httpHandler) getContact(c *gin.Context) {
	owner, ok := auth.RequireUser(c)
	if !ok {
		return
	}
	contactID, ok := parseContactID(c)
	if !ok {
		return
	}

	found, err := h.service.Get(c.Request.Context(), owner.ID, contactID)
	if err != nil {
		writeError(c, err, "failed to fetch contact")
		return
	}
	c.JSON(http.StatusOK, found)
}

func (h *httpHandler) updateContact(c *gin.Context) {
	owner, ok := auth.RequireUser(c)
	if !ok {
		return
	}
	contactID, ok := parseContactID(c)
	if !ok {
		return
	}

	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.service.Update(c.Request.Context(), owner.ID, contactID, req.input())
	if err != nil {
		writeError(c, err, "failed to update contact")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) deleteContact(c *gin.Context) {
	owner, ok := auth.RequireUser(c)
	if !ok {
		return
	}
	contactID, ok := parseContactID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), owner.ID, contactID); err != nil {
		writeError(c, err, "failed to delete contact")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) upcomingBirthdays(c *gin.Context) {
	owner, ok := auth.RequireUser(c)
	if !ok {
		return
	}

	contacts, err := h.service.UpcomingBirthdays(c.Request.Context(), owner.ID)
	if err != nil {
		writeError(c, err, "failed to list upcoming birthdays")
		return
	}
	c.JSON(http.StatusOK, contacts)
}

func parseContactID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("contactID"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contact id"})
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrContactNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "contact not found"})
	case errors.Is(err, ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": "contact with this email already exists"})
	case errors.Is(err, ErrInvalidContact), errors.Is(err, ErrInvalidPagination):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

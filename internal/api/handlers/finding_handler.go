package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/ipguard/internal/models"
	"github.com/Wikid82/ipguard/internal/services"
)

type FindingHandler struct {
	service *services.FindingService
}

func NewFindingHandler(service *services.FindingService) *FindingHandler {
	return &FindingHandler{service: service}
}

// List handles GET /api/v1/admin/findings?unresolved=true&category=&address=
func (h *FindingHandler) List(c *gin.Context) {
	filter := services.FindingFilter{
		UnresolvedOnly: c.Query("unresolved") == "true",
		Address:        c.Query("address"),
	}
	if raw := c.Query("category"); raw != "" {
		category := models.FindingCategory(raw)
		if !category.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category"})
			return
		}
		filter.Category = category
	}

	findings, err := h.service.List(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, findings)
}

// Resolve handles POST /api/v1/admin/findings/:id/resolve
func (h *FindingHandler) Resolve(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ID"})
		return
	}

	finding, err := h.service.Resolve(uint(id))
	if err != nil {
		if errors.Is(err, services.ErrFindingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "finding not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, finding)
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/ipguard/internal/logger"
	"github.com/Wikid82/ipguard/internal/services"
	"github.com/Wikid82/ipguard/internal/util"
)

type DenylistHandler struct {
	service *services.DenylistService
}

func NewDenylistHandler(service *services.DenylistService) *DenylistHandler {
	return &DenylistHandler{service: service}
}

// List handles GET /api/v1/admin/denylist
func (h *DenylistHandler) List(c *gin.Context) {
	entries, err := h.service.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Block handles POST /api/v1/admin/denylist. Blocking an address that is
// already listed updates its reason and answers 200 instead of 201.
func (h *DenylistHandler) Block(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
		Reason  string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, created, err := h.service.Block(req.Address, req.Reason)
	if err != nil {
		if errors.Is(err, services.ErrEmptyAddress) || errors.Is(err, services.ErrInvalidAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	logger.Log().WithFields(map[string]interface{}{
		"address": entry.Address,
		"reason":  util.SanitizeForLog(entry.Reason),
		"created": created,
	}).Info("Address blocked via admin API")

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, entry)
}

// Unblock handles DELETE /api/v1/admin/denylist/:address
func (h *DenylistHandler) Unblock(c *gin.Context) {
	if err := h.service.Unblock(c.Param("address")); err != nil {
		switch {
		case errors.Is(err, services.ErrDenyEntryNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "address is not blocked"})
		case errors.Is(err, services.ErrEmptyAddress):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	logger.Log().WithField("address", util.SanitizeForLog(c.Param("address"))).Info("Address unblocked via admin API")
	c.JSON(http.StatusOK, gin.H{"message": "address unblocked"})
}

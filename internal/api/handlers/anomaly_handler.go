package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/ipguard/internal/services"
)

type AnomalyHandler struct {
	service *services.AnomalyService
}

func NewAnomalyHandler(service *services.AnomalyService) *AnomalyHandler {
	return &AnomalyHandler{service: service}
}

// Run handles POST /api/v1/admin/anomaly/run. It performs one detection run
// synchronously, under the same timeout as scheduled runs, and returns the
// report; a failed pass answers 500 with the partial report.
func (h *AnomalyHandler) Run(c *gin.Context) {
	report, err := h.service.RunBounded(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}

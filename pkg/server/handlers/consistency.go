package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storyweave/continuity"
	"github.com/storyweave/continuity/pkg/server/dto"
)

// ConsistencyHandler handles contradiction scan and report requests
type ConsistencyHandler struct {
	client continuity.Continuity
}

// NewConsistencyHandler creates a new consistency handler
func NewConsistencyHandler(client continuity.Continuity) *ConsistencyHandler {
	return &ConsistencyHandler{client: client}
}

// TriggerScan handles POST /api/v1/consistency/scan
func (h *ConsistencyHandler) TriggerScan(c *gin.Context) {
	var req dto.ScopedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	result := h.client.DetectContradictions(c.Request.Context(), req.StoryID, req.UserID)
	if result.Error != "" {
		c.JSON(http.StatusInternalServerError, dto.Result{Success: false, Data: result, Error: result.Error})
		return
	}
	c.JSON(http.StatusOK, dto.Result{Success: true, Data: result})
}

// Report handles GET /api/v1/consistency/report
func (h *ConsistencyHandler) Report(c *gin.Context) {
	storyID := c.Query("story_id")
	if storyID == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "story_id is required"})
		return
	}
	userID := c.Query("user_id")

	report := h.client.ConsistencyReport(c.Request.Context(), storyID, userID)
	if report.Error != "" {
		c.JSON(http.StatusInternalServerError, dto.Result{Success: false, Data: report, Error: report.Error})
		return
	}
	c.JSON(http.StatusOK, dto.Result{Success: true, Data: report})
}

// Status handles GET /api/v1/consistency/status
func (h *ConsistencyHandler) Status(c *gin.Context) {
	status := h.client.SchedulerStatus(c.Request.Context(), c.Query("story_id"), c.Query("user_id"))
	c.JSON(http.StatusOK, dto.Result{Success: true, Data: status})
}

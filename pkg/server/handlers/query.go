package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storyweave/continuity"
	"github.com/storyweave/continuity/pkg/server/dto"
)

// QueryHandler handles guarded ad-hoc query requests
type QueryHandler struct {
	client continuity.Continuity
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(client continuity.Continuity) *QueryHandler {
	return &QueryHandler{client: client}
}

// Execute handles POST /api/v1/query
func (h *QueryHandler) Execute(c *gin.Context) {
	var req dto.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	useCache := true
	if req.UseCache != nil {
		useCache = *req.UseCache
	}

	result := h.client.ExecuteQuery(c.Request.Context(), req.Query, req.Params, useCache)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

// Validate handles POST /api/v1/query/validate
func (h *QueryHandler) Validate(c *gin.Context) {
	var req dto.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	valid, message := h.client.ValidateQuery(req.Query)
	response := gin.H{
		"valid":   valid,
		"message": message,
	}
	if valid {
		response["suggested_optimizations"] = h.client.QuerySuggestions(req.Query)
	}
	c.JSON(http.StatusOK, response)
}

package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/storyweave/continuity"
	"github.com/storyweave/continuity/pkg/server/dto"
	"github.com/storyweave/continuity/pkg/store"
	"github.com/storyweave/continuity/pkg/types"
)

// GraphHandler handles graph write and retrieval requests
type GraphHandler struct {
	client continuity.Continuity
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(client continuity.Continuity) *GraphHandler {
	return &GraphHandler{client: client}
}

// AddNode handles POST /api/v1/graph/nodes
func (h *GraphHandler) AddNode(c *gin.Context) {
	var req dto.AddNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	node := toNode(req.Node)
	if err := h.client.AddNode(c.Request.Context(), req.StoryID, req.UserID, node); err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to store node", Message: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, dto.Result{Success: true, Data: gin.H{"id": node.ID}})
}

// AddEdge handles POST /api/v1/graph/edges. A rejected edge returns 422
// with the verdict; it never reaches the store.
func (h *GraphHandler) AddEdge(c *gin.Context) {
	var req dto.AddEdgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	kind, err := types.ParseEdgeKind(req.EdgeType)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{Error: "unknown edge type", Message: err.Error()})
		return
	}

	verdict, err := h.client.AddEdge(c.Request.Context(), req.StoryID, req.UserID,
		kind, toNode(req.From), toNode(req.To), req.Props)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to store edge", Message: err.Error()})
		return
	}
	if !verdict.Accepted {
		c.JSON(http.StatusUnprocessableEntity, dto.Result{Success: false, Data: verdict, Error: verdict.Reason})
		return
	}

	c.JSON(http.StatusCreated, dto.Result{Success: true, Data: verdict})
}

// ValidateEdge handles POST /api/v1/graph/edges/validate
func (h *GraphHandler) ValidateEdge(c *gin.Context) {
	var req dto.ValidateEdgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	verdict := h.client.ValidateEdgeType(c.Request.Context(), req.EdgeType,
		toNode(req.From), toNode(req.To), req.Props)

	c.JSON(http.StatusOK, dto.Result{Success: verdict.Accepted, Data: verdict, Error: verdict.Reason})
}

// Search handles POST /api/v1/search
func (h *GraphHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	records, err := h.client.Search(c.Request.Context(), req.StoryID, req.UserID, req.Query, req.Limit)
	if err != nil {
		h.retrievalError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Result{Success: true, Data: records})
}

// Recent handles POST /api/v1/recent
func (h *GraphHandler) Recent(c *gin.Context) {
	var req dto.RecentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	since := time.Time{}
	if req.Since != nil {
		since = *req.Since
	}
	records, err := h.client.RetrieveRecent(c.Request.Context(), req.StoryID, req.UserID, since, req.Limit)
	if err != nil {
		h.retrievalError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Result{Success: true, Data: records})
}

func (h *GraphHandler) retrievalError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrScopeNotFound) {
		// an unknown story simply has no records yet
		c.JSON(http.StatusOK, dto.Result{Success: true, Data: []store.Record{}})
		return
	}
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "retrieval failed", Message: err.Error()})
}

func toNode(p dto.NodePayload) *types.Node {
	return &types.Node{
		ID:                 p.ID,
		Kind:               types.NodeKind(p.Kind),
		Name:               p.Name,
		Content:            p.Content,
		Importance:         p.Importance,
		VerificationStatus: p.VerificationStatus,
		ValidFrom:          p.ValidFrom,
		ValidTo:            p.ValidTo,
		SceneOrder:         p.SceneOrder,
		LocationType:       p.LocationType,
		Accessibility:      p.Accessibility,
		ItemType:           p.ItemType,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

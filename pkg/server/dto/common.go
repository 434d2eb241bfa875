package dto

import (
	"errors"
	"strings"
	"time"
)

// Result represents a generic API result
type Result struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// ScopedRequest carries the tenant identity every story operation needs.
type ScopedRequest struct {
	StoryID string `json:"story_id" binding:"required"`
	UserID  string `json:"user_id"`
}

// Validate performs validation on ScopedRequest
func (r *ScopedRequest) Validate() error {
	if strings.TrimSpace(r.StoryID) == "" {
		return errors.New("story_id cannot be empty")
	}
	return nil
}

// NodePayload is the wire form of a graph entity.
type NodePayload struct {
	ID                 string     `json:"id"`
	Kind               string     `json:"kind" binding:"required"`
	Name               string     `json:"name"`
	Content            string     `json:"content,omitempty"`
	Importance         int        `json:"importance,omitempty"`
	VerificationStatus string     `json:"verification_status,omitempty"`
	ValidFrom          *time.Time `json:"valid_from,omitempty"`
	ValidTo            *time.Time `json:"valid_to,omitempty"`
	SceneOrder         int        `json:"scene_order,omitempty"`
	LocationType       string     `json:"location_type,omitempty"`
	Accessibility      string     `json:"accessibility,omitempty"`
	ItemType           string     `json:"item_type,omitempty"`
	CreatedAt          *time.Time `json:"created_at,omitempty"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"`
}

// AddNodeRequest adds one entity to a story's graph.
type AddNodeRequest struct {
	ScopedRequest
	Node NodePayload `json:"node" binding:"required"`
}

// AddEdgeRequest proposes one relationship for validation and persist.
type AddEdgeRequest struct {
	ScopedRequest
	EdgeType string         `json:"edge_type" binding:"required"`
	From     NodePayload    `json:"from" binding:"required"`
	To       NodePayload    `json:"to" binding:"required"`
	Props    map[string]any `json:"props,omitempty"`
}

// ValidateEdgeRequest is AddEdgeRequest without the persist step, so no
// tenant scope is required.
type ValidateEdgeRequest struct {
	EdgeType string         `json:"edge_type" binding:"required"`
	From     NodePayload    `json:"from" binding:"required"`
	To       NodePayload    `json:"to" binding:"required"`
	Props    map[string]any `json:"props,omitempty"`
}

// QueryRequest executes a guarded read query.
type QueryRequest struct {
	Query    string         `json:"query" binding:"required"`
	Params   map[string]any `json:"params,omitempty"`
	UseCache *bool          `json:"use_cache,omitempty"`
}

// SearchRequest searches a story's stored records.
type SearchRequest struct {
	ScopedRequest
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit,omitempty"`
}

// RecentRequest retrieves the newest records in a story's scope.
type RecentRequest struct {
	ScopedRequest
	Since *time.Time `json:"since,omitempty"`
	Limit int        `json:"limit,omitempty"`
}

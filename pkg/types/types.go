package types

import (
	"fmt"
	"time"
)

// NodeKind identifies the entity kind of a graph node.
type NodeKind string

const (
	CharacterNode NodeKind = "Character"
	KnowledgeNode NodeKind = "Knowledge"
	SceneNode     NodeKind = "Scene"
	LocationNode  NodeKind = "Location"
	ItemNode      NodeKind = "Item"
)

// EdgeKind identifies the relationship kind of a graph edge. The set is
// closed: ParseEdgeKind rejects anything else, so edge-type dispatch is
// always over a known variant.
type EdgeKind string

const (
	EdgeKnows         EdgeKind = "KNOWS"
	EdgeRelationship  EdgeKind = "RELATIONSHIP"
	EdgePresentIn     EdgeKind = "PRESENT_IN"
	EdgeOccursIn      EdgeKind = "OCCURS_IN"
	EdgeContradicts   EdgeKind = "CONTRADICTS"
	EdgeImplies       EdgeKind = "IMPLIES"
	EdgeOwns          EdgeKind = "OWNS"
	EdgeInteractsWith EdgeKind = "INTERACTS_WITH"
	EdgeSharesScene   EdgeKind = "SHARES_SCENE"
)

// EdgeKinds lists every edge kind in registration order.
var EdgeKinds = []EdgeKind{
	EdgeKnows,
	EdgeRelationship,
	EdgePresentIn,
	EdgeOccursIn,
	EdgeContradicts,
	EdgeImplies,
	EdgeOwns,
	EdgeInteractsWith,
	EdgeSharesScene,
}

// ParseEdgeKind converts a raw edge-type string into an EdgeKind.
func ParseEdgeKind(s string) (EdgeKind, error) {
	for _, k := range EdgeKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown edge type %q", s)
}

// Severity classifies a persisted contradiction record.
type Severity string

const (
	SeverityCritical  Severity = "critical"
	SeverityMajor     Severity = "major"
	SeverityMinor     Severity = "minor"
	SeverityPotential Severity = "potential"
)

// Scan rules report severity in their own vocabulary; persisted records use
// the Severity enum. NormalizeSeverity maps one onto the other.
const (
	RawSeverityTemporal = "temporal"
	RawSeverityMedium   = "medium"
	RawSeverityHigh     = "high"
	RawSeverityCritical = "critical"
)

// NormalizeSeverity maps a raw rule severity onto the record Severity enum.
// Unknown values land in the potential bucket rather than failing the scan.
func NormalizeSeverity(raw string) Severity {
	switch raw {
	case RawSeverityCritical:
		return SeverityCritical
	case RawSeverityHigh:
		return SeverityMajor
	case RawSeverityMedium:
		return SeverityMinor
	default:
		return SeverityPotential
	}
}

// Scope is the tenant isolation boundary. Every read and write the core
// performs is filtered by it.
type Scope struct {
	StoryID string `json:"story_id"`
	UserID  string `json:"user_id"`
	GroupID string `json:"group_id"`
}

// Node is a graph entity with bi-temporal bookkeeping. ValidFrom/ValidTo
// bound the modeled-world validity of Knowledge nodes; CreatedAt/UpdatedAt
// track record keeping for every kind.
type Node struct {
	ID      string   `json:"id"`
	Kind    NodeKind `json:"kind"`
	Name    string   `json:"name"`
	StoryID string   `json:"story_id"`
	UserID  string   `json:"user_id"`

	// Knowledge fields
	Content            string     `json:"content,omitempty"`
	Importance         int        `json:"importance,omitempty"`
	VerificationStatus string     `json:"verification_status,omitempty"`
	ValidFrom          *time.Time `json:"valid_from,omitempty"`
	ValidTo            *time.Time `json:"valid_to,omitempty"`

	// Scene fields
	SceneOrder int `json:"scene_order,omitempty"`

	// Location fields
	LocationType  string `json:"location_type,omitempty"`
	Accessibility string `json:"accessibility,omitempty"`

	// Item fields
	ItemType string `json:"item_type,omitempty"`

	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Deleted reports whether the node has been soft-invalidated.
func (n *Node) Deleted() bool { return n.DeletedAt != nil }

// Edge is a typed relationship between two nodes. Kind-specific attributes
// live in Props as flat key/value pairs so any record store can hold them.
type Edge struct {
	ID      string   `json:"id"`
	Kind    EdgeKind `json:"kind"`
	FromID  string   `json:"from_id"`
	ToID    string   `json:"to_id"`
	StoryID string   `json:"story_id"`
	UserID  string   `json:"user_id"`

	Props map[string]any `json:"props,omitempty"`

	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Prop returns a string property, or "" when absent.
func (e *Edge) Prop(key string) string {
	if e.Props == nil {
		return ""
	}
	s, _ := e.Props[key].(string)
	return s
}

// ContradictionRecord is the immutable output of one scan-rule finding,
// persisted as a flat record. Only the Detection Engine creates these.
type ContradictionRecord struct {
	FromID           string    `json:"from_id"`
	ToID             string    `json:"to_id"`
	Severity         Severity  `json:"severity"`
	RawSeverity      string    `json:"raw_severity"`
	Reason           string    `json:"reason"`
	Confidence       float64   `json:"confidence"`
	DetectedAt       time.Time `json:"detected_at"`
	RuleName         string    `json:"rule_name"`
	StoryID          string    `json:"story_id"`
	ResolutionStatus string    `json:"resolution_status"`
}

// ContradictionDetectionResult is the outcome of one detection scan. It is
// always well formed: a scan over an empty scope has zero findings and no
// error, and a failed scan carries the failure in Error instead of being
// returned as a Go error.
type ContradictionDetectionResult struct {
	StoryID             string                `json:"story_id"`
	ContradictionsFound []ContradictionRecord `json:"contradictions_found"`
	TotalContradictions int                   `json:"total_contradictions"`
	SeverityBreakdown   map[string]int        `json:"severity_breakdown"`
	ScanDurationSeconds float64               `json:"scan_duration_seconds"`
	Timestamp           time.Time             `json:"timestamp"`
	Error               string                `json:"error,omitempty"`
}

// ContradictionReport aggregates persisted contradiction records.
type ContradictionReport struct {
	TotalContradictions int                              `json:"total_contradictions"`
	BySeverity          map[string][]ContradictionRecord `json:"contradictions_by_severity"`
	SeverityCounts      map[string]int                   `json:"severity_counts"`
	GeneratedAt         time.Time                        `json:"generated_at"`
	Error               string                           `json:"error,omitempty"`
}

// SchedulerStatus reports the background job state for health endpoints.
type SchedulerStatus struct {
	IsRunning           bool                 `json:"is_running"`
	RunInterval         time.Duration        `json:"run_interval"`
	LastRun             *time.Time           `json:"last_run,omitempty"`
	ContradictionReport *ContradictionReport `json:"contradiction_report,omitempty"`
}

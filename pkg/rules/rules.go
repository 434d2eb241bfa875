// Package rules holds the consistency rule library: write-time rules the
// validation gate runs before an edge is committed, and scan-time rules the
// detection engine runs over a tenant-scoped snapshot.
package rules

import (
	"context"

	"github.com/storyweave/continuity/pkg/types"
)

// EdgeCandidate is a proposed edge, presented to write rules before commit.
type EdgeCandidate struct {
	Kind  types.EdgeKind
	From  *types.Node
	To    *types.Node
	Props map[string]any
}

// Violation is a rule rejection: the caller must change the input. It is
// distinct from a rule's own internal error, which the gate treats as
// fail-closed and the scan engine skips.
type Violation struct {
	Rule    string
	Message string
}

// WriteRule gates a single edge write. Check returns a Violation when the
// edge must be rejected, an error when the rule itself failed, and (nil,
// nil) when the edge passes.
type WriteRule interface {
	Name() string
	Check(ctx context.Context, candidate EdgeCandidate) (*Violation, error)
}

// Candidate is one scan-time finding before it is persisted as a record.
type Candidate struct {
	FromID     string
	ToID       string
	Severity   string
	Reason     string
	Confidence float64
}

// ScanRule detects latent contradictions over a read-only snapshot. Detect
// must be pure: same snapshot in, same candidates out.
type ScanRule interface {
	Name() string
	Detect(ctx context.Context, snap *types.Snapshot) ([]Candidate, error)
}

// WriteRules returns the write-time rules in their fixed registration
// order. The gate runs them in order and short-circuits on the first
// violation, so messages are reproducible.
func WriteRules() []WriteRule {
	return []WriteRule{
		&knowsTemporalRule{},
		&relationshipSelfLoopRule{},
		&temporalOrderingRule{},
		&sceneOrderRule{},
		&ownershipWindowRule{},
		&propertySchemaRule{},
	}
}

// ScanRules returns the scan-time rules. Their order is not significant;
// results are aggregated and sorted downstream.
func ScanRules() []ScanRule {
	return []ScanRule{
		&temporalKnowledgeConflictRule{},
		&relationshipConflictRule{},
		&locationConflictRule{},
		&characterStateConflictRule{},
		&freeTextHeuristicRule{},
	}
}

// Package gate implements the synchronous pre-write validation gate. Every
// candidate edge passes through it before the ingestion pipeline commits
// anything; the verdict is the caller's sole persistence signal.
package gate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/storyweave/continuity/pkg/rules"
	"github.com/storyweave/continuity/pkg/types"
)

// Verdict is the gate's structured answer. The gate never returns a Go
// error: rule failures and internal rule errors both land here.
type Verdict struct {
	Accepted bool   `json:"accepted"`
	Rule     string `json:"rule,omitempty"`
	Reason   string `json:"reason,omitempty"`
	// Err carries an internal rule error when the rejection was
	// fail-closed rather than a true validation failure.
	Err error `json:"-"`
}

// Gate runs write-time rules in fixed registration order with
// first-failure short-circuit.
type Gate struct {
	rules  []rules.WriteRule
	logger *slog.Logger
}

// New creates a gate with the default write-rule set.
func New(logger *slog.Logger) *Gate {
	return &Gate{rules: rules.WriteRules(), logger: logger}
}

// NewWithRules creates a gate with an explicit ordered rule list.
func NewWithRules(ruleList []rules.WriteRule, logger *slog.Logger) *Gate {
	return &Gate{rules: ruleList, logger: logger}
}

// ValidateEdgeCreation checks a candidate edge against every applicable
// rule. The first violation rejects with that rule's message; an internal
// rule error rejects fail-closed with the error attached; all rules passing
// accepts.
func (g *Gate) ValidateEdgeCreation(ctx context.Context, kind types.EdgeKind, from, to *types.Node, props map[string]any) Verdict {
	candidate := rules.EdgeCandidate{Kind: kind, From: from, To: to, Props: props}
	for _, rule := range g.rules {
		violation, err := rule.Check(ctx, candidate)
		if err != nil {
			g.logger.Error("validation rule error, rejecting write",
				"rule", rule.Name(), "edge_type", kind, "error", err)
			return Verdict{
				Accepted: false,
				Rule:     rule.Name(),
				Reason:   fmt.Sprintf("Rule '%s' encountered error: %v", rule.Name(), err),
				Err:      err,
			}
		}
		if violation != nil {
			return Verdict{
				Accepted: false,
				Rule:     violation.Rule,
				Reason:   fmt.Sprintf("Rule '%s' failed: %s", violation.Rule, violation.Message),
			}
		}
	}
	return Verdict{Accepted: true}
}

// ValidateEdgeType is ValidateEdgeCreation for callers holding a raw edge
// type string. Unknown types are rejected, never passed through.
func (g *Gate) ValidateEdgeType(ctx context.Context, edgeType string, from, to *types.Node, props map[string]any) Verdict {
	kind, err := types.ParseEdgeKind(edgeType)
	if err != nil {
		return Verdict{Accepted: false, Reason: err.Error(), Err: err}
	}
	return g.ValidateEdgeCreation(ctx, kind, from, to, props)
}

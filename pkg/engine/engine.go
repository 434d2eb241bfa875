// Package engine implements the contradiction detection engine: it resolves
// a tenant scope, materializes a snapshot, runs the scan-time rule library
// and persists findings as append-only contradiction records.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/storyweave/continuity/pkg/rules"
	"github.com/storyweave/continuity/pkg/store"
	"github.com/storyweave/continuity/pkg/types"
)

// ScanStat is one scan's telemetry row.
type ScanStat struct {
	StoryID             string
	TotalContradictions int
	RulesFailed         int
	ScanDuration        time.Duration
	At                  time.Time
}

// ScanSink receives scan telemetry. Implementations must tolerate being
// called from concurrent scans.
type ScanSink interface {
	RecordScan(stat ScanStat) error
}

// Engine runs contradiction detection scans.
type Engine struct {
	store    store.GraphStore
	resolver *store.ScopeResolver
	rules    []rules.ScanRule
	sink     ScanSink
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithScanRules replaces the default scan-rule set.
func WithScanRules(ruleList []rules.ScanRule) Option {
	return func(e *Engine) { e.rules = ruleList }
}

// WithScanSink attaches a telemetry sink.
func WithScanSink(sink ScanSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// New creates an engine over the given store and scope resolver.
func New(graphStore store.GraphStore, resolver *store.ScopeResolver, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:    graphStore,
		resolver: resolver,
		rules:    rules.ScanRules(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DetectContradictions runs every scan rule against the story's scope and
// persists each finding. The result is always well formed: an unknown story
// or empty scope yields zero findings, a rule failure is skipped and
// logged, and a total store failure is carried in the Error field. It never
// returns a Go error, so callers on the scheduler path cannot crash on one.
func (e *Engine) DetectContradictions(ctx context.Context, storyID, userID string) *types.ContradictionDetectionResult {
	start := time.Now()
	result := &types.ContradictionDetectionResult{
		StoryID:           storyID,
		SeverityBreakdown: map[string]int{},
		Timestamp:         start,
	}
	finish := func() *types.ContradictionDetectionResult {
		result.TotalContradictions = len(result.ContradictionsFound)
		result.ScanDurationSeconds = time.Since(start).Seconds()
		return result
	}

	scope, err := e.resolver.Lookup(ctx, storyID, userID)
	if errors.Is(err, store.ErrScopeNotFound) {
		// No session for this story yet: nothing to scan.
		return finish()
	}
	if err != nil {
		result.Error = err.Error()
		return finish()
	}

	snap, err := e.loadSnapshot(ctx, scope)
	if err != nil {
		e.logger.Error("failed to load scan snapshot", "story_id", storyID, "error", err)
		result.Error = err.Error()
		return finish()
	}

	rulesFailed := 0
	var records []types.ContradictionRecord
	for _, rule := range e.rules {
		candidates, err := rule.Detect(ctx, snap)
		if err != nil {
			// Partial-failure isolation: one broken rule never aborts
			// the others.
			e.logger.Error("scan rule failed, skipping",
				"rule", rule.Name(), "story_id", storyID, "error", err)
			rulesFailed++
			continue
		}
		detectedAt := time.Now().UTC()
		for _, c := range candidates {
			records = append(records, types.ContradictionRecord{
				FromID:           c.FromID,
				ToID:             c.ToID,
				Severity:         types.NormalizeSeverity(c.Severity),
				RawSeverity:      c.Severity,
				Reason:           c.Reason,
				Confidence:       c.Confidence,
				DetectedAt:       detectedAt,
				RuleName:         rule.Name(),
				StoryID:          storyID,
				ResolutionStatus: "open",
			})
		}
	}

	e.CreateContradictionRecords(ctx, scope, records)

	for _, rec := range records {
		result.ContradictionsFound = append(result.ContradictionsFound, rec)
		result.SeverityBreakdown[rec.RawSeverity]++
	}
	finish()

	if e.sink != nil {
		stat := ScanStat{
			StoryID:             storyID,
			TotalContradictions: result.TotalContradictions,
			RulesFailed:         rulesFailed,
			ScanDuration:        time.Since(start),
			At:                  start,
		}
		if err := e.sink.RecordScan(stat); err != nil {
			e.logger.Warn("failed to record scan telemetry", "error", err)
		}
	}
	return result
}

// RunConsistencyScan is DetectContradictions with progress logging; the
// scheduler calls this.
func (e *Engine) RunConsistencyScan(ctx context.Context, storyID, userID string) *types.ContradictionDetectionResult {
	e.logger.Info("starting consistency scan", "story_id", storyID)
	result := e.DetectContradictions(ctx, storyID, userID)
	if result.Error != "" {
		e.logger.Error("consistency scan failed", "story_id", storyID, "error", result.Error)
		return result
	}
	if result.TotalContradictions > 0 {
		e.logger.Info("consistency scan found contradictions",
			"story_id", storyID,
			"total", result.TotalContradictions,
			"breakdown", result.SeverityBreakdown)
	} else {
		e.logger.Info("no contradictions detected", "story_id", storyID)
	}
	return result
}

// CreateContradictionRecords persists each record independently. A single
// persistence failure is logged and does not block the rest; writes are
// append-only, so concurrent scans over the same scope are safe.
func (e *Engine) CreateContradictionRecords(ctx context.Context, scope types.Scope, records []types.ContradictionRecord) {
	for i := range records {
		body, err := store.EncodeContradiction(&records[i])
		if err != nil {
			e.logger.Error("failed to encode contradiction record",
				"from_id", records[i].FromID, "to_id", records[i].ToID, "error", err)
			continue
		}
		_, err = e.store.AddRecord(ctx, store.RecordContradiction, body, scope.GroupID, records[i].DetectedAt)
		if err != nil {
			e.logger.Error("failed to persist contradiction record",
				"from_id", records[i].FromID, "to_id", records[i].ToID, "error", err)
		}
	}
}

// loadSnapshot materializes the tenant-scoped view the scan rules run
// over. Individual undecodable records are logged and skipped.
func (e *Engine) loadSnapshot(ctx context.Context, scope types.Scope) (*types.Snapshot, error) {
	records, err := e.store.RetrieveRecent(ctx, scope.GroupID, time.Time{}, 0)
	if err != nil {
		return nil, err
	}
	var nodes []*types.Node
	var edges []*types.Edge
	for _, rec := range records {
		switch {
		case isNodeRecord(rec):
			node, err := store.DecodeNode(rec)
			if err != nil {
				e.logger.Warn("skipping undecodable node record", "record_id", rec.ID, "error", err)
				continue
			}
			nodes = append(nodes, node)
		case isEdgeRecord(rec):
			edge, err := store.DecodeEdge(rec)
			if err != nil {
				e.logger.Warn("skipping undecodable edge record", "record_id", rec.ID, "error", err)
				continue
			}
			edges = append(edges, edge)
		}
	}
	return types.NewSnapshot(scope, nodes, edges), nil
}

func isNodeRecord(rec store.Record) bool {
	return len(rec.Name) > len(store.RecordNodePrefix) &&
		rec.Name[:len(store.RecordNodePrefix)] == store.RecordNodePrefix
}

func isEdgeRecord(rec store.Record) bool {
	return len(rec.Name) > len(store.RecordEdgePrefix) &&
		rec.Name[:len(store.RecordEdgePrefix)] == store.RecordEdgePrefix
}

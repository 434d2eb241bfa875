package engine

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/storyweave/continuity/pkg/store"
	"github.com/storyweave/continuity/pkg/types"
)

// GetContradictionReport aggregates the persisted contradiction records for
// one story into severity groups ordered by confidence. A story with no
// scope or no records yields a valid empty report; a store failure yields a
// report carrying the error.
func (e *Engine) GetContradictionReport(ctx context.Context, storyID, userID string) *types.ContradictionReport {
	report := &types.ContradictionReport{
		BySeverity:     map[string][]types.ContradictionRecord{},
		SeverityCounts: map[string]int{},
		GeneratedAt:    time.Now().UTC(),
	}

	scope, err := e.resolver.Lookup(ctx, storyID, userID)
	if errors.Is(err, store.ErrScopeNotFound) {
		return report
	}
	if err != nil {
		report.Error = err.Error()
		return report
	}

	records, err := e.store.Search(ctx, store.RecordContradiction, scope.GroupID, 0)
	if err != nil {
		e.logger.Error("failed to load contradiction records",
			"story_id", storyID, "error", err)
		report.Error = err.Error()
		return report
	}

	for _, rec := range records {
		if rec.Name != store.RecordContradiction {
			continue
		}
		c, err := store.DecodeContradiction(rec)
		if err != nil {
			e.logger.Warn("skipping undecodable contradiction record",
				"record_id", rec.ID, "error", err)
			continue
		}
		key := string(c.Severity)
		report.BySeverity[key] = append(report.BySeverity[key], *c)
		report.TotalContradictions++
	}
	for severity, group := range report.BySeverity {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Confidence > group[j].Confidence
		})
		report.BySeverity[severity] = group
		report.SeverityCounts[severity] = len(group)
	}
	return report
}

package engine

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyweave/continuity/pkg/rules"
	"github.com/storyweave/continuity/pkg/store"
	"github.com/storyweave/continuity/pkg/types"
)

type captureSink struct {
	stats []ScanStat
}

func (s *captureSink) RecordScan(stat ScanStat) error {
	s.stats = append(s.stats, stat)
	return nil
}

func seedConflictingKnowledge(t *testing.T, mem *store.MemoryStore, resolver *store.ScopeResolver) types.Scope {
	t.Helper()
	ctx := context.Background()
	scope, err := resolver.Resolve(ctx, "story-1", "user-1")
	require.NoError(t, err)

	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(10 * time.Minute)
	nodes := []*types.Node{
		{ID: "alice", Kind: types.CharacterNode, Name: "Alice", CreatedAt: &t0},
		{ID: "k1", Kind: types.KnowledgeNode, Name: "k1", Content: "The king is dead", ValidFrom: &t0},
		{ID: "k2", Kind: types.KnowledgeNode, Name: "k2", Content: "The king is alive", ValidFrom: &t1},
	}
	for _, n := range nodes {
		body, err := store.EncodeNode(n)
		require.NoError(t, err)
		_, err = mem.AddRecord(ctx, store.NodeRecordName(n.Kind), body, scope.GroupID, t0)
		require.NoError(t, err)
	}
	edges := []*types.Edge{
		{ID: "e1", Kind: types.EdgeKnows, FromID: "alice", ToID: "k1", CreatedAt: &t0},
		{ID: "e2", Kind: types.EdgeKnows, FromID: "alice", ToID: "k2", CreatedAt: &t1},
	}
	for _, e := range edges {
		body, err := store.EncodeEdge(e)
		require.NoError(t, err)
		_, err = mem.AddRecord(ctx, store.EdgeRecordName(e.Kind), body, scope.GroupID, t0)
		require.NoError(t, err)
	}
	return scope
}

func TestDetectContradictionsUnknownStory(t *testing.T) {
	eng := New(store.NewMemoryStore(), store.NewScopeResolver(), slog.Default())

	result := eng.DetectContradictions(context.Background(), "never-seen", "user-1")
	require.NotNil(t, result)
	assert.Empty(t, result.Error)
	assert.Zero(t, result.TotalContradictions)
	assert.Empty(t, result.ContradictionsFound)
}

func TestDetectContradictionsFindsAndPersists(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	resolver := store.NewScopeResolver()
	sink := &captureSink{}
	eng := New(mem, resolver, slog.Default(), WithScanSink(sink))

	scope := seedConflictingKnowledge(t, mem, resolver)

	result := eng.DetectContradictions(ctx, "story-1", "user-1")
	require.Empty(t, result.Error)

	// the dead/alive pair trips both the state rule and the text heuristic
	require.Equal(t, 2, result.TotalContradictions)
	assert.Equal(t, 1, result.SeverityBreakdown["critical"])
	assert.Equal(t, 1, result.SeverityBreakdown["medium"])
	for _, rec := range result.ContradictionsFound {
		assert.Equal(t, "story-1", rec.StoryID)
		assert.Equal(t, "open", rec.ResolutionStatus)
	}

	// findings are persisted as contradiction records in the story's scope
	persisted, err := mem.Search(ctx, store.RecordContradiction, scope.GroupID, 0)
	require.NoError(t, err)
	count := 0
	for _, rec := range persisted {
		if rec.Name == store.RecordContradiction {
			count++
		}
	}
	assert.Equal(t, 2, count)

	require.Len(t, sink.stats, 1)
	assert.Equal(t, "story-1", sink.stats[0].StoryID)
	assert.Equal(t, 2, sink.stats[0].TotalContradictions)
	assert.Zero(t, sink.stats[0].RulesFailed)
}

func TestGetContradictionReport(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	resolver := store.NewScopeResolver()
	eng := New(mem, resolver, slog.Default())

	// unknown story: valid empty report, no error
	report := eng.GetContradictionReport(ctx, "never-seen", "user-1")
	require.NotNil(t, report)
	assert.Empty(t, report.Error)
	assert.Zero(t, report.TotalContradictions)

	seedConflictingKnowledge(t, mem, resolver)
	eng.DetectContradictions(ctx, "story-1", "user-1")

	report = eng.GetContradictionReport(ctx, "story-1", "user-1")
	require.Empty(t, report.Error)
	assert.Equal(t, 2, report.TotalContradictions)

	// groups carry the normalized severity vocabulary
	assert.Equal(t, 1, report.SeverityCounts["critical"])
	assert.Equal(t, 1, report.SeverityCounts["minor"])
	require.Len(t, report.BySeverity["critical"], 1)
	assert.Equal(t, "detect_character_state_contradictions", report.BySeverity["critical"][0].RuleName)
}

// failingScanRule always errors; the scan must survive it.
type failingScanRule struct{}

func (failingScanRule) Name() string { return "always_fails" }
func (failingScanRule) Detect(context.Context, *types.Snapshot) ([]rules.Candidate, error) {
	return nil, assert.AnError
}

func TestDetectContradictionsIsolatesRuleFailure(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	resolver := store.NewScopeResolver()
	sink := &captureSink{}
	ruleList := append([]rules.ScanRule{failingScanRule{}}, rules.ScanRules()...)
	eng := New(mem, resolver, slog.Default(),
		WithScanRules(ruleList),
		WithScanSink(sink),
	)
	seedConflictingKnowledge(t, mem, resolver)

	// the broken rule is skipped; the others still report their findings
	result := eng.DetectContradictions(ctx, "story-1", "user-1")
	assert.Empty(t, result.Error)
	assert.Equal(t, 2, result.TotalContradictions)
	require.Len(t, sink.stats, 1)
	assert.Equal(t, 1, sink.stats[0].RulesFailed)
}

package gate

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyweave/continuity/pkg/types"
)

func testGate() *Gate {
	return New(slog.Default())
}

func TestValidateEdgeCreationAccepts(t *testing.T) {
	g := testGate()
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	validFrom := created.Add(time.Hour)

	alice := &types.Node{ID: "alice", Kind: types.CharacterNode, CreatedAt: &created}
	knowledge := &types.Node{ID: "k1", Kind: types.KnowledgeNode, ValidFrom: &validFrom}

	verdict := g.ValidateEdgeCreation(context.Background(), types.EdgeKnows, alice, knowledge, nil)
	assert.True(t, verdict.Accepted)
	assert.Empty(t, verdict.Reason)
}

func TestValidateEdgeCreationRejectsWithRuleName(t *testing.T) {
	g := testGate()
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	before := created.Add(-time.Hour)

	alice := &types.Node{ID: "alice", Kind: types.CharacterNode, CreatedAt: &created}
	knowledge := &types.Node{ID: "k1", Kind: types.KnowledgeNode, ValidFrom: &before}

	verdict := g.ValidateEdgeCreation(context.Background(), types.EdgeKnows, alice, knowledge, nil)
	require.False(t, verdict.Accepted)
	assert.Equal(t, "prevent_invalid_knows_edges", verdict.Rule)
	assert.Contains(t, verdict.Reason, "Rule 'prevent_invalid_knows_edges' failed:")
	assert.Nil(t, verdict.Err)
}

func TestValidateEdgeCreationFailsClosed(t *testing.T) {
	g := testGate()
	alice := &types.Node{ID: "alice", Kind: types.CharacterNode}
	bob := &types.Node{ID: "bob", Kind: types.CharacterNode}

	// an unparsable timestamp property is an internal rule error, and an
	// internal error must reject, not pass
	verdict := g.ValidateEdgeCreation(context.Background(), types.EdgeInteractsWith, alice, bob,
		map[string]any{"created_at": "not-a-time"})
	require.False(t, verdict.Accepted)
	assert.Equal(t, "validate_temporal_consistency", verdict.Rule)
	assert.Contains(t, verdict.Reason, "encountered error")
	assert.Error(t, verdict.Err)
}

func TestValidateEdgeCreationShortCircuits(t *testing.T) {
	g := testGate()
	alice := &types.Node{ID: "alice", Kind: types.CharacterNode}

	// the self-loop fires before the schema rule ever sees the bad prop
	verdict := g.ValidateEdgeCreation(context.Background(), types.EdgeRelationship, alice, alice,
		map[string]any{"strength": 99})
	require.False(t, verdict.Accepted)
	assert.Equal(t, "prevent_relationship_self_loops", verdict.Rule)
}

func TestValidateEdgeType(t *testing.T) {
	g := testGate()
	alice := &types.Node{ID: "alice", Kind: types.CharacterNode}
	bob := &types.Node{ID: "bob", Kind: types.CharacterNode}

	verdict := g.ValidateEdgeType(context.Background(), "FRIENDS_WITH", alice, bob, nil)
	require.False(t, verdict.Accepted)
	assert.Error(t, verdict.Err)

	verdict = g.ValidateEdgeType(context.Background(), "INTERACTS_WITH", alice, bob, nil)
	assert.True(t, verdict.Accepted)
}

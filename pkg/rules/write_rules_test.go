package rules

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyweave/continuity/pkg/types"
)

func TestKnowsTemporalRule(t *testing.T) {
	rule := &knowsTemporalRule{}
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	before := created.Add(-24 * time.Hour)

	alice := &types.Node{ID: "alice", Kind: types.CharacterNode, CreatedAt: &created}

	// knowledge valid before the character existed is rejected
	k1 := &types.Node{ID: "k1", Kind: types.KnowledgeNode, ValidFrom: &before}
	v, err := rule.Check(context.Background(), EdgeCandidate{Kind: types.EdgeKnows, From: alice, To: k1})
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "Knowledge valid from 2024-02-29T00:00:00Z but character created at 2024-03-01T00:00:00Z", v.Message)

	// valid after creation passes
	after := created.Add(time.Hour)
	k2 := &types.Node{ID: "k2", Kind: types.KnowledgeNode, ValidFrom: &after}
	v, err = rule.Check(context.Background(), EdgeCandidate{Kind: types.EdgeKnows, From: alice, To: k2})
	require.NoError(t, err)
	assert.Nil(t, v)

	// missing timestamps are violations, not errors
	v, err = rule.Check(context.Background(), EdgeCandidate{
		Kind: types.EdgeKnows,
		From: &types.Node{ID: "x"},
		To:   k2,
	})
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "Character must have creation timestamp", v.Message)

	v, err = rule.Check(context.Background(), EdgeCandidate{
		Kind: types.EdgeKnows,
		From: alice,
		To:   &types.Node{ID: "k3", Kind: types.KnowledgeNode},
	})
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "Knowledge must have valid_from timestamp", v.Message)

	// other edge kinds are ignored
	v, err = rule.Check(context.Background(), EdgeCandidate{Kind: types.EdgeOwns, From: alice, To: k1})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestRelationshipSelfLoopRule(t *testing.T) {
	rule := &relationshipSelfLoopRule{}
	alice := &types.Node{ID: "alice", Kind: types.CharacterNode}

	v, err := rule.Check(context.Background(), EdgeCandidate{
		Kind: types.EdgeRelationship, From: alice, To: alice,
	})
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "Self-loop detected: character alice cannot have relationship with itself", v.Message)

	v, err = rule.Check(context.Background(), EdgeCandidate{
		Kind: types.EdgeRelationship, From: alice, To: &types.Node{},
	})
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "Both nodes must have valid IDs", v.Message)

	bob := &types.Node{ID: "bob", Kind: types.CharacterNode}
	v, err = rule.Check(context.Background(), EdgeCandidate{
		Kind: types.EdgeRelationship, From: alice, To: bob,
	})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestTemporalOrderingRule(t *testing.T) {
	rule := &temporalOrderingRule{}

	v, err := rule.Check(context.Background(), EdgeCandidate{
		Kind: types.EdgeInteractsWith,
		Props: map[string]any{
			"created_at": "2024-03-02T00:00:00Z",
			"updated_at": "2024-03-01T00:00:00Z",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "created_at cannot be after updated_at", v.Message)

	// unparsable timestamp is an internal error, so the gate fails closed
	_, err = rule.Check(context.Background(), EdgeCandidate{
		Kind:  types.EdgeInteractsWith,
		Props: map[string]any{"created_at": "not-a-time"},
	})
	assert.Error(t, err)

	// inverted knowledge window behind a KNOWS edge
	from := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)
	v, err = rule.Check(context.Background(), EdgeCandidate{
		Kind: types.EdgeKnows,
		From: &types.Node{ID: "a"},
		To:   &types.Node{ID: "k", ValidFrom: &from, ValidTo: &to},
	})
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "Knowledge valid_from cannot be after valid_to", v.Message)
}

func TestSceneOrderRule(t *testing.T) {
	rule := &sceneOrderRule{}
	alice := &types.Node{ID: "alice", Kind: types.CharacterNode}

	v, err := rule.Check(context.Background(), EdgeCandidate{
		Kind: types.EdgePresentIn, From: alice,
		To: &types.Node{ID: "s1", Kind: types.SceneNode, SceneOrder: -1},
	})
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "Scene order must be non-negative", v.Message)

	v, err = rule.Check(context.Background(), EdgeCandidate{
		Kind: types.EdgePresentIn, From: alice,
		To: &types.Node{ID: "s2", Kind: types.SceneNode, SceneOrder: 0},
	})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestOwnershipWindowRule(t *testing.T) {
	rule := &ownershipWindowRule{}

	v, err := rule.Check(context.Background(), EdgeCandidate{
		Kind: types.EdgeOwns,
		Props: map[string]any{
			"ownership_start": "2024-03-02T00:00:00Z",
			"ownership_end":   "2024-03-01T00:00:00Z",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "ownership_start cannot be after ownership_end", v.Message)

	// open-ended ownership is fine
	v, err = rule.Check(context.Background(), EdgeCandidate{
		Kind:  types.EdgeOwns,
		Props: map[string]any{"ownership_start": "2024-03-01T00:00:00Z"},
	})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestPropertySchemaRule(t *testing.T) {
	rule := &propertySchemaRule{}

	v, err := rule.Check(context.Background(), EdgeCandidate{
		Kind:  types.EdgeOwns,
		Props: map[string]any{"transfer_method": "borrowed"},
	})
	require.NoError(t, err)
	assert.NotNil(t, v)

	v, err = rule.Check(context.Background(), EdgeCandidate{
		Kind:  types.EdgeOwns,
		Props: map[string]any{"transfer_method": "gift"},
	})
	require.NoError(t, err)
	assert.Nil(t, v)

	// unknown properties pass through untouched
	v, err = rule.Check(context.Background(), EdgeCandidate{
		Kind:  types.EdgeOwns,
		Props: map[string]any{"custom_note": 42},
	})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestWriteRulesOrder(t *testing.T) {
	names := make([]string, 0)
	for _, r := range WriteRules() {
		names = append(names, r.Name())
	}
	assert.Equal(t, []string{
		"prevent_invalid_knows_edges",
		"prevent_relationship_self_loops",
		"validate_temporal_consistency",
		"validate_scene_order",
		"validate_ownership_temporal_logic",
		"validate_property_schema",
	}, names)
}

package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotFixture() *Snapshot {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	deleted := created.Add(time.Hour)

	nodes := []*Node{
		{ID: "alice", Kind: CharacterNode, Name: "Alice", CreatedAt: &created},
		{ID: "bob", Kind: CharacterNode, Name: "Bob", CreatedAt: &created},
		{ID: "ghost", Kind: CharacterNode, Name: "Ghost", DeletedAt: &deleted},
		{ID: "k1", Kind: KnowledgeNode, Content: "the king is dead", ValidFrom: &created},
		{ID: "s1", Kind: SceneNode, Name: "Opening", SceneOrder: 1},
		{ID: "s2", Kind: SceneNode, Name: "Ambush", SceneOrder: 1},
		{ID: "forest", Kind: LocationNode, Name: "Forest"},
		{ID: "castle", Kind: LocationNode, Name: "Castle"},
	}
	edges := []*Edge{
		{ID: "e1", Kind: EdgeKnows, FromID: "alice", ToID: "k1"},
		{ID: "e2", Kind: EdgePresentIn, FromID: "bob", ToID: "s1"},
		{ID: "e3", Kind: EdgePresentIn, FromID: "bob", ToID: "s2"},
		{ID: "e4", Kind: EdgeOccursIn, FromID: "s1", ToID: "forest"},
		{ID: "e5", Kind: EdgeOccursIn, FromID: "s2", ToID: "castle"},
		{ID: "e6", Kind: EdgeContradicts, FromID: "k1", ToID: "k2"},
		// dangling edge: target never existed
		{ID: "e7", Kind: EdgeKnows, FromID: "alice", ToID: "missing"},
		// edge onto a soft-deleted node
		{ID: "e8", Kind: EdgeKnows, FromID: "ghost", ToID: "k1"},
	}
	return NewSnapshot(Scope{StoryID: "story-1"}, nodes, edges)
}

func TestSnapshotDropsDeletedAndDangling(t *testing.T) {
	snap := snapshotFixture()

	assert.Nil(t, snap.Node("ghost"), "soft-deleted nodes are invisible")
	assert.Nil(t, snap.Node("missing"))
	assert.Len(t, snap.Nodes(CharacterNode), 2)
	assert.Empty(t, snap.KnowledgeKnownBy("ghost"))
}

func TestSnapshotIndexes(t *testing.T) {
	snap := snapshotFixture()

	known := snap.KnowledgeKnownBy("alice")
	require.Len(t, known, 1)
	assert.Equal(t, "k1", known[0].ID)

	scenes := snap.ScenesWith("bob")
	require.Len(t, scenes, 2)
	assert.Equal(t, "s1", scenes[0].ID)
	assert.Equal(t, "s2", scenes[1].ID)

	require.NotNil(t, snap.LocationOf("s1"))
	assert.Equal(t, "forest", snap.LocationOf("s1").ID)
	assert.Nil(t, snap.LocationOf("s3"))
}

func TestSnapshotLinked(t *testing.T) {
	snap := snapshotFixture()

	assert.True(t, snap.Linked("k1", "k2"))
	// direction does not matter
	assert.True(t, snap.Linked("k2", "k1"))
	assert.False(t, snap.Linked("k1", "k3"))
}

func TestRelationshipsBetweenOrdering(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	nodes := []*Node{
		{ID: "a", Kind: CharacterNode},
		{ID: "b", Kind: CharacterNode},
	}
	edges := []*Edge{
		{ID: "r2", Kind: EdgeRelationship, FromID: "a", ToID: "b", CreatedAt: &late,
			Props: map[string]any{"relationship_type": "enemy"}},
		{ID: "r1", Kind: EdgeRelationship, FromID: "a", ToID: "b", CreatedAt: &early,
			Props: map[string]any{"relationship_type": "ally"}},
	}
	snap := NewSnapshot(Scope{}, nodes, edges)

	rels := snap.RelationshipsBetween("a", "b")
	require.Len(t, rels, 2)
	assert.Equal(t, "r1", rels[0].ID, "ordered by creation time")
	assert.Equal(t, "r2", rels[1].ID)
	assert.Empty(t, snap.RelationshipsBetween("b", "a"))
}

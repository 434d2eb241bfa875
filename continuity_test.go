package continuity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyweave/continuity/pkg/config"
	"github.com/storyweave/continuity/pkg/types"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := &config.Config{}
	cfg.Store.Driver = "memory"
	cfg.Scheduler.Interval = 300
	cfg.Scheduler.CheckpointDir = t.TempDir()

	client, err := NewClient(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() }) //nolint:errcheck
	return client
}

func TestClientAddNodeAndRetrieve(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	node := &types.Node{Kind: types.CharacterNode, Name: "Alice"}
	require.NoError(t, client.AddNode(ctx, "story-1", "user-1", node))
	assert.NotEmpty(t, node.ID)
	assert.Equal(t, "story-1", node.StoryID)

	records, err := client.Search(ctx, "story-1", "user-1", "Alice", 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	records, err = client.RetrieveRecent(ctx, "story-1", "user-1", time.Time{}, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	// users on the same story keep separate scopes
	require.NoError(t, client.AddNode(ctx, "story-1", "user-2",
		&types.Node{Kind: types.CharacterNode, Name: "Bob"}))
	records, err = client.Search(ctx, "story-1", "user-1", "Bob", 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestClientAddEdgeGating(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	validFrom := created.Add(time.Hour)
	alice := &types.Node{ID: "alice", Kind: types.CharacterNode, CreatedAt: &created}
	knowledge := &types.Node{ID: "k1", Kind: types.KnowledgeNode, ValidFrom: &validFrom}

	verdict, err := client.AddEdge(ctx, "story-1", "user-1", types.EdgeKnows, alice, knowledge, nil)
	require.NoError(t, err)
	assert.True(t, verdict.Accepted)

	records, err := client.Search(ctx, "story-1", "user-1", "edge:KNOWS", 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	// a rejected edge carries the verdict and is never stored
	verdict, err = client.AddEdge(ctx, "story-1", "user-1", types.EdgeRelationship, alice, alice, nil)
	require.NoError(t, err)
	require.False(t, verdict.Accepted)
	assert.Equal(t, "prevent_relationship_self_loops", verdict.Rule)

	records, err = client.Search(ctx, "story-1", "user-1", "edge:RELATIONSHIP", 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestClientDetectAndReport(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(10 * time.Minute)
	require.NoError(t, client.AddNode(ctx, "story-1", "user-1",
		&types.Node{ID: "alice", Kind: types.CharacterNode, Name: "Alice", CreatedAt: &t0}))
	require.NoError(t, client.AddNode(ctx, "story-1", "user-1",
		&types.Node{ID: "k1", Kind: types.KnowledgeNode, Content: "The king is dead", ValidFrom: &t0}))
	require.NoError(t, client.AddNode(ctx, "story-1", "user-1",
		&types.Node{ID: "k2", Kind: types.KnowledgeNode, Content: "The king is alive", ValidFrom: &t1}))

	alice := &types.Node{ID: "alice", Kind: types.CharacterNode, CreatedAt: &t0}
	for _, kid := range []string{"k1", "k2"} {
		vf := t0
		if kid == "k2" {
			vf = t1
		}
		verdict, err := client.AddEdge(ctx, "story-1", "user-1", types.EdgeKnows,
			alice, &types.Node{ID: kid, Kind: types.KnowledgeNode, ValidFrom: &vf}, nil)
		require.NoError(t, err)
		require.True(t, verdict.Accepted, verdict.Reason)
	}

	result := client.DetectContradictions(ctx, "story-1", "user-1")
	require.Empty(t, result.Error)
	assert.Equal(t, 2, result.TotalContradictions)

	report := client.ConsistencyReport(ctx, "story-1", "user-1")
	require.Empty(t, report.Error)
	assert.Equal(t, 2, report.TotalContradictions)
	assert.Equal(t, 1, report.SeverityCounts["critical"])
}

func TestClientSchedulerStatus(t *testing.T) {
	client := newTestClient(t)

	status := client.SchedulerStatus(context.Background(), "", "")
	assert.False(t, status.IsRunning)
	assert.Equal(t, 300*time.Second, status.RunInterval)

	client.StartScheduler()
	assert.True(t, client.SchedulerStatus(context.Background(), "", "").IsRunning)
	client.StopScheduler()
}

func TestClientQueryGateway(t *testing.T) {
	client := newTestClient(t)

	valid, msg := client.ValidateQuery("MATCH (n) WHERE n.story_id = 'story-1' RETURN n")
	assert.True(t, valid)
	assert.Equal(t, "Query validation passed", msg)

	// the memory backend has no raw-query support; the result says so
	// instead of erroring
	result := client.ExecuteQuery(context.Background(),
		"MATCH (n) WHERE n.story_id = 'story-1' RETURN n", nil, true)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Suggestion)
}

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBadger(t *testing.T) *BadgerStore {
	t.Helper()
	b, err := NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() }) //nolint:errcheck
	return b
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := newTestBadger(t)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		_, err := b.AddRecord(ctx, "node:Scene", map[string]any{"title": fmt.Sprintf("scene-%d", i)},
			"g1", base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}

	// records come back in time order, limit keeps the newest
	recs, err := b.RetrieveRecent(ctx, "g1", time.Time{}, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "scene-2", recs[0].Body["title"])
	assert.Equal(t, "scene-3", recs[1].Body["title"])

	recs, err = b.RetrieveRecent(ctx, "g1", base.Add(3*time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "scene-3", recs[0].Body["title"])
}

func TestBadgerStoreSearch(t *testing.T) {
	ctx := context.Background()
	b := newTestBadger(t)
	now := time.Now()

	_, err := b.AddRecord(ctx, "node:Character", map[string]any{"name": "Alice"}, "g1", now)
	require.NoError(t, err)
	_, err = b.AddRecord(ctx, "node:Character", map[string]any{"name": "Bob"}, "g2", now)
	require.NoError(t, err)

	recs, err := b.Search(ctx, "alice", "g1", 0)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	// scopes are isolated by key prefix
	recs, err = b.Search(ctx, "bob", "g1", 0)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/storyweave/continuity/pkg/types"
)

// ScopeResolver owns the story -> scope mapping. It is the single writer of
// that state; callers hold a handle rather than sharing a global map.
type ScopeResolver struct {
	mu     sync.RWMutex
	scopes map[string]types.Scope
}

// NewScopeResolver creates an empty resolver.
func NewScopeResolver() *ScopeResolver {
	return &ScopeResolver{scopes: map[string]types.Scope{}}
}

func scopeKey(storyID, userID string) string {
	return storyID + "\x00" + userID
}

// Resolve returns the scope for a (story, user) pair, creating one if none
// exists yet. Scope IDs are stable for the resolver's lifetime.
func (r *ScopeResolver) Resolve(_ context.Context, storyID, userID string) (types.Scope, error) {
	if storyID == "" {
		return types.Scope{}, fmt.Errorf("story id is required")
	}
	key := scopeKey(storyID, userID)

	r.mu.RLock()
	scope, ok := r.scopes[key]
	r.mu.RUnlock()
	if ok {
		return scope, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if scope, ok = r.scopes[key]; ok {
		return scope, nil
	}
	scope = types.Scope{
		StoryID: storyID,
		UserID:  userID,
		GroupID: fmt.Sprintf("story-%s-%s", storyID, uuid.NewString()[:8]),
	}
	r.scopes[key] = scope
	return scope, nil
}

// Lookup returns the existing scope for a (story, user) pair without
// creating one. Missing scopes return ErrScopeNotFound.
func (r *ScopeResolver) Lookup(_ context.Context, storyID, userID string) (types.Scope, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	scope, ok := r.scopes[scopeKey(storyID, userID)]
	if !ok {
		return types.Scope{}, ErrScopeNotFound
	}
	return scope, nil
}

// Scopes returns every registered scope, ordered by group ID. The scheduler
// iterates this set on each periodic pass.
func (r *ScopeResolver) Scopes() []types.Scope {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Scope, 0, len(r.scopes))
	for _, s := range r.scopes {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GroupID < out[j].GroupID })
	return out
}

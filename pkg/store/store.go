// Package store defines the narrow boundary the consistency core needs from
// a graph/episodic store: scoped search, recency retrieval and append-only
// record creation. Raw structured queries are an optional escape hatch that
// only the query gateway may use.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrScopeNotFound means no scope has been created for a story yet.
	// Read paths treat this as zero results rather than a failure.
	ErrScopeNotFound = errors.New("scope not found")

	// ErrStoreUnavailable means the backing store cannot be reached.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrRawQueriesDisabled means the store has no raw-query escape hatch.
	ErrRawQueriesDisabled = errors.New("raw queries are not supported by this store")
)

// Record is a flat key/value unit of persisted state. Everything the core
// persists round-trips through this shape, independent of the engine behind
// the interface.
type Record struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Body  map[string]any `json:"body"`
	Scope string         `json:"scope"`
	At    time.Time      `json:"at"`
}

// GraphStore is the read/append surface the core consumes.
type GraphStore interface {
	// Search returns records in scope whose name or body matches query.
	Search(ctx context.Context, query string, scope string, limit int) ([]Record, error)

	// RetrieveRecent returns records in scope at or after since, newest
	// last, capped at limit. A zero since means everything.
	RetrieveRecent(ctx context.Context, scope string, since time.Time, limit int) ([]Record, error)

	// AddRecord appends a record and returns its generated ID. Records are
	// never mutated in place.
	AddRecord(ctx context.Context, name string, body map[string]any, scope string, at time.Time) (string, error)

	Close() error
}

// RawQuerier executes a structured read query directly against the backing
// store. Implemented only by stores with a native query language; the query
// gateway validates every query before it gets here.
type RawQuerier interface {
	ExecuteRawQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
}

// Record name tags. The snapshot loader dispatches on these.
const (
	RecordNodePrefix        = "node:"
	RecordEdgePrefix        = "edge:"
	RecordContradiction     = "contradiction"
	RecordContradictionLink = "edge:CONTRADICTS"
)

// Package queryguard validates, executes and caches ad-hoc read-only graph
// queries for external callers. Every query passes the same denylist,
// tenant-isolation and structure checks before it can touch the store's
// raw-query escape hatch.
package queryguard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/storyweave/continuity/pkg/store"
	"github.com/storyweave/continuity/pkg/types"
)

const (
	cacheLimit = 100
	cacheTrim  = 20
)

// dangerousOps is the mutating-keyword denylist. Any match rejects the
// query outright.
var dangerousOps = []string{"DELETE", "DROP", "CREATE", "MERGE", "SET", "REMOVE", "DETACH"}

var dangerousRe = regexp.MustCompile(`\b(` + strings.Join(dangerousOps, "|") + `)\b`)

var quotedLiteralRe = regexp.MustCompile(`'([^']+)'|"([^"]+)"`)

var comparisonOps = []string{"<=", ">=", "<", ">", "="}

// QueryResult is the structured outcome of Execute. Invalid queries and
// execution failures both land here; Execute never returns a Go error.
type QueryResult struct {
	Success    bool             `json:"success"`
	Data       []map[string]any `json:"data,omitempty"`
	Error      string           `json:"error,omitempty"`
	Cached     bool             `json:"cached"`
	Suggestion string           `json:"suggestion,omitempty"`
}

// Gateway validates and executes ad-hoc read queries, with a bounded
// result cache it owns exclusively.
type Gateway struct {
	store  store.GraphStore
	cache  *lru.Cache[string, []map[string]any]
	enums  map[string][]string
	logger *slog.Logger
}

// New creates a gateway over the given store. Results are cached up to
// cacheLimit entries; on overflow the cacheTrim least-recently-used
// entries are dropped before the next insert.
func New(graphStore store.GraphStore, logger *slog.Logger) (*Gateway, error) {
	// Headroom above cacheLimit so eviction happens only through the
	// explicit batch trim, never inside the library.
	cache, err := lru.New[string, []map[string]any](cacheLimit + cacheTrim)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}
	return &Gateway{
		store:  graphStore,
		cache:  cache,
		enums:  types.Enums(),
		logger: logger,
	}, nil
}

// Validate checks a query against every gateway rule. All must pass; the
// message names the violated rule on failure.
func (g *Gateway) Validate(query string) (bool, string) {
	upper := strings.ToUpper(query)

	if m := dangerousRe.FindString(upper); m != "" {
		return false, fmt.Sprintf("Dangerous operation '%s' detected. Only read operations are allowed.", m)
	}
	if !strings.Contains(upper, "STORY_ID") {
		return false, "Query must include story_id filter for data isolation"
	}
	if !validSyntax(query) {
		return false, "Invalid Cypher syntax detected"
	}
	if strings.Contains(upper, "VALID_FROM") || strings.Contains(upper, "VALID_TO") {
		if !validTemporalPattern(query) {
			return false, "Invalid temporal query pattern. Use proper temporal constraints."
		}
	}
	if errs := g.enumErrors(query); len(errs) > 0 {
		return false, "Enum validation errors: " + strings.Join(errs, "; ")
	}
	return true, "Query validation passed"
}

// validSyntax requires balanced parens, brackets and braces plus a read
// pattern and a projection clause.
func validSyntax(query string) bool {
	paren, bracket, brace := 0, 0, 0
	for _, ch := range query {
		switch ch {
		case '(':
			paren++
		case ')':
			paren--
		case '[':
			bracket++
		case ']':
			bracket--
		case '{':
			brace++
		case '}':
			brace--
		}
		if paren < 0 || bracket < 0 || brace < 0 {
			return false
		}
	}
	if paren != 0 || bracket != 0 || brace != 0 {
		return false
	}
	upper := strings.ToUpper(query)
	return strings.Contains(upper, "MATCH") && strings.Contains(upper, "RETURN")
}

// validTemporalPattern requires temporal fields to carry an explicit
// constraint: a comparison for valid_from, a null check for valid_to. A
// bare reference is rejected.
func validTemporalPattern(query string) bool {
	lower := strings.ToLower(query)
	if strings.Contains(lower, "valid_from") {
		found := false
		for _, op := range comparisonOps {
			if strings.Contains(lower, op) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if strings.Contains(lower, "valid_to") {
		if !strings.Contains(lower, "is null") && !strings.Contains(lower, "is not null") {
			return false
		}
	}
	return true
}

// enumErrors flags quoted literals that match a known enum value except
// for case, and suggests the correct spelling.
func (g *Gateway) enumErrors(query string) []string {
	var errs []string
	var literals []string
	for _, m := range quotedLiteralRe.FindAllStringSubmatch(query, -1) {
		if m[1] != "" {
			literals = append(literals, m[1])
		} else {
			literals = append(literals, m[2])
		}
	}
	names := make([]string, 0, len(g.enums))
	for name := range g.enums {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		values := g.enums[name]
		for _, literal := range literals {
			if containsExact(values, literal) {
				continue
			}
			if containsFold(values, literal) {
				errs = append(errs, fmt.Sprintf(
					"Enum value '%s' has incorrect case. Use: %v", literal, values))
			}
		}
	}
	return errs
}

func containsExact(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// Execute validates and runs a query. Invalid queries never reach the
// store; valid queries that fail at execution return a structured error
// without touching the cache. Successful results are cached unless
// useCache is false.
func (g *Gateway) Execute(ctx context.Context, query string, params map[string]any, useCache bool) QueryResult {
	valid, msg := g.Validate(query)
	if !valid {
		return QueryResult{
			Success:    false,
			Error:      "Query validation failed: " + msg,
			Suggestion: "Consider using the episodic APIs: Search() or RetrieveRecent()",
		}
	}

	key := queryHash(query, params)
	if useCache {
		if data, ok := g.cache.Get(key); ok {
			return QueryResult{Success: true, Data: data, Cached: true}
		}
	}

	raw, ok := g.store.(store.RawQuerier)
	if !ok {
		return QueryResult{
			Success:    false,
			Error:      store.ErrRawQueriesDisabled.Error(),
			Suggestion: "Consider using the episodic APIs: Search() or RetrieveRecent()",
		}
	}

	data, err := raw.ExecuteRawQuery(ctx, query, params)
	if err != nil {
		g.logger.Warn("raw query execution failed", "error", err)
		return QueryResult{
			Success:    false,
			Error:      "Query execution failed: " + err.Error(),
			Suggestion: "Consider using the episodic APIs: Search() or RetrieveRecent()",
		}
	}

	if useCache {
		g.put(key, data)
	}
	return QueryResult{Success: true, Data: data, Cached: false}
}

// put inserts a result, trimming the oldest entries in a batch once the
// cache is full.
func (g *Gateway) put(key string, data []map[string]any) {
	if g.cache.Len() >= cacheLimit {
		for i := 0; i < cacheTrim; i++ {
			g.cache.RemoveOldest()
		}
	}
	g.cache.Add(key, data)
}

// CacheLen reports the current number of cached results.
func (g *Gateway) CacheLen() int { return g.cache.Len() }

// queryHash keys the cache by query text plus canonical parameters.
// json.Marshal writes map keys in sorted order, so equal parameter sets
// hash equally.
func queryHash(query string, params map[string]any) string {
	encoded, err := json.Marshal(params)
	if err != nil {
		encoded = []byte(fmt.Sprintf("%v", params))
	}
	sum := sha256.Sum256([]byte(query + ":" + string(encoded)))
	return hex.EncodeToString(sum[:])
}

package continuity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/storyweave/continuity/pkg/checkpoint"
	"github.com/storyweave/continuity/pkg/config"
	"github.com/storyweave/continuity/pkg/engine"
	"github.com/storyweave/continuity/pkg/gate"
	"github.com/storyweave/continuity/pkg/queryguard"
	"github.com/storyweave/continuity/pkg/scheduler"
	"github.com/storyweave/continuity/pkg/store"
	"github.com/storyweave/continuity/pkg/telemetry"
	"github.com/storyweave/continuity/pkg/types"
)

// Continuity is the main interface for maintaining a temporally
// consistent story graph. It validates writes before they land, scans
// the stored graph for contradictions, and guards ad-hoc read queries.
type Continuity interface {
	// AddNode persists a story entity into the caller's scope.
	AddNode(ctx context.Context, storyID, userID string, node *types.Node) error

	// AddEdge validates a relationship against the write rules and
	// persists it only when every rule passes. The verdict explains a
	// rejection; err reports storage failures after acceptance.
	AddEdge(ctx context.Context, storyID, userID string, kind types.EdgeKind, from, to *types.Node, props map[string]any) (gate.Verdict, error)

	// ValidateEdge runs the write rules without persisting anything.
	ValidateEdge(ctx context.Context, kind types.EdgeKind, from, to *types.Node, props map[string]any) gate.Verdict

	// ValidateEdgeType is ValidateEdge for a raw, untrusted type string.
	ValidateEdgeType(ctx context.Context, edgeType string, from, to *types.Node, props map[string]any) gate.Verdict

	// DetectContradictions scans one story's graph and persists any
	// findings. The result carries an error message instead of failing.
	DetectContradictions(ctx context.Context, storyID, userID string) *types.ContradictionDetectionResult

	// ConsistencyReport aggregates stored contradictions by severity.
	ConsistencyReport(ctx context.Context, storyID, userID string) *types.ContradictionReport

	// ExecuteQuery validates and runs an ad-hoc read query through the
	// safety gateway.
	ExecuteQuery(ctx context.Context, query string, params map[string]any, useCache bool) queryguard.QueryResult

	// ValidateQuery checks a query against the gateway rules without
	// executing it.
	ValidateQuery(query string) (bool, string)

	// QuerySuggestions returns optimization hints for a query.
	QuerySuggestions(query string) []string

	// Search returns stored records matching the query text.
	Search(ctx context.Context, storyID, userID, query string, limit int) ([]store.Record, error)

	// RetrieveRecent returns the newest records in a scope.
	RetrieveRecent(ctx context.Context, storyID, userID string, since time.Time, limit int) ([]store.Record, error)

	// StartScheduler begins periodic background scans.
	StartScheduler()

	// StopScheduler requests a cooperative stop of background scans.
	StopScheduler()

	// SchedulerStatus reports scheduler state and the latest report for
	// storyID when one is given.
	SchedulerStatus(ctx context.Context, storyID, userID string) types.SchedulerStatus

	// Close releases the store and flushes telemetry.
	Close() error
}

// Client wires the store, validation gate, detection engine, scheduler
// and query gateway into one unit.
type Client struct {
	cfg      *config.Config
	store    store.GraphStore
	resolver *store.ScopeResolver
	gate     *gate.Gate
	engine   *engine.Engine
	sched    *scheduler.Scheduler
	gateway  *queryguard.Gateway
	sink     *telemetry.ParquetScanSink
	logger   *slog.Logger
}

// NewClient builds a client from configuration. The store backend is
// chosen by cfg.Store.Driver: "memory", "badger" or "neo4j".
func NewClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	graphStore, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.CircuitBreaker.Enabled {
		graphStore = store.NewBreakerStore(graphStore, store.BreakerConfig{
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
			Interval:         time.Duration(cfg.CircuitBreaker.Interval) * time.Second,
			Timeout:          time.Duration(cfg.CircuitBreaker.Timeout) * time.Second,
			ReadyToTripRatio: cfg.CircuitBreaker.ReadyToTripRatio,
		}, logger)
	}

	resolver := store.NewScopeResolver()

	var sink *telemetry.ParquetScanSink
	engineOpts := []engine.Option{}
	if cfg.Telemetry.ParquetPath != "" {
		sink, err = telemetry.NewParquetScanSink(cfg.Telemetry.ParquetPath, 0)
		if err != nil {
			logger.Warn("scan telemetry disabled", "error", err)
			sink = nil
		} else {
			engineOpts = append(engineOpts, engine.WithScanSink(sink))
		}
	}

	eng := engine.New(graphStore, resolver, logger, engineOpts...)

	checkpoints, err := checkpoint.NewManager(cfg.Scheduler.CheckpointDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkpoint manager: %w", err)
	}
	interval := time.Duration(cfg.Scheduler.Interval) * time.Second
	sched := scheduler.New(eng, resolver, interval, checkpoints, logger)

	gateway, err := queryguard.New(graphStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create query gateway: %w", err)
	}

	return &Client{
		cfg:      cfg,
		store:    graphStore,
		resolver: resolver,
		gate:     gate.New(logger),
		engine:   eng,
		sched:    sched,
		gateway:  gateway,
		sink:     sink,
		logger:   logger,
	}, nil
}

func openStore(cfg *config.Config) (store.GraphStore, error) {
	switch cfg.Store.Driver {
	case "memory":
		return store.NewMemoryStore(), nil
	case "badger", "":
		return store.NewBadgerStore(cfg.Store.URI)
	case "neo4j":
		return store.NewNeo4jStore(cfg.Store.URI, cfg.Store.Username, cfg.Store.Password, cfg.Store.Database)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// AddNode implements Continuity.
func (c *Client) AddNode(ctx context.Context, storyID, userID string, node *types.Node) error {
	scope, err := c.resolver.Resolve(ctx, storyID, userID)
	if err != nil {
		return err
	}
	if node.ID == "" {
		node.ID = uuid.New().String()
	}
	node.StoryID = storyID
	node.UserID = userID
	if node.CreatedAt == nil {
		now := time.Now().UTC()
		node.CreatedAt = &now
	}

	body, err := store.EncodeNode(node)
	if err != nil {
		return err
	}
	_, err = c.store.AddRecord(ctx, store.NodeRecordName(node.Kind), body, scope.GroupID, *node.CreatedAt)
	return err
}

// AddEdge implements Continuity. Rejected edges never reach the store.
func (c *Client) AddEdge(ctx context.Context, storyID, userID string, kind types.EdgeKind, from, to *types.Node, props map[string]any) (gate.Verdict, error) {
	verdict := c.gate.ValidateEdgeCreation(ctx, kind, from, to, props)
	if !verdict.Accepted {
		return verdict, nil
	}

	scope, err := c.resolver.Resolve(ctx, storyID, userID)
	if err != nil {
		return verdict, err
	}

	now := time.Now().UTC()
	edge := &types.Edge{
		ID:        uuid.New().String(),
		Kind:      kind,
		FromID:    from.ID,
		ToID:      to.ID,
		StoryID:   storyID,
		UserID:    userID,
		Props:     props,
		CreatedAt: &now,
	}
	body, err := store.EncodeEdge(edge)
	if err != nil {
		return verdict, err
	}
	_, err = c.store.AddRecord(ctx, store.EdgeRecordName(edge.Kind), body, scope.GroupID, now)
	return verdict, err
}

// ValidateEdge implements Continuity.
func (c *Client) ValidateEdge(ctx context.Context, kind types.EdgeKind, from, to *types.Node, props map[string]any) gate.Verdict {
	return c.gate.ValidateEdgeCreation(ctx, kind, from, to, props)
}

// ValidateEdgeType implements Continuity.
func (c *Client) ValidateEdgeType(ctx context.Context, edgeType string, from, to *types.Node, props map[string]any) gate.Verdict {
	return c.gate.ValidateEdgeType(ctx, edgeType, from, to, props)
}

// DetectContradictions implements Continuity.
func (c *Client) DetectContradictions(ctx context.Context, storyID, userID string) *types.ContradictionDetectionResult {
	return c.engine.DetectContradictions(ctx, storyID, userID)
}

// ConsistencyReport implements Continuity.
func (c *Client) ConsistencyReport(ctx context.Context, storyID, userID string) *types.ContradictionReport {
	return c.engine.GetContradictionReport(ctx, storyID, userID)
}

// ExecuteQuery implements Continuity.
func (c *Client) ExecuteQuery(ctx context.Context, query string, params map[string]any, useCache bool) queryguard.QueryResult {
	return c.gateway.Execute(ctx, query, params, useCache)
}

// ValidateQuery implements Continuity.
func (c *Client) ValidateQuery(query string) (bool, string) {
	return c.gateway.Validate(query)
}

// QuerySuggestions implements Continuity.
func (c *Client) QuerySuggestions(query string) []string {
	return c.gateway.Suggestions(query)
}

// Search implements Continuity.
func (c *Client) Search(ctx context.Context, storyID, userID, query string, limit int) ([]store.Record, error) {
	scope, err := c.resolver.Lookup(ctx, storyID, userID)
	if err != nil {
		return nil, err
	}
	return c.store.Search(ctx, query, scope.GroupID, limit)
}

// RetrieveRecent implements Continuity.
func (c *Client) RetrieveRecent(ctx context.Context, storyID, userID string, since time.Time, limit int) ([]store.Record, error) {
	scope, err := c.resolver.Lookup(ctx, storyID, userID)
	if err != nil {
		return nil, err
	}
	return c.store.RetrieveRecent(ctx, scope.GroupID, since, limit)
}

// StartScheduler implements Continuity.
func (c *Client) StartScheduler() { c.sched.Start() }

// StopScheduler implements Continuity.
func (c *Client) StopScheduler() { c.sched.Stop() }

// SchedulerStatus implements Continuity.
func (c *Client) SchedulerStatus(ctx context.Context, storyID, userID string) types.SchedulerStatus {
	return c.sched.Status(ctx, storyID, userID)
}

// Close implements Continuity.
func (c *Client) Close() error {
	c.sched.Stop()
	if c.sink != nil {
		if err := c.sink.Close(); err != nil {
			c.logger.Warn("failed to flush scan telemetry", "error", err)
		}
	}
	return c.store.Close()
}

var _ Continuity = (*Client)(nil)

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jStore implements GraphStore against a Neo4j database. Records live as
// :ScopedRecord nodes with flat properties; the body map is spread onto the
// node so its fields stay queryable. This is the only store that also
// implements RawQuerier.
type Neo4jStore struct {
	client   neo4j.DriverWithContext
	database string
}

// NewNeo4jStore creates a store backed by the given Neo4j instance.
func NewNeo4jStore(uri, username, password, database string) (*Neo4jStore, error) {
	client, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if database == "" {
		database = "neo4j"
	}
	return &Neo4jStore{client: client, database: database}, nil
}

func (n *Neo4jStore) session(ctx context.Context) neo4j.SessionWithContext {
	return n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
}

func (n *Neo4jStore) Search(ctx context.Context, query string, scope string, limit int) ([]Record, error) {
	session := n.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		cypher := `
			MATCH (r:ScopedRecord {scope: $scope})
			WHERE $query = '' OR toLower(r.name) CONTAINS toLower($query)
			   OR toLower(r.body_json) CONTAINS toLower($query)
			RETURN r ORDER BY r.at ASC
			LIMIT $limit
		`
		if limit <= 0 {
			limit = 1000
		}
		res, err := tx.Run(ctx, cypher, map[string]any{
			"scope": scope,
			"query": query,
			"limit": limit,
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return collectRecords(result)
}

func (n *Neo4jStore) RetrieveRecent(ctx context.Context, scope string, since time.Time, limit int) ([]Record, error) {
	session := n.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		cypher := `
			MATCH (r:ScopedRecord {scope: $scope})
			WHERE $since = '' OR r.at >= $since
			RETURN r ORDER BY r.at ASC
		`
		sinceParam := ""
		if !since.IsZero() {
			sinceParam = since.UTC().Format(time.RFC3339Nano)
		}
		res, err := tx.Run(ctx, cypher, map[string]any{
			"scope": scope,
			"since": sinceParam,
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	records, err := collectRecords(result)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records, nil
}

func (n *Neo4jStore) AddRecord(ctx context.Context, name string, body map[string]any, scope string, at time.Time) (string, error) {
	session := n.session(ctx)
	defer session.Close(ctx)

	id := uuid.NewString()
	props := map[string]any{
		"id":    id,
		"name":  name,
		"scope": scope,
		"at":    at.UTC().Format(time.RFC3339Nano),
	}
	props["body_json"] = encodeBody(body)
	for k, v := range body {
		if isFlat(v) {
			props["f_"+k] = v
		}
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `CREATE (r:ScopedRecord $props) RETURN r.id`, map[string]any{
			"props": props,
		})
		if err != nil {
			return nil, err
		}
		return nil, res.Err()
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return id, nil
}

// ExecuteRawQuery runs a validated read query. Only the query gateway calls
// this, and only after its denylist and isolation checks pass.
func (n *Neo4jStore) ExecuteRawQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	session := n.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(records))
		for _, rec := range records {
			row := make(map[string]any, len(rec.Keys))
			for _, key := range rec.Keys {
				value, _ := rec.Get(key)
				row[key] = value
			}
			out = append(out, row)
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return result.([]map[string]any), nil
}

func (n *Neo4jStore) Close() error {
	return n.client.Close(context.Background())
}

func collectRecords(result any) ([]Record, error) {
	records, ok := result.([]*neo4j.Record)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %T", result)
	}
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		value, found := rec.Get("r")
		if !found {
			continue
		}
		node, ok := value.(neo4j.Node)
		if !ok {
			continue
		}
		parsed, err := recordFromProps(node.Props)
		if err != nil {
			return nil, err
		}
		out = append(out, parsed)
	}
	return out, nil
}

func recordFromProps(props map[string]any) (Record, error) {
	rec := Record{}
	rec.ID, _ = props["id"].(string)
	rec.Name, _ = props["name"].(string)
	rec.Scope, _ = props["scope"].(string)
	if atStr, ok := props["at"].(string); ok {
		at, err := time.Parse(time.RFC3339Nano, atStr)
		if err != nil {
			return rec, fmt.Errorf("record %s has invalid timestamp: %w", rec.ID, err)
		}
		rec.At = at
	}
	if bodyJSON, ok := props["body_json"].(string); ok {
		body, err := decodeBody(bodyJSON)
		if err != nil {
			return rec, fmt.Errorf("record %s has invalid body: %w", rec.ID, err)
		}
		rec.Body = body
	}
	return rec, nil
}

func isFlat(v any) bool {
	switch v.(type) {
	case string, bool, int, int32, int64, float32, float64:
		return true
	default:
		return false
	}
}

var _ RawQuerier = (*Neo4jStore)(nil)

var (
	_ GraphStore = (*Neo4jStore)(nil)
	_ GraphStore = (*BadgerStore)(nil)
	_ GraphStore = (*MemoryStore)(nil)
)

func encodeBody(body map[string]any) string {
	b, err := json.Marshal(body)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func decodeBody(s string) (map[string]any, error) {
	var body map[string]any
	if err := json.Unmarshal([]byte(s), &body); err != nil {
		return nil, err
	}
	return body, nil
}

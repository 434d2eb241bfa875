package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/storyweave/continuity/pkg/types"
)

// Nodes, edges and contradiction records all travel through flat Record
// bodies so every store backend can hold them. The JSON round trip keeps the
// body a plain map while the typed structs own the field set.

// NodeRecordName tags a node record, e.g. "node:Character".
func NodeRecordName(kind types.NodeKind) string {
	return RecordNodePrefix + string(kind)
}

// EdgeRecordName tags an edge record, e.g. "edge:KNOWS".
func EdgeRecordName(kind types.EdgeKind) string {
	return RecordEdgePrefix + string(kind)
}

// EncodeNode flattens a node into a record body.
func EncodeNode(n *types.Node) (map[string]any, error) {
	return toBody(n)
}

// EncodeEdge flattens an edge into a record body.
func EncodeEdge(e *types.Edge) (map[string]any, error) {
	return toBody(e)
}

// EncodeContradiction flattens a contradiction record into a record body.
func EncodeContradiction(c *types.ContradictionRecord) (map[string]any, error) {
	return toBody(c)
}

// DecodeNode rebuilds a node from a node-tagged record.
func DecodeNode(rec Record) (*types.Node, error) {
	kind, ok := strings.CutPrefix(rec.Name, RecordNodePrefix)
	if !ok {
		return nil, fmt.Errorf("record %s is not a node record", rec.ID)
	}
	node := &types.Node{}
	if err := fromBody(rec.Body, node); err != nil {
		return nil, fmt.Errorf("decoding node record %s: %w", rec.ID, err)
	}
	if node.Kind == "" {
		node.Kind = types.NodeKind(kind)
	}
	if node.ID == "" {
		node.ID = rec.ID
	}
	return node, nil
}

// DecodeEdge rebuilds an edge from an edge-tagged record.
func DecodeEdge(rec Record) (*types.Edge, error) {
	kindStr, ok := strings.CutPrefix(rec.Name, RecordEdgePrefix)
	if !ok {
		return nil, fmt.Errorf("record %s is not an edge record", rec.ID)
	}
	kind, err := types.ParseEdgeKind(kindStr)
	if err != nil {
		return nil, fmt.Errorf("decoding edge record %s: %w", rec.ID, err)
	}
	edge := &types.Edge{}
	if err := fromBody(rec.Body, edge); err != nil {
		return nil, fmt.Errorf("decoding edge record %s: %w", rec.ID, err)
	}
	edge.Kind = kind
	if edge.ID == "" {
		edge.ID = rec.ID
	}
	return edge, nil
}

// DecodeContradiction rebuilds a contradiction record.
func DecodeContradiction(rec Record) (*types.ContradictionRecord, error) {
	if rec.Name != RecordContradiction {
		return nil, fmt.Errorf("record %s is not a contradiction record", rec.ID)
	}
	c := &types.ContradictionRecord{}
	if err := fromBody(rec.Body, c); err != nil {
		return nil, fmt.Errorf("decoding contradiction record %s: %w", rec.ID, err)
	}
	return c, nil
}

func toBody(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	return body, nil
}

func fromBody(body map[string]any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

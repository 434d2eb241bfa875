package types

import "sort"

// Snapshot is a tenant-scoped, read-only view of the graph, materialized
// once per scan. Scan rules run pure functions over it; nothing here writes
// back to the store.
type Snapshot struct {
	Scope Scope

	nodes map[string]*Node
	edges []*Edge

	knowledgeByCharacter map[string][]*Node
	scenesByCharacter    map[string][]*Node
	locationByScene      map[string]*Node
	relationshipEdges    map[[2]string][]*Edge
	contradictionLinks   map[[2]string]bool
}

// NewSnapshot builds an indexed snapshot from scoped nodes and edges.
// Soft-deleted nodes and edges pointing at unknown nodes are dropped.
func NewSnapshot(scope Scope, nodes []*Node, edges []*Edge) *Snapshot {
	s := &Snapshot{
		Scope:                scope,
		nodes:                make(map[string]*Node, len(nodes)),
		knowledgeByCharacter: map[string][]*Node{},
		scenesByCharacter:    map[string][]*Node{},
		locationByScene:      map[string]*Node{},
		relationshipEdges:    map[[2]string][]*Edge{},
		contradictionLinks:   map[[2]string]bool{},
	}
	for _, n := range nodes {
		if n == nil || n.Deleted() {
			continue
		}
		s.nodes[n.ID] = n
	}
	for _, e := range edges {
		if e == nil {
			continue
		}
		switch e.Kind {
		case EdgeContradicts:
			s.contradictionLinks[pairKey(e.FromID, e.ToID)] = true
			s.edges = append(s.edges, e)
			continue
		case EdgeRelationship:
			s.relationshipEdges[[2]string{e.FromID, e.ToID}] = append(
				s.relationshipEdges[[2]string{e.FromID, e.ToID}], e)
		}
		from, to := s.nodes[e.FromID], s.nodes[e.ToID]
		if from == nil || to == nil {
			continue
		}
		switch e.Kind {
		case EdgeKnows:
			if from.Kind == CharacterNode && to.Kind == KnowledgeNode {
				s.knowledgeByCharacter[from.ID] = append(s.knowledgeByCharacter[from.ID], to)
			}
		case EdgePresentIn:
			if from.Kind == CharacterNode && to.Kind == SceneNode {
				s.scenesByCharacter[from.ID] = append(s.scenesByCharacter[from.ID], to)
			}
		case EdgeOccursIn:
			if from.Kind == SceneNode && to.Kind == LocationNode {
				s.locationByScene[from.ID] = to
			}
		}
		s.edges = append(s.edges, e)
	}
	return s
}

func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

// Node returns the node with the given ID, or nil.
func (s *Snapshot) Node(id string) *Node { return s.nodes[id] }

// Nodes returns every node of the given kind, ordered by ID so rule output
// is deterministic across runs.
func (s *Snapshot) Nodes(kind NodeKind) []*Node {
	var out []*Node
	for _, n := range s.nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Edges returns every edge of the given kind.
func (s *Snapshot) Edges(kind EdgeKind) []*Edge {
	var out []*Edge
	for _, e := range s.edges {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// KnowledgeKnownBy returns the knowledge nodes a character KNOWS,
// ordered by ID.
func (s *Snapshot) KnowledgeKnownBy(characterID string) []*Node {
	out := append([]*Node(nil), s.knowledgeByCharacter[characterID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ScenesWith returns the scenes a character is PRESENT_IN, ordered by ID.
func (s *Snapshot) ScenesWith(characterID string) []*Node {
	out := append([]*Node(nil), s.scenesByCharacter[characterID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LocationOf returns the location a scene OCCURS_IN, or nil.
func (s *Snapshot) LocationOf(sceneID string) *Node { return s.locationByScene[sceneID] }

// RelationshipsBetween returns RELATIONSHIP edges from one character to
// another, ordered by creation time then ID.
func (s *Snapshot) RelationshipsBetween(fromID, toID string) []*Edge {
	out := append([]*Edge(nil), s.relationshipEdges[[2]string{fromID, toID}]...)
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].CreatedAt, out[j].CreatedAt
		if ti != nil && tj != nil && !ti.Equal(*tj) {
			return ti.Before(*tj)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Linked reports whether a CONTRADICTS edge already connects the pair,
// in either direction.
func (s *Snapshot) Linked(a, b string) bool { return s.contradictionLinks[pairKey(a, b)] }

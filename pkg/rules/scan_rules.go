package rules

import (
	"context"
	"strings"

	"github.com/storyweave/continuity/pkg/types"
)

// temporalKnowledgeConflictRule finds knowledge pairs known by the same
// character where one item became valid only after the other had already
// expired, yet the newer item textually subsumes the older one.
type temporalKnowledgeConflictRule struct{}

func (r *temporalKnowledgeConflictRule) Name() string { return "detect_temporal_contradictions" }

func (r *temporalKnowledgeConflictRule) Detect(_ context.Context, snap *types.Snapshot) ([]Candidate, error) {
	var out []Candidate
	seen := map[[2]string]bool{}
	for _, character := range snap.Nodes(types.CharacterNode) {
		known := snap.KnowledgeKnownBy(character.ID)
		for _, k1 := range known {
			for _, k2 := range known {
				if k1.ID == k2.ID || seen[[2]string{k1.ID, k2.ID}] {
					continue
				}
				if k1.ValidFrom == nil || k2.ValidTo == nil {
					continue
				}
				if !k1.ValidFrom.After(*k2.ValidTo) {
					continue
				}
				if !strings.Contains(k1.Content, k2.Content) {
					continue
				}
				if snap.Linked(k1.ID, k2.ID) {
					continue
				}
				seen[[2]string{k1.ID, k2.ID}] = true
				out = append(out, Candidate{
					FromID:     k1.ID,
					ToID:       k2.ID,
					Severity:   types.RawSeverityTemporal,
					Reason:     "Knowledge timeline contradiction",
					Confidence: 0.8,
				})
			}
		}
	}
	return out, nil
}

// relationshipConflictRule finds character pairs carrying two RELATIONSHIP
// edges of different types created at different times.
type relationshipConflictRule struct{}

func (r *relationshipConflictRule) Name() string { return "detect_relationship_contradictions" }

func (r *relationshipConflictRule) Detect(_ context.Context, snap *types.Snapshot) ([]Candidate, error) {
	var out []Candidate
	for _, c1 := range snap.Nodes(types.CharacterNode) {
		for _, c2 := range snap.Nodes(types.CharacterNode) {
			if c1.ID == c2.ID {
				continue
			}
			if snap.Linked(c1.ID, c2.ID) {
				continue
			}
			edges := snap.RelationshipsBetween(c1.ID, c2.ID)
			for i := 0; i < len(edges); i++ {
				for j := i + 1; j < len(edges); j++ {
					r1, r2 := edges[i], edges[j]
					t1, t2 := r1.Prop("relationship_type"), r2.Prop("relationship_type")
					if t1 == t2 {
						continue
					}
					if r1.CreatedAt == nil || r2.CreatedAt == nil || !r1.CreatedAt.Before(*r2.CreatedAt) {
						continue
					}
					out = append(out, Candidate{
						FromID:     c1.ID + "_" + t1,
						ToID:       c1.ID + "_" + t2,
						Severity:   types.RawSeverityMedium,
						Reason:     "Conflicting relationship types",
						Confidence: 0.9,
					})
				}
			}
		}
	}
	return out, nil
}

// locationConflictRule finds characters present in two scenes that share a
// scene order but occur in different locations, which would put one
// character in two places at once.
type locationConflictRule struct{}

func (r *locationConflictRule) Name() string { return "detect_location_contradictions" }

func (r *locationConflictRule) Detect(_ context.Context, snap *types.Snapshot) ([]Candidate, error) {
	var out []Candidate
	seen := map[[2]string]bool{}
	for _, character := range snap.Nodes(types.CharacterNode) {
		scenes := snap.ScenesWith(character.ID)
		for i := 0; i < len(scenes); i++ {
			for j := i + 1; j < len(scenes); j++ {
				s1, s2 := scenes[i], scenes[j]
				if s1.SceneOrder != s2.SceneOrder {
					continue
				}
				l1, l2 := snap.LocationOf(s1.ID), snap.LocationOf(s2.ID)
				if l1 == nil || l2 == nil || l1.ID == l2.ID {
					continue
				}
				if snap.Linked(s1.ID, s2.ID) || seen[[2]string{s1.ID, s2.ID}] {
					continue
				}
				seen[[2]string{s1.ID, s2.ID}] = true
				out = append(out, Candidate{
					FromID:     s1.ID,
					ToID:       s2.ID,
					Severity:   types.RawSeverityHigh,
					Reason:     "Character in multiple locations simultaneously",
					Confidence: 0.95,
				})
			}
		}
	}
	return out, nil
}

// characterStateConflictRule finds a character knowing two items with
// mutually exclusive state terms inside a short window.
type characterStateConflictRule struct{}

func (r *characterStateConflictRule) Name() string { return "detect_character_state_contradictions" }

const stateConflictWindow = 3600 // seconds

func (r *characterStateConflictRule) Detect(_ context.Context, snap *types.Snapshot) ([]Candidate, error) {
	var out []Candidate
	seen := map[[2]string]bool{}
	for _, character := range snap.Nodes(types.CharacterNode) {
		known := snap.KnowledgeKnownBy(character.ID)
		for _, k1 := range known {
			for _, k2 := range known {
				if k1.ID == k2.ID || seen[[2]string{k1.ID, k2.ID}] {
					continue
				}
				if !strings.Contains(strings.ToLower(k1.Content), "dead") ||
					!strings.Contains(strings.ToLower(k2.Content), "alive") {
					continue
				}
				if k1.ValidFrom == nil || k2.ValidFrom == nil {
					continue
				}
				gap := k1.ValidFrom.Sub(*k2.ValidFrom).Seconds()
				if gap < 0 {
					gap = -gap
				}
				if gap >= stateConflictWindow {
					continue
				}
				if snap.Linked(k1.ID, k2.ID) {
					continue
				}
				seen[[2]string{k1.ID, k2.ID}] = true
				out = append(out, Candidate{
					FromID:     k1.ID,
					ToID:       k2.ID,
					Severity:   types.RawSeverityCritical,
					Reason:     "Character state contradiction (dead/alive)",
					Confidence: 0.99,
				})
			}
		}
	}
	return out, nil
}

// freeTextHeuristicRule is the broadest and least precise rule: a generic
// antonym and negation scan over any two unlinked knowledge items in scope,
// regardless of who knows them.
type freeTextHeuristicRule struct{}

func (r *freeTextHeuristicRule) Name() string { return "find_unlinked_contradictions" }

var antonymPairs = [][2]string{
	{"dead", "alive"},
	{"enemy", "friend"},
}

func (r *freeTextHeuristicRule) Detect(_ context.Context, snap *types.Snapshot) ([]Candidate, error) {
	var out []Candidate
	knowledge := snap.Nodes(types.KnowledgeNode)
	for _, k1 := range knowledge {
		for _, k2 := range knowledge {
			if k1.ID == k2.ID {
				continue
			}
			if snap.Linked(k1.ID, k2.ID) {
				continue
			}
			if !textConflict(k1.Content, k2.Content) {
				continue
			}
			out = append(out, Candidate{
				FromID:     k1.ID,
				ToID:       k2.ID,
				Severity:   types.RawSeverityMedium,
				Reason:     "Content contradiction detected",
				Confidence: 0.7,
			})
		}
	}
	return out, nil
}

// textConflict reports whether a states something b negates: either a is a
// negation of text appearing in b, or the pair lands on opposite sides of a
// known antonym pair.
func textConflict(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if rest, ok := strings.CutPrefix(la, "not "); ok && rest != "" && strings.Contains(lb, rest) {
		return true
	}
	for _, pair := range antonymPairs {
		if strings.Contains(la, pair[0]) && strings.Contains(lb, pair[1]) {
			return true
		}
	}
	return false
}

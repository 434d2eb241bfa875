package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/storyweave/continuity/pkg/types"
)

// knowsTemporalRule rejects KNOWS edges where the knowledge became valid
// before the character existed. A character cannot know something that
// predates them.
type knowsTemporalRule struct{}

func (r *knowsTemporalRule) Name() string { return "prevent_invalid_knows_edges" }

func (r *knowsTemporalRule) Check(_ context.Context, c EdgeCandidate) (*Violation, error) {
	if c.Kind != types.EdgeKnows {
		return nil, nil
	}
	if c.From == nil || c.From.CreatedAt == nil {
		return r.violation("Character must have creation timestamp"), nil
	}
	if c.To == nil || c.To.ValidFrom == nil {
		return r.violation("Knowledge must have valid_from timestamp"), nil
	}
	if c.To.ValidFrom.Before(*c.From.CreatedAt) {
		return r.violation(fmt.Sprintf(
			"Knowledge valid from %s but character created at %s",
			c.To.ValidFrom.Format(time.RFC3339), c.From.CreatedAt.Format(time.RFC3339))), nil
	}
	return nil, nil
}

func (r *knowsTemporalRule) violation(msg string) *Violation {
	return &Violation{Rule: r.Name(), Message: msg}
}

// relationshipSelfLoopRule rejects RELATIONSHIP edges from a character to
// itself.
type relationshipSelfLoopRule struct{}

func (r *relationshipSelfLoopRule) Name() string { return "prevent_relationship_self_loops" }

func (r *relationshipSelfLoopRule) Check(_ context.Context, c EdgeCandidate) (*Violation, error) {
	if c.Kind != types.EdgeRelationship {
		return nil, nil
	}
	if c.From == nil || c.To == nil || c.From.ID == "" || c.To.ID == "" {
		return &Violation{Rule: r.Name(), Message: "Both nodes must have valid IDs"}, nil
	}
	if c.From.ID == c.To.ID {
		return &Violation{
			Rule: r.Name(),
			Message: fmt.Sprintf(
				"Self-loop detected: character %s cannot have relationship with itself", c.From.ID),
		}, nil
	}
	return nil, nil
}

// temporalOrderingRule enforces the generic bi-temporal invariants:
// created_at <= updated_at on the edge, and valid_from <= valid_to on the
// knowledge node behind a KNOWS edge.
type temporalOrderingRule struct{}

func (r *temporalOrderingRule) Name() string { return "validate_temporal_consistency" }

func (r *temporalOrderingRule) Check(_ context.Context, c EdgeCandidate) (*Violation, error) {
	createdAt, err := propTime(c.Props, "created_at")
	if err != nil {
		return nil, err
	}
	updatedAt, err := propTime(c.Props, "updated_at")
	if err != nil {
		return nil, err
	}
	if createdAt != nil && updatedAt != nil && createdAt.After(*updatedAt) {
		return &Violation{Rule: r.Name(), Message: "created_at cannot be after updated_at"}, nil
	}
	if c.Kind == types.EdgeKnows && c.To != nil {
		if c.To.ValidFrom != nil && c.To.ValidTo != nil && c.To.ValidFrom.After(*c.To.ValidTo) {
			return &Violation{Rule: r.Name(), Message: "Knowledge valid_from cannot be after valid_to"}, nil
		}
	}
	return nil, nil
}

// sceneOrderRule rejects PRESENT_IN edges pointing at scenes with a
// negative order.
type sceneOrderRule struct{}

func (r *sceneOrderRule) Name() string { return "validate_scene_order" }

func (r *sceneOrderRule) Check(_ context.Context, c EdgeCandidate) (*Violation, error) {
	if c.Kind != types.EdgePresentIn {
		return nil, nil
	}
	if c.To == nil {
		return &Violation{Rule: r.Name(), Message: "Scene must have scene_order"}, nil
	}
	if c.To.SceneOrder < 0 {
		return &Violation{Rule: r.Name(), Message: "Scene order must be non-negative"}, nil
	}
	return nil, nil
}

// ownershipWindowRule rejects OWNS edges whose ownership window is
// inverted. Either endpoint may be absent.
type ownershipWindowRule struct{}

func (r *ownershipWindowRule) Name() string { return "validate_ownership_temporal_logic" }

func (r *ownershipWindowRule) Check(_ context.Context, c EdgeCandidate) (*Violation, error) {
	if c.Kind != types.EdgeOwns {
		return nil, nil
	}
	start, err := propTime(c.Props, "ownership_start")
	if err != nil {
		return nil, err
	}
	end, err := propTime(c.Props, "ownership_end")
	if err != nil {
		return nil, err
	}
	if start != nil && end != nil && start.After(*end) {
		return &Violation{Rule: r.Name(), Message: "ownership_start cannot be after ownership_end"}, nil
	}
	return nil, nil
}

// propertySchemaRule checks edge properties against the schema registry:
// enum membership and numeric bounds. Properties the schema does not know
// about pass through untouched so callers can attach ad-hoc metadata.
type propertySchemaRule struct{}

func (r *propertySchemaRule) Name() string { return "validate_property_schema" }

func (r *propertySchemaRule) Check(_ context.Context, c EdgeCandidate) (*Violation, error) {
	schema, err := types.Describe(string(c.Kind))
	if err != nil {
		return nil, err
	}
	for name, value := range c.Props {
		if _, known := schema.Properties[name]; !known {
			continue
		}
		if err := types.ValidateProperty(string(c.Kind), name, value); err != nil {
			return &Violation{Rule: r.Name(), Message: err.Error()}, nil
		}
	}
	return nil, nil
}

// propTime reads an optional timestamp property. A present but unparsable
// value is an internal rule error, which the gate treats as fail-closed.
func propTime(props map[string]any, key string) (*time.Time, error) {
	if props == nil {
		return nil, nil
	}
	value, ok := props[key]
	if !ok || value == nil {
		return nil, nil
	}
	t, err := types.ParseTime(value)
	if err != nil {
		return nil, fmt.Errorf("property %q: %w", key, err)
	}
	return &t, nil
}

package types

import (
	"fmt"
	"strings"
)

// PropertyType names the wire type of a schema property.
type PropertyType string

const (
	PropString   PropertyType = "string"
	PropInteger  PropertyType = "integer"
	PropFloat    PropertyType = "float"
	PropDatetime PropertyType = "datetime"
	PropList     PropertyType = "list"
)

// PropertySpec describes one property of an entity or relationship type.
type PropertySpec struct {
	Type     PropertyType
	Required bool
	Temporal bool
	Enum     []string
	Min      *float64
	Max      *float64
	// Element is the property type of list members, for PropList.
	Element PropertyType
}

// Schema describes the property set of one entity or relationship type.
type Schema struct {
	Name       string
	Properties map[string]PropertySpec
}

func bound(v float64) *float64 { return &v }

// Enumerations shared by the schema registry and the query gateway.
var (
	ItemTypes            = []string{"weapon", "tool", "clothing", "artifact"}
	TransferMethods      = []string{"gift", "exchange", "theft", "inheritance"}
	VerificationStatuses = []string{"unverified", "verified", "disputed"}
	ParticipationLevels  = []string{"background", "minor", "supporting", "main"}
	Accessibilities      = []string{"public", "restricted", "hidden"}
	SeverityValues       = []string{"critical", "major", "minor", "potential"}
	ResolutionStatuses   = []string{"open", "reviewed", "resolved", "dismissed"}
)

// registry holds the schemas for every node and edge kind. It is built once
// and never mutated, so lookups are safe from any goroutine.
var registry = buildRegistry()

func buildRegistry() map[string]Schema {
	reg := map[string]Schema{}

	add := func(s Schema) { reg[s.Name] = s }

	add(Schema{Name: string(CharacterNode), Properties: map[string]PropertySpec{
		"id":          {Type: PropString, Required: true},
		"name":        {Type: PropString, Required: true},
		"description": {Type: PropString},
		"created_at":  {Type: PropDatetime, Required: true, Temporal: true},
		"updated_at":  {Type: PropDatetime, Temporal: true},
		"deleted_at":  {Type: PropDatetime, Temporal: true},
	}})
	add(Schema{Name: string(KnowledgeNode), Properties: map[string]PropertySpec{
		"id":                  {Type: PropString, Required: true},
		"content":             {Type: PropString, Required: true},
		"importance":          {Type: PropInteger, Min: bound(1), Max: bound(10)},
		"verification_status": {Type: PropString, Enum: VerificationStatuses},
		"valid_from":          {Type: PropDatetime, Required: true, Temporal: true},
		"valid_to":            {Type: PropDatetime, Temporal: true},
		"created_at":          {Type: PropDatetime, Temporal: true},
		"updated_at":          {Type: PropDatetime, Temporal: true},
	}})
	add(Schema{Name: string(SceneNode), Properties: map[string]PropertySpec{
		"id":          {Type: PropString, Required: true},
		"name":        {Type: PropString, Required: true},
		"scene_order": {Type: PropInteger, Required: true, Min: bound(0)},
		"created_at":  {Type: PropDatetime, Temporal: true},
		"updated_at":  {Type: PropDatetime, Temporal: true},
	}})
	add(Schema{Name: string(LocationNode), Properties: map[string]PropertySpec{
		"id":            {Type: PropString, Required: true},
		"name":          {Type: PropString, Required: true},
		"details":       {Type: PropString},
		"location_type": {Type: PropString},
		"accessibility": {Type: PropString, Enum: Accessibilities},
		"created_at":    {Type: PropDatetime, Temporal: true},
		"updated_at":    {Type: PropDatetime, Temporal: true},
	}})
	add(Schema{Name: string(ItemNode), Properties: map[string]PropertySpec{
		"id":         {Type: PropString, Required: true},
		"name":       {Type: PropString, Required: true},
		"item_type":  {Type: PropString, Required: true, Enum: ItemTypes},
		"created_at": {Type: PropDatetime, Temporal: true},
		"updated_at": {Type: PropDatetime, Temporal: true},
	}})

	add(Schema{Name: string(EdgeKnows), Properties: map[string]PropertySpec{
		"learned_at":       {Type: PropDatetime, Temporal: true},
		"confidence_level": {Type: PropFloat, Min: bound(0), Max: bound(1)},
		"created_at":       {Type: PropDatetime, Temporal: true},
		"updated_at":       {Type: PropDatetime, Temporal: true},
	}})
	add(Schema{Name: string(EdgeRelationship), Properties: map[string]PropertySpec{
		"relationship_type": {Type: PropString, Required: true},
		"strength":          {Type: PropInteger, Min: bound(1), Max: bound(10)},
		"trust_level":       {Type: PropInteger, Min: bound(1), Max: bound(10)},
		"created_at":        {Type: PropDatetime, Temporal: true},
		"updated_at":        {Type: PropDatetime, Temporal: true},
	}})
	add(Schema{Name: string(EdgePresentIn), Properties: map[string]PropertySpec{
		"participation_level": {Type: PropString, Enum: ParticipationLevels},
		"created_at":          {Type: PropDatetime, Temporal: true},
		"updated_at":          {Type: PropDatetime, Temporal: true},
	}})
	add(Schema{Name: string(EdgeOccursIn), Properties: map[string]PropertySpec{
		"event_time": {Type: PropDatetime, Temporal: true},
	}})
	add(Schema{Name: string(EdgeContradicts), Properties: map[string]PropertySpec{
		"severity":          {Type: PropString, Required: true, Enum: SeverityValues},
		"confidence":        {Type: PropFloat, Required: true, Min: bound(0), Max: bound(1)},
		"resolution_status": {Type: PropString, Enum: ResolutionStatuses},
		"reason":            {Type: PropString, Required: true},
		"detected_at":       {Type: PropDatetime, Required: true, Temporal: true},
	}})
	add(Schema{Name: string(EdgeImplies), Properties: map[string]PropertySpec{
		"implication_strength": {Type: PropFloat, Min: bound(0), Max: bound(1)},
		"created_at":           {Type: PropDatetime, Temporal: true},
		"updated_at":           {Type: PropDatetime, Temporal: true},
	}})
	add(Schema{Name: string(EdgeOwns), Properties: map[string]PropertySpec{
		"ownership_start": {Type: PropDatetime, Temporal: true},
		"ownership_end":   {Type: PropDatetime, Temporal: true},
		"obtained_from":   {Type: PropString},
		"transfer_method": {Type: PropString, Enum: TransferMethods},
		"ownership_notes": {Type: PropString},
	}})
	add(Schema{Name: string(EdgeInteractsWith), Properties: map[string]PropertySpec{
		"interaction_weight": {Type: PropInteger, Min: bound(0)},
		"created_at":         {Type: PropDatetime, Temporal: true},
		"updated_at":         {Type: PropDatetime, Temporal: true},
	}})
	add(Schema{Name: string(EdgeSharesScene), Properties: map[string]PropertySpec{
		"screen_time_overlap": {Type: PropInteger, Min: bound(0)},
		"created_at":          {Type: PropDatetime, Temporal: true},
		"updated_at":          {Type: PropDatetime, Temporal: true},
	}})

	return reg
}

// Describe returns the schema for a node or edge type name.
func Describe(typeName string) (Schema, error) {
	s, ok := registry[typeName]
	if !ok {
		return Schema{}, fmt.Errorf("unknown type %q", typeName)
	}
	return s, nil
}

// Enums returns every enum-constrained property as name -> allowed values.
// The query gateway uses this to check quoted literals.
func Enums() map[string][]string {
	out := map[string][]string{}
	for typeName, schema := range registry {
		for prop, spec := range schema.Properties {
			if len(spec.Enum) > 0 {
				out[typeName+"."+prop] = spec.Enum
			}
		}
	}
	return out
}

// ValidateProperty checks a single property value against the schema for
// typeName: required presence, enum membership, numeric bounds and list
// element types. A nil value is only an error for required properties.
func ValidateProperty(typeName, propName string, value any) error {
	schema, err := Describe(typeName)
	if err != nil {
		return err
	}
	spec, ok := schema.Properties[propName]
	if !ok {
		return fmt.Errorf("type %q has no property %q", typeName, propName)
	}
	if value == nil {
		if spec.Required {
			return fmt.Errorf("property %q of %q is required", propName, typeName)
		}
		return nil
	}
	return checkValue(typeName, propName, spec, value)
}

func checkValue(typeName, propName string, spec PropertySpec, value any) error {
	switch spec.Type {
	case PropString:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("property %q of %q must be a string", propName, typeName)
		}
		if spec.Required && strings.TrimSpace(s) == "" {
			return fmt.Errorf("property %q of %q must not be empty", propName, typeName)
		}
		if len(spec.Enum) > 0 && !contains(spec.Enum, s) {
			return fmt.Errorf("property %q of %q must be one of %v, got %q",
				propName, typeName, spec.Enum, s)
		}
	case PropInteger, PropFloat:
		f, ok := asFloat(value)
		if !ok {
			return fmt.Errorf("property %q of %q must be numeric", propName, typeName)
		}
		if spec.Min != nil && f < *spec.Min {
			return fmt.Errorf("property %q of %q must be >= %v, got %v",
				propName, typeName, *spec.Min, f)
		}
		if spec.Max != nil && f > *spec.Max {
			return fmt.Errorf("property %q of %q must be <= %v, got %v",
				propName, typeName, *spec.Max, f)
		}
	case PropDatetime:
		if !isTimeLike(value) {
			return fmt.Errorf("property %q of %q must be a timestamp", propName, typeName)
		}
	case PropList:
		items, ok := value.([]any)
		if !ok {
			return fmt.Errorf("property %q of %q must be a list", propName, typeName)
		}
		elem := PropertySpec{Type: spec.Element}
		for i, item := range items {
			if err := checkValue(typeName, fmt.Sprintf("%s[%d]", propName, i), elem, item); err != nil {
				return err
			}
		}
	}
	return nil
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

package dynamock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/nisimpson/dynamoengine"
)

// JSONAPIDocument is an array of JSON:API primary resources.
type JSONAPIDocument []JSONAPIResource

// JSONAPIResource represents a single resource in JSON:API format.
type JSONAPIResource struct {
	Type          string                         `json:"type"`
	ID            string                         `json:"id"`
	Attributes    map[string]any                 `json:"attributes,omitempty"`
	Relationships map[string]JSONAPIRelationship `json:"relationships,omitempty"`
}

// JSONAPIRelationship represents a relationship in JSON:API format. Data holds either a
// single resource identifier, an array of them, or null.
type JSONAPIRelationship struct {
	Data json.RawMessage `json:"data"`
}

// JSONAPIResourceIdentifier represents a resource identifier in JSON:API format.
type JSONAPIResourceIdentifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Seeder stores fixtures through an engine.
type Seeder struct {
	engine *dynamoengine.Engine
}

// NewSeeder creates a new seeder.
func NewSeeder(engine *dynamoengine.Engine) *Seeder {
	return &Seeder{engine: engine}
}

// Seed creates every record built by builders, followed by their relations.
func (s *Seeder) Seed(ctx context.Context, builders ...*RecordBuilder) error {
	for _, b := range builders {
		if err := s.engine.CreateRecord(ctx, b.Build()); err != nil {
			return fmt.Errorf("failed to seed record %s: %w", b.Ref(), err)
		}
	}
	for _, b := range builders {
		for _, object := range b.Relations() {
			if err := s.engine.CreateRelation(ctx, b.Ref(), object); err != nil {
				return fmt.Errorf("failed to seed relation %s -> %s: %w", b.Ref(), object, err)
			}
		}
	}
	return nil
}

// SeedFromJSON reads an array of JSON:API resources from r, creates one record per
// resource and one relation per relationship identifier. Attribute names become record
// attributes. Records are created before relations, so relationships may point at
// resources that appear later in the document. It returns the number of records created.
func (s *Seeder) SeedFromJSON(ctx context.Context, r io.Reader) (int, error) {
	var document JSONAPIDocument
	if err := json.NewDecoder(r).Decode(&document); err != nil {
		return 0, fmt.Errorf("failed to parse JSON document: %w", err)
	}

	builders := make([]*RecordBuilder, 0, len(document))
	for i, resource := range document {
		b, err := convertResource(resource)
		if err != nil {
			return 0, fmt.Errorf("failed to convert resource at index %d: %w", i, err)
		}
		builders = append(builders, b)
	}

	count := 0
	for _, b := range builders {
		if err := s.engine.CreateRecord(ctx, b.Build()); err != nil {
			return count, fmt.Errorf("failed to seed record %s: %w", b.Ref(), err)
		}
		count++
	}
	for _, b := range builders {
		for _, object := range b.Relations() {
			if err := s.engine.CreateRelation(ctx, b.Ref(), object); err != nil {
				return count, fmt.Errorf("failed to seed relation %s -> %s: %w", b.Ref(), object, err)
			}
		}
	}
	return count, nil
}

func convertResource(resource JSONAPIResource) (*RecordBuilder, error) {
	if resource.Type == "" {
		return nil, fmt.Errorf("resource missing required 'type' field")
	}
	if resource.ID == "" {
		return nil, fmt.Errorf("resource missing required 'id' field")
	}

	opts := []RecordOption{WithID(resource.ID), WithFields(resource.Attributes)}
	for name, relationship := range resource.Relationships {
		objects, err := relationshipRefs(relationship.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to convert relationship '%s': %w", name, err)
		}
		opts = append(opts, WithRelation(objects...))
	}
	return NewRecord(resource.Type, opts...), nil
}

// relationshipRefs decodes relationship data holding one identifier or an array of them.
func relationshipRefs(data json.RawMessage) ([]dynamoengine.Ref, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var identifiers []JSONAPIResourceIdentifier
	if err := json.Unmarshal(data, &identifiers); err != nil {
		var single JSONAPIResourceIdentifier
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("relationship data must be an object or array of objects")
		}
		identifiers = []JSONAPIResourceIdentifier{single}
	}

	refs := make([]dynamoengine.Ref, 0, len(identifiers))
	for _, identifier := range identifiers {
		if identifier.Type == "" {
			return nil, fmt.Errorf("resource identifier missing required 'type' field")
		}
		if identifier.ID == "" {
			return nil, fmt.Errorf("resource identifier missing required 'id' field")
		}
		refs = append(refs, dynamoengine.Ref{ID: identifier.ID, Type: identifier.Type})
	}
	return refs, nil
}

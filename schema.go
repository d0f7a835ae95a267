package dynamoengine

import (
	"fmt"
	"io"
	"maps"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"gopkg.in/yaml.v3"
)

// AttributeType is the declared type of a schema attribute.
type AttributeType string

const (
	String  AttributeType = "String"
	Number  AttributeType = "Number"
	Boolean AttributeType = "Boolean"
	Binary  AttributeType = "Binary"
)

// UnmarshalYAML accepts attribute types case-insensitively, along with the DynamoDB
// shorthand S, N and B.
func (t *AttributeType) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	switch strings.ToLower(s) {
	case "string", "s":
		*t = String
	case "number", "n":
		*t = Number
	case "boolean", "bool":
		*t = Boolean
	case "binary", "b":
		*t = Binary
	default:
		return fmt.Errorf("line %d: unknown attribute type %q", node.Line, s)
	}
	return nil
}

// scalar returns the DynamoDB key attribute type for t. Booleans cannot be key attributes.
func (t AttributeType) scalar() (types.ScalarAttributeType, bool) {
	switch t {
	case String:
		return types.ScalarAttributeTypeS, true
	case Number:
		return types.ScalarAttributeTypeN, true
	case Binary:
		return types.ScalarAttributeTypeB, true
	}
	return "", false
}

// KeyAttribute names an index key attribute. Type may be left empty when the attribute
// is declared in the owning schema's Attributes.
type KeyAttribute struct {
	Name string        `yaml:"name"`
	Type AttributeType `yaml:"type,omitempty"`
}

// IndexSchema declares a global secondary index.
type IndexSchema struct {
	Hash       KeyAttribute  `yaml:"hash"`
	Range      *KeyAttribute `yaml:"range,omitempty"`
	Throughput *Throughput   `yaml:"throughput,omitempty"`
}

// Throughput holds provisioned read and write capacity units.
type Throughput struct {
	Read  int64 `yaml:"read"`
	Write int64 `yaml:"write"`
}

// StreamView selects what a table stream captures. The zero value disables the stream.
type StreamView string

const (
	StreamKeysOnly        StreamView = StreamView(types.StreamViewTypeKeysOnly)
	StreamNewImage        StreamView = StreamView(types.StreamViewTypeNewImage)
	StreamOldImage        StreamView = StreamView(types.StreamViewTypeOldImage)
	StreamNewAndOldImages StreamView = StreamView(types.StreamViewTypeNewAndOldImages)
)

// EntitySchema declares one entity type. Every entity table is keyed by the implicit
// String attribute "id".
type EntitySchema struct {
	Attributes map[string]AttributeType `yaml:"attributes,omitempty"`
	Indexes    map[string]IndexSchema   `yaml:"indexes,omitempty"`
	Throughput *Throughput              `yaml:"throughput,omitempty"`
	Stream     StreamView               `yaml:"stream,omitempty"`
}

// Schema maps entity type names to their declarations.
type Schema map[string]EntitySchema

// Keys names the primary key attributes of a table.
type Keys struct {
	Hash  string `yaml:"hash"`
	Range string `yaml:"range,omitempty"`
}

// TableSchema declares an arbitrary table. Entity schemas are lowered to table schemas
// before they are compiled.
type TableSchema struct {
	Name       string                   `yaml:"name"`
	Attributes map[string]AttributeType `yaml:"attributes,omitempty"`
	Keys       Keys                     `yaml:"keys"`
	Indexes    map[string]IndexSchema   `yaml:"indexes,omitempty"`
	Throughput *Throughput              `yaml:"throughput,omitempty"`
	Stream     StreamView               `yaml:"stream,omitempty"`
}

// LoadSchema decodes a YAML schema document:
//
//	Character:
//	  attributes:
//	    name: String
//	  indexes:
//	    ByName:
//	      hash: {name: name}
func LoadSchema(r io.Reader) (Schema, error) {
	var s Schema
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if err == io.EOF {
			return Schema{}, nil
		}
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}
	return s, nil
}

// LoadSchemaFile reads a YAML schema document from path.
func LoadSchemaFile(path string) (Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema: %w", err)
	}
	defer f.Close()
	return LoadSchema(f)
}

// Clone returns a deep copy of s.
func (s Schema) Clone() Schema {
	if s == nil {
		return nil
	}
	out := make(Schema, len(s))
	for name, es := range s {
		out[name] = es.clone()
	}
	return out
}

func (es EntitySchema) clone() EntitySchema {
	out := EntitySchema{
		Attributes: maps.Clone(es.Attributes),
		Throughput: es.Throughput.clone(),
		Stream:     es.Stream,
	}
	if es.Indexes != nil {
		out.Indexes = make(map[string]IndexSchema, len(es.Indexes))
		for name, idx := range es.Indexes {
			out.Indexes[name] = idx.clone()
		}
	}
	return out
}

func (idx IndexSchema) clone() IndexSchema {
	out := IndexSchema{Hash: idx.Hash, Throughput: idx.Throughput.clone()}
	if idx.Range != nil {
		r := *idx.Range
		out.Range = &r
	}
	return out
}

func (t *Throughput) clone() *Throughput {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

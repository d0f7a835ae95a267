package dynamoengine

import (
	"fmt"
	"slices"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Attribute names shared by records and relations.
const (
	AttributeID          = "id"
	AttributeRecordType  = "type"
	AttributeSubjectID   = "subjectId"
	AttributeSubjectType = "subjectType"
	AttributeObjectID    = "objectId"
	AttributeObjectType  = "objectType"
)

// TableDefinition is a compiled table. It carries everything needed to create the
// table, plus the mapping from logical index names to physical ones.
type TableDefinition struct {
	TableName              string
	EntityType             string // empty for the relation table
	AttributeDefinitions   []types.AttributeDefinition
	KeySchema              []types.KeySchemaElement
	ProvisionedThroughput  *types.ProvisionedThroughput
	GlobalSecondaryIndexes []types.GlobalSecondaryIndex
	StreamSpecification    *types.StreamSpecification
	Indexes                map[string]string
}

// CompiledSchema holds one table definition per entity type plus the relation table.
type CompiledSchema struct {
	Entities  map[string]TableDefinition
	Relations TableDefinition
}

// Tables returns every definition, entity tables sorted by type, relation table last.
func (c *CompiledSchema) Tables() []TableDefinition {
	names := make([]string, 0, len(c.Entities))
	for name := range c.Entities {
		names = append(names, name)
	}
	sort.Strings(names)

	tables := make([]TableDefinition, 0, len(names)+1)
	for _, name := range names {
		tables = append(tables, c.Entities[name].Clone())
	}
	return append(tables, c.Relations.Clone())
}

// CreateTableInput returns the create request for the table.
func (d TableDefinition) CreateTableInput() *dynamodb.CreateTableInput {
	c := d.Clone()
	return &dynamodb.CreateTableInput{
		TableName:              aws.String(c.TableName),
		AttributeDefinitions:   c.AttributeDefinitions,
		KeySchema:              c.KeySchema,
		ProvisionedThroughput:  c.ProvisionedThroughput,
		GlobalSecondaryIndexes: c.GlobalSecondaryIndexes,
		StreamSpecification:    c.StreamSpecification,
	}
}

// Index returns the global secondary index with the given logical name.
func (d TableDefinition) Index(name string) (types.GlobalSecondaryIndex, bool) {
	physical, ok := d.Indexes[name]
	if !ok {
		return types.GlobalSecondaryIndex{}, false
	}
	for _, gsi := range d.GlobalSecondaryIndexes {
		if aws.ToString(gsi.IndexName) == physical {
			return gsi, true
		}
	}
	return types.GlobalSecondaryIndex{}, false
}

// HashKey returns the table's hash key attribute name.
func (d TableDefinition) HashKey() string {
	hash, _ := splitKeySchema(d.KeySchema)
	return hash
}

// Clone returns a deep copy of d.
func (d TableDefinition) Clone() TableDefinition {
	c := d
	c.AttributeDefinitions = make([]types.AttributeDefinition, len(d.AttributeDefinitions))
	for i, def := range d.AttributeDefinitions {
		c.AttributeDefinitions[i] = types.AttributeDefinition{
			AttributeName: aws.String(aws.ToString(def.AttributeName)),
			AttributeType: def.AttributeType,
		}
	}
	c.KeySchema = cloneKeySchema(d.KeySchema)
	c.ProvisionedThroughput = cloneThroughput(d.ProvisionedThroughput)
	if d.GlobalSecondaryIndexes != nil {
		c.GlobalSecondaryIndexes = make([]types.GlobalSecondaryIndex, len(d.GlobalSecondaryIndexes))
		for i, gsi := range d.GlobalSecondaryIndexes {
			c.GlobalSecondaryIndexes[i] = types.GlobalSecondaryIndex{
				IndexName:             aws.String(aws.ToString(gsi.IndexName)),
				KeySchema:             cloneKeySchema(gsi.KeySchema),
				Projection:            &types.Projection{ProjectionType: types.ProjectionTypeAll},
				ProvisionedThroughput: cloneThroughput(gsi.ProvisionedThroughput),
			}
		}
	}
	if d.StreamSpecification != nil {
		s := *d.StreamSpecification
		s.StreamEnabled = aws.Bool(aws.ToBool(d.StreamSpecification.StreamEnabled))
		c.StreamSpecification = &s
	}
	if d.Indexes != nil {
		c.Indexes = make(map[string]string, len(d.Indexes))
		for k, v := range d.Indexes {
			c.Indexes[k] = v
		}
	}
	return c
}

// DefineTable compiles a generic table schema. Every key attribute must have a known
// type, either declared on the key itself or in Attributes; otherwise a schema error is
// returned. Only key attributes end up in AttributeDefinitions, hash key first.
func DefineTable(ts TableSchema, defaults Throughput) (TableDefinition, error) {
	if ts.Name == "" {
		return TableDefinition{}, schemaError("table name is required")
	}
	if ts.Keys.Hash == "" {
		return TableDefinition{}, schemaError(fmt.Sprintf("table %s: hash key is required", ts.Name))
	}

	defs := make(map[string]types.ScalarAttributeType)
	define := func(name string, declared AttributeType) error {
		t := declared
		if t == "" {
			t = ts.Attributes[name]
		} else if known, ok := ts.Attributes[name]; ok && known != declared {
			return schemaError(fmt.Sprintf("table %s: attribute %s declared as both %s and %s", ts.Name, name, known, declared))
		}
		if t == "" {
			return schemaError(fmt.Sprintf("table %s: key attribute %s not found in attribute definitions", ts.Name, name))
		}
		scalar, ok := t.scalar()
		if !ok {
			return schemaError(fmt.Sprintf("table %s: attribute %s of type %s cannot be a key", ts.Name, name, t))
		}
		if prev, ok := defs[name]; ok && prev != scalar {
			return schemaError(fmt.Sprintf("table %s: attribute %s has conflicting key types", ts.Name, name))
		}
		defs[name] = scalar
		return nil
	}

	if err := define(ts.Keys.Hash, ""); err != nil {
		return TableDefinition{}, err
	}
	if ts.Keys.Range != "" {
		if err := define(ts.Keys.Range, ""); err != nil {
			return TableDefinition{}, err
		}
	}

	tableThroughput := resolveThroughput(ts.Throughput, defaults)

	d := TableDefinition{
		TableName:             ts.Name,
		KeySchema:             BuildKeySchema(ts.Keys.Hash, ts.Keys.Range),
		ProvisionedThroughput: tableThroughput,
		Indexes:               make(map[string]string, len(ts.Indexes)),
	}

	names := make([]string, 0, len(ts.Indexes))
	for name := range ts.Indexes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		idx := ts.Indexes[name]
		if idx.Hash.Name == "" {
			return TableDefinition{}, schemaError(fmt.Sprintf("table %s: index %s has no hash key", ts.Name, name))
		}
		if err := define(idx.Hash.Name, idx.Hash.Type); err != nil {
			return TableDefinition{}, err
		}
		rangeKey := ""
		if idx.Range != nil {
			rangeKey = idx.Range.Name
			if err := define(idx.Range.Name, idx.Range.Type); err != nil {
				return TableDefinition{}, err
			}
		}

		d.GlobalSecondaryIndexes = append(d.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
			IndexName:             aws.String(name),
			KeySchema:             BuildKeySchema(idx.Hash.Name, rangeKey),
			Projection:            &types.Projection{ProjectionType: types.ProjectionTypeAll},
			ProvisionedThroughput: resolveThroughput(idx.Throughput, throughputOf(tableThroughput)),
		})
		d.Indexes[name] = name
	}

	attrNames := make([]string, 0, len(defs))
	for name := range defs {
		if name != ts.Keys.Hash {
			attrNames = append(attrNames, name)
		}
	}
	sort.Strings(attrNames)
	attrNames = append([]string{ts.Keys.Hash}, attrNames...)

	for _, name := range attrNames {
		d.AttributeDefinitions = append(d.AttributeDefinitions, types.AttributeDefinition{
			AttributeName: aws.String(name),
			AttributeType: defs[name],
		})
	}

	if ts.Stream != "" {
		if !slices.Contains(types.StreamViewType("").Values(), types.StreamViewType(ts.Stream)) {
			return TableDefinition{}, schemaError(fmt.Sprintf("table %s: unknown stream view type %s", ts.Name, ts.Stream))
		}
		d.StreamSpecification = &types.StreamSpecification{
			StreamEnabled:  aws.Bool(true),
			StreamViewType: types.StreamViewType(ts.Stream),
		}
	}

	return d, nil
}

// Compile turns an entity schema into table definitions: one per entity type, keyed by
// the implicit "id" attribute, and the shared relation table.
func Compile(schema Schema, naming Naming, defaults Throughput) (*CompiledSchema, error) {
	compiled := &CompiledSchema{Entities: make(map[string]TableDefinition, len(schema))}

	for entityType, es := range schema {
		if entityType == "" {
			return nil, schemaError("entity type name is required")
		}
		if t, ok := es.Attributes[AttributeID]; ok && t != String {
			return nil, schemaError(fmt.Sprintf("entity %s: attribute id must be a String", entityType))
		}

		ts := TableSchema{
			Name:       naming.EntityTable(entityType),
			Attributes: make(map[string]AttributeType, len(es.Attributes)+1),
			Keys:       Keys{Hash: AttributeID},
			Indexes:    make(map[string]IndexSchema, len(es.Indexes)),
			Throughput: es.Throughput,
			Stream:     es.Stream,
		}
		for name, t := range es.Attributes {
			ts.Attributes[name] = t
		}
		ts.Attributes[AttributeID] = String

		logical := make(map[string]string, len(es.Indexes))
		for name, idx := range es.Indexes {
			physical := naming.EntityIndex(entityType, name)
			if prev, ok := logical[physical]; ok {
				return nil, schemaError(fmt.Sprintf("entity %s: indexes %s and %s share the name %s", entityType, prev, name, physical))
			}
			logical[physical] = name
			ts.Indexes[physical] = idx
		}

		def, err := DefineTable(ts, defaults)
		if err != nil {
			return nil, err
		}
		def.EntityType = entityType
		def.Indexes = make(map[string]string, len(logical))
		for physical, name := range logical {
			def.Indexes[name] = physical
		}
		compiled.Entities[entityType] = def
	}

	relations, err := relationTable(naming, defaults)
	if err != nil {
		return nil, err
	}
	compiled.Relations = relations

	return compiled, nil
}

func relationTable(naming Naming, defaults Throughput) (TableDefinition, error) {
	hasMany := naming.RelationIndex(IndexHasMany)
	belongsTo := naming.RelationIndex(IndexBelongsTo)

	def, err := DefineTable(TableSchema{
		Name: naming.RelationTable(),
		Attributes: map[string]AttributeType{
			AttributeSubjectID:   String,
			AttributeSubjectType: String,
			AttributeObjectID:    String,
			AttributeObjectType:  String,
		},
		Keys: Keys{Hash: AttributeSubjectID, Range: AttributeObjectID},
		Indexes: map[string]IndexSchema{
			hasMany: {
				Hash:  KeyAttribute{Name: AttributeSubjectID},
				Range: &KeyAttribute{Name: AttributeObjectType},
			},
			belongsTo: {
				Hash:  KeyAttribute{Name: AttributeObjectID},
				Range: &KeyAttribute{Name: AttributeSubjectType},
			},
		},
	}, defaults)
	if err != nil {
		return TableDefinition{}, err
	}

	def.Indexes = map[string]string{
		IndexHasMany:   hasMany,
		IndexBelongsTo: belongsTo,
	}
	return def, nil
}

func resolveThroughput(t *Throughput, defaults Throughput) *types.ProvisionedThroughput {
	read, write := defaults.Read, defaults.Write
	if t != nil {
		if t.Read > 0 {
			read = t.Read
		}
		if t.Write > 0 {
			write = t.Write
		}
	}
	return &types.ProvisionedThroughput{
		ReadCapacityUnits:  aws.Int64(read),
		WriteCapacityUnits: aws.Int64(write),
	}
}

func throughputOf(pt *types.ProvisionedThroughput) Throughput {
	return Throughput{
		Read:  aws.ToInt64(pt.ReadCapacityUnits),
		Write: aws.ToInt64(pt.WriteCapacityUnits),
	}
}

func cloneThroughput(pt *types.ProvisionedThroughput) *types.ProvisionedThroughput {
	if pt == nil {
		return nil
	}
	return &types.ProvisionedThroughput{
		ReadCapacityUnits:  aws.Int64(aws.ToInt64(pt.ReadCapacityUnits)),
		WriteCapacityUnits: aws.Int64(aws.ToInt64(pt.WriteCapacityUnits)),
	}
}

func cloneKeySchema(ks []types.KeySchemaElement) []types.KeySchemaElement {
	out := make([]types.KeySchemaElement, len(ks))
	for i, k := range ks {
		out[i] = types.KeySchemaElement{
			AttributeName: aws.String(aws.ToString(k.AttributeName)),
			KeyType:       k.KeyType,
		}
	}
	return out
}

// splitKeySchema returns the hash and range attribute names of ks.
func splitKeySchema(ks []types.KeySchemaElement) (hash, rangeKey string) {
	for _, k := range ks {
		switch k.KeyType {
		case types.KeyTypeHash:
			hash = aws.ToString(k.AttributeName)
		case types.KeyTypeRange:
			rangeKey = aws.ToString(k.AttributeName)
		}
	}
	return hash, rangeKey
}

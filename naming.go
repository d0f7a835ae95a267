package dynamoengine

import (
	"strings"

	"github.com/iancoleman/strcase"
)

// Logical names of the relation table indexes.
const (
	IndexHasMany   = "hasMany"
	IndexBelongsTo = "belongsTo"
)

// Naming derives physical table and index names. All names are snake cased and
// prefixed with Prefix when it is set:
//
//	<prefix>_<type>_entities      entity table
//	<prefix>_<type>_<index>       entity index
//	<prefix>_relations            relation table
//	<prefix>_has_many             relation index
type Naming struct {
	Prefix string
}

// EntityTable returns the table name for an entity type.
func (n Naming) EntityTable(entityType string) string {
	return n.join(entityType, "entities")
}

// EntityIndex returns the physical name of an entity index.
func (n Naming) EntityIndex(entityType, index string) string {
	return n.join(entityType, index)
}

// RelationTable returns the name of the shared relation table.
func (n Naming) RelationTable() string {
	return n.join("relations")
}

// RelationIndex returns the physical name of a relation index.
func (n Naming) RelationIndex(index string) string {
	return n.join(index)
}

func (n Naming) join(parts ...string) string {
	if n.Prefix != "" {
		parts = append([]string{n.Prefix}, parts...)
	}
	for i, p := range parts {
		parts[i] = strcase.ToSnake(p)
	}
	return strings.Join(parts, "_")
}

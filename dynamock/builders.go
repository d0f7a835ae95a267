package dynamock

import (
	"maps"

	"github.com/nisimpson/dynamoengine"
)

// RecordOption is a functional option for configuring records during building.
type RecordOption func(*RecordBuilder)

// RecordBuilder builds test records through functional options.
type RecordBuilder struct {
	record    dynamoengine.Record
	relations []dynamoengine.Ref
}

// NewRecord creates a builder for a record of the given type. The record gets a random
// id unless WithID is given.
func NewRecord(recordType string, opts ...RecordOption) *RecordBuilder {
	b := &RecordBuilder{
		record: dynamoengine.Record{
			dynamoengine.AttributeID:         dynamoengine.NewID(),
			dynamoengine.AttributeRecordType: recordType,
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns a copy of the built record.
func (b *RecordBuilder) Build() dynamoengine.Record {
	return maps.Clone(b.record)
}

// Ref returns the reference of the built record.
func (b *RecordBuilder) Ref() dynamoengine.Ref {
	id, _ := b.record[dynamoengine.AttributeID].(string)
	typ, _ := b.record[dynamoengine.AttributeRecordType].(string)
	return dynamoengine.Ref{ID: id, Type: typ}
}

// Relations returns the objects the built record relates to.
func (b *RecordBuilder) Relations() []dynamoengine.Ref {
	return append([]dynamoengine.Ref(nil), b.relations...)
}

// WithID sets the record id.
func WithID(id string) RecordOption {
	return func(b *RecordBuilder) {
		b.record[dynamoengine.AttributeID] = id
	}
}

// WithField sets a single attribute.
func WithField(name string, value any) RecordOption {
	return func(b *RecordBuilder) {
		b.record[name] = value
	}
}

// WithFields sets several attributes. The id and type are not overwritten.
func WithFields(fields map[string]any) RecordOption {
	return func(b *RecordBuilder) {
		for name, value := range fields {
			if name == dynamoengine.AttributeID || name == dynamoengine.AttributeRecordType {
				continue
			}
			b.record[name] = value
		}
	}
}

// WithRelation adds relations from the built record to each object.
func WithRelation(objects ...dynamoengine.Ref) RecordOption {
	return func(b *RecordBuilder) {
		b.relations = append(b.relations, objects...)
	}
}

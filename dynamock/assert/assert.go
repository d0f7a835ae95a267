// Package assert provides fluent assertion utilities for testing engine records,
// relations and tables. Assertions report failures through t.Errorf and return the
// receiver, so several checks can be chained.
//
// # Usage
//
//	import "github.com/nisimpson/dynamoengine/dynamock/assert"
//
//	// Assert on records
//	assert.Records(t, records).
//		HasCount(3).
//		ContainsRecord("product", "P1").
//		HasAttribute("category", "tools")
//
//	// Assert on relations
//	assert.Relations(t, relations).
//		HasCount(1).
//		HasRelation(order, product)
//
//	// Assert on tables held by a Memory store
//	assert.Table(t, store, "shop_order_entities").
//		IsActive().
//		HasIndex("shop_order_index")
package assert

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nisimpson/dynamoengine"
	"github.com/nisimpson/dynamoengine/dynamock"
)

// RecordsAssertion provides fluent assertions for decoded records.
type RecordsAssertion struct {
	t       testing.TB
	records []dynamoengine.Record
}

// Records creates a new RecordsAssertion.
func Records(t testing.TB, records []dynamoengine.Record) *RecordsAssertion {
	return &RecordsAssertion{t: t, records: records}
}

// HasCount asserts that there are exactly expected records.
func (a *RecordsAssertion) HasCount(expected int) *RecordsAssertion {
	a.t.Helper()
	if len(a.records) != expected {
		a.t.Errorf("expected %d records, got %d", expected, len(a.records))
	}
	return a
}

// IsEmpty asserts that there are no records.
func (a *RecordsAssertion) IsEmpty() *RecordsAssertion {
	a.t.Helper()
	return a.HasCount(0)
}

// IsNotEmpty asserts that there is at least one record.
func (a *RecordsAssertion) IsNotEmpty() *RecordsAssertion {
	a.t.Helper()
	if len(a.records) == 0 {
		a.t.Error("expected records to not be empty")
	}
	return a
}

// ContainsRecord asserts that a record with the given type and id is present.
func (a *RecordsAssertion) ContainsRecord(recordType, id string) *RecordsAssertion {
	a.t.Helper()
	for _, r := range a.records {
		if r[dynamoengine.AttributeRecordType] == recordType && r[dynamoengine.AttributeID] == id {
			return a
		}
	}
	a.t.Errorf("expected to find record %s:%s", recordType, id)
	return a
}

// HasIDs asserts that the records carry exactly the given ids, in order.
func (a *RecordsAssertion) HasIDs(ids ...string) *RecordsAssertion {
	a.t.Helper()
	got := make([]string, 0, len(a.records))
	for _, r := range a.records {
		id, _ := r[dynamoengine.AttributeID].(string)
		got = append(got, id)
	}
	if !reflect.DeepEqual(got, ids) && (len(got) > 0 || len(ids) > 0) {
		a.t.Errorf("expected ids %v, got %v", ids, got)
	}
	return a
}

// HasAttribute asserts that at least one record has the attribute set to expected.
// Numbers are compared after decoding, so integers must be given as float64.
func (a *RecordsAssertion) HasAttribute(name string, expected any) *RecordsAssertion {
	a.t.Helper()
	for _, r := range a.records {
		if v, ok := r[name]; ok && reflect.DeepEqual(v, expected) {
			return a
		}
	}
	a.t.Errorf("expected to find attribute %s with value %v in records", name, expected)
	return a
}

// RelationsAssertion provides fluent assertions for relations.
type RelationsAssertion struct {
	t         testing.TB
	relations []dynamoengine.Relation
}

// Relations creates a new RelationsAssertion.
func Relations(t testing.TB, relations []dynamoengine.Relation) *RelationsAssertion {
	return &RelationsAssertion{t: t, relations: relations}
}

// HasCount asserts that there are exactly expected relations.
func (a *RelationsAssertion) HasCount(expected int) *RelationsAssertion {
	a.t.Helper()
	if len(a.relations) != expected {
		a.t.Errorf("expected %d relations, got %d", expected, len(a.relations))
	}
	return a
}

// HasRelation asserts that a relation from subject to object is present.
func (a *RelationsAssertion) HasRelation(subject, object dynamoengine.Ref) *RelationsAssertion {
	a.t.Helper()
	for _, rel := range a.relations {
		if rel.Subject() == subject && rel.Object() == object {
			return a
		}
	}
	a.t.Errorf("expected to find relation from %s to %s", subject, object)
	return a
}

// TableAssertion provides fluent assertions for a table held by a Memory store.
type TableAssertion struct {
	t    testing.TB
	name string
	desc *types.TableDescription
}

// Table creates a new TableAssertion. It fails immediately when the table does not exist.
func Table(t testing.TB, store *dynamock.Memory, name string) *TableAssertion {
	t.Helper()
	desc, ok := store.Describe(name)
	if !ok {
		t.Errorf("expected table %s to exist", name)
	}
	return &TableAssertion{t: t, name: name, desc: desc}
}

// IsActive asserts that the table and all of its indexes are ACTIVE.
func (a *TableAssertion) IsActive() *TableAssertion {
	a.t.Helper()
	if a.desc == nil {
		return a
	}
	if a.desc.TableStatus != types.TableStatusActive {
		a.t.Errorf("expected table %s to be ACTIVE, got %s", a.name, a.desc.TableStatus)
	}
	for _, gsi := range a.desc.GlobalSecondaryIndexes {
		if gsi.IndexStatus != types.IndexStatusActive {
			a.t.Errorf("expected index %s to be ACTIVE, got %s", aws.ToString(gsi.IndexName), gsi.IndexStatus)
		}
	}
	return a
}

// HasHashKey asserts the attribute name of the table's hash key.
func (a *TableAssertion) HasHashKey(expected string) *TableAssertion {
	a.t.Helper()
	if a.desc == nil {
		return a
	}
	for _, k := range a.desc.KeySchema {
		if k.KeyType == types.KeyTypeHash {
			if aws.ToString(k.AttributeName) != expected {
				a.t.Errorf("expected hash key %s, got %s", expected, aws.ToString(k.AttributeName))
			}
			return a
		}
	}
	a.t.Errorf("table %s has no hash key", a.name)
	return a
}

// HasIndex asserts that the table has a global secondary index with the given name.
func (a *TableAssertion) HasIndex(name string) *TableAssertion {
	a.t.Helper()
	if a.desc == nil {
		return a
	}
	for _, gsi := range a.desc.GlobalSecondaryIndexes {
		if aws.ToString(gsi.IndexName) == name {
			return a
		}
	}
	a.t.Errorf("expected table %s to have index %s", a.name, name)
	return a
}

// HasIndexCount asserts the number of global secondary indexes.
func (a *TableAssertion) HasIndexCount(expected int) *TableAssertion {
	a.t.Helper()
	if a.desc != nil && len(a.desc.GlobalSecondaryIndexes) != expected {
		a.t.Errorf("expected table %s to have %d indexes, got %d", a.name, expected, len(a.desc.GlobalSecondaryIndexes))
	}
	return a
}

// ItemAssertion provides fluent assertions for a single item in wire format.
type ItemAssertion struct {
	t    testing.TB
	item dynamoengine.Item
}

// Item creates a new ItemAssertion.
func Item(t testing.TB, item dynamoengine.Item) *ItemAssertion {
	return &ItemAssertion{t: t, item: item}
}

// HasString asserts that the attribute is a string with the expected value.
func (a *ItemAssertion) HasString(name, expected string) *ItemAssertion {
	a.t.Helper()
	v, ok := a.item[name].(*types.AttributeValueMemberS)
	if !ok || v.Value != expected {
		a.t.Errorf("expected attribute %s to be string %q, got %s", name, expected, describe(a.item[name]))
	}
	return a
}

// HasNumber asserts that the attribute is a number with the expected literal.
func (a *ItemAssertion) HasNumber(name, expected string) *ItemAssertion {
	a.t.Helper()
	v, ok := a.item[name].(*types.AttributeValueMemberN)
	if !ok || v.Value != expected {
		a.t.Errorf("expected attribute %s to be number %s, got %s", name, expected, describe(a.item[name]))
	}
	return a
}

// IsNull asserts that the attribute is stored as NULL.
func (a *ItemAssertion) IsNull(name string) *ItemAssertion {
	a.t.Helper()
	if _, ok := a.item[name].(*types.AttributeValueMemberNULL); !ok {
		a.t.Errorf("expected attribute %s to be NULL, got %s", name, describe(a.item[name]))
	}
	return a
}

// Lacks asserts that the attribute is absent.
func (a *ItemAssertion) Lacks(name string) *ItemAssertion {
	a.t.Helper()
	if v, ok := a.item[name]; ok {
		a.t.Errorf("expected attribute %s to be absent, got %s", name, describe(v))
	}
	return a
}

func describe(av types.AttributeValue) string {
	if av == nil {
		return "nothing"
	}
	return fmt.Sprintf("%T%+v", av, av)
}

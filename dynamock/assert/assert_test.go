package assert

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nisimpson/dynamoengine"
	"github.com/nisimpson/dynamoengine/dynamock"
)

// mockT records failures instead of failing the surrounding test.
type mockT struct {
	testing.TB
	failed   bool
	messages []string
}

func (m *mockT) Helper() {}

func (m *mockT) Errorf(format string, args ...any) {
	m.failed = true
	m.messages = append(m.messages, fmt.Sprintf(format, args...))
}

func (m *mockT) Error(args ...any) {
	m.failed = true
	m.messages = append(m.messages, fmt.Sprint(args...))
}

func testRecords() []dynamoengine.Record {
	return []dynamoengine.Record{
		{"id": "P1", "type": "product", "category": "tools", "price": 12.5},
		{"id": "P2", "type": "product", "category": "garden"},
		{"id": "O1", "type": "order"},
	}
}

func TestRecordsAssertion(t *testing.T) {
	t.Run("passing", func(t *testing.T) {
		Records(t, testRecords()).
			HasCount(3).
			IsNotEmpty().
			ContainsRecord("product", "P2").
			ContainsRecord("order", "O1").
			HasIDs("P1", "P2", "O1").
			HasAttribute("category", "tools").
			HasAttribute("price", 12.5)

		Records(t, nil).IsEmpty().HasIDs()
	})

	tests := []struct {
		name   string
		assert func(a *RecordsAssertion)
	}{
		{name: "count", assert: func(a *RecordsAssertion) { a.HasCount(2) }},
		{name: "empty", assert: func(a *RecordsAssertion) { a.IsEmpty() }},
		{name: "missing record", assert: func(a *RecordsAssertion) { a.ContainsRecord("order", "P1") }},
		{name: "id order", assert: func(a *RecordsAssertion) { a.HasIDs("O1", "P1", "P2") }},
		{name: "attribute value", assert: func(a *RecordsAssertion) { a.HasAttribute("category", "kitchen") }},
		{name: "integer attribute", assert: func(a *RecordsAssertion) { a.HasAttribute("price", 12) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockT{}
			tt.assert(Records(mock, testRecords()))
			if !mock.failed {
				t.Error("expected the assertion to fail")
			}
		})
	}

	t.Run("not empty", func(t *testing.T) {
		mock := &mockT{}
		Records(mock, nil).IsNotEmpty()
		if !mock.failed {
			t.Error("expected the assertion to fail")
		}
	})
}

func TestRelationsAssertion(t *testing.T) {
	order := dynamoengine.Ref{ID: "O1", Type: "order"}
	product := dynamoengine.Ref{ID: "P1", Type: "product"}
	relations := []dynamoengine.Relation{
		{SubjectID: "O1", SubjectType: "order", ObjectID: "P1", ObjectType: "product"},
	}

	Relations(t, relations).HasCount(1).HasRelation(order, product)

	mock := &mockT{}
	Relations(mock, relations).HasRelation(product, order)
	if !mock.failed {
		t.Error("expected reversed relation to fail")
	}

	mock = &mockT{}
	Relations(mock, relations).HasCount(0)
	if !mock.failed {
		t.Error("expected count to fail")
	}
}

func TestTableAssertion(t *testing.T) {
	schema := dynamoengine.Schema{
		"product": {
			Attributes: map[string]dynamoengine.AttributeType{"category": dynamoengine.String},
			Indexes: map[string]dynamoengine.IndexSchema{
				"byCategory": {Hash: dynamoengine.KeyAttribute{Name: "category"}},
			},
		},
	}
	_, store := dynamock.NewMemoryEngine(t, schema, dynamoengine.WithTablePrefix("shop"))

	Table(t, store, "shop_product_entities").
		IsActive().
		HasHashKey("id").
		HasIndex("shop_product_by_category").
		HasIndexCount(1)

	tests := []struct {
		name   string
		assert func(a *TableAssertion)
	}{
		{name: "hash key", assert: func(a *TableAssertion) { a.HasHashKey("category") }},
		{name: "index", assert: func(a *TableAssertion) { a.HasIndex("shop_product_by_name") }},
		{name: "index count", assert: func(a *TableAssertion) { a.HasIndexCount(2) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockT{}
			tt.assert(Table(mock, store, "shop_product_entities"))
			if !mock.failed {
				t.Error("expected the assertion to fail")
			}
		})
	}

	t.Run("missing table", func(t *testing.T) {
		mock := &mockT{}
		Table(mock, store, "shop_missing").IsActive().HasHashKey("id").HasIndex("x").HasIndexCount(0)
		if len(mock.messages) != 1 {
			t.Errorf("expected a single failure for a missing table, got %v", mock.messages)
		}
	})

	t.Run("not active", func(t *testing.T) {
		pending := dynamock.NewMemory()
		pending.ActivationPolls = 5
		engine, err := dynamoengine.New(pending, schema)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_ = engine.MigrateUp(ctx)

		mock := &mockT{}
		Table(mock, pending, "product_entities").IsActive()
		if !mock.failed {
			t.Error("expected a creating table to fail IsActive")
		}
	})
}

func TestItemAssertion(t *testing.T) {
	item := dynamoengine.Item{
		"id":    &types.AttributeValueMemberS{Value: "P1"},
		"price": &types.AttributeValueMemberN{Value: "12.5"},
		"note":  &types.AttributeValueMemberNULL{Value: true},
	}

	Item(t, item).HasString("id", "P1").HasNumber("price", "12.5").IsNull("note").Lacks("name")

	tests := []struct {
		name   string
		assert func(a *ItemAssertion)
	}{
		{name: "string value", assert: func(a *ItemAssertion) { a.HasString("id", "P2") }},
		{name: "string type", assert: func(a *ItemAssertion) { a.HasString("price", "12.5") }},
		{name: "number", assert: func(a *ItemAssertion) { a.HasNumber("price", "12.50") }},
		{name: "null", assert: func(a *ItemAssertion) { a.IsNull("id") }},
		{name: "lacks", assert: func(a *ItemAssertion) { a.Lacks("note") }},
		{name: "absent", assert: func(a *ItemAssertion) { a.HasString("name", "") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockT{}
			tt.assert(Item(mock, item))
			if !mock.failed {
				t.Error("expected the assertion to fail")
			}
		})
	}
}

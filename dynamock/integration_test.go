package dynamock

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nisimpson/dynamoengine"
)

func catalogSchema() dynamoengine.Schema {
	return dynamoengine.Schema{
		"product": {
			Attributes: map[string]dynamoengine.AttributeType{"category": dynamoengine.String},
			Indexes: map[string]dynamoengine.IndexSchema{
				"byCategory": {Hash: dynamoengine.KeyAttribute{Name: "category"}},
			},
		},
		"order": {},
	}
}

func TestDefaultIntegrationTestConfig(t *testing.T) {
	config := DefaultIntegrationTestConfig()

	if config.Endpoint != "http://localhost:8000" {
		t.Errorf("expected endpoint http://localhost:8000, got %s", config.Endpoint)
	}
	if !config.SkipIfNotRunning {
		t.Error("expected SkipIfNotRunning to be true")
	}
	if config.CleanupTimeout != 30*time.Second {
		t.Errorf("expected cleanup timeout 30s, got %v", config.CleanupTimeout)
	}
}

func TestNewTestPrefix(t *testing.T) {
	first := NewTestPrefix(t)
	second := NewTestPrefix(t)

	if first == second {
		t.Errorf("expected unique prefixes, got %s twice", first)
	}
	if !strings.HasPrefix(first, "TestNewTestPrefix_") {
		t.Errorf("expected prefix to start with the test name, got %s", first)
	}

	t.Run("sub test/with spaces", func(t *testing.T) {
		prefix := NewTestPrefix(t)
		if strings.ContainsAny(prefix, "/ ") {
			t.Errorf("expected a sanitized prefix, got %s", prefix)
		}
	})
}

func TestNewMemoryEngine(t *testing.T) {
	engine, store := NewMemoryEngine(t, catalogSchema())

	for _, def := range engine.Tables() {
		AssertTableExists(t, store, def.TableName)
	}
	AssertTableNotExists(t, store, "invoice_entities")

	if got := store.Calls("CreateTable"); got != 3 {
		t.Errorf("expected 3 tables to be created, got %d", got)
	}
	if err := engine.Verify(context.Background()); err != nil {
		t.Errorf("expected migrated schema to verify, got %v", err)
	}
}

func TestWithIsolatedEngine(t *testing.T) {
	store := NewMemory()
	var tables []string

	WithIsolatedEngine(t, store, catalogSchema(), func(engine *dynamoengine.Engine) {
		for _, def := range engine.Tables() {
			tables = append(tables, def.TableName)
			if !strings.HasPrefix(def.TableName, "test_with_isolated_engine_") {
				t.Errorf("expected table %s to carry the test prefix", def.TableName)
			}
			AssertTableExists(t, store, def.TableName)
		}

		if err := engine.CreateRecord(context.Background(), NewRecord("order").Build()); err != nil {
			t.Errorf("CreateRecord failed: %v", err)
		}
	}, dynamoengine.WithPollIntervals(time.Millisecond, time.Millisecond, time.Millisecond))

	if len(tables) != 3 {
		t.Fatalf("expected 3 tables, got %v", tables)
	}
	for _, name := range tables {
		AssertTableNotExists(t, store, name)
	}
}

// TestWithLocalDynamoDB runs the isolated engine helper against DynamoDB Local.
// It is skipped when DynamoDB Local is not running.
func TestWithLocalDynamoDB(t *testing.T) {
	WithLocalDynamoDB(t, nil, func(local *LocalDynamoDB) {
		WithIsolatedEngine(t, local.Client, catalogSchema(), func(engine *dynamoengine.Engine) {
			ctx := context.Background()
			seeder := NewSeeder(engine)

			hammer := NewRecord("product", WithField("category", "tools"))
			order := NewRecord("order", WithRelation(hammer.Ref()))
			if err := seeder.Seed(ctx, hammer, order); err != nil {
				t.Fatalf("Seed failed: %v", err)
			}

			q, err := engine.Query("product", "byCategory")
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			records, err := q.HashEqual("tools").FetchAll(ctx)
			if err != nil {
				t.Fatalf("FetchAll failed: %v", err)
			}
			if len(records) != 1 {
				t.Errorf("expected 1 product, got %d", len(records))
			}

			refs, err := engine.GetReverseRelations(ctx, hammer.Ref().ID, "order")
			if err != nil {
				t.Fatalf("GetReverseRelations failed: %v", err)
			}
			if len(refs) != 1 || refs[0] != order.Ref() {
				t.Errorf("expected %v, got %v", order.Ref(), refs)
			}
		})
	})
}

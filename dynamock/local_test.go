package dynamock

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/nisimpson/dynamoengine"
)

func TestNewLocalDynamoDB(t *testing.T) {
	local, err := NewLocalDynamoDB(context.Background(), "http://localhost:8001")
	if err != nil {
		t.Fatalf("NewLocalDynamoDB failed: %v", err)
	}

	if local.Client == nil {
		t.Error("Client is nil")
	}

	if local.Endpoint != "http://localhost:8001" {
		t.Errorf("expected endpoint http://localhost:8001, got %s", local.Endpoint)
	}
}

func TestNewDefaultLocalDynamoDB(t *testing.T) {
	local, err := NewDefaultLocalDynamoDB(context.Background())
	if err != nil {
		t.Fatalf("NewDefaultLocalDynamoDB failed: %v", err)
	}

	if local.Endpoint != "http://localhost:8000" {
		t.Errorf("expected endpoint http://localhost:8000, got %s", local.Endpoint)
	}
}

// TestLocalDynamoDB_IsAvailable tests the availability check.
func TestLocalDynamoDB_IsAvailable(t *testing.T) {
	ctx := context.Background()

	// Nothing should be listening on port 9999
	local, err := NewLocalDynamoDB(ctx, "http://localhost:9999")
	if err != nil {
		t.Fatalf("NewLocalDynamoDB failed: %v", err)
	}
	if local.IsAvailable(ctx) {
		t.Error("Expected IsAvailable to return false for unused port")
	}

	local.Endpoint = "://not a url"
	if local.IsAvailable(ctx) {
		t.Error("Expected IsAvailable to return false for a malformed endpoint")
	}
}

// TestLocalDynamoDB_Integration tests the local DynamoDB helpers.
// This test is skipped unless DynamoDB Local is running.
func TestLocalDynamoDB_Integration(t *testing.T) {
	WithLocalDynamoDB(t, nil, func(local *LocalDynamoDB) {
		ctx := context.Background()

		engine, err := dynamoengine.New(local.Client, dynamoengine.Schema{"widget": {}},
			dynamoengine.WithTablePrefix(NewTestPrefix(t)),
		)
		if err != nil {
			t.Fatalf("Failed to create engine: %v", err)
		}
		if err := engine.MigrateUp(ctx); err != nil {
			t.Fatalf("Failed to migrate: %v", err)
		}

		tableName, _ := engine.TableName("widget")
		if err := local.WaitForTableActive(ctx, tableName, 30*time.Second); err != nil {
			t.Fatalf("Table did not become active: %v", err)
		}

		tables, err := local.ListTables(ctx)
		if err != nil {
			t.Fatalf("Failed to list tables: %v", err)
		}
		if !slices.Contains(tables, tableName) {
			t.Errorf("Table %s not found in table list", tableName)
		}

		for _, def := range engine.Tables() {
			if err := local.DeleteTable(ctx, def.TableName); err != nil {
				t.Errorf("Failed to delete table: %v", err)
			}
		}
		AssertTableNotExists(t, local.Client, tableName)

		// Deleting again is a no-op
		if err := local.DeleteTable(ctx, tableName); err != nil {
			t.Errorf("Expected deleting a missing table to succeed, got %v", err)
		}
	})
}

// Example of how to use LocalDynamoDB for integration testing
func ExampleLocalDynamoDB() {
	ctx := context.Background()
	local, err := NewDefaultLocalDynamoDB(ctx)
	if err != nil {
		return
	}

	// Check if DynamoDB Local is available
	if !local.IsAvailable(ctx) {
		// Start DynamoDB Local or skip the test
		return
	}

	engine, err := dynamoengine.New(local.Client, dynamoengine.Schema{"widget": {}},
		dynamoengine.WithTablePrefix("example"),
	)
	if err != nil {
		return
	}
	if err := engine.MigrateUp(ctx); err != nil {
		return
	}

	// Run your tests...

	// Clean up
	_ = engine.MigrateDown(ctx)
}

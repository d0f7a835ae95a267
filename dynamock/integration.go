package dynamock

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/nisimpson/dynamoengine"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	Endpoint         string
	SkipIfNotRunning bool
	CleanupTimeout   time.Duration
}

// DefaultIntegrationTestConfig returns a default configuration for integration tests.
func DefaultIntegrationTestConfig() *IntegrationTestConfig {
	return &IntegrationTestConfig{
		Endpoint:         fmt.Sprintf("http://localhost:%d", DefaultLocalPort),
		SkipIfNotRunning: true,
		CleanupTimeout:   30 * time.Second,
	}
}

// WithLocalDynamoDB runs fn against a DynamoDB Local instance. The test is skipped in
// short mode or when the instance is not reachable and config allows skipping. A nil
// config uses DefaultIntegrationTestConfig.
func WithLocalDynamoDB(t *testing.T, config *IntegrationTestConfig, fn func(local *LocalDynamoDB)) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if config == nil {
		config = DefaultIntegrationTestConfig()
	}

	ctx := context.Background()
	local, err := NewLocalDynamoDB(ctx, config.Endpoint)
	if err != nil {
		t.Fatalf("Failed to create local client: %v", err)
	}

	if !local.IsAvailable(ctx) {
		if config.SkipIfNotRunning {
			t.Skipf("DynamoDB Local not available at %s", config.Endpoint)
		}
		t.Fatalf("DynamoDB Local not available at %s", config.Endpoint)
	}

	fn(local)
}

// NewTestPrefix returns a table prefix unique to one test run, built from the test name.
func NewTestPrefix(t testing.TB) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, t.Name())
	return fmt.Sprintf("%s_%s", name, uuid.NewString()[:8])
}

// WithIsolatedEngine migrates schema under a prefix unique to the test, runs fn with the
// engine and drops every table afterwards, even when fn fails the test.
func WithIsolatedEngine(t *testing.T, client dynamoengine.Client, schema dynamoengine.Schema, fn func(engine *dynamoengine.Engine), opts ...func(*dynamoengine.Config)) {
	t.Helper()
	ctx := context.Background()

	opts = append([]func(*dynamoengine.Config){dynamoengine.WithTablePrefix(NewTestPrefix(t))}, opts...)
	engine, err := dynamoengine.New(client, schema, opts...)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), DefaultIntegrationTestConfig().CleanupTimeout)
		defer cancel()
		if err := engine.MigrateDown(cleanupCtx); err != nil {
			t.Errorf("Failed to drop tables: %v", err)
		}
	}()

	if err := engine.MigrateUp(ctx); err != nil {
		t.Fatalf("Failed to migrate tables: %v", err)
	}

	fn(engine)
}

// NewMemoryEngine returns an engine backed by a fresh Memory store with the schema
// already migrated. Poll intervals are shortened so migrations finish quickly.
func NewMemoryEngine(t testing.TB, schema dynamoengine.Schema, opts ...func(*dynamoengine.Config)) (*dynamoengine.Engine, *Memory) {
	t.Helper()

	store := NewMemory()
	opts = append([]func(*dynamoengine.Config){
		dynamoengine.WithPollIntervals(time.Millisecond, time.Millisecond, 5*time.Millisecond),
		dynamoengine.WithThroughputRetryDelay(time.Millisecond),
	}, opts...)

	engine, err := dynamoengine.New(store, schema, opts...)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	if err := engine.MigrateUp(context.Background()); err != nil {
		t.Fatalf("Failed to migrate tables: %v", err)
	}
	return engine, store
}

// AssertTableExists verifies that a table exists.
func AssertTableExists(t testing.TB, client dynamoengine.Client, tableName string) {
	t.Helper()
	if _, err := describe(client, tableName); err != nil {
		t.Errorf("Table %s does not exist: %v", tableName, err)
	}
}

// AssertTableNotExists verifies that a table does not exist.
func AssertTableNotExists(t testing.TB, client dynamoengine.Client, tableName string) {
	t.Helper()
	if _, err := describe(client, tableName); err == nil {
		t.Errorf("Table %s should not exist but it does", tableName)
	}
}

func describe(client dynamoengine.Client, tableName string) (*types.TableDescription, error) {
	out, err := client.DescribeTable(context.Background(), &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	})
	if err != nil {
		return nil, err
	}
	return out.Table, nil
}

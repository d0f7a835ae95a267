// Package dynamock provides testing utilities for the dynamoengine library.
//
// This package includes:
//   - An in-memory DynamoDB store for unit testing
//   - An expectation-based mock DynamoDB client
//   - DynamoDB Local integration utilities
//   - Record builders and JSON:API fixture seeding
//
// # Memory Store
//
// Memory implements the DynamoDB operations used by the engine. Tables move through
// CREATING and UPDATING for ActivationPolls describes, so migration polling can be
// exercised without a network:
//
//	engine, store := dynamock.NewMemoryEngine(t, schema)
//
//	err := engine.CreateRecord(ctx, dynamock.NewRecord("order", dynamock.WithID("O1")).Build())
//	store.Calls("PutItem") // 1
//
// Faults are injected per operation with the error types the AWS SDK returns:
//
//	store.Fail("GetItem", &types.ProvisionedThroughputExceededException{})
//
// # Mock Client
//
// MockClient fails the test on any call that has no function set:
//
//	mock := dynamock.NewMockClient(t)
//	mock.DescribeTableFunc = func(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
//		return nil, &types.ResourceNotFoundException{}
//	}
//
// # Seeding
//
// Seeder stores records and their relations through an engine. Fixtures may be built in
// code or read from an array of JSON:API resources:
//
//	seeder := dynamock.NewSeeder(engine)
//	count, err := seeder.SeedFromJSON(ctx, strings.NewReader(`[
//		{"type": "order", "id": "O1", "relationships": {
//			"items": {"data": [{"type": "product", "id": "P1"}]}
//		}},
//		{"type": "product", "id": "P1", "attributes": {"name": "Widget"}}
//	]`))
//
// # Integration Tests
//
// WithLocalDynamoDB skips the test unless DynamoDB Local is reachable, and
// WithIsolatedEngine migrates a schema under a unique prefix and drops it afterwards:
//
//	dynamock.WithLocalDynamoDB(t, nil, func(local *dynamock.LocalDynamoDB) {
//		dynamock.WithIsolatedEngine(t, local.Client, schema, func(engine *dynamoengine.Engine) {
//			// ...
//		})
//	})
package dynamock

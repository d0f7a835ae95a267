package dynamock

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

type DynamoDBAPICall[T, U any] = func(context.Context, *T, ...func(*dynamodb.Options)) (*U, error)

// DynamoDBAPI defines the DynamoDB operations used by the engine and the test helpers.
type DynamoDBAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	UpdateTable(ctx context.Context, params *dynamodb.UpdateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTableOutput, error)
	DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// MockClient is a simple expectation-based mock for DynamoDB operations.
// Users set the functions for the calls a test expects; any other call fails the test
// and returns an error.
type MockClient struct {
	CreateTableFunc   DynamoDBAPICall[dynamodb.CreateTableInput, dynamodb.CreateTableOutput]
	UpdateTableFunc   DynamoDBAPICall[dynamodb.UpdateTableInput, dynamodb.UpdateTableOutput]
	DeleteTableFunc   DynamoDBAPICall[dynamodb.DeleteTableInput, dynamodb.DeleteTableOutput]
	DescribeTableFunc DynamoDBAPICall[dynamodb.DescribeTableInput, dynamodb.DescribeTableOutput]
	ListTablesFunc    DynamoDBAPICall[dynamodb.ListTablesInput, dynamodb.ListTablesOutput]
	PutFunc           DynamoDBAPICall[dynamodb.PutItemInput, dynamodb.PutItemOutput]
	GetFunc           DynamoDBAPICall[dynamodb.GetItemInput, dynamodb.GetItemOutput]
	DeleteFunc        DynamoDBAPICall[dynamodb.DeleteItemInput, dynamodb.DeleteItemOutput]
	BatchGetFunc      DynamoDBAPICall[dynamodb.BatchGetItemInput, dynamodb.BatchGetItemOutput]
	QueryFunc         DynamoDBAPICall[dynamodb.QueryInput, dynamodb.QueryOutput]
}

// Ensure MockClient implements DynamoDBAPI
var _ DynamoDBAPI = (*MockClient)(nil)

// NewMockClient creates a new mock DynamoDB client that fails t on every call.
func NewMockClient(t testing.TB) *MockClient {
	return &MockClient{
		CreateTableFunc:   defaultFunc[dynamodb.CreateTableInput, dynamodb.CreateTableOutput](t, "CreateTable"),
		UpdateTableFunc:   defaultFunc[dynamodb.UpdateTableInput, dynamodb.UpdateTableOutput](t, "UpdateTable"),
		DeleteTableFunc:   defaultFunc[dynamodb.DeleteTableInput, dynamodb.DeleteTableOutput](t, "DeleteTable"),
		DescribeTableFunc: defaultFunc[dynamodb.DescribeTableInput, dynamodb.DescribeTableOutput](t, "DescribeTable"),
		ListTablesFunc:    defaultFunc[dynamodb.ListTablesInput, dynamodb.ListTablesOutput](t, "ListTables"),
		PutFunc:           defaultFunc[dynamodb.PutItemInput, dynamodb.PutItemOutput](t, "PutItem"),
		GetFunc:           defaultFunc[dynamodb.GetItemInput, dynamodb.GetItemOutput](t, "GetItem"),
		DeleteFunc:        defaultFunc[dynamodb.DeleteItemInput, dynamodb.DeleteItemOutput](t, "DeleteItem"),
		BatchGetFunc:      defaultFunc[dynamodb.BatchGetItemInput, dynamodb.BatchGetItemOutput](t, "BatchGetItem"),
		QueryFunc:         defaultFunc[dynamodb.QueryInput, dynamodb.QueryOutput](t, "Query"),
	}
}

func defaultFunc[T, U any](t testing.TB, name string) DynamoDBAPICall[T, U] {
	return func(ctx context.Context, params *T, optFns ...func(*dynamodb.Options)) (*U, error) {
		t.Errorf("unexpected call to %s", name)
		return nil, fmt.Errorf("dynamock: unexpected call to %s", name)
	}
}

func (m *MockClient) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	return m.CreateTableFunc(ctx, params, optFns...)
}

func (m *MockClient) UpdateTable(ctx context.Context, params *dynamodb.UpdateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTableOutput, error) {
	return m.UpdateTableFunc(ctx, params, optFns...)
}

func (m *MockClient) DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error) {
	return m.DeleteTableFunc(ctx, params, optFns...)
}

func (m *MockClient) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return m.DescribeTableFunc(ctx, params, optFns...)
}

func (m *MockClient) ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
	return m.ListTablesFunc(ctx, params, optFns...)
}

// PutItem stores an item in the mock table.
func (m *MockClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return m.PutFunc(ctx, params, optFns...)
}

// GetItem retrieves an item from the mock table.
func (m *MockClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return m.GetFunc(ctx, params, optFns...)
}

// DeleteItem removes an item from the mock table.
func (m *MockClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return m.DeleteFunc(ctx, params, optFns...)
}

// BatchGetItem processes batch get operations.
func (m *MockClient) BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	return m.BatchGetFunc(ctx, params, optFns...)
}

// Query performs a query operation.
func (m *MockClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return m.QueryFunc(ctx, params, optFns...)
}

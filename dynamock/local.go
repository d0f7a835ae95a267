package dynamock

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nisimpson/dynamoengine"
)

// DefaultLocalPort is the default port for DynamoDB Local.
const DefaultLocalPort = 8000

// LocalDynamoDB represents a connection to a DynamoDB Local instance.
type LocalDynamoDB struct {
	Client   *dynamodb.Client
	Endpoint string
}

// NewLocalDynamoDB connects to DynamoDB Local at endpoint, for example
// "http://localhost:8000". Credentials are anonymous and the region is fixed, since
// DynamoDB Local ignores both.
func NewLocalDynamoDB(ctx context.Context, endpoint string) (*LocalDynamoDB, error) {
	client, err := dynamoengine.NewClient(ctx, endpoint,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, err
	}
	return &LocalDynamoDB{Client: client, Endpoint: endpoint}, nil
}

// NewDefaultLocalDynamoDB connects to DynamoDB Local on localhost:8000.
func NewDefaultLocalDynamoDB(ctx context.Context) (*LocalDynamoDB, error) {
	return NewLocalDynamoDB(ctx, fmt.Sprintf("http://localhost:%d", DefaultLocalPort))
}

// IsAvailable checks if DynamoDB Local is reachable and answering requests.
func (l *LocalDynamoDB) IsAvailable(ctx context.Context) bool {
	u, err := url.Parse(l.Endpoint)
	if err != nil {
		return false
	}
	conn, err := net.DialTimeout("tcp", u.Host, 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()

	_, err = l.Client.ListTables(ctx, &dynamodb.ListTablesInput{})
	return err == nil
}

// WaitForTableActive polls until the table and all of its indexes are ACTIVE.
func (l *LocalDynamoDB) WaitForTableActive(ctx context.Context, tableName string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		output, err := l.Client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(tableName),
		})
		if err != nil {
			return fmt.Errorf("failed to describe table %s: %w", tableName, err)
		}

		active := output.Table.TableStatus == types.TableStatusActive
		for _, gsi := range output.Table.GlobalSecondaryIndexes {
			active = active && gsi.IndexStatus == types.IndexStatusActive
		}
		if active {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}

	return fmt.Errorf("table %s did not become active within %v", tableName, timeout)
}

// DeleteTable deletes a table and waits for it to be gone. Deleting a missing table is
// not an error.
func (l *LocalDynamoDB) DeleteTable(ctx context.Context, tableName string) error {
	_, err := l.Client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(tableName),
	})
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete table %s: %w", tableName, err)
	}

	waiter := dynamodb.NewTableNotExistsWaiter(l.Client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(tableName)}, 30*time.Second)
}

// ListTables returns all table names in the local instance.
func (l *LocalDynamoDB) ListTables(ctx context.Context) ([]string, error) {
	var names []string
	paginator := dynamodb.NewListTablesPaginator(l.Client, &dynamodb.ListTablesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list tables: %w", err)
		}
		names = append(names, page.TableNames...)
	}
	return names, nil
}

// Cleanup deletes all tables in the local instance.
func (l *LocalDynamoDB) Cleanup(ctx context.Context) error {
	tables, err := l.ListTables(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tables for cleanup: %w", err)
	}

	for _, tableName := range tables {
		if err := l.DeleteTable(ctx, tableName); err != nil {
			return fmt.Errorf("failed to delete table %s during cleanup: %w", tableName, err)
		}
	}
	return nil
}

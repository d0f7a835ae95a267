package dynamock

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nisimpson/dynamoengine"
)

// recordingT captures errors reported by the mock instead of failing the test.
type recordingT struct {
	testing.TB
	errors []string
}

func (r *recordingT) Errorf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func TestNewMockClient(t *testing.T) {
	mock := NewMockClient(t)

	if mock == nil {
		t.Fatal("NewMockClient returned nil")
	}

	funcs := map[string]bool{
		"CreateTableFunc":   mock.CreateTableFunc != nil,
		"UpdateTableFunc":   mock.UpdateTableFunc != nil,
		"DeleteTableFunc":   mock.DeleteTableFunc != nil,
		"DescribeTableFunc": mock.DescribeTableFunc != nil,
		"ListTablesFunc":    mock.ListTablesFunc != nil,
		"PutFunc":           mock.PutFunc != nil,
		"GetFunc":           mock.GetFunc != nil,
		"DeleteFunc":        mock.DeleteFunc != nil,
		"BatchGetFunc":      mock.BatchGetFunc != nil,
		"QueryFunc":         mock.QueryFunc != nil,
	}
	for name, ok := range funcs {
		if !ok {
			t.Errorf("%s not initialized", name)
		}
	}
}

func TestMockClient_UnexpectedCall(t *testing.T) {
	rec := &recordingT{TB: t}
	mock := NewMockClient(rec)

	_, err := mock.GetItem(context.Background(), &dynamodb.GetItemInput{})
	if err == nil {
		t.Error("expected an error from an unexpected call")
	}
	if len(rec.errors) != 1 || rec.errors[0] != "unexpected call to GetItem" {
		t.Errorf("expected the unexpected call to be reported, got %v", rec.errors)
	}
}

func TestMockClient_CreateRecord(t *testing.T) {
	mock := NewMockClient(t)
	ctx := context.Background()

	var input *dynamodb.PutItemInput
	mock.PutFunc = func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
		input = params
		return &dynamodb.PutItemOutput{}, nil
	}

	engine, err := dynamoengine.New(mock, dynamoengine.Schema{"product": {}}, dynamoengine.WithTablePrefix("shop"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	err = engine.CreateRecord(ctx, NewRecord("product", WithID("P1"), WithField("price", 12.5)).Build())
	if err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}

	if aws.ToString(input.TableName) != "shop_product_entities" {
		t.Errorf("expected table name shop_product_entities, got %s", aws.ToString(input.TableName))
	}
	if got := aws.ToString(input.ConditionExpression); got != "attribute_not_exists (#0)" {
		t.Errorf("unexpected condition expression %q", got)
	}
	if input.ExpressionAttributeNames["#0"] != "id" {
		t.Errorf("unexpected expression attribute names %v", input.ExpressionAttributeNames)
	}
	if price, ok := input.Item["price"].(*types.AttributeValueMemberN); !ok || price.Value != "12.5" {
		t.Errorf("unexpected price attribute %#v", input.Item["price"])
	}
}

func TestMockClient_CreateRecordConflict(t *testing.T) {
	mock := NewMockClient(t)
	mock.PutFunc = func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}

	engine, err := dynamoengine.New(mock, dynamoengine.Schema{"product": {}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	err = engine.CreateRecord(context.Background(), NewRecord("product", WithID("P1")).Build())
	if !errors.Is(err, dynamoengine.ErrRecordExists) {
		t.Errorf("expected ErrRecordExists, got %v", err)
	}
}

func TestMockClient_GetRecord(t *testing.T) {
	mock := NewMockClient(t)
	ctx := context.Background()

	mock.GetFunc = func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
		if aws.ToString(params.TableName) != "product_entities" {
			t.Errorf("expected table name product_entities, got %s", aws.ToString(params.TableName))
		}
		id, ok := params.Key["id"].(*types.AttributeValueMemberS)
		if !ok || len(params.Key) != 1 {
			t.Fatalf("unexpected key %v", params.Key)
		}
		if id.Value != "P1" {
			return &dynamodb.GetItemOutput{}, nil
		}
		return &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
			"id":   &types.AttributeValueMemberS{Value: "P1"},
			"type": &types.AttributeValueMemberS{Value: "product"},
			"tags": &types.AttributeValueMemberSS{Value: []string{"new", "sale"}},
		}}, nil
	}

	engine, err := dynamoengine.New(mock, dynamoengine.Schema{"product": {}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	record, err := engine.GetRecord(ctx, "product", "P1")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	tags, ok := record["tags"].([]string)
	if !ok || len(tags) != 2 {
		t.Errorf("expected decoded string set, got %#v", record["tags"])
	}

	_, err = engine.GetRecord(ctx, "product", "P2")
	if !errors.Is(err, dynamoengine.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMockClient_Query(t *testing.T) {
	mock := NewMockClient(t)
	ctx := context.Background()

	calls := 0
	mock.QueryFunc = func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
		calls++
		if aws.ToString(params.IndexName) != "belongs_to" {
			t.Errorf("expected index belongs_to, got %s", aws.ToString(params.IndexName))
		}
		if got := aws.ToString(params.KeyConditionExpression); got != "#hashkey = :hashval" {
			t.Errorf("unexpected key condition %q", got)
		}

		item := map[string]types.AttributeValue{
			"subjectId":   &types.AttributeValueMemberS{Value: fmt.Sprintf("O%d", calls)},
			"subjectType": &types.AttributeValueMemberS{Value: "order"},
			"objectId":    &types.AttributeValueMemberS{Value: "P1"},
			"objectType":  &types.AttributeValueMemberS{Value: "product"},
		}
		out := &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item}}
		if calls == 1 {
			if params.ExclusiveStartKey != nil {
				t.Error("expected no start key on the first page")
			}
			out.LastEvaluatedKey = item
		} else if params.ExclusiveStartKey == nil {
			t.Error("expected a start key on the second page")
		}
		return out, nil
	}

	engine, err := dynamoengine.New(mock, dynamoengine.Schema{"order": {}, "product": {}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	refs, err := engine.GetReverseRelations(ctx, "P1", "")
	if err != nil {
		t.Fatalf("GetReverseRelations failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 query calls, got %d", calls)
	}
	want := []dynamoengine.Ref{{ID: "O1", Type: "order"}, {ID: "O2", Type: "order"}}
	if len(refs) != 2 || refs[0] != want[0] || refs[1] != want[1] {
		t.Errorf("expected %v, got %v", want, refs)
	}
}

func TestMockClient_BatchGet(t *testing.T) {
	mock := NewMockClient(t)

	mock.BatchGetFunc = func(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Requested resource not found")}
	}

	engine, err := dynamoengine.New(mock, dynamoengine.Schema{"product": {}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = engine.BatchGet(context.Background(), "product", []string{"P1"})
	if !errors.Is(err, dynamoengine.ErrNonExistentTable) {
		t.Errorf("expected ErrNonExistentTable, got %v", err)
	}
	if dynamoengine.KindOf(err) != dynamoengine.KindOperational {
		t.Errorf("expected an operational error, got %v", dynamoengine.KindOf(err))
	}
}

func TestMockClient_ListTables(t *testing.T) {
	mock := NewMockClient(t)

	mock.ListTablesFunc = func(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
		return &dynamodb.ListTablesOutput{TableNames: []string{"relations"}}, nil
	}

	out, err := mock.ListTables(context.Background(), &dynamodb.ListTablesInput{})
	if err != nil {
		t.Fatalf("ListTables failed: %v", err)
	}
	if len(out.TableNames) != 1 || out.TableNames[0] != "relations" {
		t.Errorf("unexpected table names %v", out.TableNames)
	}
}

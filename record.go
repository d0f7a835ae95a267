package dynamoengine

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// CreateRecord stores a new record. It fails with ErrRecordExists when a record with
// the same id is already stored.
func (e *Engine) CreateRecord(ctx context.Context, r Record) (err error) {
	defer func(start time.Time) { e.observe("create_record", start, err) }(time.Now())

	input, err := e.marshalPut("create record", r)
	if err != nil {
		return err
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name(AttributeID))).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build condition: %w", err)
	}
	input.ConditionExpression = expr.Condition()
	input.ExpressionAttributeNames = expr.Names()

	if _, err := e.client.PutItem(ctx, input); err != nil {
		err = classify("create record", err)
		if KindOf(err) == KindConflict {
			return &Error{
				Kind:    KindConflict,
				Op:      "create record",
				Message: fmt.Sprintf("record %s:%s already exists", r[AttributeRecordType], r[AttributeID]),
				Err:     err,
			}
		}
		return migrationRequired("create record", err)
	}
	return nil
}

// UpdateRecord replaces the stored record, creating it when absent.
func (e *Engine) UpdateRecord(ctx context.Context, r Record) (err error) {
	defer func(start time.Time) { e.observe("update_record", start, err) }(time.Now())

	input, err := e.marshalPut("update record", r)
	if err != nil {
		return err
	}

	if _, err := e.client.PutItem(ctx, input); err != nil {
		return migrationRequired("update record", classify("update record", err))
	}
	return nil
}

// GetRecord fetches the record of the given type and id. It fails with ErrNotFound when
// no such record is stored.
func (e *Engine) GetRecord(ctx context.Context, entityType, id string) (r Record, err error) {
	defer func(start time.Time) { e.observe("get_record", start, err) }(time.Now())

	tableName, key, err := e.recordKey("get record", entityType, id)
	if err != nil {
		return nil, err
	}

	var out *dynamodb.GetItemOutput
	err = e.retryThroughput(ctx, "get record", func() error {
		var err error
		out, err = e.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(tableName),
			Key:       key,
		})
		return classify("get record", err)
	})
	if err != nil {
		return nil, migrationRequired("get record", err)
	}

	if len(out.Item) == 0 {
		return nil, newError(KindNotFound, "get record", fmt.Sprintf("could not find record %s:%s", entityType, id))
	}
	return e.codec.DecodeItem(out.Item), nil
}

// RemoveRecord deletes the record of the given type and id. Removing a record that does
// not exist is not an error.
func (e *Engine) RemoveRecord(ctx context.Context, entityType, id string) (err error) {
	defer func(start time.Time) { e.observe("remove_record", start, err) }(time.Now())

	tableName, key, err := e.recordKey("remove record", entityType, id)
	if err != nil {
		return err
	}

	err = e.retryThroughput(ctx, "remove record", func() error {
		_, err := e.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(tableName),
			Key:       key,
		})
		return classify("remove record", err)
	})
	return migrationRequired("remove record", err)
}

// marshalPut validates r and encodes it into a put request for its type's table.
func (e *Engine) marshalPut(op string, r Record) (*dynamodb.PutItemInput, error) {
	id, ok := r[AttributeID].(string)
	if !ok || id == "" {
		return nil, validationError(op, "record id must be a non-empty string")
	}
	entityType, ok := r[AttributeRecordType].(string)
	if !ok || entityType == "" {
		return nil, validationError(op, "record type must be a non-empty string")
	}

	def, err := e.entity(op, entityType)
	if err != nil {
		return nil, err
	}

	item, err := e.codec.EncodeItem(r)
	if err != nil {
		return nil, err
	}

	return &dynamodb.PutItemInput{
		TableName: aws.String(def.TableName),
		Item:      item,
	}, nil
}

// recordKey validates the arguments and returns the table and key addressing one record.
func (e *Engine) recordKey(op, entityType, id string) (string, Item, error) {
	if id == "" {
		return "", nil, validationError(op, "record id must be a non-empty string")
	}
	def, err := e.entity(op, entityType)
	if err != nil {
		return "", nil, err
	}

	key, err := BuildKey(map[string]any{AttributeID: id})
	if err != nil {
		return "", nil, err
	}
	return def.TableName, key, nil
}

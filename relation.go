package dynamoengine

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Ref identifies a record by type and id.
type Ref struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

func (r Ref) String() string { return r.Type + ":" + r.ID }

// Relation is a directed edge from a subject record to an object record, stored as one
// item of the relation table.
type Relation struct {
	SubjectID   string `dynamodbav:"subjectId"`
	SubjectType string `dynamodbav:"subjectType"`
	ObjectID    string `dynamodbav:"objectId"`
	ObjectType  string `dynamodbav:"objectType"`
}

// Subject returns the subject reference.
func (r Relation) Subject() Ref { return Ref{ID: r.SubjectID, Type: r.SubjectType} }

// Object returns the object reference.
func (r Relation) Object() Ref { return Ref{ID: r.ObjectID, Type: r.ObjectType} }

// CreateRelation stores the edge subject -> object. It fails with ErrConflict when the
// same pair is already related.
func (e *Engine) CreateRelation(ctx context.Context, subject, object Ref) (err error) {
	defer func(start time.Time) { e.observe("create_relation", start, err) }(time.Now())

	const op = "create relation"
	for _, field := range []struct{ name, value string }{
		{"subject id", subject.ID},
		{"subject type", subject.Type},
		{"object id", object.ID},
		{"object type", object.Type},
	} {
		if field.value == "" {
			return validationError(op, field.name+" must be a non-empty string")
		}
	}

	item, err := attributevalue.MarshalMap(Relation{
		SubjectID:   subject.ID,
		SubjectType: subject.Type,
		ObjectID:    object.ID,
		ObjectType:  object.Type,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal relation: %w", err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.And(
			expression.AttributeNotExists(expression.Name(AttributeSubjectID)),
			expression.AttributeNotExists(expression.Name(AttributeObjectID)),
		)).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build condition: %w", err)
	}

	_, err = e.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(e.compiled.Relations.TableName),
		Item:                     item,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		err = classify(op, err)
		if KindOf(err) == KindConflict {
			return &Error{
				Kind:    KindConflict,
				Op:      op,
				Message: fmt.Sprintf("relation %s -> %s already exists", subject, object),
				Err:     err,
			}
		}
		return migrationRequired(op, err)
	}
	return nil
}

// GetRelations returns the objects related to subjectID. When objectType is not empty
// only objects of that type are returned.
func (e *Engine) GetRelations(ctx context.Context, subjectID, objectType string) ([]Ref, error) {
	if subjectID == "" {
		return nil, validationError("get relations", "subject id must be a non-empty string")
	}
	relations, err := e.relations(ctx, IndexHasMany, subjectID, objectType)
	if err != nil {
		return nil, err
	}

	refs := make([]Ref, 0, len(relations))
	for _, rel := range relations {
		refs = append(refs, rel.Object())
	}
	return refs, nil
}

// GetReverseRelations returns the subjects related to objectID. When subjectType is not
// empty only subjects of that type are returned.
func (e *Engine) GetReverseRelations(ctx context.Context, objectID, subjectType string) ([]Ref, error) {
	if objectID == "" {
		return nil, validationError("get reverse relations", "object id must be a non-empty string")
	}
	relations, err := e.relations(ctx, IndexBelongsTo, objectID, subjectType)
	if err != nil {
		return nil, err
	}

	refs := make([]Ref, 0, len(relations))
	for _, rel := range relations {
		refs = append(refs, rel.Subject())
	}
	return refs, nil
}

func (e *Engine) relations(ctx context.Context, index, id, typ string) ([]Relation, error) {
	q, err := e.RelationQuery(index)
	if err != nil {
		return nil, err
	}
	q = q.HashEqual(id)
	if typ != "" {
		q = q.RangeEqual(typ)
	}

	records, err := q.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	relations := make([]Relation, 0, len(records))
	for _, r := range records {
		relations = append(relations, relationFromRecord(r))
	}
	return relations, nil
}

func relationFromRecord(r Record) Relation {
	str := func(name string) string {
		s, _ := r[name].(string)
		return s
	}
	return Relation{
		SubjectID:   str(AttributeSubjectID),
		SubjectType: str(AttributeSubjectType),
		ObjectID:    str(AttributeObjectID),
		ObjectType:  str(AttributeObjectType),
	}
}

// RemoveRelation deletes the edge subjectID -> objectID. Removing a missing relation is
// not an error.
func (e *Engine) RemoveRelation(ctx context.Context, subjectID, objectID string) (err error) {
	defer func(start time.Time) { e.observe("remove_relation", start, err) }(time.Now())

	const op = "remove relation"
	if subjectID == "" || objectID == "" {
		return validationError(op, "subject id and object id must be non-empty strings")
	}

	key, err := BuildKey(map[string]any{
		AttributeSubjectID: subjectID,
		AttributeObjectID:  objectID,
	})
	if err != nil {
		return err
	}

	err = e.retryThroughput(ctx, op, func() error {
		_, err := e.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(e.compiled.Relations.TableName),
			Key:       key,
		})
		return classify(op, err)
	})
	return migrationRequired(op, err)
}

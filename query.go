package dynamoengine

import (
	"context"
	"fmt"
	"iter"
	"math"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DefaultQueryLimit is the page size of a query unless SetLimit is called.
const DefaultQueryLimit = 20

// Expression placeholders used by every query.
const (
	placeholderHashKey    = "#hashkey"
	placeholderHashValue  = ":hashval"
	placeholderRangeKey   = "#rangekey"
	placeholderRangeValue = ":rangeval"
	placeholderRangeEnd   = ":rangeval2"
)

type rangeOp int

const (
	rangeNone rangeOp = iota
	rangeEqual
	rangeLessThan
	rangeLessThanOrEqual
	rangeGreaterThan
	rangeGreaterThanOrEqual
	rangeBetween
	rangeBeginsWith
)

var rangeExpressions = map[rangeOp]string{
	rangeEqual:              "#rangekey = :rangeval",
	rangeLessThan:           "#rangekey < :rangeval",
	rangeLessThanOrEqual:    "#rangekey <= :rangeval",
	rangeGreaterThan:        "#rangekey > :rangeval",
	rangeGreaterThanOrEqual: "#rangekey >= :rangeval",
	rangeBetween:            "#rangekey BETWEEN :rangeval AND :rangeval2",
	rangeBeginsWith:         "begins_with(#rangekey, :rangeval)",
}

// Query is an immutable query specification. Every method returns a modified copy and
// leaves the receiver untouched, so a base query can be shared and branched freely.
type Query struct {
	client      Client
	codec       Codec
	tableName   string
	indexName   string
	hashKey     string
	hashValue   any
	rangeKey    string
	rangeOp     rangeOp
	rangeValue  any
	rangeValue2 any
	descending  bool
	limit       int
	metrics     func(op string, start time.Time, err error)
}

// NewQuery returns a query against tableName keyed by hashKey and, optionally, rangeKey.
func NewQuery(client Client, tableName, hashKey, rangeKey string) Query {
	return Query{
		client:    client,
		tableName: tableName,
		hashKey:   hashKey,
		rangeKey:  rangeKey,
		limit:     DefaultQueryLimit,
	}
}

// WithIndex targets the named index, keyed by hashKey and rangeKey.
func (q Query) WithIndex(indexName, hashKey, rangeKey string) Query {
	q.indexName = indexName
	q.hashKey = hashKey
	q.rangeKey = rangeKey
	return q
}

// WithCodec decodes results with c.
func (q Query) WithCodec(c Codec) Query {
	q.codec = c
	return q
}

func (q Query) HashEqual(v any) Query {
	q.hashValue = v
	return q
}

func (q Query) RangeEqual(v any) Query { return q.withRange(rangeEqual, v, nil) }

func (q Query) RangeLessThan(v any) Query { return q.withRange(rangeLessThan, v, nil) }

func (q Query) RangeLessThanOrEqual(v any) Query { return q.withRange(rangeLessThanOrEqual, v, nil) }

func (q Query) RangeGreaterThan(v any) Query { return q.withRange(rangeGreaterThan, v, nil) }

func (q Query) RangeGreaterThanOrEqual(v any) Query {
	return q.withRange(rangeGreaterThanOrEqual, v, nil)
}

// RangeBetween matches range keys in the inclusive interval [a, b].
func (q Query) RangeBetween(a, b any) Query { return q.withRange(rangeBetween, a, b) }

func (q Query) RangeBeginsWith(prefix string) Query {
	return q.withRange(rangeBeginsWith, prefix, nil)
}

// Ascending orders results by range key, lowest first. This is the default.
func (q Query) Ascending() Query {
	q.descending = false
	return q
}

// Descending orders results by range key, highest first.
func (q Query) Descending() Query {
	q.descending = true
	return q
}

// SetLimit sets the maximum number of items per page.
func (q Query) SetLimit(n int) Query {
	q.limit = n
	return q
}

func (q Query) withRange(op rangeOp, a, b any) Query {
	q.rangeOp = op
	q.rangeValue = a
	q.rangeValue2 = b
	return q
}

// TableName returns the table the query targets.
func (q Query) TableName() string { return q.tableName }

// IndexName returns the index the query targets, or an empty string for the table.
func (q Query) IndexName() string { return q.indexName }

// Input builds the native request. startKey, when not empty, becomes the exclusive
// start key.
func (q Query) Input(startKey Item) (*dynamodb.QueryInput, error) {
	if q.tableName == "" || q.hashKey == "" {
		return nil, validationError("query", "table name and hash key are required")
	}
	if q.hashValue == nil {
		return nil, validationError("query", "hash value is required; call HashEqual")
	}
	if q.limit <= 0 || q.limit > math.MaxInt32 {
		return nil, validationError("query", fmt.Sprintf("limit must be between 1 and %d, got %d", math.MaxInt32, q.limit))
	}

	hashValue, err := keyValue(q.hashValue)
	if err != nil {
		return nil, err
	}

	condition := placeholderHashKey + " = " + placeholderHashValue
	names := map[string]string{placeholderHashKey: q.hashKey}
	values := map[string]types.AttributeValue{placeholderHashValue: hashValue}

	if q.rangeOp != rangeNone {
		if q.rangeKey == "" {
			return nil, validationError("query", "range condition given but the key has no range attribute")
		}

		names[placeholderRangeKey] = q.rangeKey
		if values[placeholderRangeValue], err = keyValue(q.rangeValue); err != nil {
			return nil, err
		}
		if q.rangeOp == rangeBetween {
			if values[placeholderRangeEnd], err = keyValue(q.rangeValue2); err != nil {
				return nil, err
			}
		}
		condition += " AND " + rangeExpressions[q.rangeOp]
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(q.tableName),
		KeyConditionExpression:    aws.String(condition),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(!q.descending),
		Limit:                     aws.Int32(int32(q.limit)),
		Select:                    types.SelectAllAttributes,
	}
	if q.indexName != "" {
		input.IndexName = aws.String(q.indexName)
	}
	if len(startKey) > 0 {
		input.ExclusiveStartKey = startKey
	}
	return input, nil
}

// Page is one page of query results. LastEvaluatedKey is empty on the final page. It
// is kept in wire format so numeric keys survive the round trip exactly.
type Page struct {
	Items            []Record
	Count            int
	LastEvaluatedKey Item
}

// FetchPage issues exactly one query request. cursor is the LastEvaluatedKey of the
// previous page, or nil for the first page.
func (q Query) FetchPage(ctx context.Context, cursor Item) (*Page, error) {
	page, _, err := q.fetch(ctx, cursor)
	return page, err
}

func (q Query) fetch(ctx context.Context, startKey Item) (page *Page, lastKey Item, err error) {
	if q.metrics != nil {
		defer func(start time.Time) { q.metrics("query", start, err) }(time.Now())
	}

	input, err := q.Input(startKey)
	if err != nil {
		return nil, nil, err
	}

	out, err := q.client.Query(ctx, input)
	if err != nil {
		return nil, nil, migrationRequired("query", classify("query", err))
	}

	page = &Page{
		Items: make([]Record, 0, len(out.Items)),
		Count: len(out.Items),
	}
	for _, item := range out.Items {
		page.Items = append(page.Items, q.codec.DecodeItem(item))
	}
	if len(out.LastEvaluatedKey) > 0 {
		page.LastEvaluatedKey = out.LastEvaluatedKey
	}
	return page, out.LastEvaluatedKey, nil
}

// Pages returns a lazy, forward-only sequence of pages. Iteration stops after the
// first page without a LastEvaluatedKey or after the first error. Each call starts over
// from the first page.
func (q Query) Pages(ctx context.Context) iter.Seq2[*Page, error] {
	return func(yield func(*Page, error) bool) {
		var startKey Item
		for {
			page, lastKey, err := q.fetch(ctx, startKey)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(page, nil) || len(lastKey) == 0 {
				return
			}
			startKey = lastKey
		}
	}
}

// FetchAll drains Pages and returns every matching item.
func (q Query) FetchAll(ctx context.Context) ([]Record, error) {
	var items []Record
	for page, err := range q.Pages(ctx) {
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// Query returns a query against an entity table or, when indexName is not empty, one
// of its declared indexes.
func (e *Engine) Query(entityType, indexName string) (Query, error) {
	def, err := e.entity("query", entityType)
	if err != nil {
		return Query{}, err
	}

	q := e.newQuery(def.TableName, def.HashKey(), "")
	if indexName == "" {
		return q, nil
	}

	gsi, ok := def.Index(indexName)
	if !ok {
		return Query{}, validationError("query", fmt.Sprintf("record type %q has no index %q", entityType, indexName))
	}
	hash, rangeKey := splitKeySchema(gsi.KeySchema)
	return q.WithIndex(aws.ToString(gsi.IndexName), hash, rangeKey), nil
}

// RelationQuery returns a query against one of the relation indexes: IndexHasMany to
// look up objects by subject id, IndexBelongsTo to look up subjects by object id.
func (e *Engine) RelationQuery(indexName string) (Query, error) {
	def := e.compiled.Relations
	gsi, ok := def.Index(indexName)
	if !ok {
		return Query{}, validationError("query", fmt.Sprintf("unknown relation index %q", indexName))
	}
	hash, rangeKey := splitKeySchema(gsi.KeySchema)
	return e.newQuery(def.TableName, "", "").WithIndex(aws.ToString(gsi.IndexName), hash, rangeKey), nil
}

func (e *Engine) newQuery(tableName, hashKey, rangeKey string) Query {
	q := NewQuery(e.client, tableName, hashKey, rangeKey).WithCodec(e.codec)
	q.metrics = e.observe
	return q
}

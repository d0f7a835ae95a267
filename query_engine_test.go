package dynamoengine_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nisimpson/dynamoengine"
	"github.com/nisimpson/dynamoengine/dynamock"
	dynassert "github.com/nisimpson/dynamoengine/dynamock/assert"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedOrders stores count orders for customer C1, placed at 1..count, plus one order for C2.
func seedOrders(t *testing.T, engine *dynamoengine.Engine, count int) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= count; i++ {
		require.NoError(t, engine.CreateRecord(ctx, order(fmt.Sprintf("O%d", i), "C1", i)))
	}
	require.NoError(t, engine.CreateRecord(ctx, order("X1", "C2", 3)))
}

func TestEngineQuery(t *testing.T) {
	ctx := context.Background()
	engine, _ := dynamock.NewMemoryEngine(t, shopSchema())
	seedOrders(t, engine, 5)

	q, err := engine.Query("order", "byCustomer")
	require.NoError(t, err)
	assert.Equal(t, "order_entities", q.TableName())
	assert.Equal(t, "order_by_customer", q.IndexName())

	tests := []struct {
		name  string
		query dynamoengine.Query
		ids   []string
	}{
		{name: "ascending", query: q.HashEqual("C1"), ids: []string{"O1", "O2", "O3", "O4", "O5"}},
		{name: "descending", query: q.HashEqual("C1").Descending(), ids: []string{"O5", "O4", "O3", "O2", "O1"}},
		{name: "equal", query: q.HashEqual("C1").RangeEqual(3), ids: []string{"O3"}},
		{name: "less than", query: q.HashEqual("C1").RangeLessThan(3), ids: []string{"O1", "O2"}},
		{name: "less or equal", query: q.HashEqual("C1").RangeLessThanOrEqual(2), ids: []string{"O1", "O2"}},
		{name: "greater than", query: q.HashEqual("C1").RangeGreaterThan(3), ids: []string{"O4", "O5"}},
		{name: "greater or equal", query: q.HashEqual("C1").RangeGreaterThanOrEqual(4), ids: []string{"O4", "O5"}},
		{name: "between", query: q.HashEqual("C1").RangeBetween(2, 4), ids: []string{"O2", "O3", "O4"}},
		{name: "other customer", query: q.HashEqual("C2"), ids: []string{"X1"}},
		{name: "no match", query: q.HashEqual("C9"), ids: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := tt.query.FetchAll(ctx)
			require.NoError(t, err)
			dynassert.Records(t, records).HasIDs(tt.ids...)
		})
	}

	t.Run("primary key", func(t *testing.T) {
		q, err := engine.Query("order", "")
		require.NoError(t, err)

		records, err := q.HashEqual("O2").FetchAll(ctx)
		require.NoError(t, err)
		dynassert.Records(t, records).HasCount(1).HasAttribute("placedAt", float64(2))
	})

	t.Run("unknown index", func(t *testing.T) {
		_, err := engine.Query("order", "byStatus")
		assert.ErrorIs(t, err, dynamoengine.ErrValidation)

		_, err = engine.Query("invoice", "")
		assert.ErrorIs(t, err, dynamoengine.ErrValidation)
	})

	t.Run("missing hash value", func(t *testing.T) {
		_, err := q.FetchAll(ctx)
		assert.ErrorIs(t, err, dynamoengine.ErrValidation)
	})
}

func TestEngineQueryPages(t *testing.T) {
	ctx := context.Background()
	engine, store := dynamock.NewMemoryEngine(t, shopSchema())
	seedOrders(t, engine, 5)

	q, err := engine.Query("order", "byCustomer")
	require.NoError(t, err)
	q = q.HashEqual("C1")

	tests := []struct {
		limit int
		sizes []int
	}{
		{limit: 2, sizes: []int{2, 2, 1}},
		{limit: 5, sizes: []int{5, 0}},
		{limit: 10, sizes: []int{5}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("limit %d", tt.limit), func(t *testing.T) {
			var sizes []int
			seen := map[any]bool{}
			for page, err := range q.SetLimit(tt.limit).Pages(ctx) {
				require.NoError(t, err)
				assert.Equal(t, len(page.Items), page.Count)
				sizes = append(sizes, page.Count)
				for _, r := range page.Items {
					assert.False(t, seen[r["id"]], "record %v returned twice", r["id"])
					seen[r["id"]] = true
				}
			}
			assert.Equal(t, tt.sizes, sizes)
			assert.Len(t, seen, 5)
		})
	}

	t.Run("early stop", func(t *testing.T) {
		before := store.Calls("Query")
		for page, err := range q.SetLimit(1).Pages(ctx) {
			require.NoError(t, err)
			require.Len(t, page.Items, 1)
			break
		}
		assert.Equal(t, 1, store.Calls("Query")-before)
	})

	t.Run("fetch page", func(t *testing.T) {
		limited := q.SetLimit(3)

		first, err := limited.FetchPage(ctx, nil)
		require.NoError(t, err)
		dynassert.Records(t, first.Items).HasIDs("O1", "O2", "O3")
		require.NotEmpty(t, first.LastEvaluatedKey)

		second, err := limited.FetchPage(ctx, first.LastEvaluatedKey)
		require.NoError(t, err)
		dynassert.Records(t, second.Items).HasIDs("O4", "O5")
		assert.Empty(t, second.LastEvaluatedKey)
	})

	t.Run("fetch page descending", func(t *testing.T) {
		limited := q.SetLimit(2).Descending()

		first, err := limited.FetchPage(ctx, nil)
		require.NoError(t, err)
		second, err := limited.FetchPage(ctx, first.LastEvaluatedKey)
		require.NoError(t, err)

		dynassert.Records(t, append(first.Items, second.Items...)).HasIDs("O5", "O4", "O3", "O2")
	})

	t.Run("cursor", func(t *testing.T) {
		var ids []string
		cursor := ""
		for {
			page, next, err := q.SetLimit(2).FetchCursor(ctx, dynamoengine.TokenPaginator{}, cursor)
			require.NoError(t, err)
			for _, r := range page.Items {
				ids = append(ids, r["id"].(string))
			}
			if next == "" {
				break
			}
			cursor = next
		}
		assert.Equal(t, []string{"O1", "O2", "O3", "O4", "O5"}, ids)
	})

	t.Run("malformed cursor", func(t *testing.T) {
		_, _, err := q.FetchCursor(ctx, dynamoengine.TokenPaginator{}, "%%%")
		assert.ErrorIs(t, err, dynamoengine.ErrValidation)
	})
}

func TestQueryPagesLargeNumericKeys(t *testing.T) {
	ctx := context.Background()
	mock := dynamock.NewMockClient(t)

	// Sequence numbers above 2^53 are not representable as float64.
	seqs := []string{"9007199254740993", "9007199254740995", "9007199254740997"}
	item := func(seq string) dynamoengine.Item {
		return dynamoengine.Item{
			"stream": &types.AttributeValueMemberS{Value: "s1"},
			"seq":    &types.AttributeValueMemberN{Value: seq},
		}
	}

	var startKeys []string
	mock.QueryFunc = func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
		next := 0
		if params.ExclusiveStartKey != nil {
			seq := params.ExclusiveStartKey["seq"].(*types.AttributeValueMemberN).Value
			startKeys = append(startKeys, seq)
			next = len(seqs)
			for i, s := range seqs {
				if s == seq {
					next = i + 1
				}
			}
		}
		out := &dynamodb.QueryOutput{}
		if next < len(seqs) {
			out.Items = []dynamoengine.Item{item(seqs[next])}
			out.LastEvaluatedKey = item(seqs[next])
		}
		return out, nil
	}

	q := dynamoengine.NewQuery(mock, "events", "stream", "seq").HashEqual("s1").SetLimit(1)

	t.Run("fetch page", func(t *testing.T) {
		startKeys = nil
		var cursor dynamoengine.Item
		pages := 0
		for {
			page, err := q.FetchPage(ctx, cursor)
			require.NoError(t, err)
			pages++
			if len(page.LastEvaluatedKey) == 0 {
				break
			}
			cursor = page.LastEvaluatedKey
		}
		assert.Equal(t, 4, pages)
		assert.Equal(t, seqs, startKeys)
	})

	t.Run("fetch all", func(t *testing.T) {
		startKeys = nil
		items, err := q.FetchAll(ctx)
		require.NoError(t, err)
		assert.Len(t, items, 3)
		assert.Equal(t, seqs, startKeys)
	})
}

func TestRelationQuery(t *testing.T) {
	ctx := context.Background()
	engine, _ := dynamock.NewMemoryEngine(t, shopSchema())

	seeder := dynamock.NewSeeder(engine)
	p1 := dynamock.NewRecord("product", dynamock.WithID("P1"))
	p2 := dynamock.NewRecord("product", dynamock.WithID("P2"))
	o1 := dynamock.NewRecord("order",
		dynamock.WithID("O1"),
		dynamock.WithFields(map[string]any{"customer": "C1", "placedAt": 1}),
		dynamock.WithRelation(p1.Ref(), p2.Ref()),
	)
	require.NoError(t, seeder.Seed(ctx, p1, p2, o1))

	q, err := engine.RelationQuery(dynamoengine.IndexHasMany)
	require.NoError(t, err)
	assert.Equal(t, "relations", q.TableName())
	assert.Equal(t, "has_many", q.IndexName())

	records, err := q.HashEqual("O1").RangeBeginsWith("prod").FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	var relations []dynamoengine.Relation
	for _, r := range records {
		relations = append(relations, dynamoengine.Relation{
			SubjectID:   r[dynamoengine.AttributeSubjectID].(string),
			SubjectType: r[dynamoengine.AttributeSubjectType].(string),
			ObjectID:    r[dynamoengine.AttributeObjectID].(string),
			ObjectType:  r[dynamoengine.AttributeObjectType].(string),
		})
	}
	dynassert.Relations(t, relations).
		HasCount(2).
		HasRelation(o1.Ref(), p1.Ref()).
		HasRelation(o1.Ref(), p2.Ref())
}

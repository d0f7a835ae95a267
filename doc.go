// Package dynamoengine maps schemaless records and the relations between them onto
// Amazon DynamoDB tables derived from a declarative schema.
//
// # Key Concepts
//
// A Schema declares entity types. Each type gets its own table, keyed by the string
// attribute "id", with one global secondary index per declared index. All relations
// share a single relations table, queryable from both ends:
//   - <prefix>_<type>_entities: records of one type, hash key "id"
//   - <prefix>_<type>_<index>: secondary indexes of that table
//   - <prefix>_relations: hash key "subjectId", range key "objectId"
//   - <prefix>_has_many: relations by subject, ordered by object type
//   - <prefix>_belongs_to: relations by object, ordered by subject type
//
// Names are converted to snake case, so the type "lineItem" with prefix "shop" is
// stored in "shop_line_item_entities".
//
// # Basic Usage
//
//	schema, err := dynamoengine.LoadSchemaFile("schema.yaml")
//	if err != nil {
//	    return err
//	}
//
//	client, err := dynamoengine.NewClientFromEnv(ctx)
//	if err != nil {
//	    return err
//	}
//
//	engine, err := dynamoengine.New(client, schema, dynamoengine.WithTablePrefix("shop"))
//	if err != nil {
//	    return err
//	}
//
//	// Create or update every table and index
//	if err := engine.MigrateUp(ctx); err != nil {
//	    return err
//	}
//
//	err = engine.CreateRecord(ctx, dynamoengine.Record{
//	    "id":    dynamoengine.NewID(),
//	    "type":  "order",
//	    "total": 42,
//	})
//
// # Schema Files
//
// Schemas are YAML documents keyed by entity type:
//
//	order:
//	  attributes:
//	    customer: string
//	    placedAt: number
//	  indexes:
//	    byCustomer:
//	      hash: {name: customer, type: string}
//	      range: {name: placedAt, type: number}
//	  throughput: {read: 10, write: 5}
//
// # Queries
//
// Queries are immutable values. Every builder method returns a modified copy, so a
// base query can be shared and refined:
//
//	q, err := engine.Query("order", "byCustomer")
//	recent := q.HashEqual("C1").RangeGreaterThan(since).Descending().SetLimit(50)
//	for page, err := range recent.Pages(ctx) {
//	    // ...
//	}
//
// # Errors
//
// Failures are *Error values carrying a Kind. Use errors.Is with the sentinel errors,
// for example ErrNotFound or ErrConflict, or KindOf to switch on the kind.
package dynamoengine

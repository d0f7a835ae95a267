package dynamoengine

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// UpdateDelta lists the global secondary indexes a live table is missing. Deltas are
// additive only: existing indexes are never dropped or altered.
type UpdateDelta struct {
	TableName            string
	AttributeDefinitions []types.AttributeDefinition
	Creates              []types.GlobalSecondaryIndex
}

// Inputs returns one update request per index to create. DynamoDB accepts a single
// index creation per UpdateTable call.
func (u *UpdateDelta) Inputs() []*dynamodb.UpdateTableInput {
	inputs := make([]*dynamodb.UpdateTableInput, 0, len(u.Creates))
	for _, gsi := range u.Creates {
		var defs []types.AttributeDefinition
		for _, k := range gsi.KeySchema {
			for _, def := range u.AttributeDefinitions {
				if aws.ToString(def.AttributeName) == aws.ToString(k.AttributeName) {
					defs = append(defs, def)
				}
			}
		}

		inputs = append(inputs, &dynamodb.UpdateTableInput{
			TableName:            aws.String(u.TableName),
			AttributeDefinitions: defs,
			GlobalSecondaryIndexUpdates: []types.GlobalSecondaryIndexUpdate{
				{
					Create: &types.CreateGlobalSecondaryIndexAction{
						IndexName:             gsi.IndexName,
						KeySchema:             cloneKeySchema(gsi.KeySchema),
						Projection:            gsi.Projection,
						ProvisionedThroughput: cloneThroughput(gsi.ProvisionedThroughput),
					},
				},
			},
		})
	}
	return inputs
}

// Diff compares the desired definition against a live table description. It returns nil
// when every desired index already exists with an identical key schema. Changing the
// table's key schema or an existing index's key schema is a schema error, since DynamoDB
// cannot alter keys in place.
func Diff(desired TableDefinition, current *types.TableDescription) (*UpdateDelta, error) {
	if current == nil {
		return nil, schemaError(fmt.Sprintf("table %s: no description to compare against", desired.TableName))
	}

	if !keySchemaEqual(desired.KeySchema, current.KeySchema) {
		return nil, schemaError(fmt.Sprintf("cannot change KeySchema of table %s", desired.TableName))
	}

	existing := make(map[string][]types.KeySchemaElement, len(current.GlobalSecondaryIndexes))
	for _, gsi := range current.GlobalSecondaryIndexes {
		existing[aws.ToString(gsi.IndexName)] = gsi.KeySchema
	}

	var creates []types.GlobalSecondaryIndex
	for _, gsi := range desired.GlobalSecondaryIndexes {
		name := aws.ToString(gsi.IndexName)
		ks, ok := existing[name]
		if !ok {
			creates = append(creates, gsi)
			continue
		}
		if !keySchemaEqual(gsi.KeySchema, ks) {
			return nil, schemaError(fmt.Sprintf("cannot change KeySchema of a GlobalSecondaryIndex: %s:%s", desired.TableName, name))
		}
	}

	if len(creates) == 0 {
		return nil, nil
	}

	defined := make(map[string]bool, len(desired.AttributeDefinitions))
	for _, def := range desired.AttributeDefinitions {
		defined[aws.ToString(def.AttributeName)] = true
	}
	for _, gsi := range creates {
		for _, k := range gsi.KeySchema {
			if !defined[aws.ToString(k.AttributeName)] {
				return nil, schemaError(fmt.Sprintf("attribute %s found in KeySchema of %s:%s not in AttributeDefinitions",
					aws.ToString(k.AttributeName), desired.TableName, aws.ToString(gsi.IndexName)))
			}
		}
	}

	return &UpdateDelta{
		TableName:            desired.TableName,
		AttributeDefinitions: desired.Clone().AttributeDefinitions,
		Creates:              creates,
	}, nil
}

func keySchemaEqual(a, b []types.KeySchemaElement) bool {
	ah, ar := splitKeySchema(a)
	bh, br := splitKeySchema(b)
	return ah == bh && ar == br
}

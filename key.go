package dynamoengine

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// BuildKey converts fields into a primary key. Key attributes must be scalar: strings,
// numbers or booleans. Anything else, including nested lists and maps, is a type error.
func BuildKey(fields map[string]any) (Item, error) {
	key := make(Item, len(fields))
	for name, v := range fields {
		av, err := keyValue(v)
		if err != nil {
			return nil, fmt.Errorf("key attribute %q: %w", name, err)
		}
		key[name] = av
	}
	return key, nil
}

// BuildKeySchema returns the key schema with the HASH element first, followed by the
// RANGE element when rangeKey is not empty.
func BuildKeySchema(hashKey, rangeKey string) []types.KeySchemaElement {
	schema := []types.KeySchemaElement{
		{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
	}
	if rangeKey != "" {
		schema = append(schema, types.KeySchemaElement{
			AttributeName: aws.String(rangeKey),
			KeyType:       types.KeyTypeRange,
		})
	}
	return schema
}

// keyValue encodes a single scalar key value.
func keyValue(v any) (types.AttributeValue, error) {
	switch x := v.(type) {
	case string:
		if x == "" {
			return nil, typeError("key value must not be an empty string")
		}
		return &types.AttributeValueMemberS{Value: x}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: x}, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(rv.Int(), 10)}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &types.AttributeValueMemberN{Value: strconv.FormatUint(rv.Uint(), 10)}, nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, typeError(fmt.Sprintf("non-finite key value %v", f))
		}
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(f, 'f', -1, 64)}, nil
	}

	return nil, typeError(fmt.Sprintf("only string, number or boolean key values are allowed, not %T", v))
}

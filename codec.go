package dynamoengine

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is a DynamoDB item in wire format.
type Item = map[string]types.AttributeValue

// Record is a decoded item. Numbers decode as float64, lists as []any and maps as
// map[string]any.
type Record = map[string]any

// Codec converts between native values and DynamoDB attribute values.
//
// By default an empty string cannot be encoded and yields a type error. When
// NullEmptyString is set, empty strings are written as NULL instead.
type Codec struct {
	NullEmptyString bool
}

var defaultCodec Codec

// Encode converts v into an attribute value using the strict codec.
func Encode(v any) (types.AttributeValue, error) { return defaultCodec.Encode(v) }

// Decode converts av into a native value using the strict codec.
func Decode(av types.AttributeValue) (any, bool) { return defaultCodec.Decode(av) }

// EncodeItem encodes every field of r using the strict codec.
func EncodeItem(r Record) (Item, error) { return defaultCodec.EncodeItem(r) }

// DecodeItem decodes every attribute of item using the strict codec.
func DecodeItem(item Item) Record { return defaultCodec.DecodeItem(item) }

// Encode converts v into an attribute value. Strings, finite numbers, booleans, nil,
// slices, arrays, string keyed maps and structs are representable. NaN, infinities,
// complex numbers, functions and channels produce a type error.
func (c Codec) Encode(v any) (types.AttributeValue, error) {
	if err := c.check("value", reflect.ValueOf(v)); err != nil {
		return nil, err
	}

	av, err := attributevalue.Marshal(v)
	if err != nil {
		return nil, &Error{Kind: KindType, Op: "encode", Message: "failed to encode value", Err: err}
	}
	if c.NullEmptyString {
		av = nullEmptyStrings(av)
	}
	return av, nil
}

// nullEmptyStrings replaces empty S members with NULL, descending into lists and maps.
func nullEmptyStrings(av types.AttributeValue) types.AttributeValue {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		if v.Value == "" {
			return &types.AttributeValueMemberNULL{Value: true}
		}
	case *types.AttributeValueMemberL:
		for i, elem := range v.Value {
			v.Value[i] = nullEmptyStrings(elem)
		}
	case *types.AttributeValueMemberM:
		for name, elem := range v.Value {
			v.Value[name] = nullEmptyStrings(elem)
		}
	}
	return av
}

// EncodeItem encodes every field of r.
func (c Codec) EncodeItem(r Record) (Item, error) {
	item := make(Item, len(r))
	for name, v := range r {
		av, err := c.Encode(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		item[name] = av
	}
	return item, nil
}

// Decode converts av into a native value. The boolean result is false when av carries
// a member the codec does not recognize, in which case the attribute should be treated
// as absent.
func (c Codec) Decode(av types.AttributeValue) (any, bool) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value, true
	case *types.AttributeValueMemberN:
		n, err := strconv.ParseFloat(v.Value, 64)
		if err != nil {
			return nil, false
		}
		return n, true
	case *types.AttributeValueMemberBOOL:
		return v.Value, true
	case *types.AttributeValueMemberNULL:
		return nil, true
	case *types.AttributeValueMemberB:
		return v.Value, true
	case *types.AttributeValueMemberL:
		list := make([]any, 0, len(v.Value))
		for _, elem := range v.Value {
			if decoded, ok := c.Decode(elem); ok {
				list = append(list, decoded)
			}
		}
		return list, true
	case *types.AttributeValueMemberM:
		return c.DecodeItem(v.Value), true
	case *types.AttributeValueMemberSS:
		return append([]string(nil), v.Value...), true
	case *types.AttributeValueMemberNS:
		set := make([]float64, 0, len(v.Value))
		for _, s := range v.Value {
			n, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, false
			}
			set = append(set, n)
		}
		return set, true
	case *types.AttributeValueMemberBS:
		return append([][]byte(nil), v.Value...), true
	default:
		return nil, false
	}
}

// DecodeItem decodes every attribute of item, dropping attributes that cannot be decoded.
func (c Codec) DecodeItem(item Item) Record {
	if item == nil {
		return nil
	}
	r := make(Record, len(item))
	for name, av := range item {
		if v, ok := c.Decode(av); ok {
			r[name] = v
		}
	}
	return r
}

// check walks v and rejects values attributevalue would otherwise accept but DynamoDB
// cannot store faithfully.
func (c Codec) check(path string, v reflect.Value) error {
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return c.check(path, v.Elem())
	case reflect.String:
		if v.Len() == 0 && !c.NullEmptyString {
			return typeError(fmt.Sprintf("%s: empty string is not allowed", path))
		}
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return typeError(fmt.Sprintf("%s: non-finite number %v", path, f))
		}
	case reflect.Complex64, reflect.Complex128, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return typeError(fmt.Sprintf("%s: unsupported type %s", path, v.Type()))
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return nil
		}
		for i := 0; i < v.Len(); i++ {
			if err := c.check(fmt.Sprintf("%s[%d]", path, i), v.Index(i)); err != nil {
				return err
			}
		}
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return typeError(fmt.Sprintf("%s: map keys must be strings", path))
		}
		iter := v.MapRange()
		for iter.Next() {
			if err := c.check(path+"."+iter.Key().String(), iter.Value()); err != nil {
				return err
			}
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			if err := c.check(path+"."+t.Field(i).Name, v.Field(i)); err != nil {
				return err
			}
		}
	}
	return nil
}

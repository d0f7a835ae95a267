// Package stream decodes DynamoDB Streams events of engine tables into record changes.
package stream

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nisimpson/dynamoengine"
	"github.com/rs/zerolog"
)

// EventType is the kind of modification a stream record describes.
type EventType string

const (
	Insert EventType = "INSERT"
	Modify EventType = "MODIFY"
	Remove EventType = "REMOVE"
)

// Change is a decoded stream record. Images are present according to the table's
// stream view type.
type Change struct {
	EventID  string
	Type     EventType
	Table    string
	Keys     dynamoengine.Record
	OldImage dynamoengine.Record
	NewImage dynamoengine.Record
}

// Ref returns the record reference carried by the change, taken from the newest image
// available.
func (c Change) Ref() dynamoengine.Ref {
	for _, img := range []dynamoengine.Record{c.NewImage, c.OldImage, c.Keys} {
		id, _ := img[dynamoengine.AttributeID].(string)
		typ, _ := img[dynamoengine.AttributeRecordType].(string)
		if id != "" {
			return dynamoengine.Ref{ID: id, Type: typ}
		}
	}
	return dynamoengine.Ref{}
}

// Decode converts a Lambda stream record into a Change using the strict codec.
func Decode(rec events.DynamoDBEventRecord) (Change, error) {
	var codec dynamoengine.Codec

	change := Change{
		EventID: rec.EventID,
		Type:    EventType(rec.EventName),
		Table:   tableFromARN(rec.EventSourceArn),
	}

	switch change.Type {
	case Insert, Modify, Remove:
	default:
		return Change{}, fmt.Errorf("unknown stream event %q", rec.EventName)
	}

	var err error
	if change.Keys, err = decodeImage(codec, rec.Change.Keys); err != nil {
		return Change{}, fmt.Errorf("failed to decode keys: %w", err)
	}
	if change.OldImage, err = decodeImage(codec, rec.Change.OldImage); err != nil {
		return Change{}, fmt.Errorf("failed to decode old image: %w", err)
	}
	if change.NewImage, err = decodeImage(codec, rec.Change.NewImage); err != nil {
		return Change{}, fmt.Errorf("failed to decode new image: %w", err)
	}
	return change, nil
}

func decodeImage(codec dynamoengine.Codec, image map[string]events.DynamoDBAttributeValue) (dynamoengine.Record, error) {
	if image == nil {
		return nil, nil
	}
	item := make(dynamoengine.Item, len(image))
	for name, av := range image {
		v, err := convert(av)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		item[name] = v
	}
	return codec.DecodeItem(item), nil
}

// convert maps a Lambda event attribute value onto the SDK attribute value type.
func convert(av events.DynamoDBAttributeValue) (types.AttributeValue, error) {
	switch av.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: av.String()}, nil
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: av.Number()}, nil
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: av.Boolean()}, nil
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: av.Binary()}, nil
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: av.StringSet()}, nil
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: av.NumberSet()}, nil
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: av.BinarySet()}, nil
	case events.DataTypeList:
		list := make([]types.AttributeValue, 0, len(av.List()))
		for _, elem := range av.List() {
			v, err := convert(elem)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	case events.DataTypeMap:
		m := make(map[string]types.AttributeValue, len(av.Map()))
		for name, elem := range av.Map() {
			v, err := convert(elem)
			if err != nil {
				return nil, err
			}
			m[name] = v
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	}
	return nil, fmt.Errorf("unsupported data type %v", av.DataType())
}

// tableFromARN extracts the table name from a stream ARN of the form
// arn:aws:dynamodb:region:account:table/<name>/stream/<label>.
func tableFromARN(arn string) string {
	_, rest, ok := strings.Cut(arn, ":table/")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, "/")
	return name
}

// HandlerFunc processes a single change.
type HandlerFunc func(ctx context.Context, change Change) error

// Handler feeds stream events to a HandlerFunc.
type Handler struct {
	fn  HandlerFunc
	log zerolog.Logger
}

// NewHandler creates a new stream handler.
func NewHandler(fn HandlerFunc, log zerolog.Logger) *Handler {
	return &Handler{fn: fn, log: log.With().Str("component", "stream").Logger()}
}

// Handle processes every record of event. Records that fail to decode or to process are
// reported as batch item failures so the Lambda runtime retries only those. It is meant
// to be passed to lambda.Start.
func (h *Handler) Handle(ctx context.Context, event events.DynamoDBEvent) (events.DynamoDBEventResponse, error) {
	var resp events.DynamoDBEventResponse

	for _, rec := range event.Records {
		change, err := Decode(rec)
		if err == nil {
			err = h.fn(ctx, change)
		}
		if err != nil {
			h.log.Error().Str("eventID", rec.EventID).Err(err).Msg("failed to process record")
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.DynamoDBBatchItemFailure{
				ItemIdentifier: rec.Change.SequenceNumber,
			})
		}
	}
	return resp, nil
}

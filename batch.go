package dynamoengine

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	// MaxBatchGetSize is the maximum number of keys allowed in a DynamoDB batch get.
	MaxBatchGetSize = 100
)

// BatchGet fetches the records of one type by id. Duplicate ids are fetched once and ids
// without a stored record contribute nothing. The order of the result is unspecified.
// Ids are requested in chunks of MaxBatchGetSize, one chunk at a time; keys the store
// leaves unprocessed are requested again.
func (e *Engine) BatchGet(ctx context.Context, entityType string, ids []string) (records []Record, err error) {
	defer func(start time.Time) { e.observe("batch_get", start, err) }(time.Now())

	const op = "batch get"
	def, err := e.entity(op, entityType)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(ids))
	keys := make([]Item, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			return nil, validationError(op, "record id must be a non-empty string")
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		key, err := BuildKey(map[string]any{AttributeID: id})
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	for i := 0; i < len(keys); i += MaxBatchGetSize {
		end := min(i+MaxBatchGetSize, len(keys))

		request := map[string]types.KeysAndAttributes{
			def.TableName: {Keys: keys[i:end]},
		}
		for len(request) > 0 {
			out, err := e.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
			if err != nil {
				return nil, migrationRequired(op, classify(op, err))
			}

			for _, item := range out.Responses[def.TableName] {
				records = append(records, e.codec.DecodeItem(item))
			}

			request = nil
			if pending, ok := out.UnprocessedKeys[def.TableName]; ok && len(pending.Keys) > 0 {
				e.log.Debug().Str("table", def.TableName).Int("keys", len(pending.Keys)).Msg("retrying unprocessed keys")
				request = map[string]types.KeysAndAttributes{def.TableName: pending}

				timer := time.NewTimer(e.config.ThroughputRetryDelay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return nil, ctx.Err()
				case <-timer.C:
				}
			}
		}
	}

	return records, nil
}

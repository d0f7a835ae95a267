package dynamoengine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/gob"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func init() {
	// Register DynamoDB types with gob
	gob.Register(map[string]types.AttributeValue{})
	gob.Register([]types.AttributeValue{})
	gob.Register(&types.AttributeValueMemberS{})
	gob.Register(&types.AttributeValueMemberN{})
	gob.Register(&types.AttributeValueMemberB{})
	gob.Register(&types.AttributeValueMemberSS{})
	gob.Register(&types.AttributeValueMemberNS{})
	gob.Register(&types.AttributeValueMemberBS{})
	gob.Register(&types.AttributeValueMemberM{})
	gob.Register(&types.AttributeValueMemberL{})
	gob.Register(&types.AttributeValueMemberNULL{})
	gob.Register(&types.AttributeValueMemberBOOL{})
}

// Paginator converts last evaluated keys into string cursors for clients, and client
// cursors back into start keys to continue paging.
type Paginator interface {
	// PageCursor generates a string token from the provided start key. Implementors
	// should return an empty token if the start key is nil or empty.
	PageCursor(ctx context.Context, lastkey Item) (string, error)
	// StartKey generates a dynamodb start key from the provided cursor. Implementors
	// should return a nil item if the cursor is an empty string.
	StartKey(ctx context.Context, cursor string) (Item, error)
}

// TokenPaginator implements Paginator without storage: the cursor is the gob encoded
// key in URL safe base64. Cursors are opaque but not encrypted.
type TokenPaginator struct{}

// PageCursor implements Paginator.
func (TokenPaginator) PageCursor(ctx context.Context, lastkey Item) (string, error) {
	if len(lastkey) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(lastkey); err != nil {
		return "", fmt.Errorf("failed to encode last key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// StartKey implements Paginator. A malformed cursor is a validation error.
func (TokenPaginator) StartKey(ctx context.Context, cursor string) (Item, error) {
	if cursor == "" {
		return nil, nil
	}

	data, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: "start key", Message: "malformed cursor", Err: err}
	}

	var key Item
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&key); err != nil {
		return nil, &Error{Kind: KindValidation, Op: "start key", Message: "malformed cursor", Err: err}
	}
	return key, nil
}

// FetchCursor is FetchPage for clients holding string cursors. It returns the page and
// the cursor of the next page, which is empty on the final page.
func (q Query) FetchCursor(ctx context.Context, p Paginator, cursor string) (*Page, string, error) {
	startKey, err := p.StartKey(ctx, cursor)
	if err != nil {
		return nil, "", err
	}

	page, lastKey, err := q.fetch(ctx, startKey)
	if err != nil {
		return nil, "", err
	}

	next, err := p.PageCursor(ctx, lastKey)
	if err != nil {
		return nil, "", err
	}
	return page, next, nil
}

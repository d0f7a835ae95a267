package dynamoengine

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

// Kind classifies an Error. Callers switch on the kind rather than on concrete types.
type Kind int

const (
	KindOperational Kind = iota
	KindNotFound
	KindConflict
	KindThroughputExceeded
	KindNonExistentTable
	KindNonExistentIndex
	KindTableExists
	KindTableNotActive
	KindSchema
	KindValidation
	KindType
	KindStore
)

var kindNames = map[Kind]string{
	KindOperational:        "operational error",
	KindNotFound:           "not found",
	KindConflict:           "conflict",
	KindThroughputExceeded: "throughput exceeded",
	KindNonExistentTable:   "non-existent table",
	KindNonExistentIndex:   "non-existent index",
	KindTableExists:        "table exists",
	KindTableNotActive:     "table not active",
	KindSchema:             "schema error",
	KindValidation:         "validation error",
	KindType:               "type error",
	KindStore:              "store error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown error"
}

// Error is the single error type returned by the engine. Op names the operation that
// failed, Message is a human readable description and Err, when set, is the underlying
// fault reported by the store.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Sentinel errors for use with errors.Is. Each matches any *Error of the same Kind.
// ErrOperational additionally matches the kinds a caller is expected to recover from:
// not found, conflict and throughput exceeded.
var (
	ErrOperational        = &Error{Kind: KindOperational}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrRecordExists       = ErrConflict
	ErrThroughputExceeded = &Error{Kind: KindThroughputExceeded}
	ErrNonExistentTable   = &Error{Kind: KindNonExistentTable}
	ErrNonExistentIndex   = &Error{Kind: KindNonExistentIndex}
	ErrTableExists        = &Error{Kind: KindTableExists}
	ErrTableNotActive     = &Error{Kind: KindTableNotActive}
	ErrSchema             = &Error{Kind: KindSchema}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrType               = &Error{Kind: KindType}
	ErrStore              = &Error{Kind: KindStore}
)

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Message != "" || t.Err != nil {
		return false
	}
	if t.Kind == KindOperational {
		switch e.Kind {
		case KindOperational, KindNotFound, KindConflict, KindThroughputExceeded:
			return true
		}
		return false
	}
	return e.Kind == t.Kind
}

// KindOf returns the kind of the outermost *Error in err's chain, or KindStore when err
// carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}

func newError(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func validationError(op, message string) *Error {
	return newError(KindValidation, op, message)
}

func schemaError(message string) *Error {
	return newError(KindSchema, "compile", message)
}

func typeError(message string) *Error {
	return newError(KindType, "encode", message)
}

// classify converts a fault returned by the DynamoDB client into an *Error. Only the
// fault code and message are inspected.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return &Error{Kind: KindStore, Op: op, Message: "request failed", Err: err}
	}

	kind := KindStore
	message := apiErr.ErrorMessage()

	switch code := apiErr.ErrorCode(); code {
	case "ResourceNotFoundException":
		kind = KindNonExistentTable
	case "ResourceInUseException":
		kind = KindTableExists
	case "ConditionalCheckFailedException":
		kind = KindConflict
	case "ProvisionedThroughputExceededException", "ThrottlingException", "RequestLimitExceeded":
		kind = KindThroughputExceeded
	case "ValidationException":
		if strings.Contains(message, "specified index") {
			kind = KindNonExistentIndex
		}
	}

	if message == "" {
		message = kind.String()
	}

	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// migrationRequired rewrites missing table and index faults into an operational error
// pointing at MigrateUp. Other errors are returned as is.
func migrationRequired(op string, err error) error {
	if errors.Is(err, ErrNonExistentTable) || errors.Is(err, ErrNonExistentIndex) {
		return &Error{
			Kind:    KindOperational,
			Op:      op,
			Message: "table or index does not exist; migration probably required",
			Err:     err,
		}
	}
	return err
}

package dynamock

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// Item is a DynamoDB item in wire format.
type Item = map[string]types.AttributeValue

// Memory is an in-memory DynamoDB implementation for unit tests. It supports the table
// lifecycle, conditional puts on attribute_exists and attribute_not_exists, batch gets
// and key condition queries on tables and global secondary indexes. Faults are reported
// with the same error types the AWS SDK returns.
//
// Key conditions must have the form
//
//	#hash = :v [AND #range <op> :v | #range BETWEEN :a AND :b | begins_with(#range, :v)]
type Memory struct {
	// ActivationPolls is the number of DescribeTable calls during which a newly created
	// table or index reports a transitional status before turning ACTIVE.
	ActivationPolls int
	// BatchGetLimit caps the keys processed per table by one BatchGetItem call. The rest
	// are returned as unprocessed keys. Zero processes every key.
	BatchGetLimit int

	mu     sync.Mutex
	tables map[string]*memTable
	calls  map[string]int
	faults map[string][]error
}

type memTable struct {
	desc    types.TableDescription
	pending int
	items   map[string]Item
}

// Ensure Memory implements DynamoDBAPI
var _ DynamoDBAPI = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tables: make(map[string]*memTable),
		calls:  make(map[string]int),
		faults: make(map[string][]error),
	}
}

// Fail queues errs to be returned, in order, by the next calls of the named operation,
// for example "PutItem".
func (m *Memory) Fail(operation string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[operation] = append(m.faults[operation], errs...)
}

// Calls returns how many times the named operation was called. The pseudo operation
// "CreateIndex" counts indexes added through UpdateTable.
func (m *Memory) Calls(operation string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[operation]
}

// TableNames returns the names of all tables, sorted.
func (m *Memory) TableNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.tables))
	for name := range m.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns a copy of the table description without advancing its status.
func (m *Memory) Describe(tableName string) (*types.TableDescription, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[tableName]
	if !ok {
		return nil, false
	}
	return cloneDescription(t.desc), true
}

// Items returns copies of every item stored in the table.
func (m *Memory) Items(tableName string) []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[tableName]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	items := make([]Item, 0, len(keys))
	for _, k := range keys {
		items = append(items, cloneItem(t.items[k]))
	}
	return items
}

// enter records a call and returns the next queued fault, if any. m.mu must be held.
func (m *Memory) enter(operation string) error {
	m.calls[operation]++
	if queued := m.faults[operation]; len(queued) > 0 {
		m.faults[operation] = queued[1:]
		return queued[0]
	}
	return nil
}

func (m *Memory) table(name *string) (*memTable, error) {
	t, ok := m.tables[aws.ToString(name)]
	if !ok {
		return nil, &types.ResourceNotFoundException{
			Message: aws.String("Requested resource not found: Table: " + aws.ToString(name) + " not found"),
		}
	}
	return t, nil
}

func (m *Memory) initialStatus() (types.TableStatus, types.IndexStatus, int) {
	if m.ActivationPolls > 0 {
		return types.TableStatusCreating, types.IndexStatusCreating, m.ActivationPolls
	}
	return types.TableStatusActive, types.IndexStatusActive, 0
}

// CreateTable creates a table in the store.
func (m *Memory) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateTable"); err != nil {
		return nil, err
	}

	name := aws.ToString(params.TableName)
	if _, ok := m.tables[name]; ok {
		return nil, &types.ResourceInUseException{Message: aws.String("Table already exists: " + name)}
	}

	defined := make(map[string]bool, len(params.AttributeDefinitions))
	for _, def := range params.AttributeDefinitions {
		defined[aws.ToString(def.AttributeName)] = true
	}
	check := func(ks []types.KeySchemaElement) error {
		for _, k := range ks {
			if !defined[aws.ToString(k.AttributeName)] {
				return validationException("Some index key attributes are not defined in AttributeDefinitions")
			}
		}
		return nil
	}
	if err := check(params.KeySchema); err != nil {
		return nil, err
	}

	tableStatus, indexStatus, pending := m.initialStatus()
	desc := types.TableDescription{
		TableName:             aws.String(name),
		TableStatus:           tableStatus,
		KeySchema:             params.KeySchema,
		AttributeDefinitions:  params.AttributeDefinitions,
		ProvisionedThroughput: throughputDescription(params.ProvisionedThroughput),
		StreamSpecification:   params.StreamSpecification,
		CreationDateTime:      aws.Time(time.Now()),
		ItemCount:             aws.Int64(0),
	}
	for _, gsi := range params.GlobalSecondaryIndexes {
		if err := check(gsi.KeySchema); err != nil {
			return nil, err
		}
		desc.GlobalSecondaryIndexes = append(desc.GlobalSecondaryIndexes, types.GlobalSecondaryIndexDescription{
			IndexName:             gsi.IndexName,
			KeySchema:             gsi.KeySchema,
			Projection:            gsi.Projection,
			IndexStatus:           indexStatus,
			ProvisionedThroughput: throughputDescription(gsi.ProvisionedThroughput),
		})
	}

	t := &memTable{desc: desc, pending: pending, items: make(map[string]Item)}
	m.tables[name] = t
	return &dynamodb.CreateTableOutput{TableDescription: cloneDescription(t.desc)}, nil
}

// UpdateTable adds global secondary indexes to a table. Other updates are ignored.
func (m *Memory) UpdateTable(ctx context.Context, params *dynamodb.UpdateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTableOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateTable"); err != nil {
		return nil, err
	}

	t, err := m.table(params.TableName)
	if err != nil {
		return nil, err
	}
	if t.desc.TableStatus != types.TableStatusActive {
		return nil, &types.ResourceInUseException{Message: aws.String("Table is being created or updated: " + aws.ToString(params.TableName))}
	}

	for _, def := range params.AttributeDefinitions {
		found := false
		for _, existing := range t.desc.AttributeDefinitions {
			if aws.ToString(existing.AttributeName) == aws.ToString(def.AttributeName) {
				found = true
			}
		}
		if !found {
			t.desc.AttributeDefinitions = append(t.desc.AttributeDefinitions, def)
		}
	}

	_, indexStatus, pending := m.initialStatus()
	for _, update := range params.GlobalSecondaryIndexUpdates {
		create := update.Create
		if create == nil {
			continue
		}
		if _, ok := findIndex(t.desc, aws.ToString(create.IndexName)); ok {
			return nil, validationException("Attempting to create an index which already exists")
		}
		for _, k := range create.KeySchema {
			if !hasAttributeDefinition(t.desc, aws.ToString(k.AttributeName)) {
				return nil, validationException("Global Secondary Index key attributes must be defined in AttributeDefinitions")
			}
		}

		m.calls["CreateIndex"]++
		t.desc.GlobalSecondaryIndexes = append(t.desc.GlobalSecondaryIndexes, types.GlobalSecondaryIndexDescription{
			IndexName:             create.IndexName,
			KeySchema:             create.KeySchema,
			Projection:            create.Projection,
			IndexStatus:           indexStatus,
			ProvisionedThroughput: throughputDescription(create.ProvisionedThroughput),
		})
	}

	if pending > 0 {
		t.desc.TableStatus = types.TableStatusUpdating
		t.pending = pending
	}
	return &dynamodb.UpdateTableOutput{TableDescription: cloneDescription(t.desc)}, nil
}

// DeleteTable removes a table and its items.
func (m *Memory) DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteTable"); err != nil {
		return nil, err
	}

	t, err := m.table(params.TableName)
	if err != nil {
		return nil, err
	}
	delete(m.tables, aws.ToString(params.TableName))

	desc := cloneDescription(t.desc)
	desc.TableStatus = types.TableStatusDeleting
	return &dynamodb.DeleteTableOutput{TableDescription: desc}, nil
}

// DescribeTable describes a table. Each call moves a transitional table one step closer
// to ACTIVE.
func (m *Memory) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DescribeTable"); err != nil {
		return nil, err
	}

	t, err := m.table(params.TableName)
	if err != nil {
		return nil, err
	}

	desc := cloneDescription(t.desc)
	if t.pending > 0 {
		t.pending--
		if t.pending == 0 {
			t.desc.TableStatus = types.TableStatusActive
			for i := range t.desc.GlobalSecondaryIndexes {
				t.desc.GlobalSecondaryIndexes[i].IndexStatus = types.IndexStatusActive
			}
		}
	}
	desc.ItemCount = aws.Int64(int64(len(t.items)))
	return &dynamodb.DescribeTableOutput{Table: desc}, nil
}

// ListTables lists every table name.
func (m *Memory) ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
	m.mu.Lock()
	if err := m.enter("ListTables"); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.mu.Unlock()
	return &dynamodb.ListTablesOutput{TableNames: m.TableNames()}, nil
}

// PutItem stores an item, evaluating attribute_exists and attribute_not_exists conditions.
func (m *Memory) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("PutItem"); err != nil {
		return nil, err
	}

	t, err := m.table(params.TableName)
	if err != nil {
		return nil, err
	}
	key, err := primaryKey(t.desc, params.Item)
	if err != nil {
		return nil, err
	}

	if params.ConditionExpression != nil {
		ok, err := evalCondition(aws.ToString(params.ConditionExpression), params.ExpressionAttributeNames, t.items[key])
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		}
	}

	t.items[key] = cloneItem(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

// GetItem retrieves an item by primary key.
func (m *Memory) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetItem"); err != nil {
		return nil, err
	}

	t, err := m.table(params.TableName)
	if err != nil {
		return nil, err
	}
	key, err := primaryKey(t.desc, params.Key)
	if err != nil {
		return nil, err
	}

	item, ok := t.items[key]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: cloneItem(item)}, nil
}

// DeleteItem removes an item by primary key.
func (m *Memory) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteItem"); err != nil {
		return nil, err
	}

	t, err := m.table(params.TableName)
	if err != nil {
		return nil, err
	}
	key, err := primaryKey(t.desc, params.Key)
	if err != nil {
		return nil, err
	}

	delete(t.items, key)
	return &dynamodb.DeleteItemOutput{}, nil
}

// BatchGetItem retrieves items from one or more tables. At most 100 keys are accepted.
func (m *Memory) BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("BatchGetItem"); err != nil {
		return nil, err
	}

	total := 0
	for _, req := range params.RequestItems {
		total += len(req.Keys)
	}
	if total > 100 {
		return nil, validationException("Too many items requested for the BatchGetItem call")
	}

	out := &dynamodb.BatchGetItemOutput{
		Responses:       make(map[string][]map[string]types.AttributeValue),
		UnprocessedKeys: make(map[string]types.KeysAndAttributes),
	}
	for name, req := range params.RequestItems {
		t, err := m.table(aws.String(name))
		if err != nil {
			return nil, err
		}

		keys := req.Keys
		if m.BatchGetLimit > 0 && len(keys) > m.BatchGetLimit {
			out.UnprocessedKeys[name] = types.KeysAndAttributes{Keys: keys[m.BatchGetLimit:]}
			keys = keys[:m.BatchGetLimit]
		}

		out.Responses[name] = []map[string]types.AttributeValue{}
		for _, k := range keys {
			key, err := primaryKey(t.desc, k)
			if err != nil {
				return nil, err
			}
			if item, ok := t.items[key]; ok {
				out.Responses[name] = append(out.Responses[name], cloneItem(item))
			}
		}
	}
	return out, nil
}

var (
	hashConditionRe  = regexp.MustCompile(`^\s*(#\w+)\s*=\s*(:\w+)\s*(?:AND\s+(.+?))?\s*$`)
	compareRe        = regexp.MustCompile(`^(#\w+)\s*(<=|>=|=|<|>)\s*(:\w+)$`)
	betweenRe        = regexp.MustCompile(`^(#\w+)\s+BETWEEN\s+(:\w+)\s+AND\s+(:\w+)$`)
	beginsWithRe     = regexp.MustCompile(`^begins_with\s*\(\s*(#\w+)\s*,\s*(:\w+)\s*\)$`)
	existsConditonRe = regexp.MustCompile(`attribute_(not_)?exists\s*\(\s*(#?[\w.]+)\s*\)`)
)

// keyCondition is a parsed key condition expression.
type keyCondition struct {
	hashName  string
	hashValue types.AttributeValue
	rangeName string
	op        string
	values    []types.AttributeValue
}

func parseKeyCondition(params *dynamodb.QueryInput) (keyCondition, error) {
	var kc keyCondition

	name := func(placeholder string) (string, error) {
		n, ok := params.ExpressionAttributeNames[placeholder]
		if !ok {
			return "", validationException("An expression attribute name used in the document path is not defined; attribute name: " + placeholder)
		}
		return n, nil
	}
	value := func(placeholder string) (types.AttributeValue, error) {
		v, ok := params.ExpressionAttributeValues[placeholder]
		if !ok {
			return nil, validationException("An expression attribute value used in expression is not defined; attribute value: " + placeholder)
		}
		return v, nil
	}

	m := hashConditionRe.FindStringSubmatch(aws.ToString(params.KeyConditionExpression))
	if m == nil {
		return kc, validationException("Unsupported key condition expression: " + aws.ToString(params.KeyConditionExpression))
	}

	var err error
	if kc.hashName, err = name(m[1]); err != nil {
		return kc, err
	}
	if kc.hashValue, err = value(m[2]); err != nil {
		return kc, err
	}

	rest := strings.TrimSpace(m[3])
	if rest == "" {
		return kc, nil
	}

	var rangePlaceholder string
	var valuePlaceholders []string
	switch {
	case compareRe.MatchString(rest):
		sm := compareRe.FindStringSubmatch(rest)
		rangePlaceholder, kc.op, valuePlaceholders = sm[1], sm[2], sm[3:4]
	case betweenRe.MatchString(rest):
		sm := betweenRe.FindStringSubmatch(rest)
		rangePlaceholder, kc.op, valuePlaceholders = sm[1], "BETWEEN", sm[2:4]
	case beginsWithRe.MatchString(rest):
		sm := beginsWithRe.FindStringSubmatch(rest)
		rangePlaceholder, kc.op, valuePlaceholders = sm[1], "begins_with", sm[2:3]
	default:
		return kc, validationException("Unsupported range key condition: " + rest)
	}

	if kc.rangeName, err = name(rangePlaceholder); err != nil {
		return kc, err
	}
	for _, p := range valuePlaceholders {
		v, err := value(p)
		if err != nil {
			return kc, err
		}
		kc.values = append(kc.values, v)
	}
	return kc, nil
}

func (kc keyCondition) matchRange(av types.AttributeValue) bool {
	switch kc.op {
	case "":
		return true
	case "begins_with":
		switch v := av.(type) {
		case *types.AttributeValueMemberS:
			p, ok := kc.values[0].(*types.AttributeValueMemberS)
			return ok && strings.HasPrefix(v.Value, p.Value)
		case *types.AttributeValueMemberB:
			p, ok := kc.values[0].(*types.AttributeValueMemberB)
			return ok && bytes.HasPrefix(v.Value, p.Value)
		}
		return false
	case "BETWEEN":
		lo, ok1 := compareValues(av, kc.values[0])
		hi, ok2 := compareValues(av, kc.values[1])
		return ok1 && ok2 && lo >= 0 && hi <= 0
	}

	c, ok := compareValues(av, kc.values[0])
	if !ok {
		return false
	}
	switch kc.op {
	case "=":
		return c == 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return false
}

// Query evaluates a key condition against the table or one of its indexes. Results are
// ordered by range key, then by primary key. A LastEvaluatedKey is returned whenever
// the page is full, so the final page of an exactly divisible result set is empty.
func (m *Memory) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("Query"); err != nil {
		return nil, err
	}

	t, err := m.table(params.TableName)
	if err != nil {
		return nil, err
	}

	keySchema := t.desc.KeySchema
	if params.IndexName != nil {
		gsi, ok := findIndex(t.desc, aws.ToString(params.IndexName))
		if !ok {
			return nil, validationException("The table does not have the specified index: " + aws.ToString(params.IndexName))
		}
		keySchema = gsi.KeySchema
	}
	hashName, rangeName := keyNames(keySchema)
	tableHash, tableRange := keyNames(t.desc.KeySchema)

	kc, err := parseKeyCondition(params)
	if err != nil {
		return nil, err
	}
	if kc.hashName != hashName {
		return nil, validationException("Query condition missed key schema element: " + hashName)
	}
	if kc.op != "" && kc.rangeName != rangeName {
		return nil, validationException("Query key condition not supported")
	}

	type entry struct {
		pk   string
		item Item
	}
	var matches []entry
	for pk, item := range t.items {
		hv, ok := item[hashName]
		if !ok {
			continue
		}
		if c, ok := compareValues(hv, kc.hashValue); !ok || c != 0 {
			continue
		}
		if rangeName != "" {
			rv, ok := item[rangeName]
			if !ok || !kc.matchRange(rv) {
				continue
			}
		}
		matches = append(matches, entry{pk: pk, item: item})
	}

	order := func(a Item, apk string, b Item, bpk string) int {
		if rangeName != "" {
			if c, ok := compareValues(a[rangeName], b[rangeName]); ok && c != 0 {
				return c
			}
		}
		return strings.Compare(apk, bpk)
	}
	forward := params.ScanIndexForward == nil || *params.ScanIndexForward
	sort.Slice(matches, func(i, j int) bool {
		c := order(matches[i].item, matches[i].pk, matches[j].item, matches[j].pk)
		if forward {
			return c < 0
		}
		return c > 0
	})

	if len(params.ExclusiveStartKey) > 0 {
		startPK, err := primaryKey(t.desc, params.ExclusiveStartKey)
		if err != nil {
			return nil, err
		}
		var rest []entry
		for _, e := range matches {
			c := order(e.item, e.pk, params.ExclusiveStartKey, startPK)
			if (forward && c > 0) || (!forward && c < 0) {
				rest = append(rest, e)
			}
		}
		matches = rest
	}

	out := &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{}}
	if params.Limit != nil && int(*params.Limit) > 0 && len(matches) >= int(*params.Limit) {
		matches = matches[:*params.Limit]
		last := matches[len(matches)-1].item
		out.LastEvaluatedKey = make(Item)
		for _, name := range []string{tableHash, tableRange, hashName, rangeName} {
			if name != "" {
				out.LastEvaluatedKey[name] = last[name]
			}
		}
	}

	for _, e := range matches {
		out.Items = append(out.Items, cloneItem(e.item))
	}
	out.Count = int32(len(out.Items))
	out.ScannedCount = out.Count
	return out, nil
}

func evalCondition(expr string, names map[string]string, existing Item) (bool, error) {
	matches := existsConditonRe.FindAllStringSubmatch(expr, -1)
	if len(matches) == 0 {
		return false, validationException("Unsupported condition expression: " + expr)
	}
	for _, m := range matches {
		attr := m[2]
		if strings.HasPrefix(attr, "#") {
			n, ok := names[attr]
			if !ok {
				return false, validationException("An expression attribute name used in the document path is not defined; attribute name: " + attr)
			}
			attr = n
		}
		_, exists := existing[attr]
		if m[1] != "" && exists {
			return false, nil
		}
		if m[1] == "" && !exists {
			return false, nil
		}
	}
	return true, nil
}

// primaryKey renders the table key of item as a string.
func primaryKey(desc types.TableDescription, item Item) (string, error) {
	hash, rangeKey := keyNames(desc.KeySchema)
	var b strings.Builder
	for _, name := range []string{hash, rangeKey} {
		if name == "" {
			continue
		}
		av, ok := item[name]
		if !ok {
			return "", validationException("One of the required keys was not given a value: " + name)
		}
		s, ok := scalarString(av)
		if !ok {
			return "", validationException("The provided key element does not match the schema: " + name)
		}
		b.WriteString(s)
		b.WriteString("|")
	}
	return b.String(), nil
}

func scalarString(av types.AttributeValue) (string, bool) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return "S:" + v.Value, true
	case *types.AttributeValueMemberN:
		return "N:" + v.Value, true
	case *types.AttributeValueMemberB:
		return "B:" + string(v.Value), true
	case *types.AttributeValueMemberBOOL:
		return "BOOL:" + strconv.FormatBool(v.Value), true
	}
	return "", false
}

// compareValues orders two scalar attribute values of the same type.
func compareValues(a, b types.AttributeValue) (int, bool) {
	switch x := a.(type) {
	case *types.AttributeValueMemberS:
		y, ok := b.(*types.AttributeValueMemberS)
		if !ok {
			return 0, false
		}
		return strings.Compare(x.Value, y.Value), true
	case *types.AttributeValueMemberN:
		y, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return 0, false
		}
		fx, err1 := strconv.ParseFloat(x.Value, 64)
		fy, err2 := strconv.ParseFloat(y.Value, 64)
		if err1 != nil || err2 != nil {
			return 0, false
		}
		switch {
		case fx < fy:
			return -1, true
		case fx > fy:
			return 1, true
		}
		return 0, true
	case *types.AttributeValueMemberB:
		y, ok := b.(*types.AttributeValueMemberB)
		if !ok {
			return 0, false
		}
		return bytes.Compare(x.Value, y.Value), true
	case *types.AttributeValueMemberBOOL:
		y, ok := b.(*types.AttributeValueMemberBOOL)
		if !ok || x.Value != y.Value {
			return 0, false
		}
		return 0, true
	}
	return 0, false
}

func keyNames(ks []types.KeySchemaElement) (hash, rangeKey string) {
	for _, k := range ks {
		switch k.KeyType {
		case types.KeyTypeHash:
			hash = aws.ToString(k.AttributeName)
		case types.KeyTypeRange:
			rangeKey = aws.ToString(k.AttributeName)
		}
	}
	return hash, rangeKey
}

func findIndex(desc types.TableDescription, name string) (types.GlobalSecondaryIndexDescription, bool) {
	for _, gsi := range desc.GlobalSecondaryIndexes {
		if aws.ToString(gsi.IndexName) == name {
			return gsi, true
		}
	}
	return types.GlobalSecondaryIndexDescription{}, false
}

func hasAttributeDefinition(desc types.TableDescription, name string) bool {
	for _, def := range desc.AttributeDefinitions {
		if aws.ToString(def.AttributeName) == name {
			return true
		}
	}
	return false
}

func validationException(message string) error {
	return &smithy.GenericAPIError{Code: "ValidationException", Message: message, Fault: smithy.FaultClient}
}

func throughputDescription(pt *types.ProvisionedThroughput) *types.ProvisionedThroughputDescription {
	if pt == nil {
		return nil
	}
	return &types.ProvisionedThroughputDescription{
		ReadCapacityUnits:  pt.ReadCapacityUnits,
		WriteCapacityUnits: pt.WriteCapacityUnits,
	}
}

func cloneDescription(desc types.TableDescription) *types.TableDescription {
	c := desc
	c.KeySchema = append([]types.KeySchemaElement(nil), desc.KeySchema...)
	c.AttributeDefinitions = append([]types.AttributeDefinition(nil), desc.AttributeDefinitions...)
	c.GlobalSecondaryIndexes = append([]types.GlobalSecondaryIndexDescription(nil), desc.GlobalSecondaryIndexes...)
	return &c
}

func cloneItem(item Item) Item {
	c := make(Item, len(item))
	for k, v := range item {
		c[k] = v
	}
	return c
}

// String implements fmt.Stringer for debugging test failures.
func (m *Memory) String() string {
	return fmt.Sprintf("dynamock.Memory%v", m.TableNames())
}

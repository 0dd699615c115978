package datastore

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo is an in-memory stand-in for the DynamoDB client. It interprets
// the exact expression shapes the store emits: equality clauses and
// begins_with, joined by AND.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue

	// failWith, when set, fails every call.
	failWith error

	// unprocessedOnce makes the first BatchGetItem call return half of the
	// requested keys as unprocessed.
	unprocessedOnce bool

	queryCalls  int
	deleteCalls int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func itemAddr(key map[string]types.AttributeValue) string {
	pk, _ := key["pk"].(*types.AttributeValueMemberS)
	sk, _ := key["sk"].(*types.AttributeValueMemberS)
	if pk == nil || sk == nil {
		return ""
	}
	return pk.Value + "\x00" + sk.Value
}

func (f *fakeDynamo) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}

	item, ok := f.items[itemAddr(params.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}

	addr := itemAddr(params.Item)
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(sk)" {
		if _, exists := f.items[addr]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	f.items[addr] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.failWith != nil {
		return nil, f.failWith
	}

	delete(f.items, itemAddr(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) BatchGetItem(_ context.Context, params *dynamodb.BatchGetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}

	out := &dynamodb.BatchGetItemOutput{
		Responses:       map[string][]map[string]types.AttributeValue{},
		UnprocessedKeys: map[string]types.KeysAndAttributes{},
	}
	for table, req := range params.RequestItems {
		keys := req.Keys
		if f.unprocessedOnce && len(keys) > 1 {
			f.unprocessedOnce = false
			half := len(keys) / 2
			out.UnprocessedKeys[table] = types.KeysAndAttributes{Keys: keys[half:]}
			keys = keys[:half]
		}
		for _, key := range keys {
			if item, ok := f.items[itemAddr(key)]; ok {
				out.Responses[table] = append(out.Responses[table], item)
			}
		}
	}
	return out, nil
}

func (f *fakeDynamo) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	if f.failWith != nil {
		return nil, f.failWith
	}

	var matched []map[string]types.AttributeValue
	for _, item := range f.items {
		if !matchExpr(item, *params.KeyConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues) {
			continue
		}
		if params.FilterExpression != nil &&
			!matchExpr(item, *params.FilterExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues) {
			continue
		}
		matched = append(matched, item)
	}

	// The kind index sorts by created_at, the table by sort key.
	orderAttr := "sk"
	if params.IndexName != nil {
		orderAttr = "created_at"
	}
	sort.Slice(matched, func(i, j int) bool {
		return stringAttr(matched[i], orderAttr) < stringAttr(matched[j], orderAttr)
	})

	if params.Limit != nil && int(*params.Limit) < len(matched) {
		matched = matched[:*params.Limit]
	}
	return &dynamodb.QueryOutput{Items: matched}, nil
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func matchExpr(item map[string]types.AttributeValue, expr string, names map[string]string, values map[string]types.AttributeValue) bool {
	for _, clause := range strings.Split(expr, " AND ") {
		if !matchClause(item, strings.TrimSpace(clause), names, values) {
			return false
		}
	}
	return true
}

func matchClause(item map[string]types.AttributeValue, clause string, names map[string]string, values map[string]types.AttributeValue) bool {
	if inner, ok := strings.CutPrefix(clause, "begins_with("); ok {
		inner = strings.TrimSuffix(inner, ")")
		attrName, valueName, _ := strings.Cut(inner, ",")
		prefix, ok := values[strings.TrimSpace(valueName)].(*types.AttributeValueMemberS)
		if !ok {
			return false
		}
		return strings.HasPrefix(stringAttr(item, resolveName(strings.TrimSpace(attrName), names)), prefix.Value)
	}

	attrName, valueName, ok := strings.Cut(clause, " = ")
	if !ok {
		return false
	}
	got, ok := item[resolveName(strings.TrimSpace(attrName), names)]
	if !ok {
		return false
	}
	return reflect.DeepEqual(got, values[strings.TrimSpace(valueName)])
}

func resolveName(name string, names map[string]string) string {
	if strings.HasPrefix(name, "#") {
		return names[name]
	}
	return name
}

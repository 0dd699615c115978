package datastore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/BigWednesdayIO/suppliers-api-sub000/internal/keypath"
)

// Item attribute names managed by the store. Caller attributes with these
// names are dropped before persistence.
const (
	attrPK      = "pk"
	attrSK      = "sk"
	attrKind    = "kind"
	attrID      = "id"
	attrParent  = "parent"
	attrCreated = "created_at"
	attrUpdated = "updated_at"
)

var reservedAttrs = map[string]struct{}{
	attrPK:      {},
	attrSK:      {},
	attrKind:    {},
	attrID:      {},
	attrParent:  {},
	attrCreated: {},
	attrUpdated: {},
}

// timeFormat is fixed-width so encoded instants sort lexicographically,
// which the kind index relies on for its created-ascending order.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// batchGetLimit is the DynamoDB BatchGetItem request cap.
const batchGetLimit = 100

// DynamoAPI is the subset of the DynamoDB client the Store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Store provides path-addressed entity operations over DynamoDB.
type Store struct {
	client DynamoAPI
	config Config
	now    func() time.Time
}

// New creates a new Store instance.
func New(client DynamoAPI, config Config) *Store {
	config.validate()
	return &Store{
		client: client,
		config: config,
		now:    time.Now,
	}
}

// Create persists a new entity at the given key. An incomplete key gets a
// generated leaf identifier. Creation and update instants are both set to now.
func (s *Store) Create(ctx context.Context, key Key, attrs map[string]any) (Entity, error) {
	if len(key) == 0 {
		return Entity{}, fmt.Errorf("datastore: create requires a key")
	}
	if !key.Complete() {
		key = key.WithID(uuid.NewString())
	}

	now := s.now().UTC()
	e := Entity{Key: key, Attrs: sanitizeAttrs(attrs), Created: now, Updated: now}

	item, err := marshalEntity(e)
	if err != nil {
		return Entity{}, &PersistenceError{Op: "create", Err: err}
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.config.Table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(sk)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return Entity{}, ErrAlreadyExists
		}
		return Entity{}, &PersistenceError{Op: "create", Err: err}
	}

	return e, nil
}

// Get retrieves the entity at the given key, returning ErrNotFound if absent.
func (s *Store) Get(ctx context.Context, key Key) (Entity, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.config.Table),
		Key:       itemKey(key),
	})
	if err != nil {
		return Entity{}, &PersistenceError{Op: "get", Err: err}
	}
	if out.Item == nil {
		return Entity{}, ErrNotFound
	}

	e, err := unmarshalItem(out.Item)
	if err != nil {
		return Entity{}, &PersistenceError{Op: "get", Err: err}
	}
	return e, nil
}

// GetMulti retrieves entities for the given keys in one batched call per
// chunk. Keys with no entity are silently omitted; result order is unrelated
// to key order.
func (s *Store) GetMulti(ctx context.Context, keys []Key) ([]Entity, error) {
	var entities []Entity

	for start := 0; start < len(keys); start += batchGetLimit {
		end := min(start+batchGetLimit, len(keys))
		request := make([]map[string]types.AttributeValue, 0, end-start)
		for _, k := range keys[start:end] {
			request = append(request, itemKey(k))
		}

		for len(request) > 0 {
			out, err := s.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
				RequestItems: map[string]types.KeysAndAttributes{
					s.config.Table: {Keys: request},
				},
			})
			if err != nil {
				return nil, &PersistenceError{Op: "get_multi", Err: err}
			}

			for _, item := range out.Responses[s.config.Table] {
				e, err := unmarshalItem(item)
				if err != nil {
					return nil, &PersistenceError{Op: "get_multi", Err: err}
				}
				entities = append(entities, e)
			}

			request = nil
			if unprocessed, ok := out.UnprocessedKeys[s.config.Table]; ok {
				request = unprocessed.Keys
			}
		}
	}

	return entities, nil
}

// Upsert merges attributes onto the entity at the given key, or creates it
// at exactly that key when absent. The creation instant is preserved across
// updates; the update instant is set on every write. The returned flag
// reports whether an insert happened.
//
// The read-then-write is not atomic: two concurrent upserts to the same key
// may both observe it absent and both insert, last writer wins.
func (s *Store) Upsert(ctx context.Context, key Key, attrs map[string]any) (Entity, bool, error) {
	if !key.Complete() {
		return Entity{}, false, fmt.Errorf("datastore: upsert requires a complete key")
	}

	now := s.now().UTC()
	var e Entity
	var inserted bool

	existing, err := s.Get(ctx, key)
	switch {
	case err == nil:
		e = Entity{
			Key:     key,
			Attrs:   mergeAttrs(existing.Attrs, sanitizeAttrs(attrs)),
			Created: existing.Created,
			Updated: now,
		}
	case errors.Is(err, ErrNotFound):
		inserted = true
		e = Entity{Key: key, Attrs: sanitizeAttrs(attrs), Created: now, Updated: now}
	default:
		return Entity{}, false, err
	}

	item, err := marshalEntity(e)
	if err != nil {
		return Entity{}, false, &PersistenceError{Op: "upsert", Err: err}
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.config.Table),
		Item:      item,
	})
	if err != nil {
		return Entity{}, false, &PersistenceError{Op: "upsert", Err: err}
	}

	return e, inserted, nil
}

// Delete removes the entity at the given key. Deleting an absent entity
// succeeds silently; existence checks belong to the caller.
func (s *Store) Delete(ctx context.Context, key Key) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.config.Table),
		Key:       itemKey(key),
	})
	if err != nil {
		return &PersistenceError{Op: "delete", Err: err}
	}
	return nil
}

// Find returns entities matching the query, ordered ascending by creation
// instant.
func (s *Store) Find(ctx context.Context, q Query) ([]Entity, error) {
	items, err := s.queryItems(ctx, q, false)
	if err != nil {
		return nil, err
	}

	entities := make([]Entity, 0, len(items))
	for _, item := range items {
		e, err := unmarshalItem(item)
		if err != nil {
			return nil, &PersistenceError{Op: "find", Err: err}
		}
		entities = append(entities, e)
	}

	// Partition-scoped queries come back in path order; the kind index
	// already yields created order.
	if len(q.Ancestor) > 0 {
		sort.SliceStable(entities, func(i, j int) bool {
			return entities[i].Created.Before(entities[j].Created)
		})
	}

	return window(entities, q.Offset, q.Limit), nil
}

// FindKeys returns only the keys of entities matching the query. No ordering
// guarantee; intended for key harvesting by fan-out searches.
func (s *Store) FindKeys(ctx context.Context, q Query) ([]Key, error) {
	items, err := s.queryItems(ctx, q, true)
	if err != nil {
		return nil, err
	}

	keys := make([]Key, 0, len(items))
	for _, item := range items {
		sk, ok := item[attrSK].(*types.AttributeValueMemberS)
		if !ok {
			return nil, &PersistenceError{Op: "find_keys", Err: fmt.Errorf("item missing sort key")}
		}
		k, err := ParseKey(sk.Value)
		if err != nil {
			return nil, &PersistenceError{Op: "find_keys", Err: err}
		}
		keys = append(keys, k)
	}

	return window(keys, q.Offset, q.Limit), nil
}

// HasDescendants reports whether any entity exists strictly below the given
// key. Used by callers that must refuse to delete a parent with dependents.
// The check and a subsequent delete are separate round trips: a dependent can
// appear in between.
func (s *Store) HasDescendants(ctx context.Context, key Key) (bool, error) {
	if !key.Complete() {
		return false, fmt.Errorf("datastore: descendant check requires a complete key")
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.config.Table),
		KeyConditionExpression: aws.String("pk = :pk AND begins_with(sk, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: keypath.RootPK(key.pairs())},
			":prefix": &types.AttributeValueMemberS{Value: keypath.DescendantPrefix(key.String())},
		},
		ProjectionExpression: aws.String("sk"),
		Limit:                aws.Int32(1),
	})
	if err != nil {
		return false, &PersistenceError{Op: "has_descendants", Err: err}
	}
	return len(out.Items) > 0, nil
}

// queryItems executes a query and drains all pages.
func (s *Store) queryItems(ctx context.Context, q Query, keysOnly bool) ([]map[string]types.AttributeValue, error) {
	input, err := s.buildQueryInput(q, keysOnly)
	if err != nil {
		return nil, err
	}

	var items []map[string]types.AttributeValue
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, &PersistenceError{Op: "find", Err: err}
		}
		items = append(items, page.Items...)
	}

	return items, nil
}

// buildQueryInput translates a Query into a DynamoDB request.
func (s *Store) buildQueryInput(q Query, keysOnly bool) (*dynamodb.QueryInput, error) {
	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	var filterClauses []string

	input := &dynamodb.QueryInput{TableName: aws.String(s.config.Table)}

	switch {
	case len(q.Ancestor) > 0:
		if !q.Ancestor.Complete() {
			return nil, fmt.Errorf("datastore: ancestor key must be complete")
		}
		input.KeyConditionExpression = aws.String("pk = :pk AND begins_with(sk, :prefix)")
		values[":pk"] = &types.AttributeValueMemberS{Value: keypath.RootPK(q.Ancestor.pairs())}
		values[":prefix"] = &types.AttributeValueMemberS{Value: keypath.DescendantPrefix(q.Ancestor.String())}
		if q.Kind != "" {
			names["#kind"] = attrKind
			values[":kind"] = &types.AttributeValueMemberS{Value: q.Kind}
			filterClauses = append(filterClauses, "#kind = :kind")
		}
	case q.Kind != "":
		input.IndexName = aws.String(s.config.KindIndex)
		input.KeyConditionExpression = aws.String("#kind = :kind")
		names["#kind"] = attrKind
		values[":kind"] = &types.AttributeValueMemberS{Value: q.Kind}
		if q.Parent != (PathPair{}) {
			names["#parent"] = attrParent
			values[":parent"] = &types.AttributeValueMemberS{Value: keypath.EncodePair(q.Parent.Kind, q.Parent.ID)}
			filterClauses = append(filterClauses, "#parent = :parent")
		}
	default:
		return nil, fmt.Errorf("datastore: query requires a kind or an ancestor")
	}

	for i, f := range q.Filters {
		if f.Field == "" {
			return nil, fmt.Errorf("datastore: filter with empty field")
		}
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":f%d", i)
		av, err := attributevalue.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("datastore: marshal filter %s: %w", f.Field, err)
		}
		names[nameKey] = f.Field
		values[valueKey] = av
		filterClauses = append(filterClauses, nameKey+" = "+valueKey)
	}

	if len(filterClauses) > 0 {
		input.FilterExpression = aws.String(strings.Join(filterClauses, " AND "))
	}
	if keysOnly {
		input.ProjectionExpression = aws.String("sk")
	}
	if len(names) > 0 {
		input.ExpressionAttributeNames = names
	}
	input.ExpressionAttributeValues = values

	return input, nil
}

// itemKey returns the table key for an entity key.
func itemKey(key Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: keypath.RootPK(key.pairs())},
		attrSK: &types.AttributeValueMemberS{Value: key.String()},
	}
}

// marshalEntity converts an entity into its item representation.
func marshalEntity(e Entity) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(e.Attrs)
	if err != nil {
		return nil, fmt.Errorf("marshal attributes: %w", err)
	}

	item[attrPK] = &types.AttributeValueMemberS{Value: keypath.RootPK(e.Key.pairs())}
	item[attrSK] = &types.AttributeValueMemberS{Value: e.Key.String()}
	item[attrKind] = &types.AttributeValueMemberS{Value: e.Key.Kind()}
	item[attrID] = &types.AttributeValueMemberS{Value: e.Key.ID()}
	if parent := e.Key.Parent(); parent != nil {
		item[attrParent] = &types.AttributeValueMemberS{Value: keypath.EncodePair(parent.Kind(), parent.ID())}
	}
	item[attrCreated] = &types.AttributeValueMemberS{Value: e.Created.UTC().Format(timeFormat)}
	item[attrUpdated] = &types.AttributeValueMemberS{Value: e.Updated.UTC().Format(timeFormat)}

	return item, nil
}

// unmarshalItem converts an item back into an entity.
func unmarshalItem(item map[string]types.AttributeValue) (Entity, error) {
	sk, ok := item[attrSK].(*types.AttributeValueMemberS)
	if !ok {
		return Entity{}, fmt.Errorf("item missing sort key")
	}
	key, err := ParseKey(sk.Value)
	if err != nil {
		return Entity{}, err
	}

	e := Entity{Key: key}
	if v, ok := item[attrCreated].(*types.AttributeValueMemberS); ok {
		if e.Created, err = time.Parse(timeFormat, v.Value); err != nil {
			return Entity{}, fmt.Errorf("parse %s: %w", attrCreated, err)
		}
	}
	if v, ok := item[attrUpdated].(*types.AttributeValueMemberS); ok {
		if e.Updated, err = time.Parse(timeFormat, v.Value); err != nil {
			return Entity{}, fmt.Errorf("parse %s: %w", attrUpdated, err)
		}
	}

	raw := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		if _, reserved := reservedAttrs[k]; reserved {
			continue
		}
		raw[k] = v
	}
	attrs := make(map[string]any, len(raw))
	if err := attributevalue.UnmarshalMap(raw, &attrs); err != nil {
		return Entity{}, fmt.Errorf("unmarshal attributes: %w", err)
	}
	e.Attrs = attrs

	return e, nil
}

// sanitizeAttrs copies caller attributes, dropping store-managed names.
func sanitizeAttrs(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		if _, reserved := reservedAttrs[k]; reserved {
			continue
		}
		out[k] = v
	}
	return out
}

// window applies client-side offset and limit to a result slice.
func window[T any](in []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(in) {
			return nil
		}
		in = in[offset:]
	}
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

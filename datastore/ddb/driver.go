/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/objectstore"
	"github.com/suparena/objectstore/datastore"
	"github.com/suparena/objectstore/errors"
	"github.com/suparena/objectstore/registry"
	"github.com/suparena/objectstore/storagemodels"
)

// maxBatchKeys is the BatchGetItem request limit.
const maxBatchKeys = 100

// Driver stores one entity class in a DynamoDB table.
type Driver[E storagemodels.Identifiable] struct {
	api    API
	table  string
	class  string
	opts   options
	logger *slog.Logger
}

var _ datastore.Connector[storagemodels.Identifiable] = (*Driver[storagemodels.Identifiable])(nil)

// NewDriver creates a driver for class E on table. An empty class defaults to
// the registered class name of E.
func NewDriver[E storagemodels.Identifiable](api API, table, class string, opts ...Option) (*Driver[E], error) {
	if api == nil {
		return nil, errors.NewConfigurationError("client", "DynamoDB client is required", nil)
	}
	if table == "" {
		return nil, errors.NewConfigurationError("table", "table name is required", nil)
	}
	if class == "" {
		class = registry.ClassName[E]()
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if err := options.indexMap.validate(options.classIndex); err != nil {
		return nil, err
	}

	return &Driver[E]{
		api:    api,
		table:  table,
		class:  class,
		opts:   options,
		logger: options.logger.With("table", table, "class", class),
	}, nil
}

// Attach registers class E on src with driver, under the driver's class name.
func Attach[E storagemodels.Identifiable](src *objectstore.Source, driver *Driver[E], opts ...objectstore.ManagerOption) (*objectstore.Manager[E], error) {
	all := append([]objectstore.ManagerOption{objectstore.WithClassName(driver.Class())}, opts...)
	return objectstore.Attach[E](src, driver, all...)
}

// Class returns the class name stored in EntityType.
func (d *Driver[E]) Class() string {
	return d.class
}

// ClassQuery returns a query listing every item of the class.
func (d *Driver[E]) ClassQuery() *QueryBuilder {
	return NewQuery(d.table).OnIndex(d.opts.classIndex).WithPartitionKey(expand(d.opts.indexMap[d.opts.classIndex.PartitionKeyName], d.class, "", nil))
}

// GetByPrimaryKey reads the item of key.
func (d *Driver[E]) GetByPrimaryKey(ctx context.Context, key int64) (E, bool, error) {
	return d.getItem(ctx, key, nil)
}

// GetPartialByPrimaryKey reads the partial attributes of the item of key.
func (d *Driver[E]) GetPartialByPrimaryKey(ctx context.Context, key int64) (E, bool, error) {
	return d.getItem(ctx, key, d.opts.partialAttributes)
}

func (d *Driver[E]) getItem(ctx context.Context, key int64, projection []string) (E, bool, error) {
	var zero E
	if key < 0 {
		return zero, false, nil
	}
	keyMap, err := d.opts.indexMap.primaryKey(d.class, key)
	if err != nil {
		return zero, false, err
	}

	input := &sdk.GetItemInput{TableName: aws.String(d.table), Key: keyMap}
	if len(projection) > 0 {
		expr, names := projectionExpression(projection)
		input.ProjectionExpression = aws.String(expr)
		input.ExpressionAttributeNames = names
	}

	out, err := withRetry(ctx, d.opts, func() (*sdk.GetItemOutput, error) {
		return d.api.GetItem(ctx, input)
	})
	if err != nil {
		return zero, false, errors.NewBackendError("GetItem", d.class, err)
	}
	if out.Item == nil {
		return zero, false, nil
	}

	e, err := d.decode(out.Item)
	if err != nil {
		return zero, false, err
	}
	return e, true, nil
}

// GetAll lists the class index and returns every entity, ordered by key.
func (d *Driver[E]) GetAll(ctx context.Context) ([]E, error) {
	input, err := d.ClassQuery().Build()
	if err != nil {
		return nil, errors.NewBackendError("query", d.class, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var all []E
	for res := range d.Stream(ctx, input) {
		if res.Error != nil {
			return nil, errors.NewBackendError("getAll", d.class, res.Error)
		}
		all = append(all, res.Item)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.logger.DebugContext(ctx, "listed class items", "count", len(all))
	return storagemodels.SortByPrimaryKey(all), nil
}

// GetByPrimaryKeys reads keys with BatchGetItem. Results follow input order;
// keys without an item are reported as misses.
func (d *Driver[E]) GetByPrimaryKeys(ctx context.Context, keys []int64) ([]E, error) {
	unique := make([]int64, 0, len(keys))
	seen := make(map[int64]bool, len(keys))
	for _, k := range keys {
		if k >= 0 && !seen[k] {
			seen[k] = true
			unique = append(unique, k)
		}
	}

	found := make(map[int64]E, len(unique))
	for chunk := range slices.Chunk(unique, maxBatchKeys) {
		if err := d.batchGet(ctx, chunk, found); err != nil {
			return nil, err
		}
	}

	out := make([]E, 0, len(keys))
	for _, k := range keys {
		e, ok := found[k]
		if !ok {
			datastore.ReportMiss(ctx, k)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (d *Driver[E]) batchGet(ctx context.Context, keys []int64, found map[int64]E) error {
	keyMaps := make([]map[string]types.AttributeValue, 0, len(keys))
	for _, k := range keys {
		km, err := d.opts.indexMap.primaryKey(d.class, k)
		if err != nil {
			return err
		}
		keyMaps = append(keyMaps, km)
	}

	request := map[string]types.KeysAndAttributes{d.table: {Keys: keyMaps}}
	for attempt := 0; len(request) > 0; attempt++ {
		if attempt > d.opts.maxRetries {
			return errors.NewBackendError("BatchGetItem", d.class, fmt.Errorf("unprocessed keys after %d retries", d.opts.maxRetries))
		}
		out, err := withRetry(ctx, d.opts, func() (*sdk.BatchGetItemOutput, error) {
			return d.api.BatchGetItem(ctx, &sdk.BatchGetItemInput{RequestItems: request})
		})
		if err != nil {
			return errors.NewBackendError("BatchGetItem", d.class, err)
		}
		for _, item := range out.Responses[d.table] {
			e, err := d.decode(item)
			if err != nil {
				return err
			}
			found[e.PrimaryKey()] = e
		}
		request = out.UnprocessedKeys
	}
	return nil
}

// GetRelatedIDs reads the adjacency items of key for relation, in key order.
func (d *Driver[E]) GetRelatedIDs(ctx context.Context, relation string, key int64) ([]int64, error) {
	if key < 0 {
		return []int64{}, nil
	}
	keyMap, err := d.opts.indexMap.primaryKey(d.class, key)
	if err != nil {
		return nil, err
	}
	pk := keyMap[attrPK].(*types.AttributeValueMemberS).Value

	input, err := NewQuery(d.table).WithPartitionKey(pk).WithSortKeyPrefix(relationPrefix(relation)).Build()
	if err != nil {
		return nil, errors.NewBackendError("relation "+relation, d.class, err)
	}
	return d.queryKeys(ctx, "relation "+relation, input, attrRelatedKey)
}

// GetIDsForSet runs the query of the named set and returns the keys of the
// items of the class it selects.
func (d *Driver[E]) GetIDsForSet(ctx context.Context, setID string, params ...any) ([]int64, error) {
	fn, ok := d.opts.sets[setID]
	if !ok {
		return []int64{}, nil
	}
	q, err := fn(NewQuery(d.table), params...)
	if err != nil {
		return nil, errors.NewBackendError("set "+setID, d.class, err)
	}
	input, err := q.Build()
	if err != nil {
		return nil, errors.NewBackendError("set "+setID, d.class, err)
	}
	return d.queryKeys(ctx, "set "+setID, input, attrObjectKey)
}

func (d *Driver[E]) queryKeys(ctx context.Context, op string, input *sdk.QueryInput, attr string) ([]int64, error) {
	items, err := queryItems(ctx, d.api, input, d.opts)
	if err != nil {
		return nil, errors.NewBackendError(op, d.class, err)
	}
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if attr == attrObjectKey && !d.ownsItem(item) {
			continue
		}
		id, ok, err := numberAttr(item, attr)
		if err != nil {
			return nil, errors.NewMalformedStorageError(d.table, err)
		}
		if ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Relate stores adjacency items linking root to each related key.
func (d *Driver[E]) Relate(ctx context.Context, relation string, root int64, related ...int64) error {
	for _, r := range related {
		item, err := d.relationKey(relation, root, r)
		if err != nil {
			return err
		}
		item[attrRelatedKey] = &types.AttributeValueMemberN{Value: strconv.FormatInt(r, 10)}
		item[attrEntityType] = &types.AttributeValueMemberS{Value: relationPrefix(relation) + d.class}
		if _, err := withRetry(ctx, d.opts, func() (*sdk.PutItemOutput, error) {
			return d.api.PutItem(ctx, &sdk.PutItemInput{TableName: aws.String(d.table), Item: item})
		}); err != nil {
			return errors.NewBackendError("relate "+relation, d.class, err)
		}
	}
	return nil
}

// Unrelate removes the adjacency items linking root to each related key.
func (d *Driver[E]) Unrelate(ctx context.Context, relation string, root int64, related ...int64) error {
	for _, r := range related {
		key, err := d.relationKey(relation, root, r)
		if err != nil {
			return err
		}
		if _, err := withRetry(ctx, d.opts, func() (*sdk.DeleteItemOutput, error) {
			return d.api.DeleteItem(ctx, &sdk.DeleteItemInput{TableName: aws.String(d.table), Key: key})
		}); err != nil {
			return errors.NewBackendError("unrelate "+relation, d.class, err)
		}
	}
	return nil
}

func (d *Driver[E]) relationKey(relation string, root, related int64) (map[string]types.AttributeValue, error) {
	keyMap, err := d.opts.indexMap.primaryKey(d.class, root)
	if err != nil {
		return nil, err
	}
	rk, err := FormatKey(related)
	if err != nil {
		return nil, err
	}
	keyMap[attrSK] = &types.AttributeValueMemberS{Value: relationPrefix(relation) + rk}
	return keyMap, nil
}

// Create puts the item of entity. An existing item with the same key is
// reported as a validation error.
func (d *Driver[E]) Create(ctx context.Context, entity E) error {
	return d.put(ctx, "create", entity, "attribute_not_exists(PK)", func() error {
		return errors.NewValidationError("key", fmt.Sprintf("%s %d already exists", d.class, entity.PrimaryKey()))
	})
}

// Update replaces the item of entity. A missing item yields a not-found error.
func (d *Driver[E]) Update(ctx context.Context, entity E) error {
	return d.put(ctx, "update", entity, "attribute_exists(PK)", func() error {
		return errors.NewNotFoundError(d.class, entity.PrimaryKey())
	})
}

func (d *Driver[E]) put(ctx context.Context, op string, entity E, condition string, onConflict func() error) error {
	item, err := d.encode(entity)
	if err != nil {
		return err
	}
	_, err = withRetry(ctx, d.opts, func() (*sdk.PutItemOutput, error) {
		return d.api.PutItem(ctx, &sdk.PutItemInput{
			TableName:           aws.String(d.table),
			Item:                item,
			ConditionExpression: aws.String(condition),
		})
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if stderrors.As(err, &cfe) {
			return onConflict()
		}
		return errors.NewBackendError(op, d.class, err)
	}
	return nil
}

// Delete removes the item of key. Deleting a missing item is not an error.
func (d *Driver[E]) Delete(ctx context.Context, key int64) error {
	if key < 0 {
		return nil
	}
	keyMap, err := d.opts.indexMap.primaryKey(d.class, key)
	if err != nil {
		return err
	}
	if _, err := withRetry(ctx, d.opts, func() (*sdk.DeleteItemOutput, error) {
		return d.api.DeleteItem(ctx, &sdk.DeleteItemInput{TableName: aws.String(d.table), Key: keyMap})
	}); err != nil {
		return errors.NewBackendError("delete", d.class, err)
	}
	return nil
}

// encode marshals entity and adds the expanded key attributes.
func (d *Driver[E]) encode(entity E) (map[string]types.AttributeValue, error) {
	key, err := FormatKey(entity.PrimaryKey())
	if err != nil {
		return nil, err
	}
	av, err := attributevalue.MarshalMap(entity)
	if err != nil {
		return nil, errors.NewValidationError("entity", fmt.Sprintf("failed to marshal entity: %v", err))
	}

	for attr, v := range d.opts.indexMap.expandAll(d.class, key, av) {
		av[attr] = &types.AttributeValueMemberS{Value: v}
	}
	av[attrEntityType] = &types.AttributeValueMemberS{Value: d.class}
	av[attrObjectKey] = &types.AttributeValueMemberN{Value: strconv.FormatInt(entity.PrimaryKey(), 10)}
	return av, nil
}

func (d *Driver[E]) decode(item map[string]types.AttributeValue) (E, error) {
	e, err := unmarshalEntity[E](item)
	if err != nil {
		return e, errors.NewMalformedStorageError(d.table, err)
	}
	return e, nil
}

// ownsItem reports whether item is an entity item of the driver's class.
func (d *Driver[E]) ownsItem(item map[string]types.AttributeValue) bool {
	et, ok := item[attrEntityType].(*types.AttributeValueMemberS)
	return ok && et.Value == d.class
}

func projectionExpression(attrs []string) (string, map[string]string) {
	names := make(map[string]string, len(attrs))
	placeholders := make([]string, 0, len(attrs))
	for i, a := range attrs {
		p := fmt.Sprintf("#p%d", i)
		names[p] = a
		placeholders = append(placeholders, p)
	}
	return strings.Join(placeholders, ", "), names
}

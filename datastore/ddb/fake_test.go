/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamoDB is an in-memory table understanding the key conditions built
// by QueryBuilder. Filter expressions are ignored.
type fakeDynamoDB struct {
	mu      sync.Mutex
	items   map[string]map[string]types.AttributeValue
	indexes map[string]GSIConfig

	throttle   int // next calls failing with a throughput error
	batchLimit int // max items returned per BatchGetItem call, 0 for unlimited
	calls      map[string]int
}

func newFakeDynamoDB() *fakeDynamoDB {
	return &fakeDynamoDB{
		items: make(map[string]map[string]types.AttributeValue),
		indexes: map[string]GSIConfig{
			"GSI1": DefaultGSIConfigs["GSI1"],
			"GSI2": {IndexName: "GSI2", PartitionKeyName: "PK2", SortKeyName: "SK2"},
		},
		calls: make(map[string]int),
	}
}

func str(item map[string]types.AttributeValue, name string) (string, bool) {
	v, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		return "", false
	}
	return v.Value, true
}

func itemID(item map[string]types.AttributeValue) string {
	pk, _ := str(item, attrPK)
	sk, _ := str(item, attrSK)
	return pk + "|" + sk
}

func (f *fakeDynamoDB) enter(op string) error {
	f.calls[op]++
	if f.throttle > 0 {
		f.throttle--
		return &types.ProvisionedThroughputExceededException{Message: strPtr("slow down")}
	}
	return nil
}

func strPtr(s string) *string { return &s }

func (f *fakeDynamoDB) GetItem(ctx context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetItem"); err != nil {
		return nil, err
	}

	item, ok := f.items[itemID(in.Key)]
	if !ok {
		return &sdk.GetItemOutput{}, nil
	}
	out := maps.Clone(item)
	if in.ProjectionExpression != nil {
		out = make(map[string]types.AttributeValue)
		for _, p := range strings.Split(*in.ProjectionExpression, ", ") {
			name := in.ExpressionAttributeNames[p]
			if v, ok := item[name]; ok {
				out[name] = v
			}
		}
	}
	return &sdk.GetItemOutput{Item: out}, nil
}

func (f *fakeDynamoDB) BatchGetItem(ctx context.Context, in *sdk.BatchGetItemInput, _ ...func(*sdk.Options)) (*sdk.BatchGetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("BatchGetItem"); err != nil {
		return nil, err
	}

	out := &sdk.BatchGetItemOutput{
		Responses:       make(map[string][]map[string]types.AttributeValue),
		UnprocessedKeys: make(map[string]types.KeysAndAttributes),
	}
	for table, ka := range in.RequestItems {
		seen := make(map[string]bool)
		for i, key := range ka.Keys {
			id := itemID(key)
			if seen[id] {
				panic("duplicate key in BatchGetItem request")
			}
			seen[id] = true

			if f.batchLimit > 0 && i >= f.batchLimit {
				rest := out.UnprocessedKeys[table]
				rest.Keys = append(rest.Keys, key)
				out.UnprocessedKeys[table] = rest
				continue
			}
			if item, ok := f.items[id]; ok {
				out.Responses[table] = append(out.Responses[table], maps.Clone(item))
			}
		}
	}
	return out, nil
}

func (f *fakeDynamoDB) PutItem(ctx context.Context, in *sdk.PutItemInput, _ ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("PutItem"); err != nil {
		return nil, err
	}

	id := itemID(in.Item)
	_, exists := f.items[id]
	if in.ConditionExpression != nil {
		switch *in.ConditionExpression {
		case "attribute_not_exists(PK)":
			if exists {
				return nil, &types.ConditionalCheckFailedException{Message: strPtr("exists")}
			}
		case "attribute_exists(PK)":
			if !exists {
				return nil, &types.ConditionalCheckFailedException{Message: strPtr("missing")}
			}
		}
	}
	f.items[id] = maps.Clone(in.Item)
	return &sdk.PutItemOutput{}, nil
}

func (f *fakeDynamoDB) DeleteItem(ctx context.Context, in *sdk.DeleteItemInput, _ ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteItem"); err != nil {
		return nil, err
	}
	delete(f.items, itemID(in.Key))
	return &sdk.DeleteItemOutput{}, nil
}

func (f *fakeDynamoDB) Query(ctx context.Context, in *sdk.QueryInput, _ ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Query"); err != nil {
		return nil, err
	}

	pkName, skName := attrPK, attrSK
	if in.IndexName != nil {
		cfg := f.indexes[*in.IndexName]
		pkName, skName = cfg.PartitionKeyName, cfg.SortKeyName
	}
	pkValue, _ := str(in.ExpressionAttributeValues, ":pk")
	skValue, _ := str(in.ExpressionAttributeValues, ":sk")
	skValue2, _ := str(in.ExpressionAttributeValues, ":sk2")
	cond := *in.KeyConditionExpression

	var matched []map[string]types.AttributeValue
	for _, item := range f.items {
		if pk, ok := str(item, pkName); !ok || pk != pkValue {
			continue
		}
		sk, hasSK := str(item, skName)
		if !hasSK {
			continue
		}
		if !matchSortKey(cond, skName, sk, skValue, skValue2) {
			continue
		}
		matched = append(matched, item)
	}
	slices.SortFunc(matched, func(a, b map[string]types.AttributeValue) int {
		sa, _ := str(a, skName)
		sb, _ := str(b, skName)
		if c := strings.Compare(sa, sb); c != 0 {
			return c
		}
		return strings.Compare(itemID(a), itemID(b))
	})
	if in.ScanIndexForward != nil && !*in.ScanIndexForward {
		slices.Reverse(matched)
	}

	start := 0
	if in.ExclusiveStartKey != nil {
		last := itemID(in.ExclusiveStartKey)
		for i, item := range matched {
			if itemID(item) == last {
				start = i + 1
			}
		}
	}
	matched = matched[start:]

	out := &sdk.QueryOutput{}
	if in.Limit != nil && int(*in.Limit) < len(matched) {
		matched = matched[:*in.Limit]
		lastItem := matched[len(matched)-1]
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			attrPK: lastItem[attrPK],
			attrSK: lastItem[attrSK],
		}
	}
	for _, item := range matched {
		out.Items = append(out.Items, maps.Clone(item))
	}
	out.Count = int32(len(out.Items))
	return out, nil
}

func matchSortKey(cond, skName, sk, v, v2 string) bool {
	switch {
	case strings.Contains(cond, "begins_with("+skName):
		return strings.HasPrefix(sk, v)
	case strings.Contains(cond, skName+" BETWEEN"):
		return sk >= v && sk <= v2
	case strings.Contains(cond, skName+" >= "):
		return sk >= v
	case strings.Contains(cond, skName+" <= "):
		return sk <= v
	case strings.Contains(cond, skName+" > "):
		return sk > v
	case strings.Contains(cond, skName+" < "):
		return sk < v
	case strings.Contains(cond, skName+" = "):
		return sk == v
	default:
		return true
	}
}

func (f *fakeDynamoDB) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeDynamoDB) setThrottle(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.throttle = n
}

var _ API = (*fakeDynamoDB)(nil)

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"maps"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// QueryBuilder provides a fluent interface for building key queries on the
// table or one of its GSIs.
type QueryBuilder struct {
	table      string
	index      *GSIConfig
	pkValue    string
	skValue    string
	skValue2   string
	skOperator string // "=", "begins_with", ">", "<", ">=", "<=", "BETWEEN"
	filters    []string
	filterVals map[string]types.AttributeValue
	limit      *int32
	descending bool
}

// NewQuery creates a query on the base table.
func NewQuery(table string) *QueryBuilder {
	return &QueryBuilder{
		table:      table,
		filterVals: make(map[string]types.AttributeValue),
	}
}

// OnIndex targets a GSI instead of the base table.
func (q *QueryBuilder) OnIndex(cfg GSIConfig) *QueryBuilder {
	q.index = &cfg
	return q
}

// WithPartitionKey sets the partition key value
func (q *QueryBuilder) WithPartitionKey(value string) *QueryBuilder {
	q.pkValue = value
	return q
}

// WithSortKey sets the sort key value with equals operator
func (q *QueryBuilder) WithSortKey(value string) *QueryBuilder {
	return q.sortKey("=", value)
}

// WithSortKeyPrefix sets the sort key to use begins_with operator
func (q *QueryBuilder) WithSortKeyPrefix(prefix string) *QueryBuilder {
	return q.sortKey("begins_with", prefix)
}

// WithSortKeyGreaterThan sets the sort key to use > operator
func (q *QueryBuilder) WithSortKeyGreaterThan(value string) *QueryBuilder {
	return q.sortKey(">", value)
}

// WithSortKeyGreaterOrEqual sets the sort key to use >= operator
func (q *QueryBuilder) WithSortKeyGreaterOrEqual(value string) *QueryBuilder {
	return q.sortKey(">=", value)
}

// WithSortKeyLessThan sets the sort key to use < operator
func (q *QueryBuilder) WithSortKeyLessThan(value string) *QueryBuilder {
	return q.sortKey("<", value)
}

// WithSortKeyLessOrEqual sets the sort key to use <= operator
func (q *QueryBuilder) WithSortKeyLessOrEqual(value string) *QueryBuilder {
	return q.sortKey("<=", value)
}

// WithSortKeyBetween sets the sort key to use BETWEEN operator
func (q *QueryBuilder) WithSortKeyBetween(start, end string) *QueryBuilder {
	q.skValue2 = end
	return q.sortKey("BETWEEN", start)
}

func (q *QueryBuilder) sortKey(op, value string) *QueryBuilder {
	q.skOperator = op
	q.skValue = value
	return q
}

// WithFilter adds a filter expression
func (q *QueryBuilder) WithFilter(expression string, values map[string]types.AttributeValue) *QueryBuilder {
	q.filters = append(q.filters, expression)
	maps.Copy(q.filterVals, values)
	return q
}

// WithLimit sets the page size of the query
func (q *QueryBuilder) WithLimit(limit int32) *QueryBuilder {
	q.limit = aws.Int32(limit)
	return q
}

// Descending reverses the sort key order
func (q *QueryBuilder) Descending() *QueryBuilder {
	q.descending = true
	return q
}

// KeyNames returns the partition and sort key attributes the query targets.
func (q *QueryBuilder) KeyNames() (string, string) {
	if q.index != nil {
		return q.index.PartitionKeyName, q.index.SortKeyName
	}
	return attrPK, attrSK
}

// Build constructs the final query input
func (q *QueryBuilder) Build() (*sdk.QueryInput, error) {
	if q.pkValue == "" {
		return nil, fmt.Errorf("partition key value is required")
	}
	pkName, skName := q.KeyNames()

	values := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: q.pkValue},
	}
	keyConditions := []string{pkName + " = :pk"}

	if q.skOperator != "" {
		values[":sk"] = &types.AttributeValueMemberS{Value: q.skValue}
		switch q.skOperator {
		case "begins_with":
			keyConditions = append(keyConditions, fmt.Sprintf("begins_with(%s, :sk)", skName))
		case "BETWEEN":
			keyConditions = append(keyConditions, skName+" BETWEEN :sk AND :sk2")
			values[":sk2"] = &types.AttributeValueMemberS{Value: q.skValue2}
		default:
			keyConditions = append(keyConditions, fmt.Sprintf("%s %s :sk", skName, q.skOperator))
		}
	}

	for k, v := range q.filterVals {
		if _, clash := values[k]; clash {
			return nil, fmt.Errorf("filter value %s clashes with a key condition value", k)
		}
		values[k] = v
	}

	input := &sdk.QueryInput{
		TableName:                 aws.String(q.table),
		KeyConditionExpression:    aws.String(strings.Join(keyConditions, " AND ")),
		ExpressionAttributeValues: values,
		Limit:                     q.limit,
	}
	if q.index != nil {
		input.IndexName = aws.String(q.index.IndexName)
	}
	if len(q.filters) > 0 {
		input.FilterExpression = aws.String(strings.Join(q.filters, " AND "))
	}
	if q.descending {
		input.ScanIndexForward = aws.Bool(false)
	}
	return input, nil
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"maps"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// StreamResult represents a single item in a stream with metadata
type StreamResult[E any] struct {
	Item  E                               // The unmarshaled item
	Raw   map[string]types.AttributeValue // Raw DynamoDB attributes
	Error error                           // Item-specific or query error
	Meta  StreamMeta                      // Metadata about this item
}

// StreamMeta contains metadata about a streamed item
type StreamMeta struct {
	Index      int64     // Item index in stream (0-based)
	PageNumber int       // DynamoDB page number (1-based)
	Timestamp  time.Time // When item was retrieved
}

// Stream runs input page by page in the background and delivers each item
// decoded as E. A query failure is delivered as a final result with Error set.
// Items of other classes in the result are skipped.
func (d *Driver[E]) Stream(ctx context.Context, input *sdk.QueryInput, opts ...Option) <-chan StreamResult[E] {
	options := d.opts
	options.sets = maps.Clone(d.opts.sets)
	for _, opt := range opts {
		opt(&options)
	}

	resultCh := make(chan StreamResult[E], options.bufferSize)
	go d.streamWorker(ctx, input, options, resultCh)
	return resultCh
}

func (d *Driver[E]) streamWorker(ctx context.Context, input *sdk.QueryInput, options options, resultCh chan<- StreamResult[E]) {
	defer close(resultCh)

	var index int64
	var pageNumber int
	startTime := time.Now()

	reportProgress := func() {
		if options.progressHandler == nil {
			return
		}
		progress := StreamProgress{
			ItemsProcessed: index,
			PagesProcessed: pageNumber,
			StartTime:      startTime,
		}
		if elapsed := time.Since(startTime).Seconds(); elapsed > 0 {
			progress.CurrentRate = float64(index) / elapsed
		}
		options.progressHandler(progress)
	}

	err := paginate(ctx, d.api, input, options, func(items []map[string]types.AttributeValue) error {
		pageNumber++
		for _, item := range items {
			if !d.ownsItem(item) {
				continue
			}
			result := d.processItem(item, index, pageNumber)
			index++

			select {
			case <-ctx.Done():
				return ctx.Err()
			case resultCh <- result:
			}
		}
		reportProgress()
		return nil
	})
	if err != nil && !stderrors.Is(err, context.Canceled) {
		select {
		case resultCh <- StreamResult[E]{
			Error: fmt.Errorf("query failed: %w", err),
			Meta:  StreamMeta{Index: index, PageNumber: pageNumber, Timestamp: time.Now()},
		}:
		case <-ctx.Done():
		}
	}
}

// processItem converts a DynamoDB item to a typed result
func (d *Driver[E]) processItem(item map[string]types.AttributeValue, index int64, pageNumber int) StreamResult[E] {
	result := StreamResult[E]{
		Raw:  maps.Clone(item),
		Meta: StreamMeta{Index: index, PageNumber: pageNumber, Timestamp: time.Now()},
	}
	e, err := d.decode(item)
	if err != nil {
		result.Error = err
		return result
	}
	result.Item = e
	return result
}

// paginate runs input until the last page, passing each page to fn.
func paginate(ctx context.Context, api API, input *sdk.QueryInput, options options, fn func([]map[string]types.AttributeValue) error) error {
	in := *input
	if in.Limit == nil && options.pageSize > 0 {
		in.Limit = aws.Int32(options.pageSize)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		out, err := withRetry(ctx, options, func() (*sdk.QueryOutput, error) {
			return api.Query(ctx, &in)
		})
		if err != nil {
			return err
		}
		if err := fn(out.Items); err != nil {
			return err
		}

		if len(out.LastEvaluatedKey) == 0 {
			return nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// queryItems collects every item of input.
func queryItems(ctx context.Context, api API, input *sdk.QueryInput, options options) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	err := paginate(ctx, api, input, options, func(page []map[string]types.AttributeValue) error {
		items = append(items, page...)
		return nil
	})
	return items, err
}

// withRetry executes fn with configurable retry logic for throttling errors
func withRetry[T any](ctx context.Context, options options, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= options.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		out, err := fn()
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !isRetryableError(err) {
			return zero, err
		}

		// Don't sleep after last attempt
		if attempt < options.maxRetries {
			backoff := time.Duration(attempt+1) * options.retryBackoff
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return zero, fmt.Errorf("request failed after %d retries: %w", options.maxRetries, lastErr)
}

// isRetryableError determines if a DynamoDB error is retryable
func isRetryableError(err error) bool {
	var throughput *types.ProvisionedThroughputExceededException
	var limit *types.RequestLimitExceeded
	var internal *types.InternalServerError
	switch {
	case stderrors.As(err, &throughput), stderrors.As(err, &limit), stderrors.As(err, &internal):
		return true
	}

	// Check for AWS SDK retryable errors
	var retryable interface{ IsRetryable() bool }
	if stderrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}

func unmarshalEntity[E any](item map[string]types.AttributeValue) (E, error) {
	var e E
	if err := attributevalue.UnmarshalMap(item, &e); err != nil {
		return e, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return e, nil
}

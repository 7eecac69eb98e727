package aggregate

import (
	"errors"
	"fmt"
)

// SourceFetchError records a source that contributed nothing to a run
// because its fetch failed or timed out. It never escapes the aggregator.
type SourceFetchError struct {
	Source string
	Err    error
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceFetchError) Unwrap() error {
	return e.Err
}

// AggregationError is a failure outside the source join, such as an
// unresolvable viewer. Callers show it as a retryable error state.
type AggregationError struct {
	Err error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregating updates: %v", e.Err)
}

func (e *AggregationError) Unwrap() error {
	return e.Err
}

// IsAggregationError reports whether err is or wraps an AggregationError.
func IsAggregationError(err error) bool {
	var ae *AggregationError
	return errors.As(err, &ae)
}

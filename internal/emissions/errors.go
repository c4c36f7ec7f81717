package emissions

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ValidationError reports an out-of-range quantity or a disallowed categorical input
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value"`
	Allowed string `json:"allowed"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): must be %s", e.Field, e.Value, e.Allowed)
}

// AggregationError reports a source without a recognizable total, or an empty input set
type AggregationError struct {
	Source  string `json:"source,omitempty"`
	Message string `json:"message"`
}

func (e *AggregationError) Error() string {
	if e.Source == "" {
		return "aggregation failed: " + e.Message
	}
	return fmt.Sprintf("aggregation failed for source %q: %s", e.Source, e.Message)
}

// BoundaryConfigError reports an unknown scope name or include tag
type BoundaryConfigError struct {
	Value   string `json:"value"`
	Message string `json:"message"`
}

func (e *BoundaryConfigError) Error() string {
	return fmt.Sprintf("boundary config: %s (%q)", e.Message, e.Value)
}

// TypeError reports a value passed to the aggregator that is not a structured result
type TypeError struct {
	Index int    `json:"index"`
	Got   string `json:"got"`
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("result #%d has unsupported type %s", e.Index, e.Got)
}

func invalid(field string, value any, allowed string) error {
	return errors.WithStack(&ValidationError{Field: field, Value: value, Allowed: allowed})
}

// IsInputError reports whether err is caused by caller input rather than an
// internal failure.
func IsInputError(err error) bool {
	var ve *ValidationError
	var ae *AggregationError
	var be *BoundaryConfigError
	var te *TypeError
	return errors.As(err, &ve) || errors.As(err, &ae) || errors.As(err, &be) || errors.As(err, &te)
}

package neogm

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a query expecting at least one result
	// returns none.
	ErrNotFound = errors.New("neogm: entity not found")

	// ErrNotSingular is returned when a query that expects exactly one
	// result returns more than one.
	ErrNotSingular = errors.New("neogm: entity not singular")
)

// ConfigurationError reports an illegal model shape discovered at
// registration time: a related or complex field declared on a relationship,
// or an embedded type whose nesting exceeds the classification ceiling.
type ConfigurationError struct {
	Type  string // Go type being registered
	Field string // offending field, if any
	Msg   string
}

// Error returns the error string.
func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("neogm: configuration: %s.%s: %s", e.Type, e.Field, e.Msg)
	}
	return fmt.Sprintf("neogm: configuration: %s: %s", e.Type, e.Msg)
}

// IsConfigurationError returns true if the error is a ConfigurationError.
func IsConfigurationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigurationError
	return errors.As(err, &e)
}

// NamingError reports a malformed storage relationship token.
type NamingError struct {
	Token string
	Msg   string
}

// Error returns the error string.
func (e *NamingError) Error() string {
	return fmt.Sprintf("neogm: naming: token %q: %s", e.Token, e.Msg)
}

// IsNamingError returns true if the error is a NamingError.
func IsNamingError(err error) bool {
	if err == nil {
		return false
	}
	var e *NamingError
	return errors.As(err, &e)
}

// UnsupportedExpressionError reports a predicate, selector, or aggregate
// expression outside the compilable grammar. It is raised at compile time,
// before any query is sent to the store.
type UnsupportedExpressionError struct {
	Expr string // printable form of the offending expression
	Msg  string
}

// Error returns the error string.
func (e *UnsupportedExpressionError) Error() string {
	if e.Expr != "" {
		return fmt.Sprintf("neogm: unsupported expression %s: %s", e.Expr, e.Msg)
	}
	return fmt.Sprintf("neogm: unsupported expression: %s", e.Msg)
}

// IsUnsupportedExpression returns true if the error is an UnsupportedExpressionError.
func IsUnsupportedExpression(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedExpressionError
	return errors.As(err, &e)
}

// ValidationError reports an illegal builder argument, such as a negative
// take or skip count. It is raised at build time.
type ValidationError struct {
	Name string // argument or field name
	Err  error
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("neogm: invalid %s: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// HavingWithoutGroupByError reports a having filter configured on a query
// that has no group keys.
type HavingWithoutGroupByError struct{}

// Error returns the error string.
func (e *HavingWithoutGroupByError) Error() string {
	return "neogm: having requires a preceding group by"
}

// IsHavingWithoutGroupBy returns true if the error is a HavingWithoutGroupByError.
func IsHavingWithoutGroupBy(err error) bool {
	if err == nil {
		return false
	}
	var e *HavingWithoutGroupByError
	return errors.As(err, &e)
}

// DepthLimitExceededError reports a traversal depth above the configured
// ceiling.
type DepthLimitExceededError struct {
	Requested int
	Ceiling   int
}

// Error returns the error string.
func (e *DepthLimitExceededError) Error() string {
	return fmt.Sprintf("neogm: traversal depth %d exceeds ceiling %d", e.Requested, e.Ceiling)
}

// IsDepthLimitExceeded returns true if the error is a DepthLimitExceededError.
func IsDepthLimitExceeded(err error) bool {
	if err == nil {
		return false
	}
	var e *DepthLimitExceededError
	return errors.As(err, &e)
}

// InvalidTraversalError reports a user traversal over a private storage
// relationship token.
type InvalidTraversalError struct {
	Token string
}

// Error returns the error string.
func (e *InvalidTraversalError) Error() string {
	return fmt.Sprintf("neogm: relationship token %q is private and cannot be traversed", e.Token)
}

// IsInvalidTraversal returns true if the error is an InvalidTraversalError.
func IsInvalidTraversal(err error) bool {
	if err == nil {
		return false
	}
	var e *InvalidTraversalError
	return errors.As(err, &e)
}

// NotFoundError reports a query with no results where one was required.
type NotFoundError struct {
	Label string
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("neogm: %s not found", e.Label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool { return err == ErrNotFound }

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// NotSingularError reports a query with multiple results where exactly one
// was required.
type NotSingularError struct {
	Label string
}

// Error returns the error string.
func (e *NotSingularError) Error() string {
	return fmt.Sprintf("neogm: %s not singular", e.Label)
}

// Is reports whether the target error matches NotSingularError.
func (e *NotSingularError) Is(err error) bool { return err == ErrNotSingular }

// IsNotSingular returns true if the error is a NotSingularError.
func IsNotSingular(err error) bool {
	if err == nil {
		return false
	}
	var e *NotSingularError
	return errors.As(err, &e) || errors.Is(err, ErrNotSingular)
}

// QueryError annotates a storage collaborator failure with the entity type
// and operation for diagnosis. The underlying error is surfaced unchanged
// through Unwrap.
type QueryError struct {
	Entity string // entity label being queried
	Op     string // operation, e.g. "all", "count", "segments"
	Err    error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("neogm: querying %s (%s): %v", e.Entity, e.Op, e.Err)
	}
	return fmt.Sprintf("neogm: querying %s: %v", e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error { return e.Err }

// NewQueryError returns a new QueryError.
func NewQueryError(entity, op string, err error) *QueryError {
	return &QueryError{Entity: entity, Op: op, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

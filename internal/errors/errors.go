// Package errors provides centralized error definitions and error handling utilities
// for the cadence scheduling engine. It defines domain-specific errors, semantic error
// types, error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent failures of the scheduling core:
//   - CyclicDependencyError: a proposed or supplied dependency closes a cycle
//   - InvalidDependencyError: a dependency violates one or more type rules
//   - InsufficientDataError: an analysis was requested against empty input
//   - InfeasibleAllocationError: no eligible resource exists for a task
//   - OptimizationTimeoutError: the optimizer exceeded its deadline
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - AlreadyExistsError: resource already exists
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
// Creating errors:
//
//	// Domain-specific error
//	err := errors.NewCyclicDependencyError([]string{"a", "c", "a"})
//
//	// Semantic error
//	err := errors.NewNotFoundError("plan", "p-1")
//
//	// With context
//	err := errors.NewInvalidDependencyError("a", "b", "FS").WithViolation("negative_lag_forbidden")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrDependencyCycle) { ... }
//
//	var cycleErr *errors.CyclicDependencyError
//	if errors.As(err, &cycleErr) { ... }
//
// # Error Classification
//
// Errors can be classified by severity and behavior:
//   - Retryable: transient errors that may succeed on retry
//   - UserFacing: errors safe to display to users (vs internal errors)
//   - Severity: Debug, Info, Warning, Error, Critical
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Scheduling sentinel errors
var (
	// ErrDependencyCycle indicates a circular dependency between scheduling edges.
	ErrDependencyCycle = New("dependency cycle detected")
	// ErrInvalidDependency indicates that a dependency violates a type rule.
	ErrInvalidDependency = New("invalid dependency")
	// ErrDanglingReference indicates a dependency names a task absent from the plan.
	ErrDanglingReference = New("dangling task reference")
	// ErrInsufficientData indicates there is not enough input to run an analysis.
	ErrInsufficientData = New("insufficient data")
	// ErrInfeasibleAllocation indicates that no eligible resource exists for a task.
	ErrInfeasibleAllocation = New("infeasible allocation")
	// ErrOptimizationTimeout indicates that optimization exceeded its deadline.
	ErrOptimizationTimeout = New("optimization timed out")
)

// Repository sentinel errors
var (
	// ErrPlanNotFound indicates that a plan could not be found.
	ErrPlanNotFound = New("plan not found")
	// ErrTaskNotFound indicates that a task could not be found.
	ErrTaskNotFound = New("task not found")
	// ErrSnapshotCorrupted indicates that a snapshot file could not be decoded.
	ErrSnapshotCorrupted = New("snapshot data corrupted")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// CadenceError is the base interface for all cadence errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type CadenceError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	// This is used by errors.Is() for error comparison.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// CyclicDependencyError reports that a dependency would close a cycle in the
// scheduling subgraph. Cycle lists the task IDs along the cycle, with the
// first ID repeated at the end.
//
// Example:
//
//	err := errors.NewCyclicDependencyError([]string{"c", "a", "c"})
//	fmt.Println(err) // "dependency cycle detected: c -> a -> c"
type CyclicDependencyError struct {
	baseError
	PlanID string
	Cycle  []string
}

// NewCyclicDependencyError creates a new CyclicDependencyError.
func NewCyclicDependencyError(cycle []string) *CyclicDependencyError {
	return &CyclicDependencyError{
		baseError: baseError{
			message:    "dependency cycle detected",
			cause:      ErrDependencyCycle,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
		Cycle: append([]string(nil), cycle...),
	}
}

// WithPlanID adds a plan ID to the error context.
func (e *CyclicDependencyError) WithPlanID(id string) *CyclicDependencyError {
	e.PlanID = id
	return e
}

// Error returns the formatted error message.
func (e *CyclicDependencyError) Error() string {
	prefix := "dependency cycle detected"
	if e.PlanID != "" {
		prefix = fmt.Sprintf("dependency cycle detected [plan=%s]", e.PlanID)
	}
	if len(e.Cycle) == 0 {
		return prefix
	}
	return fmt.Sprintf("%s: %s", prefix, strings.Join(e.Cycle, " -> "))
}

// Is checks if this error matches the target.
func (e *CyclicDependencyError) Is(target error) bool {
	if _, ok := target.(*CyclicDependencyError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// InvalidDependencyError reports a dependency that breaks one or more rules of
// its type. Violations holds the stable rule names (for example
// "self_dependency" or "negative_lag_forbidden").
//
// Example:
//
//	err := errors.NewInvalidDependencyError("a", "a", "FS").WithViolation("self_dependency")
type InvalidDependencyError struct {
	baseError
	FromID     string
	ToID       string
	Type       string
	Violations []string
}

// NewInvalidDependencyError creates a new InvalidDependencyError.
func NewInvalidDependencyError(fromID, toID, depType string) *InvalidDependencyError {
	return &InvalidDependencyError{
		baseError: baseError{
			message:    "invalid dependency",
			cause:      ErrInvalidDependency,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		FromID: fromID,
		ToID:   toID,
		Type:   depType,
	}
}

// WithViolation appends a violated rule name.
func (e *InvalidDependencyError) WithViolation(rule string) *InvalidDependencyError {
	e.Violations = append(e.Violations, rule)
	return e
}

// WithCause replaces the underlying cause. Used for dangling references so
// that errors.Is(err, ErrDanglingReference) holds.
func (e *InvalidDependencyError) WithCause(cause error) *InvalidDependencyError {
	e.cause = cause
	return e
}

// HasViolation reports whether the named rule was violated.
func (e *InvalidDependencyError) HasViolation(rule string) bool {
	for _, v := range e.Violations {
		if v == rule {
			return true
		}
	}
	return false
}

// Error returns the formatted error message.
func (e *InvalidDependencyError) Error() string {
	var parts []string
	if e.FromID != "" || e.ToID != "" {
		parts = append(parts, fmt.Sprintf("%s->%s", e.FromID, e.ToID))
	}
	if e.Type != "" {
		parts = append(parts, fmt.Sprintf("type=%s", e.Type))
	}

	prefix := "invalid dependency"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("invalid dependency [%s]", strings.Join(parts, ", "))
	}
	if len(e.Violations) == 0 {
		return prefix
	}
	return fmt.Sprintf("%s: %s", prefix, strings.Join(e.Violations, ", "))
}

// Is checks if this error matches the target.
func (e *InvalidDependencyError) Is(target error) bool {
	if _, ok := target.(*InvalidDependencyError); ok {
		return true
	}
	if target == ErrInvalidDependency {
		return true
	}
	return e.baseError.Is(target)
}

// InsufficientDataError reports that an analysis cannot run on the supplied
// input, such as a forecast over zero tasks or zero total duration.
type InsufficientDataError struct {
	baseError
	PlanID string
	Reason string
}

// NewInsufficientDataError creates a new InsufficientDataError.
func NewInsufficientDataError(reason string) *InsufficientDataError {
	return &InsufficientDataError{
		baseError: baseError{
			message:    reason,
			cause:      ErrInsufficientData,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		Reason: reason,
	}
}

// WithPlanID adds a plan ID to the error context.
func (e *InsufficientDataError) WithPlanID(id string) *InsufficientDataError {
	e.PlanID = id
	return e
}

// Error returns the formatted error message.
func (e *InsufficientDataError) Error() string {
	if e.PlanID != "" {
		return fmt.Sprintf("insufficient data [plan=%s]: %s", e.PlanID, e.Reason)
	}
	return fmt.Sprintf("insufficient data: %s", e.Reason)
}

// Is checks if this error matches the target.
func (e *InsufficientDataError) Is(target error) bool {
	if _, ok := target.(*InsufficientDataError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// InfeasibleAllocationError reports that a task has no eligible resource under
// the active constraints.
type InfeasibleAllocationError struct {
	baseError
	TaskID string
	Skills []string
}

// NewInfeasibleAllocationError creates a new InfeasibleAllocationError.
func NewInfeasibleAllocationError(taskID string, skills []string) *InfeasibleAllocationError {
	return &InfeasibleAllocationError{
		baseError: baseError{
			message:    "no eligible resource",
			cause:      ErrInfeasibleAllocation,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
		TaskID: taskID,
		Skills: append([]string(nil), skills...),
	}
}

// Error returns the formatted error message.
func (e *InfeasibleAllocationError) Error() string {
	msg := fmt.Sprintf("infeasible allocation [task=%s]: no eligible resource", e.TaskID)
	if len(e.Skills) > 0 {
		msg = fmt.Sprintf("%s for skills %s", msg, strings.Join(e.Skills, ", "))
	}
	return msg
}

// Is checks if this error matches the target.
func (e *InfeasibleAllocationError) Is(target error) bool {
	if _, ok := target.(*InfeasibleAllocationError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// OptimizationTimeoutError reports that resource optimization exceeded its
// configured deadline. It matches both ErrOptimizationTimeout and ErrTimeout.
type OptimizationTimeoutError struct {
	baseError
	Target   string
	Deadline time.Duration
}

// NewOptimizationTimeoutError creates a new OptimizationTimeoutError.
func NewOptimizationTimeoutError(target string, deadline time.Duration) *OptimizationTimeoutError {
	return &OptimizationTimeoutError{
		baseError: baseError{
			message:    "optimization exceeded deadline",
			cause:      ErrOptimizationTimeout,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
		Target:   target,
		Deadline: deadline,
	}
}

// WithCause adds a cause to the error. The context error is typically used.
func (e *OptimizationTimeoutError) WithCause(cause error) *OptimizationTimeoutError {
	e.cause = Join(ErrOptimizationTimeout, cause)
	return e
}

// Error returns the formatted error message.
func (e *OptimizationTimeoutError) Error() string {
	return fmt.Sprintf("optimization timed out [target=%s] (deadline: %s)", e.Target, e.Deadline)
}

// Is checks if this error matches the target.
func (e *OptimizationTimeoutError) Is(target error) bool {
	if _, ok := target.(*OptimizationTimeoutError); ok {
		return true
	}
	if target == ErrTimeout {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("plan", "p-1")
//	fmt.Println(err) // "plan 'p-1' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// AlreadyExistsError represents a resource that already exists.
type AlreadyExistsError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(resourceType, resourceID string) *AlreadyExistsError {
	return &AlreadyExistsError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' already exists", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// Error returns the formatted error message.
func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s '%s' already exists", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *AlreadyExistsError) Is(target error) bool {
	if _, ok := target.(*AlreadyExistsError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("effort must not be below duration")
//	err = err.WithField("estimated_effort").WithValue(2.0)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("forecast sampling", 2*time.Second)
//	fmt.Println(err) // "timeout error: forecast sampling (timeout: 2s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. Timeouts are retryable; rule violations are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var cadenceErr CadenceError
	if As(err, &cadenceErr) {
		return cadenceErr.IsRetryable()
	}

	return Is(err, ErrTimeout)
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var cadenceErr CadenceError
	if As(err, &cadenceErr) {
		return cadenceErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement CadenceError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var cadenceErr CadenceError
	if As(err, &cadenceErr) {
		return cadenceErr.Severity()
	}

	return SeverityError
}

// IsDomainError returns true if the error is one of the scheduling-core errors.
func IsDomainError(err error) bool {
	if err == nil {
		return false
	}

	var cycleErr *CyclicDependencyError
	var invalidErr *InvalidDependencyError
	var dataErr *InsufficientDataError
	var infeasibleErr *InfeasibleAllocationError
	var timeoutErr *OptimizationTimeoutError

	return As(err, &cycleErr) || As(err, &invalidErr) || As(err, &dataErr) ||
		As(err, &infeasibleErr) || As(err, &timeoutErr)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike fmt.Errorf with %w, this returns nil for a nil error.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

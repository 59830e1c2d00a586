package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatConfiguration ErrorCategory = "configuration" // Unknown workflow/agent, cyclic graph
	ErrCatValidation    ErrorCategory = "validation"    // Unmet dependencies, bad definitions
	ErrCatExecution     ErrorCategory = "execution"     // Runner failure
	ErrCatTimeout       ErrorCategory = "timeout"       // Runner exceeded its deadline
	ErrCatCancelled     ErrorCategory = "cancelled"     // Run cancelled by request
	ErrCatCollaborator  ErrorCategory = "collaborator"  // VCS, PR or task store failure
	ErrCatPersistence   ErrorCategory = "persistence"   // Session read/write failure
	ErrCatInternal      ErrorCategory = "internal"      // Unexpected internal error
)

// DomainError represents a structured error from the orchestration layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrConfiguration creates a configuration error. Fatal, never retried.
func ErrConfiguration(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatConfiguration,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrExecution creates an execution error.
func ErrExecution(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrTimeout creates a timeout error. Distinguishable from other execution
// errors so callers can apply timeout-specific handling.
func ErrTimeout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      "TIMEOUT",
		Message:   message,
		Retryable: true,
	}
}

// ErrCancelled creates a cancellation error. Terminal for the affected run.
func ErrCancelled(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatCancelled,
		Code:      "CANCELLED",
		Message:   message,
		Retryable: false,
	}
}

// ErrCollaborator creates an error for an external collaborator failure.
func ErrCollaborator(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatCollaborator,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrPersistence creates a session persistence error.
func ErrPersistence(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatPersistence,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// IsTimeout reports whether an error is a runner timeout.
func IsTimeout(err error) bool {
	return IsCategory(err, ErrCatTimeout)
}

// Predefined error codes
const (
	CodeDuplicateAgent     = "DUPLICATE_AGENT"
	CodeUnknownAgent       = "UNKNOWN_AGENT"
	CodeUnknownWorkflow    = "UNKNOWN_WORKFLOW"
	CodeCircularDependency = "CIRCULAR_DEPENDENCY"
	CodeStageOrdering      = "STAGE_ORDERING"
	CodeUnmetDependency    = "UNMET_DEPENDENCY"

	CodeSessionNotFound  = "SESSION_NOT_FOUND"
	CodeAlreadyCompleted = "ALREADY_COMPLETED"
	CodeNoCheckpoints    = "NO_CHECKPOINTS"
	CodeStateCorrupted   = "STATE_CORRUPTED"

	CodeAgentFailed    = "AGENT_FAILED"
	CodeRetryExhausted = "RETRY_EXHAUSTED"
	CodeParseFailed    = "PARSE_FAILED"

	CodeBranchFailed = "BRANCH_FAILED"
	CodeCommitFailed = "COMMIT_FAILED"
	CodePRFailed     = "PR_FAILED"
	CodeTaskStore    = "TASK_STORE"
)

package schema

import "fmt"

// Error codes for structured error reporting.
const (
	ErrCodeCompile    = "COMPILE_ERROR"
	ErrCodeEval       = "EVAL_ERROR"
	ErrCodeSchema     = "SCHEMA_ERROR"
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeConflict   = "CONFLICT"
)

// EngineError is the structured error type for all tickrule operations.
// Runtime faults never cross the evaluator boundary as panics; they are
// carried in this type and absorbed into fail-closed defaults upstream.
type EngineError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Expression string         `json:"expression,omitempty"`
	Path       string         `json:"path,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *EngineError) Error() string {
	if e.Expression != "" {
		return fmt.Sprintf("[%s] %s (in %q)", e.Code, e.Message, e.Expression)
	}
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

// NewError creates a new EngineError.
func NewError(code, message string) *EngineError {
	return &EngineError{Code: code, Message: message}
}

// NewErrorf creates a new EngineError with a formatted message.
func NewErrorf(code, format string, args ...any) *EngineError {
	return &EngineError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithExpr attaches the offending expression text.
func (e *EngineError) WithExpr(expression string) *EngineError {
	e.Expression = expression
	return e
}

// WithPath attaches a JSON-path location (schema/semantic validation).
func (e *EngineError) WithPath(path string) *EngineError {
	e.Path = path
	return e
}

// WithCause attaches an underlying cause.
func (e *EngineError) WithCause(err error) *EngineError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *EngineError) WithDetails(details map[string]any) *EngineError {
	e.Details = details
	return e
}

// IsCompileError reports whether err is an EngineError with ErrCodeCompile.
func IsCompileError(err error) bool {
	ee, ok := err.(*EngineError)
	return ok && ee.Code == ErrCodeCompile
}

// IsEvalError reports whether err is an EngineError with ErrCodeEval.
func IsEvalError(err error) bool {
	ee, ok := err.(*EngineError)
	return ok && ee.Code == ErrCodeEval
}

package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Field names the offending input field for validation errors
	Field string `json:"field,omitempty"`
	// Cause is the underlying error, if any
	Cause error `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError with the same code.
// This lets errors.Is(err, ErrNetwork) match any network error.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes
const (
	CodeValidation   = "VALIDATION"
	CodeNetwork      = "NETWORK"
	CodeRateNotFound = "RATE_NOT_FOUND"
	CodeAutomation   = "AUTOMATION"
)

// Error categories. Compare with errors.Is.
var (
	ErrValidation   = NewDomainError(CodeValidation, "Invalid input")
	ErrNetwork      = NewDomainError(CodeNetwork, "Network request failed")
	ErrRateNotFound = NewDomainError(CodeRateNotFound, "Exchange rate not found")
	ErrAutomation   = NewDomainError(CodeAutomation, "Browser automation failed")
)

// NewValidationError creates a validation error for the given field
func NewValidationError(field, message string) *DomainError {
	return &DomainError{
		Code:    CodeValidation,
		Message: message,
		Field:   field,
	}
}

// NewNetworkError creates a network error wrapping cause
func NewNetworkError(message string, cause error) *DomainError {
	return &DomainError{
		Code:    CodeNetwork,
		Message: message,
		Cause:   cause,
	}
}

// NewRateNotFoundError creates a rate lookup error
func NewRateNotFoundError(message string, cause error) *DomainError {
	return &DomainError{
		Code:    CodeRateNotFound,
		Message: message,
		Cause:   cause,
	}
}

// NewAutomationError creates a browser automation error wrapping cause
func NewAutomationError(message string, cause error) *DomainError {
	return &DomainError{
		Code:    CodeAutomation,
		Message: message,
		Cause:   cause,
	}
}

package service

import (
	"errors"
	"fmt"
)

// ErrorCode classifies lifecycle failures.
type ErrorCode int

const (
	// ErrDuplicateService indicates a concrete type or name is already registered.
	ErrDuplicateService ErrorCode = iota + 1

	// ErrServiceInitialization indicates a constructor or Initialize failed.
	ErrServiceInitialization

	// ErrServiceNotFound indicates no registered service satisfies a lookup.
	ErrServiceNotFound

	// ErrServiceDeinitialization indicates Deinitialize failed during teardown.
	ErrServiceDeinitialization

	// ErrInvalidDefinition indicates a malformed manifest entry or descriptor.
	ErrInvalidDefinition
)

// String returns a human-readable name for the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrDuplicateService:
		return "DuplicateService"
	case ErrServiceInitialization:
		return "ServiceInitialization"
	case ErrServiceNotFound:
		return "ServiceNotFound"
	case ErrServiceDeinitialization:
		return "ServiceDeinitialization"
	case ErrInvalidDefinition:
		return "InvalidDefinition"
	default:
		return fmt.Sprintf("Unknown(%d)", e)
	}
}

// ServiceError is a lifecycle error with a code.
type ServiceError struct {
	Code    ErrorCode
	Service string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Service != "" {
		msg = fmt.Sprintf("%s: %s (service: %s)", e.Code, e.Message, e.Service)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is matches a bare code target such as &ServiceError{Code: ErrServiceNotFound},
// so errors.Is finds a code anywhere in a joined error tree.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok || t.Service != "" || t.Message != "" || t.Err != nil {
		return false
	}
	return t.Code == e.Code
}

// ============================================================================
// Factory Functions
// ============================================================================

// NewDuplicateServiceError creates a DuplicateService error.
func NewDuplicateServiceError(name, existing string) *ServiceError {
	return &ServiceError{
		Code:    ErrDuplicateService,
		Service: name,
		Message: fmt.Sprintf("already registered as %q", existing),
	}
}

// NewInitializationError wraps a constructor or Initialize failure.
func NewInitializationError(name string, err error) *ServiceError {
	return &ServiceError{
		Code:    ErrServiceInitialization,
		Service: name,
		Message: "initialization failed",
		Err:     err,
	}
}

// NewNotFoundError creates a ServiceNotFound error for the requested type.
func NewNotFoundError(typeName string) *ServiceError {
	return &ServiceError{
		Code:    ErrServiceNotFound,
		Message: fmt.Sprintf("no service provides %s", typeName),
	}
}

// NewDeinitializationError wraps a Deinitialize failure.
func NewDeinitializationError(name string, err error) *ServiceError {
	return &ServiceError{
		Code:    ErrServiceDeinitialization,
		Service: name,
		Message: "deinitialization failed",
		Err:     err,
	}
}

// NewInvalidDefinitionError creates an InvalidDefinition error.
func NewInvalidDefinitionError(name, message string) *ServiceError {
	return &ServiceError{
		Code:    ErrInvalidDefinition,
		Service: name,
		Message: message,
	}
}

// ============================================================================
// Predicates
// ============================================================================

func hasCode(err error, code ErrorCode) bool {
	return errors.Is(err, &ServiceError{Code: code})
}

func IsDuplicateService(err error) bool {
	return hasCode(err, ErrDuplicateService)
}

func IsInitializationError(err error) bool {
	return hasCode(err, ErrServiceInitialization)
}

// IsNotFound reports whether err is a ServiceNotFound error.
func IsNotFound(err error) bool {
	return hasCode(err, ErrServiceNotFound)
}

func IsDeinitializationError(err error) bool {
	return hasCode(err, ErrServiceDeinitialization)
}

func IsInvalidDefinition(err error) bool {
	return hasCode(err, ErrInvalidDefinition)
}

// CodeOf returns the code carried by err, or 0.
func CodeOf(err error) ErrorCode {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

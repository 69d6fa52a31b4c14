package errors

import (
	"errors"
	"fmt"
)

// Transcoding errors. Every failure returned by the codec wraps exactly one of these.
var (
	ErrUnsupportedDirection = errors.New("unsupported message direction")
	ErrMalformedDocument    = errors.New("malformed JSON document")
	ErrArrayRootNotAllowed  = errors.New("array root is not allowed without a root array field")
	ErrAmbiguousRootArray   = errors.New("ambiguous root array unwrap")
	ErrMalformedTypeTag     = errors.New("malformed type tag")
	ErrStructureMismatch    = errors.New("structural type mismatch")
)

// CLI and configuration errors
var (
	ErrEmptyInput      = errors.New("input is empty")
	ErrFileNotFound    = errors.New("file not found")
	ErrNoInput         = errors.New("no input provided: please specify a file with -i or pipe data to stdin")
	ErrInvalidFilePath = errors.New("invalid file path")
	ErrInvalidConfig   = errors.New("invalid configuration")
)

// ErrorType categorizes errors
type ErrorType string

const (
	ErrorTypeDirection ErrorType = "direction"
	ErrorTypeDocument  ErrorType = "document"
	ErrorTypeRoot      ErrorType = "root"
	ErrorTypeTag       ErrorType = "tag"
	ErrorTypeStructure ErrorType = "structure"
	ErrorTypeConfig    ErrorType = "config"
	ErrorTypeInput     ErrorType = "input"
	ErrorTypeOutput    ErrorType = "output"
	ErrorTypeUnknown   ErrorType = "unknown"
)

// AppError is an application-specific error with context
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another *AppError of the same category.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

func newError(typ ErrorType, message string, err error) *AppError {
	return &AppError{
		Type:    typ,
		Message: message,
		Err:     err,
	}
}

// NewDirectionError reports a communication direction the codec cannot label.
func NewDirectionError(message string, err error) *AppError {
	return newError(ErrorTypeDirection, message, err)
}

// NewDocumentError reports a payload that is not a well-formed JSON document.
func NewDocumentError(message string, err error) *AppError {
	return newError(ErrorTypeDocument, message, err)
}

// NewRootError reports a root shape the configured policy does not allow.
func NewRootError(message string, err error) *AppError {
	return newError(ErrorTypeRoot, message, err)
}

// NewTagError reports a scalar whose type tag body cannot be parsed.
func NewTagError(message string, err error) *AppError {
	return newError(ErrorTypeTag, message, err)
}

// NewStructureError reports a value of the wrong shape.
func NewStructureError(message string, err error) *AppError {
	return newError(ErrorTypeStructure, message, err)
}

// NewConfigError creates a new error related to configuration loading
func NewConfigError(message string, err error) *AppError {
	return newError(ErrorTypeConfig, message, err)
}

// NewInputError creates a new error related to input processing
func NewInputError(message string, err error) *AppError {
	return newError(ErrorTypeInput, message, err)
}

// NewOutputError creates a new error related to output processing
func NewOutputError(message string, err error) *AppError {
	return newError(ErrorTypeOutput, message, err)
}

// UserFriendlyError returns a user-friendly error message
func UserFriendlyError(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case ErrorTypeDirection:
			return fmt.Sprintf("Direction error: %s", appErr.Message)
		case ErrorTypeDocument:
			return fmt.Sprintf("JSON document error: %s", appErr.Message)
		case ErrorTypeRoot:
			return fmt.Sprintf("Root shape error: %s", appErr.Message)
		case ErrorTypeTag:
			return fmt.Sprintf("Type tag error: %s", appErr.Message)
		case ErrorTypeStructure:
			return fmt.Sprintf("Structure error: %s", appErr.Message)
		case ErrorTypeConfig:
			return fmt.Sprintf("Configuration error: %s", appErr.Message)
		case ErrorTypeInput:
			return fmt.Sprintf("Input error: %s", appErr.Message)
		case ErrorTypeOutput:
			return fmt.Sprintf("Output error: %s", appErr.Message)
		default:
			return fmt.Sprintf("Error: %s", appErr.Message)
		}
	}

	if errors.Is(err, ErrEmptyInput) {
		return "Error: The input is empty. Please provide a JSON document or a message tree."
	}
	if errors.Is(err, ErrFileNotFound) {
		return "Error: The specified file could not be found. Please check the file path."
	}
	if errors.Is(err, ErrNoInput) {
		return "Error: No input provided. Please specify a file with -i or pipe data to stdin."
	}
	if errors.Is(err, ErrInvalidFilePath) {
		return "Error: Invalid file path. Please provide a valid file path."
	}

	return fmt.Sprintf("Error: %v", err)
}

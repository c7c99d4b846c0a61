// Package types defines the shared data model for the repair daemon:
// problems reported by the build, error signatures derived from them,
// fixes produced by the resolution pipeline, and memory pressure levels.
package types

import "fmt"

// Severity classifies a reported problem.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Problem is one compiler/analysis diagnostic, captured as an immutable
// snapshot from the build collaborator. One batch is produced per scan.
type Problem struct {
	// File is the stable file identifier (path relative to project root)
	File string
	// Message is the raw diagnostic text
	Message string
	// Line is the 1-based line number (0 if unknown)
	Line int
	// Column is the 1-based column number (0 if unknown)
	Column int
	// Severity is the reported severity
	Severity Severity
}

// ErrorType is a finite classification of a problem message.
// Classification is deterministic: ordered keyword rules, first match wins.
type ErrorType int

const (
	ErrorTypeOther ErrorType = iota
	ErrorTypeSymbolNotFound
	ErrorTypeTypeMismatch
	ErrorTypeMethodNotFound
	ErrorTypeDuplicateDefinition
	ErrorTypeAbstractMethodNotImplemented
	ErrorTypeConstructorNotFound
	ErrorTypeUncaughtException
	ErrorTypeMethodArgumentMismatch
	ErrorTypeMissingReturn
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeSymbolNotFound:
		return "SYMBOL_NOT_FOUND"
	case ErrorTypeTypeMismatch:
		return "TYPE_MISMATCH"
	case ErrorTypeMethodNotFound:
		return "METHOD_NOT_FOUND"
	case ErrorTypeDuplicateDefinition:
		return "DUPLICATE_DEFINITION"
	case ErrorTypeAbstractMethodNotImplemented:
		return "ABSTRACT_METHOD_NOT_IMPLEMENTED"
	case ErrorTypeConstructorNotFound:
		return "CONSTRUCTOR_NOT_FOUND"
	case ErrorTypeUncaughtException:
		return "UNCAUGHT_EXCEPTION"
	case ErrorTypeMethodArgumentMismatch:
		return "METHOD_ARGUMENT_MISMATCH"
	case ErrorTypeMissingReturn:
		return "MISSING_RETURN"
	default:
		return "OTHER"
	}
}

// ParseErrorType converts the string form back to an ErrorType.
// Unknown strings map to ErrorTypeOther.
func ParseErrorType(s string) ErrorType {
	for t := ErrorTypeOther; t <= ErrorTypeMissingReturn; t++ {
		if t.String() == s {
			return t
		}
	}
	return ErrorTypeOther
}

// Signature is the normalized, comparable identity derived from a Problem.
// It is the key used for pattern lookups and classification.
type Signature struct {
	// File is the file the problem was reported in
	File string
	// Line and Column locate the problem
	Line   int
	Column int
	// Message is the raw diagnostic text
	Message string
	// Normalized is Message with numbers, quoted literals, and paths
	// replaced by placeholders, lowercased
	Normalized string
	// Type is the classified error type
	Type ErrorType
	// Keywords are the significant tokens extracted from Normalized
	Keywords []string
}

// String returns a compact identity for logging.
func (s Signature) String() string {
	return fmt.Sprintf("%s:%d:%d [%s]", s.File, s.Line, s.Column, s.Type)
}

// FixSource records which path of the resolution pipeline produced a fix.
type FixSource string

const (
	// FixSourcePattern means the fix came from the learned pattern store
	FixSourcePattern FixSource = "pattern"
	// FixSourceFallback means the fix came from the external generator
	FixSourceFallback FixSource = "fallback"
)

// Fix is the result of resolving one file's problems.
type Fix struct {
	// File is the file the fix applies to
	File string
	// Content is the full replacement file content
	Content string
	// Explanation is an optional human-readable summary of the change
	Explanation string
	// Source records whether a pattern or the fallback produced this fix
	Source FixSource
}

// PressureLevel is the discrete classification of current memory usage.
// The ordering is meaningful: Critical >= Warning compares ordinals.
type PressureLevel int

const (
	PressureNormal PressureLevel = iota
	PressureWarning
	PressureCritical
	PressureEmergency
)

func (l PressureLevel) String() string {
	switch l {
	case PressureNormal:
		return "NORMAL"
	case PressureWarning:
		return "WARNING"
	case PressureCritical:
		return "CRITICAL"
	case PressureEmergency:
		return "EMERGENCY"
	default:
		return fmt.Sprintf("PressureLevel(%d)", int(l))
	}
}

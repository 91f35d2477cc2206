// Package errors provides structured error types for portage.
package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Code represents a unique error code.
type Code string

// Error codes for portage.
const (
	// Initialization errors
	CodeNotInitialized     Code = "PORTAGE_NOT_INITIALIZED"
	CodeAlreadyInitialized Code = "PORTAGE_ALREADY_INITIALIZED"

	// Entity lookup errors
	CodeProjectNotFound Code = "PROJECT_NOT_FOUND"
	CodeEpicNotFound    Code = "EPIC_NOT_FOUND"

	// Archive errors
	CodeInvalidArchive  Code = "INVALID_ARCHIVE"
	CodeArchiveTooLarge Code = "ARCHIVE_TOO_LARGE"

	// Config errors
	CodeConfigInvalid Code = "CONFIG_INVALID"
	CodeConfigMissing Code = "CONFIG_MISSING"
)

// Category groups error codes for HTTP status mapping.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryNotFound
	CategoryBadRequest
	CategoryConflict
	CategoryInternal
)

// codeCategories maps error codes to their categories.
var codeCategories = map[Code]Category{
	CodeNotInitialized:     CategoryBadRequest,
	CodeAlreadyInitialized: CategoryConflict,
	CodeProjectNotFound:    CategoryNotFound,
	CodeEpicNotFound:       CategoryNotFound,
	CodeInvalidArchive:     CategoryBadRequest,
	CodeArchiveTooLarge:    CategoryBadRequest,
	CodeConfigInvalid:      CategoryBadRequest,
	CodeConfigMissing:      CategoryBadRequest,
}

// HTTPStatus returns the HTTP status code for a category.
func (c Category) HTTPStatus() int {
	switch c {
	case CategoryNotFound:
		return 404
	case CategoryBadRequest:
		return 400
	case CategoryConflict:
		return 409
	default:
		return 500
	}
}

// PortageError is the structured error type for portage.
type PortageError struct {
	Code  Code   `json:"code"`
	What  string `json:"what"`
	Why   string `json:"why,omitempty"`
	Fix   string `json:"fix,omitempty"`
	Cause error  `json:"-"`
}

// Error implements the error interface.
func (e *PortageError) Error() string {
	var b strings.Builder
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString(": ")
		b.WriteString(e.Why)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *PortageError) Unwrap() error {
	return e.Cause
}

// UserMessage returns a user-friendly message for CLI output.
func (e *PortageError) UserMessage() string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString("\n\nWhy: ")
		b.WriteString(e.Why)
	}
	if e.Fix != "" {
		b.WriteString("\n\nFix: ")
		b.WriteString(e.Fix)
	}
	return b.String()
}

// Category returns the error category for HTTP status mapping.
func (e *PortageError) Category() Category {
	if cat, ok := codeCategories[e.Code]; ok {
		return cat
	}
	return CategoryUnknown
}

// HTTPStatus returns the appropriate HTTP status code for this error.
func (e *PortageError) HTTPStatus() int {
	return e.Category().HTTPStatus()
}

// MarshalJSON implements json.Marshaler.
func (e *PortageError) MarshalJSON() ([]byte, error) {
	type alias PortageError
	aux := struct {
		*alias
		CauseMsg string `json:"cause,omitempty"`
	}{
		alias: (*alias)(e),
	}
	if e.Cause != nil {
		aux.CauseMsg = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// Is reports whether target is a PortageError with the same code.
func (e *PortageError) Is(target error) bool {
	t, ok := target.(*PortageError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause.
func (e *PortageError) WithCause(err error) *PortageError {
	return &PortageError{
		Code:  e.Code,
		What:  e.What,
		Why:   e.Why,
		Fix:   e.Fix,
		Cause: err,
	}
}

// --- Error constructors ---

// ErrNotInitialized returns an error for an uninitialized portage directory.
func ErrNotInitialized() *PortageError {
	return &PortageError{
		Code: CodeNotInitialized,
		What: "portage is not initialized in this directory",
		Why:  "No .portage/ directory found in the current path or its parents",
		Fix:  "Run 'portage init' to initialize portage in this directory",
	}
}

// ErrAlreadyInitialized returns an error when portage is already initialized.
func ErrAlreadyInitialized(path string) *PortageError {
	return &PortageError{
		Code: CodeAlreadyInitialized,
		What: "portage is already initialized",
		Why:  fmt.Sprintf("Found existing .portage/ directory at %s", path),
		Fix:  "Remove .portage/ manually to reinitialize",
	}
}

// ErrProjectNotFound returns an error when a project doesn't exist.
func ErrProjectNotFound(id string) *PortageError {
	return &PortageError{
		Code: CodeProjectNotFound,
		What: fmt.Sprintf("project %s not found", id),
		Why:  "No project with this ID exists in the tracker database",
		Fix:  "Run 'portage projects' to list available projects",
	}
}

// ErrEpicNotFound returns an error when an epic doesn't exist.
func ErrEpicNotFound(id string) *PortageError {
	return &PortageError{
		Code: CodeEpicNotFound,
		What: fmt.Sprintf("epic %s not found", id),
		Why:  "No epic with this ID exists in the tracker database",
		Fix:  "Check the epic ID, or export the whole project with --project",
	}
}

// ErrInvalidArchive returns an error for a structurally invalid archive.
// The reason string is surfaced verbatim to the caller.
func ErrInvalidArchive(reason string) *PortageError {
	return &PortageError{
		Code: CodeInvalidArchive,
		What: fmt.Sprintf("invalid archive: %s", reason),
		Why:  "The file is not a readable portage archive or its manifest is unusable",
		Fix:  "Re-export the archive from the source project and try again",
	}
}

// ErrArchiveTooLarge returns an error when an archive exceeds the size limit.
// Both sizes are reported so the user-facing message is actionable.
func ErrArchiveTooLarge(actual, max int64) *PortageError {
	return &PortageError{
		Code: CodeArchiveTooLarge,
		What: fmt.Sprintf("archive is too large: %d bytes (max %d)", actual, max),
		Why:  "Oversized archives are rejected before decompression begins",
		Fix:  "Increase archive.max_size_bytes in .portage/config.yaml, or export a smaller subset",
	}
}

// ErrConfigInvalid returns an error for invalid configuration.
func ErrConfigInvalid(field, reason string) *PortageError {
	return &PortageError{
		Code: CodeConfigInvalid,
		What: fmt.Sprintf("invalid configuration: %s", field),
		Why:  reason,
		Fix:  "Check .portage/config.yaml and fix the invalid field",
	}
}

// ErrConfigMissing returns an error for missing configuration.
func ErrConfigMissing(field string) *PortageError {
	return &PortageError{
		Code: CodeConfigMissing,
		What: fmt.Sprintf("missing required configuration: %s", field),
		Why:  "This field is required but not set in configuration",
		Fix:  fmt.Sprintf("Add '%s' to .portage/config.yaml", field),
	}
}

// AsPortageError attempts to convert an error to a PortageError.
// Returns nil if the error is not a PortageError.
func AsPortageError(err error) *PortageError {
	var perr *PortageError
	if As(err, &perr) {
		return perr
	}
	return nil
}

// As is a convenience wrapper for errors.As.
func As(err error, target any) bool {
	return asError(err, target)
}

// asError implements errors.As behavior.
func asError(err error, target any) bool {
	if err == nil {
		return false
	}
	if perr, ok := err.(*PortageError); ok {
		if t, ok := target.(**PortageError); ok {
			*t = perr
			return true
		}
	}
	// Check unwrapped error
	if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
		return asError(unwrapper.Unwrap(), target)
	}
	return false
}

// Wrap wraps a generic error into a PortageError with unknown code.
func Wrap(err error, what string) *PortageError {
	return &PortageError{
		Code:  Code("UNKNOWN"),
		What:  what,
		Cause: err,
	}
}

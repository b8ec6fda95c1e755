package catalog

import (
	"fmt"
	"strings"
)

// Error codes for catalog validation and loading.
const (
	ErrCodeCatalogNotFound = "CATALOG_NOT_FOUND"
	ErrCodeCatalogParse    = "CATALOG_PARSE"
	ErrCodeCatalogInvalid  = "CATALOG_INVALID"
	ErrCodeStepDuplicate   = "STEP_DUPLICATE"
	ErrCodeStepInvalid     = "STEP_INVALID"
	ErrCodeActionUnknown   = "ACTION_UNKNOWN"
	ErrCodeFieldMissing    = "FIELD_MISSING"
)

// CatalogError represents a user-friendly catalog error with actionable
// suggestions. A catalog that produces one is rejected before any step
// executes.
type CatalogError struct {
	Code       string // Error code for categorization (e.g., "STEP_DUPLICATE")
	Message    string // User-friendly error message
	Context    string // File path or step id providing location context
	Suggestion string // Actionable suggestion to fix the error
	Underlying error  // Wrapped error for error chain
}

// Error returns the formatted error message.
func (e *CatalogError) Error() string {
	var b strings.Builder

	b.WriteString(e.Message)

	if e.Context != "" {
		fmt.Fprintf(&b, " (at %s)", e.Context)
	}

	return b.String()
}

// Unwrap returns the underlying error for error chain support.
func (e *CatalogError) Unwrap() error {
	return e.Underlying
}

// Is supports errors.Is() for comparing error codes.
func (e *CatalogError) Is(target error) bool {
	if t, ok := target.(*CatalogError); ok {
		return e.Code == t.Code
	}
	return false
}

// Format returns a fully formatted error with all details.
func (e *CatalogError) Format() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)

	if e.Context != "" {
		fmt.Fprintf(&b, "\n  Location: %s", e.Context)
	}

	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n  Suggestion: %s", e.Suggestion)
	}

	return b.String()
}

// NewCatalogError creates a new CatalogError with the given code and message.
func NewCatalogError(code, message string) *CatalogError {
	return &CatalogError{
		Code:    code,
		Message: message,
	}
}

// WithContext returns a new CatalogError with context set.
func (e *CatalogError) WithContext(ctx string) *CatalogError {
	clone := *e
	clone.Context = ctx
	return &clone
}

// WithSuggestion returns a new CatalogError with suggestion set.
func (e *CatalogError) WithSuggestion(suggestion string) *CatalogError {
	clone := *e
	clone.Suggestion = suggestion
	return &clone
}

// WithUnderlying returns a new CatalogError wrapping another error.
func (e *CatalogError) WithUnderlying(err error) *CatalogError {
	clone := *e
	clone.Underlying = err
	return &clone
}

// NewCatalogNotFoundError creates an error for a missing catalog file.
func NewCatalogNotFoundError(path string) *CatalogError {
	return &CatalogError{
		Code:       ErrCodeCatalogNotFound,
		Message:    "catalog file not found",
		Context:    path,
		Suggestion: "Check the --catalog path or create a catalog file",
	}
}

// NewCatalogParseError creates an error for a malformed catalog file.
func NewCatalogParseError(path string, err error) *CatalogError {
	return &CatalogError{
		Code:       ErrCodeCatalogParse,
		Message:    "catalog file is not valid YAML",
		Context:    path,
		Suggestion: "Fix the YAML syntax; the underlying parser error names the offending line",
		Underlying: err,
	}
}

// NewDuplicateStepError creates an error for a duplicate step id.
func NewDuplicateStepError(id StepID) *CatalogError {
	return &CatalogError{
		Code:       ErrCodeStepDuplicate,
		Message:    fmt.Sprintf("duplicate step id %q", id.String()),
		Suggestion: "Step ids must be unique within a catalog; rename one of the duplicates",
	}
}

// NewStepInvalidError creates an error for a structurally invalid step.
func NewStepInvalidError(context string, err error) *CatalogError {
	return &CatalogError{
		Code:       ErrCodeStepInvalid,
		Message:    err.Error(),
		Context:    context,
		Underlying: err,
	}
}

// NewMissingFieldError creates an error for a step missing a required field.
func NewMissingFieldError(context, field string) *CatalogError {
	return &CatalogError{
		Code:       ErrCodeFieldMissing,
		Message:    fmt.Sprintf("missing required field %q", field),
		Context:    context,
		Suggestion: fmt.Sprintf("Add the %q field to the step definition", field),
	}
}

// NewUnknownActionError creates an error for an unregistered action or
// precondition type, suggesting the closest known type when one is a
// near miss (wrong casing, a dropped or swapped letter).
func NewUnknownActionError(context, kind, typ string, known []string) *CatalogError {
	e := &CatalogError{
		Code:    ErrCodeActionUnknown,
		Message: fmt.Sprintf("unknown %s type %q", kind, typ),
		Context: context,
	}
	if closest, ok := closestKnownType(typ, known); ok {
		return e.WithSuggestion(fmt.Sprintf("Did you mean %q?", closest))
	}
	return e.WithSuggestion(fmt.Sprintf("Known %s types: %s", kind, strings.Join(known, ", ")))
}

// closestKnownType finds a known type within two edits of the given one.
// Type names are short identifiers, so two edits covers the common
// dropped-letter and transposition typos without matching unrelated
// names.
func closestKnownType(typ string, known []string) (string, bool) {
	best := ""
	bestDist := 3
	for _, k := range known {
		if d := editDistance(strings.ToLower(typ), strings.ToLower(k)); d < bestDist {
			best, bestDist = k, d
		}
	}
	return best, best != ""
}

// editDistance is the Levenshtein distance over bytes; type names are
// ASCII identifiers.
func editDistance(a, b string) int {
	prev := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur := make([]int, len(b)+1)
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(cur[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev = cur
	}
	return prev[len(b)]
}

package astutil

import "fmt"

// SchemaStructureError reports a schema whose shape is outside the supported
// surface: extensions, input objects, mutation or subscription roots, a
// missing or ambiguous query root, or root fields that do not resolve to a
// composite type.
type SchemaStructureError struct {
	SourceID string // empty when no source attribution applies
	Reason   string
}

func (e *SchemaStructureError) Error() string {
	if e.SourceID == "" {
		return "invalid schema structure: " + e.Reason
	}
	return fmt.Sprintf("invalid schema structure in source %q: %s", e.SourceID, e.Reason)
}

// NameConflictError reports two entities competing for one name. Both sides
// are attached so the caller can point at the exact declarations to fix.
type NameConflictError struct {
	Name   string // the contested name
	First  string // the earlier owner, e.g. `type "Human" from source "a"`
	Second string // the later claimant
}

func (e *NameConflictError) Error() string {
	return fmt.Sprintf("name conflict on %q: %s collides with %s", e.Name, e.Second, e.First)
}

// InvalidNameError reports a name that is not a legal target: not a valid
// GraphQL identifier, or reserved by the double-underscore prefix.
type InvalidNameError struct {
	Name   string
	Reason string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid name %q: %s", e.Name, e.Reason)
}

// QueryValidationError reports a query outside the supported surface:
// fragments, multiple operations, non-query operations, or malformed
// traversals of stitch fields.
type QueryValidationError struct {
	Reason string
}

func (e *QueryValidationError) Error() string {
	return "invalid query: " + e.Reason
}

package rename

import (
	"fmt"

	astutil "github.com/hanpama/stitchgraph/internal/astutil"
	language "github.com/hanpama/stitchgraph/internal/language"
)

// Query rewrites a query written against a renamed schema back to the
// original schema's names using the reverse root-field map. Only root fields
// need rewriting: deeper selections use field names, which renaming never
// touches. The input document is left unchanged.
func Query(doc *language.QueryDocument, renamed *RenamedSchema) (*language.QueryDocument, error) {
	if len(doc.Fragments) > 0 {
		return nil, &astutil.QueryValidationError{Reason: "fragments are not supported"}
	}
	if len(doc.Operations) != 1 {
		return nil, &astutil.QueryValidationError{Reason: "exactly one operation is required"}
	}
	if doc.Operations[0].Operation != language.Query {
		return nil, &astutil.QueryValidationError{Reason: "only query operations are supported"}
	}

	out := astutil.CloneQueryDocument(doc)
	for _, sel := range out.Operations[0].SelectionSet {
		field, ok := sel.(*language.Field)
		if !ok {
			return nil, &astutil.QueryValidationError{Reason: "only field selections are allowed at the query root"}
		}
		original, ok := renamed.RootFieldToOriginal[field.Name]
		if !ok {
			return nil, &astutil.QueryValidationError{Reason: fmt.Sprintf("unknown root field %q", field.Name)}
		}
		if field.Alias == field.Name {
			field.Alias = original
		}
		field.Name = original
	}
	return out, nil
}

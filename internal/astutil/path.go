package astutil

import (
	"fmt"

	language "github.com/hanpama/stitchgraph/internal/language"
)

// FieldPath addresses one field inside a query operation as a sequence of
// selection indexes, one per nesting level.
type FieldPath []int

// FieldAtPath resolves path against the operation's selection tree.
func FieldAtPath(op *language.OperationDefinition, path FieldPath) (*language.Field, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("empty field path")
	}
	set := op.SelectionSet
	var field *language.Field
	for depth, idx := range path {
		if idx < 0 || idx >= len(set) {
			return nil, fmt.Errorf("field path %v: index %d out of range at depth %d", path, idx, depth)
		}
		f, ok := set[idx].(*language.Field)
		if !ok {
			return nil, fmt.Errorf("field path %v: selection at depth %d is not a field", path, depth)
		}
		field = f
		set = f.SelectionSet
	}
	return field, nil
}

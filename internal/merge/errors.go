package merge

import "fmt"

// InvalidEdgeError reports a cross-source edge declaration that does not
// resolve against the merged schema: an unknown source, a same-source pair,
// a dangling type or field, or a type bound to the wrong source.
type InvalidEdgeError struct {
	Edge   string
	Reason string
}

func (e *InvalidEdgeError) Error() string {
	return fmt.Sprintf("invalid cross-source edge %q: %s", e.Edge, e.Reason)
}

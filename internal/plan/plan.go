package plan

import (
	"fmt"

	astutil "github.com/hanpama/stitchgraph/internal/astutil"
	language "github.com/hanpama/stitchgraph/internal/language"
	merge "github.com/hanpama/stitchgraph/internal/merge"
	split "github.com/hanpama/stitchgraph/internal/split"
)

// SubQueryPlan mirrors a SubQueryNode with the join directives inserted:
// the child fragment's join field carries an @filter fed by the parent's
// @output column. Parents always execute before their children.
type SubQueryPlan struct {
	Query    *language.QueryDocument
	SourceID string
	Children []*SubQueryPlan
}

// OutputJoin names two output columns the executor must equate (or, for
// list-valued parent outputs, use as an "in collection" test) when joining
// rows across sub-query result sets.
type OutputJoin struct {
	ParentOutputName string `json:"parentOutputName"`
	ChildOutputName  string `json:"childOutputName"`
}

// QueryPlan is the executable plan handed to the external executor.
type QueryPlan struct {
	Root                    *SubQueryPlan
	IntermediateOutputNames []string
	OutputJoins             []OutputJoin
}

// InvariantError reports an internal defect: the split tree promised an
// @output the plan builder could not find exactly once. This signals a bug in
// the splitter, not malformed user input.
type InvariantError struct {
	Reason string
}

func (e *InvariantError) Error() string {
	return "internal invariant violation: " + e.Reason
}

// Build mirrors the split tree into a plan tree, inserting one @filter per
// parent-to-child connection and collecting the join descriptors. The split
// result is left unchanged.
func Build(result *split.Result) (*QueryPlan, error) {
	qp := &QueryPlan{
		IntermediateOutputNames: append([]string(nil), result.IntermediateOutputNames...),
	}
	root, err := qp.buildNode(result.Root)
	if err != nil {
		return nil, err
	}
	qp.Root = root
	return qp, nil
}

func (qp *QueryPlan) buildNode(node *split.SubQueryNode) (*SubQueryPlan, error) {
	p := &SubQueryPlan{
		Query:    astutil.CloneQueryDocument(node.Query),
		SourceID: node.SourceID,
	}
	for _, conn := range node.ChildConnections {
		parentOut, err := outputNameAt(node.Query, conn.SourceFieldPath)
		if err != nil {
			return nil, err
		}
		childOut, err := outputNameAt(conn.Child.Query, conn.SinkFieldPath)
		if err != nil {
			return nil, err
		}

		child, err := qp.buildNode(conn.Child)
		if err != nil {
			return nil, err
		}
		// The recorded path is stale inside the copied fragment; locate the
		// join field by its @output name instead, and insist on exactly one
		// match. The filter's runtime variable shares the parent's output
		// name by construction.
		sink, err := findOutputField(child.Query, childOut)
		if err != nil {
			return nil, err
		}
		sink.Directives = append(sink.Directives, filterDirective(parentOut))

		qp.OutputJoins = append(qp.OutputJoins, OutputJoin{
			ParentOutputName: parentOut,
			ChildOutputName:  childOut,
		})
		p.Children = append(p.Children, child)
	}
	return p, nil
}

func outputNameAt(doc *language.QueryDocument, path astutil.FieldPath) (string, error) {
	field, err := astutil.FieldAtPath(doc.Operations[0], path)
	if err != nil {
		return "", &InvariantError{Reason: err.Error()}
	}
	out := field.Directives.ForName(merge.DirectiveOutput)
	if out == nil {
		return "", &InvariantError{Reason: fmt.Sprintf("join field %q carries no @%s directive", field.Name, merge.DirectiveOutput)}
	}
	arg := out.Arguments.ForName(merge.ArgOutName)
	if arg == nil || arg.Value == nil || arg.Value.Raw == "" {
		return "", &InvariantError{Reason: fmt.Sprintf("@%s on join field %q has no %s", merge.DirectiveOutput, field.Name, merge.ArgOutName)}
	}
	return arg.Value.Raw, nil
}

func findOutputField(doc *language.QueryDocument, name string) (*language.Field, error) {
	var found []*language.Field
	var walk func(set language.SelectionSet)
	walk = func(set language.SelectionSet) {
		for _, sel := range set {
			field, ok := sel.(*language.Field)
			if !ok {
				continue
			}
			if out := field.Directives.ForName(merge.DirectiveOutput); out != nil {
				if arg := out.Arguments.ForName(merge.ArgOutName); arg != nil && arg.Value != nil && arg.Value.Raw == name {
					found = append(found, field)
				}
			}
			walk(field.SelectionSet)
		}
	}
	walk(doc.Operations[0].SelectionSet)
	if len(found) != 1 {
		return nil, &InvariantError{
			Reason: fmt.Sprintf("expected exactly one field with output %q in child fragment, found %d", name, len(found)),
		}
	}
	return found[0], nil
}

func filterDirective(variable string) *language.Directive {
	return &language.Directive{
		Name: merge.DirectiveFilter,
		Arguments: language.ArgumentList{
			&language.Argument{
				Name:  merge.ArgOpName,
				Value: &language.Value{Kind: language.StringValue, Raw: merge.FilterInCollection},
			},
			&language.Argument{
				Name: merge.ArgValue,
				Value: &language.Value{Kind: language.ListValue, Children: language.ChildValueList{
					&language.ChildValue{Value: &language.Value{Kind: language.StringValue, Raw: "$" + variable}},
				}},
			},
		},
	}
}

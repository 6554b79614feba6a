package plan_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	astutil "github.com/hanpama/stitchgraph/internal/astutil"
	language "github.com/hanpama/stitchgraph/internal/language"
	merge "github.com/hanpama/stitchgraph/internal/merge"
	plan "github.com/hanpama/stitchgraph/internal/plan"
	split "github.com/hanpama/stitchgraph/internal/split"
)

const humanSchema = `
schema { query: QueryA }
type QueryA { Human: Human }
type Human { id: String name: String }
`

const reviewSchema = `
schema { query: QueryB }
type QueryB { Review: Review }
type Review { authorId: String text: String }
`

func mergedFixture(t *testing.T) *merge.MergedSchema {
	t.Helper()
	parse := func(source string) *language.SchemaDocument {
		doc, err := language.ParseSchema("test.graphql", source)
		if err != nil {
			t.Fatalf("parse schema: %v", err)
		}
		return doc
	}
	merged, err := merge.Schemas([]merge.Source{
		{ID: "humans", Document: parse(humanSchema)},
		{ID: "reviews", Document: parse(reviewSchema)},
	}, []merge.Edge{{
		Name:     "human_reviews",
		Outbound: merge.FieldReference{SourceID: "humans", TypeName: "Human", FieldName: "id"},
		Inbound:  merge.FieldReference{SourceID: "reviews", TypeName: "Review", FieldName: "authorId"},
	}})
	if err != nil {
		t.Fatalf("merge fixture: %v", err)
	}
	return merged
}

func splitFixture(t *testing.T, merged *merge.MergedSchema, query string) *split.Result {
	t.Helper()
	doc, err := language.ParseQuery(query)
	if err != nil {
		t.Fatalf("parse query: %v", err)
	}
	result, err := split.Query(doc, merged)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	return result
}

// findByOutput walks a fragment for the single field carrying the named
// @output.
func findByOutput(t *testing.T, doc *language.QueryDocument, name string) *language.Field {
	t.Helper()
	var found *language.Field
	var walk func(set language.SelectionSet)
	walk = func(set language.SelectionSet) {
		for _, sel := range set {
			field, ok := sel.(*language.Field)
			if !ok {
				continue
			}
			if out := field.Directives.ForName(merge.DirectiveOutput); out != nil {
				if arg := out.Arguments.ForName(merge.ArgOutName); arg != nil && arg.Value.Raw == name {
					if found != nil {
						t.Fatalf("output %q found more than once", name)
					}
					found = field
				}
			}
			walk(field.SelectionSet)
		}
	}
	walk(doc.Operations[0].SelectionSet)
	if found == nil {
		t.Fatalf("output %q not found", name)
	}
	return found
}

func TestBuildWiresJoin(t *testing.T) {
	merged := mergedFixture(t)
	result := splitFixture(t, merged, `{ Human { name out_human_reviews { text } } }`)

	qp, err := plan.Build(result)
	if err != nil {
		t.Fatalf("plan build failed: %v", err)
	}
	if qp.Root.SourceID != "humans" {
		t.Errorf("root source = %q, want humans", qp.Root.SourceID)
	}
	if len(qp.Root.Children) != 1 {
		t.Fatalf("root children = %d, want 1", len(qp.Root.Children))
	}
	if len(qp.OutputJoins) != 1 {
		t.Fatalf("output joins = %d, want 1", len(qp.OutputJoins))
	}
	join := qp.OutputJoins[0]

	// The parent fragment exports the outbound join value under the parent
	// output name; the child's sink field filters on that same name.
	parentField := findByOutput(t, qp.Root.Query, join.ParentOutputName)
	if parentField.Name != "id" {
		t.Errorf("parent join field = %q, want id", parentField.Name)
	}
	sink := findByOutput(t, qp.Root.Children[0].Query, join.ChildOutputName)
	if sink.Name != "authorId" {
		t.Errorf("sink join field = %q, want authorId", sink.Name)
	}
	filter := sink.Directives.ForName(merge.DirectiveFilter)
	if filter == nil {
		t.Fatal("sink field has no @filter directive")
	}
	if got := filter.Arguments.ForName(merge.ArgOpName).Value.Raw; got != merge.FilterInCollection {
		t.Errorf("filter op = %q, want %q", got, merge.FilterInCollection)
	}
	value := filter.Arguments.ForName(merge.ArgValue).Value
	if len(value.Children) != 1 {
		t.Fatalf("filter value children = %d, want 1", len(value.Children))
	}
	if got, want := value.Children[0].Value.Raw, "$"+join.ParentOutputName; got != want {
		t.Errorf("filter variable = %q, want %q", got, want)
	}

	if diff := cmp.Diff(result.IntermediateOutputNames, qp.IntermediateOutputNames); diff != "" {
		t.Errorf("intermediate outputs not carried over (-want +got):\n%s", diff)
	}
}

func TestBuildChainCollectsAllJoins(t *testing.T) {
	itemSchema := `
schema { query: QueryC }
type QueryC { Item: Item }
type Item { sku: String }
`
	parse := func(source string) *language.SchemaDocument {
		doc, err := language.ParseSchema("test.graphql", source)
		if err != nil {
			t.Fatalf("parse schema: %v", err)
		}
		return doc
	}
	merged, err := merge.Schemas([]merge.Source{
		{ID: "humans", Document: parse(humanSchema)},
		{ID: "reviews", Document: parse(reviewSchema)},
		{ID: "items", Document: parse(itemSchema)},
	}, []merge.Edge{
		{
			Name:     "human_reviews",
			Outbound: merge.FieldReference{SourceID: "humans", TypeName: "Human", FieldName: "id"},
			Inbound:  merge.FieldReference{SourceID: "reviews", TypeName: "Review", FieldName: "authorId"},
		},
		{
			Name:     "review_items",
			Outbound: merge.FieldReference{SourceID: "reviews", TypeName: "Review", FieldName: "text"},
			Inbound:  merge.FieldReference{SourceID: "items", TypeName: "Item", FieldName: "sku"},
		},
	})
	if err != nil {
		t.Fatalf("merge fixture: %v", err)
	}
	result := splitFixture(t, merged, `{ Human { out_human_reviews { text out_review_items { sku } } } }`)

	qp, err := plan.Build(result)
	if err != nil {
		t.Fatalf("plan build failed: %v", err)
	}
	if len(qp.OutputJoins) != 2 {
		t.Fatalf("output joins = %d, want 2", len(qp.OutputJoins))
	}
	mid := qp.Root.Children[0]
	if len(mid.Children) != 1 {
		t.Fatalf("middle children = %d, want 1", len(mid.Children))
	}
	for _, join := range qp.OutputJoins {
		if join.ParentOutputName == join.ChildOutputName {
			t.Errorf("join uses one name for both sides: %+v", join)
		}
	}
}

func TestBuildLeavesSplitResultUnchanged(t *testing.T) {
	merged := mergedFixture(t)
	result := splitFixture(t, merged, `{ Human { out_human_reviews { text } } }`)
	child := result.Root.ChildConnections[0].Child
	beforeParent := language.PrintQuery(result.Root.Query)
	beforeChild := language.PrintQuery(child.Query)

	if _, err := plan.Build(result); err != nil {
		t.Fatalf("plan build failed: %v", err)
	}
	if got := language.PrintQuery(result.Root.Query); got != beforeParent {
		t.Errorf("plan build mutated the parent fragment:\n%s", cmp.Diff(beforeParent, got))
	}
	if got := language.PrintQuery(child.Query); got != beforeChild {
		t.Errorf("plan build mutated the child fragment:\n%s", cmp.Diff(beforeChild, got))
	}
}

func TestBuildInvariantViolations(t *testing.T) {
	t.Run("missing_output_at_path", func(t *testing.T) {
		merged := mergedFixture(t)
		result := splitFixture(t, merged, `{ Human { out_human_reviews { text } } }`)
		conn := result.Root.ChildConnections[0]
		field, err := astutil.FieldAtPath(result.Root.Query.Operations[0], conn.SourceFieldPath)
		if err != nil {
			t.Fatalf("resolve source path: %v", err)
		}
		field.Directives = nil

		_, err = plan.Build(result)
		var ierr *plan.InvariantError
		if !errors.As(err, &ierr) {
			t.Fatalf("expected InvariantError, got %v", err)
		}
	})

	t.Run("duplicate_output_in_child", func(t *testing.T) {
		parseQuery := func(source string) *language.QueryDocument {
			doc, err := language.ParseQuery(source)
			if err != nil {
				t.Fatalf("parse query: %v", err)
			}
			return doc
		}
		parent := &split.SubQueryNode{
			SourceID: "a",
			Query:    parseQuery(`{ A { id @output(out_name: "p") } }`),
		}
		child := &split.SubQueryNode{
			SourceID: "b",
			Query:    parseQuery(`{ B { x @output(out_name: "c") y @output(out_name: "c") } }`),
		}
		conn := &split.Connection{
			Parent:          parent,
			Child:           child,
			SourceFieldPath: astutil.FieldPath{0, 0},
			SinkFieldPath:   astutil.FieldPath{0, 0},
		}
		parent.ChildConnections = []*split.Connection{conn}
		child.ParentConnection = conn

		_, err := plan.Build(&split.Result{Root: parent})
		var ierr *plan.InvariantError
		if !errors.As(err, &ierr) {
			t.Fatalf("expected InvariantError, got %v", err)
		}
	})
}

func TestDescribe(t *testing.T) {
	merged := mergedFixture(t)
	result := splitFixture(t, merged, `{ Human { name out_human_reviews { text } } }`)
	qp, err := plan.Build(result)
	if err != nil {
		t.Fatalf("plan build failed: %v", err)
	}

	desc := qp.Describe()
	if desc.Root.SourceID != "humans" {
		t.Errorf("described root source = %q, want humans", desc.Root.SourceID)
	}
	if len(desc.Root.Children) != 1 {
		t.Fatalf("described children = %d, want 1", len(desc.Root.Children))
	}
	if desc.Root.Query == "" || desc.Root.Children[0].Query == "" {
		t.Error("described fragments must carry printed query text")
	}
	if diff := cmp.Diff(qp.OutputJoins, desc.OutputJoins); diff != "" {
		t.Errorf("described joins mismatch (-want +got):\n%s", diff)
	}
}

package merge_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	astutil "github.com/hanpama/stitchgraph/internal/astutil"
	language "github.com/hanpama/stitchgraph/internal/language"
	merge "github.com/hanpama/stitchgraph/internal/merge"
	rename "github.com/hanpama/stitchgraph/internal/rename"
)

const schemaA = `
schema { query: QueryA }
type QueryA { Human: Human }
type Human { id: String name: String }
`

const schemaB = `
schema { query: QueryB }
type QueryB { Droid: Droid }
type Droid { height: Height }
enum Height { TALL SHORT }
`

const schemaReviews = `
schema { query: QueryR }
type QueryR { Review: Review }
type Review { authorId: String text: String }
`

func mustParseSchema(t *testing.T, source string) *language.SchemaDocument {
	t.Helper()
	doc, err := language.ParseSchema("test.graphql", source)
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	return doc
}

func TestMergeTwoSources(t *testing.T) {
	merged, err := merge.Schemas([]merge.Source{
		{ID: "a", Document: mustParseSchema(t, schemaA)},
		{ID: "b", Document: mustParseSchema(t, schemaB)},
	}, nil)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	wantSources := map[string]string{"Human": "a", "Droid": "b", "Height": "b"}
	if diff := cmp.Diff(wantSources, merged.TypeSources); diff != "" {
		t.Errorf("type sources mismatch (-want +got):\n%s", diff)
	}

	root := merged.Definition(merge.RootTypeName)
	if root == nil {
		t.Fatalf("merged schema has no root type")
	}
	if len(root.Fields) != 2 {
		t.Fatalf("expected 2 root fields, got %d", len(root.Fields))
	}
	for _, want := range []struct{ field, typeName string }{
		{"Human", "Human"},
		{"Droid", "Droid"},
	} {
		field := root.Fields.ForName(want.field)
		if field == nil {
			t.Fatalf("root field %q missing", want.field)
		}
		if got := astutil.UnwrapType(field.Type); got != want.typeName {
			t.Errorf("root field %q resolves to %q, want %q", want.field, got, want.typeName)
		}
	}
}

func TestMergeLeavesInputUnchanged(t *testing.T) {
	docA := mustParseSchema(t, schemaA)
	docB := mustParseSchema(t, schemaB)
	beforeA := language.PrintSchema(docA)
	beforeB := language.PrintSchema(docB)

	_, err := merge.Schemas([]merge.Source{
		{ID: "a", Document: docA},
		{ID: "b", Document: docB},
	}, []merge.Edge{})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	if got := language.PrintSchema(docA); got != beforeA {
		t.Errorf("merge mutated source a:\n%s", cmp.Diff(beforeA, got))
	}
	if got := language.PrintSchema(docB); got != beforeB {
		t.Errorf("merge mutated source b:\n%s", cmp.Diff(beforeB, got))
	}
}

func TestMergeRenamedSources(t *testing.T) {
	renamedA, err := rename.Schema(mustParseSchema(t, schemaA), rename.FromMap(map[string]string{"Human": "NewHuman"}))
	if err != nil {
		t.Fatalf("rename a: %v", err)
	}
	renamedB, err := rename.Schema(mustParseSchema(t, schemaB), rename.FromMap(map[string]string{"Droid": "NewDroid"}))
	if err != nil {
		t.Fatalf("rename b: %v", err)
	}
	merged, err := merge.Schemas([]merge.Source{
		{ID: "a", Document: renamedA.Document},
		{ID: "b", Document: renamedB.Document},
	}, nil)
	if err != nil {
		t.Fatalf("merge of renamed sources failed: %v", err)
	}

	want := map[string]string{"NewHuman": "a", "NewDroid": "b", "Height": "b"}
	if diff := cmp.Diff(want, merged.TypeSources); diff != "" {
		t.Errorf("type sources mismatch (-want +got):\n%s", diff)
	}
	if got := renamedA.TypeNameToOriginal["NewHuman"]; got != "Human" {
		t.Errorf("reverse map for NewHuman = %q, want Human", got)
	}
	if got := renamedB.TypeNameToOriginal["NewDroid"]; got != "Droid" {
		t.Errorf("reverse map for NewDroid = %q, want Droid", got)
	}
}

func TestMergeNoSources(t *testing.T) {
	if _, err := merge.Schemas(nil, nil); err == nil {
		t.Fatal("expected error for empty source list")
	}
}

func TestMergeDuplicateSourceID(t *testing.T) {
	_, err := merge.Schemas([]merge.Source{
		{ID: "a", Document: mustParseSchema(t, schemaA)},
		{ID: "a", Document: mustParseSchema(t, schemaB)},
	}, nil)
	if err == nil || !strings.Contains(err.Error(), "duplicate source id") {
		t.Fatalf("expected duplicate source id error, got %v", err)
	}
}

func TestMergeNameConflicts(t *testing.T) {
	defFor := func(kind, name string) string {
		switch kind {
		case "object":
			return fmt.Sprintf("type %s { id: String }", name)
		case "interface":
			return fmt.Sprintf("interface %s { id: String }", name)
		case "enum":
			return fmt.Sprintf("enum %s { X }", name)
		case "scalar":
			return fmt.Sprintf("scalar %s", name)
		}
		panic("unknown kind " + kind)
	}
	sourceFor := func(n int, kind string) string {
		return fmt.Sprintf(`
schema { query: Query%d }
type Query%d { Anchor%d: Anchor%d }
type Anchor%d { id: String }
%s
`, n, n, n, n, n, defFor(kind, "Dup"))
	}

	for _, first := range []string{"object", "interface", "enum"} {
		for _, second := range []string{"object", "interface", "enum", "scalar"} {
			t.Run(first+"_vs_"+second, func(t *testing.T) {
				_, err := merge.Schemas([]merge.Source{
					{ID: "a", Document: mustParseSchema(t, sourceFor(1, first))},
					{ID: "b", Document: mustParseSchema(t, sourceFor(2, second))},
				}, nil)
				var conflict *astutil.NameConflictError
				if !errors.As(err, &conflict) {
					t.Fatalf("expected NameConflictError, got %v", err)
				}
				if conflict.Name != "Dup" {
					t.Errorf("conflict reported for %q, want %q", conflict.Name, "Dup")
				}
			})
		}
	}
}

func TestMergeReservedRootTypeName(t *testing.T) {
	for _, tc := range []struct {
		name   string
		schema string
	}{
		{
			"object_named_like_merged_root",
			`
schema { query: Q }
type Q { Thing: Thing }
type Thing { id: String owner: RootQuery }
type RootQuery { id: String }
`,
		},
		{
			"scalar_named_like_merged_root",
			`
schema { query: Q }
type Q { Thing: Thing }
type Thing { at: RootQuery }
scalar RootQuery
`,
		},
		{
			"enum_named_like_merged_root",
			`
schema { query: Q }
type Q { Thing: Thing }
type Thing { kind: RootQuery }
enum RootQuery { A B }
`,
		},
		{
			"source_root_references_itself",
			`
schema { query: RootQuery }
type RootQuery { Me: RootQuery }
`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := merge.Schemas([]merge.Source{
				{ID: "a", Document: mustParseSchema(t, tc.schema)},
			}, nil)
			var conflict *astutil.NameConflictError
			if !errors.As(err, &conflict) {
				t.Fatalf("expected NameConflictError, got %v", err)
			}
			if conflict.Name != merge.RootTypeName {
				t.Errorf("conflict reported for %q, want %q", conflict.Name, merge.RootTypeName)
			}
		})
	}
}

func TestMergeRenameOntoRootTypeName(t *testing.T) {
	renamed, err := rename.Schema(mustParseSchema(t, schemaA), rename.FromMap(map[string]string{"Human": "RootQuery"}))
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	_, err = merge.Schemas([]merge.Source{{ID: "a", Document: renamed.Document}}, nil)
	var conflict *astutil.NameConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected NameConflictError, got %v", err)
	}
	if conflict.Name != merge.RootTypeName {
		t.Errorf("conflict reported for %q, want %q", conflict.Name, merge.RootTypeName)
	}
}

func TestMergeRootFieldConflict(t *testing.T) {
	other := `
schema { query: QueryX }
type QueryX { Human: Person }
type Person { id: String }
`
	_, err := merge.Schemas([]merge.Source{
		{ID: "a", Document: mustParseSchema(t, schemaA)},
		{ID: "b", Document: mustParseSchema(t, other)},
	}, nil)
	var conflict *astutil.NameConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected NameConflictError for duplicate root field, got %v", err)
	}
	if conflict.Name != "Human" {
		t.Errorf("conflict reported for %q, want %q", conflict.Name, "Human")
	}
}

func TestMergeScalarDeduplication(t *testing.T) {
	withScalar := func(n int) string {
		return fmt.Sprintf(`
schema { query: Query%d }
type Query%d { Anchor%d: Anchor%d }
type Anchor%d { at: Date }
scalar Date
`, n, n, n, n, n)
	}
	merged, err := merge.Schemas([]merge.Source{
		{ID: "a", Document: mustParseSchema(t, withScalar(1))},
		{ID: "b", Document: mustParseSchema(t, withScalar(2))},
	}, nil)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	count := 0
	for _, def := range merged.Document.Definitions {
		if def.Kind == language.Scalar && def.Name == "Date" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one Date scalar, got %d", count)
	}
	if _, ok := merged.TypeSources["Date"]; ok {
		t.Error("scalars must not appear in the type-to-source map")
	}
}

func TestMergeStructuralErrorCarriesSourceID(t *testing.T) {
	bad := `
type QueryA { Human: Human }
type Human { id: String }
`
	_, err := merge.Schemas([]merge.Source{
		{ID: "broken", Document: mustParseSchema(t, bad)},
	}, nil)
	var serr *astutil.SchemaStructureError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SchemaStructureError, got %v", err)
	}
	if serr.SourceID != "broken" {
		t.Errorf("structure error attributed to %q, want %q", serr.SourceID, "broken")
	}
}

func TestMergeDirectiveConflict(t *testing.T) {
	withDirective := func(n int, arg string) string {
		return fmt.Sprintf(`
schema { query: Query%d }
type Query%d { Anchor%d: Anchor%d }
type Anchor%d { id: String }
directive @tag(%s) on FIELD
`, n, n, n, n, n, arg)
	}
	_, err := merge.Schemas([]merge.Source{
		{ID: "a", Document: mustParseSchema(t, withDirective(1, "name: String"))},
		{ID: "b", Document: mustParseSchema(t, withDirective(2, "name: Int"))},
	}, nil)
	var conflict *astutil.NameConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected NameConflictError for differing directive, got %v", err)
	}

	// Identical re-definitions are deduplicated silently.
	_, err = merge.Schemas([]merge.Source{
		{ID: "a", Document: mustParseSchema(t, withDirective(1, "name: String"))},
		{ID: "b", Document: mustParseSchema(t, withDirective(2, "name: String"))},
	}, nil)
	if err != nil {
		t.Fatalf("identical directives should merge cleanly, got %v", err)
	}
}

func mergeWithEdge(t *testing.T, edge merge.Edge) (*merge.MergedSchema, error) {
	t.Helper()
	return merge.Schemas([]merge.Source{
		{ID: "a", Document: mustParseSchema(t, schemaA)},
		{ID: "r", Document: mustParseSchema(t, schemaReviews)},
	}, []merge.Edge{edge})
}

func TestMergeEdge(t *testing.T) {
	merged, err := mergeWithEdge(t, merge.Edge{
		Name:     "human_reviews",
		Outbound: merge.FieldReference{SourceID: "a", TypeName: "Human", FieldName: "id"},
		Inbound:  merge.FieldReference{SourceID: "r", TypeName: "Review", FieldName: "authorId"},
	})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	human := merged.Definition("Human")
	outField := human.Fields.ForName("out_human_reviews")
	if outField == nil {
		t.Fatal("outbound synthetic field missing")
	}
	if got := astutil.UnwrapType(outField.Type); got != "Review" {
		t.Errorf("outbound field resolves to %q, want Review", got)
	}
	stitch := outField.Directives.ForName(merge.DirectiveStitch)
	if stitch == nil {
		t.Fatal("outbound field has no stitch directive")
	}
	if got := stitch.Arguments.ForName(merge.ArgSourceField).Value.Raw; got != "id" {
		t.Errorf("source_field = %q, want id", got)
	}
	if got := stitch.Arguments.ForName(merge.ArgSinkField).Value.Raw; got != "authorId" {
		t.Errorf("sink_field = %q, want authorId", got)
	}

	review := merged.Definition("Review")
	inField := review.Fields.ForName("in_human_reviews")
	if inField == nil {
		t.Fatal("inbound synthetic field missing")
	}
	if got := astutil.UnwrapType(inField.Type); got != "Human" {
		t.Errorf("inbound field resolves to %q, want Human", got)
	}
	inStitch := inField.Directives.ForName(merge.DirectiveStitch)
	if got := inStitch.Arguments.ForName(merge.ArgSourceField).Value.Raw; got != "authorId" {
		t.Errorf("inbound source_field = %q, want authorId", got)
	}
}

func TestMergeOutEdgeOnly(t *testing.T) {
	merged, err := mergeWithEdge(t, merge.Edge{
		Name:        "human_reviews",
		Outbound:    merge.FieldReference{SourceID: "a", TypeName: "Human", FieldName: "id"},
		Inbound:     merge.FieldReference{SourceID: "r", TypeName: "Review", FieldName: "authorId"},
		OutEdgeOnly: true,
	})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if merged.Definition("Human").Fields.ForName("out_human_reviews") == nil {
		t.Error("outbound synthetic field missing")
	}
	if merged.Definition("Review").Fields.ForName("in_human_reviews") != nil {
		t.Error("inbound synthetic field present despite out_edge_only")
	}
}

func TestMergeInvalidEdges(t *testing.T) {
	ref := func(source, typeName, field string) merge.FieldReference {
		return merge.FieldReference{SourceID: source, TypeName: typeName, FieldName: field}
	}
	for _, tc := range []struct {
		name    string
		edge    merge.Edge
		wantErr string
	}{
		{
			name: "unknown_source",
			edge: merge.Edge{
				Name:     "e",
				Outbound: ref("nope", "Human", "id"),
				Inbound:  ref("r", "Review", "authorId"),
			},
			wantErr: "unknown source",
		},
		{
			name: "same_source",
			edge: merge.Edge{
				Name:     "e",
				Outbound: ref("a", "Human", "id"),
				Inbound:  ref("a", "Human", "id"),
			},
			wantErr: "must cross sources",
		},
		{
			name: "unknown_type",
			edge: merge.Edge{
				Name:     "e",
				Outbound: ref("a", "Robot", "id"),
				Inbound:  ref("r", "Review", "authorId"),
			},
			wantErr: "unknown type",
		},
		{
			name: "wrong_source_for_type",
			edge: merge.Edge{
				Name:     "e",
				Outbound: ref("r", "Human", "id"),
				Inbound:  ref("a", "Review", "authorId"),
			},
			wantErr: "belongs to source",
		},
		{
			name: "unknown_field",
			edge: merge.Edge{
				Name:     "e",
				Outbound: ref("a", "Human", "age"),
				Inbound:  ref("r", "Review", "authorId"),
			},
			wantErr: "unknown field",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := mergeWithEdge(t, tc.edge)
			var edgeErr *merge.InvalidEdgeError
			if !errors.As(err, &edgeErr) {
				t.Fatalf("expected InvalidEdgeError, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestMergeDuplicateEdgeName(t *testing.T) {
	edge := merge.Edge{
		Name:     "human_reviews",
		Outbound: merge.FieldReference{SourceID: "a", TypeName: "Human", FieldName: "id"},
		Inbound:  merge.FieldReference{SourceID: "r", TypeName: "Review", FieldName: "authorId"},
	}
	_, err := merge.Schemas([]merge.Source{
		{ID: "a", Document: mustParseSchema(t, schemaA)},
		{ID: "r", Document: mustParseSchema(t, schemaReviews)},
	}, []merge.Edge{edge, edge})
	var conflict *astutil.NameConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected NameConflictError for duplicate edge, got %v", err)
	}
	if conflict.Name != "out_human_reviews" {
		t.Errorf("conflict reported for %q, want out_human_reviews", conflict.Name)
	}
}

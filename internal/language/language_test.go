package language_test

import (
	"strings"
	"testing"

	language "github.com/hanpama/stitchgraph/internal/language"
)

func TestSchemaRoundTrip(t *testing.T) {
	source := `
schema { query: Query }
type Query { Human: Human }
type Human { id: String name: String }
`
	doc, err := language.ParseSchema("test.graphql", source)
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	printed := language.PrintSchema(doc)
	for _, want := range []string{"schema {", "query: Query", "type Human"} {
		if !strings.Contains(printed, want) {
			t.Errorf("printed schema missing %q:\n%s", want, printed)
		}
	}

	reparsed, err := language.ParseSchema("printed.graphql", printed)
	if err != nil {
		t.Fatalf("reparse printed schema: %v", err)
	}
	if got := language.PrintSchema(reparsed); got != printed {
		t.Errorf("printing is not stable:\nfirst:\n%s\nsecond:\n%s", printed, got)
	}
}

func TestQueryRoundTrip(t *testing.T) {
	doc, err := language.ParseQuery(`{ Human { id @output(out_name: "hid") } }`)
	if err != nil {
		t.Fatalf("parse query: %v", err)
	}
	printed := language.PrintQuery(doc)
	for _, want := range []string{"Human", "@output", "hid"} {
		if !strings.Contains(printed, want) {
			t.Errorf("printed query missing %q:\n%s", want, printed)
		}
	}
	if _, err := language.ParseQuery(printed); err != nil {
		t.Errorf("printed query does not reparse: %v", err)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := language.ParseSchema("bad.graphql", "type {"); err == nil {
		t.Error("expected schema parse error")
	}
	if _, err := language.ParseQuery("{ Human {"); err == nil {
		t.Error("expected query parse error")
	}
}

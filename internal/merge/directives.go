package merge

import (
	language "github.com/hanpama/stitchgraph/internal/language"
)

// Directive vocabulary interpreted by the stitching compiler. @stitch is
// descriptive metadata on synthetic edge fields; @output and @filter are the
// join-wiring mechanism inserted into sub-queries.
const (
	DirectiveStitch = "stitch"
	DirectiveOutput = "output"
	DirectiveFilter = "filter"

	ArgSourceField = "source_field"
	ArgSinkField   = "sink_field"
	ArgOutName     = "out_name"
	ArgOpName      = "op_name"
	ArgValue       = "value"

	// FilterInCollection is the @filter operation used to feed a parent
	// output column into a child sub-query.
	FilterInCollection = "in_collection"
)

// OutEdgePrefix and InEdgePrefix name the synthetic traversal fields created
// for a cross-source edge.
const (
	OutEdgePrefix = "out_"
	InEdgePrefix  = "in_"
)

func builtinDirectiveDefinitions() []*language.DirectiveDefinition {
	return []*language.DirectiveDefinition{
		{
			Name: DirectiveStitch,
			Arguments: []*language.ArgumentDefinition{
				{Name: ArgSourceField, Type: language.NonNullNamedType("String")},
				{Name: ArgSinkField, Type: language.NonNullNamedType("String")},
			},
			Locations: []language.DirectiveLocation{language.LocationFieldDefinition},
		},
		{
			Name: DirectiveOutput,
			Arguments: []*language.ArgumentDefinition{
				{Name: ArgOutName, Type: language.NonNullNamedType("String")},
			},
			Locations: []language.DirectiveLocation{language.LocationField},
		},
		{
			Name: DirectiveFilter,
			Arguments: []*language.ArgumentDefinition{
				{Name: ArgOpName, Type: language.NonNullNamedType("String")},
				{Name: ArgValue, Type: language.ListOfNamedType("String")},
			},
			Locations: []language.DirectiveLocation{language.LocationField},
		},
	}
}

func stitchDirective(sourceField, sinkField string) *language.Directive {
	return &language.Directive{
		Name: DirectiveStitch,
		Arguments: language.ArgumentList{
			&language.Argument{Name: ArgSourceField, Value: &language.Value{Kind: language.StringValue, Raw: sourceField}},
			&language.Argument{Name: ArgSinkField, Value: &language.Value{Kind: language.StringValue, Raw: sinkField}},
		},
	}
}

// directiveDefinitionsEqual compares two directive definitions structurally.
// Sources may each carry definitions of the shared stitching vocabulary; a
// later definition is only accepted if it agrees with the first one.
func directiveDefinitionsEqual(a, b *language.DirectiveDefinition) bool {
	if a.Name != b.Name || a.IsRepeatable != b.IsRepeatable {
		return false
	}
	if len(a.Locations) != len(b.Locations) || len(a.Arguments) != len(b.Arguments) {
		return false
	}
	for i := range a.Locations {
		if a.Locations[i] != b.Locations[i] {
			return false
		}
	}
	for i := range a.Arguments {
		if !argumentDefinitionsEqual(a.Arguments[i], b.Arguments[i]) {
			return false
		}
	}
	return true
}

func argumentDefinitionsEqual(a, b *language.ArgumentDefinition) bool {
	if a.Name != b.Name || a.Type.String() != b.Type.String() {
		return false
	}
	return valuesEqual(a.DefaultValue, b.DefaultValue)
}

func valuesEqual(a, b *language.Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Raw != b.Raw || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if a.Children[i].Name != b.Children[i].Name {
			return false
		}
		if !valuesEqual(a.Children[i].Value, b.Children[i].Value) {
			return false
		}
	}
	return true
}

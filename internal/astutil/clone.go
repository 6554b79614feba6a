package astutil

import (
	language "github.com/hanpama/stitchgraph/internal/language"
)

// Structural deep copies. Every compiler entry point clones its input at the
// boundary so callers keep sole ownership of the trees they pass in.

func CloneSchemaDocument(doc *language.SchemaDocument) *language.SchemaDocument {
	if doc == nil {
		return nil
	}
	out := &language.SchemaDocument{Position: doc.Position}
	for _, s := range doc.Schema {
		out.Schema = append(out.Schema, cloneSchemaDefinition(s))
	}
	for _, s := range doc.SchemaExtension {
		out.SchemaExtension = append(out.SchemaExtension, cloneSchemaDefinition(s))
	}
	for _, d := range doc.Directives {
		out.Directives = append(out.Directives, CloneDirectiveDefinition(d))
	}
	for _, d := range doc.Definitions {
		out.Definitions = append(out.Definitions, CloneDefinition(d))
	}
	for _, d := range doc.Extensions {
		out.Extensions = append(out.Extensions, CloneDefinition(d))
	}
	return out
}

func cloneSchemaDefinition(def *language.SchemaDefinition) *language.SchemaDefinition {
	out := &language.SchemaDefinition{
		Description: def.Description,
		Directives:  CloneDirectiveList(def.Directives),
		Position:    def.Position,
	}
	for _, opType := range def.OperationTypes {
		c := *opType
		out.OperationTypes = append(out.OperationTypes, &c)
	}
	return out
}

func CloneDefinition(def *language.Definition) *language.Definition {
	out := &language.Definition{
		Kind:        def.Kind,
		Description: def.Description,
		Name:        def.Name,
		Directives:  CloneDirectiveList(def.Directives),
		Interfaces:  append([]string(nil), def.Interfaces...),
		Types:       append([]string(nil), def.Types...),
		Position:    def.Position,
		BuiltIn:     def.BuiltIn,
	}
	for _, field := range def.Fields {
		out.Fields = append(out.Fields, CloneFieldDefinition(field))
	}
	for _, val := range def.EnumValues {
		out.EnumValues = append(out.EnumValues, &language.EnumValueDefinition{
			Description: val.Description,
			Name:        val.Name,
			Directives:  CloneDirectiveList(val.Directives),
			Position:    val.Position,
		})
	}
	return out
}

func CloneFieldDefinition(field *language.FieldDefinition) *language.FieldDefinition {
	return &language.FieldDefinition{
		Description:  field.Description,
		Name:         field.Name,
		Arguments:    cloneArgumentDefinitions(field.Arguments),
		DefaultValue: cloneValue(field.DefaultValue),
		Type:         CloneType(field.Type),
		Directives:   CloneDirectiveList(field.Directives),
		Position:     field.Position,
	}
}

func CloneDirectiveDefinition(def *language.DirectiveDefinition) *language.DirectiveDefinition {
	return &language.DirectiveDefinition{
		Description:  def.Description,
		Name:         def.Name,
		Arguments:    cloneArgumentDefinitions(def.Arguments),
		IsRepeatable: def.IsRepeatable,
		Locations:    append([]language.DirectiveLocation(nil), def.Locations...),
		Position:     def.Position,
	}
}

func cloneArgumentDefinitions(args []*language.ArgumentDefinition) []*language.ArgumentDefinition {
	var out []*language.ArgumentDefinition
	for _, arg := range args {
		out = append(out, &language.ArgumentDefinition{
			Description:  arg.Description,
			Name:         arg.Name,
			DefaultValue: cloneValue(arg.DefaultValue),
			Type:         CloneType(arg.Type),
			Directives:   CloneDirectiveList(arg.Directives),
			Position:     arg.Position,
		})
	}
	return out
}

func CloneType(t *language.Type) *language.Type {
	if t == nil {
		return nil
	}
	return &language.Type{
		NamedType: t.NamedType,
		Elem:      CloneType(t.Elem),
		NonNull:   t.NonNull,
		Position:  t.Position,
	}
}

func CloneDirectiveList(list language.DirectiveList) language.DirectiveList {
	var out language.DirectiveList
	for _, d := range list {
		out = append(out, &language.Directive{
			Name:      d.Name,
			Arguments: cloneArguments(d.Arguments),
			Position:  d.Position,
			Location:  d.Location,
		})
	}
	return out
}

func cloneArguments(args language.ArgumentList) language.ArgumentList {
	var out language.ArgumentList
	for _, arg := range args {
		out = append(out, &language.Argument{
			Name:     arg.Name,
			Value:    cloneValue(arg.Value),
			Position: arg.Position,
		})
	}
	return out
}

func cloneValue(v *language.Value) *language.Value {
	if v == nil {
		return nil
	}
	out := &language.Value{
		Raw:      v.Raw,
		Kind:     v.Kind,
		Position: v.Position,
	}
	for _, child := range v.Children {
		out.Children = append(out.Children, &language.ChildValue{
			Name:     child.Name,
			Value:    cloneValue(child.Value),
			Position: child.Position,
		})
	}
	return out
}

func CloneQueryDocument(doc *language.QueryDocument) *language.QueryDocument {
	if doc == nil {
		return nil
	}
	out := &language.QueryDocument{Position: doc.Position}
	for _, op := range doc.Operations {
		out.Operations = append(out.Operations, CloneOperation(op))
	}
	for _, frag := range doc.Fragments {
		out.Fragments = append(out.Fragments, &language.FragmentDefinition{
			Name:          frag.Name,
			TypeCondition: frag.TypeCondition,
			Directives:    CloneDirectiveList(frag.Directives),
			SelectionSet:  CloneSelectionSet(frag.SelectionSet),
			Position:      frag.Position,
		})
	}
	return out
}

func CloneOperation(op *language.OperationDefinition) *language.OperationDefinition {
	out := &language.OperationDefinition{
		Operation:    op.Operation,
		Name:         op.Name,
		Directives:   CloneDirectiveList(op.Directives),
		SelectionSet: CloneSelectionSet(op.SelectionSet),
		Position:     op.Position,
	}
	for _, vd := range op.VariableDefinitions {
		out.VariableDefinitions = append(out.VariableDefinitions, &language.VariableDefinition{
			Variable:     vd.Variable,
			Type:         CloneType(vd.Type),
			DefaultValue: cloneValue(vd.DefaultValue),
			Directives:   CloneDirectiveList(vd.Directives),
			Position:     vd.Position,
		})
	}
	return out
}

func CloneSelectionSet(set language.SelectionSet) language.SelectionSet {
	var out language.SelectionSet
	for _, sel := range set {
		switch s := sel.(type) {
		case *language.Field:
			out = append(out, CloneField(s))
		case *language.InlineFragment:
			out = append(out, &language.InlineFragment{
				TypeCondition: s.TypeCondition,
				Directives:    CloneDirectiveList(s.Directives),
				SelectionSet:  CloneSelectionSet(s.SelectionSet),
				Position:      s.Position,
			})
		case *language.FragmentSpread:
			out = append(out, &language.FragmentSpread{
				Name:       s.Name,
				Directives: CloneDirectiveList(s.Directives),
				Position:   s.Position,
			})
		}
	}
	return out
}

func CloneField(f *language.Field) *language.Field {
	return &language.Field{
		Alias:        f.Alias,
		Name:         f.Name,
		Arguments:    cloneArguments(f.Arguments),
		Directives:   CloneDirectiveList(f.Directives),
		SelectionSet: CloneSelectionSet(f.SelectionSet),
		Position:     f.Position,
	}
}

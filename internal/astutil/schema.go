package astutil

import (
	"fmt"

	language "github.com/hanpama/stitchgraph/internal/language"
)

// QueryRootTypeName returns the type named as query root by the document's
// schema definition.
func QueryRootTypeName(doc *language.SchemaDocument) (string, error) {
	if len(doc.Schema) != 1 {
		return "", &SchemaStructureError{Reason: "exactly one schema definition is required"}
	}
	for _, opType := range doc.Schema[0].OperationTypes {
		if opType.Operation == language.Query {
			return opType.Type, nil
		}
	}
	return "", &SchemaStructureError{Reason: "schema definition does not name a query type"}
}

// DefinitionIndex maps every type definition in doc by name.
func DefinitionIndex(doc *language.SchemaDocument) map[string]*language.Definition {
	index := make(map[string]*language.Definition, len(doc.Definitions))
	for _, def := range doc.Definitions {
		index[def.Name] = def
	}
	return index
}

// ScalarNames collects the names of all user-defined scalar types in doc.
func ScalarNames(doc *language.SchemaDocument) map[string]bool {
	names := make(map[string]bool)
	for _, def := range doc.Definitions {
		if def.Kind == language.Scalar {
			names[def.Name] = true
		}
	}
	return names
}

// UnwrapType strips list and non-null wrappers down to the named base type.
func UnwrapType(t *language.Type) string {
	if t == nil {
		return ""
	}
	for t.Elem != nil {
		t = t.Elem
	}
	return t.NamedType
}

// CheckSchemaDocument validates that doc is a single query-only schema within
// the supported structural surface: no extensions, no input object types, no
// mutation or subscription roots, one object-kinded query root whose fields
// all resolve to composite types defined in the document.
func CheckSchemaDocument(doc *language.SchemaDocument) error {
	if len(doc.Extensions) > 0 {
		return &SchemaStructureError{Reason: fmt.Sprintf("type extension %q is not allowed", doc.Extensions[0].Name)}
	}
	if len(doc.SchemaExtension) > 0 {
		return &SchemaStructureError{Reason: "schema extensions are not allowed"}
	}
	if len(doc.Schema) == 0 {
		return &SchemaStructureError{Reason: "a schema definition naming the query root type is required"}
	}
	if len(doc.Schema) > 1 {
		return &SchemaStructureError{Reason: "exactly one schema definition is required"}
	}
	queryType := ""
	for _, opType := range doc.Schema[0].OperationTypes {
		switch opType.Operation {
		case language.Query:
			queryType = opType.Type
		case language.Mutation:
			return &SchemaStructureError{Reason: "mutation operations are not supported"}
		case language.Subscription:
			return &SchemaStructureError{Reason: "subscription operations are not supported"}
		}
	}
	if queryType == "" {
		return &SchemaStructureError{Reason: "schema definition does not name a query type"}
	}

	index := DefinitionIndex(doc)
	for _, def := range doc.Definitions {
		if def.Kind == language.InputObject {
			return &SchemaStructureError{Reason: fmt.Sprintf("input object type %q is not allowed", def.Name)}
		}
		if err := CheckName(def.Name); err != nil {
			return err
		}
	}

	root, ok := index[queryType]
	if !ok {
		return &SchemaStructureError{Reason: fmt.Sprintf("query root type %q is not defined", queryType)}
	}
	if root.Kind != language.Object {
		return &SchemaStructureError{Reason: fmt.Sprintf("query root type %q must be an object type", queryType)}
	}
	for _, field := range root.Fields {
		base := UnwrapType(field.Type)
		def, ok := index[base]
		if !ok {
			return &SchemaStructureError{Reason: fmt.Sprintf("root field %q resolves to undefined type %q", field.Name, base)}
		}
		switch def.Kind {
		case language.Object, language.Interface, language.Union:
		default:
			return &SchemaStructureError{Reason: fmt.Sprintf("root field %q must resolve to a composite type, got %s %q", field.Name, def.Kind, base)}
		}
	}
	return nil
}

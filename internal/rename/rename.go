package rename

import (
	"fmt"

	astutil "github.com/hanpama/stitchgraph/internal/astutil"
	language "github.com/hanpama/stitchgraph/internal/language"
)

// Func maps an original name to its new name. Returning the input unchanged
// means "no mapping". FromMap adapts a plain map to this shape.
type Func func(string) string

func FromMap(m map[string]string) Func {
	return func(name string) string {
		if renamed, ok := m[name]; ok {
			return renamed
		}
		return name
	}
}

// Identity is the no-op rename function.
func Identity(name string) string { return name }

// RenamedSchema is the result of renaming one schema document. The reverse
// maps go from renamed name back to original name and cover every type and
// root field, identity mappings included.
type RenamedSchema struct {
	Document            *language.SchemaDocument
	TypeNameToOriginal  map[string]string
	RootFieldToOriginal map[string]string
}

// Schema applies fn to every renamable name in doc and returns the renamed
// document plus reverse maps. The query root type name, user-defined scalars,
// enum values, argument names and non-root field names are never renamed;
// object, interface, union and enum type names are, along with every type
// reference to them. Root fields are renamed through the same function into a
// separate reverse map. The input document is left unchanged.
func Schema(doc *language.SchemaDocument, fn Func) (*RenamedSchema, error) {
	if err := astutil.CheckSchemaDocument(doc); err != nil {
		return nil, err
	}
	rootName, err := astutil.QueryRootTypeName(doc)
	if err != nil {
		return nil, err
	}

	r := &renamer{
		fn:           fn,
		root:         rootName,
		scalars:      astutil.ScalarNames(doc),
		typeMap:      map[string]string{},
		rootFieldMap: map[string]string{},
	}

	out := astutil.CloneSchemaDocument(doc)
	for _, def := range out.Definitions {
		if err := r.renameDefinition(def); err != nil {
			return nil, err
		}
	}
	return &RenamedSchema{
		Document:            out,
		TypeNameToOriginal:  r.typeMap,
		RootFieldToOriginal: r.rootFieldMap,
	}, nil
}

type renamer struct {
	fn           Func
	root         string
	scalars      map[string]bool
	typeMap      map[string]string // renamed -> original
	rootFieldMap map[string]string // renamed -> original
}

// renameDefinition dispatches on the node kind. Every kind is classified
// explicitly; an unlisted kind is rejected rather than passed through.
func (r *renamer) renameDefinition(def *language.Definition) error {
	switch def.Kind {
	case language.Scalar:
		return nil
	case language.Object, language.Interface:
		if def.Name == r.root {
			return r.renameRootFields(def)
		}
		renamed, err := r.renameTypeName(def.Name)
		if err != nil {
			return err
		}
		def.Name = renamed
		for i, iface := range def.Interfaces {
			renamed, err := r.renameTypeName(iface)
			if err != nil {
				return err
			}
			def.Interfaces[i] = renamed
		}
		for _, field := range def.Fields {
			if err := r.renameFieldTypes(field); err != nil {
				return err
			}
		}
		return nil
	case language.Union:
		renamed, err := r.renameTypeName(def.Name)
		if err != nil {
			return err
		}
		def.Name = renamed
		for i, member := range def.Types {
			renamed, err := r.renameTypeName(member)
			if err != nil {
				return err
			}
			def.Types[i] = renamed
		}
		return nil
	case language.Enum:
		renamed, err := r.renameTypeName(def.Name)
		if err != nil {
			return err
		}
		def.Name = renamed
		return nil
	case language.InputObject:
		return &astutil.SchemaStructureError{Reason: fmt.Sprintf("input object type %q is not allowed", def.Name)}
	default:
		return &astutil.SchemaStructureError{Reason: fmt.Sprintf("unsupported definition kind %s for %q", def.Kind, def.Name)}
	}
}

func (r *renamer) renameRootFields(root *language.Definition) error {
	for _, field := range root.Fields {
		renamed := r.fn(field.Name)
		if renamed != field.Name {
			if err := astutil.CheckName(renamed); err != nil {
				return err
			}
		}
		if original, ok := r.rootFieldMap[renamed]; ok && original != field.Name {
			return &astutil.NameConflictError{
				Name:   renamed,
				First:  fmt.Sprintf("root field %q", original),
				Second: fmt.Sprintf("root field %q", field.Name),
			}
		}
		r.rootFieldMap[renamed] = field.Name
		field.Name = renamed
		if err := r.renameFieldTypes(field); err != nil {
			return err
		}
	}
	return nil
}

func (r *renamer) renameFieldTypes(field *language.FieldDefinition) error {
	if err := r.renameTypeRef(field.Type); err != nil {
		return err
	}
	for _, arg := range field.Arguments {
		if err := r.renameTypeRef(arg.Type); err != nil {
			return err
		}
	}
	return nil
}

// renameTypeRef renames the named base type inside list/non-null wrappers.
func (r *renamer) renameTypeRef(t *language.Type) error {
	if t == nil {
		return nil
	}
	for t.Elem != nil {
		t = t.Elem
	}
	if t.NamedType == r.root || r.scalars[t.NamedType] || astutil.IsBuiltinScalar(t.NamedType) {
		return nil
	}
	renamed, err := r.renameTypeName(t.NamedType)
	if err != nil {
		return err
	}
	t.NamedType = renamed
	return nil
}

func (r *renamer) renameTypeName(name string) (string, error) {
	if r.scalars[name] || astutil.IsBuiltinScalar(name) {
		return name, nil
	}
	renamed := r.fn(name)
	if renamed != name {
		if err := astutil.CheckName(renamed); err != nil {
			return "", err
		}
	}
	if astutil.IsBuiltinScalar(renamed) {
		return "", &astutil.NameConflictError{
			Name:   renamed,
			First:  "a built-in scalar",
			Second: fmt.Sprintf("type %q", name),
		}
	}
	if r.scalars[renamed] && renamed != name {
		return "", &astutil.NameConflictError{
			Name:   renamed,
			First:  "a user-defined scalar",
			Second: fmt.Sprintf("type %q", name),
		}
	}
	if renamed == r.root {
		return "", &astutil.NameConflictError{
			Name:   renamed,
			First:  "the query root type",
			Second: fmt.Sprintf("type %q", name),
		}
	}
	if original, ok := r.typeMap[renamed]; ok && original != name {
		return "", &astutil.NameConflictError{
			Name:   renamed,
			First:  fmt.Sprintf("type %q", original),
			Second: fmt.Sprintf("type %q", name),
		}
	}
	r.typeMap[renamed] = name
	return renamed, nil
}

package merge

import (
	"fmt"

	astutil "github.com/hanpama/stitchgraph/internal/astutil"
	language "github.com/hanpama/stitchgraph/internal/language"
)

// RootTypeName is the query root type of every merged schema.
const RootTypeName = "RootQuery"

// Source is one independently authored schema, identified for the executor
// by its ID. The document may already have been renamed to avoid collisions.
type Source struct {
	ID       string
	Document *language.SchemaDocument
}

// FieldReference identifies one field inside one source schema.
type FieldReference struct {
	SourceID  string
	TypeName  string
	FieldName string
}

func (r FieldReference) String() string {
	return r.SourceID + "." + r.TypeName + "." + r.FieldName
}

// Edge declares a cross-source stitching edge between two real fields whose
// values join rows across sources. It always crosses sources. Merging turns
// it into an out_<name> field on the outbound type and, unless OutEdgeOnly,
// an in_<name> field on the inbound type.
type Edge struct {
	Name        string
	Outbound    FieldReference
	Inbound     FieldReference
	OutEdgeOnly bool
}

// MergedSchema is the result of merging: one schema document whose root type
// concatenates every source's root fields, plus the map from type name to
// owning source.
type MergedSchema struct {
	Document      *language.SchemaDocument
	TypeSources   map[string]string
	QueryRootName string
}

// Definition looks up a type definition in the merged document.
func (m *MergedSchema) Definition(name string) *language.Definition {
	for _, def := range m.Document.Definitions {
		if def.Name == name {
			return def
		}
	}
	return nil
}

// Schemas merges the ordered sources into one schema and applies the
// cross-source edges. Source order only affects field ordering in the output,
// never validity. Input documents are left unchanged.
func Schemas(sources []Source, edges []Edge) (*MergedSchema, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("merge: at least one source schema is required")
	}
	m := newMerger()
	for _, src := range sources {
		if err := m.mergeSource(src); err != nil {
			return nil, err
		}
	}
	for _, edge := range edges {
		if err := m.addEdge(edge); err != nil {
			return nil, err
		}
	}
	return &MergedSchema{
		Document:      m.doc,
		TypeSources:   m.typeSources,
		QueryRootName: RootTypeName,
	}, nil
}

type merger struct {
	doc  *language.SchemaDocument
	root *language.Definition

	typeSources map[string]string                 // non-scalar type name -> source id
	defs        map[string]*language.Definition   // non-scalar type name -> merged definition
	scalars     map[string]string                 // scalar name -> source id ("" for built-ins)
	directives  map[string]*language.DirectiveDefinition
	rootFields  map[string]string // root field name -> source id
	sourceIDs   map[string]bool
}

func newMerger() *merger {
	root := &language.Definition{Kind: language.Object, Name: RootTypeName}
	doc := &language.SchemaDocument{
		Schema: []*language.SchemaDefinition{{
			OperationTypes: []*language.OperationTypeDefinition{
				{Operation: language.Query, Type: RootTypeName},
			},
		}},
		Definitions: language.DefinitionList{root},
	}
	m := &merger{
		doc:         doc,
		root:        root,
		typeSources: map[string]string{},
		defs:        map[string]*language.Definition{},
		scalars:     map[string]string{},
		directives:  map[string]*language.DirectiveDefinition{},
		rootFields:  map[string]string{},
		sourceIDs:   map[string]bool{},
	}
	for _, name := range []string{"String", "Int", "Float", "Boolean", "ID"} {
		m.scalars[name] = ""
	}
	for _, def := range builtinDirectiveDefinitions() {
		m.directives[def.Name] = def
		doc.Directives = append(doc.Directives, def)
	}
	return m
}

func (m *merger) mergeSource(src Source) error {
	if src.ID == "" {
		return fmt.Errorf("merge: source with empty id")
	}
	if m.sourceIDs[src.ID] {
		return fmt.Errorf("merge: duplicate source id %q", src.ID)
	}
	if err := astutil.CheckSchemaDocument(src.Document); err != nil {
		if serr, ok := err.(*astutil.SchemaStructureError); ok {
			return &astutil.SchemaStructureError{SourceID: src.ID, Reason: serr.Reason}
		}
		return err
	}
	m.sourceIDs[src.ID] = true

	rootName, err := astutil.QueryRootTypeName(src.Document)
	if err != nil {
		return err
	}
	cloned := astutil.CloneSchemaDocument(src.Document)

	for _, def := range cloned.Directives {
		existing, ok := m.directives[def.Name]
		if ok {
			if !directiveDefinitionsEqual(existing, def) {
				return &astutil.NameConflictError{
					Name:   def.Name,
					First:  "an earlier directive definition",
					Second: fmt.Sprintf("a differing directive definition from source %q", src.ID),
				}
			}
			continue
		}
		m.directives[def.Name] = def
		m.doc.Directives = append(m.doc.Directives, def)
	}

	for _, def := range cloned.Definitions {
		if def.Name == rootName {
			if err := m.mergeRootFields(src.ID, def); err != nil {
				return err
			}
			continue
		}
		// The merged root type name is reserved: a source definition under
		// that name would alias the synthetic root and corrupt the merged
		// document. Checked for every kind, scalars included.
		if def.Name == RootTypeName {
			return &astutil.NameConflictError{
				Name:   RootTypeName,
				First:  "the merged query root type",
				Second: fmt.Sprintf("%s type from source %q", def.Kind, src.ID),
			}
		}
		if def.Kind == language.Scalar {
			// First definition wins; identical names are skipped without an
			// identity check (a known gap carried from the reference system).
			if owner, ok := m.typeSources[def.Name]; ok {
				return &astutil.NameConflictError{
					Name:   def.Name,
					First:  fmt.Sprintf("a type from source %q", owner),
					Second: fmt.Sprintf("scalar from source %q", src.ID),
				}
			}
			if _, ok := m.scalars[def.Name]; ok {
				continue
			}
			m.scalars[def.Name] = src.ID
			m.doc.Definitions = append(m.doc.Definitions, def)
			continue
		}
		if _, ok := m.scalars[def.Name]; ok {
			return &astutil.NameConflictError{
				Name:   def.Name,
				First:  "a scalar type",
				Second: fmt.Sprintf("%s type from source %q", def.Kind, src.ID),
			}
		}
		if owner, ok := m.typeSources[def.Name]; ok {
			return &astutil.NameConflictError{
				Name:   def.Name,
				First:  fmt.Sprintf("a type from source %q", owner),
				Second: fmt.Sprintf("%s type from source %q", def.Kind, src.ID),
			}
		}
		m.typeSources[def.Name] = src.ID
		m.defs[def.Name] = def
		m.doc.Definitions = append(m.doc.Definitions, def)
	}
	return nil
}

// mergeRootFields concatenates a source root type's fields onto the merged
// root type. Field names must stay disjoint across sources; type disjointness
// alone does not guarantee that, since root fields may be renamed freely.
func (m *merger) mergeRootFields(sourceID string, root *language.Definition) error {
	for _, field := range root.Fields {
		// Covers a source whose own query root is named like the merged root
		// and references itself: the definition check never sees the root.
		if astutil.UnwrapType(field.Type) == RootTypeName {
			return &astutil.NameConflictError{
				Name:   RootTypeName,
				First:  "the merged query root type",
				Second: fmt.Sprintf("type of root field %q from source %q", field.Name, sourceID),
			}
		}
		if owner, ok := m.rootFields[field.Name]; ok {
			return &astutil.NameConflictError{
				Name:   field.Name,
				First:  fmt.Sprintf("root field from source %q", owner),
				Second: fmt.Sprintf("root field from source %q", sourceID),
			}
		}
		m.rootFields[field.Name] = sourceID
		m.root.Fields = append(m.root.Fields, field)
	}
	return nil
}

func (m *merger) addEdge(edge Edge) error {
	if edge.Name == "" {
		return &InvalidEdgeError{Edge: edge.Name, Reason: "edge name must not be empty"}
	}
	if err := astutil.CheckName(edge.Name); err != nil {
		return &InvalidEdgeError{Edge: edge.Name, Reason: err.Error()}
	}
	if edge.Outbound.SourceID == edge.Inbound.SourceID {
		return &InvalidEdgeError{
			Edge:   edge.Name,
			Reason: fmt.Sprintf("edge must cross sources, both endpoints reference %q", edge.Outbound.SourceID),
		}
	}
	outType, err := m.resolveEndpoint(edge.Name, edge.Outbound)
	if err != nil {
		return err
	}
	inType, err := m.resolveEndpoint(edge.Name, edge.Inbound)
	if err != nil {
		return err
	}

	// Validate both synthetic names before touching either type, so a failed
	// edge leaves no partial mutation behind.
	outFieldName := OutEdgePrefix + edge.Name
	inFieldName := InEdgePrefix + edge.Name
	if existing := outType.Fields.ForName(outFieldName); existing != nil {
		return &astutil.NameConflictError{
			Name:   outFieldName,
			First:  fmt.Sprintf("field on type %q", outType.Name),
			Second: fmt.Sprintf("synthetic field for edge %q", edge.Name),
		}
	}
	if !edge.OutEdgeOnly {
		if existing := inType.Fields.ForName(inFieldName); existing != nil {
			return &astutil.NameConflictError{
				Name:   inFieldName,
				First:  fmt.Sprintf("field on type %q", inType.Name),
				Second: fmt.Sprintf("synthetic field for edge %q", edge.Name),
			}
		}
	}

	outType.Fields = append(outType.Fields, &language.FieldDefinition{
		Name:       outFieldName,
		Type:       language.ListOfNamedType(inType.Name),
		Directives: language.DirectiveList{stitchDirective(edge.Outbound.FieldName, edge.Inbound.FieldName)},
	})
	if !edge.OutEdgeOnly {
		inType.Fields = append(inType.Fields, &language.FieldDefinition{
			Name:       inFieldName,
			Type:       language.ListOfNamedType(outType.Name),
			Directives: language.DirectiveList{stitchDirective(edge.Inbound.FieldName, edge.Outbound.FieldName)},
		})
	}
	return nil
}

func (m *merger) resolveEndpoint(edgeName string, ref FieldReference) (*language.Definition, error) {
	if !m.sourceIDs[ref.SourceID] {
		return nil, &InvalidEdgeError{
			Edge:   edgeName,
			Reason: fmt.Sprintf("endpoint %s references unknown source %q", ref, ref.SourceID),
		}
	}
	owner, ok := m.typeSources[ref.TypeName]
	if !ok {
		return nil, &InvalidEdgeError{
			Edge:   edgeName,
			Reason: fmt.Sprintf("endpoint %s references unknown type %q", ref, ref.TypeName),
		}
	}
	if owner != ref.SourceID {
		return nil, &InvalidEdgeError{
			Edge:   edgeName,
			Reason: fmt.Sprintf("endpoint %s: type %q belongs to source %q", ref, ref.TypeName, owner),
		}
	}
	def := m.defs[ref.TypeName]
	switch def.Kind {
	case language.Object, language.Interface:
	default:
		return nil, &InvalidEdgeError{
			Edge:   edgeName,
			Reason: fmt.Sprintf("endpoint %s: type %q is a %s, not an object or interface", ref, ref.TypeName, def.Kind),
		}
	}
	if def.Fields.ForName(ref.FieldName) == nil {
		return nil, &InvalidEdgeError{
			Edge:   edgeName,
			Reason: fmt.Sprintf("endpoint %s references unknown field %q on type %q", ref, ref.FieldName, ref.TypeName),
		}
	}
	return def, nil
}

package split

import (
	"fmt"

	astutil "github.com/hanpama/stitchgraph/internal/astutil"
	language "github.com/hanpama/stitchgraph/internal/language"
	merge "github.com/hanpama/stitchgraph/internal/merge"
)

// SubQueryNode is one source-local fragment of a split query. The fragment is
// a complete executable query document; nodes form a tree whose edges are
// exactly the stitching edges the original query traversed.
type SubQueryNode struct {
	Query            *language.QueryDocument
	SourceID         string
	ParentConnection *Connection
	ChildConnections []*Connection
}

// Connection links a parent fragment to a child fragment at one traversed
// stitching edge. The paths address the join fields inside their respective
// fragments: where the traversal left off, and where it resumes.
type Connection struct {
	Parent          *SubQueryNode
	Child           *SubQueryNode
	SourceFieldPath astutil.FieldPath
	SinkFieldPath   astutil.FieldPath
}

// Result is the output of one split invocation.
type Result struct {
	Root *SubQueryNode

	// IntermediateOutputNames are the auto-generated output columns that
	// exist only to carry join values; the executor strips them from final
	// results after stitching.
	IntermediateOutputNames []string
}

// Query partitions a query written against the merged schema into a tree of
// source-local sub-queries, cutting at synthetic stitch fields. The input
// document is left unchanged.
func Query(doc *language.QueryDocument, merged *merge.MergedSchema) (*Result, error) {
	if len(doc.Fragments) > 0 {
		return nil, &astutil.QueryValidationError{Reason: "fragments are not supported"}
	}
	if len(doc.Operations) != 1 {
		return nil, &astutil.QueryValidationError{Reason: "exactly one operation is required"}
	}
	op := doc.Operations[0]
	if op.Operation != language.Query {
		return nil, &astutil.QueryValidationError{Reason: "only query operations are supported"}
	}
	if len(op.SelectionSet) == 0 {
		return nil, &astutil.QueryValidationError{Reason: "empty selection set at the query root"}
	}

	s := &splitter{
		merged:  merged,
		defs:    astutil.DefinitionIndex(merged.Document),
		outputs: map[string]bool{},
	}
	rootType := s.defs[merged.QueryRootName]
	if rootType == nil {
		return nil, fmt.Errorf("split: merged schema has no root type %q", merged.QueryRootName)
	}

	selections := astutil.CloneSelectionSet(op.SelectionSet)
	sourceID, err := s.rootSourceID(rootType, selections)
	if err != nil {
		return nil, err
	}
	root, err := s.buildNode(sourceID, rootType, selections, "")
	if err != nil {
		return nil, err
	}
	return &Result{Root: root, IntermediateOutputNames: s.intermediates}, nil
}

type splitter struct {
	merged        *merge.MergedSchema
	defs          map[string]*language.Definition
	outputs       map[string]bool // every @output name seen in this split
	intermediates []string
	nextName      int
}

// allocate hands out a fresh intermediate output name. The allocator belongs
// to one split invocation; it is never shared across compilations.
func (s *splitter) allocate() string {
	name := fmt.Sprintf("__intermediate_output_%d", s.nextName)
	s.nextName++
	s.outputs[name] = true
	s.intermediates = append(s.intermediates, name)
	return name
}

// rootSourceID determines the single source the root fragment executes
// against: the owner of the first traversed type. Root fields resolving to
// types from different sources cannot be split without an edge between them.
func (s *splitter) rootSourceID(rootType *language.Definition, selections language.SelectionSet) (string, error) {
	sourceID := ""
	for _, sel := range selections {
		field, ok := sel.(*language.Field)
		if !ok {
			return "", &astutil.QueryValidationError{Reason: "only field selections are allowed at the query root"}
		}
		def := rootType.Fields.ForName(field.Name)
		if def == nil {
			return "", &astutil.QueryValidationError{Reason: fmt.Sprintf("unknown root field %q", field.Name)}
		}
		owner := s.merged.TypeSources[astutil.UnwrapType(def.Type)]
		if sourceID == "" {
			sourceID = owner
			continue
		}
		if owner != sourceID {
			return "", &astutil.QueryValidationError{
				Reason: fmt.Sprintf("root fields span sources %q and %q; traversal across sources requires a stitching edge", sourceID, owner),
			}
		}
	}
	return sourceID, nil
}

// buildNode assembles one fragment. wrapField, when non-empty, nests the
// selections under a root field (child fragments re-enter their source
// through the root field of the inbound type).
func (s *splitter) buildNode(sourceID string, typeDef *language.Definition, selections language.SelectionSet, wrapField string) (*SubQueryNode, error) {
	nb := &nodeBuild{node: &SubQueryNode{SourceID: sourceID}}
	processed, err := s.processSelectionSet(nb, typeDef, selections)
	if err != nil {
		return nil, err
	}
	if wrapField != "" {
		processed = language.SelectionSet{&language.Field{
			Alias:        wrapField,
			Name:         wrapField,
			SelectionSet: processed,
		}}
	}
	nb.node.Query = &language.QueryDocument{
		Operations: []*language.OperationDefinition{{
			Operation:    language.Query,
			SelectionSet: processed,
		}},
	}

	for _, pc := range nb.pending {
		sourcePath, err := findOutputPath(nb.node.Query.Operations[0].SelectionSet, pc.parentOutName)
		if err != nil {
			return nil, err
		}
		sinkPath, err := findOutputPath(pc.child.Query.Operations[0].SelectionSet, pc.childOutName)
		if err != nil {
			return nil, err
		}
		conn := &Connection{
			Parent:          nb.node,
			Child:           pc.child,
			SourceFieldPath: sourcePath,
			SinkFieldPath:   sinkPath,
		}
		pc.child.ParentConnection = conn
		nb.node.ChildConnections = append(nb.node.ChildConnections, conn)
	}
	return nb.node, nil
}

type nodeBuild struct {
	node    *SubQueryNode
	pending []pendingConnection
}

type pendingConnection struct {
	parentOutName string
	childOutName  string
	child         *SubQueryNode
}

// processSelectionSet rewrites one selection level: property fields pass
// through, vertex fields of the same source recurse, and stitch fields are
// cut into child fragments.
func (s *splitter) processSelectionSet(nb *nodeBuild, typeDef *language.Definition, selections language.SelectionSet) (language.SelectionSet, error) {
	// Register user-placed @output names first so a later stitch cut can
	// reuse a sibling's output regardless of selection order.
	for _, sel := range selections {
		field, ok := sel.(*language.Field)
		if !ok {
			return nil, &astutil.QueryValidationError{Reason: "only field selections are supported"}
		}
		if err := s.registerUserOutput(field); err != nil {
			return nil, err
		}
	}

	out := make(language.SelectionSet, 0, len(selections))
	created := map[string]*language.Field{} // join property fields added at this level
	for _, sel := range selections {
		field := sel.(*language.Field)
		def := typeDef.Fields.ForName(field.Name)
		if def == nil {
			return nil, &astutil.QueryValidationError{
				Reason: fmt.Sprintf("field %q does not exist on type %q", field.Name, typeDef.Name),
			}
		}

		if stitch := def.Directives.ForName(merge.DirectiveStitch); stitch != nil {
			replacement, err := s.cutStitchField(nb, field, def, stitch, selections, created)
			if err != nil {
				return nil, err
			}
			if replacement != nil {
				out = append(out, replacement)
			}
			continue
		}

		base := astutil.UnwrapType(def.Type)
		baseDef := s.defs[base]
		if astutil.IsBuiltinScalar(base) || (baseDef != nil && isLeafKind(baseDef.Kind)) {
			out = append(out, field)
			continue
		}
		if baseDef == nil {
			return nil, &astutil.QueryValidationError{
				Reason: fmt.Sprintf("field %q resolves to unknown type %q", field.Name, base),
			}
		}
		processed, err := s.processSelectionSet(nb, baseDef, field.SelectionSet)
		if err != nil {
			return nil, err
		}
		field.SelectionSet = processed
		out = append(out, field)
	}
	return out, nil
}

// cutStitchField handles one split point: it replaces the synthetic field
// with a property selection of the real outbound join field in the parent
// fragment, builds the child fragment rooted at the inbound type, and records
// the pending connection. The returned field is the replacement to keep in
// the parent, or nil when an existing sibling already selects the join field.
func (s *splitter) cutStitchField(
	nb *nodeBuild,
	field *language.Field,
	def *language.FieldDefinition,
	stitch *language.Directive,
	siblings language.SelectionSet,
	created map[string]*language.Field,
) (*language.Field, error) {
	if len(field.Directives) > 0 {
		return nil, &astutil.QueryValidationError{
			Reason: fmt.Sprintf("directives on stitch field %q are not supported", field.Name),
		}
	}
	if len(field.SelectionSet) == 0 {
		return nil, &astutil.QueryValidationError{
			Reason: fmt.Sprintf("stitch field %q requires nested selections", field.Name),
		}
	}
	sourceField, sinkField, err := stitchJoinFields(stitch, field.Name)
	if err != nil {
		return nil, err
	}

	// Parent side: reuse an existing selection of the join field, or replace
	// the stitch field with a fresh one carrying an intermediate output.
	var replacement *language.Field
	parentOutName := ""
	if existing := created[sourceField]; existing != nil {
		parentOutName, _ = outputName(existing)
	} else if existing := findField(siblings, sourceField); existing != nil {
		if name, ok := outputName(existing); ok {
			parentOutName = name
		} else {
			parentOutName = s.allocate()
			existing.Directives = append(existing.Directives, outputDirective(parentOutName))
		}
	} else {
		parentOutName = s.allocate()
		replacement = &language.Field{
			Alias:      sourceField,
			Name:       sourceField,
			Directives: language.DirectiveList{outputDirective(parentOutName)},
		}
		created[sourceField] = replacement
	}

	// Child side: the fragment is rooted at the inbound type and must select
	// the real inbound join field at its top level.
	childTypeName := astutil.UnwrapType(def.Type)
	childDef := s.defs[childTypeName]
	if childDef == nil {
		return nil, fmt.Errorf("split: stitch field %q resolves to unknown type %q", field.Name, childTypeName)
	}
	childSourceID, ok := s.merged.TypeSources[childTypeName]
	if !ok {
		return nil, fmt.Errorf("split: type %q is not bound to any source", childTypeName)
	}
	rootField, err := s.rootFieldForType(childTypeName)
	if err != nil {
		return nil, err
	}

	childSelections := field.SelectionSet
	sink := findField(childSelections, sinkField)
	if sink == nil {
		sink = &language.Field{Alias: sinkField, Name: sinkField}
		childSelections = append(language.SelectionSet{sink}, childSelections...)
	}
	child, err := s.buildNode(childSourceID, childDef, childSelections, rootField)
	if err != nil {
		return nil, err
	}
	childOutName, ok := outputName(sink)
	if !ok {
		childOutName = s.allocate()
		sink.Directives = append(sink.Directives, outputDirective(childOutName))
	}

	nb.pending = append(nb.pending, pendingConnection{
		parentOutName: parentOutName,
		childOutName:  childOutName,
		child:         child,
	})
	return replacement, nil
}

// rootFieldForType finds the merged root field through which a fragment
// re-enters its source for the given type.
func (s *splitter) rootFieldForType(typeName string) (string, error) {
	root := s.defs[s.merged.QueryRootName]
	for _, field := range root.Fields {
		if astutil.UnwrapType(field.Type) == typeName {
			return field.Name, nil
		}
	}
	return "", &astutil.QueryValidationError{
		Reason: fmt.Sprintf("no root field resolves to type %q; the inbound type of a traversed edge must be reachable from the query root", typeName),
	}
}

func (s *splitter) registerUserOutput(field *language.Field) error {
	out := field.Directives.ForName(merge.DirectiveOutput)
	if out == nil {
		return nil
	}
	arg := out.Arguments.ForName(merge.ArgOutName)
	if arg == nil || arg.Value == nil || arg.Value.Raw == "" {
		return &astutil.QueryValidationError{
			Reason: fmt.Sprintf("@%s on field %q requires an %s argument", merge.DirectiveOutput, field.Name, merge.ArgOutName),
		}
	}
	name := arg.Value.Raw
	if err := astutil.CheckName(name); err != nil {
		return &astutil.QueryValidationError{Reason: err.Error()}
	}
	if s.outputs[name] {
		return &astutil.QueryValidationError{Reason: fmt.Sprintf("duplicate output name %q", name)}
	}
	s.outputs[name] = true
	return nil
}

func isLeafKind(kind language.DefinitionKind) bool {
	return kind == language.Scalar || kind == language.Enum
}

func stitchJoinFields(stitch *language.Directive, fieldName string) (string, string, error) {
	sourceArg := stitch.Arguments.ForName(merge.ArgSourceField)
	sinkArg := stitch.Arguments.ForName(merge.ArgSinkField)
	if sourceArg == nil || sourceArg.Value == nil || sinkArg == nil || sinkArg.Value == nil {
		return "", "", fmt.Errorf("split: stitch field %q has a malformed @%s directive", fieldName, merge.DirectiveStitch)
	}
	return sourceArg.Value.Raw, sinkArg.Value.Raw, nil
}

func findField(selections language.SelectionSet, name string) *language.Field {
	for _, sel := range selections {
		if field, ok := sel.(*language.Field); ok && field.Name == name {
			return field
		}
	}
	return nil
}

func outputName(field *language.Field) (string, bool) {
	out := field.Directives.ForName(merge.DirectiveOutput)
	if out == nil {
		return "", false
	}
	arg := out.Arguments.ForName(merge.ArgOutName)
	if arg == nil || arg.Value == nil {
		return "", false
	}
	return arg.Value.Raw, true
}

func outputDirective(name string) *language.Directive {
	return &language.Directive{
		Name: merge.DirectiveOutput,
		Arguments: language.ArgumentList{
			&language.Argument{Name: merge.ArgOutName, Value: &language.Value{Kind: language.StringValue, Raw: name}},
		},
	}
}

// findOutputPath locates the single field carrying @output(out_name: name)
// and returns its address. Output names are unique within one split, so zero
// or multiple matches indicate a splitter defect.
func findOutputPath(selections language.SelectionSet, name string) (astutil.FieldPath, error) {
	var found []astutil.FieldPath
	var walk func(set language.SelectionSet, prefix astutil.FieldPath)
	walk = func(set language.SelectionSet, prefix astutil.FieldPath) {
		for i, sel := range set {
			field, ok := sel.(*language.Field)
			if !ok {
				continue
			}
			path := append(append(astutil.FieldPath{}, prefix...), i)
			if out, ok := outputName(field); ok && out == name {
				found = append(found, path)
			}
			walk(field.SelectionSet, path)
		}
	}
	walk(selections, nil)
	if len(found) != 1 {
		return nil, fmt.Errorf("split: expected exactly one field with output %q, found %d", name, len(found))
	}
	return found[0], nil
}

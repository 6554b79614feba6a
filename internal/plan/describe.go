package plan

import (
	language "github.com/hanpama/stitchgraph/internal/language"
)

// Description is the serializable, executor-facing form of a query plan:
// per-node source id and printed query text, in dependency order (every
// parent precedes its children).
type Description struct {
	Root                    *SubQueryDescription `json:"root"`
	IntermediateOutputNames []string             `json:"intermediateOutputNames"`
	OutputJoins             []OutputJoin         `json:"outputJoins"`
}

type SubQueryDescription struct {
	SourceID string                 `json:"sourceId"`
	Query    string                 `json:"query"`
	Children []*SubQueryDescription `json:"children,omitempty"`
}

func (qp *QueryPlan) Describe() *Description {
	return &Description{
		Root:                    describeNode(qp.Root),
		IntermediateOutputNames: qp.IntermediateOutputNames,
		OutputJoins:             qp.OutputJoins,
	}
}

func describeNode(p *SubQueryPlan) *SubQueryDescription {
	d := &SubQueryDescription{
		SourceID: p.SourceID,
		Query:    language.PrintQuery(p.Query),
	}
	for _, child := range p.Children {
		d.Children = append(d.Children, describeNode(child))
	}
	return d
}

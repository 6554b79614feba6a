package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	language "github.com/hanpama/stitchgraph/internal/language"
	merge "github.com/hanpama/stitchgraph/internal/merge"
	rename "github.com/hanpama/stitchgraph/internal/rename"
)

// Manifest declares the sources and cross-source edges of one stitched
// schema. It is the YAML surface of the compiler:
//
//	sources:
//	  - id: accounts
//	    schema: accounts.graphql
//	    renames:
//	      User: AccountsUser
//	edges:
//	  - name: user_reviews
//	    outbound: {source: accounts, type: AccountsUser, field: id}
//	    inbound: {source: reviews, type: Review, field: authorId}
type Manifest struct {
	Sources []SourceConfig `yaml:"sources"`
	Edges   []EdgeConfig   `yaml:"edges"`

	baseDir string
}

type SourceConfig struct {
	ID      string            `yaml:"id"`
	Schema  string            `yaml:"schema"`
	Renames map[string]string `yaml:"renames"`
}

type EdgeConfig struct {
	Name        string         `yaml:"name"`
	Outbound    EndpointConfig `yaml:"outbound"`
	Inbound     EndpointConfig `yaml:"inbound"`
	OutEdgeOnly bool           `yaml:"out_edge_only"`
}

type EndpointConfig struct {
	Source string `yaml:"source"`
	Type   string `yaml:"type"`
	Field  string `yaml:"field"`
}

// Load reads and validates a manifest file. Schema paths are resolved
// relative to the manifest's directory.
func Load(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	m.baseDir = filepath.Dir(path)
	return m, nil
}

// Parse decodes a manifest from YAML bytes.
func Parse(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Sources) == 0 {
		return nil, fmt.Errorf("manifest declares no sources")
	}
	for i, src := range m.Sources {
		if src.ID == "" {
			return nil, fmt.Errorf("source %d has no id", i)
		}
		if src.Schema == "" {
			return nil, fmt.Errorf("source %q has no schema file", src.ID)
		}
	}
	for i, edge := range m.Edges {
		if edge.Name == "" {
			return nil, fmt.Errorf("edge %d has no name", i)
		}
	}
	return &m, nil
}

// Compiled is the outcome of building a manifest: the merged schema plus the
// per-source rename descriptors, whose reverse maps let the executor rewrite
// sub-queries back to original source names.
type Compiled struct {
	Merged  *merge.MergedSchema
	Renamed map[string]*rename.RenamedSchema
}

// Build loads every source SDL, applies its renames, and merges everything
// with the declared edges.
func (m *Manifest) Build() (*Compiled, error) {
	compiled := &Compiled{Renamed: make(map[string]*rename.RenamedSchema, len(m.Sources))}
	sources := make([]merge.Source, 0, len(m.Sources))
	for _, src := range m.Sources {
		path := src.Schema
		if m.baseDir != "" && !filepath.IsAbs(path) {
			path = filepath.Join(m.baseDir, path)
		}
		sdl, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", src.ID, err)
		}
		doc, err := language.ParseSchema(path, string(sdl))
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", src.ID, err)
		}
		renamed, err := rename.Schema(doc, rename.FromMap(src.Renames))
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", src.ID, err)
		}
		compiled.Renamed[src.ID] = renamed
		sources = append(sources, merge.Source{ID: src.ID, Document: renamed.Document})
	}

	edges := make([]merge.Edge, 0, len(m.Edges))
	for _, edge := range m.Edges {
		edges = append(edges, merge.Edge{
			Name:        edge.Name,
			Outbound:    fieldReference(edge.Outbound),
			Inbound:     fieldReference(edge.Inbound),
			OutEdgeOnly: edge.OutEdgeOnly,
		})
	}

	merged, err := merge.Schemas(sources, edges)
	if err != nil {
		return nil, err
	}
	compiled.Merged = merged
	return compiled, nil
}

func fieldReference(cfg EndpointConfig) merge.FieldReference {
	return merge.FieldReference{SourceID: cfg.Source, TypeName: cfg.Type, FieldName: cfg.Field}
}

// Package compiler turns authored flow documents (YAML or JSON) into domain flows.
package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/aretw0/comanda/internal/dto"
	"github.com/aretw0/comanda/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Parser is responsible for converting raw bytes into flows.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes a single flow document. JSON is detected by a leading '{';
// anything else is read as YAML.
func (p *Parser) Parse(data []byte) (*domain.Flow, error) {
	var doc dto.FlowDocument
	if err := unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse flow: %w", err)
	}
	return p.Compile(doc)
}

// ParseAll decodes either a bundle ({"flows": [...]}) or a single flow document.
func (p *Parser) ParseAll(data []byte) ([]*domain.Flow, error) {
	var bundle dto.Bundle
	if err := unmarshal(data, &bundle); err == nil && len(bundle.Flows) > 0 {
		flows := make([]*domain.Flow, 0, len(bundle.Flows))
		for _, doc := range bundle.Flows {
			f, err := p.Compile(doc)
			if err != nil {
				return nil, err
			}
			flows = append(flows, f)
		}
		return flows, nil
	}
	f, err := p.Parse(data)
	if err != nil {
		return nil, err
	}
	return []*domain.Flow{f}, nil
}

// Compile converts a decoded document into a typed flow.
func (p *Parser) Compile(doc dto.FlowDocument) (*domain.Flow, error) {
	if doc.ID == "" {
		return nil, fmt.Errorf("flow missing ID")
	}
	flow := &domain.Flow{
		ID:       doc.ID,
		Name:     doc.Name,
		Triggers: doc.Triggers,
		Active:   doc.Active == nil || *doc.Active,
		Entry:    doc.Entry,
		Nodes:    make([]domain.Node, 0, len(doc.Nodes)),
	}

	seen := make(map[string]bool, len(doc.Nodes))
	for i, nd := range doc.Nodes {
		if nd.ID == "" {
			return nil, fmt.Errorf("flow %s: node #%d missing ID", doc.ID, i)
		}
		if seen[nd.ID] {
			return nil, fmt.Errorf("flow %s: duplicate node ID %q", doc.ID, nd.ID)
		}
		seen[nd.ID] = true

		node, err := compileNode(nd)
		if err != nil {
			return nil, fmt.Errorf("flow %s: %w", doc.ID, err)
		}
		flow.Nodes = append(flow.Nodes, node)
	}

	for i, ed := range doc.Edges {
		id := ed.ID
		if id == "" {
			id = fmt.Sprintf("e%d", i+1)
		}
		flow.Edges = append(flow.Edges, domain.Edge{
			ID:           id,
			Source:       ed.Source,
			SourceHandle: ed.SourceHandle,
			Target:       ed.Target,
		})
	}
	return flow, nil
}

func compileNode(nd dto.NodeDocument) (domain.Node, error) {
	kind := NormalizeKind(nd.Type)
	cfg := domain.NewConfig(kind)
	if cfg == nil {
		return domain.Node{}, fmt.Errorf("node %s: unknown type %q", nd.ID, nd.Type)
	}

	data := normalizeData(kind, nd.Data)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return domain.Node{}, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(data); err != nil {
		return domain.Node{}, fmt.Errorf("node %s: invalid data: %w", nd.ID, err)
	}
	return domain.Node{ID: nd.ID, Kind: kind, Config: cfg}, nil
}

// NormalizeKind maps editor type names ("stockCheckNode", "Add-To-Cart") to node kinds.
func NormalizeKind(raw string) domain.NodeKind {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimSuffix(raw, "Node")
	var b strings.Builder
	for i, r := range raw {
		switch {
		case r == '-' || r == ' ':
			b.WriteRune('_')
		case unicode.IsUpper(r):
			if i > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteRune('_')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return domain.NodeKind(strings.TrimSuffix(b.String(), "_node"))
}

// normalizeData flattens editor shapes that do not map one-to-one on config fields.
func normalizeData(kind domain.NodeKind, data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	if kind == domain.KindPoll {
		if opts, ok := out["options"].([]any); ok {
			labels := make([]any, 0, len(opts))
			for _, o := range opts {
				labels = append(labels, optionLabel(o))
			}
			out["options"] = labels
		}
	}
	return out
}

func optionLabel(o any) any {
	m, ok := o.(map[string]any)
	if !ok {
		return o
	}
	for _, key := range []string{"label", "text", "value"} {
		if v, ok := m[key]; ok {
			return fmt.Sprint(v)
		}
	}
	return ""
}

func unmarshal(data []byte, v any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return json.Unmarshal(trimmed, v)
	}
	return yaml.Unmarshal(trimmed, v)
}

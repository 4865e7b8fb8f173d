// Package dto holds the wire shapes of authored flow documents.
package dto

// FlowDocument is the editor export of a flow: nodes with free-form data and edges.
type FlowDocument struct {
	ID       string         `json:"id" yaml:"id" mapstructure:"id"`
	Name     string         `json:"name" yaml:"name" mapstructure:"name"`
	Triggers []string       `json:"triggers" yaml:"triggers" mapstructure:"triggers"`
	Active   *bool          `json:"active" yaml:"active" mapstructure:"active"`
	Entry    string         `json:"entry" yaml:"entry" mapstructure:"entry"`
	Nodes    []NodeDocument `json:"nodes" yaml:"nodes" mapstructure:"nodes"`
	Edges    []EdgeDocument `json:"edges" yaml:"edges" mapstructure:"edges"`
}

// NodeDocument carries the node type and its untyped configuration.
// Editor-only fields (position, width, selected...) are ignored.
type NodeDocument struct {
	ID   string         `json:"id" yaml:"id" mapstructure:"id"`
	Type string         `json:"type" yaml:"type" mapstructure:"type"`
	Data map[string]any `json:"data" yaml:"data" mapstructure:"data"`
}

type EdgeDocument struct {
	ID           string `json:"id" yaml:"id" mapstructure:"id"`
	Source       string `json:"source" yaml:"source" mapstructure:"source"`
	SourceHandle string `json:"sourceHandle" yaml:"sourceHandle" mapstructure:"sourceHandle"`
	Target       string `json:"target" yaml:"target" mapstructure:"target"`
}

// Bundle groups several flows in a single file.
type Bundle struct {
	Flows []FlowDocument `json:"flows" yaml:"flows" mapstructure:"flows"`
}

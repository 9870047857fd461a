// Package modelfile reads factored transition models from YAML
// definition files and turns them into validated in-memory networks.
//
// A definition names the model, its kind (dbn, compact or factored),
// the factor space, and the conditional probability tables. Example:
//
//	name: chain2
//	kind: dbn
//	space: [2, 2]
//	nodes:
//	  - tag: []
//	    cpt: [[1, 0]]
//	  - tag: [0]
//	    cpt: [[0, 1], [1, 0]]
package modelfile

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/factored-mdp/internal/bayesnet"
	"github.com/danielpatrickdp/factored-mdp/internal/factored"
)

// #region types

// NodeDef is one conditional probability table: the parent tag and the
// rows of the CPT, one row per joint parent assignment.
type NodeDef struct {
	Tag []int       `yaml:"tag"`
	CPT [][]float64 `yaml:"cpt"`
}

// DiffDef replaces the default table of one child for one action
// (compact kind only).
type DiffDef struct {
	Action int         `yaml:"action"`
	Child  int         `yaml:"child"`
	Tag    []int       `yaml:"tag"`
	CPT    [][]float64 `yaml:"cpt"`
}

// ActionNodeDef is one child of a factored DDN: the action factors it
// depends on and one table per joint assignment of them.
type ActionNodeDef struct {
	ActionTag []int     `yaml:"action_tag"`
	Tables    []NodeDef `yaml:"tables"`
}

// Document is a parsed model definition file.
type Document struct {
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"`
	Space []int  `yaml:"space"`

	// dbn kind, and the default transition of the compact kind.
	Nodes []NodeDef `yaml:"nodes"`

	// compact kind.
	Actions int       `yaml:"actions"`
	Diffs   []DiffDef `yaml:"diffs"`

	// factored kind.
	ActionSpace []int           `yaml:"action_space"`
	Factored    []ActionNodeDef `yaml:"factored"`
}

// #endregion types

// #region load

// Load reads and parses a model definition file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	return Parse(data)
}

// Parse parses a model definition document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse model file: %w", err)
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("model file has no name")
	}
	if len(doc.Space) == 0 {
		return nil, fmt.Errorf("model %q has no space", doc.Name)
	}
	for i, d := range doc.Space {
		if d < 1 {
			return nil, fmt.Errorf("model %q: factor %d has domain size %d", doc.Name, i, d)
		}
	}
	switch doc.Kind {
	case "dbn", "compact", "factored":
	default:
		return nil, fmt.Errorf("model %q has unknown kind %q", doc.Name, doc.Kind)
	}
	return &doc, nil
}

// #endregion load

// #region build

// BuildDBN turns a dbn-kind document into a validated network.
func (d *Document) BuildDBN() (factored.Factors, *bayesnet.DBN, error) {
	if d.Kind != "dbn" {
		return nil, nil, fmt.Errorf("model %q has kind %q, want dbn", d.Name, d.Kind)
	}
	space := factored.Factors(d.Space)
	nodes, err := buildNodes(space, d.Nodes)
	if err != nil {
		return nil, nil, fmt.Errorf("model %q: %w", d.Name, err)
	}
	dbn := &bayesnet.DBN{Nodes: nodes}
	if err := bayesnet.ValidateDBN(space, dbn); err != nil {
		return nil, nil, fmt.Errorf("model %q: %w", d.Name, err)
	}
	return space, dbn, nil
}

// BuildCompactDDN turns a compact-kind document into a validated
// network.
func (d *Document) BuildCompactDDN() (factored.Factors, *bayesnet.CompactDDN, error) {
	if d.Kind != "compact" {
		return nil, nil, fmt.Errorf("model %q has kind %q, want compact", d.Name, d.Kind)
	}
	if d.Actions < 1 {
		return nil, nil, fmt.Errorf("model %q: compact kind needs actions >= 1", d.Name)
	}
	space := factored.Factors(d.Space)
	defNodes, err := buildNodes(space, d.Nodes)
	if err != nil {
		return nil, nil, fmt.Errorf("model %q default: %w", d.Name, err)
	}

	diffs := make([][]bayesnet.Diff, d.Actions)
	for _, diff := range d.Diffs {
		if diff.Action < 0 || diff.Action >= d.Actions {
			return nil, nil, fmt.Errorf("model %q: diff action %d out of range", d.Name, diff.Action)
		}
		if diff.Child < 0 || diff.Child >= len(space) {
			return nil, nil, fmt.Errorf("model %q: diff child %d out of range", d.Name, diff.Child)
		}
		for _, existing := range diffs[diff.Action] {
			if existing.ID == diff.Child {
				return nil, nil, fmt.Errorf("model %q: duplicate diff for action %d child %d", d.Name, diff.Action, diff.Child)
			}
		}
		node, err := buildNode(space, diff.Child, NodeDef{Tag: diff.Tag, CPT: diff.CPT})
		if err != nil {
			return nil, nil, fmt.Errorf("model %q diff (action %d, child %d): %w", d.Name, diff.Action, diff.Child, err)
		}
		diffs[diff.Action] = append(diffs[diff.Action], bayesnet.Diff{ID: diff.Child, Node: node})
	}

	ddn := bayesnet.NewCompactDDN(diffs, bayesnet.DBN{Nodes: defNodes})
	if err := bayesnet.ValidateCompactDDN(space, ddn); err != nil {
		return nil, nil, fmt.Errorf("model %q: %w", d.Name, err)
	}
	return space, ddn, nil
}

// BuildFactoredDDN turns a factored-kind document into a validated
// network, returning the state and action spaces.
func (d *Document) BuildFactoredDDN() (factored.Factors, factored.Factors, *bayesnet.FactoredDDN, error) {
	if d.Kind != "factored" {
		return nil, nil, nil, fmt.Errorf("model %q has kind %q, want factored", d.Name, d.Kind)
	}
	if len(d.ActionSpace) == 0 {
		return nil, nil, nil, fmt.Errorf("model %q: factored kind needs an action_space", d.Name)
	}
	space := factored.Factors(d.Space)
	actions := factored.Factors(d.ActionSpace)
	for i, a := range actions {
		if a < 1 {
			return nil, nil, nil, fmt.Errorf("model %q: action factor %d has domain size %d", d.Name, i, a)
		}
	}

	nodes := make([]bayesnet.ActionNode, len(d.Factored))
	for i, def := range d.Factored {
		actionTag := factored.Tag(def.ActionTag)
		if actionTag == nil {
			actionTag = factored.Tag{}
		}
		if err := factored.TagError(actions, actionTag); err != nil {
			return nil, nil, nil, fmt.Errorf("model %q child %d: %w", d.Name, i, err)
		}
		nodes[i].ActionTag = actionTag
		nodes[i].Nodes = make([]bayesnet.Node, len(def.Tables))
		for j, tbl := range def.Tables {
			node, err := buildNode(space, i, tbl)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("model %q child %d table %d: %w", d.Name, i, j, err)
			}
			nodes[i].Nodes[j] = node
		}
	}

	ddn := &bayesnet.FactoredDDN{Nodes: nodes}
	if err := bayesnet.ValidateFactoredDDN(space, actions, ddn); err != nil {
		return nil, nil, nil, fmt.Errorf("model %q: %w", d.Name, err)
	}
	return space, actions, ddn, nil
}

func buildNodes(space factored.Factors, defs []NodeDef) ([]bayesnet.Node, error) {
	if len(defs) != len(space) {
		return nil, fmt.Errorf("%d nodes for a space of %d factors", len(defs), len(space))
	}
	nodes := make([]bayesnet.Node, len(defs))
	for i, def := range defs {
		node, err := buildNode(space, i, def)
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		}
		nodes[i] = node
	}
	return nodes, nil
}

func buildNode(space factored.Factors, child int, def NodeDef) (bayesnet.Node, error) {
	tag := factored.Tag(def.Tag)
	if tag == nil {
		tag = factored.Tag{}
	}
	if err := factored.TagError(space, tag); err != nil {
		return bayesnet.Node{}, err
	}
	if len(def.CPT) == 0 {
		return bayesnet.Node{}, fmt.Errorf("empty cpt")
	}
	cols := len(def.CPT[0])
	data := make([]float64, 0, len(def.CPT)*cols)
	for r, row := range def.CPT {
		if len(row) != cols {
			return bayesnet.Node{}, fmt.Errorf("cpt row %d has %d entries, row 0 has %d", r, len(row), cols)
		}
		data = append(data, row...)
	}
	if cols != space[child] {
		return bayesnet.Node{}, fmt.Errorf("cpt has %d columns, child domain is %d", cols, space[child])
	}
	return bayesnet.Node{Tag: tag, CPT: mat.NewDense(len(def.CPT), cols, data)}, nil
}

// #endregion build

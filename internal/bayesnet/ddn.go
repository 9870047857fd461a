package bayesnet

import (
	"fmt"

	"github.com/danielpatrickdp/factored-mdp/internal/factored"
)

// #region compact-ddn

// Diff replaces the default node of a single state factor for one
// action.
type Diff struct {
	ID   int
	Node Node
}

// CompactDDN represents a Dynamic Decision Network as a default DBN
// plus, for each action, the sparse list of nodes that differ from the
// default. Both are set at construction and immutable afterwards.
type CompactDDN struct {
	diffs [][]Diff
	def   DBN
}

// NewCompactDDN builds a CompactDDN from one diff list per action and
// a default transition model. Within each list the ids must be unique
// and valid state-factor indices.
func NewCompactDDN(diffs [][]Diff, def DBN) *CompactDDN {
	n := len(def.Nodes)
	for a, list := range diffs {
		seen := make(map[int]bool, len(list))
		for _, d := range list {
			if d.ID < 0 || d.ID >= n {
				panic(fmt.Sprintf("bayesnet: diff id %d out of range for action %d", d.ID, a))
			}
			if seen[d.ID] {
				panic(fmt.Sprintf("bayesnet: duplicate diff id %d for action %d", d.ID, a))
			}
			seen[d.ID] = true
		}
	}
	return &CompactDDN{diffs: diffs, def: def}
}

// DiffTransition materializes the transition model of action a as a
// DBNRef: the diff node where one exists, the default node elsewhere.
// The returned view borrows this network's nodes and must not outlive
// it.
func (c *CompactDDN) DiffTransition(a int) DBNRef {
	refs := make([]*Node, len(c.def.Nodes))
	for i := range c.def.Nodes {
		refs[i] = &c.def.Nodes[i]
	}
	for j := range c.diffs[a] {
		d := &c.diffs[a][j]
		refs[d.ID] = &d.Node
	}
	return DBNRef{Nodes: refs}
}

// DefaultTransition returns the default transition model.
func (c *CompactDDN) DefaultTransition() *DBN { return &c.def }

// DiffNodes returns the per-action diff lists.
func (c *CompactDDN) DiffNodes() [][]Diff { return c.diffs }

// ActionCount returns the number of actions the network covers.
func (c *CompactDDN) ActionCount() int { return len(c.diffs) }

// #endregion compact-ddn

// #region factored-ddn

// ActionNode holds the transition tables of one state factor in a
// FactoredDDN. ActionTag names the action factors this child depends
// on; Nodes holds one DBN node per joint assignment of those factors,
// little-endian on tag position.
type ActionNode struct {
	ActionTag factored.Tag
	Nodes     []Node
}

// FactoredDDN is a Dynamic Decision Network with factored actions:
// each child's CPT is selected by the assignment of its own subset of
// action factors.
type FactoredDDN struct {
	Nodes []ActionNode
}

// NewFactoredDDN builds a FactoredDDN over the given state and action
// spaces, panicking when a child's table length does not match the
// joint domain of its action tag.
func NewFactoredDDN(space, actions factored.Factors, nodes []ActionNode) *FactoredDDN {
	if len(nodes) != len(space) {
		panic(fmt.Sprintf("bayesnet: %d action nodes for a space of %d factors", len(nodes), len(space)))
	}
	for i := range nodes {
		factored.CheckTag(actions, nodes[i].ActionTag)
		want := factored.FactorSpacePartial(nodes[i].ActionTag, actions)
		if len(nodes[i].Nodes) != want {
			panic(fmt.Sprintf("bayesnet: child %d has %d tables for an action tag of %d assignments", i, len(nodes[i].Nodes), want))
		}
		for j := range nodes[i].Nodes {
			factored.CheckTag(space, nodes[i].Nodes[j].Tag)
		}
	}
	return &FactoredDDN{Nodes: nodes}
}

// Node returns the action node describing child i.
func (f *FactoredDDN) Node(i int) *ActionNode { return &f.Nodes[i] }

// TransitionProbability returns the probability of moving from the
// full state s to the full state s1 under the full action a.
func (f *FactoredDDN) TransitionProbability(space, actions, s, a, s1 factored.Factors) float64 {
	p := 1.0
	for i := range f.Nodes {
		an := &f.Nodes[i]
		n := &an.Nodes[factored.ToIndex(an.ActionTag, actions, a)]
		p *= n.CPT.At(factored.ToIndex(n.Tag, space, s), s1[i])
	}
	return p
}

// PartialTransitionProbability returns the product of the per-factor
// conditionals for the children named by s1.Tag. s must cover every
// parent of those children and a must cover each of their action
// tags; otherwise the call panics.
func (f *FactoredDDN) PartialTransitionProbability(space, actions factored.Factors, s, a, s1 factored.Partial) float64 {
	p := 1.0
	for j, child := range s1.Tag {
		an := &f.Nodes[child]
		n := &an.Nodes[factored.ToIndexPartial(an.ActionTag, actions, a)]
		p *= n.CPT.At(factored.ToIndexPartial(n.Tag, space, s), s1.Values[j])
	}
	return p
}

// #endregion factored-ddn

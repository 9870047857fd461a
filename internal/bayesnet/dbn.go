// Package bayesnet implements factored transition models for factored
// MDPs: Dynamic Bayesian Networks, compact Dynamic Decision Networks
// (default network plus per-action node diffs), and Dynamic Decision
// Networks with factored actions.
//
// Networks are read-only after construction; concurrent readers are
// safe. Structural misuse (bad tags, missing parent coverage, indices
// out of range) panics — these are programmer errors, not runtime
// conditions.
package bayesnet

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/danielpatrickdp/factored-mdp/internal/factored"
)

// #region node

// Node is the conditional probability table of a single state factor.
// The child is not named here: its id is the node's position within
// the enclosing network. Tag lists the parents in the previous time
// slice. CPT rows are indexed by the joint parent assignment
// (little-endian on tag position), columns by the child value. Every
// row sums to 1 and every entry is non-negative.
type Node struct {
	Tag factored.Tag
	CPT *mat.Dense
}

// #endregion node

// #region model

// Model is the read contract shared by DBN and DBNRef, and the only
// surface back-projection needs from a transition model.
type Model interface {
	// Node returns the node describing child i.
	Node(i int) *Node
	// PartialTransitionProbability returns the product of the
	// per-factor conditionals for the children named by s1.Tag. s
	// must cover every parent of those children.
	PartialTransitionProbability(space factored.Factors, s, s1 factored.Partial) float64
}

// #endregion model

// #region dbn

// DBN is a Dynamic Bayesian Network: one Node per state factor, in
// factor order.
type DBN struct {
	Nodes []Node
}

// Node returns the node describing child i.
func (d *DBN) Node(i int) *Node { return &d.Nodes[i] }

// TransitionProbability returns the probability of moving from the
// full assignment s to the full assignment s1, as the product of every
// child's conditional probability.
func (d *DBN) TransitionProbability(space, s, s1 factored.Factors) float64 {
	p := 1.0
	for i := range d.Nodes {
		n := &d.Nodes[i]
		p *= n.CPT.At(factored.ToIndex(n.Tag, space, s), s1[i])
	}
	return p
}

// PartialTransitionProbability returns the product of the per-factor
// conditionals for the children named by s1.Tag; children outside the
// tag contribute 1. s must assign a value to every parent of those
// children, otherwise the call panics.
func (d *DBN) PartialTransitionProbability(space factored.Factors, s, s1 factored.Partial) float64 {
	p := 1.0
	for j, child := range s1.Tag {
		n := &d.Nodes[child]
		p *= n.CPT.At(factored.ToIndexPartial(n.Tag, space, s), s1.Values[j])
	}
	return p
}

// #endregion dbn

// #region dbn-ref

// DBNRef is a non-owning Dynamic Bayesian Network assembled from
// borrowed nodes. It has the same read contract as DBN and is valid
// only while the backing nodes remain live; CompactDDN.DiffTransition
// returns one to materialize a per-action network without copying any
// matrix.
type DBNRef struct {
	Nodes []*Node
}

// Node returns the node describing child i.
func (d DBNRef) Node(i int) *Node { return d.Nodes[i] }

// TransitionProbability returns the probability of moving from the
// full assignment s to the full assignment s1.
func (d DBNRef) TransitionProbability(space, s, s1 factored.Factors) float64 {
	p := 1.0
	for i, n := range d.Nodes {
		p *= n.CPT.At(factored.ToIndex(n.Tag, space, s), s1[i])
	}
	return p
}

// PartialTransitionProbability behaves exactly like
// DBN.PartialTransitionProbability.
func (d DBNRef) PartialTransitionProbability(space factored.Factors, s, s1 factored.Partial) float64 {
	p := 1.0
	for j, child := range s1.Tag {
		n := d.Nodes[child]
		p *= n.CPT.At(factored.ToIndexPartial(n.Tag, space, s), s1.Values[j])
	}
	return p
}

// #endregion dbn-ref

// #region constructor

// NewDBN builds a DBN over space from one node per state factor,
// panicking when the node count or any parent tag is structurally
// invalid. Row-stochasticity is not checked here; use ValidateDBN at
// ingestion boundaries.
func NewDBN(space factored.Factors, nodes []Node) *DBN {
	if len(nodes) != len(space) {
		panic(fmt.Sprintf("bayesnet: %d nodes for a space of %d factors", len(nodes), len(space)))
	}
	for i := range nodes {
		factored.CheckTag(space, nodes[i].Tag)
	}
	return &DBN{Nodes: nodes}
}

// #endregion constructor

// Package backproject pulls factored value functions through a
// transition model: given a function over the post-state (and, for
// decision networks, the post-action), it produces the expected value
// over the pre-state and pre-action.
//
// The cost of a call is the product of the joint parent domain and the
// joint child domain of the basis tag; callers bound work by bounding
// the tags they pass in.
package backproject

import (
	"gonum.org/v1/gonum/mat"

	"github.com/danielpatrickdp/factored-mdp/internal/basis"
	"github.com/danielpatrickdp/factored-mdp/internal/bayesnet"
	"github.com/danielpatrickdp/factored-mdp/internal/factored"
)

// #region basis

// Basis back-projects a single basis function through a transition
// model: the result at a pre-state x is the expectation of bf over the
// post-state assignments of bf.Tag, conditioned on x. Its tag is the
// union of the parent tags of bf's children, and its values are dense
// over that tag.
func Basis(space factored.Factors, net bayesnet.Model, bf basis.BasisFunction) basis.BasisFunction {
	var out basis.BasisFunction

	// The output domain is the set of parents of every child the
	// input basis depends on.
	for _, d := range bf.Tag {
		out.Tag = factored.Merge(out.Tag, net.Node(d).Tag)
	}
	out.Values = mat.NewVecDense(factored.FactorSpacePartial(out.Tag, space), nil)

	domain := factored.NewPartialEnumerator(space, out.Tag)
	rhs := factored.NewPartialEnumerator(space, bf.Tag)

	// The output is dense over its domain, so iterate it directly.
	// For each pre-state only the children named by bf.Tag matter:
	// every other child's conditional contributes a factor of 1.
	id := 0
	for ; domain.Valid(); domain.Advance() {
		val := 0.0
		i := 0
		for ; rhs.Valid(); rhs.Advance() {
			val += bf.Values.AtVec(i) * net.PartialTransitionProbability(space, domain.Partial(), rhs.Partial())
			i++
		}
		out.Values.SetVec(id, val)
		id++
		rhs.Reset()
	}
	return out
}

// Vector back-projects every basis of a FactoredVector and sums the
// results.
func Vector(space factored.Factors, net bayesnet.Model, fv basis.FactoredVector) basis.FactoredVector {
	var out basis.FactoredVector
	out.Bases = make([]basis.BasisFunction, 0, len(fv.Bases))
	for _, b := range fv.Bases {
		basis.PlusEqual(space, &out, Basis(space, net, b))
	}
	return out
}

// #endregion basis

// #region factored-ddn

// BasisDDN back-projects a basis function through a FactoredDDN,
// producing a BasisMatrix over pre-state and pre-action. The state tag
// aggregates the parent tags of every action instantiation of every
// child in bf.Tag; the action tag is the union of those children's
// action tags.
func BasisDDN(space, actions factored.Factors, ddn *bayesnet.FactoredDDN, bf basis.BasisFunction) basis.BasisMatrix {
	var out basis.BasisMatrix

	for _, d := range bf.Tag {
		an := ddn.Node(d)
		out.ActionTag = factored.Merge(out.ActionTag, an.ActionTag)
		for j := range an.Nodes {
			out.Tag = factored.Merge(out.Tag, an.Nodes[j].Tag)
		}
	}

	sizeS := factored.FactorSpacePartial(out.Tag, space)
	sizeA := factored.FactorSpacePartial(out.ActionTag, actions)
	out.Values = mat.NewDense(sizeS, sizeA, nil)

	sDomain := factored.NewPartialEnumerator(space, out.Tag)
	aDomain := factored.NewPartialEnumerator(actions, out.ActionTag)
	rhs := factored.NewPartialEnumerator(space, bf.Tag)

	sID := 0
	for ; sDomain.Valid(); sDomain.Advance() {
		aID := 0
		for ; aDomain.Valid(); aDomain.Advance() {
			val := 0.0
			i := 0
			for ; rhs.Valid(); rhs.Advance() {
				val += bf.Values.AtVec(i) * ddn.PartialTransitionProbability(space, actions, sDomain.Partial(), aDomain.Partial(), rhs.Partial())
				i++
			}
			out.Values.Set(sID, aID, val)
			aID++
			rhs.Reset()
		}
		sID++
		aDomain.Reset()
	}
	return out
}

// VectorDDN back-projects every basis of a FactoredVector through a
// FactoredDDN and sums the resulting matrices.
func VectorDDN(space, actions factored.Factors, ddn *bayesnet.FactoredDDN, fv basis.FactoredVector) basis.Factored2DMatrix {
	var out basis.Factored2DMatrix
	out.Bases = make([]basis.BasisMatrix, 0, len(fv.Bases))
	for _, b := range fv.Bases {
		basis.PlusEqualMatrix(space, actions, &out, BasisDDN(space, actions, ddn, b))
	}
	return out
}

// #endregion factored-ddn

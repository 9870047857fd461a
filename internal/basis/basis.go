// Package basis holds the factored value containers: basis functions
// over a subset of state factors, basis matrices over state and action
// subsets, and their summed forms. Dense storage is gonum.
package basis

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/danielpatrickdp/factored-mdp/internal/factored"
)

// #region basis-function

// BasisFunction is a function that depends only on the variables in
// its tag. Values is dense, of length FactorSpacePartial(Tag, space),
// indexed little-endian on tag position.
type BasisFunction struct {
	Tag    factored.Tag
	Values *mat.VecDense
}

// At evaluates the basis at a full assignment s.
func (b BasisFunction) At(space, s factored.Factors) float64 {
	return b.Values.AtVec(factored.ToIndex(b.Tag, space, s))
}

// #endregion basis-function

// #region factored-vector

// FactoredVector is an ordered list of basis functions; semantically
// the function equal to their sum.
type FactoredVector struct {
	Bases []BasisFunction
}

// At evaluates the sum of all bases at a full assignment s.
func (v FactoredVector) At(space, s factored.Factors) float64 {
	sum := 0.0
	for _, b := range v.Bases {
		sum += b.At(space, s)
	}
	return sum
}

// PlusEqual adds a basis function to v in place. A basis with the same
// tag is merged by element-wise addition; otherwise b is appended.
func PlusEqual(space factored.Factors, v *FactoredVector, b BasisFunction) {
	for i := range v.Bases {
		if slices.Equal(v.Bases[i].Tag, b.Tag) {
			v.Bases[i].Values.AddVec(v.Bases[i].Values, b.Values)
			return
		}
	}
	v.Bases = append(v.Bases, b)
}

// #endregion factored-vector

// #region basis-matrix

// BasisMatrix is a function of a state-factor subset and an
// action-factor subset. Rows of Values are indexed by the state tag
// assignments, columns by the action tag assignments, both
// little-endian on tag position.
type BasisMatrix struct {
	Tag       factored.Tag
	ActionTag factored.Tag
	Values    *mat.Dense
}

// At evaluates the matrix at full state and action assignments.
func (b BasisMatrix) At(space, actions, s, a factored.Factors) float64 {
	return b.Values.At(
		factored.ToIndex(b.Tag, space, s),
		factored.ToIndex(b.ActionTag, actions, a),
	)
}

// Factored2DMatrix is an ordered list of basis matrices; semantically
// their sum.
type Factored2DMatrix struct {
	Bases []BasisMatrix
}

// At evaluates the sum of all basis matrices at full assignments.
func (m Factored2DMatrix) At(space, actions, s, a factored.Factors) float64 {
	sum := 0.0
	for _, b := range m.Bases {
		sum += b.At(space, actions, s, a)
	}
	return sum
}

// PlusEqualMatrix adds a basis matrix to m in place, merging when both
// tags match and appending otherwise.
func PlusEqualMatrix(space, actions factored.Factors, m *Factored2DMatrix, b BasisMatrix) {
	for i := range m.Bases {
		if slices.Equal(m.Bases[i].Tag, b.Tag) && slices.Equal(m.Bases[i].ActionTag, b.ActionTag) {
			m.Bases[i].Values.Add(m.Bases[i].Values, b.Values)
			return
		}
	}
	m.Bases = append(m.Bases, b)
}

// #endregion basis-matrix

// #region validation

// ValidateBasis reports an error when the basis tag is malformed or
// its dense length does not match the tag's joint domain size.
func ValidateBasis(space factored.Factors, b BasisFunction) error {
	if err := factored.TagError(space, b.Tag); err != nil {
		return err
	}
	want := factored.FactorSpacePartial(b.Tag, space)
	if b.Values == nil || b.Values.Len() != want {
		got := 0
		if b.Values != nil {
			got = b.Values.Len()
		}
		return fmt.Errorf("basis over tag %v needs %d values, has %d", b.Tag, want, got)
	}
	return nil
}

// #endregion validation

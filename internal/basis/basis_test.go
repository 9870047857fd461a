package basis

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/danielpatrickdp/factored-mdp/internal/factored"
)

func TestBasisAt(t *testing.T) {
	space := factored.Factors{2, 3}
	b := BasisFunction{
		Tag:    factored.Tag{1},
		Values: mat.NewVecDense(3, []float64{10, 20, 30}),
	}

	require.Equal(t, 10.0, b.At(space, factored.Factors{0, 0}))
	require.Equal(t, 30.0, b.At(space, factored.Factors{1, 2}))
}

func TestPlusEqualMergesEqualTags(t *testing.T) {
	space := factored.Factors{2, 2}
	var v FactoredVector

	PlusEqual(space, &v, BasisFunction{
		Tag:    factored.Tag{0},
		Values: mat.NewVecDense(2, []float64{1, 2}),
	})
	PlusEqual(space, &v, BasisFunction{
		Tag:    factored.Tag{0},
		Values: mat.NewVecDense(2, []float64{10, 20}),
	})

	require.Len(t, v.Bases, 1)
	require.Equal(t, 11.0, v.Bases[0].Values.AtVec(0))
	require.Equal(t, 22.0, v.Bases[0].Values.AtVec(1))
}

func TestPlusEqualAppendsDistinctTags(t *testing.T) {
	space := factored.Factors{2, 2}
	var v FactoredVector

	PlusEqual(space, &v, BasisFunction{
		Tag:    factored.Tag{0},
		Values: mat.NewVecDense(2, []float64{1, 0}),
	})
	PlusEqual(space, &v, BasisFunction{
		Tag:    factored.Tag{1},
		Values: mat.NewVecDense(2, []float64{0, 1}),
	})

	require.Len(t, v.Bases, 2)
	// The vector evaluates to the sum of its bases.
	require.Equal(t, 1.0, v.At(space, factored.Factors{0, 0}))
	require.Equal(t, 2.0, v.At(space, factored.Factors{0, 1}))
}

func TestPlusEqualMatrix(t *testing.T) {
	space := factored.Factors{2}
	actions := factored.Factors{2}
	var m Factored2DMatrix

	bm := BasisMatrix{
		Tag:       factored.Tag{0},
		ActionTag: factored.Tag{0},
		Values:    mat.NewDense(2, 2, []float64{1, 2, 3, 4}),
	}
	PlusEqualMatrix(space, actions, &m, bm)
	PlusEqualMatrix(space, actions, &m, BasisMatrix{
		Tag:       factored.Tag{0},
		ActionTag: factored.Tag{0},
		Values:    mat.NewDense(2, 2, []float64{1, 1, 1, 1}),
	})

	require.Len(t, m.Bases, 1)
	require.Equal(t, 5.0, m.At(space, actions, factored.Factors{1}, factored.Factors{1}))

	// Same state tag, different action tag: appended, not merged.
	PlusEqualMatrix(space, actions, &m, BasisMatrix{
		Tag:       factored.Tag{0},
		ActionTag: factored.Tag{},
		Values:    mat.NewDense(2, 1, []float64{1, 1}),
	})
	require.Len(t, m.Bases, 2)
}

func TestValidateBasis(t *testing.T) {
	space := factored.Factors{2, 3}

	good := BasisFunction{Tag: factored.Tag{1}, Values: mat.NewVecDense(3, nil)}
	require.NoError(t, ValidateBasis(space, good))

	short := BasisFunction{Tag: factored.Tag{1}, Values: mat.NewVecDense(2, nil)}
	require.Error(t, ValidateBasis(space, short))

	badTag := BasisFunction{Tag: factored.Tag{1, 0}, Values: mat.NewVecDense(6, nil)}
	require.Error(t, ValidateBasis(space, badTag))
}

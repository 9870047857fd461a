package bayesnet

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/danielpatrickdp/factored-mdp/internal/factored"
)

// chainDBN is a two-factor deterministic network: x0' is always 0, and
// x1' flips x0.
func chainDBN() *DBN {
	return &DBN{Nodes: []Node{
		{Tag: factored.Tag{}, CPT: mat.NewDense(1, 2, []float64{1, 0})},
		{Tag: factored.Tag{0}, CPT: mat.NewDense(2, 2, []float64{0, 1, 1, 0})},
	}}
}

func TestDeterministicTransition(t *testing.T) {
	space := factored.Factors{2, 2}
	dbn := chainDBN()

	require.Equal(t, 1.0, dbn.TransitionProbability(space, factored.Factors{0, 0}, factored.Factors{0, 1}))
	require.Equal(t, 0.0, dbn.TransitionProbability(space, factored.Factors{0, 0}, factored.Factors{1, 1}))
	require.Equal(t, 1.0, dbn.TransitionProbability(space, factored.Factors{1, 1}, factored.Factors{0, 0}))
}

func TestPartialTransition(t *testing.T) {
	space := factored.Factors{2, 2}
	dbn := chainDBN()

	s := factored.Partial{Tag: factored.Tag{0}, Values: factored.Factors{1}}
	s1 := factored.Partial{Tag: factored.Tag{1}, Values: factored.Factors{0}}
	require.Equal(t, 1.0, dbn.PartialTransitionProbability(space, s, s1))

	// Children outside s1's tag contribute 1 regardless of s.
	s1 = factored.Partial{Tag: factored.Tag{}, Values: factored.Factors{}}
	require.Equal(t, 1.0, dbn.PartialTransitionProbability(space, s, s1))
}

func TestPartialTransitionMissingParentPanics(t *testing.T) {
	space := factored.Factors{2, 2}
	dbn := chainDBN()

	// Child 1's parent is variable 0; an s over variable 1 does not
	// cover it.
	s := factored.Partial{Tag: factored.Tag{1}, Values: factored.Factors{0}}
	s1 := factored.Partial{Tag: factored.Tag{1}, Values: factored.Factors{0}}
	require.Panics(t, func() { dbn.PartialTransitionProbability(space, s, s1) })
}

func TestPartialConsistentWithFull(t *testing.T) {
	space := factored.Factors{2, 2}
	dbn := chainDBN()

	for s0 := 0; s0 < 2; s0++ {
		for s1v := 0; s1v < 2; s1v++ {
			s := factored.Factors{s0, s1v}
			for c := 0; c < 2; c++ {
				part := dbn.PartialTransitionProbability(space,
					factored.ToPartial(s),
					factored.Partial{Tag: factored.Tag{1}, Values: factored.Factors{c}})

				// The partial form is the product of only child 1's
				// conditional, which is the full probability summed
				// over child 0.
				sum := 0.0
				for other := 0; other < 2; other++ {
					sum += dbn.TransitionProbability(space, s, factored.Factors{other, c})
				}
				require.InDelta(t, sum, part, Epsilon)
			}
		}
	}
}

func TestNewDBNPanics(t *testing.T) {
	space := factored.Factors{2, 2}

	require.Panics(t, func() {
		NewDBN(space, []Node{{Tag: factored.Tag{}, CPT: mat.NewDense(1, 2, []float64{1, 0})}})
	})
	require.Panics(t, func() {
		NewDBN(space, []Node{
			{Tag: factored.Tag{5}, CPT: mat.NewDense(1, 2, []float64{1, 0})},
			{Tag: factored.Tag{}, CPT: mat.NewDense(1, 2, []float64{1, 0})},
		})
	})
	require.NotPanics(t, func() { NewDBN(space, chainDBN().Nodes) })
}

func TestDBNRefReadsLikeDBN(t *testing.T) {
	space := factored.Factors{2, 2}
	dbn := chainDBN()
	ref := DBNRef{Nodes: []*Node{&dbn.Nodes[0], &dbn.Nodes[1]}}

	for s0 := 0; s0 < 2; s0++ {
		for s1 := 0; s1 < 2; s1++ {
			s := factored.Factors{s0, s1}
			for t0 := 0; t0 < 2; t0++ {
				for t1 := 0; t1 < 2; t1++ {
					s1f := factored.Factors{t0, t1}
					require.Equal(t,
						dbn.TransitionProbability(space, s, s1f),
						ref.TransitionProbability(space, s, s1f))
				}
			}
		}
	}
	require.Same(t, dbn.Node(1), ref.Node(1))
}

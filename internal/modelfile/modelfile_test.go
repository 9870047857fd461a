package modelfile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/factored-mdp/internal/factored"
)

const chainYAML = `
name: chain2
kind: dbn
space: [2, 2]
nodes:
  - tag: []
    cpt: [[1, 0]]
  - tag: [0]
    cpt: [[0, 1], [1, 0]]
`

const compactYAML = `
name: diffed
kind: compact
space: [2, 2]
actions: 2
nodes:
  - tag: []
    cpt: [[1, 0]]
  - tag: [0]
    cpt: [[0, 1], [1, 0]]
diffs:
  - action: 1
    child: 1
    tag: [1]
    cpt: [[1, 0], [0, 1]]
`

const factoredYAML = `
name: switched
kind: factored
space: [2, 2]
action_space: [2, 2]
factored:
  - action_tag: [0]
    tables:
      - tag: []
        cpt: [[1, 0]]
      - tag: []
        cpt: [[0, 1]]
  - action_tag: [1]
    tables:
      - tag: [0]
        cpt: [[0, 1], [1, 0]]
      - tag: [0]
        cpt: [[1, 0], [0, 1]]
`

func TestParseAndBuildDBN(t *testing.T) {
	doc, err := Parse([]byte(chainYAML))
	require.NoError(t, err)
	require.Equal(t, "chain2", doc.Name)

	space, dbn, err := doc.BuildDBN()
	require.NoError(t, err)
	require.Equal(t, factored.Factors{2, 2}, space)
	require.Len(t, dbn.Nodes, 2)
	require.Equal(t, factored.Tag{0}, dbn.Nodes[1].Tag)
	require.Equal(t, 1.0, dbn.TransitionProbability(space, factored.Factors{0, 0}, factored.Factors{0, 1}))
}

func TestBuildCompactDDN(t *testing.T) {
	doc, err := Parse([]byte(compactYAML))
	require.NoError(t, err)

	space, ddn, err := doc.BuildCompactDDN()
	require.NoError(t, err)
	require.Equal(t, 2, ddn.ActionCount())

	ref := ddn.DiffTransition(1)
	require.Equal(t, 1.0, ref.TransitionProbability(space, factored.Factors{1, 1}, factored.Factors{0, 1}))
}

func TestBuildFactoredDDN(t *testing.T) {
	doc, err := Parse([]byte(factoredYAML))
	require.NoError(t, err)

	space, actions, ddn, err := doc.BuildFactoredDDN()
	require.NoError(t, err)
	require.Equal(t, factored.Factors{2, 2}, actions)
	require.Equal(t, factored.Tag{1}, ddn.Nodes[1].ActionTag)
	require.Equal(t, 1.0, ddn.TransitionProbability(space, actions,
		factored.Factors{0, 0}, factored.Factors{1, 0}, factored.Factors{1, 1}))
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"no name", "kind: dbn\nspace: [2]", "no name"},
		{"no space", "name: x\nkind: dbn", "no space"},
		{"bad kind", "name: x\nkind: cpt\nspace: [2]", "unknown kind"},
		{"bad domain", "name: x\nkind: dbn\nspace: [0]", "domain size"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestBuildErrors(t *testing.T) {
	badRow := `
name: bad
kind: dbn
space: [2, 2]
nodes:
  - tag: []
    cpt: [[0.6, 0.6]]
  - tag: [0]
    cpt: [[0, 1], [1, 0]]
`
	doc, err := Parse([]byte(badRow))
	require.NoError(t, err)
	_, _, err = doc.BuildDBN()
	require.ErrorContains(t, err, "sums to")

	badDiff := `
name: bad
kind: compact
space: [2, 2]
actions: 1
nodes:
  - tag: []
    cpt: [[1, 0]]
  - tag: [0]
    cpt: [[0, 1], [1, 0]]
diffs:
  - action: 0
    child: 7
    tag: []
    cpt: [[1, 0]]
`
	doc, err = Parse([]byte(badDiff))
	require.NoError(t, err)
	_, _, err = doc.BuildCompactDDN()
	require.ErrorContains(t, err, "out of range")

	wrongKind := `
name: bad
kind: dbn
space: [2]
nodes:
  - tag: []
    cpt: [[1, 0]]
`
	doc, err = Parse([]byte(wrongKind))
	require.NoError(t, err)
	_, _, err = doc.BuildCompactDDN()
	require.ErrorContains(t, err, "want compact")
}

package bayesnet

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/factored-mdp/internal/factored"
)

// Epsilon is the tolerance on row sums of conditional probability
// tables.
const Epsilon = 1e-9

// #region node

// ValidateNode checks that the node for the given child has a valid
// parent tag, a CPT of shape (joint parent assignments) x (child
// domain), non-negative entries, and rows summing to 1 within Epsilon.
func ValidateNode(space factored.Factors, child int, n *Node) error {
	if child < 0 || child >= len(space) {
		return fmt.Errorf("child %d out of range for space of %d factors", child, len(space))
	}
	if err := factored.TagError(space, n.Tag); err != nil {
		return fmt.Errorf("child %d: %w", child, err)
	}
	wantRows := factored.FactorSpacePartial(n.Tag, space)
	wantCols := space[child]
	if n.CPT == nil {
		return fmt.Errorf("child %d: nil CPT", child)
	}
	rows, cols := n.CPT.Dims()
	if rows != wantRows || cols != wantCols {
		return fmt.Errorf("child %d: CPT is %dx%d, want %dx%d", child, rows, cols, wantRows, wantCols)
	}
	for r := 0; r < rows; r++ {
		sum := 0.0
		for c := 0; c < cols; c++ {
			v := n.CPT.At(r, c)
			if v < 0 {
				return fmt.Errorf("child %d: negative probability %g at row %d col %d", child, v, r, c)
			}
			sum += v
		}
		if math.Abs(sum-1) > Epsilon {
			return fmt.Errorf("child %d: row %d sums to %g, want 1", child, r, sum)
		}
	}
	return nil
}

// #endregion node

// #region networks

// ValidateDBN checks every node of a DBN against ValidateNode.
func ValidateDBN(space factored.Factors, d *DBN) error {
	if len(d.Nodes) != len(space) {
		return fmt.Errorf("network has %d nodes for a space of %d factors", len(d.Nodes), len(space))
	}
	for i := range d.Nodes {
		if err := ValidateNode(space, i, &d.Nodes[i]); err != nil {
			return err
		}
	}
	return nil
}

// ValidateCompactDDN checks the default network and every diff node.
func ValidateCompactDDN(space factored.Factors, c *CompactDDN) error {
	if err := ValidateDBN(space, c.DefaultTransition()); err != nil {
		return fmt.Errorf("default transition: %w", err)
	}
	for a, list := range c.DiffNodes() {
		for i := range list {
			if err := ValidateNode(space, list[i].ID, &list[i].Node); err != nil {
				return fmt.Errorf("action %d: %w", a, err)
			}
		}
	}
	return nil
}

// ValidateFactoredDDN checks every table of every child.
func ValidateFactoredDDN(space, actions factored.Factors, f *FactoredDDN) error {
	if len(f.Nodes) != len(space) {
		return fmt.Errorf("network has %d nodes for a space of %d factors", len(f.Nodes), len(space))
	}
	for i := range f.Nodes {
		an := &f.Nodes[i]
		if err := factored.TagError(actions, an.ActionTag); err != nil {
			return fmt.Errorf("child %d action tag: %w", i, err)
		}
		want := factored.FactorSpacePartial(an.ActionTag, actions)
		if len(an.Nodes) != want {
			return fmt.Errorf("child %d has %d tables for an action tag of %d assignments", i, len(an.Nodes), want)
		}
		for j := range an.Nodes {
			if err := ValidateNode(space, i, &an.Nodes[j]); err != nil {
				return fmt.Errorf("action assignment %d: %w", j, err)
			}
		}
	}
	return nil
}

// #endregion networks

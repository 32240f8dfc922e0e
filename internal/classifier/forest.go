package classifier

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

const leaf = -1

type forest struct {
	trees []Tree
}

func newForest(p ForestParams, n int) (*forest, error) {
	if len(p.Trees) == 0 {
		return nil, fmt.Errorf("forest has no trees")
	}
	for ti, t := range p.Trees {
		if err := validateTree(t, n); err != nil {
			return nil, fmt.Errorf("tree %d: %w", ti, err)
		}
	}
	return &forest{trees: p.Trees}, nil
}

// validateTree checks indices and that every path from the root reaches a
// leaf. Children must point forward, which also rules out cycles.
func validateTree(t Tree, n int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("no nodes")
	}
	for i, node := range t.Nodes {
		if node.Feature == leaf {
			if node.Value < 0 || node.Value > 1 {
				return fmt.Errorf("leaf %d value %v outside [0,1]", i, node.Value)
			}
			continue
		}
		if node.Feature < 0 || node.Feature >= n {
			return fmt.Errorf("node %d splits on feature %d, schema has %d", i, node.Feature, n)
		}
		for _, child := range []int{node.Left, node.Right} {
			if child <= i || child >= len(t.Nodes) {
				return fmt.Errorf("node %d has invalid child %d", i, child)
			}
		}
	}
	return nil
}

func (f *forest) Predict(x []float64) float64 {
	votes := make([]float64, len(f.trees))
	for i, t := range f.trees {
		votes[i] = walk(t, x)
	}
	return floats.Sum(votes) / float64(len(votes))
}

func walk(t Tree, x []float64) float64 {
	i := 0
	for {
		node := t.Nodes[i]
		if node.Feature == leaf {
			return node.Value
		}
		if x[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}

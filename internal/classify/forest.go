package classify

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"cpelink/internal/linkage"
)

// ForestSchemaVersion is the artifact layout LoadForest understands.
const ForestSchemaVersion = 1

// Forest is a random-forest binary classifier exported from a trained
// ensemble. Internal nodes send a row left when row[Feature] <= Threshold;
// leaves (Feature < 0) hold per-class weights for {negative, positive}.
type Forest struct {
	Name          string   `json:"name"`
	Stage         string   `json:"stage"`
	SchemaVersion int      `json:"schema_version"`
	FeatureNames  []string `json:"features"`
	Trees         []Tree   `json:"trees"`
}

// Tree is a flattened decision tree rooted at node 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Node is one split or leaf.
type Node struct {
	Feature   int        `json:"feature"`
	Threshold float64    `json:"threshold"`
	Left      int        `json:"left"`
	Right     int        `json:"right"`
	Value     [2]float64 `json:"value"`
}

func (n Node) leaf() bool { return n.Feature < 0 }

// LoadForest reads and validates a forest artifact.
func LoadForest(path string) (*Forest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, linkage.Wrap(linkage.ErrModelLoad, "", "load model", path, err)
	}
	defer file.Close()
	forest, err := DecodeForest(file)
	if err != nil {
		return nil, linkage.Wrap(linkage.ErrModelLoad, "", "load model", path, err)
	}
	return forest, nil
}

// DecodeForest parses and validates a forest artifact.
func DecodeForest(r io.Reader) (*Forest, error) {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	var forest Forest
	if err := decoder.Decode(&forest); err != nil {
		return nil, fmt.Errorf("decode forest: %w", err)
	}
	if err := forest.Validate(); err != nil {
		return nil, err
	}
	return &forest, nil
}

// Validate checks the artifact version, feature list, and that every tree is
// a well-formed forward-only node graph.
func (f *Forest) Validate() error {
	if f.SchemaVersion != ForestSchemaVersion {
		return fmt.Errorf("forest schema_version %d not supported (want %d)", f.SchemaVersion, ForestSchemaVersion)
	}
	if len(f.FeatureNames) == 0 {
		return fmt.Errorf("forest lists no features")
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("forest has no trees")
	}
	for t, tree := range f.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", t)
		}
		for i, node := range tree.Nodes {
			if node.leaf() {
				if node.Value[0] < 0 || node.Value[1] < 0 || node.Value[0]+node.Value[1] <= 0 {
					return fmt.Errorf("tree %d node %d: leaf weights must be non-negative and not both zero", t, i)
				}
				continue
			}
			if node.Feature >= len(f.FeatureNames) {
				return fmt.Errorf("tree %d node %d: feature index %d out of range", t, i, node.Feature)
			}
			for _, child := range []int{node.Left, node.Right} {
				if child <= i || child >= len(tree.Nodes) {
					return fmt.Errorf("tree %d node %d: child %d must follow its parent within the tree", t, i, child)
				}
			}
		}
	}
	return nil
}

// Features returns the ordered feature names the forest was trained on.
func (f *Forest) Features() []string { return slices.Clone(f.FeatureNames) }

// StageName returns the linkage stage the forest was trained for.
func (f *Forest) StageName() string { return f.Stage }

// Predict labels each row Positive when the mean positive probability across
// trees exceeds the negative one. Ties resolve to Negative.
func (f *Forest) Predict(rows [][]float64) ([]linkage.Label, error) {
	labels := make([]linkage.Label, len(rows))
	for r, row := range rows {
		if len(row) != len(f.FeatureNames) {
			return nil, fmt.Errorf("row %d has %d features, forest expects %d", r, len(row), len(f.FeatureNames))
		}
		var negative, positive float64
		for _, tree := range f.Trees {
			p0, p1 := tree.probabilities(row)
			negative += p0
			positive += p1
		}
		if positive > negative {
			labels[r] = linkage.Positive
		} else {
			labels[r] = linkage.Negative
		}
	}
	return labels, nil
}

func (t Tree) probabilities(row []float64) (float64, float64) {
	node := t.Nodes[0]
	for !node.leaf() {
		if row[node.Feature] <= node.Threshold {
			node = t.Nodes[node.Left]
		} else {
			node = t.Nodes[node.Right]
		}
	}
	total := node.Value[0] + node.Value[1]
	return node.Value[0] / total, node.Value[1] / total
}

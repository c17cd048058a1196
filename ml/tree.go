package ml

import (
	"errors"
	"sort"
)

// regNode is a node in a flattened regression tree. Children are indices
// into the tree's node slice; -1 marks no child.
type regNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	Leaf      bool    `json:"leaf"`
}

// regressionTree is a CART-style regression tree splitting on squared-error
// reduction. It is the base learner for both the forest and boosting
// strategies; classification wraps it by fitting 0/1 targets so leaf means
// become class probabilities.
type regressionTree struct {
	Nodes []regNode `json:"nodes"`

	MaxDepth        int     `json:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split"`
	MinSamplesLeaf  int     `json:"min_samples_leaf"`
	MinGain         float64 `json:"min_gain,omitempty"`
}

const maxSplitCandidates = 32

// fit grows the tree on the samples named by idx, considering only the
// given feature indices. When importance is non-nil, the squared-error
// reduction of every split is accumulated per feature.
func (t *regressionTree) fit(features [][]float64, targets []float64, idx []int, featureIdx []int, importance []float64) error {
	if len(features) == 0 || len(targets) == 0 {
		return errors.New("features or targets empty")
	}
	if len(features) != len(targets) {
		return errors.New("features and targets size mismatch")
	}
	if len(idx) == 0 {
		return errors.New("no samples selected")
	}
	if t.MaxDepth <= 0 {
		t.MaxDepth = 5
	}
	if t.MinSamplesSplit < 2 {
		t.MinSamplesSplit = 2
	}
	if t.MinSamplesLeaf < 1 {
		t.MinSamplesLeaf = 1
	}
	if len(featureIdx) == 0 {
		featureIdx = make([]int, len(features[0]))
		for i := range featureIdx {
			featureIdx[i] = i
		}
	}

	t.Nodes = t.build(features, targets, idx, featureIdx, 0, importance)
	return nil
}

func (t *regressionTree) build(features [][]float64, targets []float64, idx []int, featureIdx []int, depth int, importance []float64) []regNode {
	leaf := regNode{Feature: -1, Left: -1, Right: -1, Value: meanAt(targets, idx), Leaf: true}
	if depth >= t.MaxDepth || len(idx) < t.MinSamplesSplit {
		return []regNode{leaf}
	}

	split, ok := t.findBestSplit(features, targets, idx, featureIdx)
	if !ok {
		return []regNode{leaf}
	}

	leftIdx := make([]int, 0, len(idx))
	rightIdx := make([]int, 0, len(idx))
	for _, i := range idx {
		if features[i][split.feature] <= split.threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	if len(leftIdx) < t.MinSamplesLeaf || len(rightIdx) < t.MinSamplesLeaf {
		return []regNode{leaf}
	}
	if importance != nil && split.feature < len(importance) {
		importance[split.feature] += split.gain
	}

	leftNodes := t.build(features, targets, leftIdx, featureIdx, depth+1, importance)
	rightNodes := t.build(features, targets, rightIdx, featureIdx, depth+1, importance)

	// Subtree child indices are relative to the subtree's own slice;
	// shift them by the offset each subtree is appended at.
	shiftChildren(leftNodes, 1)
	shiftChildren(rightNodes, 1+len(leftNodes))

	root := regNode{
		Feature:   split.feature,
		Threshold: split.threshold,
		Left:      1,
		Right:     1 + len(leftNodes),
		Value:     leaf.Value,
		Leaf:      false,
	}

	nodes := make([]regNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = append(nodes, leftNodes...)
	nodes = append(nodes, rightNodes...)
	return nodes
}

func shiftChildren(nodes []regNode, offset int) {
	for i := range nodes {
		if !nodes[i].Leaf {
			nodes[i].Left += offset
			nodes[i].Right += offset
		}
	}
}

type splitCandidate struct {
	feature   int
	threshold float64
	gain      float64
}

func (t *regressionTree) findBestSplit(features [][]float64, targets []float64, idx []int, featureIdx []int) (splitCandidate, bool) {
	parentSSE := sseAt(targets, idx)

	best := splitCandidate{feature: -1}
	found := false

	order := make([]int, len(idx))
	for _, feature := range featureIdx {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool {
			return features[order[a]][feature] < features[order[b]][feature]
		})

		// Prefix sums over the sorted order allow each candidate split to
		// be scored in constant time.
		n := len(order)
		sum := make([]float64, n+1)
		sumSq := make([]float64, n+1)
		for i, sample := range order {
			y := targets[sample]
			sum[i+1] = sum[i] + y
			sumSq[i+1] = sumSq[i] + y*y
		}

		step := 1
		if n > maxSplitCandidates {
			step = n / maxSplitCandidates
		}
		for i := t.MinSamplesLeaf; i <= n-t.MinSamplesLeaf; i += step {
			lo := features[order[i-1]][feature]
			hi := features[order[i]][feature]
			if lo == hi {
				continue
			}
			leftN := float64(i)
			rightN := float64(n - i)
			leftSSE := sumSq[i] - sum[i]*sum[i]/leftN
			rightSSE := (sumSq[n] - sumSq[i]) - (sum[n]-sum[i])*(sum[n]-sum[i])/rightN
			gain := parentSSE - leftSSE - rightSSE
			if gain <= t.MinGain {
				continue
			}
			if !found || gain > best.gain {
				best = splitCandidate{feature: feature, threshold: (lo + hi) / 2, gain: gain}
				found = true
			}
		}
	}
	return best, found
}

func (t *regressionTree) predict(features []float64) (float64, error) {
	if len(t.Nodes) == 0 {
		return 0, errors.New("tree not fitted")
	}
	idx := 0
	for {
		node := t.Nodes[idx]
		if node.Leaf {
			return node.Value, nil
		}
		if node.Feature < 0 || node.Feature >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
		if idx < 0 || idx >= len(t.Nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
}

func meanAt(targets []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range idx {
		sum += targets[i]
	}
	return sum / float64(len(idx))
}

func sseAt(targets []float64, idx []int) float64 {
	mean := meanAt(targets, idx)
	sse := 0.0
	for _, i := range idx {
		diff := targets[i] - mean
		sse += diff * diff
	}
	return sse
}

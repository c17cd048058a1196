package ml

import (
	"errors"
	"math"
	"math/rand"
)

// RandomForestRegressor averages bootstrap-trained regression trees. With a
// fixed Seed, fitting the same data always produces the same forest.
type RandomForestRegressor struct {
	NEstimators     int     `json:"n_estimators"`
	MaxDepth        int     `json:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split"`
	MinSamplesLeaf  int     `json:"min_samples_leaf"`
	MaxFeatures     float64 `json:"max_features"`
	Seed            int64   `json:"seed"`

	Trees      []*regressionTree `json:"trees"`
	Importance []float64         `json:"importance,omitempty"`
}

func (f *RandomForestRegressor) Fit(features [][]float64, targets []float64) error {
	if len(features) == 0 || len(targets) == 0 {
		return errors.New("features or targets empty")
	}
	if len(features) != len(targets) {
		return errors.New("features and targets size mismatch")
	}
	if f.NEstimators <= 0 {
		f.NEstimators = 100
	}
	if f.MaxFeatures <= 0 || f.MaxFeatures > 1 {
		f.MaxFeatures = 1
	}

	rnd := rand.New(rand.NewSource(f.Seed))
	nSamples := len(features)
	nFeatures := len(features[0])
	importance := make([]float64, nFeatures)

	f.Trees = make([]*regressionTree, 0, f.NEstimators)
	for i := 0; i < f.NEstimators; i++ {
		idx := make([]int, nSamples)
		for j := range idx {
			idx[j] = rnd.Intn(nSamples)
		}
		featureIdx := sampleFeatures(rnd, nFeatures, f.MaxFeatures)

		tree := &regressionTree{
			MaxDepth:        f.MaxDepth,
			MinSamplesSplit: f.MinSamplesSplit,
			MinSamplesLeaf:  f.MinSamplesLeaf,
		}
		if err := tree.fit(features, targets, idx, featureIdx, importance); err != nil {
			return err
		}
		f.Trees = append(f.Trees, tree)
	}

	f.Importance = normalizeImportance(importance)
	return nil
}

func (f *RandomForestRegressor) Predict(features []float64) (float64, error) {
	if len(f.Trees) == 0 {
		return 0, errors.New("model not trained")
	}
	sum := 0.0
	for _, tree := range f.Trees {
		v, err := tree.predict(features)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return sum / float64(len(f.Trees)), nil
}

func (f *RandomForestRegressor) FeatureImportances() []float64 {
	return f.Importance
}

// RandomForestClassifier votes with leaf-mean probabilities from trees fit
// on 0/1 targets. Only binary labels are supported.
type RandomForestClassifier struct {
	RandomForestRegressor
}

func (c *RandomForestClassifier) Fit(features [][]float64, labels []int) error {
	targets, err := binaryTargets(labels)
	if err != nil {
		return err
	}
	return c.RandomForestRegressor.Fit(features, targets)
}

func (c *RandomForestClassifier) Predict(features []float64) (int, error) {
	proba, err := c.Proba(features)
	if err != nil {
		return 0, err
	}
	if proba[1] >= 0.5 {
		return 1, nil
	}
	return 0, nil
}

func (c *RandomForestClassifier) Proba(features []float64) ([]float64, error) {
	p, err := c.RandomForestRegressor.Predict(features)
	if err != nil {
		return nil, err
	}
	p = math.Max(0, math.Min(1, p))
	return []float64{1 - p, p}, nil
}

func sampleFeatures(rnd *rand.Rand, nFeatures int, fraction float64) []int {
	count := int(math.Ceil(fraction * float64(nFeatures)))
	if count >= nFeatures {
		return nil // all features
	}
	if count < 1 {
		count = 1
	}
	perm := rnd.Perm(nFeatures)
	return perm[:count]
}

func normalizeImportance(importance []float64) []float64 {
	total := 0.0
	for _, v := range importance {
		total += v
	}
	if total == 0 {
		return importance
	}
	normalized := make([]float64, len(importance))
	for i, v := range importance {
		normalized[i] = v / total
	}
	return normalized
}

func binaryTargets(labels []int) ([]float64, error) {
	targets := make([]float64, len(labels))
	for i, label := range labels {
		switch label {
		case 0:
			targets[i] = 0
		case 1:
			targets[i] = 1
		default:
			return nil, errors.New("only binary labels are supported")
		}
	}
	return targets, nil
}

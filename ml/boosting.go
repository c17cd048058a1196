package ml

import (
	"errors"
	"math"
	"math/rand"
)

// GradientBoostingRegressor fits shallow regression trees to the residuals
// of the running prediction. Subsample and ColsampleByTree below 1.0 give
// the stochastic boosted-trees variant; MinGain prunes splits whose
// squared-error reduction is too small.
type GradientBoostingRegressor struct {
	NEstimators     int     `json:"n_estimators"`
	LearningRate    float64 `json:"learning_rate"`
	MaxDepth        int     `json:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split"`
	MinSamplesLeaf  int     `json:"min_samples_leaf"`
	Subsample       float64 `json:"subsample"`
	ColsampleByTree float64 `json:"colsample_bytree"`
	MinGain         float64 `json:"min_gain"`
	Seed            int64   `json:"seed"`

	Init       float64           `json:"init"`
	Trees      []*regressionTree `json:"trees"`
	Importance []float64         `json:"importance,omitempty"`
}

func (g *GradientBoostingRegressor) Fit(features [][]float64, targets []float64) error {
	if len(features) == 0 || len(targets) == 0 {
		return errors.New("features or targets empty")
	}
	if len(features) != len(targets) {
		return errors.New("features and targets size mismatch")
	}
	g.applyDefaults()

	g.Init = mean(targets)
	current := make([]float64, len(targets))
	for i := range current {
		current[i] = g.Init
	}

	g.boost(features, targets, current, func(i int) float64 {
		return targets[i] - current[i]
	})
	return nil
}

func (g *GradientBoostingRegressor) Predict(features []float64) (float64, error) {
	if len(g.Trees) == 0 {
		return 0, errors.New("model not trained")
	}
	return g.score(features)
}

func (g *GradientBoostingRegressor) FeatureImportances() []float64 {
	return g.Importance
}

func (g *GradientBoostingRegressor) applyDefaults() {
	if g.NEstimators <= 0 {
		g.NEstimators = 100
	}
	if g.LearningRate <= 0 {
		g.LearningRate = 0.1
	}
	if g.Subsample <= 0 || g.Subsample > 1 {
		g.Subsample = 1
	}
	if g.ColsampleByTree <= 0 || g.ColsampleByTree > 1 {
		g.ColsampleByTree = 1
	}
}

// boost runs the shared boosting loop. residual reports the current
// pseudo-residual for a sample; current is updated in place with the
// learning-rate-scaled tree outputs.
func (g *GradientBoostingRegressor) boost(features [][]float64, targets, current []float64, residual func(int) float64) {
	rnd := rand.New(rand.NewSource(g.Seed))
	nSamples := len(features)
	nFeatures := len(features[0])
	importance := make([]float64, nFeatures)

	residuals := make([]float64, nSamples)
	g.Trees = make([]*regressionTree, 0, g.NEstimators)

	for m := 0; m < g.NEstimators; m++ {
		for i := range residuals {
			residuals[i] = residual(i)
		}

		idx := subsampleIndices(rnd, nSamples, g.Subsample)
		featureIdx := sampleFeatures(rnd, nFeatures, g.ColsampleByTree)

		tree := &regressionTree{
			MaxDepth:        g.MaxDepth,
			MinSamplesSplit: g.MinSamplesSplit,
			MinSamplesLeaf:  g.MinSamplesLeaf,
			MinGain:         g.MinGain,
		}
		if err := tree.fit(features, residuals, idx, featureIdx, importance); err != nil {
			continue
		}
		g.Trees = append(g.Trees, tree)

		for i := range current {
			v, err := tree.predict(features[i])
			if err != nil {
				continue
			}
			current[i] += g.LearningRate * v
		}
	}

	g.Importance = normalizeImportance(importance)
}

func (g *GradientBoostingRegressor) score(features []float64) (float64, error) {
	score := g.Init
	for _, tree := range g.Trees {
		v, err := tree.predict(features)
		if err != nil {
			return 0, err
		}
		score += g.LearningRate * v
	}
	return score, nil
}

// GradientBoostingClassifier boosts with logistic loss: trees are fit to
// the gradient (label minus predicted probability) and the accumulated
// score is squashed through a sigmoid. Binary labels only.
type GradientBoostingClassifier struct {
	GradientBoostingRegressor
}

func (c *GradientBoostingClassifier) Fit(features [][]float64, labels []int) error {
	targets, err := binaryTargets(labels)
	if err != nil {
		return err
	}
	if len(features) != len(targets) {
		return errors.New("features and labels size mismatch")
	}
	c.applyDefaults()

	positive := mean(targets)
	positive = math.Max(1e-6, math.Min(1-1e-6, positive))
	c.Init = math.Log(positive / (1 - positive))

	current := make([]float64, len(targets))
	for i := range current {
		current[i] = c.Init
	}

	c.boost(features, targets, current, func(i int) float64 {
		return targets[i] - sigmoid(current[i])
	})
	return nil
}

func (c *GradientBoostingClassifier) Predict(features []float64) (int, error) {
	proba, err := c.Proba(features)
	if err != nil {
		return 0, err
	}
	if proba[1] >= 0.5 {
		return 1, nil
	}
	return 0, nil
}

func (c *GradientBoostingClassifier) Proba(features []float64) ([]float64, error) {
	if len(c.Trees) == 0 {
		return nil, errors.New("model not trained")
	}
	score, err := c.score(features)
	if err != nil {
		return nil, err
	}
	p := sigmoid(score)
	return []float64{1 - p, p}, nil
}

func subsampleIndices(rnd *rand.Rand, nSamples int, fraction float64) []int {
	if fraction >= 1 {
		idx := make([]int, nSamples)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	count := int(math.Ceil(fraction * float64(nSamples)))
	if count < 1 {
		count = 1
	}
	perm := rnd.Perm(nSamples)
	idx := append([]int(nil), perm[:count]...)
	return idx
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

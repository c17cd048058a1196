package ml

import "fmt"

// Model kinds selectable at training time. All three are tree ensembles;
// they differ in how trees are grown and combined.
const (
	KindRandomForest     = "random_forest"
	KindGradientBoosting = "gradient_boosting"
	KindBoostedTrees     = "boosted_trees"
)

// Regressor is the capability set every pricing strategy implements.
type Regressor interface {
	Fit(features [][]float64, targets []float64) error
	Predict(features []float64) (float64, error)
}

// Classifier is the capability set every availability strategy implements.
// Proba returns the class-probability pair [P(0), P(1)].
type Classifier interface {
	Fit(features [][]float64, labels []int) error
	Predict(features []float64) (int, error)
	Proba(features []float64) ([]float64, error)
}

// ImportanceReporter is optionally implemented by strategies that can rank
// features by their contribution to the fit.
type ImportanceReporter interface {
	FeatureImportances() []float64
}

// NewRegressor builds a pricing strategy for kind with the project's stock
// hyperparameters and a fixed seed for reproducible fits.
func NewRegressor(kind string, seed int64) (Regressor, error) {
	switch kind {
	case KindRandomForest:
		return &RandomForestRegressor{
			NEstimators:     100,
			MaxDepth:        12,
			MinSamplesSplit: 5,
			MinSamplesLeaf:  2,
			MaxFeatures:     0.7,
			Seed:            seed,
		}, nil
	case KindGradientBoosting:
		return &GradientBoostingRegressor{
			NEstimators:     100,
			LearningRate:    0.1,
			MaxDepth:        7,
			MinSamplesSplit: 5,
			Seed:            seed,
		}, nil
	case KindBoostedTrees:
		return &GradientBoostingRegressor{
			NEstimators:     100,
			LearningRate:    0.1,
			MaxDepth:        7,
			MinSamplesSplit: 5,
			MinSamplesLeaf:  3,
			Subsample:       0.8,
			ColsampleByTree: 0.8,
			MinGain:         0.1,
			Seed:            seed,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported model kind: %s", kind)
	}
}

// NewClassifier builds an availability strategy for kind.
func NewClassifier(kind string, seed int64) (Classifier, error) {
	switch kind {
	case KindRandomForest:
		return &RandomForestClassifier{RandomForestRegressor{
			NEstimators:     100,
			MaxDepth:        10,
			MinSamplesSplit: 5,
			MinSamplesLeaf:  2,
			MaxFeatures:     0.7,
			Seed:            seed,
		}}, nil
	case KindGradientBoosting:
		return &GradientBoostingClassifier{GradientBoostingRegressor{
			NEstimators:     100,
			LearningRate:    0.1,
			MaxDepth:        5,
			MinSamplesSplit: 5,
			Seed:            seed,
		}}, nil
	case KindBoostedTrees:
		return &GradientBoostingClassifier{GradientBoostingRegressor{
			NEstimators:     100,
			LearningRate:    0.1,
			MaxDepth:        5,
			MinSamplesSplit: 5,
			MinSamplesLeaf:  3,
			Subsample:       0.8,
			ColsampleByTree: 0.8,
			MinGain:         0.1,
			Seed:            seed,
		}}, nil
	default:
		return nil, fmt.Errorf("unsupported model kind: %s", kind)
	}
}

package ml

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"time"
)

// Dataset is a labeled training set plus the feature-space description the
// pipeline needs: which features are categorical, the full ordered column
// list and the fallback index for unseen categories.
type Dataset struct {
	Records []Record
	Targets []float64 // regression targets
	Labels  []int     // classification labels

	CategoricalFeatures []string
	Columns             []string
	EncoderFallback     int
}

// TrainOptions control the train/test split and cross-validation. The seed
// fixes both the split and the model fits, so a training run is fully
// reproducible.
type TrainOptions struct {
	TestRatio     float64
	Seed          int64
	CrossValFolds int
}

func (o TrainOptions) normalized() TrainOptions {
	if o.TestRatio <= 0 || o.TestRatio >= 1 {
		o.TestRatio = 0.2
	}
	if o.CrossValFolds <= 0 {
		o.CrossValFolds = 5
	}
	return o
}

// FeatureImportance pairs a column name with its normalized importance.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Report is the result of a training run.
type Report struct {
	Artifact    *Artifact
	Metrics     map[string]float64
	Importances []FeatureImportance
}

// TrainRegressor fits the pipeline's encoders on the dataset, trains a
// regression strategy of the given kind and evaluates it on a held-out
// split. Encoders see training records only.
func TrainRegressor(ds *Dataset, kind string, opts TrainOptions) (*Report, error) {
	if ds == nil || len(ds.Records) == 0 {
		return nil, errors.New("dataset is empty")
	}
	if len(ds.Records) != len(ds.Targets) {
		return nil, errors.New("records and targets size mismatch")
	}
	opts = opts.normalized()

	trainIdx, testIdx := splitIndices(len(ds.Records), opts.TestRatio, opts.Seed)

	var pipeline Pipeline
	trainRecords := recordsAt(ds.Records, trainIdx)
	if err := pipeline.Fit(trainRecords, ds.CategoricalFeatures, ds.Columns, ds.EncoderFallback); err != nil {
		return nil, err
	}

	trainX := pipeline.EncodeAll(trainRecords)
	testX := pipeline.EncodeAll(recordsAt(ds.Records, testIdx))
	trainY := floatsAt(ds.Targets, trainIdx)
	testY := floatsAt(ds.Targets, testIdx)

	model, err := NewRegressor(kind, opts.Seed)
	if err != nil {
		return nil, err
	}
	if err := model.Fit(trainX, trainY); err != nil {
		return nil, err
	}

	trainPred, err := predictAll(model, trainX)
	if err != nil {
		return nil, err
	}
	testPred, err := predictAll(model, testX)
	if err != nil {
		return nil, err
	}

	metrics := map[string]float64{
		"train_rmse": RMSE(trainY, trainPred),
		"test_rmse":  RMSE(testY, testPred),
		"train_mae":  MAE(trainY, trainPred),
		"test_mae":   MAE(testY, testPred),
		"train_r2":   R2(trainY, trainPred),
		"test_r2":    R2(testY, testPred),
		"train_mape": MAPE(trainY, trainPred),
		"test_mape":  MAPE(testY, testPred),
	}

	meta := Metadata{
		ModelType:       kind,
		Task:            TaskRegression,
		TrainedAt:       time.Now().UTC(),
		TrainingSamples: len(trainX),
		Metrics:         metrics,
	}
	artifact, err := NewRegressionArtifact(kind, model, pipeline, meta)
	if err != nil {
		return nil, err
	}

	return &Report{
		Artifact:    artifact,
		Metrics:     metrics,
		Importances: rankedImportances(model, pipeline.Columns),
	}, nil
}

// TrainClassifier is the classification counterpart of TrainRegressor,
// reporting accuracy, F1 and cross-validated accuracy.
func TrainClassifier(ds *Dataset, kind string, opts TrainOptions) (*Report, error) {
	if ds == nil || len(ds.Records) == 0 {
		return nil, errors.New("dataset is empty")
	}
	if len(ds.Records) != len(ds.Labels) {
		return nil, errors.New("records and labels size mismatch")
	}
	opts = opts.normalized()

	trainIdx, testIdx := splitIndices(len(ds.Records), opts.TestRatio, opts.Seed)

	var pipeline Pipeline
	trainRecords := recordsAt(ds.Records, trainIdx)
	if err := pipeline.Fit(trainRecords, ds.CategoricalFeatures, ds.Columns, ds.EncoderFallback); err != nil {
		return nil, err
	}

	trainX := pipeline.EncodeAll(trainRecords)
	testX := pipeline.EncodeAll(recordsAt(ds.Records, testIdx))
	trainY := intsAt(ds.Labels, trainIdx)
	testY := intsAt(ds.Labels, testIdx)

	model, err := NewClassifier(kind, opts.Seed)
	if err != nil {
		return nil, err
	}
	if err := model.Fit(trainX, trainY); err != nil {
		return nil, err
	}

	trainPred, err := classifyAll(model, trainX)
	if err != nil {
		return nil, err
	}
	testPred, err := classifyAll(model, testX)
	if err != nil {
		return nil, err
	}

	cvMean, cvStd, err := CrossValidateAccuracy(func(fold int) (Classifier, error) {
		return NewClassifier(kind, opts.Seed+int64(fold)+1)
	}, trainX, trainY, opts.CrossValFolds, opts.Seed)
	if err != nil {
		return nil, err
	}

	metrics := map[string]float64{
		"train_accuracy":   Accuracy(trainY, trainPred),
		"test_accuracy":    Accuracy(testY, testPred),
		"train_f1":         F1(trainY, trainPred, 1),
		"test_f1":          F1(testY, testPred, 1),
		"cv_mean_accuracy": cvMean,
		"cv_std_accuracy":  cvStd,
	}

	meta := Metadata{
		ModelType:       kind,
		Task:            TaskClassification,
		TrainedAt:       time.Now().UTC(),
		TrainingSamples: len(trainX),
		Metrics:         metrics,
	}
	artifact, err := NewClassificationArtifact(kind, model, pipeline, meta)
	if err != nil {
		return nil, err
	}

	return &Report{
		Artifact:    artifact,
		Metrics:     metrics,
		Importances: rankedImportances(model, pipeline.Columns),
	}, nil
}

// splitIndices shuffles 0..n-1 with the seed and cuts off the test tail.
func splitIndices(n int, testRatio float64, seed int64) (train, test []int) {
	perm := permIndices(n, seed)
	split := int(math.Round(float64(n) * (1 - testRatio)))
	if split < 1 {
		split = 1
	}
	if split > n {
		split = n
	}
	return perm[:split], perm[split:]
}

func permIndices(n int, seed int64) []int {
	rnd := rand.New(rand.NewSource(seed))
	return rnd.Perm(n)
}

func recordsAt(records []Record, idx []int) []Record {
	out := make([]Record, len(idx))
	for i, j := range idx {
		out[i] = records[j]
	}
	return out
}

func floatsAt(values []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}

func intsAt(values []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}

func predictAll(model Regressor, features [][]float64) ([]float64, error) {
	out := make([]float64, len(features))
	for i, x := range features {
		v, err := model.Predict(x)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func classifyAll(model Classifier, features [][]float64) ([]int, error) {
	out := make([]int, len(features))
	for i, x := range features {
		label, err := model.Predict(x)
		if err != nil {
			return nil, err
		}
		out[i] = label
	}
	return out, nil
}

func rankedImportances(model interface{}, columns []string) []FeatureImportance {
	reporter, ok := model.(ImportanceReporter)
	if !ok {
		return nil
	}
	importance := reporter.FeatureImportances()
	if len(importance) != len(columns) {
		return nil
	}
	ranked := make([]FeatureImportance, len(columns))
	for i, col := range columns {
		ranked[i] = FeatureImportance{Feature: col, Importance: importance[i]}
	}
	sort.Slice(ranked, func(a, b int) bool {
		return ranked[a].Importance > ranked[b].Importance
	})
	return ranked
}

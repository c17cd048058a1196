package ml

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// RMSE is the root mean squared error between actual and predicted values.
func RMSE(actual, predicted []float64) float64 {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return 0
	}
	sum := 0.0
	for i := range actual {
		diff := actual[i] - predicted[i]
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(actual)))
}

// MAE is the mean absolute error.
func MAE(actual, predicted []float64) float64 {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return 0
	}
	sum := 0.0
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}

// MAPE is the mean absolute percentage error in percent. Samples with a
// zero actual value are skipped.
func MAPE(actual, predicted []float64) float64 {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return 0
	}
	sum := 0.0
	count := 0
	for i := range actual {
		if actual[i] == 0 {
			continue
		}
		sum += math.Abs((actual[i] - predicted[i]) / actual[i])
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count) * 100
}

// R2 is the coefficient of determination.
func R2(actual, predicted []float64) float64 {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return 0
	}
	return stat.RSquaredFrom(predicted, actual, nil)
}

// Accuracy is the fraction of labels predicted exactly.
func Accuracy(actual, predicted []int) float64 {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return 0
	}
	correct := 0
	for i := range actual {
		if actual[i] == predicted[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(actual))
}

// F1 is the harmonic mean of precision and recall for the positive class.
func F1(actual, predicted []int, positive int) float64 {
	var tp, fp, fn int
	for i := range actual {
		switch {
		case predicted[i] == positive && actual[i] == positive:
			tp++
		case predicted[i] == positive && actual[i] != positive:
			fp++
		case predicted[i] != positive && actual[i] == positive:
			fn++
		}
	}
	if tp == 0 {
		return 0
	}
	precision := float64(tp) / float64(tp+fp)
	recall := float64(tp) / float64(tp+fn)
	return 2 * precision * recall / (precision + recall)
}

// CrossValidateAccuracy runs k-fold cross-validation with a fresh
// classifier per fold and returns the mean and standard deviation of the
// fold accuracies.
func CrossValidateAccuracy(newClassifier func(fold int) (Classifier, error), features [][]float64, labels []int, folds int, seed int64) (meanAcc, stdAcc float64, err error) {
	if folds < 2 {
		folds = 5
	}
	if folds > len(features) {
		folds = len(features)
	}

	perm := permIndices(len(features), seed)
	scores := make([]float64, 0, folds)

	for fold := 0; fold < folds; fold++ {
		var trainX [][]float64
		var trainY []int
		var testX [][]float64
		var testY []int
		for i, idx := range perm {
			if i%folds == fold {
				testX = append(testX, features[idx])
				testY = append(testY, labels[idx])
			} else {
				trainX = append(trainX, features[idx])
				trainY = append(trainY, labels[idx])
			}
		}
		if len(testX) == 0 || len(trainX) == 0 {
			continue
		}

		model, err := newClassifier(fold)
		if err != nil {
			return 0, 0, err
		}
		if err := model.Fit(trainX, trainY); err != nil {
			return 0, 0, err
		}

		predicted := make([]int, len(testX))
		for i, x := range testX {
			label, err := model.Predict(x)
			if err != nil {
				return 0, 0, err
			}
			predicted[i] = label
		}
		scores = append(scores, Accuracy(testY, predicted))
	}

	if len(scores) == 0 {
		return 0, 0, nil
	}
	meanAcc = stat.Mean(scores, nil)
	if len(scores) > 1 {
		stdAcc = stat.StdDev(scores, nil)
	}
	return meanAcc, stdAcc, nil
}

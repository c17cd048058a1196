package ml

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestRegressionMetrics(t *testing.T) {
	actual := []float64{10, 20, 30}
	predicted := []float64{12, 18, 33}

	if got := RMSE(actual, predicted); !almostEqual(got, math.Sqrt(17.0/3), 1e-9) {
		t.Fatalf("RMSE = %v", got)
	}
	if got := MAE(actual, predicted); !almostEqual(got, 7.0/3, 1e-9) {
		t.Fatalf("MAE = %v", got)
	}
	// (2/10 + 2/20 + 3/30) / 3 * 100
	if got := MAPE(actual, predicted); !almostEqual(got, 40.0/3, 1e-9) {
		t.Fatalf("MAPE = %v", got)
	}
}

func TestMAPESkipsZeroActuals(t *testing.T) {
	actual := []float64{0, 10}
	predicted := []float64{5, 11}
	if got := MAPE(actual, predicted); !almostEqual(got, 10, 1e-9) {
		t.Fatalf("MAPE = %v, want 10", got)
	}
}

func TestR2PerfectFit(t *testing.T) {
	actual := []float64{1, 2, 3, 4}
	if got := R2(actual, actual); !almostEqual(got, 1, 1e-9) {
		t.Fatalf("R2 = %v, want 1", got)
	}
}

func TestClassificationMetrics(t *testing.T) {
	actual := []int{1, 1, 0, 0, 1}
	predicted := []int{1, 0, 0, 1, 1}

	if got := Accuracy(actual, predicted); !almostEqual(got, 0.6, 1e-9) {
		t.Fatalf("accuracy = %v", got)
	}
	// tp=2 fp=1 fn=1: precision=2/3, recall=2/3, f1=2/3
	if got := F1(actual, predicted, 1); !almostEqual(got, 2.0/3, 1e-9) {
		t.Fatalf("F1 = %v", got)
	}
}

func TestF1NoPositivePredictions(t *testing.T) {
	if got := F1([]int{1, 1}, []int{0, 0}, 1); got != 0 {
		t.Fatalf("F1 = %v, want 0", got)
	}
}

func TestCrossValidateAccuracy(t *testing.T) {
	features := make([][]float64, 0, 100)
	labels := make([]int, 0, 100)
	for i := 0; i < 100; i++ {
		label := 0
		if i >= 50 {
			label = 1
		}
		features = append(features, []float64{float64(i)})
		labels = append(labels, label)
	}

	newClassifier := func(fold int) (Classifier, error) {
		return NewClassifier(KindRandomForest, int64(fold))
	}
	meanAcc, stdAcc, err := CrossValidateAccuracy(newClassifier, features, labels, 5, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meanAcc < 0.8 {
		t.Fatalf("mean accuracy %v too low for a separable dataset", meanAcc)
	}
	if stdAcc < 0 || stdAcc > 0.5 {
		t.Fatalf("std accuracy %v out of range", stdAcc)
	}
}

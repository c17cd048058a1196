package db

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSavePrediction(t *testing.T) {
	store := openTestStore(t)

	price := 42.5
	multiplier := 2.1
	if err := store.SavePrediction(PredictionRecord{
		Kind: "pricing", City: "Mumbai", Area: "Downtown", ParkingType: "commercial",
		PredictedPrice: &price, PriceMultiplier: &multiplier, Confidence: 0.9,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	available := true
	if err := store.SavePrediction(PredictionRecord{
		Kind: "availability", City: "Delhi", Area: "Suburb", ParkingType: "street",
		Available: &available, Confidence: 0.72,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTrainingLogRoundTrip(t *testing.T) {
	store := openTestStore(t)

	first := TrainingRun{
		Task: "pricing", ModelKind: "boosted_trees", DataPoints: 4000,
		RMSE: 3.2, MAE: 2.1, R2: 0.91, MAPE: 8.5,
		TrainedAt: time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC),
	}
	second := TrainingRun{
		Task: "availability", ModelKind: "random_forest", DataPoints: 5000,
		Accuracy: 0.88, F1: 0.85,
		TrainedAt: time.Date(2024, 7, 2, 10, 0, 0, 0, time.UTC),
	}
	if err := store.SaveTrainingRun(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.SaveTrainingRun(second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	runs, err := store.LoadTrainingLog()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	// Most recent first.
	if runs[0].Task != "availability" || runs[1].Task != "pricing" {
		t.Fatalf("unexpected order: %s, %s", runs[0].Task, runs[1].Task)
	}
	if runs[1].RMSE != 3.2 || runs[1].R2 != 0.91 {
		t.Fatalf("metrics lost: %+v", runs[1])
	}
	if runs[0].Accuracy != 0.88 {
		t.Fatalf("accuracy lost: %+v", runs[0])
	}
}

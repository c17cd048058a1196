package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"parkml/db"
	"parkml/ml"
	"parkml/parking"
)

func main() {
	task := flag.String("task", "pricing", "training task: pricing or availability")
	kind := flag.String("kind", ml.KindBoostedTrees, "model kind: random_forest, gradient_boosting or boosted_trees")
	samples := flag.Int("samples", 5000, "synthetic sample count")
	seed := flag.Int64("seed", 42, "random seed")
	testRatio := flag.Float64("test_ratio", 0.2, "held-out test fraction")
	dataFile := flag.String("data", "", "pricing training CSV (synthetic data when absent)")
	out := flag.String("out", "", "artifact output path")
	compare := flag.Bool("compare", false, "train every kind and keep the best")
	dbPath := flag.String("db", "", "optionally record the run in this SQLite database")
	flag.Parse()

	if *out == "" {
		*out = defaultOutput(*task)
	}

	ds, err := loadDataset(*task, *dataFile, *samples, *seed)
	if err != nil {
		log.Fatalf("failed to build training data: %v", err)
	}
	opts := ml.TrainOptions{TestRatio: *testRatio, Seed: *seed}

	kinds := []string{*kind}
	if *compare {
		kinds = []string{ml.KindRandomForest, ml.KindGradientBoosting, ml.KindBoostedTrees}
	}

	var best *ml.Report
	var bestKind string
	for _, k := range kinds {
		report, err := train(*task, ds, k, opts)
		if err != nil {
			log.Fatalf("training %s failed: %v", k, err)
		}
		printReport(k, report)
		if best == nil || score(*task, report) > score(*task, best) {
			best = report
			bestKind = k
		}
	}

	if *compare {
		fmt.Printf("\nbest model: %s\n", bestKind)
	}

	if err := best.Artifact.Save(*out); err != nil {
		log.Fatalf("failed to save model: %v", err)
	}
	fmt.Printf("model saved to %s (metadata: %s)\n", *out, ml.MetadataPath(*out))

	if *dbPath != "" {
		if err := recordRun(*dbPath, *task, bestKind, len(ds.Records), best.Metrics); err != nil {
			log.Printf("failed to record training run: %v", err)
		}
	}
}

func defaultOutput(task string) string {
	if task == "availability" {
		return "models/availability_model.json"
	}
	return "models/pricing_model.json"
}

func loadDataset(task, dataFile string, samples int, seed int64) (*ml.Dataset, error) {
	switch task {
	case "pricing":
		if dataFile != "" {
			ds, err := parking.LoadPricingCSV(dataFile)
			if err == nil {
				fmt.Printf("loaded %d records from %s\n", len(ds.Records), dataFile)
				return ds, nil
			}
			if !os.IsNotExist(err) {
				return nil, err
			}
			fmt.Printf("%s not found, generating synthetic data\n", dataFile)
		}
		return parking.GeneratePricingDataset(samples, seed), nil
	case "availability":
		slots := parking.DefaultSlots(50, seed)
		return parking.GenerateAvailabilityDataset(samples, slots, 180, seed), nil
	default:
		return nil, fmt.Errorf("unknown task %q", task)
	}
}

func train(task string, ds *ml.Dataset, kind string, opts ml.TrainOptions) (*ml.Report, error) {
	if task == "availability" {
		return ml.TrainClassifier(ds, kind, opts)
	}
	return ml.TrainRegressor(ds, kind, opts)
}

// score ranks models for compare mode: R² for pricing, accuracy for
// availability, both on the held-out split.
func score(task string, report *ml.Report) float64 {
	if task == "availability" {
		return report.Metrics["test_accuracy"]
	}
	return report.Metrics["test_r2"]
}

func printReport(kind string, report *ml.Report) {
	fmt.Printf("\n=== %s ===\n", kind)
	for _, name := range metricOrder(report.Metrics) {
		fmt.Printf("  %-20s %.4f\n", name, report.Metrics[name])
	}
	if len(report.Importances) > 0 {
		fmt.Println("  top features:")
		top := report.Importances
		if len(top) > 10 {
			top = top[:10]
		}
		for _, imp := range top {
			fmt.Printf("    %-30s %.4f\n", imp.Feature, imp.Importance)
		}
	}
}

func metricOrder(metrics map[string]float64) []string {
	order := []string{
		"train_rmse", "test_rmse", "train_mae", "test_mae",
		"train_r2", "test_r2", "train_mape", "test_mape",
		"train_accuracy", "test_accuracy", "train_f1", "test_f1",
		"cv_mean_accuracy", "cv_std_accuracy",
	}
	names := make([]string, 0, len(metrics))
	for _, name := range order {
		if _, ok := metrics[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

func recordRun(dbPath, task, kind string, dataPoints int, metrics map[string]float64) error {
	store, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.SaveTrainingRun(db.TrainingRun{
		Task:       task,
		ModelKind:  kind,
		DataPoints: dataPoints,
		RMSE:       metrics["test_rmse"],
		MAE:        metrics["test_mae"],
		R2:         metrics["test_r2"],
		MAPE:       metrics["test_mape"],
		Accuracy:   metrics["test_accuracy"],
		F1:         metrics["test_f1"],
		TrainedAt:  time.Now(),
	})
}

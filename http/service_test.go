package http

import (
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"parkml/ml"
	"parkml/parking"
)

// newTestService trains small artifacts for both tasks, saves them and
// loads them back, so every test exercises the real artifact round trip.
func newTestService(t *testing.T) *PredictionService {
	t.Helper()
	dir := t.TempDir()

	svc := NewPredictionService(ServiceConfig{}, zap.NewNop(), nil, nil)
	svc.noise = func() float64 { return 0 }
	svc.now = func() time.Time { return time.Date(2024, 7, 13, 18, 0, 0, 0, time.UTC) }

	ds := parking.GeneratePricingDataset(400, 11)
	report, err := ml.TrainRegressor(ds, ml.KindRandomForest, ml.TrainOptions{TestRatio: 0.2, Seed: 11})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pricingPath := filepath.Join(dir, "pricing_model.json")
	if err := report.Artifact.Save(pricingPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.LoadPricing(pricingPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ads := parking.GenerateAvailabilityDataset(400, parking.DefaultSlots(20, 2), 90, 11)
	creport, err := ml.TrainClassifier(ads, ml.KindRandomForest, ml.TrainOptions{TestRatio: 0.2, Seed: 11, CrossValFolds: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	availabilityPath := filepath.Join(dir, "availability_model.json")
	if err := creport.Artifact.Save(availabilityPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.LoadAvailability(availabilityPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return svc
}

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }
func intPtr(v int) *int           { return &v }

func TestConfidenceTier(t *testing.T) {
	cases := []struct {
		multiplier float64
		want       string
	}{
		{1.0, "high"}, {0.5, "high"}, {2.5, "high"},
		{2.8, "medium"}, {0.4, "medium"}, {3.0, "medium"},
		{5.0, "low"}, {0.2, "low"}, {-1, "low"},
	}
	for _, c := range cases {
		if got := ConfidenceTier(c.multiplier); got != c.want {
			t.Fatalf("ConfidenceTier(%v) = %s, want %s", c.multiplier, got, c.want)
		}
	}
}

func TestPredictPriceUnavailable(t *testing.T) {
	svc := NewPredictionService(ServiceConfig{}, zap.NewNop(), nil, nil)
	_, err := svc.PredictPrice(PriceRequest{City: "Mumbai", ParkingType: "street", BasePrice: floatPtr(20)})
	if err != ErrModelUnavailable {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestPredictPrice(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.PredictPrice(PriceRequest{
		City:        "Mumbai",
		ParkingType: "commercial",
		BasePrice:   floatPtr(30),
		Hour:        intPtr(18),
		DayOfWeek:   intPtr(5),
		Month:       intPtr(7),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.PredictedPrice <= 0 {
		t.Fatalf("predicted price %v", resp.PredictedPrice)
	}
	if resp.BasePrice != 30 {
		t.Fatalf("base price %v echoed wrong", resp.BasePrice)
	}
	if resp.Confidence != ConfidenceTier(resp.PredictedPrice/30) {
		t.Fatalf("confidence %s inconsistent with multiplier", resp.Confidence)
	}
	if resp.ModelType != ml.KindRandomForest {
		t.Fatalf("model type %s", resp.ModelType)
	}
	if resp.FeaturesUsed["season"] != "monsoon" || resp.FeaturesUsed["time_category"] != "evening" {
		t.Fatalf("unexpected feature echo: %v", resp.FeaturesUsed)
	}
}

func TestPredictPriceUnseenCategory(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.PredictPrice(PriceRequest{
		City:        "Atlantis",
		ParkingType: "underwater",
		BasePrice:   floatPtr(20),
	})
	if err != nil {
		t.Fatalf("unseen categories must not fail: %v", err)
	}
	if resp.Confidence == "" {
		t.Fatal("confidence missing for unseen-category prediction")
	}
}

func TestPredictPriceInvalidBasePrice(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.PredictPrice(PriceRequest{City: "Mumbai", ParkingType: "street", BasePrice: floatPtr(-5)})
	if err == nil {
		t.Fatal("expected error for negative base price")
	}
}

func TestPredictAvailability(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.PredictAvailability(AvailabilityRequest{
		City:        "Chennai",
		Area:        "Anna Nagar",
		ParkingType: "mall",
		Timestamp:   "2024-07-13T18:00:00Z",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ProbAvailable < 0 || resp.ProbAvailable > 1 {
		t.Fatalf("probability %v out of range", resp.ProbAvailable)
	}
	sum := resp.ProbAvailable + resp.ProbOccupied
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("probabilities sum to %v", sum)
	}
	if resp.Confidence < 0.5 || resp.Confidence > 1 {
		t.Fatalf("confidence %v must be the max class probability", resp.Confidence)
	}
	if resp.IsAvailable != (resp.ProbAvailable >= resp.ProbOccupied) {
		t.Fatal("decision inconsistent with probabilities")
	}
	if resp.FeaturesUsed["weekday"] != "Saturday" {
		t.Fatalf("weekday echo = %v", resp.FeaturesUsed["weekday"])
	}
	if resp.FeaturesUsed["time_category"] != "evening" {
		t.Fatalf("time_category echo = %v", resp.FeaturesUsed["time_category"])
	}
}

func TestPredictAvailabilityDefaults(t *testing.T) {
	svc := newTestService(t)

	// Everything omitted: timestamp defaults to the service clock and
	// location fields to placeholder labels.
	resp, err := svc.PredictAvailability(AvailabilityRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.FeaturesUsed["city"] != "Unknown" || resp.FeaturesUsed["parking_type"] != "street" {
		t.Fatalf("defaults not applied: %v", resp.FeaturesUsed)
	}
}

func TestPredictAvailabilityBadTimestamp(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.PredictAvailability(AvailabilityRequest{Timestamp: "13/07/2024"})
	if err == nil {
		t.Fatal("expected error for malformed timestamp")
	}
}

func TestPriceCacheHit(t *testing.T) {
	svc := newTestService(t)
	svc.cache = nil // rebuild with a known config
	cached := NewPredictionService(ServiceConfig{CacheEnabled: true, CacheSize: 16, CacheTTL: time.Minute}, zap.NewNop(), nil, nil)
	cached.noise = svc.noise
	cached.now = svc.now
	cached.pricing.Store(svc.pricing.Load())

	req := PriceRequest{City: "Delhi", ParkingType: "street", BasePrice: floatPtr(20)}
	first, err := cached.PredictPrice(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := cached.PredictPrice(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.PredictedPrice != second.PredictedPrice || first.Confidence != second.Confidence {
		t.Fatalf("cached result differs: %+v vs %+v", first, second)
	}
}

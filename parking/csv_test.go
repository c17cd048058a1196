package parking

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parking_data.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

func TestLoadPricingCSV(t *testing.T) {
	path := writeCSV(t, `city,area,parking_type,weather,hour,is_event,demand_score,base_price,dynamic_price
Mumbai,Downtown,commercial,rainy,18,1,80,30,54.5
Delhi,Suburb,street,,12,0,,20,22
`)

	ds, err := LoadPricingCSV(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ds.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(ds.Records))
	}
	if ds.Targets[0] != 54.5 {
		t.Fatalf("target = %v, want 54.5", ds.Targets[0])
	}
	if ds.Records[0].Categorical["city"] != "Mumbai" || ds.Records[0].Categorical["weather"] != "rainy" {
		t.Fatalf("unexpected categorical values: %v", ds.Records[0].Categorical)
	}
	if ds.Records[0].Numeric["is_event"] != 1 {
		t.Fatal("is_event=1 not parsed")
	}
	// Absent optional columns take the documented defaults.
	if ds.Records[1].Categorical["weather"] != DefaultWeather {
		t.Fatalf("weather default = %v", ds.Records[1].Categorical["weather"])
	}
	if ds.Records[1].Numeric["demand_score"] != DefaultDemandScore {
		t.Fatalf("demand default = %v", ds.Records[1].Numeric["demand_score"])
	}
}

func TestLoadPricingCSVSkipsBadLabels(t *testing.T) {
	path := writeCSV(t, `city,parking_type,base_price,dynamic_price
Mumbai,street,20,25
Delhi,street,20,0
Chennai,street,20,-4
`)

	ds, err := LoadPricingCSV(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ds.Records) != 1 {
		t.Fatalf("rows with non-positive labels must be skipped, got %d", len(ds.Records))
	}
}

func TestLoadPricingCSVMissingColumn(t *testing.T) {
	path := writeCSV(t, `city,parking_type,base_price
Mumbai,street,20
`)
	if _, err := LoadPricingCSV(path); err == nil {
		t.Fatal("expected error for missing dynamic_price column")
	}
}

func TestLoadPricingCSVMissingFile(t *testing.T) {
	_, err := LoadPricingCSV(filepath.Join(t.TempDir(), "nope.csv"))
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

package parking

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"parkml/ml"
)

// LoadPricingCSV reads a pricing training file with a header row. Column
// names match the record fields (city, area, parking_type, weather, hour,
// day_of_week, month, is_event, is_ev_charging, is_handicap, demand_score,
// occupancy_rate, base_price) plus the dynamic_price label. Missing
// optional columns fall back to the documented defaults.
func LoadPricingCSV(path string) (*ml.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s has no data rows", path)
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[name] = i
	}
	for _, required := range []string{"city", "parking_type", "base_price", "dynamic_price"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("%s missing required column %q", path, required)
		}
	}

	ds := &ml.Dataset{
		Records:             make([]ml.Record, 0, len(rows)-1),
		Targets:             make([]float64, 0, len(rows)-1),
		CategoricalFeatures: PricingCategoricalFeatures,
		Columns:             PricingColumns(),
		EncoderFallback:     PricingEncoderFallback,
	}

	for _, row := range rows[1:] {
		rec := PricingRecord{
			City:          cell(row, col, "city", ""),
			Area:          cell(row, col, "area", ""),
			ParkingType:   cell(row, col, "parking_type", ""),
			Weather:       cell(row, col, "weather", DefaultWeather),
			Hour:          intCell(row, col, "hour", 12),
			DayOfWeek:     intCell(row, col, "day_of_week", 0),
			Month:         intCell(row, col, "month", 1),
			IsEvent:       boolCell(row, col, "is_event"),
			IsEVCharging:  boolCell(row, col, "is_ev_charging"),
			IsHandicap:    boolCell(row, col, "is_handicap"),
			DemandScore:   floatCell(row, col, "demand_score", DefaultDemandScore),
			OccupancyRate: floatCell(row, col, "occupancy_rate", DefaultOccupancyRate),
			BasePrice:     floatCell(row, col, "base_price", DefaultBasePrice),
		}
		label := floatCell(row, col, "dynamic_price", 0)
		if label <= 0 {
			continue
		}

		ds.Records = append(ds.Records, PricingFeatures(rec))
		ds.Targets = append(ds.Targets, label)
	}

	if len(ds.Records) == 0 {
		return nil, fmt.Errorf("%s has no usable rows", path)
	}
	return ds, nil
}

func cell(row []string, col map[string]int, name, fallback string) string {
	idx, ok := col[name]
	if !ok || idx >= len(row) || row[idx] == "" {
		return fallback
	}
	return row[idx]
}

func intCell(row []string, col map[string]int, name string, fallback int) int {
	v, err := strconv.Atoi(cell(row, col, name, ""))
	if err != nil {
		return fallback
	}
	return v
}

func floatCell(row []string, col map[string]int, name string, fallback float64) float64 {
	v, err := strconv.ParseFloat(cell(row, col, name, ""), 64)
	if err != nil {
		return fallback
	}
	return v
}

func boolCell(row []string, col map[string]int, name string) bool {
	switch cell(row, col, name, "") {
	case "1", "true", "True", "TRUE":
		return true
	default:
		return false
	}
}

package parking

import (
	"math"

	"parkml/ml"
)

// Categorical feature names per model. Order matters only for the encoded
// column positions in the column lists below.
var (
	PricingCategoricalFeatures      = []string{"city", "parking_type", "season", "time_category", "weather", "area"}
	AvailabilityCategoricalFeatures = []string{"city", "area", "parking_type", "season", "time_category"}
)

// Encoder fallback indices for unseen categories. The two models shipped
// with different sentinels; each artifact records its own so predictions
// stay consistent with how the model was trained.
const (
	PricingEncoderFallback      = -1
	AvailabilityEncoderFallback = 0
)

// PricingColumns is the pricing model's feature vector layout. The order
// is part of the artifact contract: training records it and inference
// reproduces it exactly.
func PricingColumns() []string {
	return []string{
		"city_encoded", "parking_type_encoded", "season_encoded",
		"time_category_encoded", "weather_encoded", "area_encoded",

		"hour_sin", "hour_cos", "dow_sin", "dow_cos", "month_sin", "month_cos",
		"is_weekend", "hour", "day_of_week", "month",

		"demand_score", "occupancy_rate", "demand_occupancy_interaction",

		"base_price", "is_ev_charging", "is_handicap", "is_event",

		"weekend_evening",
	}
}

// AvailabilityColumns is the availability model's feature vector layout.
func AvailabilityColumns() []string {
	return []string{
		"hour", "day_of_week", "day_of_month", "month",
		"is_weekend", "is_peak_morning", "is_peak_evening", "is_peak_hour",
		"is_business_hours", "is_night",
		"is_ev_charging", "is_handicap",
		"historical_occupancy", "nearby_slots_count", "price_per_hour",

		"city_encoded", "area_encoded", "parking_type_encoded",
		"season_encoded", "time_category_encoded",

		"hour_sin", "hour_cos", "dow_sin", "dow_cos", "month_sin", "month_cos",
	}
}

// PricingFeatures turns a resolved pricing record into a raw ml.Record:
// cyclical sine/cosine pairs for hour, day-of-week and month, the
// demand-occupancy interaction and the weekend-evening indicator.
func PricingFeatures(rec PricingRecord) ml.Record {
	hourSin, hourCos := cyclical(float64(rec.Hour), 24)
	dowSin, dowCos := cyclical(float64(rec.DayOfWeek), 7)
	monthSin, monthCos := cyclical(float64(rec.Month), 12)

	weekendEvening := 0.0
	if rec.IsWeekend() && rec.Hour >= 17 && rec.Hour <= 22 {
		weekendEvening = 1
	}

	return ml.Record{
		Categorical: map[string]string{
			"city":          rec.City,
			"parking_type":  rec.ParkingType,
			"season":        PricingSeason(rec.Month),
			"time_category": PricingTimeCategory(rec.Hour),
			"weather":       rec.Weather,
			"area":          rec.Area,
		},
		Numeric: map[string]float64{
			"hour_sin":  hourSin,
			"hour_cos":  hourCos,
			"dow_sin":   dowSin,
			"dow_cos":   dowCos,
			"month_sin": monthSin,
			"month_cos": monthCos,

			"is_weekend":  boolFeature(rec.IsWeekend()),
			"hour":        float64(rec.Hour),
			"day_of_week": float64(rec.DayOfWeek),
			"month":       float64(rec.Month),

			"demand_score":                 rec.DemandScore,
			"occupancy_rate":               rec.OccupancyRate,
			"demand_occupancy_interaction": rec.DemandScore * rec.OccupancyRate,

			"base_price":     rec.BasePrice,
			"is_ev_charging": boolFeature(rec.IsEVCharging),
			"is_handicap":    boolFeature(rec.IsHandicap),
			"is_event":       boolFeature(rec.IsEvent),

			"weekend_evening": weekendEvening,
		},
	}
}

// AvailabilityFeatures turns an availability record into a raw ml.Record.
// HistoricalOccupancy must already be filled in.
func AvailabilityFeatures(rec AvailabilityRecord) ml.Record {
	tf := ExtractTimeFeatures(rec.Timestamp)

	hourSin, hourCos := cyclical(float64(tf.Hour), 24)
	dowSin, dowCos := cyclical(float64(tf.DayOfWeek), 7)
	monthSin, monthCos := cyclical(float64(tf.Month), 12)

	return ml.Record{
		Categorical: map[string]string{
			"city":          rec.City,
			"area":          rec.Area,
			"parking_type":  rec.ParkingType,
			"season":        tf.Season,
			"time_category": tf.TimeCategory,
		},
		Numeric: map[string]float64{
			"hour":         float64(tf.Hour),
			"day_of_week":  float64(tf.DayOfWeek),
			"day_of_month": float64(tf.DayOfMonth),
			"month":        float64(tf.Month),

			"is_weekend":        boolFeature(tf.IsWeekend),
			"is_peak_morning":   boolFeature(tf.IsPeakMorning),
			"is_peak_evening":   boolFeature(tf.IsPeakEvening),
			"is_peak_hour":      boolFeature(tf.IsPeakHour),
			"is_business_hours": boolFeature(tf.IsBusinessHours),
			"is_night":          boolFeature(tf.IsNight),

			"is_ev_charging": boolFeature(rec.IsEVCharging),
			"is_handicap":    boolFeature(rec.IsHandicap),

			"historical_occupancy": rec.HistoricalOccupancy,
			"nearby_slots_count":   float64(rec.NearbySlots),
			"price_per_hour":       rec.PricePerHour,

			"hour_sin":  hourSin,
			"hour_cos":  hourCos,
			"dow_sin":   dowSin,
			"dow_cos":   dowCos,
			"month_sin": monthSin,
			"month_cos": monthCos,
		},
	}
}

// SimulatedOccupancy estimates historical occupancy from time and slot
// attributes with a hand-tuned additive model. It is a labeled placeholder
// for real telemetry: genuine historical ingestion would replace this
// function, nothing else. The noise term is supplied by the caller so
// training stays reproducible under a fixed seed.
func SimulatedOccupancy(tf TimeFeatures, parkingType string, noise float64) float64 {
	occupancy := 0.5

	if tf.IsPeakHour {
		occupancy += 0.3
	}
	if tf.IsBusinessHours {
		occupancy += 0.15
	}
	if tf.IsWeekend {
		switch parkingType {
		case "mall":
			occupancy += 0.2
		case "commercial":
			occupancy -= 0.2
		}
	}
	switch parkingType {
	case "airport":
		occupancy += 0.25
	case "residential":
		if tf.IsNight {
			occupancy += 0.3
		}
	}

	return clamp01(occupancy + noise)
}

func cyclical(value, period float64) (sin, cos float64) {
	angle := 2 * math.Pi * value / period
	return math.Sin(angle), math.Cos(angle)
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

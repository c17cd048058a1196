// Package parking holds the domain model for parking slots: typed feature
// records, time-feature extraction, the demand calculator and the synthetic
// dataset generators used when no real telemetry is available.
package parking

import "time"

// Day-of-week convention follows time.Weekday shifted so Monday is 0 and
// Sunday is 6; the weekend is days 5 and 6.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// PricingRecord is one pricing observation with every optional field
// resolved. Build it from DefaultPricingRecord and overwrite what the
// caller supplied.
type PricingRecord struct {
	City        string
	Area        string
	ParkingType string
	Weather     string

	Hour      int
	DayOfWeek int
	Month     int

	IsEvent      bool
	IsEVCharging bool
	IsHandicap   bool

	DemandScore   float64
	OccupancyRate float64
	BasePrice     float64
}

// Documented defaults for omitted pricing fields.
const (
	DefaultDemandScore   = 50.0
	DefaultOccupancyRate = 0.5
	DefaultBasePrice     = 20.0
	DefaultWeather       = "clear"
	DefaultPricePerHour  = 20.0
	DefaultNearbySlots   = 10
)

// DefaultPricingRecord fills time fields from now and numeric fields with
// the documented defaults.
func DefaultPricingRecord(now time.Time) PricingRecord {
	return PricingRecord{
		Weather:       DefaultWeather,
		Hour:          now.Hour(),
		DayOfWeek:     WeekdayIndex(now),
		Month:         int(now.Month()),
		DemandScore:   DefaultDemandScore,
		OccupancyRate: DefaultOccupancyRate,
		BasePrice:     DefaultBasePrice,
	}
}

// IsWeekend reports whether the record falls on a weekend day.
func (r PricingRecord) IsWeekend() bool {
	return r.DayOfWeek >= 5
}

// AvailabilityRecord is one availability observation. HistoricalOccupancy
// is an estimate, not a measurement; see SimulatedOccupancy.
type AvailabilityRecord struct {
	City        string
	Area        string
	ParkingType string
	Timestamp   time.Time

	IsEVCharging bool
	IsHandicap   bool

	PricePerHour        float64
	NearbySlots         int
	HistoricalOccupancy float64
}

// TimeFeatures are the attributes derived from a timestamp for the
// availability model.
type TimeFeatures struct {
	Hour       int
	DayOfWeek  int
	DayOfMonth int
	Month      int

	IsWeekend       bool
	IsPeakMorning   bool
	IsPeakEvening   bool
	IsPeakHour      bool
	IsBusinessHours bool
	IsNight         bool

	Season       string
	TimeCategory string
}

// ExtractTimeFeatures derives the availability model's time attributes.
func ExtractTimeFeatures(t time.Time) TimeFeatures {
	hour := t.Hour()
	dow := WeekdayIndex(t)
	peakMorning := hour >= 7 && hour <= 10
	peakEvening := hour >= 17 && hour <= 20
	return TimeFeatures{
		Hour:            hour,
		DayOfWeek:       dow,
		DayOfMonth:      t.Day(),
		Month:           int(t.Month()),
		IsWeekend:       dow >= 5,
		IsPeakMorning:   peakMorning,
		IsPeakEvening:   peakEvening,
		IsPeakHour:      peakMorning || peakEvening,
		IsBusinessHours: hour >= 9 && hour <= 18,
		IsNight:         hour >= 22 || hour <= 5,
		Season:          AvailabilitySeason(int(t.Month())),
		TimeCategory:    AvailabilityTimeCategory(hour),
	}
}

// PricingSeason maps a month to the pricing model's season label. The two
// models were trained with different season vocabularies; both mappings
// are kept as-is so encoded values stay compatible with their artifacts.
func PricingSeason(month int) string {
	switch {
	case month == 12 || month == 1 || month == 2:
		return "winter"
	case month >= 3 && month <= 5:
		return "spring"
	case month >= 6 && month <= 8:
		return "monsoon"
	default:
		return "autumn"
	}
}

// AvailabilitySeason maps a month to the availability model's season label.
func AvailabilitySeason(month int) string {
	switch {
	case month == 12 || month == 1 || month == 2:
		return "winter"
	case month >= 3 && month <= 5:
		return "spring"
	case month >= 6 && month <= 8:
		return "summer"
	default:
		return "fall"
	}
}

// PricingTimeCategory buckets an hour for the pricing model.
func PricingTimeCategory(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 21:
		return "evening"
	default:
		return "night"
	}
}

// AvailabilityTimeCategory buckets an hour for the availability model,
// which distinguishes late night from night.
func AvailabilityTimeCategory(hour int) string {
	switch {
	case hour >= 0 && hour < 6:
		return "late_night"
	case hour >= 6 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 21:
		return "evening"
	default:
		return "night"
	}
}

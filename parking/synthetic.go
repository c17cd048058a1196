package parking

import (
	"math"
	"math/rand"
	"time"

	"parkml/ml"
)

// Slot is a parking slot description used for synthetic sampling.
type Slot struct {
	ID           string
	City         string
	Area         string
	ParkingType  string
	PricePerHour float64
	IsEVCharging bool
	IsHandicap   bool
}

// Multiplier tables for the synthetic pricing generator. Like the
// occupancy simulation these are hand-tuned placeholders; the generator
// only has to be reproducible, not empirically calibrated.
var (
	typePriceMultipliers = map[string]float64{
		"airport":     2.5,
		"commercial":  1.5,
		"mall":        1.8,
		"street":      1.0,
		"residential": 0.8,
	}

	dayOfWeekMultipliers = [7]float64{1.2, 1.2, 1.2, 1.2, 1.5, 1.3, 0.9}

	seasonMultipliers = map[string]float64{
		"winter":  1.1,
		"spring":  1.0,
		"summer":  1.2,
		"monsoon": 0.9,
		"autumn":  1.0,
	}

	weatherMultipliers = map[string]float64{
		"clear":  1.0,
		"cloudy": 1.0,
		"rainy":  1.3,
		"stormy": 1.5,
		"foggy":  1.1,
	}
)

// Dynamic price bounds relative to the base price.
const (
	MinPriceMultiplier = 0.5
	MaxPriceMultiplier = 3.0
)

var (
	syntheticCities   = []string{"Mumbai", "Delhi", "Bangalore", "Chennai", "Trichy"}
	syntheticAreas    = []string{"Downtown", "Suburb", "Airport", "Mall", "Bandra", "Anna Nagar"}
	syntheticTypes    = []string{"street", "commercial", "mall", "airport", "residential"}
	syntheticWeathers = []string{"clear", "clear", "clear", "cloudy", "rainy", "stormy", "foggy"}
)

// DefaultSlots builds a deterministic slot inventory for synthetic
// sampling when no real slot file is available.
func DefaultSlots(count int, seed int64) []Slot {
	if count <= 0 {
		count = 100
	}
	rnd := rand.New(rand.NewSource(seed))
	slots := make([]Slot, count)
	for i := range slots {
		slots[i] = Slot{
			ID:           slotID(i),
			City:         syntheticCities[rnd.Intn(len(syntheticCities))],
			Area:         syntheticAreas[rnd.Intn(len(syntheticAreas))],
			ParkingType:  syntheticTypes[rnd.Intn(len(syntheticTypes))],
			PricePerHour: 10 + rnd.Float64()*40,
			IsEVCharging: rnd.Float64() > 0.7,
			IsHandicap:   rnd.Float64() > 0.9,
		}
	}
	return slots
}

// GeneratePricingDataset synthesizes a labeled pricing dataset. It is the
// documented fallback when no training CSV is present: the pipeline must
// stay runnable without real data.
func GeneratePricingDataset(samples int, seed int64) *ml.Dataset {
	if samples <= 0 {
		samples = 5000
	}
	rnd := rand.New(rand.NewSource(seed))
	now := time.Now()

	ds := &ml.Dataset{
		Records:             make([]ml.Record, 0, samples),
		Targets:             make([]float64, 0, samples),
		CategoricalFeatures: PricingCategoricalFeatures,
		Columns:             PricingColumns(),
		EncoderFallback:     PricingEncoderFallback,
	}

	for i := 0; i < samples; i++ {
		ts := now.AddDate(0, 0, -rnd.Intn(365)).Add(-time.Duration(rnd.Intn(24)) * time.Hour)
		weather := syntheticWeathers[rnd.Intn(len(syntheticWeathers))]
		parkingType := syntheticTypes[rnd.Intn(len(syntheticTypes))]

		basePrice := DefaultBasePrice * typePriceMultipliers[parkingType] * (0.8 + rnd.Float64()*0.4)
		demand := clampRange(20+rnd.Float64()*70+peakDemandBonus(ts.Hour()), 0, 100)
		occupancy := clamp01(0.25 + demand/180 + rnd.NormFloat64()*0.12)

		rec := PricingRecord{
			City:          syntheticCities[rnd.Intn(len(syntheticCities))],
			Area:          syntheticAreas[rnd.Intn(len(syntheticAreas))],
			ParkingType:   parkingType,
			Weather:       weather,
			Hour:          ts.Hour(),
			DayOfWeek:     WeekdayIndex(ts),
			Month:         int(ts.Month()),
			IsEvent:       rnd.Float64() < 0.05,
			IsEVCharging:  rnd.Float64() > 0.7,
			IsHandicap:    rnd.Float64() > 0.9,
			DemandScore:   demand,
			OccupancyRate: occupancy,
			BasePrice:     basePrice,
		}

		ds.Records = append(ds.Records, PricingFeatures(rec))
		ds.Targets = append(ds.Targets, syntheticDynamicPrice(rec, rnd))
	}

	return ds
}

// syntheticDynamicPrice derives the training label from the multiplier
// tables, clamped to the documented price bounds.
func syntheticDynamicPrice(rec PricingRecord, rnd *rand.Rand) float64 {
	multiplier := peakHourMultiplier(rec.Hour) *
		dayOfWeekMultipliers[rec.DayOfWeek%7] *
		seasonMultipliers[PricingSeason(rec.Month)] *
		weatherMultipliers[rec.Weather] *
		(0.7 + 0.3*rec.OccupancyRate) *
		(0.8 + 0.004*rec.DemandScore)
	if rec.IsEvent {
		multiplier *= 1.2
	}
	multiplier = clampRange(multiplier, MinPriceMultiplier, MaxPriceMultiplier)
	return rec.BasePrice * multiplier * (1 + rnd.NormFloat64()*0.03)
}

func peakHourMultiplier(hour int) float64 {
	switch {
	case hour >= 7 && hour < 10:
		return 1.4
	case hour >= 12 && hour < 14:
		return 1.2
	case hour >= 17 && hour < 20:
		return 1.6
	case hour >= 20 && hour < 23:
		return 1.3
	case hour >= 23 || hour < 6:
		return 0.7
	default:
		return 1.0
	}
}

func peakDemandBonus(hour int) float64 {
	if (hour >= 7 && hour < 10) || (hour >= 17 && hour < 20) {
		return 15
	}
	return 0
}

// GenerateAvailabilityDataset synthesizes availability samples: a random
// slot and a random timestamp within the lookback window, a simulated
// occupancy estimate and a thresholded availability label. EV and
// handicap slots are less utilized, so their occupancy is scaled down
// before the draw.
func GenerateAvailabilityDataset(samples int, slots []Slot, lookbackDays int, seed int64) *ml.Dataset {
	if samples <= 0 {
		samples = 5000
	}
	if lookbackDays <= 0 {
		lookbackDays = 180
	}
	if len(slots) == 0 {
		slots = DefaultSlots(100, seed)
	}
	rnd := rand.New(rand.NewSource(seed))
	now := time.Now()

	ds := &ml.Dataset{
		Records:             make([]ml.Record, 0, samples),
		Labels:              make([]int, 0, samples),
		CategoricalFeatures: AvailabilityCategoricalFeatures,
		Columns:             AvailabilityColumns(),
		EncoderFallback:     AvailabilityEncoderFallback,
	}

	for i := 0; i < samples; i++ {
		slot := slots[rnd.Intn(len(slots))]
		ts := now.AddDate(0, 0, -rnd.Intn(lookbackDays)).
			Add(-time.Duration(rnd.Intn(24))*time.Hour - time.Duration(rnd.Intn(60))*time.Minute)

		tf := ExtractTimeFeatures(ts)
		occupancy := SimulatedOccupancy(tf, slot.ParkingType, rnd.NormFloat64()*0.1)

		rec := AvailabilityRecord{
			City:                slot.City,
			Area:                slot.Area,
			ParkingType:         slot.ParkingType,
			Timestamp:           ts,
			IsEVCharging:        slot.IsEVCharging,
			IsHandicap:          slot.IsHandicap,
			PricePerHour:        slot.PricePerHour,
			NearbySlots:         5 + rnd.Intn(45),
			HistoricalOccupancy: occupancy,
		}

		occupied := occupancy
		if rec.IsEVCharging {
			occupied *= 0.85
		}
		if rec.IsHandicap {
			occupied *= 0.7
		}
		occupied = clamp01(occupied + rnd.NormFloat64()*0.05)

		label := 0
		if rnd.Float64() > occupied {
			label = 1
		}

		ds.Records = append(ds.Records, AvailabilityFeatures(rec))
		ds.Labels = append(ds.Labels, label)
	}

	return ds
}

func slotID(i int) string {
	const digits = "0123456789"
	return "SLOT-" + string([]byte{
		digits[(i/1000)%10], digits[(i/100)%10], digits[(i/10)%10], digits[i%10],
	})
}

func clampRange(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

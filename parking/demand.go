package parking

import "math"

// Demand score multiplier tables. These are fixed business constants, not
// model parameters: the demand calculator must stay reproducible without
// any fitted artifact.
var (
	cityDemandMultipliers = map[string]float64{
		"Mumbai":    1.2,
		"Delhi":     1.15,
		"Bangalore": 1.1,
		"Chennai":   1.0,
		"Trichy":    0.9,
	}

	typeDemandMultipliers = map[string]float64{
		"airport":     1.3,
		"commercial":  1.2,
		"mall":        1.2,
		"street":      1.0,
		"residential": 0.8,
	}
)

// DemandInput describes current conditions around a group of slots.
type DemandInput struct {
	AvailableSlots int
	TotalSlots     int
	RecentRequests int
	Hour           int
	City           string
	ParkingType    string
}

// DemandResult is a bounded demand summary.
type DemandResult struct {
	DemandScore   float64
	OccupancyRate float64
	DemandLevel   string
}

// CalculateDemand produces a [0,100] demand score from occupancy and
// recent request volume, scaled by peak-hour, city and parking-type
// multipliers. The score is monotonically non-decreasing in occupancy.
func CalculateDemand(in DemandInput) DemandResult {
	occupancy := 0.5
	if in.TotalSlots > 0 {
		occupancy = 1 - float64(in.AvailableSlots)/float64(in.TotalSlots)
	}

	recent := float64(in.RecentRequests)
	if recent < 0 {
		recent = 0
	}
	score := occupancy*60 + math.Min(recent, 50)*0.8

	switch {
	case (in.Hour >= 7 && in.Hour < 10) || (in.Hour >= 17 && in.Hour < 20):
		score *= 1.3
	case in.Hour >= 12 && in.Hour < 14:
		score *= 1.1
	}

	if mult, ok := cityDemandMultipliers[in.City]; ok {
		score *= mult
	}
	if mult, ok := typeDemandMultipliers[in.ParkingType]; ok {
		score *= mult
	}

	score = math.Min(math.Max(score, 0), 100)

	return DemandResult{
		DemandScore:   score,
		OccupancyRate: occupancy,
		DemandLevel:   DemandLevel(score),
	}
}

// DemandLevel tiers a demand score.
func DemandLevel(score float64) string {
	switch {
	case score > 70:
		return "high"
	case score > 40:
		return "medium"
	default:
		return "low"
	}
}

// Package http serves the prediction API.
package http

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"parkml/db"
	"parkml/ml"
	"parkml/monitoring"
	"parkml/parking"
)

// ErrModelUnavailable is returned when no artifact is loaded for the
// requested task. Handlers map it to 503.
var ErrModelUnavailable = errors.New("model not loaded")

// ErrBadRequest wraps caller mistakes so handlers can map them to 400.
var ErrBadRequest = errors.New("bad request")

// ServiceConfig tunes the prediction service.
type ServiceConfig struct {
	CacheEnabled bool
	CacheSize    int
	CacheTTL     time.Duration
}

// PredictionService owns the loaded artifacts and everything a prediction
// touches. Artifacts are swapped atomically on reload; requests see either
// the old or the new bundle, never a mix.
type PredictionService struct {
	log   *zap.Logger
	store *db.Store       // optional prediction log
	hub   *monitoring.Hub // optional event stream

	cache *expirable.LRU[string, PriceResponse]

	// noise feeds the occupancy estimate used when no telemetry exists.
	// Tests inject a zero function for determinism.
	noise func() float64
	now   func() time.Time

	pricing      atomic.Pointer[ml.Artifact]
	availability atomic.Pointer[ml.Artifact]
}

// NewPredictionService wires the service. store and hub may be nil.
func NewPredictionService(cfg ServiceConfig, log *zap.Logger, store *db.Store, hub *monitoring.Hub) *PredictionService {
	s := &PredictionService{
		log:   log,
		store: store,
		hub:   hub,
		noise: func() float64 { return rand.NormFloat64() * 0.05 },
		now:   time.Now,
	}
	if cfg.CacheEnabled {
		s.cache = expirable.NewLRU[string, PriceResponse](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return s
}

// LoadPricing loads (or reloads) the pricing artifact from path.
func (s *PredictionService) LoadPricing(path string) error {
	art, err := ml.LoadArtifact(path)
	if err != nil {
		return err
	}
	if art.Task != ml.TaskRegression {
		return fmt.Errorf("artifact at %s is %s, want %s", path, art.Task, ml.TaskRegression)
	}
	s.pricing.Store(art)
	if s.cache != nil {
		s.cache.Purge()
	}
	monitoring.ModelLoaded.WithLabelValues("pricing").Set(1)
	s.log.Info("pricing model loaded",
		zap.String("kind", art.ModelKind),
		zap.Time("trained_at", art.Metadata.TrainedAt),
		zap.Int("columns", len(art.Pipeline.Columns)))
	return nil
}

// LoadAvailability loads (or reloads) the availability artifact from path.
func (s *PredictionService) LoadAvailability(path string) error {
	art, err := ml.LoadArtifact(path)
	if err != nil {
		return err
	}
	if art.Task != ml.TaskClassification {
		return fmt.Errorf("artifact at %s is %s, want %s", path, art.Task, ml.TaskClassification)
	}
	s.availability.Store(art)
	monitoring.ModelLoaded.WithLabelValues("availability").Set(1)
	s.log.Info("availability model loaded",
		zap.String("kind", art.ModelKind),
		zap.Time("trained_at", art.Metadata.TrainedAt),
		zap.Int("columns", len(art.Pipeline.Columns)))
	return nil
}

// PricingLoaded reports whether the pricing artifact is present.
func (s *PredictionService) PricingLoaded() bool { return s.pricing.Load() != nil }

// AvailabilityLoaded reports whether the availability artifact is present.
func (s *PredictionService) AvailabilityLoaded() bool { return s.availability.Load() != nil }

// PriceRequest is one pricing prediction request. Pointer fields
// distinguish "omitted" from zero values; omitted fields take the
// documented defaults.
type PriceRequest struct {
	SlotID      string `json:"slot_id,omitempty"`
	City        string `json:"city"`
	Area        string `json:"area"`
	ParkingType string `json:"parking_type"`
	Weather     string `json:"weather"`

	BasePrice     *float64 `json:"base_price"`
	DemandScore   *float64 `json:"demand_score"`
	OccupancyRate *float64 `json:"occupancy_rate"`

	IsEvent      *bool `json:"is_event"`
	IsEVCharging *bool `json:"is_ev_charging"`
	IsHandicap   *bool `json:"is_handicap"`

	Hour      *int `json:"hour"`
	DayOfWeek *int `json:"day_of_week"`
	Month     *int `json:"month"`
}

// missingFields lists required fields absent from the request.
func (r PriceRequest) missingFields() []string {
	var missing []string
	if r.City == "" {
		missing = append(missing, "city")
	}
	if r.ParkingType == "" {
		missing = append(missing, "parking_type")
	}
	if r.BasePrice == nil {
		missing = append(missing, "base_price")
	}
	return missing
}

func (r PriceRequest) toRecord(now time.Time) parking.PricingRecord {
	rec := parking.DefaultPricingRecord(now)
	rec.City = r.City
	rec.ParkingType = r.ParkingType
	rec.Area = r.Area
	if rec.Area == "" {
		rec.Area = "Unknown"
	}
	if r.Weather != "" {
		rec.Weather = r.Weather
	}
	if r.BasePrice != nil {
		rec.BasePrice = *r.BasePrice
	}
	if r.DemandScore != nil {
		rec.DemandScore = *r.DemandScore
	}
	if r.OccupancyRate != nil {
		rec.OccupancyRate = *r.OccupancyRate
	}
	if r.IsEvent != nil {
		rec.IsEvent = *r.IsEvent
	}
	if r.IsEVCharging != nil {
		rec.IsEVCharging = *r.IsEVCharging
	}
	if r.IsHandicap != nil {
		rec.IsHandicap = *r.IsHandicap
	}
	if r.Hour != nil {
		rec.Hour = *r.Hour
	}
	if r.DayOfWeek != nil {
		rec.DayOfWeek = *r.DayOfWeek
	}
	if r.Month != nil {
		rec.Month = *r.Month
	}
	return rec
}

// PriceResponse is the result of one pricing prediction. Batch items have
// exactly this shape.
type PriceResponse struct {
	SlotID          string         `json:"slot_id,omitempty"`
	PredictedPrice  float64        `json:"predicted_price"`
	BasePrice       float64        `json:"base_price"`
	PriceMultiplier float64        `json:"price_multiplier"`
	Confidence      string         `json:"confidence"`
	ModelType       string         `json:"model_type"`
	FeaturesUsed    map[string]any `json:"features_used"`
}

// ConfidenceTier bands a price multiplier: tight multipliers are trusted,
// extreme ones flagged.
func ConfidenceTier(multiplier float64) string {
	switch {
	case multiplier >= 0.5 && multiplier <= 2.5:
		return "high"
	case multiplier >= 0.3 && multiplier <= 3.0:
		return "medium"
	default:
		return "low"
	}
}

// PredictPrice scores one pricing request.
func (s *PredictionService) PredictPrice(req PriceRequest) (PriceResponse, error) {
	art := s.pricing.Load()
	if art == nil {
		return PriceResponse{}, ErrModelUnavailable
	}
	if req.BasePrice == nil {
		return PriceResponse{}, fmt.Errorf("%w: base_price is required", ErrBadRequest)
	}
	if *req.BasePrice <= 0 {
		return PriceResponse{}, fmt.Errorf("%w: base_price must be positive", ErrBadRequest)
	}

	rec := req.toRecord(s.now())

	key := pricingCacheKey(rec)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			monitoring.CacheHits.Inc()
			cached.SlotID = req.SlotID
			return cached, nil
		}
	}

	vector := art.Pipeline.Encode(parking.PricingFeatures(rec))
	predicted, err := art.Regressor().Predict(vector)
	if err != nil {
		return PriceResponse{}, fmt.Errorf("pricing inference: %w", err)
	}

	multiplier := predicted / rec.BasePrice
	resp := PriceResponse{
		SlotID:          req.SlotID,
		PredictedPrice:  round2(predicted),
		BasePrice:       rec.BasePrice,
		PriceMultiplier: round2(multiplier),
		Confidence:      ConfidenceTier(multiplier),
		ModelType:       art.ModelKind,
		FeaturesUsed: map[string]any{
			"city":           rec.City,
			"area":           rec.Area,
			"parking_type":   rec.ParkingType,
			"weather":        rec.Weather,
			"season":         parking.PricingSeason(rec.Month),
			"time_category":  parking.PricingTimeCategory(rec.Hour),
			"hour":           rec.Hour,
			"day_of_week":    rec.DayOfWeek,
			"month":          rec.Month,
			"is_weekend":     rec.IsWeekend(),
			"demand_score":   rec.DemandScore,
			"occupancy_rate": rec.OccupancyRate,
			"is_event":       rec.IsEvent,
			"is_ev_charging": rec.IsEVCharging,
			"is_handicap":    rec.IsHandicap,
		},
	}

	if s.cache != nil {
		s.cache.Add(key, resp)
	}
	s.recordPrediction(db.PredictionRecord{
		Kind:            "pricing",
		City:            rec.City,
		Area:            rec.Area,
		ParkingType:     rec.ParkingType,
		PredictedPrice:  &resp.PredictedPrice,
		PriceMultiplier: &resp.PriceMultiplier,
		Confidence:      tierValue(resp.Confidence),
	})
	s.publish("pricing", rec.City, rec.Area, resp)
	return resp, nil
}

// AvailabilityRequest is one availability prediction request. Every field
// is optional; absent location fields fall back to placeholder labels that
// the encoders map to their fallback index.
type AvailabilityRequest struct {
	SlotID      string `json:"slot_id,omitempty"`
	City        string `json:"city"`
	Area        string `json:"area"`
	ParkingType string `json:"parking_type"`
	Timestamp   string `json:"timestamp"`

	IsEVCharging *bool    `json:"is_ev_charging"`
	IsHandicap   *bool    `json:"is_handicap"`
	PricePerHour *float64 `json:"price_per_hour"`
	NearbySlots  *int     `json:"nearby_slots_count"`
}

func (r AvailabilityRequest) toRecord(now time.Time) (parking.AvailabilityRecord, error) {
	ts := now
	if r.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, r.Timestamp)
		if err != nil {
			return parking.AvailabilityRecord{}, fmt.Errorf("%w: timestamp must be RFC3339", ErrBadRequest)
		}
		ts = parsed
	}
	rec := parking.AvailabilityRecord{
		City:         r.City,
		Area:         r.Area,
		ParkingType:  r.ParkingType,
		Timestamp:    ts,
		PricePerHour: parking.DefaultPricePerHour,
		NearbySlots:  parking.DefaultNearbySlots,
	}
	if rec.City == "" {
		rec.City = "Unknown"
	}
	if rec.Area == "" {
		rec.Area = "Unknown"
	}
	if rec.ParkingType == "" {
		rec.ParkingType = "street"
	}
	if r.IsEVCharging != nil {
		rec.IsEVCharging = *r.IsEVCharging
	}
	if r.IsHandicap != nil {
		rec.IsHandicap = *r.IsHandicap
	}
	if r.PricePerHour != nil {
		rec.PricePerHour = *r.PricePerHour
	}
	if r.NearbySlots != nil {
		rec.NearbySlots = *r.NearbySlots
	}
	return rec, nil
}

// AvailabilityResponse is the result of one availability prediction.
type AvailabilityResponse struct {
	SlotID        string         `json:"slot_id,omitempty"`
	IsAvailable   bool           `json:"is_available"`
	ProbAvailable float64        `json:"probability_available"`
	ProbOccupied  float64        `json:"probability_occupied"`
	Confidence    float64        `json:"confidence"`
	ModelType     string         `json:"model_type"`
	FeaturesUsed  map[string]any `json:"features_used"`
}

// PredictAvailability scores one availability request.
func (s *PredictionService) PredictAvailability(req AvailabilityRequest) (AvailabilityResponse, error) {
	art := s.availability.Load()
	if art == nil {
		return AvailabilityResponse{}, ErrModelUnavailable
	}

	rec, err := req.toRecord(s.now())
	if err != nil {
		return AvailabilityResponse{}, err
	}
	tf := parking.ExtractTimeFeatures(rec.Timestamp)
	// No slot telemetry exists; estimate the occupancy feature the same
	// way the training sampler does.
	rec.HistoricalOccupancy = parking.SimulatedOccupancy(tf, rec.ParkingType, s.noise())

	vector := art.Pipeline.Encode(parking.AvailabilityFeatures(rec))
	proba, err := art.Classifier().Proba(vector)
	if err != nil {
		return AvailabilityResponse{}, fmt.Errorf("availability inference: %w", err)
	}

	available := proba[1] >= proba[0]
	resp := AvailabilityResponse{
		SlotID:        req.SlotID,
		IsAvailable:   available,
		ProbAvailable: round4(proba[1]),
		ProbOccupied:  round4(proba[0]),
		Confidence:    round4(math.Max(proba[0], proba[1])),
		ModelType:     art.ModelKind,
		FeaturesUsed: map[string]any{
			"city":           rec.City,
			"area":           rec.Area,
			"parking_type":   rec.ParkingType,
			"timestamp":      rec.Timestamp.Format(time.RFC3339),
			"hour":           tf.Hour,
			"day_of_week":    tf.DayOfWeek,
			"weekday":        rec.Timestamp.Weekday().String(),
			"month":          tf.Month,
			"is_weekend":     tf.IsWeekend,
			"season":         tf.Season,
			"time_category":  tf.TimeCategory,
			"is_ev_charging": rec.IsEVCharging,
			"is_handicap":    rec.IsHandicap,
		},
	}

	s.recordPrediction(db.PredictionRecord{
		Kind:        "availability",
		City:        rec.City,
		Area:        rec.Area,
		ParkingType: rec.ParkingType,
		Available:   &available,
		Confidence:  resp.Confidence,
	})
	s.publish("availability", rec.City, rec.Area, resp)
	return resp, nil
}

// ModelInfo summarizes one loaded artifact for the info endpoint.
type ModelInfo struct {
	Loaded          bool               `json:"loaded"`
	ModelKind       string             `json:"model_kind,omitempty"`
	TrainedAt       *time.Time         `json:"trained_at,omitempty"`
	TrainingSamples int                `json:"training_samples,omitempty"`
	FeatureCount    int                `json:"feature_count,omitempty"`
	Metrics         map[string]float64 `json:"performance_metrics,omitempty"`
}

// Info reports artifact metadata for both tasks.
func (s *PredictionService) Info() map[string]ModelInfo {
	return map[string]ModelInfo{
		"pricing":      artifactInfo(s.pricing.Load()),
		"availability": artifactInfo(s.availability.Load()),
	}
}

func artifactInfo(art *ml.Artifact) ModelInfo {
	if art == nil {
		return ModelInfo{}
	}
	trainedAt := art.Metadata.TrainedAt
	return ModelInfo{
		Loaded:          true,
		ModelKind:       art.ModelKind,
		TrainedAt:       &trainedAt,
		TrainingSamples: art.Metadata.TrainingSamples,
		FeatureCount:    len(art.Pipeline.Columns),
		Metrics:         art.Metadata.Metrics,
	}
}

func (s *PredictionService) recordPrediction(rec db.PredictionRecord) {
	if s.store == nil {
		return
	}
	if err := s.store.SavePrediction(rec); err != nil {
		s.log.Warn("failed to log prediction", zap.Error(err))
	}
}

func (s *PredictionService) publish(kind, city, area string, payload any) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(monitoring.PredictionEvent{
		Kind:      kind,
		City:      city,
		Area:      area,
		Payload:   payload,
		Timestamp: s.now(),
	})
}

func pricingCacheKey(rec parking.PricingRecord) string {
	return fmt.Sprintf("%s|%s|%s|%s|%d|%d|%d|%t|%t|%t|%.4f|%.4f|%.4f",
		rec.City, rec.Area, rec.ParkingType, rec.Weather,
		rec.Hour, rec.DayOfWeek, rec.Month,
		rec.IsEvent, rec.IsEVCharging, rec.IsHandicap,
		rec.DemandScore, rec.OccupancyRate, rec.BasePrice)
}

// tierValue maps a confidence tier to a representative numeric value for
// the prediction log.
func tierValue(tier string) float64 {
	switch tier {
	case "high":
		return 0.9
	case "medium":
		return 0.6
	default:
		return 0.3
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

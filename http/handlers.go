package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"parkml/monitoring"
	"parkml/parking"
)

// Handlers binds the API endpoints to the prediction service.
type Handlers struct {
	svc *PredictionService
	hub *monitoring.Hub
	log *zap.Logger
}

func NewHandlers(svc *PredictionService, hub *monitoring.Hub, log *zap.Logger) *Handlers {
	return &Handlers{svc: svc, hub: hub, log: log}
}

func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("POST /api/predict-price", h.handlePredictPrice)
	mux.HandleFunc("POST /api/batch-predict", h.handleBatchPredictPrice)
	mux.HandleFunc("POST /api/predict-availability", h.handlePredictAvailability)
	mux.HandleFunc("POST /api/batch-predict-availability", h.handleBatchPredictAvailability)
	mux.HandleFunc("POST /api/calculate-demand", h.handleCalculateDemand)
	mux.HandleFunc("GET /api/model-info", h.handleModelInfo)
	if h.hub != nil {
		mux.HandleFunc("GET /api/ws/predictions", h.hub.ServeWS)
	}
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":                    "ok",
		"pricing_model_loaded":      h.svc.PricingLoaded(),
		"availability_model_loaded": h.svc.AvailabilityLoaded(),
	})
}

func (h *Handlers) handlePredictPrice(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req PriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if missing := req.missingFields(); len(missing) > 0 {
		respondError(w, http.StatusBadRequest, "missing required fields: "+strings.Join(missing, ", "))
		return
	}

	resp, err := h.svc.PredictPrice(req)
	if err != nil {
		h.predictionError(w, "pricing", err)
		return
	}
	observe("pricing", start)
	respondJSON(w, http.StatusOK, resp)
}

// BatchPriceRequest carries slots to score plus optional shared features
// merged into every slot before scoring.
type BatchPriceRequest struct {
	Slots          []PriceRequest `json:"slots"`
	CommonFeatures *PriceRequest  `json:"common_features,omitempty"`
}

func (h *Handlers) handleBatchPredictPrice(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req BatchPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Slots) == 0 {
		respondError(w, http.StatusBadRequest, "slots must not be empty")
		return
	}

	merged := make([]PriceRequest, len(req.Slots))
	for i, slot := range req.Slots {
		merged[i] = mergePriceRequest(slot, req.CommonFeatures)
		if missing := merged[i].missingFields(); len(missing) > 0 {
			respondError(w, http.StatusBadRequest,
				fmt.Sprintf("slot %d: missing required fields: %s", i, strings.Join(missing, ", ")))
			return
		}
	}

	results := make([]PriceResponse, len(merged))
	for i, item := range merged {
		resp, err := h.svc.PredictPrice(item)
		if err != nil {
			h.predictionError(w, "pricing", err)
			return
		}
		results[i] = resp
	}
	observe("pricing", start)
	respondJSON(w, http.StatusOK, map[string]any{
		"predictions": results,
		"count":       len(results),
	})
}

// mergePriceRequest overlays shared features on a slot. Shared values win
// where both are set; the slot's identity fields are kept.
func mergePriceRequest(slot PriceRequest, common *PriceRequest) PriceRequest {
	if common == nil {
		return slot
	}
	out := slot
	if common.City != "" {
		out.City = common.City
	}
	if common.Area != "" {
		out.Area = common.Area
	}
	if common.ParkingType != "" {
		out.ParkingType = common.ParkingType
	}
	if common.Weather != "" {
		out.Weather = common.Weather
	}
	if common.BasePrice != nil {
		out.BasePrice = common.BasePrice
	}
	if common.DemandScore != nil {
		out.DemandScore = common.DemandScore
	}
	if common.OccupancyRate != nil {
		out.OccupancyRate = common.OccupancyRate
	}
	if common.IsEvent != nil {
		out.IsEvent = common.IsEvent
	}
	if common.IsEVCharging != nil {
		out.IsEVCharging = common.IsEVCharging
	}
	if common.IsHandicap != nil {
		out.IsHandicap = common.IsHandicap
	}
	if common.Hour != nil {
		out.Hour = common.Hour
	}
	if common.DayOfWeek != nil {
		out.DayOfWeek = common.DayOfWeek
	}
	if common.Month != nil {
		out.Month = common.Month
	}
	return out
}

func (h *Handlers) handlePredictAvailability(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req AvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.svc.PredictAvailability(req)
	if err != nil {
		h.predictionError(w, "availability", err)
		return
	}
	observe("availability", start)
	respondJSON(w, http.StatusOK, resp)
}

type batchAvailabilityRequest struct {
	Slots []AvailabilityRequest `json:"slots"`
}

func (h *Handlers) handleBatchPredictAvailability(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req batchAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Slots) == 0 {
		respondError(w, http.StatusBadRequest, "slots must not be empty")
		return
	}

	results := make([]AvailabilityResponse, len(req.Slots))
	for i, item := range req.Slots {
		resp, err := h.svc.PredictAvailability(item)
		if err != nil {
			h.predictionError(w, "availability", err)
			return
		}
		results[i] = resp
	}
	observe("availability", start)
	respondJSON(w, http.StatusOK, map[string]any{
		"predictions": results,
		"count":       len(results),
	})
}

type demandRequest struct {
	AvailableSlots int    `json:"available_slots"`
	TotalSlots     int    `json:"total_slots"`
	RecentRequests int    `json:"recent_requests"`
	Hour           *int   `json:"hour"`
	City           string `json:"city"`
	ParkingType    string `json:"parking_type"`
}

func (h *Handlers) handleCalculateDemand(w http.ResponseWriter, r *http.Request) {
	var req demandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	hour := time.Now().Hour()
	if req.Hour != nil {
		hour = *req.Hour
	}
	result := parking.CalculateDemand(parking.DemandInput{
		AvailableSlots: req.AvailableSlots,
		TotalSlots:     req.TotalSlots,
		RecentRequests: req.RecentRequests,
		Hour:           hour,
		City:           req.City,
		ParkingType:    req.ParkingType,
	})

	respondJSON(w, http.StatusOK, map[string]any{
		"demand_score":   round2(result.DemandScore),
		"demand_level":   result.DemandLevel,
		"occupancy_rate": round2(result.OccupancyRate),
		"city":           req.City,
		"parking_type":   req.ParkingType,
		"hour":           hour,
	})
}

func (h *Handlers) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.Info())
}

// predictionError maps service errors onto the API's status taxonomy.
func (h *Handlers) predictionError(w http.ResponseWriter, kind string, err error) {
	monitoring.PredictionFailures.WithLabelValues(kind).Inc()
	switch {
	case errors.Is(err, ErrModelUnavailable):
		respondError(w, http.StatusServiceUnavailable, "model not loaded; train and restart or wait for reload")
	case errors.Is(err, ErrBadRequest):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("prediction failed", zap.String("kind", kind), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "prediction failed")
	}
}

func observe(kind string, start time.Time) {
	monitoring.PredictionsTotal.WithLabelValues(kind).Inc()
	monitoring.PredictionLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

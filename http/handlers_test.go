package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newTestMux(t *testing.T, svc *PredictionService) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	NewHandlers(svc, nil, zap.NewNop()).Register(mux)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return body
}

func TestHealthEndpoint(t *testing.T) {
	empty := newTestMux(t, NewPredictionService(ServiceConfig{}, zap.NewNop(), nil, nil))
	rec := doJSON(t, empty, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["pricing_model_loaded"] != false || body["availability_model_loaded"] != false {
		t.Fatalf("expected unloaded flags, got %v", body)
	}

	loaded := newTestMux(t, newTestService(t))
	body = decodeBody(t, doJSON(t, loaded, http.MethodGet, "/api/health", ""))
	if body["pricing_model_loaded"] != true || body["availability_model_loaded"] != true {
		t.Fatalf("expected loaded flags, got %v", body)
	}
}

func TestPredictPriceEndpointUnavailable(t *testing.T) {
	mux := newTestMux(t, NewPredictionService(ServiceConfig{}, zap.NewNop(), nil, nil))
	rec := doJSON(t, mux, http.MethodPost, "/api/predict-price",
		`{"city":"Mumbai","parking_type":"street","base_price":20}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestPredictPriceEndpointMissingFields(t *testing.T) {
	mux := newTestMux(t, newTestService(t))
	rec := doJSON(t, mux, http.MethodPost, "/api/predict-price", `{"city":"Mumbai"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeBody(t, rec)
	msg, _ := body["error"].(string)
	if !strings.Contains(msg, "parking_type") || !strings.Contains(msg, "base_price") {
		t.Fatalf("error must list missing fields: %q", msg)
	}
}

func TestPredictPriceEndpointMalformedJSON(t *testing.T) {
	mux := newTestMux(t, newTestService(t))
	rec := doJSON(t, mux, http.MethodPost, "/api/predict-price", `{"city":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPredictPriceEndpoint(t *testing.T) {
	mux := newTestMux(t, newTestService(t))
	rec := doJSON(t, mux, http.MethodPost, "/api/predict-price",
		`{"city":"Mumbai","parking_type":"commercial","base_price":30,"hour":18,"day_of_week":5,"month":7}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	for _, field := range []string{"predicted_price", "base_price", "price_multiplier", "confidence", "features_used"} {
		if _, ok := body[field]; !ok {
			t.Fatalf("response missing %s: %v", field, body)
		}
	}
}

func TestBatchPredictMatchesSingle(t *testing.T) {
	svc := newTestService(t)
	mux := newTestMux(t, svc)

	rec := doJSON(t, mux, http.MethodPost, "/api/batch-predict", `{
        "slots": [
            {"slot_id":"A","city":"Mumbai","parking_type":"street","base_price":20},
            {"slot_id":"B","city":"Delhi","parking_type":"mall","base_price":35},
            {"slot_id":"C","city":"Chennai","parking_type":"airport","base_price":50}
        ],
        "common_features": {"hour":18,"day_of_week":5,"month":7,"is_event":true}
    }`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Predictions []PriceResponse `json:"predictions"`
		Count       int             `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Count != 3 || len(body.Predictions) != 3 {
		t.Fatalf("expected 3 predictions, got %d", len(body.Predictions))
	}
	if body.Predictions[0].SlotID != "A" || body.Predictions[2].SlotID != "C" {
		t.Fatal("batch results not in input order")
	}

	// Each batch item must equal a single prediction on the merged slot.
	single, err := svc.PredictPrice(PriceRequest{
		SlotID: "B", City: "Delhi", ParkingType: "mall", BasePrice: floatPtr(35),
		Hour: intPtr(18), DayOfWeek: intPtr(5), Month: intPtr(7), IsEvent: boolPtr(true),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := body.Predictions[1]
	if got.PredictedPrice != single.PredictedPrice || got.Confidence != single.Confidence {
		t.Fatalf("batch item differs from single call: %+v vs %+v", got, single)
	}
}

func TestBatchPredictInvalidSlot(t *testing.T) {
	mux := newTestMux(t, newTestService(t))
	rec := doJSON(t, mux, http.MethodPost, "/api/batch-predict",
		`{"slots":[{"city":"Mumbai","parking_type":"street","base_price":20},{"city":"Delhi"}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeBody(t, rec)
	msg, _ := body["error"].(string)
	if !strings.Contains(msg, "slot 1") {
		t.Fatalf("error must name the bad slot: %q", msg)
	}
}

func TestBatchPredictEmpty(t *testing.T) {
	mux := newTestMux(t, newTestService(t))
	rec := doJSON(t, mux, http.MethodPost, "/api/batch-predict", `{"slots":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPredictAvailabilityEndpoint(t *testing.T) {
	mux := newTestMux(t, newTestService(t))
	rec := doJSON(t, mux, http.MethodPost, "/api/predict-availability",
		`{"city":"Chennai","area":"Anna Nagar","parking_type":"mall","timestamp":"2024-07-13T18:00:00Z"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	for _, field := range []string{"is_available", "probability_available", "probability_occupied", "confidence", "features_used"} {
		if _, ok := body[field]; !ok {
			t.Fatalf("response missing %s: %v", field, body)
		}
	}
}

func TestBatchPredictAvailabilityEndpoint(t *testing.T) {
	mux := newTestMux(t, newTestService(t))
	rec := doJSON(t, mux, http.MethodPost, "/api/batch-predict-availability", `{
        "slots": [
            {"slot_id":"A","city":"Mumbai","parking_type":"street"},
            {"slot_id":"B","city":"Delhi","parking_type":"mall"}
        ]
    }`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Predictions []AvailabilityResponse `json:"predictions"`
		Count       int                    `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Count != 2 || body.Predictions[0].SlotID != "A" {
		t.Fatalf("unexpected batch result: %+v", body)
	}
}

func TestCalculateDemandEndpoint(t *testing.T) {
	// Demand is pure arithmetic; it must work with no artifact loaded.
	mux := newTestMux(t, NewPredictionService(ServiceConfig{}, zap.NewNop(), nil, nil))
	rec := doJSON(t, mux, http.MethodPost, "/api/calculate-demand",
		`{"available_slots":50,"total_slots":200,"recent_requests":75,"hour":18,"city":"Mumbai","parking_type":"commercial"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["demand_score"] != float64(100) {
		t.Fatalf("demand_score = %v, want 100", body["demand_score"])
	}
	if body["demand_level"] != "high" {
		t.Fatalf("demand_level = %v", body["demand_level"])
	}
	if body["occupancy_rate"] != 0.75 {
		t.Fatalf("occupancy_rate = %v", body["occupancy_rate"])
	}
}

func TestModelInfoEndpoint(t *testing.T) {
	mux := newTestMux(t, newTestService(t))
	rec := doJSON(t, mux, http.MethodGet, "/api/model-info", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]ModelInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !body["pricing"].Loaded || !body["availability"].Loaded {
		t.Fatalf("expected both models loaded: %v", body)
	}
	if body["pricing"].FeatureCount == 0 {
		t.Fatal("feature count missing")
	}
}

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avershov/hrstream/services/query-service/internal/timing"
)

func TestTimingEndpoints(t *testing.T) {
	tracker := timing.NewTracker(10)
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	tracker.Record(timing.Calculate("person-001", "PersonCreated",
		created, created.Add(150*time.Millisecond), created.Add(180*time.Millisecond)))

	h := New(nil, nil, nil, nil, nil, tracker)
	mux := http.NewServeMux()
	h.Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/metrics/timings/person-001", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var p timing.Propagation
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.EntityID != "person-001" || p.TotalMs != 180 {
		t.Fatalf("unexpected propagation: %+v", p)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/metrics/timings/person-zzz", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/metrics/timings", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var all map[string]timing.Propagation
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("len = %d, want 1", len(all))
	}
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/avershov/hrstream/services/query-service/internal/compose"
	"github.com/avershov/hrstream/services/query-service/internal/processed"
	"github.com/avershov/hrstream/services/query-service/internal/projection"
	"github.com/avershov/hrstream/services/query-service/internal/timing"
)

// Handler serves the read-only query surface. Everything answers from local
// projections and the in-memory timing tracker; nothing here ever talks to
// the broker.
type Handler struct {
	composer  *compose.Service
	persons   *projection.PersonRepository
	employees *projection.EmployeeRepository
	badges    *projection.BadgeRepository
	processed *processed.Repository
	timings   *timing.Tracker
}

func New(composer *compose.Service, persons *projection.PersonRepository,
	employees *projection.EmployeeRepository, badges *projection.BadgeRepository,
	processedRepo *processed.Repository, timings *timing.Tracker) *Handler {
	return &Handler{
		composer:  composer,
		persons:   persons,
		employees: employees,
		badges:    badges,
		processed: processedRepo,
		timings:   timings,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/composed/{personId}", h.ComposedView)
	mux.HandleFunc("GET /api/persons", h.ListPersons)
	mux.HandleFunc("GET /api/persons/{id}", h.GetPerson)
	mux.HandleFunc("GET /api/employees", h.ListEmployees)
	mux.HandleFunc("GET /api/badges", h.ListBadges)
	mux.HandleFunc("GET /api/metrics/freshness", h.Freshness)
	mux.HandleFunc("GET /api/metrics/counts", h.Counts)
	mux.HandleFunc("GET /api/metrics/timings", h.Timings)
	mux.HandleFunc("GET /api/metrics/timings/{entityId}", h.TimingForEntity)
}

func (h *Handler) ComposedView(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	personID := r.PathValue("personId")

	view, err := h.composer.ComposedView(r.Context(), personID, time.Now().UTC())
	if err != nil {
		http.Error(w, "failed to compose view", http.StatusInternalServerError)
		return
	}
	if view == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":    "person not found",
			"personId": personID,
		})
		return
	}

	w.Header().Set("X-Query-Time-Ms", strconv.FormatInt(time.Since(start).Milliseconds(), 10))
	w.Header().Set("X-Services-Called", "1") // local projections only
	w.Header().Set("X-Data-Freshness", view.Freshness.DataFreshness)
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) GetPerson(w http.ResponseWriter, r *http.Request) {
	p, err := h.persons.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, "failed to load person projection", http.StatusInternalServerError)
		return
	}
	if p == nil {
		http.Error(w, "person not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) ListPersons(w http.ResponseWriter, r *http.Request) {
	list, err := h.persons.List(r.Context())
	if err != nil {
		http.Error(w, "failed to list person projections", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []projection.Person{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	list, err := h.employees.List(r.Context())
	if err != nil {
		http.Error(w, "failed to list employee projections", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []projection.Employee{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) ListBadges(w http.ResponseWriter, r *http.Request) {
	list, err := h.badges.List(r.Context())
	if err != nil {
		http.Error(w, "failed to list badge projections", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []projection.Badge{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Freshness reports per-projection staleness. Projections with no rows yet
// report "never"/-1 rather than an error.
func (h *Handler) Freshness(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()

	personLast, err := h.persons.LastUpdateTime(r.Context())
	if err != nil {
		http.Error(w, "failed to read freshness", http.StatusInternalServerError)
		return
	}
	employeeLast, err := h.employees.LastUpdateTime(r.Context())
	if err != nil {
		http.Error(w, "failed to read freshness", http.StatusInternalServerError)
		return
	}
	badgeLast, err := h.badges.LastUpdateTime(r.Context())
	if err != nil {
		http.Error(w, "failed to read freshness", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"person":    compose.BuildFreshness(personLast, now),
		"employee":  compose.BuildFreshness(employeeLast, now),
		"badge":     compose.BuildFreshness(badgeLast, now),
		"timestamp": now.Format(time.RFC3339Nano),
	})
}

func (h *Handler) Counts(w http.ResponseWriter, r *http.Request) {
	persons, err := h.persons.Count(r.Context())
	if err != nil {
		http.Error(w, "failed to count projections", http.StatusInternalServerError)
		return
	}
	employees, err := h.employees.Count(r.Context())
	if err != nil {
		http.Error(w, "failed to count projections", http.StatusInternalServerError)
		return
	}
	badges, err := h.badges.Count(r.Context())
	if err != nil {
		http.Error(w, "failed to count projections", http.StatusInternalServerError)
		return
	}
	processedCount, err := h.processed.Count(r.Context())
	if err != nil {
		http.Error(w, "failed to count processed events", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{
		"persons":         persons,
		"employees":       employees,
		"badges":          badges,
		"processedEvents": processedCount,
	})
}

func (h *Handler) Timings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.timings.Snapshot())
}

func (h *Handler) TimingForEntity(w http.ResponseWriter, r *http.Request) {
	entityID := r.PathValue("entityId")
	p, ok := h.timings.Get(entityID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":    "no timing recorded",
			"entityId": entityID,
		})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

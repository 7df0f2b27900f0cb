package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/avershov/hrstream/libs/outbox"
	"github.com/avershov/hrstream/services/hr-service/internal/people"
)

type Handler struct {
	svc    *people.Service
	outbox *outbox.Repository
}

func New(svc *people.Service, outboxRepo *outbox.Repository) *Handler {
	return &Handler{svc: svc, outbox: outboxRepo}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/persons", h.List)
	mux.HandleFunc("POST /api/persons", h.Create)
	mux.HandleFunc("GET /api/persons/{id}", h.Get)
	mux.HandleFunc("PUT /api/persons/{id}", h.Update)
	mux.HandleFunc("DELETE /api/persons/{id}", h.Terminate)
	mux.HandleFunc("GET /api/metrics/outbox", h.OutboxBacklog)
}

// OutboxBacklog reports how many events the relay has not yet published.
func (h *Handler) OutboxBacklog(w http.ResponseWriter, r *http.Request) {
	n, err := h.outbox.UnpublishedCount(r.Context())
	if err != nil {
		http.Error(w, "failed to count outbox backlog", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"unpublished": n})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		HireDate string `json:"hire_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" {
		http.Error(w, "name and email are required", http.StatusBadRequest)
		return
	}

	var hireDate *time.Time
	if req.HireDate != "" {
		d, err := time.Parse("2006-01-02", req.HireDate)
		if err != nil {
			http.Error(w, "hire_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		hireDate = &d
	}

	p, err := h.svc.Create(r.Context(), people.CreateInput{Name: req.Name, Email: req.Email, HireDate: hireDate})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			http.Error(w, "email already in use", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create person", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, "failed to load person", http.StatusInternalServerError)
		return
	}
	if p == nil {
		http.Error(w, "person not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	persons, err := h.svc.List(r.Context())
	if err != nil {
		http.Error(w, "failed to list persons", http.StatusInternalServerError)
		return
	}
	if persons == nil {
		persons = []people.Person{}
	}
	writeJSON(w, http.StatusOK, persons)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	p, err := h.svc.Update(r.Context(), r.PathValue("id"), strings.TrimSpace(req.Name), strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, people.ErrNotFound) {
			http.Error(w, "person not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update person", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) Terminate(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Terminate(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, people.ErrNotFound) {
			http.Error(w, "person not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to terminate person", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

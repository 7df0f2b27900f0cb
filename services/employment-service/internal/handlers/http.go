package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/avershov/hrstream/libs/outbox"
	"github.com/avershov/hrstream/services/employment-service/internal/employees"
)

type Handler struct {
	svc    *employees.Service
	outbox *outbox.Repository
}

func New(svc *employees.Service, outboxRepo *outbox.Repository) *Handler {
	return &Handler{svc: svc, outbox: outboxRepo}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/employees", h.List)
	mux.HandleFunc("POST /api/employees", h.Assign)
	mux.HandleFunc("GET /api/employees/{id}", h.Get)
	mux.HandleFunc("POST /api/employees/{id}/promote", h.Promote)
	mux.HandleFunc("POST /api/employees/{id}/transfer", h.Transfer)
	mux.HandleFunc("DELETE /api/employees/{id}", h.Terminate)
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

func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PersonID   string  `json:"person_id"`
		Title      string  `json:"title"`
		Department string  `json:"department"`
		Salary     float64 `json:"salary"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.PersonID = strings.TrimSpace(req.PersonID)
	req.Title = strings.TrimSpace(req.Title)
	req.Department = strings.TrimSpace(req.Department)
	if req.PersonID == "" || req.Title == "" || req.Department == "" {
		http.Error(w, "person_id, title and department are required", http.StatusBadRequest)
		return
	}
	if req.Salary < 0 {
		http.Error(w, "salary must not be negative", http.StatusBadRequest)
		return
	}

	e, err := h.svc.Assign(r.Context(), employees.AssignInput{
		PersonID:   req.PersonID,
		Title:      req.Title,
		Department: req.Department,
		Salary:     req.Salary,
	})
	if err != nil {
		http.Error(w, "failed to assign employee", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *Handler) Promote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title  string  `json:"title"`
		Salary float64 `json:"salary"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	e, err := h.svc.Promote(r.Context(), r.PathValue("id"), strings.TrimSpace(req.Title), req.Salary)
	h.respond(w, e, err, "failed to promote employee")
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Department string `json:"department"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Department = strings.TrimSpace(req.Department)
	if req.Department == "" {
		http.Error(w, "department is required", http.StatusBadRequest)
		return
	}
	e, err := h.svc.Transfer(r.Context(), r.PathValue("id"), req.Department)
	h.respond(w, e, err, "failed to transfer employee")
}

func (h *Handler) Terminate(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Terminate(r.Context(), r.PathValue("id"))
	h.respond(w, e, err, "failed to terminate employee")
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, "failed to load employee", http.StatusInternalServerError)
		return
	}
	if e == nil {
		http.Error(w, "employee not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		http.Error(w, "failed to list employees", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []employees.Employee{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) respond(w http.ResponseWriter, e employees.Employee, err error, failMsg string) {
	if err != nil {
		if errors.Is(err, employees.ErrNotFound) {
			http.Error(w, "employee not found", http.StatusNotFound)
			return
		}
		http.Error(w, failMsg, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

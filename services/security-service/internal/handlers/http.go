package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/avershov/hrstream/libs/outbox"
	"github.com/avershov/hrstream/services/security-service/internal/badges"
)

type Handler struct {
	svc    *badges.Service
	outbox *outbox.Repository
}

func New(svc *badges.Service, outboxRepo *outbox.Repository) *Handler {
	return &Handler{svc: svc, outbox: outboxRepo}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/badges", h.List)
	mux.HandleFunc("POST /api/badges", h.Provision)
	mux.HandleFunc("GET /api/badges/{id}", h.Get)
	mux.HandleFunc("PUT /api/badges/{id}/access-level", h.ChangeAccessLevel)
	mux.HandleFunc("PUT /api/badges/{id}/clearance", h.ChangeClearance)
	mux.HandleFunc("DELETE /api/badges/{id}", h.Revoke)
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

func (h *Handler) Provision(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PersonID    string `json:"person_id"`
		AccessLevel string `json:"access_level"`
		Clearance   string `json:"clearance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.PersonID = strings.TrimSpace(req.PersonID)
	if req.PersonID == "" {
		http.Error(w, "person_id is required", http.StatusBadRequest)
		return
	}
	if req.AccessLevel == "" {
		req.AccessLevel = "STANDARD"
	}
	if req.Clearance == "" {
		req.Clearance = "NONE"
	}

	b, err := h.svc.Provision(r.Context(), badges.ProvisionInput{
		PersonID:    req.PersonID,
		AccessLevel: req.AccessLevel,
		Clearance:   req.Clearance,
	})
	if err != nil {
		http.Error(w, "failed to provision badge", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handler) ChangeAccessLevel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessLevel string `json:"access_level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.AccessLevel) == "" {
		http.Error(w, "access_level is required", http.StatusBadRequest)
		return
	}
	b, err := h.svc.ChangeAccessLevel(r.Context(), r.PathValue("id"), strings.TrimSpace(req.AccessLevel))
	h.respond(w, b, err, "failed to change access level")
}

func (h *Handler) ChangeClearance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Clearance string `json:"clearance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Clearance) == "" {
		http.Error(w, "clearance is required", http.StatusBadRequest)
		return
	}
	b, err := h.svc.ChangeClearance(r.Context(), r.PathValue("id"), strings.TrimSpace(req.Clearance))
	h.respond(w, b, err, "failed to change clearance")
}

func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Revoke(r.Context(), r.PathValue("id"))
	h.respond(w, b, err, "failed to revoke badge")
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, "failed to load badge", http.StatusInternalServerError)
		return
	}
	if b == nil {
		http.Error(w, "badge not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		http.Error(w, "failed to list badges", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []badges.Badge{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) respond(w http.ResponseWriter, b badges.Badge, err error, failMsg string) {
	if err != nil {
		if errors.Is(err, badges.ErrNotFound) {
			http.Error(w, "badge not found", http.StatusNotFound)
			return
		}
		http.Error(w, failMsg, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

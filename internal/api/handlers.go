package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hyperengineering/crm/internal/crm"
	"github.com/hyperengineering/crm/internal/validation"
)

// Handler implements the API handlers
type Handler struct {
	svc            *crm.Service
	apiKey         string
	profileID      string
	version        string
	maxUploadBytes int64
}

// HandlerConfig carries the settings the handlers need besides the service.
type HandlerConfig struct {
	APIKey         string
	ProfileID      string
	Version        string
	MaxUploadBytes int64
}

// NewHandler creates a new Handler over the CRM service.
func NewHandler(svc *crm.Service, cfg HandlerConfig) *Handler {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 2 << 20
	}
	return &Handler{
		svc:            svc,
		apiKey:         cfg.APIKey,
		profileID:      cfg.ProfileID,
		version:        cfg.Version,
		maxUploadBytes: maxUpload,
	}
}

// Health handles GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Health(r.Context())
	if err != nil {
		MapError(w, r, err)
		return
	}
	resp.Version = h.version
	writeJSON(w, http.StatusOK, resp)
}

// Activity handles GET /api/v1/activity
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	after, ok := queryInt64(w, r, "after")
	if !ok {
		return
	}
	limit, ok := queryInt64(w, r, "limit")
	if !ok {
		return
	}

	resp, err := h.svc.Activity(r.Context(), after, int(limit))
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeJSON encodes v with the given status.
// Backup handles GET /api/v1/backup
func (h *Handler) Backup(w http.ResponseWriter, r *http.Request) {
	backup, err := h.svc.LatestBackup(r.Context())
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, backup)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// decodeJSON decodes the request body into v, writing a 400 problem on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return false
	}
	return true
}

// queryInt64 parses an optional non-negative integer query parameter.
// A missing parameter yields 0.
func queryInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", []validation.ValidationError{
			{Field: name, Message: "must be a non-negative integer"},
		})
		return 0, false
	}
	return n, true
}

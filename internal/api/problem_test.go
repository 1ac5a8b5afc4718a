package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperengineering/crm/internal/crm"
	"github.com/hyperengineering/crm/internal/objectstore"
	"github.com/hyperengineering/crm/internal/store"
	"github.com/hyperengineering/crm/internal/validation"
)

func TestProblem_JSONSerialization(t *testing.T) {
	p := Problem{
		Type:     problemBaseURI + "unauthorized",
		Title:    "Unauthorized",
		Status:   401,
		Detail:   "Missing or invalid API key",
		Instance: "/api/v1/clients",
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("failed to marshal Problem: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal Problem JSON: %v", err)
	}

	// Verify all RFC 7807 fields present
	for _, field := range []string{"type", "title", "status", "detail", "instance"} {
		if _, ok := decoded[field]; !ok {
			t.Errorf("missing field %q", field)
		}
	}
	if decoded["status"] != float64(401) {
		t.Errorf("status = %v, want %v", decoded["status"], 401)
	}
}

func TestWriteProblem_BodyFormat(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil)

	WriteProblem(w, r, http.StatusUnauthorized, "Missing or invalid API key")

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %v, want application/problem+json", ct)
	}

	var p Problem
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	if p.Type != problemBaseURI+"unauthorized" {
		t.Errorf("type = %v, want %sunauthorized", p.Type, problemBaseURI)
	}
	if p.Title != "Unauthorized" {
		t.Errorf("title = %v, want Unauthorized", p.Title)
	}
	if p.Instance != "/api/v1/clients" {
		t.Errorf("instance = %v, want /api/v1/clients", p.Instance)
	}
}

func TestWriteProblem_TypeByStatus(t *testing.T) {
	tests := []struct {
		status int
		suffix string
	}{
		{http.StatusBadRequest, "bad-request"},
		{http.StatusNotFound, "not-found"},
		{http.StatusConflict, "conflict"},
		{http.StatusUnsupportedMediaType, "unsupported-media-type"},
		{http.StatusUnprocessableEntity, "validation-error"},
		{http.StatusTooManyRequests, "rate-limit"},
		{http.StatusServiceUnavailable, "service-unavailable"},
		{http.StatusTeapot, "unknown"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil)

			WriteProblem(w, r, tt.status, "detail")

			var p Problem
			if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
				t.Fatalf("failed to unmarshal: %v", err)
			}
			if p.Type != problemBaseURI+tt.suffix {
				t.Errorf("type = %v, want %s%s", p.Type, problemBaseURI, tt.suffix)
			}
			if p.Status != tt.status {
				t.Errorf("status = %d, want %d", p.Status, tt.status)
			}
		})
	}
}

func TestWriteProblemWithErrors_422(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/clients", nil)

	errs := []validation.ValidationError{
		{Field: "business_name", Message: "is required"},
	}
	WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}

	var p ProblemWithErrors
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if p.Title != "Validation Error" {
		t.Errorf("title = %v, want Validation Error", p.Title)
	}
	if len(p.Errors) != 1 || p.Errors[0].Field != "business_name" {
		t.Errorf("errors = %+v, want one business_name error", p.Errors)
	}
}

// --- MapError Tests ---

func TestMapError(t *testing.T) {
	validationErr := &crm.ValidationError{Errors: []validation.ValidationError{
		{Field: "site_type_id", Message: "is required when status is closed"},
	}}

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", validationErr, http.StatusUnprocessableEntity},
		{"wrapped validation", fmt.Errorf("create: %w", validationErr), http.StatusUnprocessableEntity},
		{"not found", fmt.Errorf("get client x: %w", store.ErrNotFound), http.StatusNotFound},
		{"site type in use", store.ErrSiteTypeInUse, http.StatusConflict},
		{"unsupported media", fmt.Errorf("%w: %q", crm.ErrUnsupportedMedia, "text/plain"), http.StatusUnsupportedMediaType},
		{"storage not configured", fmt.Errorf("upload logo: %w", objectstore.ErrNotConfigured), http.StatusServiceUnavailable},
		{"unknown", errors.New("disk I/O error: /var/lib/crm.db"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/v1/clients", nil)

			MapError(w, r, tt.err)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Errorf("Content-Type = %v, want application/problem+json", ct)
			}
		})
	}
}

func TestMapError_ValidationCarriesFieldErrors(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/clients", nil)

	MapError(w, r, &crm.ValidationError{Errors: []validation.ValidationError{
		{Field: "phone", Message: "is required"},
		{Field: "city", Message: "is required"},
	}})

	var p ProblemWithErrors
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if len(p.Errors) != 2 {
		t.Errorf("len(errors) = %d, want 2", len(p.Errors))
	}
}

func TestMapError_UnknownDoesNotLeak(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil)

	MapError(w, r, errors.New("disk I/O error: /var/lib/crm.db"))

	if strings.Contains(w.Body.String(), "/var/lib/crm.db") {
		t.Error("response body leaks internal error details")
	}

	var p Problem
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if p.Detail != "Internal Server Error" {
		t.Errorf("detail = %v, want 'Internal Server Error' (no leak)", p.Detail)
	}
}

func TestMapError_UnknownLogsActor(t *testing.T) {
	logs := captureLogs(t)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodDelete, "/api/v1/clients/x", nil)
	r = r.WithContext(WithActor(r.Context(), "owner"))

	MapError(w, r, errors.New("database is locked"))

	var entry map[string]any
	if err := json.Unmarshal(logs.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}
	if entry["actor"] != "owner" {
		t.Errorf("actor = %v, want owner", entry["actor"])
	}
	if entry["error"] != "database is locked" {
		t.Errorf("error = %v, want the internal error in the log", entry["error"])
	}
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/crm/internal/crm"
	"github.com/hyperengineering/crm/internal/report"
	"github.com/hyperengineering/crm/internal/types"
	"github.com/hyperengineering/crm/internal/validation"
)

// CreateClientRequest is the body of POST /clients.
type CreateClientRequest struct {
	types.ClientInput
	Terms *types.ProjectTerms `json:"terms,omitempty"`
}

// UpdateClientRequest is the body of PATCH /clients/{id}.
type UpdateClientRequest struct {
	types.ClientPatch
	Terms *types.ProjectTerms `json:"terms,omitempty"`
}

// ConvertClientRequest is the body of POST /clients/{id}/convert.
type ConvertClientRequest struct {
	SiteTypeID string `json:"site_type_id"`
	types.ProjectTerms
}

// UpdateClosedProjectRequest is the body of PATCH /closed-clients/{id}.
type UpdateClosedProjectRequest struct {
	types.ProjectTerms
}

// ListClients handles GET /api/v1/clients
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sort := report.SortOrder(q.Get("sort"))
	if sort != "" && sort != report.SortAsc && sort != report.SortDesc {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", []validation.ValidationError{
			{Field: "sort", Message: "must be one of: asc, desc"},
		})
		return
	}

	clients, err := h.svc.ListClients(r.Context(), crm.ClientQuery{
		Status: q.Get("status"),
		Search: q.Get("q"),
		Sort:   sort,
	})
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

// GetClient handles GET /api/v1/clients/{id}
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetClient(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CreateClient handles POST /api/v1/clients
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req CreateClientRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.svc.CreateClient(r.Context(), req.ClientInput, req.Terms)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateClient handles PATCH /api/v1/clients/{id}
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	var req UpdateClientRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	c, err := h.svc.UpdateClient(r.Context(), id, req.ClientPatch, req.Terms)
	if err != nil {
		MapError(w, r, err)
		return
	}
	if c == nil {
		WriteProblem(w, r, http.StatusNotFound, "Client not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteClient handles DELETE /api/v1/clients/{id}. Deleting an unknown
// client is not an error.
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.DeleteClient(r.Context(), chi.URLParam(r, "id")); err != nil {
		MapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConvertClient handles POST /api/v1/clients/{id}/convert
func (h *Handler) ConvertClient(w http.ResponseWriter, r *http.Request) {
	var req ConvertClientRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	c, err := h.svc.ConvertToClosed(r.Context(), id, req.SiteTypeID, &req.ProjectTerms)
	if err != nil {
		MapError(w, r, err)
		return
	}
	if c == nil {
		WriteProblem(w, r, http.StatusNotFound, "Client not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ListClosedProjects handles GET /api/v1/closed-clients
func (h *Handler) ListClosedProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.svc.ListClosedProjects(r.Context(), crm.ProjectQuery{
		SiteTypeID: q.Get("site_type"),
		Search:     q.Get("q"),
	})
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// UpdateClosedProject handles PATCH /api/v1/closed-clients/{id}
func (h *Handler) UpdateClosedProject(w http.ResponseWriter, r *http.Request) {
	var req UpdateClosedProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	cp, err := h.svc.UpdateClosedProject(r.Context(), id, &req.ProjectTerms)
	if err != nil {
		MapError(w, r, err)
		return
	}
	if cp == nil {
		WriteProblem(w, r, http.StatusNotFound, "Closed project not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

// DeleteClosedProject handles DELETE /api/v1/closed-clients/{id}. The client
// is kept and marked lost.
func (h *Handler) DeleteClosedProject(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.DeleteClosedProject(r.Context(), chi.URLParam(r, "id")); err != nil {
		MapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

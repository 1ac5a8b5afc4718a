package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/crm/internal/types"
)

// ListSiteTypes handles GET /api/v1/site-types
func (h *Handler) ListSiteTypes(w http.ResponseWriter, r *http.Request) {
	siteTypes, err := h.svc.ListSiteTypes(r.Context())
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, siteTypes)
}

// CreateSiteType handles POST /api/v1/site-types
func (h *Handler) CreateSiteType(w http.ResponseWriter, r *http.Request) {
	var in types.SiteTypeInput
	if !decodeJSON(w, r, &in) {
		return
	}

	st, err := h.svc.CreateSiteType(r.Context(), in)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// UpdateSiteType handles PATCH /api/v1/site-types/{id}
func (h *Handler) UpdateSiteType(w http.ResponseWriter, r *http.Request) {
	var patch types.SiteTypePatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	id := chi.URLParam(r, "id")
	st, err := h.svc.UpdateSiteType(r.Context(), id, patch)
	if err != nil {
		MapError(w, r, err)
		return
	}
	if st == nil {
		WriteProblem(w, r, http.StatusNotFound, "Site type not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// DeleteSiteType handles DELETE /api/v1/site-types/{id}. A site type still
// referenced by a closed project answers 409.
func (h *Handler) DeleteSiteType(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.DeleteSiteType(r.Context(), chi.URLParam(r, "id")); err != nil {
		MapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

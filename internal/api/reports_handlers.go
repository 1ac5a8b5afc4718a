package api

import (
	"net/http"
)

// Dashboard handles GET /api/v1/reports/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	months, ok := queryInt64(w, r, "months")
	if !ok {
		return
	}

	d, err := h.svc.Dashboard(r.Context(), int(months))
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// MonthlyReport handles GET /api/v1/reports/monthly
func (h *Handler) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	months, ok := queryInt64(w, r, "months")
	if !ok {
		return
	}

	buckets, err := h.svc.MonthlyReport(r.Context(), int(months))
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

// SiteTypeReport handles GET /api/v1/reports/site-types
func (h *Handler) SiteTypeReport(w http.ResponseWriter, r *http.Request) {
	totals, err := h.svc.SiteTypeReport(r.Context())
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

package report

import (
	"sort"
	"strings"

	"github.com/hyperengineering/crm/internal/types"
)

// SortOrder selects the contact date ordering of a listing.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Search keeps clients whose business name, contact name or city contains
// term, ignoring case. An empty term keeps everything.
func Search(clients []types.Client, term string) []types.Client {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]types.Client, 0, len(clients))
	for _, c := range clients {
		if term == "" || matches(term, c.BusinessName, c.ContactName, c.City) {
			out = append(out, c)
		}
	}
	return out
}

// SearchProjects is Search over the closed-project view.
func SearchProjects(projects []types.ClosedProject, term string) []types.ClosedProject {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]types.ClosedProject, 0, len(projects))
	for _, p := range projects {
		if term == "" || matches(term, p.BusinessName, p.ContactName, p.City) {
			out = append(out, p)
		}
	}
	return out
}

func matches(term string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// FilterByStatus keeps clients in status. "all" and "" keep everything.
func FilterByStatus(clients []types.Client, status string) []types.Client {
	out := make([]types.Client, 0, len(clients))
	for _, c := range clients {
		if status == "" || status == types.StatusAll || string(c.Status) == status {
			out = append(out, c)
		}
	}
	return out
}

// FilterBySiteType keeps closed projects of the given site type. "all" and ""
// keep everything.
func FilterBySiteType(projects []types.ClosedProject, siteTypeID string) []types.ClosedProject {
	out := make([]types.ClosedProject, 0, len(projects))
	for _, p := range projects {
		if siteTypeID == "" || siteTypeID == types.StatusAll || p.SiteTypeID == siteTypeID {
			out = append(out, p)
		}
	}
	return out
}

// SortByContactDate orders clients by contact date. Ties keep input order.
// The input slice is not modified.
func SortByContactDate(clients []types.Client, order SortOrder) []types.Client {
	out := make([]types.Client, len(clients))
	copy(out, clients)
	sort.SliceStable(out, func(i, j int) bool {
		if order == SortAsc {
			return out[i].ContactDate < out[j].ContactDate
		}
		return out[i].ContactDate > out[j].ContactDate
	})
	return out
}

// Package report computes pipeline aggregates from client and site type
// snapshots. Every function is pure and recomputes from its input.
package report

import (
	"math"
	"time"

	"github.com/hyperengineering/crm/internal/types"
)

// DefaultMonths is the dashboard timeline length.
const DefaultMonths = 6

const monthLayout = "2006-01"

// CountByStatus counts clients in the given status, or all clients for "all".
func CountByStatus(clients []types.Client, status string) int {
	if status == types.StatusAll {
		return len(clients)
	}
	n := 0
	for _, c := range clients {
		if string(c.Status) == status {
			n++
		}
	}
	return n
}

// ClosedProjects returns the closed-project view of every closed client.
func ClosedProjects(clients []types.Client) []types.ClosedProject {
	out := make([]types.ClosedProject, 0)
	for i := range clients {
		if cp, ok := clients[i].AsClosedProject(); ok {
			out = append(out, cp)
		}
	}
	return out
}

// TotalRevenue sums the value of all closed projects.
func TotalRevenue(clients []types.Client) float64 {
	var total float64
	for _, c := range clients {
		if c.IsClosed() {
			total += c.Project.Value
		}
	}
	return total
}

// ProjectRevenue sums the value of the given closed projects.
func ProjectRevenue(projects []types.ClosedProject) float64 {
	var total float64
	for _, p := range projects {
		total += p.Value
	}
	return total
}

// ConversionRate returns closed clients as a rounded percentage of all
// clients. An empty pipeline converts at 0.
func ConversionRate(clients []types.Client) int {
	if len(clients) == 0 {
		return 0
	}
	closed := CountByStatus(clients, string(types.StatusClosed))
	return int(math.Round(float64(closed) / float64(len(clients)) * 100))
}

// MonthlyBuckets partitions closed projects into the n calendar months ending
// with the month of now, oldest first. Projects are placed by the month of
// their contact date. Months without projects are reported with zeros.
func MonthlyBuckets(clients []types.Client, now time.Time, n int) []types.MonthBucket {
	if n <= 0 {
		return []types.MonthBucket{}
	}

	buckets := make([]types.MonthBucket, n)
	index := make(map[string]int, n)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		key := first.AddDate(0, i-(n-1), 0).Format(monthLayout)
		buckets[i].Month = key
		index[key] = i
	}

	for i := range clients {
		c := &clients[i]
		if !c.IsClosed() {
			continue
		}
		contact := c.ContactTime()
		if contact.IsZero() {
			continue
		}
		if j, ok := index[contact.Format(monthLayout)]; ok {
			buckets[j].ClosedCount++
			buckets[j].Revenue += c.Project.Value
		}
	}
	return buckets
}

// PerSiteTypeTotals reports, for every site type in catalog order, the count
// and summed value of the closed projects referencing it.
func PerSiteTypeTotals(clients []types.Client, siteTypes []types.SiteType) []types.SiteTypeTotal {
	totals := make([]types.SiteTypeTotal, len(siteTypes))
	index := make(map[string]int, len(siteTypes))
	for i, st := range siteTypes {
		totals[i] = types.SiteTypeTotal{SiteTypeID: st.ID, Name: st.Name}
		index[st.ID] = i
	}

	for _, c := range clients {
		if !c.IsClosed() {
			continue
		}
		if j, ok := index[c.SiteTypeID]; ok {
			totals[j].Count++
			totals[j].Value += c.Project.Value
		}
	}
	return totals
}

// StatusDistribution counts clients per status in display order.
func StatusDistribution(clients []types.Client) []types.StatusCount {
	out := make([]types.StatusCount, len(types.Statuses))
	for i, s := range types.Statuses {
		out[i] = types.StatusCount{Status: s, Count: CountByStatus(clients, string(s))}
	}
	return out
}

// Dashboard assembles the pipeline overview.
func Dashboard(clients []types.Client, siteTypes []types.SiteType, now time.Time, months int) types.Dashboard {
	return types.Dashboard{
		TotalClients:   len(clients),
		ClosedClients:  CountByStatus(clients, string(types.StatusClosed)),
		InProgress:     CountByStatus(clients, string(types.StatusInProgress)),
		Negotiating:    CountByStatus(clients, string(types.StatusNegotiating)),
		Lost:           CountByStatus(clients, string(types.StatusLost)),
		ConversionRate: ConversionRate(clients),
		TotalRevenue:   TotalRevenue(clients),
		ByStatus:       StatusDistribution(clients),
		Monthly:        MonthlyBuckets(clients, now, months),
		BySiteType:     PerSiteTypeTotals(clients, siteTypes),
	}
}

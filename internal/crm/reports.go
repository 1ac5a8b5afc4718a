package crm

import (
	"context"
	"fmt"

	"github.com/hyperengineering/crm/internal/report"
	"github.com/hyperengineering/crm/internal/types"
)

// Dashboard computes the pipeline overview over the trailing months.
// months <= 0 uses the configured default.
func (s *Service) Dashboard(ctx context.Context, months int) (*types.Dashboard, error) {
	clients, siteTypes, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	d := report.Dashboard(clients, siteTypes, s.now(), s.monthsOrDefault(months))
	return &d, nil
}

// MonthlyReport returns the closed-project timeline.
func (s *Service) MonthlyReport(ctx context.Context, months int) ([]types.MonthBucket, error) {
	clients, err := s.store.ListClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return report.MonthlyBuckets(clients, s.now(), s.monthsOrDefault(months)), nil
}

// SiteTypeReport returns closed-project totals per catalog entry.
func (s *Service) SiteTypeReport(ctx context.Context) ([]types.SiteTypeTotal, error) {
	clients, siteTypes, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return report.PerSiteTypeTotals(clients, siteTypes), nil
}

func (s *Service) snapshot(ctx context.Context) ([]types.Client, []types.SiteType, error) {
	clients, err := s.store.ListClients(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list clients: %w", err)
	}
	siteTypes, err := s.store.ListSiteTypes(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list site types: %w", err)
	}
	return clients, siteTypes, nil
}

func (s *Service) monthsOrDefault(months int) int {
	if months <= 0 {
		return s.months
	}
	if months > 36 {
		return 36
	}
	return months
}

package crm

import (
	"context"
	"fmt"

	"github.com/hyperengineering/crm/internal/pipeline"
	"github.com/hyperengineering/crm/internal/report"
	"github.com/hyperengineering/crm/internal/types"
	"github.com/hyperengineering/crm/internal/validation"
)

// ProjectQuery narrows a closed project listing.
type ProjectQuery struct {
	SiteTypeID string // site type id or "all"
	Search     string
}

// ListClosedProjects returns the closed-project view with the revenue of the
// listed rows.
func (s *Service) ListClosedProjects(ctx context.Context, q ProjectQuery) (*types.ClosedProjectList, error) {
	clients, err := s.store.ListClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}

	projects := report.ClosedProjects(clients)
	projects = report.FilterBySiteType(projects, q.SiteTypeID)
	projects = report.SearchProjects(projects, q.Search)

	return &types.ClosedProjectList{
		Projects:     projects,
		Total:        len(projects),
		TotalRevenue: report.ProjectRevenue(projects),
	}, nil
}

// UpdateClosedProject edits the commercial terms of a closed project.
// A client without a project is reported as (nil, nil).
func (s *Service) UpdateClosedProject(ctx context.Context, id string, terms *types.ProjectTerms) (*types.ClosedProject, error) {
	if terms.IsZero() {
		return nil, fieldError("terms", "at least one of value, project_timeline, progress_percentage is required")
	}
	if err := invalid(validation.ValidateProjectTerms(terms)); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadClient(ctx, id)
	if err != nil || current == nil || !current.IsClosed() {
		return nil, err
	}

	next, err := pipeline.UpdateProjectTerms(*current, terms, s.now())
	if err != nil {
		return nil, ruleError(err)
	}

	if err := s.store.SaveClient(ctx, next, SourceFromContext(ctx)); err != nil {
		return nil, fmt.Errorf("save client: %w", err)
	}

	s.logger.Info("closed project updated",
		"id", id,
		"value", next.Project.Value,
		"progress", next.Project.ProgressPercentage,
	)
	cp, _ := next.AsClosedProject()
	return &cp, nil
}

// DeleteClosedProject removes the project and marks its client lost. The
// client itself is kept. A client without a project is reported as (nil, nil).
func (s *Service) DeleteClosedProject(ctx context.Context, id string) (*types.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadClient(ctx, id)
	if err != nil || current == nil {
		return nil, err
	}

	next, changed := pipeline.DropProject(*current, s.now())
	if !changed {
		return nil, nil
	}

	if err := s.store.SaveClient(ctx, next, SourceFromContext(ctx)); err != nil {
		return nil, fmt.Errorf("save client: %w", err)
	}

	s.logger.Info("closed project deleted", "id", id, "status", next.Status)
	return next, nil
}

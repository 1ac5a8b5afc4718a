package crm

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperengineering/crm/internal/pipeline"
	"github.com/hyperengineering/crm/internal/report"
	"github.com/hyperengineering/crm/internal/store"
	"github.com/hyperengineering/crm/internal/types"
	"github.com/hyperengineering/crm/internal/validation"
)

// ClientQuery narrows a client listing.
type ClientQuery struct {
	Status string // pipeline status or "all"
	Search string
	Sort   report.SortOrder
}

// ListClients returns clients matching q, newest contact first by default.
func (s *Service) ListClients(ctx context.Context, q ClientQuery) ([]types.Client, error) {
	if q.Status != "" && q.Status != types.StatusAll {
		if err := validation.ValidateStatus("status", types.ClientStatus(q.Status)); err != nil {
			return nil, invalid([]validation.ValidationError{*err})
		}
	}

	clients, err := s.store.ListClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}

	order := q.Sort
	if order != report.SortAsc {
		order = report.SortDesc
	}
	clients = report.FilterByStatus(clients, q.Status)
	clients = report.Search(clients, q.Search)
	return report.SortByContactDate(clients, order), nil
}

// GetClient returns a client by id. Missing clients yield store.ErrNotFound.
func (s *Service) GetClient(ctx context.Context, id string) (*types.Client, error) {
	c, err := s.store.GetClient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get client %s: %w", id, err)
	}
	return c, nil
}

// CreateClient adds a client. A client created as closed gets its project
// in the same commit.
func (s *Service) CreateClient(ctx context.Context, in types.ClientInput, terms *types.ProjectTerms) (*types.Client, error) {
	errs := validation.ValidateClientInput(in)
	errs = append(errs, validation.ValidateProjectTerms(terms)...)
	if err := invalid(errs); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	siteType, err := s.resolveSiteType(ctx, in.SiteTypeID)
	if err != nil {
		return nil, err
	}

	c, err := pipeline.NewClient(s.newID(), in, terms, siteType, s.now())
	if err != nil {
		return nil, ruleError(err)
	}

	if err := s.store.SaveClient(ctx, c, SourceFromContext(ctx)); err != nil {
		return nil, fmt.Errorf("save client: %w", err)
	}

	s.logger.Info("client created", "id", c.ID, "status", c.Status)
	return c, nil
}

// UpdateClient merges patch into the client and reconciles its project.
// A missing client is a no-op reported as (nil, nil).
func (s *Service) UpdateClient(ctx context.Context, id string, patch types.ClientPatch, terms *types.ProjectTerms) (*types.Client, error) {
	errs := validation.ValidateClientPatch(patch)
	errs = append(errs, validation.ValidateProjectTerms(terms)...)
	if err := invalid(errs); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadClient(ctx, id)
	if err != nil || current == nil {
		return nil, err
	}

	siteTypeID := current.SiteTypeID
	if patch.SiteTypeID != nil {
		siteTypeID = *patch.SiteTypeID
	}
	siteType, err := s.resolveSiteType(ctx, siteTypeID)
	if err != nil {
		return nil, err
	}

	next, err := pipeline.ApplyUpdate(*current, patch, terms, siteType, s.now())
	if err != nil {
		return nil, ruleError(err)
	}

	if err := s.store.SaveClient(ctx, next, SourceFromContext(ctx)); err != nil {
		return nil, fmt.Errorf("save client: %w", err)
	}

	s.logger.Info("client updated",
		"id", id,
		"status", next.Status,
		"closed", next.IsClosed(),
	)
	return next, nil
}

// DeleteClient removes a client together with its closed project.
// deleted is false when the client did not exist.
func (s *Service) DeleteClient(ctx context.Context, id string) (deleted bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.store.DeleteClient(ctx, id, SourceFromContext(ctx))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete client: %w", err)
	}

	s.logger.Info("client deleted", "id", id)
	return true, nil
}

// ConvertToClosed promotes a client to closed in place, keeping its id and
// creation time. A missing client is a no-op reported as (nil, nil).
func (s *Service) ConvertToClosed(ctx context.Context, id, siteTypeID string, terms *types.ProjectTerms) (*types.Client, error) {
	var errs []validation.ValidationError
	if siteTypeID == "" {
		errs = append(errs, validation.ValidationError{Field: "site_type_id", Message: "is required when status is closed"})
	} else if verr := validation.ValidateULID("site_type_id", siteTypeID); verr != nil {
		errs = append(errs, *verr)
	}
	errs = append(errs, validation.ValidateProjectTerms(terms)...)
	if err := invalid(errs); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadClient(ctx, id)
	if err != nil || current == nil {
		return nil, err
	}
	siteType, err := s.resolveSiteType(ctx, siteTypeID)
	if err != nil {
		return nil, err
	}

	next, err := pipeline.Convert(*current, siteType, terms, s.now())
	if err != nil {
		return nil, ruleError(err)
	}

	if err := s.store.SaveClient(ctx, next, SourceFromContext(ctx)); err != nil {
		return nil, fmt.Errorf("save client: %w", err)
	}

	s.logger.Info("client converted", "id", id, "site_type_id", siteTypeID, "value", next.Project.Value)
	return next, nil
}

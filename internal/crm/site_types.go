package crm

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperengineering/crm/internal/store"
	"github.com/hyperengineering/crm/internal/types"
	"github.com/hyperengineering/crm/internal/validation"
)

// ListSiteTypes returns the catalog in creation order.
func (s *Service) ListSiteTypes(ctx context.Context) ([]types.SiteType, error) {
	siteTypes, err := s.store.ListSiteTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list site types: %w", err)
	}
	return siteTypes, nil
}

// CreateSiteType adds a catalog entry.
func (s *Service) CreateSiteType(ctx context.Context, in types.SiteTypeInput) (*types.SiteType, error) {
	if err := invalid(validation.ValidateSiteTypeInput(in)); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	st := &types.SiteType{
		ID:          s.newID(),
		Name:        in.Name,
		Description: in.Description,
		BaseValue:   in.BaseValue,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.SaveSiteType(ctx, st, SourceFromContext(ctx)); err != nil {
		return nil, fmt.Errorf("save site type: %w", err)
	}

	s.logger.Info("site type created", "id", st.ID, "name", st.Name)
	return st, nil
}

// UpdateSiteType applies patch to a catalog entry. Existing projects keep
// their agreed value. A missing site type is reported as (nil, nil).
func (s *Service) UpdateSiteType(ctx context.Context, id string, patch types.SiteTypePatch) (*types.SiteType, error) {
	if err := invalid(validation.ValidateSiteTypePatch(patch)); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.store.GetSiteType(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get site type: %w", err)
	}

	if patch.Name != nil {
		st.Name = *patch.Name
	}
	if patch.Description != nil {
		st.Description = *patch.Description
	}
	if patch.BaseValue != nil {
		st.BaseValue = *patch.BaseValue
	}
	st.UpdatedAt = s.now()

	if err := s.store.SaveSiteType(ctx, st, SourceFromContext(ctx)); err != nil {
		return nil, fmt.Errorf("save site type: %w", err)
	}

	s.logger.Info("site type updated", "id", id)
	return st, nil
}

// DeleteSiteType removes a catalog entry. It fails with
// store.ErrSiteTypeInUse while any closed project references it; open
// clients pointing at it lose the reference. deleted is false when the site
// type did not exist.
func (s *Service) DeleteSiteType(ctx context.Context, id string) (deleted bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.store.DeleteSiteType(ctx, id, s.now(), SourceFromContext(ctx))
	switch {
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	case errors.Is(err, store.ErrSiteTypeInUse):
		s.logger.Warn("site type delete rejected", "id", id, "reason", "in use by closed projects")
		return false, err
	case err != nil:
		return false, fmt.Errorf("delete site type: %w", err)
	}

	s.logger.Info("site type deleted", "id", id)
	return true, nil
}

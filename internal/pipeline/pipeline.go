// Package pipeline holds the reconciliation rules that keep a client's
// status and its closed-project facet consistent.
//
// Rules are pure: they take the current client and return the next one.
// Loading, locking and persisting are the caller's job.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/hyperengineering/crm/internal/types"
)

// Rule errors.
var (
	ErrSiteTypeRequired = errors.New("a site type is required to close a client")
	ErrNotClosed        = errors.New("client has no closed project")
	ErrInconsistent     = errors.New("client status and project disagree")
)

// NewClient builds a client from creation input. When the input status is
// closed the project facet is created from terms, falling back to the site
// type's base value and the default timeline and progress.
func NewClient(id string, in types.ClientInput, terms *types.ProjectTerms, siteType *types.SiteType, now time.Time) (*types.Client, error) {
	status := in.Status
	if status == "" {
		status = types.StatusNegotiating
	}

	c := &types.Client{
		ID:           id,
		BusinessName: in.BusinessName,
		ContactName:  in.ContactName,
		Phone:        in.Phone,
		City:         in.City,
		ContactDate:  in.ContactDate,
		Status:       status,
		SiteTypeID:   in.SiteTypeID,
		Notes:        in.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if status == types.StatusClosed {
		if err := attachProject(c, terms, siteType, now); err != nil {
			return nil, err
		}
	}
	return c, Check(c)
}

// ApplyUpdate merges patch into current and reconciles the project facet:
//   - resulting status closed: the project is created, or its terms are
//     overwritten by the supplied ones;
//   - status explicitly moved away from closed: the project is dropped;
//   - otherwise the facet is left alone.
//
// siteType is the catalog entry the resulting client points at, or nil.
func ApplyUpdate(current types.Client, patch types.ClientPatch, terms *types.ProjectTerms, siteType *types.SiteType, now time.Time) (*types.Client, error) {
	next := current
	if current.Project != nil {
		p := *current.Project
		next.Project = &p
	}

	if patch.BusinessName != nil {
		next.BusinessName = *patch.BusinessName
	}
	if patch.ContactName != nil {
		next.ContactName = *patch.ContactName
	}
	if patch.Phone != nil {
		next.Phone = *patch.Phone
	}
	if patch.City != nil {
		next.City = *patch.City
	}
	if patch.ContactDate != nil {
		next.ContactDate = *patch.ContactDate
	}
	if patch.Status != nil {
		next.Status = *patch.Status
	}
	if patch.SiteTypeID != nil {
		next.SiteTypeID = *patch.SiteTypeID
	}
	if patch.Notes != nil {
		next.Notes = *patch.Notes
	}
	next.UpdatedAt = now

	switch {
	case next.Status == types.StatusClosed:
		if err := attachProject(&next, terms, siteType, now); err != nil {
			return nil, err
		}
	case patch.Status != nil:
		next.Project = nil
	}

	return &next, Check(&next)
}

// Convert promotes a client to closed in place. The id and creation time are
// kept, so there is exactly one client with one project afterwards.
func Convert(current types.Client, siteType *types.SiteType, terms *types.ProjectTerms, now time.Time) (*types.Client, error) {
	status := types.StatusClosed
	siteTypeID := ""
	if siteType != nil {
		siteTypeID = siteType.ID
	}
	return ApplyUpdate(current, types.ClientPatch{Status: &status, SiteTypeID: &siteTypeID}, terms, siteType, now)
}

// DropProject removes the project facet and marks the client lost.
// changed is false when the client had no project.
func DropProject(current types.Client, now time.Time) (next *types.Client, changed bool) {
	if current.Project == nil {
		return &current, false
	}
	current.Project = nil
	current.Status = types.StatusLost
	current.UpdatedAt = now
	return &current, true
}

// UpdateProjectTerms edits the commercial terms of an existing project.
// Unsupplied terms keep their current values.
func UpdateProjectTerms(current types.Client, terms *types.ProjectTerms, now time.Time) (*types.Client, error) {
	if !current.IsClosed() {
		return nil, ErrNotClosed
	}
	p := *current.Project
	mergeTerms(&p, terms)
	current.Project = &p
	current.UpdatedAt = now
	return &current, Check(&current)
}

// Check reports whether c satisfies the status/project invariant.
func Check(c *types.Client) error {
	closed := c.Status == types.StatusClosed
	switch {
	case closed && c.Project == nil:
		return fmt.Errorf("%w: closed client %s has no project", ErrInconsistent, c.ID)
	case !closed && c.Project != nil:
		return fmt.Errorf("%w: %s client %s carries a project", ErrInconsistent, c.Status, c.ID)
	case closed && c.SiteTypeID == "":
		return ErrSiteTypeRequired
	}
	if p := c.Project; p != nil {
		if p.ProjectTimeline < 1 || p.ProgressPercentage < 0 || p.ProgressPercentage > 100 || p.Value < 0 {
			return fmt.Errorf("%w: project terms out of range for %s", ErrInconsistent, c.ID)
		}
	}
	return nil
}

// attachProject upserts the project facet of a client that is now closed.
func attachProject(c *types.Client, terms *types.ProjectTerms, siteType *types.SiteType, now time.Time) error {
	if c.SiteTypeID == "" || siteType == nil || siteType.ID != c.SiteTypeID {
		return ErrSiteTypeRequired
	}

	if c.Project == nil {
		c.Project = &types.Project{
			Value:              siteType.BaseValue,
			ProjectTimeline:    types.DefaultProjectTimeline,
			ProgressPercentage: types.DefaultProgressPercentage,
			ClosedAt:           now,
		}
	}
	mergeTerms(c.Project, terms)
	return nil
}

func mergeTerms(p *types.Project, terms *types.ProjectTerms) {
	if terms.IsZero() {
		return
	}
	if terms.Value != nil {
		p.Value = *terms.Value
	}
	if terms.ProjectTimeline != nil {
		p.ProjectTimeline = *terms.ProjectTimeline
	}
	if terms.ProgressPercentage != nil {
		p.ProgressPercentage = *terms.ProgressPercentage
	}
}

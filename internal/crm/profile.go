package crm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hyperengineering/crm/internal/store"
	"github.com/hyperengineering/crm/internal/types"
	"github.com/hyperengineering/crm/internal/validation"
)

var logoMediaTypes = map[string]bool{
	"image/png":     true,
	"image/jpeg":    true,
	"image/gif":     true,
	"image/webp":    true,
	"image/svg+xml": true,
}

// Profile returns the operator's branding profile. Before the first update
// a profile carrying only the configured identity is returned.
func (s *Service) Profile(ctx context.Context) (*types.Profile, error) {
	p, err := s.store.GetProfile(ctx, s.profileID)
	if errors.Is(err, store.ErrNotFound) {
		return s.defaultProfile(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// UpdateProfile applies a branding update.
func (s *Service) UpdateProfile(ctx context.Context, patch types.ProfilePatch) (*types.Profile, error) {
	if err := invalid(validation.ValidateProfilePatch(patch)); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.Profile(ctx)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.CompanyName != nil {
		p.CompanyName = *patch.CompanyName
	}
	if patch.CompanyNameColor != nil {
		p.CompanyNameColor = *patch.CompanyNameColor
	}
	if patch.PrimaryColor != nil {
		p.PrimaryColor = *patch.PrimaryColor
	}

	return p, s.saveProfile(ctx, p)
}

// UploadLogo stores a logo image in object storage and points the profile
// at it. Returns objectstore.ErrNotConfigured when no bucket is set up.
func (s *Service) UploadLogo(ctx context.Context, filename, contentType string, r io.Reader, size int64) (*types.Profile, error) {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if !logoMediaTypes[mediaType] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMedia, contentType)
	}

	logoURL, err := s.uploader.PutLogo(ctx, s.profileID, filename, mediaType, r, size)
	if err != nil {
		return nil, fmt.Errorf("upload logo: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.Profile(ctx)
	if err != nil {
		return nil, err
	}
	p.Logo = logoURL
	if err := s.saveProfile(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("logo uploaded", "profile_id", p.ID, "url", logoURL, "bytes", size)
	return p, nil
}

func (s *Service) saveProfile(ctx context.Context, p *types.Profile) error {
	p.UpdatedAt = s.now()
	if err := s.store.SaveProfile(ctx, p, SourceFromContext(ctx)); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	s.logger.Info("profile updated", "profile_id", p.ID)
	return nil
}

func (s *Service) defaultProfile() *types.Profile {
	name, _, _ := strings.Cut(s.profileEmail, "@")
	return &types.Profile{
		ID:    s.profileID,
		Email: s.profileEmail,
		Name:  name,
	}
}

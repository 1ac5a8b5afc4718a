package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hyperengineering/crm/internal/types"
)

// GetProfile retrieves the branding profile for a user.
func (s *SQLiteStore) GetProfile(ctx context.Context, id string) (*types.Profile, error) {
	var p types.Profile
	var updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, company_name, company_name_color, logo, primary_color, updated_at
		FROM profiles WHERE id = ?
	`, id).Scan(&p.ID, &p.Email, &p.Name, &p.CompanyName, &p.CompanyNameColor, &p.Logo, &p.PrimaryColor, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

// SaveProfile inserts or replaces a branding profile.
func (s *SQLiteStore) SaveProfile(ctx context.Context, p *types.Profile, sourceID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO profiles
			(id, email, name, company_name, company_name_color, logo, primary_color, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Email, p.Name, p.CompanyName, p.CompanyNameColor, p.Logo, p.PrimaryColor, formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	if err := appendChangeLog(ctx, tx, types.TableProfiles, p.ID, types.OperationUpsert, sourceID, p); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hyperengineering/crm/internal/types"
)

func scanSiteType(scanner interface{ Scan(...any) error }) (*types.SiteType, error) {
	var st types.SiteType
	var createdAt, updatedAt string
	if err := scanner.Scan(&st.ID, &st.Name, &st.Description, &st.BaseValue, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	st.CreatedAt = parseTime(createdAt)
	st.UpdatedAt = parseTime(updatedAt)
	return &st, nil
}

// ListSiteTypes returns the catalog ordered by creation time.
func (s *SQLiteStore) ListSiteTypes(ctx context.Context) ([]types.SiteType, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, base_value, created_at, updated_at
		FROM site_types
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query site types: %w", err)
	}
	defer rows.Close()

	siteTypes := make([]types.SiteType, 0)
	for rows.Next() {
		st, err := scanSiteType(rows)
		if err != nil {
			return nil, fmt.Errorf("scan site type: %w", err)
		}
		siteTypes = append(siteTypes, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate site types: %w", err)
	}
	return siteTypes, nil
}

// GetSiteType retrieves a site type by ID.
func (s *SQLiteStore) GetSiteType(ctx context.Context, id string) (*types.SiteType, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, base_value, created_at, updated_at
		FROM site_types WHERE id = ?
	`, id)

	st, err := scanSiteType(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan site type: %w", err)
	}
	return st, nil
}

// SaveSiteType inserts or replaces a site type.
func (s *SQLiteStore) SaveSiteType(ctx context.Context, st *types.SiteType, sourceID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO site_types (id, name, description, base_value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			base_value = excluded.base_value,
			updated_at = excluded.updated_at
	`, st.ID, st.Name, st.Description, st.BaseValue, formatTime(st.CreatedAt), formatTime(st.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save site type: %w", err)
	}

	if err := appendChangeLog(ctx, tx, types.TableSiteTypes, st.ID, types.OperationUpsert, sourceID, st); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DeleteSiteType removes a site type that no closed project references.
// Open clients that pointed at it keep their record with the reference cleared
// and updated_at set to now; each gets its own change log entry.
// Returns ErrSiteTypeInUse when a closed project references it.
func (s *SQLiteStore) DeleteSiteType(ctx context.Context, id string, now time.Time, sourceID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var inUse int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM clients WHERE site_type_id = ? AND status = 'closed'
	`, id).Scan(&inUse)
	if err != nil {
		return fmt.Errorf("check site type usage: %w", err)
	}
	if inUse > 0 {
		return ErrSiteTypeInUse
	}

	affected, err := clientsReferencing(ctx, tx, id)
	if err != nil {
		return err
	}
	for i := range affected {
		c := &affected[i]
		c.SiteTypeID = ""
		c.UpdatedAt = now
		if _, err := tx.ExecContext(ctx, `
			UPDATE clients SET site_type_id = NULL, updated_at = ? WHERE id = ?
		`, formatTime(now), c.ID); err != nil {
			return fmt.Errorf("clear site type reference: %w", err)
		}
		if err := appendChangeLog(ctx, tx, types.TableClients, c.ID, types.OperationUpsert, sourceID, c); err != nil {
			return err
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM site_types WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete site type: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if err := appendChangeLog(ctx, tx, types.TableSiteTypes, id, types.OperationDelete, sourceID, nil); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// clientsReferencing loads the clients pointing at a site type. Rows are
// drained before returning so the transaction can issue further statements.
func clientsReferencing(ctx context.Context, tx *sql.Tx, siteTypeID string) ([]types.Client, error) {
	rows, err := tx.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE site_type_id = ? ORDER BY id`, siteTypeID)
	if err != nil {
		return nil, fmt.Errorf("query referencing clients: %w", err)
	}
	defer rows.Close()

	var clients []types.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate referencing clients: %w", err)
	}
	return clients, nil
}

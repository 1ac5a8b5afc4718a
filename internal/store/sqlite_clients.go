package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hyperengineering/crm/internal/types"
)

const clientColumns = `
	id, business_name, contact_name, phone, city, contact_date, status, site_type_id, notes,
	project_value, project_timeline, project_progress, project_closed_at, created_at, updated_at`

// scanClient scans a row into a Client, rebuilding the project facet from
// the nullable project columns.
func scanClient(scanner interface{ Scan(...any) error }) (*types.Client, error) {
	var c types.Client
	var status string
	var siteTypeID, closedAt sql.NullString
	var value sql.NullFloat64
	var timeline, progress sql.NullInt64
	var createdAt, updatedAt string

	err := scanner.Scan(
		&c.ID,
		&c.BusinessName,
		&c.ContactName,
		&c.Phone,
		&c.City,
		&c.ContactDate,
		&status,
		&siteTypeID,
		&c.Notes,
		&value,
		&timeline,
		&progress,
		&closedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Status = types.ClientStatus(status)
	c.SiteTypeID = siteTypeID.String
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)

	if value.Valid {
		c.Project = &types.Project{
			Value:              value.Float64,
			ProjectTimeline:    int(timeline.Int64),
			ProgressPercentage: int(progress.Int64),
			ClosedAt:           parseTime(closedAt.String),
		}
	}

	return &c, nil
}

// ListClients returns every client ordered by creation time.
func (s *SQLiteStore) ListClients(ctx context.Context) ([]types.Client, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	clients := make([]types.Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return clients, nil
}

// GetClient retrieves a client by ID.
func (s *SQLiteStore) GetClient(ctx context.Context, id string) (*types.Client, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)

	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan client: %w", err)
	}
	return c, nil
}

// SaveClient inserts or replaces a client together with its project facet.
func (s *SQLiteStore) SaveClient(ctx context.Context, c *types.Client, sourceID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var value, timeline, progress, closedAt any
	if c.Project != nil {
		value = c.Project.Value
		timeline = c.Project.ProjectTimeline
		progress = c.Project.ProgressPercentage
		closedAt = formatTime(c.Project.ClosedAt)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO clients (`+clientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			business_name = excluded.business_name,
			contact_name = excluded.contact_name,
			phone = excluded.phone,
			city = excluded.city,
			contact_date = excluded.contact_date,
			status = excluded.status,
			site_type_id = excluded.site_type_id,
			notes = excluded.notes,
			project_value = excluded.project_value,
			project_timeline = excluded.project_timeline,
			project_progress = excluded.project_progress,
			project_closed_at = excluded.project_closed_at,
			updated_at = excluded.updated_at
	`,
		c.ID, c.BusinessName, c.ContactName, c.Phone, c.City, c.ContactDate, string(c.Status),
		nullString(c.SiteTypeID), c.Notes, value, timeline, progress, closedAt,
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save client: %w", err)
	}

	if err := appendChangeLog(ctx, tx, types.TableClients, c.ID, types.OperationUpsert, sourceID, c); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DeleteClient removes a client and its project facet.
func (s *SQLiteStore) DeleteClient(ctx context.Context, id, sourceID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if err := appendChangeLog(ctx, tx, types.TableClients, id, types.OperationDelete, sourceID, nil); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

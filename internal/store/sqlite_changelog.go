package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hyperengineering/crm/internal/types"
)

const insertChangeLogSQL = `
	INSERT INTO change_log (table_name, entity_id, operation, payload, source_id, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`

// execContext is satisfied by both *sql.DB and *sql.Tx.
type execContext interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// appendChangeLog records a mutation. Callers pass the transaction that
// performed the mutation so both commit together.
func appendChangeLog(ctx context.Context, execer execContext, table, entityID, operation, sourceID string, payload any) error {
	var body any
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal change payload: %w", err)
		}
		body = string(raw)
	}

	_, err := execer.ExecContext(ctx, insertChangeLogSQL,
		table, entityID, operation, body, sourceID, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("append change log: %w", err)
	}
	return nil
}

// GetChangeLogAfter returns entries with sequence > afterSeq, up to limit.
func (s *SQLiteStore) GetChangeLogAfter(ctx context.Context, afterSeq int64, limit int) ([]types.ChangeLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, table_name, entity_id, operation, payload, source_id, created_at, received_at
		FROM change_log
		WHERE sequence > ?
		ORDER BY sequence ASC
		LIMIT ?
	`, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("query change log: %w", err)
	}
	defer rows.Close()

	entries := make([]types.ChangeLogEntry, 0)
	for rows.Next() {
		var e types.ChangeLogEntry
		var payload sql.NullString
		var createdAt, receivedAt string

		if err := rows.Scan(&e.Sequence, &e.TableName, &e.EntityID, &e.Operation,
			&payload, &e.SourceID, &createdAt, &receivedAt); err != nil {
			return nil, fmt.Errorf("scan change log entry: %w", err)
		}

		if payload.Valid {
			e.Payload = json.RawMessage(payload.String)
		}
		var parseErr error
		if e.CreatedAt, parseErr = time.Parse(timeLayout, createdAt); parseErr != nil {
			slog.Warn("change_log: failed to parse created_at", "value", createdAt, "error", parseErr)
		}
		if e.ReceivedAt, parseErr = time.Parse(timeLayout, receivedAt); parseErr != nil {
			slog.Warn("change_log: failed to parse received_at", "value", receivedAt, "error", parseErr)
		}

		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetLatestSequence returns the highest sequence number in the change log.
// Returns 0 if the change log is empty.
func (s *SQLiteStore) GetLatestSequence(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(sequence) FROM change_log`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get latest sequence: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return seq.Int64, nil
}

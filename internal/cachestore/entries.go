package cachestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const rowColumns = "id, key, variant, value, version, created_at, expires_at"

// Upsert writes rows, replacing any existing row with the same key. Each row
// keeps the id it was given, so an overwrite changes the entry id.
func (s *Store) Upsert(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	const query = `INSERT INTO cache_entries (` + rowColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
    id = excluded.id,
    variant = excluded.variant,
    value = excluded.value,
    version = excluded.version,
    created_at = excluded.created_at,
    expires_at = excluded.expires_at`

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				row.ID.String(),
				row.Key,
				row.Variant,
				row.Value,
				nullableString(row.Version),
				toUnix(row.CreatedAt),
				toUnix(row.ExpiresAt),
			); err != nil {
				return fmt.Errorf("upsert %s: %w", row.Key, err)
			}
		}
		return tx.Commit()
	})
}

// Fetch returns the rows stored under keys, expired or not. Missing keys are
// simply absent from the result.
func (s *Store) Fetch(ctx context.Context, keys []string) ([]Row, error) {
	var out []Row
	for start := 0; start < len(keys); start += fetchChunkSize {
		chunk := keys[start:min(start+fetchChunkSize, len(keys))]
		args := make([]any, len(chunk))
		for i, key := range chunk {
			args[i] = key
		}
		query := "SELECT " + rowColumns + " FROM cache_entries WHERE key IN (" + makePlaceholders(len(chunk)) + ")"
		rows, err := s.queryRows(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

// ExpireByID sets expires_at to now for a live row with id. It reports
// whether a row changed.
func (s *Store) ExpireByID(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	res, err := s.execWithRetry(ctx,
		"UPDATE cache_entries SET expires_at = ? WHERE id = ? AND expires_at > ?",
		toUnix(now), id.String(), toUnix(now))
	if err != nil {
		return false, fmt.Errorf("expire entry %s: %w", id, err)
	}
	return affected(res)
}

// ExpireByKey sets expires_at to now for the live row stored under key.
func (s *Store) ExpireByKey(ctx context.Context, key string, now time.Time) (bool, error) {
	res, err := s.execWithRetry(ctx,
		"UPDATE cache_entries SET expires_at = ? WHERE key = ? AND expires_at > ?",
		toUnix(now), key, toUnix(now))
	if err != nil {
		return false, fmt.Errorf("expire key %s: %w", key, err)
	}
	return affected(res)
}

// ExpireByVariant expires every live row of variant and returns the count.
func (s *Store) ExpireByVariant(ctx context.Context, variant string, now time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx,
		"UPDATE cache_entries SET expires_at = ? WHERE variant = ? AND expires_at > ?",
		toUnix(now), variant, toUnix(now))
	if err != nil {
		return 0, fmt.Errorf("expire variant %s: %w", variant, err)
	}
	return res.RowsAffected()
}

// Purge physically deletes rows that expired at or before cutoff.
func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx, "DELETE FROM cache_entries WHERE expires_at <= ?", toUnix(cutoff))
	if err != nil {
		return 0, fmt.Errorf("purge expired entries: %w", err)
	}
	return res.RowsAffected()
}

// ListFilter narrows List results.
type ListFilter struct {
	Variant string
	// LiveAt, when set, drops rows that expired at or before it.
	LiveAt time.Time
	Limit  int
}

// List returns rows newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Row, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Variant != "" {
		clauses = append(clauses, "variant = ?")
		args = append(args, filter.Variant)
	}
	if !filter.LiveAt.IsZero() {
		clauses = append(clauses, "expires_at > ?")
		args = append(args, toUnix(filter.LiveAt))
	}
	query := "SELECT " + rowColumns + " FROM cache_entries"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, key"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	return s.queryRows(ctx, query, args...)
}

// VariantStats summarises the rows of one variant.
type VariantStats struct {
	Variant string
	Live    int64
	Expired int64
}

// Stats counts live and expired rows per variant as of now.
func (s *Store) Stats(ctx context.Context, now time.Time) ([]VariantStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT variant,
    SUM(CASE WHEN expires_at > ? THEN 1 ELSE 0 END),
    SUM(CASE WHEN expires_at > ? THEN 0 ELSE 1 END)
FROM cache_entries GROUP BY variant ORDER BY variant`, toUnix(now), toUnix(now))
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var out []VariantStats
	for rows.Next() {
		var stat VariantStats
		if err := rows.Scan(&stat.Variant, &stat.Live, &stat.Expired); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		out = append(out, stat)
	}
	return out, rows.Err()
}

func (s *Store) queryRows(ctx context.Context, query string, args ...any) ([]Row, error) {
	var out []Row
	err := retryOnBusy(ctx, func() error {
		out = out[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			row, err := scanRow(rows)
			if err != nil {
				return err
			}
			out = append(out, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query cache entries: %w", err)
	}
	return out, nil
}

func scanRow(scanner interface{ Scan(dest ...any) error }) (Row, error) {
	var (
		id        string
		row       Row
		version   sql.NullString
		createdAt int64
		expiresAt int64
	)
	if err := scanner.Scan(&id, &row.Key, &row.Variant, &row.Value, &version, &createdAt, &expiresAt); err != nil {
		return Row{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Row{}, fmt.Errorf("parse entry id %q: %w", id, err)
	}
	row.ID = parsed
	if version.Valid {
		v := version.String
		row.Version = &v
	}
	row.CreatedAt = fromUnix(createdAt)
	row.ExpiresAt = fromUnix(expiresAt)
	return row, nil
}

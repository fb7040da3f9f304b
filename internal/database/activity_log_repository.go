package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/deskindex/deskindex/internal/models"
)

const (
	defaultActivityLimit = 100
	maxActivityLimit     = 1000
)

// ActivityFilter narrows an activity log listing. Empty fields match everything.
type ActivityFilter struct {
	Limit        int
	ActivityType models.ActivityType
	Source       models.DocumentSource
}

// ActivityLogRepository handles activity log storage and retrieval.
type ActivityLogRepository struct {
	db *sql.DB
}

// NewActivityLogRepository creates a new activity log repository.
func NewActivityLogRepository(db *sql.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

// Log stores a new activity log entry.
func (r *ActivityLogRepository) Log(ctx context.Context, log models.ActivityLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}

	var details any
	if log.Details != nil {
		raw, err := json.Marshal(log.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal details: %w", err)
		}
		details = raw
	}

	query := `
		INSERT INTO activity_logs (id, timestamp, activity_type, source, actor, message, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.Timestamp,
		log.ActivityType,
		log.Source,
		log.Actor,
		log.Message,
		details,
	); err != nil {
		return fmt.Errorf("failed to insert activity log: %w", err)
	}
	return nil
}

// List returns the newest entries first.
func (r *ActivityLogRepository) List(ctx context.Context, filter ActivityFilter) ([]models.ActivityLog, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}

	query := `
		SELECT id, timestamp, activity_type, source, actor, message, details
		FROM activity_logs
		WHERE 1=1
	`
	args := []any{}
	argPos := 1

	if filter.ActivityType != "" {
		query += fmt.Sprintf(" AND activity_type = $%d", argPos)
		args = append(args, filter.ActivityType)
		argPos++
	}
	if filter.Source != "" {
		query += fmt.Sprintf(" AND source = $%d", argPos)
		args = append(args, filter.Source)
		argPos++
	}

	query += " ORDER BY timestamp DESC"
	query += fmt.Sprintf(" LIMIT $%d", argPos)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity logs: %w", err)
	}
	defer rows.Close()

	logs := []models.ActivityLog{}
	for rows.Next() {
		var log models.ActivityLog
		var detailsJSON []byte

		if err := rows.Scan(
			&log.ID,
			&log.Timestamp,
			&log.ActivityType,
			&log.Source,
			&log.Actor,
			&log.Message,
			&detailsJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity log: %w", err)
		}

		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &log.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal details: %w", err)
			}
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}

// DeleteOlderThan removes entries older than age and reports how many went.
func (r *ActivityLogRepository) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age)

	result, err := r.db.ExecContext(ctx, `DELETE FROM activity_logs WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune activity logs: %w", err)
	}
	return result.RowsAffected()
}

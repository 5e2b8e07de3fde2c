package instance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines persistence of instances.
type Repository interface {
	// GetByID returns ErrInstanceNotFound if the instance does not exist.
	GetByID(ctx context.Context, id string) (*Instance, error)

	// List returns every instance ordered by name.
	List(ctx context.Context) ([]Instance, error)

	// Upsert inserts the instance or replaces its fields, keeping created_at.
	Upsert(ctx context.Context, inst *Instance) error

	// Delete returns ErrInstanceNotFound if the instance does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectInstance = `
	SELECT id, name, kind, base_url, access_token, topic_base,
		cache_json, enabled, created_at, updated_at
	FROM instances`

// GetByID implements Repository.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Instance, error) {
	row := r.db.QueryRowContext(ctx, selectInstance+` WHERE id = ?`, id)

	inst, err := scanInstance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInstanceNotFound
		}
		return nil, fmt.Errorf("querying instance by id: %w", err)
	}
	return inst, nil
}

// List implements Repository.
func (r *SQLiteRepository) List(ctx context.Context) ([]Instance, error) {
	rows, err := r.db.QueryContext(ctx, selectInstance+` ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("querying instances: %w", err)
	}
	defer rows.Close()

	var instances []Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning instance: %w", err)
		}
		instances = append(instances, *inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating instances: %w", err)
	}
	return instances, nil
}

// Upsert implements Repository.
func (r *SQLiteRepository) Upsert(ctx context.Context, inst *Instance) error {
	if err := inst.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	if inst.CreatedAt.IsZero() {
		inst.CreatedAt = now
	}
	inst.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO instances (
			id, name, kind, base_url, access_token, topic_base,
			cache_json, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			base_url = excluded.base_url,
			access_token = excluded.access_token,
			topic_base = excluded.topic_base,
			cache_json = excluded.cache_json,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at`,
		inst.ID, inst.Name, string(inst.Kind), inst.BaseURL, inst.AccessToken, inst.TopicBase,
		boolToInt(inst.CacheJSON), boolToInt(inst.Enabled),
		inst.CreatedAt.Format(time.RFC3339Nano), inst.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting instance %s: %w", inst.ID, err)
	}
	return nil
}

// Delete implements Repository.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM instances WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting instance: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrInstanceNotFound
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInstance(s scanner) (*Instance, error) {
	var (
		inst                 Instance
		kind                 string
		cacheJSON, enabled   int64
		createdAt, updatedAt string
	)

	err := s.Scan(
		&inst.ID, &inst.Name, &kind, &inst.BaseURL, &inst.AccessToken, &inst.TopicBase,
		&cacheJSON, &enabled, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	inst.Kind = Kind(kind)
	inst.CacheJSON = cacheJSON != 0
	inst.Enabled = enabled != 0

	if inst.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if inst.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &inst, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package registry

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/mfx/internal/models"
	"github.com/desertthunder/mfx/internal/shared"
)

// Dataset is one dataset's registry of named run records.
//
// It implements [Collection]; a dataset is its own root.
type Dataset struct {
	id   string
	name string
	db   *sql.DB
}

// RunInfo pairs a stored record with its registry bookkeeping.
type RunInfo struct {
	Key       string
	Config    models.RecordConfig
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Name returns the dataset's display name.
func (d *Dataset) Name() string { return d.name }

// Root returns the dataset itself; a full dataset is its own root.
func (d *Dataset) Root() *Dataset { return d }

// RegisterRun writes a record into the registry under the given key.
//
// An existing record with the same key is overwritten in place; the
// registry has last-write-wins semantics.
func (d *Dataset) RegisterRun(key string, cfg models.RecordConfig) error {
	if key == "" {
		return fmt.Errorf("%w: registry key", shared.ErrMissingArgument)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	data, err := models.EncodeConfig(cfg)
	if err != nil {
		return err
	}

	now := time.Now().UTC()

	exists, err := d.HasRun(key)
	if err != nil {
		return err
	}

	if exists {
		_, err = d.db.Exec(
			"UPDATE run_records SET method = ?, config = ?, updated_at = ? WHERE dataset_id = ? AND key = ?",
			cfg.RecordMethod(), string(data), now, d.id, key,
		)
		if err != nil {
			return fmt.Errorf("failed to overwrite run record: %w", err)
		}
		return nil
	}

	sequence, err := NextSequence(d.db, "run_records")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	_, err = d.db.Exec(
		"INSERT INTO run_records (id, sequence, dataset_id, key, method, config, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		shared.GenerateID(), sequence, d.id, key, cfg.RecordMethod(), string(data), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run record: %w", err)
	}

	return nil
}

// ListRuns returns the keys of all records in the dataset's registry, in sequence order.
func (d *Dataset) ListRuns() ([]string, error) {
	rows, err := d.db.Query(
		"SELECT key FROM run_records WHERE dataset_id = ? ORDER BY sequence ASC", d.id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query run records: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan record key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return keys, nil
}

// GetRunInfo retrieves the record stored under the given key.
func (d *Dataset) GetRunInfo(key string) (*RunInfo, error) {
	var (
		method    string
		config    string
		createdAt time.Time
		updatedAt time.Time
	)

	err := d.db.QueryRow(
		"SELECT method, config, created_at, updated_at FROM run_records WHERE dataset_id = ? AND key = ?",
		d.id, key,
	).Scan(&method, &config, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrRecordNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run record: %w", err)
	}

	cfg, err := models.DecodeConfig(method, []byte(config))
	if err != nil {
		return nil, err
	}

	return &RunInfo{
		Key:       key,
		Config:    cfg,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// UpdateRunConfig replaces the config of an existing record.
//
// Unlike RegisterRun, the record must already exist.
func (d *Dataset) UpdateRunConfig(key string, cfg models.RecordConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	data, err := models.EncodeConfig(cfg)
	if err != nil {
		return err
	}

	result, err := d.db.Exec(
		"UPDATE run_records SET method = ?, config = ?, updated_at = ? WHERE dataset_id = ? AND key = ?",
		cfg.RecordMethod(), string(data), time.Now().UTC(), d.id, key,
	)
	if err != nil {
		return fmt.Errorf("failed to update run record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRecordNotFound, key)
	}

	return nil
}

// HasRun reports whether a record exists under the given key.
func (d *Dataset) HasRun(key string) (bool, error) {
	var exists bool
	err := d.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM run_records WHERE dataset_id = ? AND key = ?)", d.id, key,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check run record: %w", err)
	}
	return exists, nil
}

// ListRunInfos retrieves every record in the registry whose method matches.
//
// An empty method matches all records. Order follows sequence order.
func (d *Dataset) ListRunInfos(method string) ([]*RunInfo, error) {
	query := "SELECT key, method, config, created_at, updated_at FROM run_records WHERE dataset_id = ?"
	args := []any{d.id}

	if method != "" {
		query += " AND method = ?"
		args = append(args, method)
	}

	query += " ORDER BY sequence ASC"

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query run records: %w", err)
	}
	defer rows.Close()

	var infos []*RunInfo
	for rows.Next() {
		var (
			key       string
			m         string
			config    string
			createdAt time.Time
			updatedAt time.Time
		)
		if err := rows.Scan(&key, &m, &config, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}

		cfg, err := models.DecodeConfig(m, []byte(config))
		if err != nil {
			return nil, err
		}

		infos = append(infos, &RunInfo{Key: key, Config: cfg, CreatedAt: createdAt, UpdatedAt: updatedAt})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return infos, nil
}

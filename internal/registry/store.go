package registry

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/mfx/internal/shared"
)

// Store is the root handle over the registry database.
//
// It resolves named datasets to [Dataset] handles; all record access goes
// through a dataset.
type Store struct {
	db *sql.DB
}

// NewStore creates a new Store with the given database connection
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Dataset returns the dataset with the given name, creating it if absent.
func (s *Store) Dataset(name string) (*Dataset, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: dataset name", shared.ErrMissingArgument)
	}

	ds, err := s.GetDataset(name)
	if err == nil {
		return ds, nil
	}

	sequence, err := NextSequence(s.db, "datasets")
	if err != nil {
		return nil, fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	_, err = s.db.Exec(
		"INSERT INTO datasets (id, sequence, name) VALUES (?, ?, ?)",
		id, sequence, name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert dataset: %w", err)
	}

	return &Dataset{id: id, name: name, db: s.db}, nil
}

// GetDataset returns an existing dataset by name.
func (s *Store) GetDataset(name string) (*Dataset, error) {
	var id string
	err := s.db.QueryRow("SELECT id FROM datasets WHERE name = ?", name).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrDatasetNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset: %w", err)
	}

	return &Dataset{id: id, name: name, db: s.db}, nil
}

// ListDatasets returns the names of all datasets in sequence order.
func (s *Store) ListDatasets() ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM datasets ORDER BY sequence ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan dataset name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return names, nil
}

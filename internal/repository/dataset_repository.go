// internal/repository/dataset_repository.go
package repository

import (
	"context"
	"sync"

	"github.com/andresuchdata/reorder-planner/internal/domain"
)

// DatasetRepository persists the raw inputs (SKUs and records). Derived metrics and
// simulation parameters are never stored.
type DatasetRepository interface {
	// Load returns the stored dataset, or an empty one when nothing was saved yet.
	Load(ctx context.Context) (domain.Dataset, error)
	// Save replaces the stored dataset wholesale.
	Save(ctx context.Context, ds domain.Dataset) error
}

type memoryRepository struct {
	mu    sync.RWMutex
	ds    domain.Dataset
	saves int
}

// NewMemoryRepository keeps the dataset in process memory.
func NewMemoryRepository() DatasetRepository {
	return &memoryRepository{}
}

func (r *memoryRepository) Load(_ context.Context) (domain.Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ds.Clone(), nil
}

func (r *memoryRepository) Save(_ context.Context, ds domain.Dataset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ds = ds.Clone()
	r.saves++
	return nil
}

// Saves reports how many times Save was called.
func (r *memoryRepository) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}

package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/reorder-planner/internal/domain"
	"github.com/andresuchdata/reorder-planner/internal/forecast"
	"github.com/andresuchdata/reorder-planner/pkg/logger"
)

var storeLog = logger.Component("state")

// ErrNoGenerator is returned by Reset when the store was built without a generator.
var ErrNoGenerator = errors.New("store has no data generator")

// Generator produces a fresh dataset on reset
type Generator interface {
	Generate() domain.Dataset
}

// Observer is notified with every new snapshot. It runs on the mutating goroutine
// and must not call back into the store's mutation methods.
type Observer func(*Snapshot)

// Snapshot is one consistent view of inputs and their derived metrics.
// Snapshots are never modified after publication.
type Snapshot struct {
	Version     uint64
	// DataChanged is false when only the simulation parameters moved.
	DataChanged bool
	Dataset     domain.Dataset
	Params      domain.SimulationParameters
	Records     []domain.EnrichedRecord
	ComputedAt  time.Time
}

// Filter returns the enriched records matching f.
func (s *Snapshot) Filter(f domain.InventoryFilter) []domain.EnrichedRecord {
	return ApplyFilter(s.Records, f)
}

// KPIs counts KPI buckets over the records matching f.
func (s *Snapshot) KPIs(f domain.InventoryFilter) domain.KPISummary {
	return ComputeKPIs(s.Filter(f))
}

// Find returns the enriched record for key.
func (s *Snapshot) Find(key domain.RecordKey) (domain.EnrichedRecord, bool) {
	for _, r := range s.Records {
		if r.SKUID == key.SKUID && r.Region == key.Region {
			return r, true
		}
	}
	return domain.EnrichedRecord{}, false
}

// Options tunes a Store
type Options struct {
	Workers   int // >1 fans recomputation out over goroutines
	Generator Generator
}

type observerEntry struct {
	id int
	fn Observer
}

// Store owns the (dataset, parameters) tuple. Every mutation is serialised and
// followed by a full recompute; a failed recompute rejects the mutation.
type Store struct {
	calc      *forecast.Calculator
	workers   int
	generator Generator

	writeMu sync.Mutex // serialises mutations

	mu      sync.RWMutex
	current *Snapshot

	obsMu     sync.Mutex
	observers []observerEntry
	nextObsID int
}

// NewStore computes the initial snapshot from ds and params.
func NewStore(calc *forecast.Calculator, ds domain.Dataset, params domain.SimulationParameters, opts Options) (*Store, error) {
	s := &Store{
		calc:      calc,
		workers:   opts.Workers,
		generator: opts.Generator,
	}

	snap, err := s.build(ds.Clone(), ClampSimulation(params), 1)
	if err != nil {
		return nil, fmt.Errorf("initial recompute: %w", err)
	}
	s.current = snap
	return s, nil
}

// Snapshot returns the latest published snapshot.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Regions returns the lead times the store computes against.
func (s *Store) Regions() domain.RegionConfig {
	return s.calc.Regions()
}

// Calculator exposes the metrics calculator for read-only helpers.
func (s *Store) Calculator() *forecast.Calculator {
	return s.calc
}

// Subscribe registers fn for future snapshots and returns its unsubscribe func.
func (s *Store) Subscribe(fn Observer) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()

	s.nextObsID++
	id := s.nextObsID
	s.observers = append(s.observers, observerEntry{id: id, fn: fn})

	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// UpdateRecord patches stock fields of one record; values are clamped to >= 0.
func (s *Store) UpdateRecord(key domain.RecordKey, patch domain.RecordPatch) (*Snapshot, error) {
	return s.mutate("update_record", true, func(ds *domain.Dataset, _ *domain.SimulationParameters) error {
		r, ok := findRecord(ds, key)
		if !ok {
			return fmt.Errorf("record %s/%s: %w", key.SKUID, key.Region, domain.ErrNotFound)
		}
		applyRecordPatch(r, patch)
		return nil
	})
}

// UpdateSKU patches a SKU; MOQ is clamped to >= 0.
func (s *Store) UpdateSKU(id string, patch domain.SKUPatch) (*Snapshot, error) {
	return s.mutate("update_sku", true, func(ds *domain.Dataset, _ *domain.SimulationParameters) error {
		sku, ok := findSKU(ds, id)
		if !ok {
			return fmt.Errorf("sku %s: %w", id, domain.ErrNotFound)
		}
		applySKUPatch(sku, patch)
		return nil
	})
}

// UpdateHistory sets one month of last year's sales; value is clamped to >= 0.
func (s *Store) UpdateHistory(key domain.RecordKey, month int, value float64) (*Snapshot, error) {
	return s.mutate("update_history", true, func(ds *domain.Dataset, _ *domain.SimulationParameters) error {
		r, err := editableMonth(ds, key, month)
		if err != nil {
			return err
		}
		if month >= len(r.History) {
			return &domain.InvalidHistoryLengthError{Field: "history", Length: len(r.History)}
		}
		r.History[month] = max(0, value)
		return nil
	})
}

// UpdateRecentHistory sets one month of this year's sales. Records without a recent
// series return domain.ErrNoRecentHistory.
func (s *Store) UpdateRecentHistory(key domain.RecordKey, month int, value float64) (*Snapshot, error) {
	return s.mutate("update_recent_history", true, func(ds *domain.Dataset, _ *domain.SimulationParameters) error {
		r, err := editableMonth(ds, key, month)
		if err != nil {
			return err
		}
		recent, ok := r.RecentHistory.Get()
		if !ok {
			return fmt.Errorf("record %s/%s: %w", key.SKUID, key.Region, domain.ErrNoRecentHistory)
		}
		if month >= len(recent) {
			return &domain.InvalidHistoryLengthError{Field: "recent_history", Length: len(recent)}
		}
		updated := append([]float64(nil), recent...)
		updated[month] = max(0, value)
		r.RecentHistory = domain.SomeRecentHistory(updated)
		return nil
	})
}

// SetSimulation replaces the simulation parameters after clamping them.
func (s *Store) SetSimulation(params domain.SimulationParameters) (*Snapshot, error) {
	return s.mutate("set_simulation", false, func(_ *domain.Dataset, p *domain.SimulationParameters) error {
		*p = ClampSimulation(params)
		return nil
	})
}

// Replace swaps the whole dataset.
func (s *Store) Replace(ds domain.Dataset) (*Snapshot, error) {
	return s.mutate("replace", true, func(cur *domain.Dataset, _ *domain.SimulationParameters) error {
		*cur = ds.Clone()
		return nil
	})
}

// Reset replaces the dataset with a freshly generated one.
func (s *Store) Reset() (*Snapshot, error) {
	if s.generator == nil {
		return nil, ErrNoGenerator
	}
	return s.Replace(s.generator.Generate())
}

func (s *Store) mutate(op string, touchesData bool, fn func(ds *domain.Dataset, params *domain.SimulationParameters) error) (*Snapshot, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur := s.Snapshot()
	ds := cur.Dataset.Clone()
	params := cur.Params

	if err := fn(&ds, &params); err != nil {
		storeLog.Warn().Err(err).Str("op", op).Msg("mutation rejected")
		return nil, err
	}

	next, err := s.build(ds, params, cur.Version+1)
	if err != nil {
		storeLog.Warn().Err(err).Str("op", op).Msg("recompute failed, mutation rejected")
		return nil, err
	}
	next.DataChanged = touchesData

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()

	s.notify(next)
	return next, nil
}

func (s *Store) build(ds domain.Dataset, params domain.SimulationParameters, version uint64) (*Snapshot, error) {
	start := time.Now()
	records, err := RecomputeAllParallel(context.Background(), s.calc, ds, params, s.workers)
	if err != nil {
		return nil, err
	}

	storeLog.Debug().
		Uint64("version", version).
		Int("records", len(records)).
		Dur("elapsed", time.Since(start)).
		Msg("recomputed")

	return &Snapshot{
		Version:    version,
		Dataset:    ds,
		Params:     params,
		Records:    records,
		ComputedAt: time.Now(),
	}, nil
}

func (s *Store) notify(snap *Snapshot) {
	s.obsMu.Lock()
	observers := make([]observerEntry, len(s.observers))
	copy(observers, s.observers)
	s.obsMu.Unlock()

	for _, o := range observers {
		o.fn(snap)
	}
}

func editableMonth(ds *domain.Dataset, key domain.RecordKey, month int) (*domain.InventoryRecord, error) {
	if month < 0 || month >= domain.MonthsPerYear {
		return nil, fmt.Errorf("month %d: %w", month, domain.ErrInvalidMonth)
	}
	r, ok := findRecord(ds, key)
	if !ok {
		return nil, fmt.Errorf("record %s/%s: %w", key.SKUID, key.Region, domain.ErrNotFound)
	}
	return r, nil
}

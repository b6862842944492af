package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/reorder-planner/internal/cache"
	"github.com/andresuchdata/reorder-planner/internal/domain"
	"github.com/andresuchdata/reorder-planner/internal/export"
	"github.com/andresuchdata/reorder-planner/internal/repository"
	"github.com/andresuchdata/reorder-planner/internal/state"
	"github.com/andresuchdata/reorder-planner/internal/storage"
)

const persistTimeout = 10 * time.Second

// ErrNoStorage is returned by report operations when no object storage is wired.
var ErrNoStorage = errors.New("object storage is not configured")

// InventoryView is the filtered table plus the KPIs counted over it
type InventoryView struct {
	Items   []domain.EnrichedRecord     `json:"items"`
	KPIs    domain.KPISummary           `json:"kpis"`
	Params  domain.SimulationParameters `json:"params"`
	Version uint64                      `json:"version"`
}

// Options tunes a PlannerService
type Options struct {
	Persist      bool   // save raw data after every data mutation
	ReportPrefix string // object key prefix for published reports
}

type PlannerService struct {
	store   *state.Store
	repo    repository.DatasetRepository
	cache   cache.KPICache
	storage storage.ObjectStorage
	opts    Options
	now     func() time.Time

	unsubscribe func()
}

// NewPlannerService wires the store to persistence and caching. repo, cacheImpl and
// objects may be nil.
func NewPlannerService(store *state.Store, repo repository.DatasetRepository, cacheImpl cache.KPICache, objects storage.ObjectStorage, opts Options) *PlannerService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopKPICache()
	}
	if opts.ReportPrefix == "" {
		opts.ReportPrefix = "reports"
	}
	s := &PlannerService{
		store:   store,
		repo:    repo,
		cache:   cacheImpl,
		storage: objects,
		opts:    opts,
		now:     time.Now,
	}
	s.unsubscribe = store.Subscribe(s.onSnapshot)
	return s
}

// Close detaches the service from the store.
func (s *PlannerService) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// onSnapshot runs while the store still holds its writer lock, so saves reach the
// repository in version order.
func (s *PlannerService) onSnapshot(snap *state.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Uint64("version", snap.Version).Msg("planner: cache invalidate failed")
	}
	if snap.DataChanged {
		s.persist(snap)
	}
	log.Debug().Uint64("version", snap.Version).Int("records", len(snap.Records)).Msg("planner: snapshot published")
}

// Inventory returns the filtered enriched records, their KPIs and the active parameters.
func (s *PlannerService) Inventory(ctx context.Context, filter domain.InventoryFilter) InventoryView {
	snap := s.store.Snapshot()
	items := snap.Filter(filter)
	return InventoryView{
		Items:   items,
		KPIs:    state.ComputeKPIs(items),
		Params:  snap.Params,
		Version: snap.Version,
	}
}

// KPIs returns the summary for filter, served from the cache when possible.
func (s *PlannerService) KPIs(ctx context.Context, filter domain.InventoryFilter) domain.KPISummary {
	snap := s.store.Snapshot()
	key := cache.KPIKey{Version: snap.Version, Filter: filter}

	if kpis, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		return kpis
	} else if err != nil {
		log.Warn().Err(err).Msg("planner: cache get kpis failed")
	}

	kpis := snap.KPIs(filter)
	if err := s.cache.Set(ctx, key, kpis); err != nil {
		log.Warn().Err(err).Msg("planner: cache set kpis failed")
	}
	return kpis
}

// Record returns one enriched record.
func (s *PlannerService) Record(key domain.RecordKey) (domain.EnrichedRecord, error) {
	rec, ok := s.store.Snapshot().Find(key)
	if !ok {
		return domain.EnrichedRecord{}, fmt.Errorf("record %s/%s: %w", key.SKUID, key.Region, domain.ErrNotFound)
	}
	return rec, nil
}

// Seasonality returns the 12-month chart of one record under the active parameters.
func (s *PlannerService) Seasonality(key domain.RecordKey) ([]domain.SeasonalityPoint, error) {
	snap := s.store.Snapshot()
	rec, ok := snap.Find(key)
	if !ok {
		return nil, fmt.Errorf("record %s/%s: %w", key.SKUID, key.Region, domain.ErrNotFound)
	}
	return s.store.Calculator().Seasonality(rec.InventoryRecord, snap.Params)
}

func (s *PlannerService) Simulation() domain.SimulationParameters {
	return s.store.Snapshot().Params
}

func (s *PlannerService) Regions() domain.RegionConfig {
	return s.store.Regions()
}

func (s *PlannerService) SetSimulation(params domain.SimulationParameters) (domain.SimulationParameters, error) {
	snap, err := s.store.SetSimulation(params)
	if err != nil {
		return domain.SimulationParameters{}, err
	}
	return snap.Params, nil
}

func (s *PlannerService) UpdateRecord(ctx context.Context, key domain.RecordKey, patch domain.RecordPatch) (domain.EnrichedRecord, error) {
	return s.mutateRecord(ctx, key, func() (*state.Snapshot, error) {
		return s.store.UpdateRecord(key, patch)
	})
}

// UpdateHistory edits one month of last year's series, or of this year's when recent is set.
func (s *PlannerService) UpdateHistory(ctx context.Context, key domain.RecordKey, month int, value float64, recent bool) (domain.EnrichedRecord, error) {
	return s.mutateRecord(ctx, key, func() (*state.Snapshot, error) {
		if recent {
			return s.store.UpdateRecentHistory(key, month, value)
		}
		return s.store.UpdateHistory(key, month, value)
	})
}

// UpdateSKU patches a SKU and returns the SKU as stored.
func (s *PlannerService) UpdateSKU(ctx context.Context, id string, patch domain.SKUPatch) (domain.SKU, error) {
	snap, err := s.store.UpdateSKU(id, patch)
	if err != nil {
		return domain.SKU{}, err
	}
	for _, sku := range snap.Dataset.SKUs {
		if sku.ID == id {
			return sku, nil
		}
	}
	return domain.SKU{}, fmt.Errorf("sku %s: %w", id, domain.ErrNotFound)
}

// Reset regenerates the demo dataset.
func (s *PlannerService) Reset(ctx context.Context) (InventoryView, error) {
	if _, err := s.store.Reset(); err != nil {
		return InventoryView{}, err
	}
	return s.Inventory(ctx, domain.InventoryFilter{}), nil
}

// Import replaces the whole dataset, e.g. from an uploaded CSV.
func (s *PlannerService) Import(ctx context.Context, ds domain.Dataset) (InventoryView, error) {
	if len(ds.Records) == 0 {
		return InventoryView{}, fmt.Errorf("import: %w", domain.ErrEmptyDataset)
	}
	if _, err := s.store.Replace(ds); err != nil {
		return InventoryView{}, err
	}
	return s.Inventory(ctx, domain.InventoryFilter{}), nil
}

// BuildReport assembles the report for the filtered records.
func (s *PlannerService) BuildReport(filter domain.InventoryFilter) export.Report {
	snap := s.store.Snapshot()
	items := snap.Filter(filter)
	return export.Build(items, snap.Dataset.SKUs, snap.Params, state.ComputeKPIs(items), s.now())
}

// Export writes the filtered report to w.
func (s *PlannerService) Export(w io.Writer, filter domain.InventoryFilter, format export.Format) error {
	return export.Write(w, s.BuildReport(filter), format)
}

// PublishReport renders the report and uploads it, returning the object key.
func (s *PlannerService) PublishReport(ctx context.Context, filter domain.InventoryFilter, format export.Format) (string, error) {
	if s.storage == nil {
		return "", ErrNoStorage
	}

	var buf bytes.Buffer
	if err := s.Export(&buf, filter, format); err != nil {
		return "", err
	}

	key := export.ObjectKey(s.opts.ReportPrefix, s.now(), format)
	if err := s.storage.UploadObject(ctx, key, buf.Bytes(), format.ContentType()); err != nil {
		return "", err
	}
	log.Info().Str("key", key).Int("bytes", buf.Len()).Msg("planner: report published")
	return key, nil
}

// Reports lists published reports, newest day first.
func (s *PlannerService) Reports(ctx context.Context) ([]storage.ObjectInfo, error) {
	if s.storage == nil {
		return nil, ErrNoStorage
	}
	objects, err := s.storage.ListObjects(ctx, s.opts.ReportPrefix+"/")
	if err != nil {
		return nil, err
	}
	sort.SliceStable(objects, func(i, j int) bool { return objects[i].Key > objects[j].Key })
	return objects, nil
}

// FetchReport copies the report published as <prefix>/<day>/<name> into w and
// returns its key.
func (s *PlannerService) FetchReport(ctx context.Context, day, name string, w io.Writer) (string, error) {
	if s.storage == nil {
		return "", ErrNoStorage
	}
	for _, part := range []string{day, name} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
			return "", fmt.Errorf("report %s/%s: %w", day, name, storage.ErrObjectNotFound)
		}
	}
	key := path.Join(s.opts.ReportPrefix, day, name)

	tmp, err := os.CreateTemp("", "report-*"+path.Ext(name))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpPath)

	if err := s.storage.DownloadObject(ctx, key, tmpPath); err != nil {
		return "", err
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return "", fmt.Errorf("open downloaded report: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return "", fmt.Errorf("copy report %s: %w", key, err)
	}
	return key, nil
}

func (s *PlannerService) mutateRecord(ctx context.Context, key domain.RecordKey, fn func() (*state.Snapshot, error)) (domain.EnrichedRecord, error) {
	snap, err := fn()
	if err != nil {
		return domain.EnrichedRecord{}, err
	}
	rec, ok := snap.Find(key)
	if !ok {
		return domain.EnrichedRecord{}, fmt.Errorf("record %s/%s: %w", key.SKUID, key.Region, domain.ErrNotFound)
	}
	return rec, nil
}

// persist failures are logged; the in-memory state stays authoritative.
func (s *PlannerService) persist(snap *state.Snapshot) {
	if !s.opts.Persist || s.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.repo.Save(ctx, snap.Dataset); err != nil {
		log.Warn().Err(err).Uint64("version", snap.Version).Msg("planner: persist dataset failed")
	}
}

// LoadDataset returns the stored dataset, or a generated one when nothing is stored.
func LoadDataset(ctx context.Context, repo repository.DatasetRepository, gen state.Generator) (domain.Dataset, error) {
	if repo != nil {
		ds, err := repo.Load(ctx)
		if err != nil {
			return domain.Dataset{}, err
		}
		if !ds.IsEmpty() {
			log.Info().Int("records", len(ds.Records)).Msg("planner: loaded stored dataset")
			return ds, nil
		}
	}
	if gen == nil {
		return domain.Dataset{}, state.ErrNoGenerator
	}
	ds := gen.Generate()
	log.Info().Int("records", len(ds.Records)).Msg("planner: generated dataset")
	if repo != nil {
		if err := repo.Save(ctx, ds); err != nil {
			log.Warn().Err(err).Msg("planner: persist generated dataset failed")
		}
	}
	return ds, nil
}

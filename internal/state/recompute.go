package state

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/reorder-planner/internal/domain"
	"github.com/andresuchdata/reorder-planner/internal/forecast"
)

// RecomputeAll computes the metrics of every record against one parameter snapshot.
// It is a pure function: output order follows ds.Records and nothing is cached.
func RecomputeAll(calc *forecast.Calculator, ds domain.Dataset, params domain.SimulationParameters) ([]domain.EnrichedRecord, error) {
	skus := indexSKUs(ds.SKUs)
	out := make([]domain.EnrichedRecord, len(ds.Records))
	for i, record := range ds.Records {
		enriched, err := enrich(calc, skus, record, params)
		if err != nil {
			return nil, err
		}
		out[i] = enriched
	}
	return out, nil
}

// RecomputeAllParallel is RecomputeAll fanned out over at most workers goroutines.
// Each record writes only its own slot, so the result is identical to RecomputeAll.
func RecomputeAllParallel(ctx context.Context, calc *forecast.Calculator, ds domain.Dataset, params domain.SimulationParameters, workers int) ([]domain.EnrichedRecord, error) {
	if workers <= 1 || len(ds.Records) < 2 {
		return RecomputeAll(calc, ds, params)
	}

	skus := indexSKUs(ds.SKUs)
	out := make([]domain.EnrichedRecord, len(ds.Records))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range ds.Records {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			enriched, err := enrich(calc, skus, ds.Records[i], params)
			if err != nil {
				return err
			}
			out[i] = enriched
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func enrich(calc *forecast.Calculator, skus map[string]domain.SKU, record domain.InventoryRecord, params domain.SimulationParameters) (domain.EnrichedRecord, error) {
	sku, ok := skus[record.SKUID]
	if !ok {
		return domain.EnrichedRecord{}, &domain.MissingSKUError{SKUID: record.SKUID}
	}
	metrics, err := calc.ComputeMetrics(record, sku, params)
	if err != nil {
		return domain.EnrichedRecord{}, err
	}
	return domain.EnrichedRecord{
		InventoryRecord: record.Clone(),
		MOQ:             sku.MOQ,
		DerivedMetrics:  metrics,
	}, nil
}

func indexSKUs(skus []domain.SKU) map[string]domain.SKU {
	idx := make(map[string]domain.SKU, len(skus))
	for _, s := range skus {
		idx[s.ID] = s
	}
	return idx
}

// ComputeKPIs counts records per KPI bucket.
func ComputeKPIs(records []domain.EnrichedRecord) domain.KPISummary {
	kpis := domain.KPISummary{Total: len(records)}
	for _, r := range records {
		if r.SuggestedOrder > 0 {
			kpis.ToOrder++
		}
		switch {
		case r.Status.AtRisk():
			kpis.StockoutRisk++
		case r.Status == domain.StatusWarning:
			kpis.Warning++
		case r.Status == domain.StatusHealthy:
			kpis.Healthy++
		}
	}
	return kpis
}

// ApplyFilter returns the records matching the filter, preserving order.
func ApplyFilter(records []domain.EnrichedRecord, filter domain.InventoryFilter) []domain.EnrichedRecord {
	out := make([]domain.EnrichedRecord, 0, len(records))
	for _, r := range records {
		if filter.MatchesEnriched(r) {
			out = append(out, r)
		}
	}
	return out
}

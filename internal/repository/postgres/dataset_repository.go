package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/andresuchdata/reorder-planner/internal/domain"
	"github.com/andresuchdata/reorder-planner/internal/repository"
)

type skuRow struct {
	ID       string          `db:"id"`
	MOQ      int             `db:"moq"`
	UnitCost sql.NullFloat64 `db:"unit_cost"`
}

type recordRow struct {
	SKUID         string          `db:"sku_id"`
	Region        string          `db:"region"`
	CurrentStock  int             `db:"current_stock"`
	IncomingStock int             `db:"incoming_stock"`
	ActiveOrders  int             `db:"active_orders"`
	History       pq.Float64Array `db:"history"`
	RecentHistory pq.Float64Array `db:"recent_history"`
}

type datasetRepository struct {
	db *DB
}

// NewDatasetRepository stores the dataset in the skus and inventory_records tables.
func NewDatasetRepository(db *DB) repository.DatasetRepository {
	return &datasetRepository{db: db}
}

func (r *datasetRepository) Load(ctx context.Context) (domain.Dataset, error) {
	var skus []skuRow
	if err := r.db.SelectContext(ctx, &skus, `SELECT id, moq, unit_cost FROM skus ORDER BY position, id`); err != nil {
		return domain.Dataset{}, errors.Wrap(err, "select skus")
	}

	var records []recordRow
	query := `
		SELECT sku_id, region, current_stock, incoming_stock, active_orders, history, recent_history
		FROM inventory_records
		ORDER BY position, sku_id, region
	`
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return domain.Dataset{}, errors.Wrap(err, "select inventory records")
	}

	return toDataset(skus, records), nil
}

func (r *datasetRepository) Save(ctx context.Context, ds domain.Dataset) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		// 1. Drop the previous dataset, records cascade
		if _, err := tx.ExecContext(ctx, `DELETE FROM skus`); err != nil {
			return errors.Wrap(err, "clear skus")
		}

		// 2. SKUs
		skuStmt, err := tx.PreparexContext(ctx, `INSERT INTO skus (id, moq, unit_cost, position) VALUES ($1, $2, $3, $4)`)
		if err != nil {
			return errors.Wrap(err, "prepare sku insert")
		}
		defer skuStmt.Close()

		for i, s := range ds.SKUs {
			var cost sql.NullFloat64
			if s.UnitCost != nil {
				cost = sql.NullFloat64{Float64: *s.UnitCost, Valid: true}
			}
			if _, err := skuStmt.ExecContext(ctx, s.ID, s.MOQ, cost, i); err != nil {
				return errors.Wrapf(err, "insert sku %s", s.ID)
			}
		}

		// 3. Records
		recStmt, err := tx.PreparexContext(ctx, `
			INSERT INTO inventory_records (
				sku_id, region, current_stock, incoming_stock, active_orders,
				history, recent_history, position, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		`)
		if err != nil {
			return errors.Wrap(err, "prepare record insert")
		}
		defer recStmt.Close()

		for i, rec := range ds.Records {
			row := fromRecord(rec)
			if _, err := recStmt.ExecContext(ctx,
				row.SKUID, row.Region, row.CurrentStock, row.IncomingStock, row.ActiveOrders,
				row.History, row.RecentHistory, i,
			); err != nil {
				return errors.Wrapf(err, "insert record %s/%s", rec.SKUID, rec.Region)
			}
		}

		return nil
	})
}

func toDataset(skus []skuRow, records []recordRow) domain.Dataset {
	ds := domain.Dataset{
		SKUs:    make([]domain.SKU, 0, len(skus)),
		Records: make([]domain.InventoryRecord, 0, len(records)),
	}
	for _, s := range skus {
		sku := domain.SKU{ID: s.ID, MOQ: s.MOQ}
		if s.UnitCost.Valid {
			cost := s.UnitCost.Float64
			sku.UnitCost = &cost
		}
		ds.SKUs = append(ds.SKUs, sku)
	}
	for _, r := range records {
		rec := domain.InventoryRecord{
			SKUID:         r.SKUID,
			Region:        r.Region,
			CurrentStock:  r.CurrentStock,
			IncomingStock: r.IncomingStock,
			ActiveOrders:  r.ActiveOrders,
			History:       []float64(r.History),
			RecentHistory: domain.NoRecentHistory(),
		}
		// NULL scans to a nil array
		if r.RecentHistory != nil {
			rec.RecentHistory = domain.SomeRecentHistory(r.RecentHistory)
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds
}

func fromRecord(rec domain.InventoryRecord) recordRow {
	row := recordRow{
		SKUID:         rec.SKUID,
		Region:        rec.Region,
		CurrentStock:  rec.CurrentStock,
		IncomingStock: rec.IncomingStock,
		ActiveOrders:  rec.ActiveOrders,
		History:       pq.Float64Array(rec.History),
	}
	if recent, ok := rec.RecentHistory.Get(); ok {
		row.RecentHistory = pq.Float64Array(recent)
	}
	return row
}

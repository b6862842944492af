package postgres

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS skus (
	id         TEXT PRIMARY KEY,
	moq        INTEGER NOT NULL DEFAULT 0,
	unit_cost  DOUBLE PRECISION,
	position   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS inventory_records (
	sku_id          TEXT NOT NULL REFERENCES skus(id) ON DELETE CASCADE,
	region          TEXT NOT NULL,
	current_stock   INTEGER NOT NULL DEFAULT 0,
	incoming_stock  INTEGER NOT NULL DEFAULT 0,
	active_orders   INTEGER NOT NULL DEFAULT 0,
	history         DOUBLE PRECISION[] NOT NULL,
	recent_history  DOUBLE PRECISION[],
	position        INTEGER NOT NULL DEFAULT 0,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (sku_id, region)
);
`

// Migrate creates the dataset tables when they are missing.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

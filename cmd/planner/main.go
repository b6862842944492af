package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/reorder-planner/internal/config"
	"github.com/andresuchdata/reorder-planner/internal/repository/postgres"
	"github.com/andresuchdata/reorder-planner/pkg/logger"
)

type contextKey string

const dbKey contextKey = "db"

func newDBURLFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: required,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newInputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "csv",
			Usage: "Read records from this CSV file instead of generating them",
		},
		&cli.Uint64Flag{
			Name:    "seed",
			Usage:   "Generator seed (0 picks one from the clock)",
			EnvVars: []string{"PLANNER_SEED"},
		},
		&cli.IntFlag{Name: "month", Usage: "Simulation month, 0 = Jan"},
		&cli.IntFlag{Name: "day", Usage: "Simulation day of month"},
		&cli.Float64Flag{Name: "growth", Usage: "Fallback growth percent"},
		&cli.Float64Flag{Name: "safety", Usage: "Safety stock percent"},
		&cli.StringFlag{Name: "region", Usage: "Region filter (ALL for every region)", Value: "ALL"},
		&cli.StringFlag{Name: "search", Usage: "Case-insensitive SKU substring filter"},
	}
}

// initDB opens the pgx-backed pool when a database URL is present.
func initDB(c *cli.Context) error {
	dsn := c.String("db-url")
	if dsn == "" {
		return nil
	}

	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := sqlDB.PingContext(c.Context); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	db := postgres.FromSQL(sqlDB, "pgx")
	if err := db.Migrate(c.Context); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db := dbFrom(c); db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) *postgres.DB {
	db, _ := c.Context.Value(dbKey).(*postgres.DB)
	return db
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.SetLevel(cfg.App.LogLevel)

	app := &cli.App{
		Name:  "planner",
		Usage: "Compute, seed and export inventory reorder plans",
		Commands: []*cli.Command{
			{
				Name:   "compute",
				Usage:  "Print KPIs and the reorder table",
				Flags:  newInputFlags(),
				Action: func(c *cli.Context) error { return runCompute(c, cfg) },
			},
			{
				Name:  "seed",
				Usage: "Generate a dataset and store it in Postgres",
				Flags: []cli.Flag{
					newDBURLFlag(true),
					&cli.Uint64Flag{
						Name:    "seed",
						Usage:   "Generator seed (0 picks one from the clock)",
						EnvVars: []string{"PLANNER_SEED"},
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "Also write the generated dataset to this CSV file",
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error { return runSeed(c, cfg) },
			},
			{
				Name:  "export",
				Usage: "Write the reorder report as CSV or XLSX",
				Flags: append(newInputFlags(),
					&cli.StringFlag{Name: "format", Usage: "csv or xlsx", Value: "csv"},
					&cli.StringFlag{Name: "out", Usage: "Output file (defaults to stdout)"},
					&cli.BoolFlag{Name: "publish", Usage: "Upload the report to object storage"},
				),
				Action: func(c *cli.Context) error { return runExport(c, cfg) },
			},
			{
				Name:  "import-drive",
				Usage: "Import record files from a Google Drive folder",
				Flags: []cli.Flag{
					newDBURLFlag(false),
					&cli.StringFlag{
						Name:    "credentials",
						Usage:   "Service account credentials JSON",
						EnvVars: []string{"GOOGLE_DRIVE_CREDENTIALS_JSON"},
					},
					&cli.StringFlag{
						Name:    "folder-id",
						Usage:   "Drive folder id",
						EnvVars: []string{"GOOGLE_DRIVE_FOLDER_ID"},
					},
					&cli.StringFlag{
						Name:  "folder-path",
						Usage: "Drive folder path, resolved when no folder id is given",
					},
					&cli.StringFlag{
						Name:    "download-dir",
						Usage:   "Local directory for downloaded files",
						Value:   cfg.Drive.DownloadDir,
						EnvVars: []string{"GOOGLE_DRIVE_DOWNLOAD_DIR"},
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "Write the merged dataset to this CSV file",
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error { return runImportDrive(c) },
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("planner command failed")
	}
}

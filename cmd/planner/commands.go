package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/reorder-planner/internal/config"
	"github.com/andresuchdata/reorder-planner/internal/domain"
	"github.com/andresuchdata/reorder-planner/internal/drive"
	"github.com/andresuchdata/reorder-planner/internal/export"
	"github.com/andresuchdata/reorder-planner/internal/forecast"
	"github.com/andresuchdata/reorder-planner/internal/generator"
	"github.com/andresuchdata/reorder-planner/internal/ingest"
	"github.com/andresuchdata/reorder-planner/internal/repository/postgres"
	"github.com/andresuchdata/reorder-planner/internal/service"
	"github.com/andresuchdata/reorder-planner/internal/state"
	"github.com/andresuchdata/reorder-planner/internal/storage"
	"github.com/andresuchdata/reorder-planner/pkg/logger"
)

var cmdLog = logger.Component("planner-cli")

func simulationFromFlags(c *cli.Context, cfg *config.Config) domain.SimulationParameters {
	params := cfg.Planner.DefaultParams()
	if c.IsSet("month") {
		params.Month = c.Int("month")
	}
	if c.IsSet("day") {
		params.Day = c.Int("day")
	}
	if c.IsSet("growth") {
		params.GrowthPct = c.Float64("growth")
	}
	if c.IsSet("safety") {
		params.SafetyPct = c.Float64("safety")
	}
	return state.ClampSimulation(params)
}

func filterFromFlags(c *cli.Context) domain.InventoryFilter {
	return domain.InventoryFilter{
		Region: strings.ToUpper(c.String("region")),
		Search: c.String("search"),
	}
}

// buildStore loads records from --csv or the generator and computes the first snapshot.
func buildStore(c *cli.Context, cfg *config.Config) (*state.Store, error) {
	gen := generator.New(c.Uint64("seed"), cfg.Planner.Regions.Regions())

	var ds domain.Dataset
	if path := c.String("csv"); path != "" {
		loaded, err := ingest.ReadFile(path)
		if err != nil {
			return nil, err
		}
		ds = loaded
	} else {
		ds = gen.Generate()
		cmdLog.Debug().Uint64("seed", gen.Seed()).Msg("generated dataset")
	}

	calc := forecast.NewCalculator(cfg.Planner.Regions)
	return state.NewStore(calc, ds, simulationFromFlags(c, cfg), state.Options{
		Workers:   cfg.Planner.RecomputeWorkers,
		Generator: gen,
	})
}

func runCompute(c *cli.Context, cfg *config.Config) error {
	store, err := buildStore(c, cfg)
	if err != nil {
		return err
	}

	snap := store.Snapshot()
	filter := filterFromFlags(c)
	items := snap.Filter(filter)
	printTable(c.App.Writer, snap.Params, items, state.ComputeKPIs(items))
	return nil
}

func printTable(out io.Writer, params domain.SimulationParameters, items []domain.EnrichedRecord, kpis domain.KPISummary) {
	fmt.Fprintf(out, "date: %s %d  growth: %.1f%%  safety: %.1f%%\n",
		domain.MonthNames[params.Month], params.Day, params.GrowthPct, params.SafetyPct)
	fmt.Fprintf(out, "to order: %d  stockout risk: %d  warning: %d  healthy: %d  total: %d\n\n",
		kpis.ToOrder, kpis.StockoutRisk, kpis.Warning, kpis.Healthy, kpis.Total)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SKU\tREGION\tSTATUS\tNET\tROP\tFORECAST\tGROWTH\tORDER")
	for _, r := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.2f\t%.2f\t%.3f\t%d\n",
			r.SKUID, r.Region, string(r.Status), r.NetAvailability, r.ROP, r.Forecast, r.GrowthFactor, r.SuggestedOrder)
	}
	_ = tw.Flush()
}

func runSeed(c *cli.Context, cfg *config.Config) error {
	db := dbFrom(c)
	if db == nil {
		return fmt.Errorf("database connection is required")
	}

	gen := generator.New(c.Uint64("seed"), cfg.Planner.Regions.Regions())
	ds := gen.Generate()

	if err := postgres.NewDatasetRepository(db).Save(c.Context, ds); err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}
	cmdLog.Info().Uint64("seed", gen.Seed()).Int("skus", len(ds.SKUs)).Int("records", len(ds.Records)).Msg("Database seeding completed")

	if out := c.String("out"); out != "" {
		return writeDatasetFile(out, ds)
	}
	return nil
}

func runExport(c *cli.Context, cfg *config.Config) error {
	format, err := export.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}

	store, err := buildStore(c, cfg)
	if err != nil {
		return err
	}

	var objects storage.ObjectStorage
	if c.Bool("publish") {
		objects, err = objectStorage(c, cfg)
		if err != nil {
			return err
		}
	}

	planner := service.NewPlannerService(store, nil, nil, objects, service.Options{ReportPrefix: cfg.Storage.Prefix})
	defer planner.Close()

	filter := filterFromFlags(c)

	if c.Bool("publish") {
		key, err := planner.PublishReport(c.Context, filter, format)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, key)
		return nil
	}

	out := c.App.Writer
	if path := c.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		out = f
	}
	return planner.Export(out, filter, format)
}

func objectStorage(c *cli.Context, cfg *config.Config) (storage.ObjectStorage, error) {
	if !cfg.Storage.Enabled {
		return storage.NewLocalStorage(cfg.App.ReportDir), nil
	}
	client, err := storage.NewMinioClient(cfg.Storage)
	if err != nil {
		return nil, err
	}
	if err := client.EnsureBucket(c.Context); err != nil {
		return nil, err
	}
	return client, nil
}

func runImportDrive(c *cli.Context) error {
	creds := c.String("credentials")
	if creds == "" {
		return fmt.Errorf("drive credentials are required")
	}

	svc, err := drive.NewService(c.Context, creds)
	if err != nil {
		return err
	}

	folderID := c.String("folder-id")
	if folderID == "" {
		path := c.String("folder-path")
		if path == "" {
			return fmt.Errorf("either --folder-id or --folder-path is required")
		}
		if folderID, err = svc.FindFolderByPath(c.Context, path); err != nil {
			return err
		}
	}

	ds, err := drive.NewImporter(svc).ImportFolder(c.Context, drive.DownloadOptions{
		FolderID:    folderID,
		DownloadDir: c.String("download-dir"),
	})
	if err != nil {
		return err
	}
	cmdLog.Info().Str("folder_id", folderID).Int("skus", len(ds.SKUs)).Int("records", len(ds.Records)).Msg("Drive import finished")

	saved := false
	if db := dbFrom(c); db != nil {
		if err := postgres.NewDatasetRepository(db).Save(c.Context, ds); err != nil {
			return fmt.Errorf("failed to save dataset: %w", err)
		}
		saved = true
	}
	if out := c.String("out"); out != "" {
		return writeDatasetFile(out, ds)
	}
	if !saved {
		return ingest.WriteCSV(c.App.Writer, ds)
	}
	return nil
}

func writeDatasetFile(path string, ds domain.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := ingest.WriteCSV(f, ds); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

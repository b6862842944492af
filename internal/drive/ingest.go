package drive

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/reorder-planner/internal/domain"
	"github.com/andresuchdata/reorder-planner/internal/ingest"
)

// Importer turns a Drive folder of record files into one dataset.
type Importer struct {
	source     FileSource
	downloader *Downloader
}

func NewImporter(source FileSource) *Importer {
	return &Importer{source: source, downloader: NewDownloader(source)}
}

// ImportFile streams one CSV file from Drive straight into the CSV reader.
func (i *Importer) ImportFile(ctx context.Context, fileID string) (domain.Dataset, error) {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(i.source.DownloadFile(ctx, fileID, pw))
	}()

	ds, err := ingest.ReadCSV(pr)
	// unblock the writer if the reader stopped early
	_ = pr.CloseWithError(io.ErrClosedPipe)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("import drive file %s: %w", fileID, err)
	}
	return ds, nil
}

// ImportFolder downloads every CSV/XLSX file in the folder and merges them. Later
// files (by name) override records and SKUs with the same identity.
func (i *Importer) ImportFolder(ctx context.Context, opts DownloadOptions) (domain.Dataset, error) {
	paths, err := i.downloader.DownloadFolderCSV(ctx, opts)
	if err != nil {
		return domain.Dataset{}, err
	}
	if len(paths) == 0 {
		return domain.Dataset{}, fmt.Errorf("no csv or xlsx files in drive folder %s", opts.FolderID)
	}

	parts := make([]domain.Dataset, 0, len(paths))
	for _, p := range paths {
		ds, err := ingest.ReadFile(p)
		if err != nil {
			return domain.Dataset{}, err
		}
		log.Info().Str("file", p).Int("records", len(ds.Records)).Msg("drive: parsed record file")
		parts = append(parts, ds)
	}
	return mergeDatasets(parts...), nil
}

func mergeDatasets(parts ...domain.Dataset) domain.Dataset {
	var out domain.Dataset
	skuIdx := make(map[string]int)
	recIdx := make(map[domain.RecordKey]int)

	for _, ds := range parts {
		for _, s := range ds.SKUs {
			if i, ok := skuIdx[s.ID]; ok {
				out.SKUs[i] = s
				continue
			}
			skuIdx[s.ID] = len(out.SKUs)
			out.SKUs = append(out.SKUs, s)
		}
		for _, r := range ds.Records {
			if i, ok := recIdx[r.Key()]; ok {
				out.Records[i] = r
				continue
			}
			recIdx[r.Key()] = len(out.Records)
			out.Records = append(out.Records, r)
		}
	}
	return out
}

package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/reorder-planner/internal/domain"
	"github.com/andresuchdata/reorder-planner/internal/ingest"
)

type fakeSource struct {
	files    []*File
	contents map[string][]byte
}

func (f *fakeSource) ListFiles(_ context.Context, _ string) ([]*File, error) {
	return f.files, nil
}

func (f *fakeSource) DownloadFile(_ context.Context, id string, w io.Writer) error {
	data, ok := f.contents[id]
	if !ok {
		return fmt.Errorf("file %s not found", id)
	}
	_, err := w.Write(data)
	return err
}

func recordCSV(t *testing.T, ds domain.Dataset) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, ingest.WriteCSV(&buf, ds))
	return buf.Bytes()
}

func recordXLSX(t *testing.T, ds domain.Dataset) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	lines := strings.Split(strings.TrimSpace(string(recordCSV(t, ds))), "\n")
	for i, line := range lines {
		cells := strings.Split(line, ",")
		row := make([]interface{}, len(cells))
		for j, c := range cells {
			row[j] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func dataset(sku string, moq int, region string, stock int) domain.Dataset {
	history := make([]float64, domain.MonthsPerYear)
	for i := range history {
		history[i] = float64(10 + i)
	}
	return domain.Dataset{
		SKUs: []domain.SKU{{ID: sku, MOQ: moq}},
		Records: []domain.InventoryRecord{{
			SKUID: sku, Region: region, CurrentStock: stock, History: history,
			RecentHistory: domain.NoRecentHistory(),
		}},
	}
}

func TestDownloader_DownloadFolderCSV(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		files: []*File{
			{ID: "1", Name: "a.csv"},
			{ID: "2", Name: "b.xlsx"},
			{ID: "3", Name: "notes.txt"},
		},
		contents: map[string][]byte{
			"1": recordCSV(t, dataset("A", 10, "US", 5)),
			"2": recordXLSX(t, dataset("B", 20, "UK", 6)),
			"3": []byte("ignored"),
		},
	}

	dir := t.TempDir()
	paths, err := NewDownloader(src).DownloadFolderCSV(context.Background(), DownloadOptions{DownloadDir: dir})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.csv")}, paths)

	_, err = os.Stat(filepath.Join(dir, "b.xlsx"))
	assert.True(t, os.IsNotExist(err))

	converted, err := ingest.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, dataset("B", 20, "UK", 6), converted)

	_, err = NewDownloader(src).DownloadFolderCSV(context.Background(), DownloadOptions{})
	assert.Error(t, err)
}

func TestImporter_ImportFolder(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		files: []*File{{ID: "1", Name: "01.csv"}, {ID: "2", Name: "02.csv"}},
		contents: map[string][]byte{
			"1": recordCSV(t, dataset("A", 10, "US", 5)),
			"2": recordCSV(t, dataset("A", 15, "US", 99)),
		},
	}

	ds, err := NewImporter(src).ImportFolder(context.Background(), DownloadOptions{DownloadDir: t.TempDir()})
	require.NoError(t, err)
	require.Len(t, ds.SKUs, 1)
	require.Len(t, ds.Records, 1)
	assert.Equal(t, 15, ds.SKUs[0].MOQ)
	assert.Equal(t, 99, ds.Records[0].CurrentStock)

	empty := &fakeSource{}
	_, err = NewImporter(empty).ImportFolder(context.Background(), DownloadOptions{DownloadDir: t.TempDir()})
	assert.ErrorContains(t, err, "no csv or xlsx files")
}

func TestImporter_ImportFile(t *testing.T) {
	t.Parallel()

	want := dataset("C", 25, "DE", 1)
	src := &fakeSource{contents: map[string][]byte{"x": recordCSV(t, want)}}

	got, err := NewImporter(src).ImportFile(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = NewImporter(src).ImportFile(context.Background(), "missing")
	assert.Error(t, err)
}

func TestMergeDatasets(t *testing.T) {
	t.Parallel()

	a := dataset("A", 10, "US", 1)
	b := dataset("B", 20, "UK", 2)
	a2 := dataset("A", 30, "DE", 3)

	out := mergeDatasets(a, b, a2)
	assert.Len(t, out.SKUs, 2)
	assert.Equal(t, 30, out.SKUs[0].MOQ)
	assert.Len(t, out.Records, 3)
}

func TestEscapeQuery(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `Bob\'s \\ files`, escapeQuery(`Bob's \ files`))
}

package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/fintx/internal/formatter"
	"github.com/desertthunder/fintx/internal/models"
	"github.com/desertthunder/fintx/internal/shared"
)

// BulkExportOpts contains configuration for exporting transactions to files.
type BulkExportOpts struct {
	Formats   []string   // Export formats: csv, markdown, txt, json (default: all)
	OutputDir string     // Base output directory (default: fintx_export_{epoch})
	Export    ExportOpts // Paging options for fetching the transactions
}

// BulkExportResult describes a completed export.
type BulkExportResult struct {
	Total           int
	Pages           int
	OutputDirectory string
	ManifestPath    string
	Results         []formatter.FormatResult
}

// Failed returns the formats that could not be written.
func (r *BulkExportResult) Failed() []formatter.FormatResult {
	var failed []formatter.FormatResult
	for _, res := range r.Results {
		if res.Error != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// BulkExport fetches every transaction through lister and writes each requested format concurrently.
//
// A format that fails to write is reported in the manifest without stopping the others.
func BulkExport(ctx context.Context, lister Lister[models.Transaction], opts BulkExportOpts, progress chan<- ProgressUpdate) (*BulkExportResult, error) {
	if len(opts.Formats) == 0 {
		opts.Formats = formatter.Formats
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("fintx_export_%d", time.Now().Unix())
	}
	if opts.Export.Name == "" {
		opts.Export.Name = "transactions"
	}
	for _, f := range opts.Formats {
		if !validFormat(f) {
			return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, f)
		}
	}

	exported, err := ExportAll(ctx, lister, opts.Export, progress)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	export := formatter.NewExport(opts.Export.Name, exported.Items)
	result := &BulkExportResult{
		Total:           len(exported.Items),
		Pages:           exported.Pages,
		OutputDirectory: opts.OutputDir,
		Results:         make([]formatter.FormatResult, len(opts.Formats)),
	}

	total := len(opts.Formats)
	var wg sync.WaitGroup
	for i, format := range opts.Formats {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sendProgress(progress, writeStartedUpdate(i+1, total, format))

			files, err := formatter.Write(export, format, opts.OutputDir)
			result.Results[i] = formatter.FormatResult{Format: format, Files: files, Error: err}
			if err != nil {
				sendProgress(progress, writeFailedUpdate(i+1, total, format, err))
				return
			}
			sendProgress(progress, writeCompletedUpdate(i+1, total, format, len(files)))
		}()
	}
	wg.Wait()

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	manifest := formatter.Manifest{
		Name:            opts.Export.Name,
		Total:           result.Total,
		Pages:           result.Pages,
		OutputDirectory: opts.OutputDir,
		Results:         result.Results,
	}
	if err := formatter.WriteManifest(manifest, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	sendProgress(progress, completeUpdate(result.Total, manifestPath))
	return result, nil
}

func validFormat(format string) bool {
	for _, f := range formatter.Formats {
		if f == format {
			return true
		}
	}
	return false
}

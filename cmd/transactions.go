package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/fintx/internal/models"
	"github.com/desertthunder/fintx/internal/query"
	"github.com/desertthunder/fintx/internal/services"
	"github.com/desertthunder/fintx/internal/shared"
	"github.com/desertthunder/fintx/internal/tasks"
	"github.com/desertthunder/fintx/internal/ui"
	"github.com/urfave/cli/v3"
)

// ApproveTransaction marks a transaction approved.
func (r *Runner) ApproveTransaction(ctx context.Context, cmd *cli.Command) error {
	return r.reviewTransaction(ctx, cmd, (*services.FinanceAPI).Approve, "approved")
}

// RejectTransaction marks a transaction rejected.
func (r *Runner) RejectTransaction(ctx context.Context, cmd *cli.Command) error {
	return r.reviewTransaction(ctx, cmd, (*services.FinanceAPI).Reject, "rejected")
}

type reviewFunc func(f *services.FinanceAPI, ctx context.Context, id, reason string) (models.Transaction, error)

func (r *Runner) reviewTransaction(ctx context.Context, cmd *cli.Command, review reviewFunc, verb string) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}

	finance, err := r.financeAPI()
	if err != nil {
		return err
	}

	tx, err := review(finance, ctx, id, cmd.String("reason"))
	if err != nil {
		return fmt.Errorf("failed to review transaction %s: %w", id, err)
	}

	r.logger.Info("transaction "+verb, "id", id)
	if cmd.Bool("json") {
		return r.writeJSON(tx, true)
	}
	return r.writePlain("%s transaction %s %s\n", ui.Styles.OK("✓"), id, verb)
}

// TransactionSummary prints income, expense and net totals for an optional date range.
func (r *Runner) TransactionSummary(ctx context.Context, cmd *cli.Command) error {
	from, err := parseDate(cmd.String("from"))
	if err != nil {
		return err
	}
	to, err := parseDate(cmd.String("to"))
	if err != nil {
		return err
	}
	if from != nil && to != nil && to.Before(*from) {
		return fmt.Errorf("%w: --to is before --from", shared.ErrInvalidArgument)
	}

	finance, err := r.financeAPI()
	if err != nil {
		return err
	}

	summary, err := finance.Summary(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to fetch summary: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(summary, true)
	}
	return r.writePlain("%s\n", ui.Summary(summary))
}

// ExportTransactions fetches every page of transactions and writes them in each requested format.
func (r *Runner) ExportTransactions(ctx context.Context, cmd *cli.Command) error {
	filter, err := parseFilters(cmd.StringSlice("filter"))
	if err != nil {
		return err
	}

	finance, err := r.financeAPI()
	if err != nil {
		return err
	}

	var params query.Params
	if search := cmd.String("search"); search != "" {
		params = params.Set("search", search)
	}
	if len(filter) > 0 {
		params = params.Set("filter", filter)
	}

	opts := tasks.BulkExportOpts{
		Formats:   cmd.StringSlice("format"),
		OutputDir: cmd.String("output"),
		Export: tasks.ExportOpts{
			Name:      cmd.String("name"),
			PageSize:  cmd.Int("page-size"),
			Workers:   cmd.Int("workers"),
			RateLimit: r.config.API.RateLimit,
			Params:    params,
		},
	}

	var (
		progress chan tasks.ProgressUpdate
		wg       sync.WaitGroup
	)
	if !cmd.Bool("quiet") {
		progress = make(chan tasks.ProgressUpdate, 32)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for update := range progress {
				r.writePlain("%s\n", ui.Progress(update))
			}
		}()
	}

	result, err := tasks.BulkExport(ctx, finance.Transactions, opts, progress)
	if progress != nil {
		close(progress)
		wg.Wait()
	}
	if err != nil {
		return err
	}

	r.writePlainHeader("Export Complete")
	r.writePlain("Transactions: %d (%d pages)\n", result.Total, result.Pages)
	r.writePlain("Output: %s\n", result.OutputDirectory)
	r.writePlain("Manifest: %s\n", result.ManifestPath)

	failed := result.Failed()
	for _, f := range failed {
		r.writePlain("%s %s: %v\n", ui.Styles.Err("✗"), f.Format, f.Error)
	}
	if len(failed) > 0 && len(failed) == len(result.Results) {
		names := make([]string, len(failed))
		for i, f := range failed {
			names[i] = f.Format
		}
		return fmt.Errorf("every format failed: %s", strings.Join(names, ", "))
	}
	return nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q must be YYYY-MM-DD", shared.ErrInvalidArgument, s)
	}
	return &t, nil
}

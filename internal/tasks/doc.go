// Package tasks runs long finance operations with real-time progress reporting.
//
// # Paged Export
//
// [ExportAll] reads a whole collection through any [Lister] (api.CRUD satisfies it). The first page
// reveals the total; the remaining pages are fetched concurrently through an errgroup bounded by
// [ExportOpts.Workers] and paced by an optional rate limit. Results are reassembled in page order and
// records repeated across pages are dropped by id.
//
// [BulkExport] builds on it to write transactions in every requested format (see the formatter
// package) plus an export_manifest.json describing each file.
//
// # Progress Reporting
//
// Operations accept a send-only [ProgressUpdate] channel, which may be nil. Sends use select with
// default so a slow reader never blocks an export; updates may be dropped when the channel is full.
package tasks

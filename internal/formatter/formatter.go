// package formatter renders transaction exports as CSV, Markdown, plain text or JSON and writes them to disk
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/desertthunder/fintx/internal/models"
	"github.com/desertthunder/fintx/internal/shared"
	"github.com/shopspring/decimal"
)

// Supported export formats.
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
	FormatJSON     = "json"
)

// Formats lists every supported format.
var Formats = []string{FormatCSV, FormatMarkdown, FormatText, FormatJSON}

// Export is a named set of transactions with its totals.
type Export struct {
	Name         string               `json:"name"`
	GeneratedAt  time.Time            `json:"generated_at"`
	Summary      models.Summary       `json:"summary"`
	Transactions []models.Transaction `json:"transactions"`
}

// NewExport summarizes txs under name.
func NewExport(name string, txs []models.Transaction) *Export {
	return &Export{
		Name:         name,
		GeneratedAt:  time.Now().UTC(),
		Summary:      models.Summarize(txs, nil, nil),
		Transactions: txs,
	}
}

// BaseName returns a filesystem-safe version of the export name, "transactions" when empty.
func (e *Export) BaseName() string {
	var b strings.Builder
	for _, r := range strings.ToLower(e.Name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "transactions"
	}
	return b.String()
}

// ExportToCSV converts transactions to CSV with columns: ID, Date, Description, Type, Category, Amount, Status, Notes
func ExportToCSV(export *Export) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Date", "Description", "Type", "Category", "Amount", "Status", "Notes"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, tx := range export.Transactions {
		record := []string{
			tx.GetID(),
			tx.Date.Format(time.DateOnly),
			tx.Description,
			string(tx.Type),
			tx.CategoryID,
			money(tx.Amount),
			string(tx.Status),
			tx.Notes,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders a heading, the totals and a transaction table
func ExportToMarkdown(export *Export) ([]byte, error) {
	var buf bytes.Buffer
	s := export.Summary

	fmt.Fprintf(&buf, "# %s\n\n", titleOf(export))
	fmt.Fprintf(&buf, "**Transactions**: %d\n", s.Count)
	fmt.Fprintf(&buf, "**Income**: %s\n", money(s.Income))
	fmt.Fprintf(&buf, "**Expense**: %s\n", money(s.Expense))
	fmt.Fprintf(&buf, "**Net**: %s\n\n", money(s.Net))

	if len(s.ByCategory) > 0 {
		buf.WriteString("## By Category\n\n")
		for _, cat := range sortedCategories(s.ByCategory) {
			name := cat
			if name == "" {
				name = "uncategorized"
			}
			fmt.Fprintf(&buf, "- %s: %s\n", name, money(s.ByCategory[cat]))
		}
		buf.WriteString("\n")
	}

	buf.WriteString("## Transactions\n\n")
	buf.WriteString("| Date | Description | Type | Amount | Status |\n")
	buf.WriteString("|------|-------------|------|-------:|--------|\n")
	for _, tx := range export.Transactions {
		fmt.Fprintf(&buf, "| %s | %s | %s | %s | %s |\n",
			tx.Date.Format(time.DateOnly),
			strings.ReplaceAll(tx.Description, "|", `\|`),
			tx.Type,
			money(tx.Amount),
			statusOf(tx),
		)
	}

	return buf.Bytes(), nil
}

// ExportToText converts transactions to one line each, followed by the totals
func ExportToText(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Export: %s\n", titleOf(export))
	fmt.Fprintf(&buf, "Transactions: %d\n\n", len(export.Transactions))

	for i, tx := range export.Transactions {
		fmt.Fprintf(&buf, "%d. %s %-7s %10s  %s [%s]\n",
			i+1, tx.Date.Format(time.DateOnly), tx.Type, money(tx.Signed()), tx.Description, statusOf(tx))
	}

	s := export.Summary
	fmt.Fprintf(&buf, "\nIncome: %s\nExpense: %s\nNet: %s\n", money(s.Income), money(s.Expense), money(s.Net))
	return buf.Bytes(), nil
}

// ExportToJSON encodes the whole export, indented
func ExportToJSON(export *Export) ([]byte, error) {
	return shared.MarshalJSON(export, true)
}

// ToSummaryJSON generates a JSON representation of the export totals (without transactions)
func ToSummaryJSON(s models.Summary) ([]byte, error) {
	return shared.MarshalJSON(s, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TransactionsFile string
	SummaryFile      string
}

// WriteCSVExport exports transactions to CSV with an accompanying summary JSON file.
//
// Defaults to [Export.BaseName] as the base filename & creates {base}_transactions.csv and {base}_summary.json
func WriteCSVExport(export *Export, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.BaseName()
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	transactionsFile := baseFilepath + "_transactions.csv"
	if err := os.WriteFile(transactionsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	summaryJSON, err := ToSummaryJSON(export.Summary)
	if err != nil {
		return nil, fmt.Errorf("failed to generate summary JSON: %w", err)
	}

	summaryFile := baseFilepath + "_summary.json"
	if err := os.WriteFile(summaryFile, summaryJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write summary file: %w", err)
	}

	return &CSVExportResult{
		TransactionsFile: transactionsFile,
		SummaryFile:      summaryFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
}

// WriteMarkdownExport writes {dir}/README.md. Directory name defaults to [Export.BaseName].
func WriteMarkdownExport(export *Export, outputDir string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = export.BaseName()
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	mdData, err := ExportToMarkdown(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return &MarkdownExportResult{Directory: outputDir, Files: []string{mdFile}}, nil
}

// WriteTextExport exports transactions to plain text.
//
// Defaults to {base}_transactions.txt as the filename.
func WriteTextExport(export *Export, path string) (string, error) {
	if path == "" {
		path = export.BaseName() + "_transactions.txt"
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport writes the export as indented JSON, defaulting to {base}.json.
func WriteJSONExport(export *Export, path string) (string, error) {
	if path == "" {
		path = export.BaseName() + ".json"
	}

	data, err := ExportToJSON(export)
	if err != nil {
		return "", fmt.Errorf("JSON marshal failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("JSON write failed: %w", err)
	}
	return path, nil
}

// Write exports in format under dir and returns the files created.
func Write(export *Export, format, dir string) ([]string, error) {
	base := filepath.Join(dir, export.BaseName())

	switch format {
	case FormatCSV:
		res, err := WriteCSVExport(export, base)
		if err != nil {
			return nil, err
		}
		return []string{res.TransactionsFile, res.SummaryFile}, nil
	case FormatMarkdown:
		res, err := WriteMarkdownExport(export, base)
		if err != nil {
			return nil, err
		}
		return res.Files, nil
	case FormatText:
		path, err := WriteTextExport(export, base+"_transactions.txt")
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	case FormatJSON:
		path, err := WriteJSONExport(export, base+".json")
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// Manifest summarizes a bulk export run.
type Manifest struct {
	Name            string
	Total           int
	Pages           int
	OutputDirectory string
	Results         []FormatResult
}

// FormatResult is the outcome of writing one format.
type FormatResult struct {
	Format string
	Files  []string
	Error  error
}

// WriteManifest writes m as JSON to path.
func WriteManifest(m Manifest, path string) error {
	type entry struct {
		Format string   `json:"format"`
		Status string   `json:"status"`
		Files  []string `json:"files,omitempty"`
		Error  string   `json:"error,omitempty"`
	}

	entries := make([]entry, 0, len(m.Results))
	succeeded := 0
	for _, r := range m.Results {
		e := entry{Format: r.Format, Status: "success", Files: r.Files}
		if r.Error != nil {
			e.Status = "failed"
			e.Error = r.Error.Error()
		} else {
			succeeded++
		}
		entries = append(entries, e)
	}

	manifest := struct {
		Name              string    `json:"name"`
		ExportedAt        time.Time `json:"exported_at"`
		TotalTransactions int       `json:"total_transactions"`
		Pages             int       `json:"pages"`
		OutputDirectory   string    `json:"output_directory"`
		SuccessfulFormats int       `json:"successful_formats"`
		FailedFormats     int       `json:"failed_formats"`
		Results           []entry   `json:"results"`
	}{
		Name:              m.Name,
		ExportedAt:        time.Now().UTC(),
		TotalTransactions: m.Total,
		Pages:             m.Pages,
		OutputDirectory:   m.OutputDirectory,
		SuccessfulFormats: succeeded,
		FailedFormats:     len(entries) - succeeded,
		Results:           entries,
	}

	data, err := shared.MarshalJSON(manifest, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func titleOf(export *Export) string {
	if export.Name == "" {
		return "Transactions"
	}
	return export.Name
}

func statusOf(tx models.Transaction) string {
	if tx.Status == "" {
		return string(models.StatusPending)
	}
	return string(tx.Status)
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func sortedCategories(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

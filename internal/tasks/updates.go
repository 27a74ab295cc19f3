package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchFirstPage Phase = iota
	FetchPages
	WriteFiles
	Complete
)

func (p Phase) String() string {
	switch p {
	case FetchFirstPage:
		return "fetch_first_page"
	case FetchPages:
		return "fetch_pages"
	case WriteFiles:
		return "write_files"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func firstPageUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchFirstPage,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching first page of %s...", name),
	}
}

func pagesFoundUpdate(name string, pages, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPages,
		Step:    1,
		Total:   pages,
		Message: fmt.Sprintf("Found %d %s across %d pages", total, name, pages),
	}
}

func pageFetchedUpdate(step, pages, page int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPages,
		Step:    step,
		Total:   pages,
		Message: fmt.Sprintf("[%d/%d] Fetched page %d", step, pages, page),
		Data:    page,
	}
}

func writeStartedUpdate(step, total int, format string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteFiles,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Writing %s...", step, total, format),
	}
}

func writeCompletedUpdate(step, total int, format string, files int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteFiles,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, format, files),
	}
}

func writeFailedUpdate(step, total int, format string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteFiles,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, format, err),
	}
}

func completeUpdate(items int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Exported %d records, manifest at %s", items, path),
		Data:    path,
	}
}

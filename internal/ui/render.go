package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/fintx/internal/api"
	"github.com/desertthunder/fintx/internal/cache"
	"github.com/desertthunder/fintx/internal/models"
	"github.com/desertthunder/fintx/internal/tasks"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	amountStyle = cellStyle.Align(lipgloss.Right)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(NewStyle("#626262")).
		Headers(headers...)
}

// Transactions renders a transaction table with a paging footer.
func Transactions(page *models.Page[models.Transaction]) string {
	t := newTable("ID", "Date", "Description", "Type", "Amount", "Status")
	for _, tx := range page.Data {
		t.Row(tx.GetID(), tx.Date.Format(time.DateOnly), tx.Description, string(tx.Type), tx.Signed().StringFixed(2), string(tx.Status))
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if col == 4 {
			return amountStyle
		}
		return cellStyle
	})
	return t.String() + "\n" + footer(page.Page, page.Pages(), page.Total)
}

// Categories renders a category table.
func Categories(page *models.Page[models.Category]) string {
	t := newTable("ID", "Name", "Type", "Color", "Icon")
	for _, c := range page.Data {
		t.Row(c.GetID(), c.Name, string(c.Type), c.Color, c.Icon)
	}
	t.StyleFunc(plainStyle)
	return t.String() + "\n" + footer(page.Page, page.Pages(), page.Total)
}

// Budgets renders a budget table including the remaining amount.
func Budgets(page *models.Page[models.Budget]) string {
	t := newTable("ID", "Name", "Category", "Limit", "Spent", "Remaining", "Period")
	for _, b := range page.Data {
		remaining := b.Remaining().StringFixed(2)
		if b.Remaining().IsNegative() {
			remaining = Styles.Err(remaining)
		}
		t.Row(b.GetID(), b.Name, b.CategoryID, b.Limit.StringFixed(2), b.Spent.StringFixed(2), remaining, string(b.Period))
	}
	t.StyleFunc(plainStyle)
	return t.String() + "\n" + footer(page.Page, page.Pages(), page.Total)
}

// Plans renders a savings plan table with progress percentages.
func Plans(page *models.Page[models.Plan]) string {
	t := newTable("ID", "Name", "Target", "Saved", "Progress", "Deadline")
	for _, p := range page.Data {
		deadline := "-"
		if p.Deadline != nil {
			deadline = p.Deadline.Format(time.DateOnly)
		}
		t.Row(p.GetID(), p.Name, p.Target.StringFixed(2), p.Saved.StringFixed(2), fmt.Sprintf("%.0f%%", p.Progress()*100), deadline)
	}
	t.StyleFunc(plainStyle)
	return t.String() + "\n" + footer(page.Page, page.Pages(), page.Total)
}

// Summary renders income, expense and net totals followed by per-category amounts.
func Summary(s *models.Summary) string {
	var b strings.Builder

	period := "all time"
	switch {
	case s.From != nil && s.To != nil:
		period = s.From.Format(time.DateOnly) + " to " + s.To.Format(time.DateOnly)
	case s.From != nil:
		period = "since " + s.From.Format(time.DateOnly)
	case s.To != nil:
		period = "until " + s.To.Format(time.DateOnly)
	}

	b.WriteString(Styles.Title(fmt.Sprintf("Summary (%s)", period)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Transactions: %d\n", s.Count)
	fmt.Fprintf(&b, "Income:  %s\n", Styles.OK(s.Income.StringFixed(2)))
	fmt.Fprintf(&b, "Expense: %s\n", Styles.Err(s.Expense.StringFixed(2)))

	net := s.Net.StringFixed(2)
	if s.Net.IsNegative() {
		net = Styles.Err(net)
	} else {
		net = Styles.OK(net)
	}
	fmt.Fprintf(&b, "Net:     %s\n", net)

	if len(s.ByCategory) == 0 {
		return b.String()
	}

	cats := make([]string, 0, len(s.ByCategory))
	for c := range s.ByCategory {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	t := newTable("Category", "Net")
	for _, c := range cats {
		name := c
		if name == "" {
			name = "uncategorized"
		}
		t.Row(name, s.ByCategory[c].StringFixed(2))
	}
	t.StyleFunc(plainStyle)
	b.WriteString("\n" + t.String() + "\n")
	return b.String()
}

// Endpoints renders the registered endpoint table.
func Endpoints(eps []api.Endpoint) string {
	t := newTable("Name", "Kind", "Method", "Mutation")
	for _, ep := range eps {
		mutation := ""
		if ep.Mutation {
			mutation = "yes"
		}
		t.Row(ep.Name, ep.Kind.String(), ep.Method(), mutation)
	}
	t.StyleFunc(plainStyle)
	return t.String()
}

// CacheStats renders the query cache counters.
func CacheStats(s cache.Stats) string {
	ratio := 0.0
	if total := s.Hits + s.Misses; total > 0 {
		ratio = float64(s.Hits) / float64(total) * 100
	}
	return fmt.Sprintf("Entries: %d\nTracked: %d\nHits: %d\nMisses: %d\nHit ratio: %.1f%%\n",
		s.Entries, s.Tracked, s.Hits, s.Misses, ratio)
}

// Progress renders one task progress update as a single line.
func Progress(u tasks.ProgressUpdate) string {
	prefix := Styles.Help(fmt.Sprintf("[%s]", u.Phase))
	if u.Phase == tasks.Complete {
		return prefix + " " + Styles.OK(u.Message)
	}
	return prefix + " " + u.Message
}

func footer(page, pages, total int) string {
	return Styles.Help(fmt.Sprintf("page %d of %d (%d total)", page, pages, total))
}

func plainStyle(row, _ int) lipgloss.Style {
	if row == table.HeaderRow {
		return headerStyle
	}
	return cellStyle
}

// Package ui renders CLI output with lipgloss: a shared colour [Palette] and table views for
// transactions, categories, budgets, plans, summaries, registered endpoints and task progress.
//
// Colours degrade to plain text when the output is not a terminal, so rendered strings are safe to
// pipe or compare in tests.
package ui

// Package ui renders command output widgets shared by the forge commands.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/forge-cli/forge/internal/sync"
)

// Table represents a simple table for displaying tabular data
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	noColor bool
}

// NewTable creates a new table with the given headers
func NewTable(w io.Writer, headers []string, noColor bool) *Table {
	return &Table{
		writer:  w,
		headers: headers,
		rows:    make([][]string, 0),
		noColor: noColor,
	}
}

// AddRow adds a row to the table
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render renders the table to the writer
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = len(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	bold := color.New(color.Bold, color.FgCyan)
	if t.noColor {
		bold.DisableColor()
	}
	for i, header := range t.headers {
		bold.Fprint(t.writer, padRight(header, widths[i]))
		if i < len(t.headers)-1 {
			fmt.Fprint(t.writer, "  ")
		}
	}
	fmt.Fprintln(t.writer)

	gray := color.New(color.FgHiBlack)
	if t.noColor {
		gray.DisableColor()
	}
	for i, width := range widths {
		gray.Fprint(t.writer, strings.Repeat("─", width))
		if i < len(widths)-1 {
			gray.Fprint(t.writer, "  ")
		}
	}
	fmt.Fprintln(t.writer)

	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprint(t.writer, padRight(cell, widths[i]))
				if i < len(row)-1 {
					fmt.Fprint(t.writer, "  ")
				}
			}
		}
		fmt.Fprintln(t.writer)
	}
}

// padRight pads a string with spaces on the right to reach the target width
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// RenderSyncSummary prints one row per model touched by a sync run:
// the accessors added, the ones already present, and models that were
// skipped for lack of a source file.
func RenderSyncSummary(w io.Writer, results []sync.Result, noColor bool) {
	table := NewTable(w, []string{"MODEL", "ADDED", "SKIPPED", "STATUS"}, noColor)
	for _, r := range results {
		status := "synced"
		if r.Err != nil {
			status = "write failed"
		} else if r.Missing {
			status = "no model file"
		} else if len(r.Added) == 0 {
			status = "up to date"
		}
		table.AddRow(r.Model, joinOrDash(r.Added), joinOrDash(r.Skipped), status)
	}
	table.Render()
}

func joinOrDash(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}

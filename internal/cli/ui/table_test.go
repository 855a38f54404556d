package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/forge-cli/forge/internal/sync"
)

func TestTable(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	table := NewTable(&buf, []string{"MODEL", "TABLE"}, true)

	table.AddRow("Post", "posts")
	table.AddRow("User", "users")

	table.Render()

	output := buf.String()

	for _, want := range []string{"MODEL", "TABLE", "Post", "posts", "User", "users"} {
		if !strings.Contains(output, want) {
			t.Errorf("table output missing %q:\n%s", want, output)
		}
	}

	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) != 4 {
		t.Errorf("expected header, separator, and two rows, got %d lines", len(lines))
	}
}

func TestTableColumnAlignment(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	table := NewTable(&buf, []string{"A", "B"}, true)
	table.AddRow("longvalue", "x")
	table.Render()

	lines := strings.Split(buf.String(), "\n")
	// The header cell is padded to the widest row value.
	if !strings.HasPrefix(lines[0], "A         ") {
		t.Errorf("expected padded header, got %q", lines[0])
	}
}

func TestRenderSyncSummary(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	RenderSyncSummary(&buf, []sync.Result{
		{Model: "Post", Added: []string{"User", "Tags"}},
		{Model: "User", Skipped: []string{"Posts"}},
		{Model: "Tag", Missing: true},
	}, true)

	output := buf.String()

	if !strings.Contains(output, "User, Tags") {
		t.Errorf("expected added accessors listed, got:\n%s", output)
	}
	if !strings.Contains(output, "up to date") {
		t.Errorf("expected up-to-date status for User, got:\n%s", output)
	}
	if !strings.Contains(output, "no model file") {
		t.Errorf("expected missing-file status for Tag, got:\n%s", output)
	}
}

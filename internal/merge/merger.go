// Package merge splices generated method declarations into existing model
// source files. Mutation is textual, anchored on the file's final closing
// brace, and idempotent: a method whose name already appears in the file is
// skipped rather than duplicated.
package merge

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNoAnchor is returned when the target file holds no closing brace
	// to anchor the insertion on.
	ErrNoAnchor = errors.New("no insertion anchor found")
)

// Method is one rendered accessor ready for injection.
type Method struct {
	Name   string // accessor name, used for the presence check
	Source string // rendered declaration, no surrounding blank lines
}

// Report says which methods were written and which were already present.
type Report struct {
	Added   []string
	Skipped []string
}

// Merge injects the given methods into the file at path. Every accepted
// method is appended after the file's final closing brace in one atomic
// write; trailing whitespace of the original file is preserved unchanged.
//
// The presence check is textual, not a parse: any occurrence of
// ") Name(" as a method declaration shape causes a skip, including one
// inside a comment. That conservatism is deliberate; a false skip is
// harmless, a duplicate declaration is not.
func Merge(path string, methods []Method) (Report, error) {
	var report Report

	original, err := os.ReadFile(path)
	if err != nil {
		return report, fmt.Errorf("failed to read %s: %w", path, err)
	}
	text := string(original)

	var accepted []Method
	for _, m := range methods {
		if methodDeclared(text, m.Name) {
			report.Skipped = append(report.Skipped, m.Name)
			continue
		}
		accepted = append(accepted, m)
		report.Added = append(report.Added, m.Name)
	}
	if len(accepted) == 0 {
		return report, nil
	}

	merged, err := splice(text, accepted)
	if err != nil {
		return Report{Skipped: report.Skipped}, err
	}

	if err := writeAtomic(path, []byte(merged)); err != nil {
		return Report{Skipped: report.Skipped}, err
	}
	return report, nil
}

// methodDeclared reports whether name already appears as a method
// declaration shape anywhere in the text.
func methodDeclared(text, name string) bool {
	re := regexp.MustCompile(`\)\s*` + regexp.QuoteMeta(name) + `\s*\(`)
	return re.MatchString(text)
}

// splice inserts the rendered methods after the final closing brace,
// keeping everything past it (normally just trailing newlines) intact.
func splice(text string, methods []Method) (string, error) {
	anchor := strings.LastIndexByte(text, '}')
	if anchor < 0 {
		return "", ErrNoAnchor
	}

	head := text[:anchor+1]
	tail := text[anchor+1:]

	var b strings.Builder
	b.WriteString(head)
	for _, m := range methods {
		b.WriteString("\n\n")
		b.WriteString(strings.TrimRight(m.Source, "\n"))
	}
	b.WriteString(tail)
	return b.String(), nil
}

// AppendInside inserts snippet on its own line immediately before the
// file's final closing brace, unless needle already occurs in the file.
// It reports whether a write happened. Used for route registrations and
// repository bindings, which live inside a function body.
func AppendInside(path, needle, snippet string) (bool, error) {
	original, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	text := string(original)
	if strings.Contains(text, needle) {
		return false, nil
	}

	anchor := strings.LastIndexByte(text, '}')
	if anchor < 0 {
		return false, ErrNoAnchor
	}

	head := strings.TrimRight(text[:anchor], " \t")
	var b strings.Builder
	b.WriteString(head)
	b.WriteString(snippet)
	b.WriteString("\n")
	b.WriteString(text[anchor:])

	if err := writeAtomic(path, []byte(b.String())); err != nil {
		return false, err
	}
	return true, nil
}

// writeAtomic writes through a temp file in the same directory and renames
// it over the target, so a failed write never leaves a half-merged file.
func writeAtomic(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	tmp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	if err := os.WriteFile(tmp, data, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

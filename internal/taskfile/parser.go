// Package taskfile parses the Markdown task-file checklist format and
// schedules runnable batches over it (spec.md §4.3.1, §4.3.2).
package taskfile

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// TaskEntry is one parsed checklist line.
type TaskEntry struct {
	Number       string // dotted numeric identifier, exact string preserved
	Title        string
	Completed    bool
	IndentLevel  int
	Dependencies []string // possibly empty; possibly unsatisfiable references
}

// lineRe recognizes "- [ ] 1.2. some title [deps: 1, 2]", capturing
// leading whitespace, checkbox state, dotted number, and the rest of
// the line (title plus optional deps annotation).
var lineRe = regexp.MustCompile(`^(\s*)-\s\[([ x])\]\s(\d+(?:\.\d+)*)\.\s(.*)$`)

var depsRe = regexp.MustCompile(`\[deps:\s*([^\]]*)\]\s*$`)

// Parse reads the full text of a task file and returns its entries in
// file order. Lines not matching the recognized shape are ignored for
// scheduling purposes; this function never mutates the input.
func Parse(r *bufio.Scanner) ([]TaskEntry, error) {
	var entries []TaskEntry
	for r.Scan() {
		line := r.Text()
		m := lineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		indent := indentLevel(m[1])
		completed := m[2] == "x"
		number := m[3]
		rest := m[4]

		title := rest
		var deps []string
		if dm := depsRe.FindStringSubmatch(rest); dm != nil {
			title = strings.TrimSpace(rest[:len(rest)-len(dm[0])])
			deps = splitDeps(dm[1])
		} else {
			title = strings.TrimSpace(title)
		}

		entries = append(entries, TaskEntry{
			Number:       number,
			Title:        title,
			Completed:    completed,
			IndentLevel:  indent,
			Dependencies: deps,
		})
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("scan task file: %w", err)
	}
	return entries, nil
}

// ParseFile opens and parses path.
func ParseFile(path string) ([]TaskEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open task file: %w", err)
	}
	defer f.Close()
	return Parse(bufio.NewScanner(f))
}

// indentLevel converts leading whitespace into a 0-based level: 0 for
// none, 1 per two-space unit (tabs count as a two-space unit each).
func indentLevel(leading string) int {
	width := 0
	for _, r := range leading {
		if r == '\t' {
			width += 2
		} else {
			width++
		}
	}
	return width / 2
}

// splitDeps splits a comma-separated dependency list, trimming each
// token and omitting empties; "[deps: ]" yields nil.
func splitDeps(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	var out []string
	for _, tok := range strings.Split(csv, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		out = append(out, tok)
	}
	return out
}

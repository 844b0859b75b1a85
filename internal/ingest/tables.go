package ingest

import (
	"regexp"
	"strings"
)

// minTableRows is the smallest run of consecutive column-aligned lines that
// counts as a table. Two-line runs are overwhelmingly prose artifacts
// (wrapped headings, definition lists), so the detector requires three.
const minTableRows = 3

// columnGap matches the separators between table cells in extracted page
// text: a tab, or a run of two or more spaces. Single spaces stay inside a
// cell so ordinary sentences never split into columns.
var columnGap = regexp.MustCompile(`\t+| {2,}`)

// detectTables scans page text for runs of column-aligned lines and returns
// each detected table serialized as a markdown block. This is a stream-style
// heuristic over the text layer — there is no access to ruling lines, so
// whitespace alignment is the only signal.
func detectTables(text string) []string {
	var tables []string
	var run [][]string

	flush := func() {
		if len(run) >= minTableRows {
			tables = append(tables, toMarkdown(run))
		}
		run = nil
	}

	for _, line := range strings.Split(text, "\n") {
		cells := splitColumns(line)
		if len(cells) >= 2 {
			run = append(run, cells)
			continue
		}
		flush()
	}
	flush()

	return tables
}

// splitColumns splits a line into trimmed cells at column gaps. Returns nil
// for blank lines.
func splitColumns(line string) []string {
	line = strings.TrimRight(line, " \t")
	if strings.TrimSpace(line) == "" {
		return nil
	}

	parts := columnGap.Split(strings.TrimLeft(line, " \t"), -1)
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cells = append(cells, p)
		}
	}
	return cells
}

// toMarkdown renders rows as a markdown table. The first row is treated as
// the header. Rows are padded to the widest row so the table stays rectangular.
func toMarkdown(rows [][]string) string {
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for i := 0; i < width; i++ {
			b.WriteString(" ")
			if i < len(cells) {
				b.WriteString(cells[i])
			}
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(rows[0])
	b.WriteString("|")
	for i := 0; i < width; i++ {
		b.WriteString("---|")
	}
	b.WriteString("\n")
	for _, r := range rows[1:] {
		writeRow(r)
	}

	return strings.TrimRight(b.String(), "\n")
}

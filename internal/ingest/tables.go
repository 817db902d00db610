package ingest

import (
	"regexp"
	"strings"

	"github.com/wedealize/sourcing-engine/internal/model"
)

// cellSplit matches the gaps pdftotext leaves between layout columns.
var cellSplit = regexp.MustCompile(`\t|\s{2,}`)

// minTableRows is the shortest run of aligned lines treated as a table.
const minTableRows = 2

// detectTextTables finds column-aligned regions in layout-preserved text.
// A line counts as a table row when splitting on tabs or runs of two or
// more spaces yields at least two cells; consecutive row lines form one
// table.
func detectTextTables(text string) []model.Table {
	var (
		tables  []model.Table
		current model.Table
	)

	flush := func() {
		if len(current) >= minTableRows {
			tables = append(tables, current)
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		cells := splitRow(line)
		if len(cells) >= 2 {
			current = append(current, cells)
			continue
		}
		flush()
	}
	flush()

	return tables
}

func splitRow(line string) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	parts := cellSplit.Split(line, -1)
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cells = append(cells, p)
		}
	}
	return cells
}

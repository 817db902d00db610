package ingest

import (
	"strings"

	"github.com/tealeg/xlsx/v2"

	"github.com/wedealize/sourcing-engine/internal/model"
)

// ingestExcel reads every sheet of a workbook into one table each. Sheets
// with no non-empty rows are skipped.
func (g *Ingestor) ingestExcel(doc *model.RawDocument, data []byte) {
	file, err := xlsx.OpenBinary(data)
	if err != nil {
		doc.Err = "ingest: open workbook: " + err.Error()
		return
	}

	for _, sheet := range file.Sheets {
		table := sheetToTable(sheet)
		if len(table) > 0 {
			doc.Tables = append(doc.Tables, table)
		}
	}
	doc.PageCount = len(file.Sheets)
}

func sheetToTable(sheet *xlsx.Sheet) model.Table {
	var table model.Table
	for _, row := range sheet.Rows {
		cells := make([]string, 0, len(row.Cells))
		blank := true
		for _, cell := range row.Cells {
			v := strings.TrimSpace(cell.String())
			if v != "" {
				blank = false
			}
			cells = append(cells, v)
		}
		if !blank {
			table = append(table, cells)
		}
	}
	return table
}

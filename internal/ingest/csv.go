package ingest

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/wedealize/sourcing-engine/internal/model"
)

// ingestCSV parses the whole file as a single table. Ragged rows are
// accepted as-is; supplier exports rarely have uniform column counts.
func (g *Ingestor) ingestCSV(doc *model.RawDocument, data []byte) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		doc.Err = "ingest: parse csv: " + err.Error()
		return
	}

	var table model.Table
	for _, rec := range records {
		blank := true
		for i, v := range rec {
			rec[i] = strings.TrimSpace(v)
			if rec[i] != "" {
				blank = false
			}
		}
		if !blank {
			table = append(table, rec)
		}
	}
	if len(table) > 0 {
		doc.Tables = append(doc.Tables, table)
	}
	doc.PageCount = 1
}

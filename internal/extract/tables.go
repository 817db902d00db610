package extract

import (
	"fmt"
	"strings"

	"github.com/wedealize/sourcing-engine/internal/model"
)

// Header keywords per field, including the Korean forms supplier catalogs
// commonly use. A header cell matches when it contains any keyword.
var columnKeywords = map[string][]string{
	"name":  {"product", "name", "item", "description", "상품명", "품명"},
	"sku":   {"sku", "code", "item no", "품번", "코드"},
	"price": {"price", "unit price", "fob", "가격", "단가"},
	"moq":   {"moq", "min order", "minimum", "최소주문"},
	"spec":  {"spec", "specification", "size", "규격", "스펙"},
}

// columnOrder fixes which field claims a header column first when keyword
// sets overlap. Each column is claimed at most once.
var columnOrder = []string{"name", "sku", "price", "moq", "spec"}

// fromTable maps one table to product records using header-based column
// inference. Tables without a recognizable name column, or with fewer than
// two rows, yield nothing.
func (e *Extractor) fromTable(doc *model.RawDocument, tableIdx int, table model.Table) []model.ProductRecord {
	if len(table) < 2 {
		return nil
	}

	columns := inferColumns(table[0])
	nameCol, ok := columns["name"]
	if !ok {
		return nil
	}

	var records []model.ProductRecord
	for rowIdx, row := range table[1:] {
		// Rows shorter than the header are skipped.
		if len(row) < len(table[0]) {
			continue
		}
		name := strings.TrimSpace(row[nameCol])
		if name == "" {
			continue
		}

		c := Candidate{Name: name}
		if col, ok := columns["sku"]; ok && col < len(row) {
			c.SKU = strings.TrimSpace(row[col])
		}
		if col, ok := columns["price"]; ok && col < len(row) {
			c.PriceMin, c.PriceMax = ParsePrice(row[col])
			c.Currency = detectCurrency(row[col])
		}
		if col, ok := columns["moq"]; ok && col < len(row) {
			c.MOQ = ParseMOQ(row[col])
		}
		if col, ok := columns["spec"]; ok && col < len(row) {
			if v := strings.TrimSpace(row[col]); v != "" {
				c.Specifications = map[string]string{"spec": v}
			}
		}

		ref := fmt.Sprintf("table %d row %d", tableIdx+1, rowIdx+2)
		records = append(records, e.materialize(doc, c, ref))
	}
	return records
}

// inferColumns assigns header columns to fields. Fields claim columns in a
// fixed order; within a field the lowest-indexed unclaimed matching column
// wins, and a claimed column is never reassigned.
func inferColumns(header []string) map[string]int {
	lowered := make([]string, len(header))
	for i, cell := range header {
		lowered[i] = strings.ToLower(strings.TrimSpace(cell))
	}

	columns := make(map[string]int, len(columnOrder))
	claimed := make(map[int]bool, len(header))

	for _, field := range columnOrder {
		for idx, cell := range lowered {
			if claimed[idx] || cell == "" {
				continue
			}
			if matchesAny(cell, columnKeywords[field]) {
				columns[field] = idx
				claimed[idx] = true
				break
			}
		}
	}
	return columns
}

func matchesAny(cell string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(cell, kw) {
			return true
		}
	}
	return false
}

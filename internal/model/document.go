package model

import (
	"path/filepath"
	"strings"
	"time"
)

// DocumentFormat identifies the extraction strategy for a source file.
type DocumentFormat string

const (
	FormatPDF   DocumentFormat = "pdf"
	FormatExcel DocumentFormat = "excel"
	FormatCSV   DocumentFormat = "csv"
	FormatImage DocumentFormat = "image"
)

// DocumentKind is the declared purpose of an uploaded file.
type DocumentKind string

const (
	KindCatalog     DocumentKind = "catalog"
	KindPricelist   DocumentKind = "pricelist"
	KindCertificate DocumentKind = "certificate"
	KindImage       DocumentKind = "image"
)

// formatByExt maps file extensions to formats. Unknown extensions fall back
// to the PDF strategy rather than failing.
var formatByExt = map[string]DocumentFormat{
	".pdf":  FormatPDF,
	".xlsx": FormatExcel,
	".xls":  FormatExcel,
	".csv":  FormatCSV,
	".png":  FormatImage,
	".jpg":  FormatImage,
	".jpeg": FormatImage,
	".webp": FormatImage,
}

// DetectFormat picks the extraction strategy from the filename extension.
// Unknown extensions default to PDF.
func DetectFormat(filename string) DocumentFormat {
	ext := strings.ToLower(filepath.Ext(filename))
	if f, ok := formatByExt[ext]; ok {
		return f
	}
	return FormatPDF
}

// Table is one extracted grid of cells, rows × columns.
type Table [][]string

// RawDocument is the unstructured extraction output of one source file.
// It is immutable once produced; re-ingestion creates a new document.
type RawDocument struct {
	ID         string         `json:"id"`
	SupplierID string         `json:"supplier_id"`
	Filename   string         `json:"filename"`
	Format     DocumentFormat `json:"format"`
	Kind       DocumentKind   `json:"kind"`
	Text       string         `json:"text,omitempty"`
	Tables     []Table        `json:"tables,omitempty"`
	PageCount  int            `json:"page_count,omitempty"`
	Err        string         `json:"error,omitempty"`
	IngestedAt time.Time      `json:"ingested_at"`
}

// HasTables reports whether any table grid was extracted.
func (d *RawDocument) HasTables() bool {
	return len(d.Tables) > 0
}

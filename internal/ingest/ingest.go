// Package ingest turns uploaded supplier files into RawDocuments: raw text
// and/or table grids, detected by file format. Extraction never fails
// outward; malformed input produces a document with an error marker so the
// rest of the pipeline can degrade instead of aborting.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wedealize/sourcing-engine/internal/model"
	"github.com/wedealize/sourcing-engine/internal/ocr"
)

// Ingestor extracts raw text and tables from document bytes.
type Ingestor struct {
	ocr     ocr.Extractor
	tempDir string
}

// New creates an Ingestor. tempDir may be empty to use the system default.
func New(extractor ocr.Extractor, tempDir string) *Ingestor {
	return &Ingestor{ocr: extractor, tempDir: tempDir}
}

// Ingest extracts a RawDocument from the given bytes. The document ID is a
// digest of supplier, filename and content, so re-ingesting identical bytes
// reproduces the same document (timestamps aside) and supersedes earlier
// extractions of the same provenance.
func (g *Ingestor) Ingest(ctx context.Context, supplierID string, kind model.DocumentKind, filename string, data []byte) *model.RawDocument {
	doc := &model.RawDocument{
		ID:         documentID(supplierID, filename, data),
		SupplierID: supplierID,
		Filename:   filename,
		Format:     model.DetectFormat(filename),
		Kind:       kind,
		IngestedAt: time.Now().UTC(),
	}

	switch doc.Format {
	case model.FormatExcel:
		g.ingestExcel(doc, data)
	case model.FormatCSV:
		g.ingestCSV(doc, data)
	case model.FormatImage:
		g.ingestImage(ctx, doc, filename, data)
	default:
		g.ingestPDF(ctx, doc, filename, data)
	}

	if doc.Err != "" {
		zap.L().Warn("ingest: extraction degraded",
			zap.String("supplier_id", supplierID),
			zap.String("filename", filename),
			zap.String("format", string(doc.Format)),
			zap.String("error", doc.Err),
		)
	}

	return doc
}

func (g *Ingestor) ingestPDF(ctx context.Context, doc *model.RawDocument, filename string, data []byte) {
	path, cleanup, err := g.writeTemp(filename, data)
	if err != nil {
		doc.Err = err.Error()
		return
	}
	defer cleanup()

	text, err := g.ocr.ExtractText(ctx, path)
	if err != nil {
		doc.Err = err.Error()
		return
	}

	doc.Text = text
	doc.PageCount = strings.Count(text, "\f") + 1
	doc.Tables = detectTextTables(text)
}

func (g *Ingestor) ingestImage(ctx context.Context, doc *model.RawDocument, filename string, data []byte) {
	path, cleanup, err := g.writeTemp(filename, data)
	if err != nil {
		doc.Err = err.Error()
		return
	}
	defer cleanup()

	// Image input yields transcribed text only, never tables.
	text, err := g.ocr.ExtractText(ctx, path)
	if err != nil {
		doc.Err = err.Error()
		return
	}
	doc.Text = text
}

// writeTemp spills bytes to a temp file for tools that need a path. The
// original extension is preserved so providers can pick the right handling.
func (g *Ingestor) writeTemp(filename string, data []byte) (string, func(), error) {
	ext := strings.ToLower(filepath.Ext(filename))
	f, err := os.CreateTemp(g.tempDir, "ingest-*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("ingest: create temp file: %w", err)
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }

	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("ingest: write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("ingest: close temp file: %w", err)
	}
	return path, cleanup, nil
}

func documentID(supplierID, filename string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(supplierID))
	h.Write([]byte{0})
	h.Write([]byte(filename))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

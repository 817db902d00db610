// Package extract turns RawDocuments into structured ProductRecords. Table
// grids are mapped through header-based column inference; free text goes
// through an AI text extractor when one is configured, with a deterministic
// heuristic as the default.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wedealize/sourcing-engine/internal/config"
	"github.com/wedealize/sourcing-engine/internal/model"
)

// Candidate is one product parsed out of free text, before it is stamped
// with identity and provenance.
type Candidate struct {
	Name           string            `json:"name"`
	SKU            string            `json:"sku,omitempty"`
	Description    string            `json:"description,omitempty"`
	PriceMin       *float64          `json:"price_min,omitempty"`
	PriceMax       *float64          `json:"price_max,omitempty"`
	Currency       string            `json:"currency,omitempty"`
	MOQ            *int              `json:"moq,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
}

// TextExtractor pulls product candidates out of unstructured text.
type TextExtractor interface {
	Extract(ctx context.Context, text string) ([]Candidate, error)
}

// Extractor converts ingested documents into product records.
type Extractor struct {
	ai           TextExtractor
	maxExcerpt   int
	maxHeuristic int
}

// New creates an Extractor. ai may be nil, in which case free text goes
// through the currency-line heuristic instead.
func New(ai TextExtractor, cfg config.ExtractConfig) *Extractor {
	return &Extractor{
		ai:           ai,
		maxExcerpt:   cfg.MaxExcerptChars,
		maxHeuristic: cfg.MaxHeuristicProducts,
	}
}

// FromDocument extracts product records from one document. Documents with
// tables use the table path; text-only documents use the AI or heuristic
// text path. Extraction failures yield an empty slice, never a hard error
// for malformed content.
func (e *Extractor) FromDocument(ctx context.Context, doc *model.RawDocument) []model.ProductRecord {
	if doc.HasTables() {
		var records []model.ProductRecord
		for i, table := range doc.Tables {
			records = append(records, e.fromTable(doc, i, table)...)
		}
		return records
	}

	if strings.TrimSpace(doc.Text) == "" {
		return nil
	}
	return e.fromText(ctx, doc)
}

func (e *Extractor) fromText(ctx context.Context, doc *model.RawDocument) []model.ProductRecord {
	text := doc.Text
	if e.maxExcerpt > 0 && len(text) > e.maxExcerpt {
		// Back the cut up to a rune boundary so multibyte text stays
		// valid UTF-8.
		cut := e.maxExcerpt
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	var (
		candidates []Candidate
		err        error
	)
	if e.ai != nil {
		candidates, err = e.ai.Extract(ctx, text)
		if err != nil {
			zap.L().Warn("extract: text extraction failed, no records produced",
				zap.String("document_id", doc.ID),
				zap.Error(err),
			)
			return nil
		}
	} else {
		candidates = heuristicCandidates(text, e.maxHeuristic)
	}

	records := make([]model.ProductRecord, 0, len(candidates))
	for i, c := range candidates {
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		records = append(records, e.materialize(doc, c, fmt.Sprintf("text item %d", i+1)))
	}
	return records
}

func (e *Extractor) materialize(doc *model.RawDocument, c Candidate, sourceRef string) model.ProductRecord {
	now := time.Now().UTC()
	return model.ProductRecord{
		ID:             uuid.NewString(),
		SupplierID:     doc.SupplierID,
		Name:           strings.TrimSpace(c.Name),
		SKU:            strings.TrimSpace(c.SKU),
		Description:    strings.TrimSpace(c.Description),
		Specifications: c.Specifications,
		PriceMin:       c.PriceMin,
		PriceMax:       c.PriceMax,
		Currency:       c.Currency,
		MOQ:            c.MOQ,
		Provenance: model.Provenance{
			DocumentID: doc.ID,
			SourceRef:  sourceRef,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

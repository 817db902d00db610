// Package scorer computes data-completeness reports over a supplier's
// extracted products. The score weighs each tracked field across every
// product, so one sparse product on a large catalog costs less than a
// sparse catalog overall.
package scorer

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/wedealize/sourcing-engine/internal/model"
)

const maxSampleNames = 5

// Scorer computes completeness reports against a field requirement catalog.
type Scorer struct {
	catalog *model.Catalog
}

// New creates a Scorer.
func New(catalog *model.Catalog) *Scorer {
	return &Scorer{catalog: catalog}
}

// Analyze builds a fresh completeness report for the supplier. With no
// products the score is zero and the single recommendation asks for a
// catalog upload; no field analysis is performed.
func (s *Scorer) Analyze(supplier *model.Supplier, products []model.ProductRecord) *model.CompletenessReport {
	report := &model.CompletenessReport{
		SupplierID:   supplier.ID,
		SupplierName: supplier.Name,
		ProductCount: len(products),
		GeneratedAt:  time.Now().UTC(),
	}

	if len(products) == 0 {
		report.Recommendations = []string{"No products found. Please upload a catalog."}
		return report
	}

	total := s.catalog.TotalWeight() * len(products)
	lost := 0

	for _, field := range s.catalog.Fields {
		group := model.MissingFieldGroup{
			Field:    field.Key,
			Tier:     field.Tier,
			Required: field.Required,
		}
		for i := range products {
			if !s.catalog.Missing(field.Key, &products[i]) {
				continue
			}
			group.Count++
			group.ProductIDs = append(group.ProductIDs, products[i].ID)
			if len(group.ProductNames) < maxSampleNames {
				group.ProductNames = append(group.ProductNames, products[i].Name)
			}
		}
		if group.Count > 0 {
			lost += field.Weight * group.Count
			report.Missing = append(report.Missing, group)
		}
	}

	report.Score = scoreValue(total, lost)
	model.SortGroups(report.Missing)
	report.Recommendations = s.recommendations(report)

	zap.L().Info("scorer: report generated",
		zap.String("supplier_id", supplier.ID),
		zap.Int("product_count", report.ProductCount),
		zap.Float64("score", report.Score),
		zap.Int("missing_groups", len(report.Missing)),
	)

	return report
}

// scoreValue maps weighted loss onto 0-100, clamped and rounded to one
// decimal place.
func scoreValue(total, lost int) float64 {
	if total <= 0 {
		return 0
	}
	score := 100 * float64(total-lost) / float64(total)
	score = math.Max(0, math.Min(100, score))
	return math.Round(score*10) / 10
}

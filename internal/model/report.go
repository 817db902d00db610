package model

import (
	"sort"
	"time"
)

// MissingFieldGroup aggregates one missing field across a supplier's
// products: which products lack it and how many.
type MissingFieldGroup struct {
	Field        FieldKey `json:"field"`
	Tier         Tier     `json:"tier"`
	Required     bool     `json:"required"`
	ProductIDs   []string `json:"product_ids"`
	ProductNames []string `json:"product_names"` // sample, at most 5
	Count        int      `json:"count"`
}

// CompletenessReport is an immutable snapshot of one supplier's data quality,
// regenerated on demand.
type CompletenessReport struct {
	SupplierID      string              `json:"supplier_id"`
	SupplierName    string              `json:"supplier_name"`
	ProductCount    int                 `json:"product_count"`
	Score           float64             `json:"score"` // 0-100
	Missing         []MissingFieldGroup `json:"missing"`
	Recommendations []string            `json:"recommendations"`
	GeneratedAt     time.Time           `json:"generated_at"`
}

// SortGroups orders missing-field groups by tier (HIGH first), then by
// affected-product count descending. This ordering determines follow-up
// priority, so it must stay stable.
func SortGroups(groups []MissingFieldGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Tier.Rank() != groups[j].Tier.Rank() {
			return groups[i].Tier.Rank() < groups[j].Tier.Rank()
		}
		return groups[i].Count > groups[j].Count
	})
}

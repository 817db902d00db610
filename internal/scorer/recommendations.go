package scorer

import (
	"fmt"
	"strings"

	"github.com/wedealize/sourcing-engine/internal/model"
)

// recommendations renders advice lines for a non-empty report. Rule order
// is fixed: the score-band message first, then required-field gaps, then
// the certification and image nudges.
func (s *Scorer) recommendations(report *model.CompletenessReport) []string {
	var recs []string

	switch {
	case report.Score < 50:
		recs = append(recs, "Data completeness is low. Please provide more product details for better visibility.")
	case report.Score < 80:
		recs = append(recs, "Good progress! A few more details will help buyers make decisions faster.")
	}

	var criticalLabels []string
	for _, g := range report.Missing {
		if g.Tier == model.TierHigh && g.Required {
			if f := s.catalog.ByKey(g.Field); f != nil {
				criticalLabels = append(criticalLabels, f.LabelEN)
			}
		}
	}
	if len(criticalLabels) > 0 {
		recs = append(recs, fmt.Sprintf("Critical: Please add %s for your products.", strings.Join(criticalLabels, ", ")))
	}

	if g := findGroup(report.Missing, model.FieldCertifications); g != nil && g.Count > 0 {
		recs = append(recs, fmt.Sprintf("Adding certifications can increase buyer confidence. %d products need certification info.", g.Count))
	}
	if g := findGroup(report.Missing, model.FieldImages); g != nil && g.Count > 0 {
		recs = append(recs, fmt.Sprintf("Products with images get 3x more inquiries. %d products need images.", g.Count))
	}

	return recs
}

func findGroup(groups []model.MissingFieldGroup, key model.FieldKey) *model.MissingFieldGroup {
	for i := range groups {
		if groups[i].Field == key {
			return &groups[i]
		}
	}
	return nil
}

package scorer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedealize/sourcing-engine/internal/model"
)

func supplier() *model.Supplier {
	return &model.Supplier{ID: "sup-1", Name: "Oleificio Ferrara"}
}

// completeProduct fills every tracked field.
func completeProduct(id string) model.ProductRecord {
	price := 7.2
	priceMax := 8.5
	moq := 200
	lead := 14
	shelf := 365
	return model.ProductRecord{
		ID:             id,
		SupplierID:     "sup-1",
		Name:           "Olive Oil " + id,
		PriceMin:       &price,
		PriceMax:       &priceMax,
		MOQ:            &moq,
		LeadTimeDays:   &lead,
		ShelfLifeDays:  &shelf,
		Certifications: []string{"HACCP"},
		Images:         []string{"bottle.jpg"},
		Specifications: map[string]string{"volume": "500ml"},
		Ingredients:    "olives",
		Packaging:      "glass bottle",
		HSCode:         "1509.10",
		OriginCountry:  "IT",
	}
}

func TestAnalyzeZeroProducts(t *testing.T) {
	s := New(model.DefaultCatalog())

	report := s.Analyze(supplier(), nil)

	assert.Equal(t, 0.0, report.Score)
	assert.Equal(t, 0, report.ProductCount)
	assert.Empty(t, report.Missing)
	require.Len(t, report.Recommendations, 1)
	assert.Equal(t, "No products found. Please upload a catalog.", report.Recommendations[0])
}

func TestAnalyzeCompleteCatalog(t *testing.T) {
	s := New(model.DefaultCatalog())
	products := []model.ProductRecord{completeProduct("p1"), completeProduct("p2")}

	report := s.Analyze(supplier(), products)

	assert.Equal(t, 100.0, report.Score)
	assert.Empty(t, report.Missing)
	assert.Empty(t, report.Recommendations)
}

func TestScoreFormula(t *testing.T) {
	// 10 products, 30 of 100 weight lost per product.
	assert.Equal(t, 70.0, scoreValue(1000, 300))

	assert.Equal(t, 0.0, scoreValue(0, 0))
	assert.Equal(t, 0.0, scoreValue(100, 200))
	assert.Equal(t, 100.0, scoreValue(100, 0))
	assert.Equal(t, 33.3, scoreValue(300, 200))
}

func TestAnalyzeMissingPricingFields(t *testing.T) {
	s := New(model.DefaultCatalog())
	var products []model.ProductRecord
	for i := 0; i < 10; i++ {
		p := completeProduct(fmt.Sprintf("p%d", i))
		p.MOQ = nil
		p.PriceMin = nil
		p.PriceMax = nil
		products = append(products, p)
	}

	report := s.Analyze(supplier(), products)

	// moq 15 + price 15 + unit price 10 lost on every product.
	assert.Equal(t, 60.0, report.Score)
	require.Len(t, report.Missing, 3)
	for _, g := range report.Missing {
		assert.Equal(t, model.TierHigh, g.Tier)
		assert.Equal(t, 10, g.Count)
		assert.Len(t, g.ProductNames, 5)
		assert.Len(t, g.ProductIDs, 10)
	}
}

func TestRecommendationOrderLowScore(t *testing.T) {
	s := New(model.DefaultCatalog())
	var products []model.ProductRecord
	for i := 0; i < 10; i++ {
		p := completeProduct(fmt.Sprintf("p%d", i))
		p.MOQ = nil
		p.PriceMin = nil
		p.PriceMax = nil
		p.Certifications = nil
		p.Images = nil
		products = append(products, p)
	}

	report := s.Analyze(supplier(), products)

	assert.Equal(t, 40.0, report.Score)
	require.Len(t, report.Recommendations, 4)
	assert.Equal(t, "Data completeness is low. Please provide more product details for better visibility.", report.Recommendations[0])
	assert.True(t, strings.HasPrefix(report.Recommendations[1], "Critical: Please add "))
	assert.Contains(t, report.Recommendations[1], "Minimum Order Quantity")
	assert.Contains(t, report.Recommendations[1], "Price Information")
	assert.Contains(t, report.Recommendations[2], "10 products need certification info")
	assert.Contains(t, report.Recommendations[3], "10 products need images")
}

func TestRecommendationMidScoreBand(t *testing.T) {
	s := New(model.DefaultCatalog())
	var products []model.ProductRecord
	for i := 0; i < 10; i++ {
		p := completeProduct(fmt.Sprintf("p%d", i))
		p.Certifications = nil
		p.Images = nil
		p.ShelfLifeDays = nil
		products = append(products, p)
	}

	report := s.Analyze(supplier(), products)

	// certs 10 + images 10 + shelf life 6 lost per product.
	assert.Equal(t, 74.0, report.Score)
	require.NotEmpty(t, report.Recommendations)
	assert.Equal(t, "Good progress! A few more details will help buyers make decisions faster.", report.Recommendations[0])
}

func TestGroupOrdering(t *testing.T) {
	s := New(model.DefaultCatalog())

	// Three products miss images (MEDIUM), two miss MOQ (HIGH), all miss
	// hs code (LOW). HIGH sorts first despite its lower count.
	var products []model.ProductRecord
	for i := 0; i < 3; i++ {
		p := completeProduct(fmt.Sprintf("p%d", i))
		p.Images = nil
		p.HSCode = ""
		if i < 2 {
			p.MOQ = nil
		}
		products = append(products, p)
	}

	report := s.Analyze(supplier(), products)

	require.Len(t, report.Missing, 3)
	assert.Equal(t, model.FieldMOQ, report.Missing[0].Field)
	assert.Equal(t, model.FieldImages, report.Missing[1].Field)
	assert.Equal(t, model.FieldHSCode, report.Missing[2].Field)
}

func TestRescoreStrictlyGreater(t *testing.T) {
	s := New(model.DefaultCatalog())
	p := completeProduct("p1")
	p.MOQ = nil

	before := s.Analyze(supplier(), []model.ProductRecord{p})

	moq := 500
	p.MOQ = &moq
	after := s.Analyze(supplier(), []model.ProductRecord{p})

	assert.Greater(t, after.Score, before.Score)
}

func TestScoreMonotonicity(t *testing.T) {
	s := New(model.DefaultCatalog())

	sparse := completeProduct("p1")
	sparse.MOQ = nil
	sparse.Certifications = nil

	sparser := sparse
	sparser.HSCode = ""

	high := s.Analyze(supplier(), []model.ProductRecord{sparse}).Score
	low := s.Analyze(supplier(), []model.ProductRecord{sparser}).Score

	assert.Greater(t, high, low)
}

func TestWeightOverridesChangeScore(t *testing.T) {
	catalog := model.DefaultCatalog()
	catalog.ApplyWeights(map[string]int{"moq": 30, "hs_code": 1})
	s := New(catalog)

	p := completeProduct("p1")
	p.MOQ = nil

	report := s.Analyze(supplier(), []model.ProductRecord{p})

	// total 113, lost 30.
	assert.Equal(t, 73.5, report.Score)
}

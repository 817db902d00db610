package model

// FieldKey names one tracked product data field.
type FieldKey string

const (
	FieldMOQ            FieldKey = "moq"
	FieldPrice          FieldKey = "price"
	FieldUnitPrice      FieldKey = "unit_price"
	FieldCertifications FieldKey = "certifications"
	FieldImages         FieldKey = "product_images"
	FieldSpecifications FieldKey = "specifications"
	FieldLeadTime       FieldKey = "lead_time"
	FieldShelfLife      FieldKey = "shelf_life"
	FieldIngredients    FieldKey = "ingredients"
	FieldPackaging      FieldKey = "packaging"
	FieldHSCode         FieldKey = "hs_code"
	FieldOriginCountry  FieldKey = "origin_country"
)

// Tier classifies follow-up urgency. HIGH sorts before MEDIUM before LOW.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

var tierRank = map[Tier]int{
	TierHigh:   0,
	TierMedium: 1,
	TierLow:    2,
}

// Rank returns the sort rank for the tier; lower means more urgent.
// Unknown tiers rank last.
func (t Tier) Rank() int {
	if r, ok := tierRank[t]; ok {
		return r
	}
	return len(tierRank)
}

// FieldRequirement describes one tracked field: its scoring weight, whether
// it is required for trading, its follow-up tier, and localized labels.
type FieldRequirement struct {
	Key      FieldKey `json:"key"`
	Weight   int      `json:"weight"`
	Required bool     `json:"required"`
	Tier     Tier     `json:"tier"`
	LabelEN  string   `json:"label_en"`
	LabelKO  string   `json:"label_ko"`
}

// Label returns the label for the given locale, defaulting to English.
func (f FieldRequirement) Label(locale string) string {
	if locale == "ko" {
		return f.LabelKO
	}
	return f.LabelEN
}

// Catalog is the ordered set of tracked field requirements. Iteration order
// is fixed so reports and messages are deterministic.
type Catalog struct {
	Fields []FieldRequirement
	byKey  map[FieldKey]*FieldRequirement
}

// DefaultCatalog returns the compiled-in field requirement table. The weights
// sum to 100, which makes the per-product scoring denominator a round unit.
func DefaultCatalog() *Catalog {
	return NewCatalog([]FieldRequirement{
		{Key: FieldMOQ, Weight: 15, Required: true, Tier: TierHigh, LabelEN: "Minimum Order Quantity", LabelKO: "최소 주문 수량"},
		{Key: FieldPrice, Weight: 15, Required: true, Tier: TierHigh, LabelEN: "Price Information", LabelKO: "가격 정보"},
		{Key: FieldUnitPrice, Weight: 10, Required: true, Tier: TierHigh, LabelEN: "Unit Price", LabelKO: "단가"},
		{Key: FieldCertifications, Weight: 10, Required: false, Tier: TierMedium, LabelEN: "Certifications", LabelKO: "인증서"},
		{Key: FieldImages, Weight: 10, Required: false, Tier: TierMedium, LabelEN: "Product Images", LabelKO: "상품 이미지"},
		{Key: FieldSpecifications, Weight: 8, Required: false, Tier: TierMedium, LabelEN: "Product Specifications", LabelKO: "상품 규격"},
		{Key: FieldLeadTime, Weight: 8, Required: false, Tier: TierMedium, LabelEN: "Lead Time", LabelKO: "리드타임"},
		{Key: FieldShelfLife, Weight: 6, Required: false, Tier: TierLow, LabelEN: "Shelf Life", LabelKO: "유통기한"},
		{Key: FieldIngredients, Weight: 6, Required: false, Tier: TierLow, LabelEN: "Ingredients List", LabelKO: "원재료"},
		{Key: FieldPackaging, Weight: 6, Required: false, Tier: TierLow, LabelEN: "Packaging Information", LabelKO: "포장 정보"},
		{Key: FieldHSCode, Weight: 3, Required: false, Tier: TierLow, LabelEN: "HS Code", LabelKO: "HS 코드"},
		{Key: FieldOriginCountry, Weight: 3, Required: false, Tier: TierLow, LabelEN: "Country of Origin", LabelKO: "원산지"},
	})
}

// NewCatalog builds a Catalog with indexed lookups.
func NewCatalog(fields []FieldRequirement) *Catalog {
	c := &Catalog{
		Fields: fields,
		byKey:  make(map[FieldKey]*FieldRequirement, len(fields)),
	}
	for i := range c.Fields {
		c.byKey[c.Fields[i].Key] = &c.Fields[i]
	}
	return c
}

// ByKey returns the requirement for the given key, or nil if not tracked.
func (c *Catalog) ByKey(key FieldKey) *FieldRequirement {
	return c.byKey[key]
}

// TotalWeight returns the sum of all field weights.
func (c *Catalog) TotalWeight() int {
	var sum int
	for _, f := range c.Fields {
		sum += f.Weight
	}
	return sum
}

// ApplyWeights overrides weights from external configuration. Keys that are
// not tracked are ignored; zero or negative weights are rejected silently so
// a bad config entry cannot zero out the denominator.
func (c *Catalog) ApplyWeights(overrides map[string]int) {
	for key, w := range overrides {
		if w <= 0 {
			continue
		}
		if f := c.byKey[FieldKey(key)]; f != nil {
			f.Weight = w
		}
	}
}

// Missing reports whether the tracked field is absent on the given product.
// The predicates are fixed per field; they drive both scoring and follow-up.
func (c *Catalog) Missing(key FieldKey, p *ProductRecord) bool {
	switch key {
	case FieldMOQ:
		return p.MOQ == nil
	case FieldPrice:
		return p.PriceMin == nil && p.PriceMax == nil
	case FieldUnitPrice:
		return p.PriceMin == nil
	case FieldCertifications:
		return len(p.Certifications) == 0
	case FieldImages:
		return len(p.Images) == 0
	case FieldSpecifications:
		return len(p.Specifications) == 0
	case FieldLeadTime:
		return p.LeadTimeDays == nil
	case FieldShelfLife:
		return p.ShelfLifeDays == nil
	case FieldIngredients:
		return p.Ingredients == ""
	case FieldPackaging:
		return p.Packaging == ""
	case FieldHSCode:
		return p.HSCode == ""
	case FieldOriginCountry:
		return p.OriginCountry == ""
	default:
		return false
	}
}

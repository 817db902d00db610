package model

import "time"

// Provenance locates the origin of an extracted record within its source
// document, e.g. "sheet 1 row 7" or "text line 42".
type Provenance struct {
	DocumentID string `json:"document_id"`
	SourceRef  string `json:"source_ref"`
}

// ProductRecord is one structured item extracted from a supplier document.
// Records belong to exactly one supplier and one source document; they are
// never deleted, only superseded by re-ingestion of the same provenance.
type ProductRecord struct {
	ID             string            `json:"id"`
	SupplierID     string            `json:"supplier_id"`
	Name           string            `json:"name"`
	SKU            string            `json:"sku,omitempty"`
	Description    string            `json:"description,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
	Certifications []string          `json:"certifications,omitempty"`
	Images         []string          `json:"images,omitempty"`

	PriceMin  *float64 `json:"price_min,omitempty"`
	PriceMax  *float64 `json:"price_max,omitempty"`
	Currency  string   `json:"currency,omitempty"`
	PriceUnit string   `json:"price_unit,omitempty"`

	MOQ     *int   `json:"moq,omitempty"`
	MOQUnit string `json:"moq_unit,omitempty"`

	LeadTimeDays  *int   `json:"lead_time_days,omitempty"`
	ShelfLifeDays *int   `json:"shelf_life_days,omitempty"`
	Ingredients   string `json:"ingredients,omitempty"`
	Packaging     string `json:"packaging,omitempty"`
	HSCode        string `json:"hs_code,omitempty"`
	OriginCountry string `json:"origin_country,omitempty"`

	Provenance Provenance `json:"provenance"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Supplier identifies one supplier and the address follow-ups go to.
type Supplier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Locale    string    `json:"locale,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

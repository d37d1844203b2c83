package domain

import "time"

// Settings holds the per-shop wholesale defaults.
type Settings struct {
	Shop            string    `json:"shop" bson:"_id"`
	DiscountPercent float64   `json:"discount_percent" bson:"discount_percent"`
	VATPercent      float64   `json:"vat_percent" bson:"vat_percent"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

// TagRule maps one customer tag to a wholesale discount for a shop.
// Tags are stored normalized (trimmed, lower-case).
type TagRule struct {
	Shop            string    `json:"shop" bson:"shop"`
	Tag             string    `json:"tag" bson:"tag"`
	DiscountPercent float64   `json:"discount_percent" bson:"discount_percent"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

// PriceQuote is one variant row of a wholesale preview.
type PriceQuote struct {
	ProductID       int64   `json:"product_id"`
	ProductTitle    string  `json:"product_title"`
	VariantID       int64   `json:"variant_id"`
	VariantTitle    string  `json:"variant_title"`
	Retail          float64 `json:"retail"`
	Wholesale       float64 `json:"wholesale"`
	RetailIncVAT    float64 `json:"retail_inc_vat"`
	WholesaleIncVAT float64 `json:"wholesale_inc_vat"`
}

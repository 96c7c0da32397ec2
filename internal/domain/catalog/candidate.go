// Package catalog holds the product-side domain model: candidates
// retrieved from store catalogs, store records, brand exclusivity, and
// the size and unit-price arithmetic that makes candidates comparable.
package catalog

// Candidate is one purchasable product matched to an ingredient key.
// Candidates are constructed once at catalog load time and are read-only
// afterwards; SourceStoreID is stamped by the loader and is never
// inferred downstream.
type Candidate struct {
	ProductID     string
	SourceStoreID string
	Brand         string
	Title         string
	Price         float64
	SizeValue     float64
	SizeUnit      Unit
	UnitPrice     float64
	UnitPriceUnit Unit
	Organic       bool
	IngredientKey string
	Form          Form
	Packaging     Packaging
	DeliveryDays  int
}

// Validate reports whether the candidate satisfies the invariants the
// loader must establish. Downstream stages rely on these holding.
func (c Candidate) Validate() error {
	if c.ProductID == "" {
		return ErrMissingProductID
	}
	if c.SourceStoreID == "" {
		return ErrMissingStore
	}
	if c.Title == "" {
		return ErrBlankTitle
	}
	if c.IngredientKey == "" {
		return ErrMissingIngredientKey
	}
	if c.Price <= 0 {
		return ErrNonPositivePrice
	}
	return nil
}

// HasUnitPrice reports whether a comparable unit price was computed at
// load time. Candidates without one fail the sanity constraint later.
func (c Candidate) HasUnitPrice() bool {
	return c.UnitPrice > 0 && c.UnitPriceUnit != UnitUnknown
}

package catalog

import "sort"

// Store describes one shoppable store in the loaded catalog.
type Store struct {
	ID           string
	Name         string
	Kind         StoreKind
	DeliveryDays int
}

// Validate checks the store record
func (s Store) Validate() error {
	if s.ID == "" {
		return ErrMissingStore
	}
	if !s.Kind.IsValid() {
		return ErrInvalidStoreKind
	}
	return nil
}

// BrandRegistry is the immutable brand-exclusivity table: which brands
// are private labels, and the single store each one legally belongs to.
// It is built once from configuration and injected into the constraint
// filter and the store planner; there is no package-level registry.
type BrandRegistry struct {
	exclusive map[string]string
	premium   map[string]bool
}

// NewBrandRegistry builds a registry from a brand-to-store map of
// private labels and a list of recognized premium fresh-protein brands.
// Both inputs are copied; the registry never mutates after construction.
func NewBrandRegistry(privateLabels map[string]string, premiumProteins []string) BrandRegistry {
	exclusive := make(map[string]string, len(privateLabels))
	for brand, storeID := range privateLabels {
		exclusive[NormalizeBrand(brand)] = storeID
	}
	premium := make(map[string]bool, len(premiumProteins))
	for _, brand := range premiumProteins {
		premium[NormalizeBrand(brand)] = true
	}
	return BrandRegistry{exclusive: exclusive, premium: premium}
}

// ExclusiveStore returns the one store a private-label brand may be sold
// at, and whether the brand is registered at all.
func (r BrandRegistry) ExclusiveStore(brand string) (string, bool) {
	storeID, ok := r.exclusive[NormalizeBrand(brand)]
	return storeID, ok
}

// IsPrivateLabel reports whether the brand is a registered private label.
func (r BrandRegistry) IsPrivateLabel(brand string) bool {
	_, ok := r.exclusive[NormalizeBrand(brand)]
	return ok
}

// LegalFor reports whether the brand may appear in a cart item assigned
// to storeID. Brands that are not private labels are legal everywhere.
func (r BrandRegistry) LegalFor(brand, storeID string) bool {
	owner, ok := r.exclusive[NormalizeBrand(brand)]
	if !ok {
		return true
	}
	return owner == storeID
}

// IsPremiumProtein reports whether the brand is on the recognized
// premium fresh-protein list used by the store planner's tie-break.
func (r BrandRegistry) IsPremiumProtein(brand string) bool {
	return r.premium[NormalizeBrand(brand)]
}

// PrivateLabelsOf lists the registered private-label brands owned by a
// store, sorted for deterministic iteration.
func (r BrandRegistry) PrivateLabelsOf(storeID string) []string {
	var brands []string
	for brand, owner := range r.exclusive {
		if owner == storeID {
			brands = append(brands, brand)
		}
	}
	sort.Strings(brands)
	return brands
}

package planning

import (
	"github.com/cartwise/v3/internal/domain/catalog"
)

// Shared fixtures for the planning package tests.

func testCandidate(id, storeID, key string, price float64, mutate ...func(*catalog.Candidate)) catalog.Candidate {
	c := catalog.Candidate{
		ProductID:     id,
		SourceStoreID: storeID,
		Brand:         "Bluebird Pantry",
		Title:         "Test Product",
		Price:         price,
		SizeValue:     8,
		SizeUnit:      catalog.UnitOunce,
		UnitPrice:     price / 8,
		UnitPriceUnit: catalog.UnitOunce,
		IngredientKey: key,
		Form:          catalog.FormWhole,
		Packaging:     catalog.PackagingRecyclablePlastic,
		DeliveryDays:  2,
	}
	for _, m := range mutate {
		m(&c)
	}
	return c
}

func withPrice(price float64) func(*catalog.Candidate) {
	return func(c *catalog.Candidate) {
		c.Price = price
		if c.SizeValue > 0 {
			c.UnitPrice = price / c.SizeValue
		}
	}
}

func withUnitPrice(unitPrice float64) func(*catalog.Candidate) {
	return func(c *catalog.Candidate) { c.UnitPrice = unitPrice }
}

func organic() func(*catalog.Candidate) {
	return func(c *catalog.Candidate) { c.Organic = true }
}

func withForm(form catalog.Form) func(*catalog.Candidate) {
	return func(c *catalog.Candidate) { c.Form = form }
}

func withPackaging(p catalog.Packaging) func(*catalog.Candidate) {
	return func(c *catalog.Candidate) { c.Packaging = p }
}

func withDelivery(days int) func(*catalog.Candidate) {
	return func(c *catalog.Candidate) { c.DeliveryDays = days }
}

func withBrand(brand string) func(*catalog.Candidate) {
	return func(c *catalog.Candidate) { c.Brand = brand }
}

func testRegistry() catalog.BrandRegistry {
	return catalog.NewBrandRegistry(
		map[string]string{
			"Housemark":     "store-a",
			"Verde Selects": "store-b",
			"Spice Route":   "store-s",
		},
		[]string{"Saltspring Farms"},
	)
}

func noFacts() StaticFacts {
	return NewStaticFacts(nil, nil)
}

func planRequest(names ...string) PlanRequest {
	ingredients := make([]IngredientRequest, 0, len(names))
	for _, n := range names {
		ingredients = append(ingredients, IngredientRequest{Name: n})
	}
	return PlanRequest{Ingredients: ingredients, Servings: 2}
}

func testStores() []catalog.Store {
	return []catalog.Store{
		{ID: "store-a", Name: "Greenfield Market", Kind: catalog.StoreKindGeneral, DeliveryDays: 2},
		{ID: "store-b", Name: "Harvest Depot", Kind: catalog.StoreKindGeneral, DeliveryDays: 3},
		{ID: "store-s", Name: "Spice Bazaar", Kind: catalog.StoreKindSpecialty, DeliveryDays: 9},
	}
}

// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/cartwise/v3/internal/domain/catalog"
	"github.com/stretchr/testify/require"
)

// candidateSeq keeps generated product IDs unique within a test run
var candidateSeq atomic.Int64

// DefaultStores returns the two-store roster most tests plan against:
// a general store with fast delivery and a specialty store without.
func DefaultStores() []catalog.Store {
	return []catalog.Store{
		{ID: "store-a", Name: "Greenfield Market", Kind: catalog.StoreKindGeneral, DeliveryDays: 2},
		{ID: "store-b", Name: "Spice Bazaar", Kind: catalog.StoreKindSpecialty, DeliveryDays: 5},
	}
}

// CandidateBuilder provides a fluent interface for building catalog candidates
type CandidateBuilder struct {
	candidate catalog.Candidate
	rawSize   string
}

// NewCandidateBuilder creates a candidate builder with defaults that
// pass the loader's validation
func NewCandidateBuilder() *CandidateBuilder {
	return &CandidateBuilder{
		candidate: catalog.Candidate{
			SourceStoreID: "store-a",
			Brand:         "Harvest Lane",
			Title:         "Ground Turmeric Powder",
			Price:         3.49,
			IngredientKey: "turmeric",
			Form:          catalog.FormPowder,
			Packaging:     catalog.PackagingGlass,
			DeliveryDays:  2,
		},
		rawSize: "100g",
	}
}

// ForIngredient sets the ingredient the candidate matches
func (cb *CandidateBuilder) ForIngredient(name string) *CandidateBuilder {
	cb.candidate.IngredientKey = catalog.NormalizeKey(name)
	return cb
}

// FromStore sets the source store and its delivery window
func (cb *CandidateBuilder) FromStore(store catalog.Store) *CandidateBuilder {
	cb.candidate.SourceStoreID = store.ID
	cb.candidate.DeliveryDays = store.DeliveryDays
	return cb
}

// WithProductID pins the product ID instead of generating one
func (cb *CandidateBuilder) WithProductID(id string) *CandidateBuilder {
	cb.candidate.ProductID = id
	return cb
}

// WithBrand sets the brand
func (cb *CandidateBuilder) WithBrand(brand string) *CandidateBuilder {
	cb.candidate.Brand = brand
	return cb
}

// WithTitle sets the product title
func (cb *CandidateBuilder) WithTitle(title string) *CandidateBuilder {
	cb.candidate.Title = title
	return cb
}

// WithPrice sets the shelf price
func (cb *CandidateBuilder) WithPrice(price float64) *CandidateBuilder {
	cb.candidate.Price = price
	return cb
}

// WithSize sets the raw package size; the unit price is derived at
// Build the same way the loader derives it
func (cb *CandidateBuilder) WithSize(raw string) *CandidateBuilder {
	cb.rawSize = raw
	return cb
}

// AsOrganic marks the candidate as certified organic
func (cb *CandidateBuilder) AsOrganic() *CandidateBuilder {
	cb.candidate.Organic = true
	return cb
}

// WithForm sets the physical form
func (cb *CandidateBuilder) WithForm(form catalog.Form) *CandidateBuilder {
	cb.candidate.Form = form
	return cb
}

// WithPackaging sets the packaging class
func (cb *CandidateBuilder) WithPackaging(packaging catalog.Packaging) *CandidateBuilder {
	cb.candidate.Packaging = packaging
	return cb
}

// Build constructs the candidate
func (cb *CandidateBuilder) Build() catalog.Candidate {
	candidate := cb.candidate

	if candidate.ProductID == "" {
		candidate.ProductID = fmt.Sprintf("%s-%s-%04d",
			candidate.SourceStoreID,
			strings.ReplaceAll(candidate.IngredientKey, " ", "-"),
			candidateSeq.Add(1),
		)
	}

	if size, ok := catalog.ParseSize(cb.rawSize); ok {
		candidate.SizeValue = size.Value
		candidate.SizeUnit = size.Unit
		if unitPrice, unit, ok := catalog.UnitPrice(candidate.Price, size); ok {
			candidate.UnitPrice = unitPrice
			candidate.UnitPriceUnit = unit
		}
	}

	return candidate
}

// CatalogFactory generates candidate pools with varied but plausible data
type CatalogFactory struct {
	faker *gofakeit.Faker
}

// NewCatalogFactory creates a catalog factory with a seeded faker
func NewCatalogFactory(seed int64) *CatalogFactory {
	return &CatalogFactory{faker: gofakeit.New(seed)}
}

// CreateCandidate builds one candidate for the ingredient with
// randomized brand, price, and size
func (cf *CatalogFactory) CreateCandidate(ingredient string, store catalog.Store) catalog.Candidate {
	builder := NewCandidateBuilder().
		ForIngredient(ingredient).
		FromStore(store).
		WithBrand(cf.faker.Company()).
		WithTitle(cf.titleFor(ingredient)).
		WithPrice(cf.faker.Float64Range(1.5, 12.0)).
		WithSize(fmt.Sprintf("%dg", cf.faker.Number(50, 500)))
	if cf.faker.Bool() {
		builder.AsOrganic()
	}
	return builder.Build()
}

// CreatePool builds n candidates for one ingredient spread across the
// default stores
func (cf *CatalogFactory) CreatePool(ingredient string, n int) []catalog.Candidate {
	stores := DefaultStores()
	pool := make([]catalog.Candidate, 0, n)
	for i := 0; i < n; i++ {
		pool = append(pool, cf.CreateCandidate(ingredient, stores[i%len(stores)]))
	}
	return pool
}

// titleFor produces a product title carrying a recognizable form marker
func (cf *CatalogFactory) titleFor(ingredient string) string {
	patterns := []string{
		"Ground %s Powder",
		"Whole %s",
		"Fresh %s",
		"Dried %s",
		"%s Seeds",
	}
	pattern := patterns[cf.faker.Number(0, len(patterns)-1)]
	return fmt.Sprintf(pattern, titleCase(ingredient))
}

// titleCase uppercases the first letter of each word. ASCII only,
// which is all the test data needs.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		if word[0] >= 'a' && word[0] <= 'z' {
			words[i] = string(word[0]-32) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

// CatalogCSV accumulates rows in the catalog file format the ingest
// loader reads
type CatalogCSV struct {
	rows []string
}

// NewCatalogCSV creates an empty catalog with the standard header
func NewCatalogCSV() *CatalogCSV {
	return &CatalogCSV{rows: []string{"store_id,ingredient,title,brand,price,size,organic"}}
}

// AddRow appends one product row
func (c *CatalogCSV) AddRow(storeID, ingredient, title, brand string, price float64, size string, organic bool) *CatalogCSV {
	c.rows = append(c.rows, fmt.Sprintf("%s,%s,%s,%s,%.2f,%s,%t",
		storeID, ingredient, title, brand, price, size, organic))
	return c
}

// AddRawRow appends an unformatted line, for malformed-row tests
func (c *CatalogCSV) AddRawRow(line string) *CatalogCSV {
	c.rows = append(c.rows, line)
	return c
}

// String renders the catalog file contents
func (c *CatalogCSV) String() string {
	return strings.Join(c.rows, "\n") + "\n"
}

// WriteFile writes the catalog into a temp directory and returns its path
func (c *CatalogCSV) WriteFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.csv")
	require.NoError(t, os.WriteFile(path, []byte(c.String()), 0o644))
	return path
}

// StandardCatalogCSV returns a small two-store catalog with enough
// variety to exercise retrieval, scoring, brand rules, and the cheaper
// swap.
func StandardCatalogCSV() *CatalogCSV {
	return NewCatalogCSV().
		AddRow("store-a", "turmeric", "Ground Turmeric Powder", "Harvest Lane", 3.49, "100g", false).
		AddRow("store-b", "turmeric", "Organic Turmeric Powder in Glass Jar", "Pure Origins", 5.99, "80g", true).
		AddRow("store-b", "turmeric", "Whole Turmeric Root", "Pure Origins", 4.29, "150g", true).
		AddRow("store-a", "onion", "Yellow Onion", "", 0.89, "each", false).
		AddRow("store-a", "onion", "Organic Yellow Onion", "Harvest Lane", 1.29, "each", true).
		AddRow("store-a", "spinach", "Organic Baby Spinach in Paper Carton", "Harvest Lane", 3.99, "5oz", true).
		AddRow("store-a", "spinach", "Baby Spinach Plastic Pouch", "Field Day", 2.49, "5oz", false).
		AddRow("store-b", "cardamom", "Green Cardamom Pods", "Spice Route", 6.99, "50g", false).
		AddRow("store-b", "cumin", "Whole Cumin Seeds", "Spice Route", 2.99, "100g", false).
		AddRow("store-b", "fenugreek", "Dried Fenugreek Leaves", "Spice Route", 3.49, "40g", false)
}

// Cleanup provides cleanup utilities for tests
type Cleanup struct {
	funcs []func()
}

// NewCleanup creates a new cleanup helper
func NewCleanup() *Cleanup {
	return &Cleanup{funcs: make([]func(), 0)}
}

// Add adds a cleanup function
func (c *Cleanup) Add(f func()) {
	c.funcs = append(c.funcs, f)
}

// Execute runs all cleanup functions in reverse order
func (c *Cleanup) Execute() {
	for i := len(c.funcs) - 1; i >= 0; i-- {
		c.funcs[i]()
	}
}

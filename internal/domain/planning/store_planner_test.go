package planning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartwise/v3/internal/domain/catalog"
)

func newTestPlanner() *StorePlanner {
	return NewStorePlanner(DefaultEngineConfig(), testRegistry())
}

func TestStorePlannerPicksHighestCoverage(t *testing.T) {
	req := planRequest("rice", "cumin", "lentil")
	pools := map[string][]catalog.Candidate{
		"rice":   {testCandidate("r1", "store-a", "rice", 4.00), testCandidate("r2", "store-b", "rice", 4.50)},
		"cumin":  {testCandidate("c1", "store-a", "cumin", 3.00)},
		"lentil": {testCandidate("l1", "store-a", "lentil", 2.00), testCandidate("l2", "store-b", "lentil", 2.20)},
	}

	plan, assigned := newTestPlanner().Plan(req, pools, testStores())

	require.Len(t, plan.Stores, 1)
	assert.Equal(t, "store-a", plan.Stores[0].Store.ID)
	assert.Equal(t, StoreRolePrimary, plan.Stores[0].Role)
	assert.Equal(t, map[string]string{"rice": "store-a", "cumin": "store-a", "lentil": "store-a"}, assigned)
	assert.Empty(t, plan.Unavailable)
}

func TestStorePlannerBreaksTiesByStoreID(t *testing.T) {
	req := planRequest("rice", "lentil")
	pools := map[string][]catalog.Candidate{
		"rice":   {testCandidate("r1", "store-a", "rice", 4.00), testCandidate("r2", "store-b", "rice", 4.00)},
		"lentil": {testCandidate("l1", "store-a", "lentil", 2.00), testCandidate("l2", "store-b", "lentil", 2.00)},
	}

	plan, _ := newTestPlanner().Plan(req, pools, testStores())

	require.Len(t, plan.Stores, 1)
	assert.Equal(t, "store-a", plan.Stores[0].Store.ID)
}

func TestStorePlannerDiscountsPrivateLabelReliance(t *testing.T) {
	// store-b covers more ingredients but three of its four matches are
	// its own Verde Selects label, so its coverage score is marked down
	// below store-a's smaller but independent assortment.
	req := planRequest("rice", "cumin", "lentil")
	pools := map[string][]catalog.Candidate{
		"rice": {
			testCandidate("r1", "store-a", "rice", 4.00),
			testCandidate("r2", "store-b", "rice", 4.50, withBrand("Verde Selects")),
		},
		"cumin": {
			testCandidate("c1", "store-a", "cumin", 3.00),
			testCandidate("c2", "store-b", "cumin", 3.10, withBrand("Verde Selects")),
		},
		"lentil": {
			testCandidate("l1", "store-b", "lentil", 2.20, withBrand("Verde Selects")),
			testCandidate("l2", "store-b", "lentil", 2.40),
		},
	}

	plan, assigned := newTestPlanner().Plan(req, pools, testStores())

	require.Len(t, plan.Stores, 1)
	assert.Equal(t, "store-a", plan.Stores[0].Store.ID)
	// Lentil has no store-a coverage and no specialty fallback, so it
	// folds into the primary store anyway.
	assert.Equal(t, "store-a", assigned["lentil"])
}

func TestStorePlannerRewardsPremiumProteins(t *testing.T) {
	req := planRequest("chicken", "rice")
	pools := map[string][]catalog.Candidate{
		"chicken": {
			testCandidate("ch1", "store-a", "chicken", 9.00),
			testCandidate("ch2", "store-b", "chicken", 11.00, withBrand("Saltspring Farms")),
		},
		"rice": {
			testCandidate("r1", "store-a", "rice", 4.00),
			testCandidate("r2", "store-b", "rice", 4.50),
		},
	}

	plan, _ := newTestPlanner().Plan(req, pools, testStores())

	require.Len(t, plan.Stores, 1)
	assert.Equal(t, "store-b", plan.Stores[0].Store.ID)
}

func TestStorePlannerAddsSpecialtyStoreAtThreshold(t *testing.T) {
	req := planRequest("rice", "lentil", "sumac", "asafoetida", "fenugreek")
	pools := map[string][]catalog.Candidate{
		"rice":       {testCandidate("r1", "store-a", "rice", 4.00)},
		"lentil":     {testCandidate("l1", "store-a", "lentil", 2.00)},
		"sumac":      {testCandidate("s1", "store-s", "sumac", 5.00, withBrand("Spice Route"))},
		"asafoetida": {testCandidate("a1", "store-s", "asafoetida", 6.00)},
		"fenugreek":  {testCandidate("f1", "store-s", "fenugreek", 3.50)},
	}

	plan, assigned := newTestPlanner().Plan(req, pools, testStores())

	require.Len(t, plan.Stores, 2)
	assert.Equal(t, StoreRolePrimary, plan.Stores[0].Role)
	assert.Equal(t, "store-a", plan.Stores[0].Store.ID)
	assert.Equal(t, StoreRoleSpecialty, plan.Stores[1].Role)
	assert.Equal(t, "store-s", plan.Stores[1].Store.ID)

	assert.Equal(t, "store-s", assigned["sumac"])
	assert.Equal(t, "store-s", assigned["asafoetida"])
	assert.Equal(t, "store-s", assigned["fenugreek"])

	require.Len(t, plan.Assignments, 2)
	assert.Equal(t, []string{"rice", "lentil"}, plan.Assignments[0].IngredientNames)
	assert.Equal(t, []string{"sumac", "asafoetida", "fenugreek"}, plan.Assignments[1].IngredientNames)
}

func TestStorePlannerFoldsBelowSpecialtyThreshold(t *testing.T) {
	// Only two ingredients need the specialty store, which is not worth
	// a second trip. They fold into the primary store and surface as
	// unavailable lines once filtering runs there.
	req := planRequest("rice", "lentil", "sumac", "asafoetida")
	pools := map[string][]catalog.Candidate{
		"rice":       {testCandidate("r1", "store-a", "rice", 4.00)},
		"lentil":     {testCandidate("l1", "store-a", "lentil", 2.00)},
		"sumac":      {testCandidate("s1", "store-s", "sumac", 5.00)},
		"asafoetida": {testCandidate("a1", "store-s", "asafoetida", 6.00)},
	}

	plan, assigned := newTestPlanner().Plan(req, pools, testStores())

	require.Len(t, plan.Stores, 1)
	assert.Equal(t, "store-a", plan.Stores[0].Store.ID)
	assert.Equal(t, "store-a", assigned["sumac"])
	assert.Equal(t, "store-a", assigned["asafoetida"])
}

func TestStorePlannerZeroCoverageEverywhere(t *testing.T) {
	req := planRequest("dragonfruit", "durian")
	pools := map[string][]catalog.Candidate{}

	plan, assigned := newTestPlanner().Plan(req, pools, testStores())

	assert.Empty(t, plan.Stores)
	assert.Empty(t, plan.Assignments)
	assert.Empty(t, assigned)
	assert.Equal(t, []string{"dragonfruit", "durian"}, plan.Unavailable)
}

func TestStorePlannerMarksUncoveredIngredientUnavailable(t *testing.T) {
	req := planRequest("rice", "dragonfruit")
	pools := map[string][]catalog.Candidate{
		"rice": {testCandidate("r1", "store-a", "rice", 4.00)},
	}

	plan, assigned := newTestPlanner().Plan(req, pools, testStores())

	require.Len(t, plan.Stores, 1)
	assert.Equal(t, []string{"dragonfruit"}, plan.Unavailable)
	assert.Equal(t, "store-a", assigned["rice"])
	_, routed := assigned["dragonfruit"]
	assert.False(t, routed)
}

func TestStorePlannerSpecialtyStoreCanAnchorAlone(t *testing.T) {
	// When no general store stocks anything, the specialty store takes
	// the primary role rather than failing the whole plan.
	req := planRequest("sumac", "asafoetida")
	pools := map[string][]catalog.Candidate{
		"sumac":      {testCandidate("s1", "store-s", "sumac", 5.00)},
		"asafoetida": {testCandidate("a1", "store-s", "asafoetida", 6.00)},
	}

	plan, assigned := newTestPlanner().Plan(req, pools, testStores())

	require.Len(t, plan.Stores, 1)
	assert.Equal(t, "store-s", plan.Stores[0].Store.ID)
	assert.Equal(t, StoreRolePrimary, plan.Stores[0].Role)
	assert.Equal(t, "store-s", assigned["sumac"])
}

func TestStorePlannerIgnoresUnknownStores(t *testing.T) {
	// Candidates referencing store IDs outside the roster cannot carry
	// coverage on their own.
	req := planRequest("rice")
	pools := map[string][]catalog.Candidate{
		"rice": {testCandidate("r1", "store-zz", "rice", 4.00)},
	}

	plan, assigned := newTestPlanner().Plan(req, pools, testStores())

	assert.Empty(t, plan.Stores)
	assert.Empty(t, assigned)
	assert.Equal(t, []string{"rice"}, plan.Unavailable)
}

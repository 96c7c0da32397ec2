package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cartwise/v3/internal/domain/catalog"
)

func testRoster() map[string]catalog.Store {
	return map[string]catalog.Store{
		"store-a": {ID: "store-a", Name: "Greenfield Market", Kind: catalog.StoreKindGeneral, DeliveryDays: 2},
		"store-b": {ID: "store-b", Name: "Harvest Depot", Kind: catalog.StoreKindGeneral, DeliveryDays: 9},
	}
}

const sampleCatalog = `store_id,ingredient,title,brand,price,size,organic
store-a,Turmeric,Organic Turmeric Powder,Bluebird Pantry,$7.49,4 oz,true
store-a,Turmeric,Turmeric Powder,Housemark,3.99,4 oz,false
store-b,Green Onions,Fresh Green Onion Bunch,,1.49,1 bunch,USDA Organic
store-c,Cumin,Ground Cumin,,2.99,2 oz,false
store-a,Paprika,Smoked Paprika in Glass Jar,Spice Route,n/a,2 oz,false
store-a,,Mystery Powder,,2.99,2 oz,false
store-a,Rice,Basmati Rice,Bluebird Pantry,5.99,,false
`

func TestParseCatalogGroupsRowsByIngredientKey(t *testing.T) {
	result, err := parseCatalog(strings.NewReader(sampleCatalog), testRoster(), zap.NewNop())
	require.NoError(t, err)

	// Unknown store, unparseable price, and missing ingredient are
	// skipped; everything else loads.
	assert.Equal(t, 4, result.loaded)
	assert.Equal(t, 3, result.skipped)

	require.Len(t, result.pools["turmeric"], 2)
	require.Len(t, result.pools["green onion"], 1)
	require.Len(t, result.pools["rice"], 1)
}

func TestParseCatalogBuildsCandidateFields(t *testing.T) {
	result, err := parseCatalog(strings.NewReader(sampleCatalog), testRoster(), zap.NewNop())
	require.NoError(t, err)

	organic := result.pools["turmeric"][0]
	assert.True(t, strings.HasPrefix(organic.ProductID, "store-a-"))
	assert.Equal(t, "store-a", organic.SourceStoreID)
	assert.Equal(t, "Bluebird Pantry", organic.Brand)
	assert.Equal(t, 7.49, organic.Price)
	assert.True(t, organic.Organic)
	assert.Equal(t, catalog.FormPowder, organic.Form)
	assert.Equal(t, 2, organic.DeliveryDays)
	assert.InDelta(t, 7.49/4, organic.UnitPrice, 1e-9)
	assert.Equal(t, catalog.UnitOunce, organic.UnitPriceUnit)

	bunch := result.pools["green onion"][0]
	assert.True(t, bunch.Organic, "certification text counts as organic")
	assert.Equal(t, 9, bunch.DeliveryDays)
	assert.Equal(t, catalog.UnitEach, bunch.UnitPriceUnit)
}

func TestParseCatalogKeepsRowsWithoutUnitPrice(t *testing.T) {
	// A blank size is not malformed; the engine's sanity constraint
	// reports the missing unit price where operators can see it.
	result, err := parseCatalog(strings.NewReader(sampleCatalog), testRoster(), zap.NewNop())
	require.NoError(t, err)

	rice := result.pools["rice"][0]
	assert.False(t, rice.HasUnitPrice())
	assert.Equal(t, 5.99, rice.Price)
}

func TestParseCatalogKeepsNonPositivePrices(t *testing.T) {
	input := "store_id,ingredient,title,brand,price,size,organic\n" +
		"store-a,Salt,Sea Salt,,0,10 oz,false\n"

	result, err := parseCatalog(strings.NewReader(input), testRoster(), zap.NewNop())
	require.NoError(t, err)

	require.Len(t, result.pools["salt"], 1)
	assert.Equal(t, 0.0, result.pools["salt"][0].Price)
}

func TestParseCatalogSkipsShortRows(t *testing.T) {
	input := "store_id,ingredient,title,brand,price,size,organic\n" +
		"store-a,Turmeric\n" +
		"store-a,Turmeric,Turmeric Powder,Housemark,3.99,4 oz,false\n"

	result, err := parseCatalog(strings.NewReader(input), testRoster(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, result.loaded)
	assert.Equal(t, 1, result.skipped)
}

func TestParseCatalogAcceptsAnyColumnOrder(t *testing.T) {
	input := "price,title,store_id,ingredient,organic,size,brand\n" +
		"3.99,Turmeric Powder,store-a,Turmeric,false,4 oz,Housemark\n"

	result, err := parseCatalog(strings.NewReader(input), testRoster(), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, result.pools["turmeric"], 1)
	assert.Equal(t, "Housemark", result.pools["turmeric"][0].Brand)
}

func TestParseCatalogRejectsMissingRequiredColumn(t *testing.T) {
	input := "store_id,ingredient,title,brand,size,organic\n"

	_, err := parseCatalog(strings.NewReader(input), testRoster(), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"price"`)
}

func TestProductIDIsStable(t *testing.T) {
	first, err := parseCatalog(strings.NewReader(sampleCatalog), testRoster(), zap.NewNop())
	require.NoError(t, err)
	second, err := parseCatalog(strings.NewReader(sampleCatalog), testRoster(), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, first.pools["turmeric"][0].ProductID, second.pools["turmeric"][0].ProductID)
	assert.NotEqual(t, first.pools["turmeric"][0].ProductID, first.pools["turmeric"][1].ProductID)
}

func TestParseOrganic(t *testing.T) {
	assert.True(t, parseOrganic("true"))
	assert.True(t, parseOrganic("YES"))
	assert.True(t, parseOrganic("USDA Organic"))
	assert.False(t, parseOrganic("false"))
	assert.False(t, parseOrganic(""))
	assert.False(t, parseOrganic("conventional"))
}

// Package testutils provides custom assertions and testing utilities
package testutils

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/cartwise/v3/internal/domain/catalog"
	"github.com/cartwise/v3/internal/domain/planning"
	"github.com/cartwise/v3/internal/ports/inbound"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// PlanAssertions provides plan-specific assertion methods
type PlanAssertions struct {
	t *testing.T
}

// NewPlanAssertions creates a new plan assertions helper
func NewPlanAssertions(t *testing.T) *PlanAssertions {
	return &PlanAssertions{t: t}
}

// ValidEnvelope asserts the envelope carries an identified, fingerprinted
// plan with one item per requested ingredient
func (pa *PlanAssertions) ValidEnvelope(envelope *inbound.PlanEnvelope, msgAndArgs ...interface{}) {
	require.NotNil(pa.t, envelope, "Plan envelope should not be nil")
	assert.NotEqual(pa.t, uuid.Nil, envelope.PlanID, "Plan should have an ID")
	assert.NotEmpty(pa.t, envelope.CatalogHash, "Plan should carry the catalog fingerprint")
	assert.Len(pa.t, envelope.Plan.Items, len(envelope.Plan.Ingredients),
		"Plan should carry one item per requested ingredient")
}

// Item finds the cart item for an ingredient name
func (pa *PlanAssertions) Item(plan *planning.CartPlan, name string) planning.CartItem {
	require.NotNil(pa.t, plan, "Plan should not be nil")
	key := catalog.NormalizeKey(name)
	for _, item := range plan.Items {
		if item.Ingredient.Key() == key {
			return item
		}
	}
	require.Failf(pa.t, "missing cart item", "plan has no item for ingredient %q", name)
	return planning.CartItem{}
}

// ItemAvailable asserts the ingredient resolved to a purchasable product
func (pa *PlanAssertions) ItemAvailable(plan *planning.CartPlan, name string) planning.CartItem {
	item := pa.Item(plan, name)
	assert.Equal(pa.t, planning.ItemStatusAvailable, item.Status, "item for %q should be available", name)
	require.NotNil(pa.t, item.Default, "available item for %q should carry a default pick", name)
	assert.NotEmpty(pa.t, item.StoreID, "available item for %q should be assigned a store", name)
	return item
}

// ItemUnavailable asserts the ingredient could not be sourced
func (pa *PlanAssertions) ItemUnavailable(plan *planning.CartPlan, name string) {
	item := pa.Item(plan, name)
	assert.Equal(pa.t, planning.ItemStatusUnavailable, item.Status, "item for %q should be unavailable", name)
	require.NotNil(pa.t, item.Default, "unavailable item for %q should keep a placeholder line", name)
	assert.Zero(pa.t, item.Default.Quantity, "placeholder for %q should carry quantity zero", name)
	assert.Empty(pa.t, item.StoreID, "unavailable item for %q should not be assigned a store", name)
}

// TotalsConsistent asserts the cart totals agree with the items
func (pa *PlanAssertions) TotalsConsistent(plan *planning.CartPlan, msgAndArgs ...interface{}) {
	require.NotNil(pa.t, plan, "Plan should not be nil")

	var ethical, savings float64
	for _, item := range plan.Items {
		if item.Status != planning.ItemStatusAvailable || item.Default == nil {
			continue
		}
		ethical += item.Default.Price
		if item.CheaperSwap != nil {
			savings += item.Default.Price - item.CheaperSwap.Price
		}
	}

	assert.InDelta(pa.t, ethical, plan.Totals.Ethical, 0.001, "ethical total should equal the sum of default picks")
	assert.InDelta(pa.t, ethical-savings, plan.Totals.Cheaper, 0.001, "cheaper total should reflect every swap")
	assert.InDelta(pa.t, plan.Totals.Ethical-plan.Totals.Cheaper, plan.Totals.Savings, 0.001,
		"savings should be the gap between the two carts")
	assert.GreaterOrEqual(pa.t, plan.Totals.Savings, -0.001, "cheaper cart should never cost more")
}

// StoresWithin asserts the trip uses at most max stores
func (pa *PlanAssertions) StoresWithin(plan *planning.CartPlan, max int, msgAndArgs ...interface{}) {
	require.NotNil(pa.t, plan, "Plan should not be nil")
	assert.LessOrEqual(pa.t, len(plan.StorePlan.Stores), max, msgAndArgs...)
}

// HTTPAssertions provides HTTP-specific assertion methods
type HTTPAssertions struct {
	t *testing.T
}

// NewHTTPAssertions creates a new HTTP assertions helper
func NewHTTPAssertions(t *testing.T) *HTTPAssertions {
	return &HTTPAssertions{t: t}
}

// StatusCode asserts the HTTP status code
func (ha *HTTPAssertions) StatusCode(resp *http.Response, expectedCode int, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, resp, "Response should not be nil")
	assert.Equal(ha.t, expectedCode, resp.StatusCode, msgAndArgs...)
}

// JSONResponse asserts that the response is valid JSON and unmarshals it
func (ha *HTTPAssertions) JSONResponse(resp *http.Response, target interface{}, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, resp, "Response should not be nil")

	contentType := resp.Header.Get("Content-Type")
	assert.True(ha.t, strings.Contains(contentType, "application/json"),
		"Response should have JSON content type, got: %s", contentType)

	err := json.NewDecoder(resp.Body).Decode(target)
	assert.NoError(ha.t, err, "Response should be valid JSON")
}

// SuccessEnvelope decodes the standard response envelope and asserts
// success, returning the raw data payload for further decoding
func (ha *HTTPAssertions) SuccessEnvelope(resp *http.Response) json.RawMessage {
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	ha.JSONResponse(resp, &envelope)
	assert.True(ha.t, envelope.Success, "Response should report success, got error: %s", envelope.Error)
	return envelope.Data
}

// ErrorResponse asserts the envelope reports a failure
func (ha *HTTPAssertions) ErrorResponse(resp *http.Response, expectedMessage string, msgAndArgs ...interface{}) {
	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	ha.JSONResponse(resp, &envelope)
	assert.False(ha.t, envelope.Success, "Response should report failure")

	if expectedMessage != "" {
		assert.Contains(ha.t, envelope.Error, expectedMessage, msgAndArgs...)
	}
}

// Header asserts that a header exists with expected value
func (ha *HTTPAssertions) Header(resp *http.Response, headerName, expectedValue string, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, resp, "Response should not be nil")
	assert.Equal(ha.t, expectedValue, resp.Header.Get(headerName), msgAndArgs...)
}

// HasHeader asserts that a header exists
func (ha *HTTPAssertions) HasHeader(resp *http.Response, headerName string, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, resp, "Response should not be nil")
	assert.NotEmpty(ha.t, resp.Header.Get(headerName), "Response should have header %s", headerName)
}

// SecurityHeaders asserts the headers the security middleware sets on
// every response
func (ha *HTTPAssertions) SecurityHeaders(resp *http.Response, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, resp, "Response should not be nil")

	for _, header := range []string{
		"X-Content-Type-Options",
		"X-Frame-Options",
		"Referrer-Policy",
	} {
		ha.HasHeader(resp, header, "Security header %s should be present", header)
	}
}

// DatabaseAssertions provides facts store assertions
type DatabaseAssertions struct {
	t  *testing.T
	db *TestDatabase
}

// NewDatabaseAssertions creates a new database assertions helper
func NewDatabaseAssertions(t *testing.T, db *TestDatabase) *DatabaseAssertions {
	return &DatabaseAssertions{t: t, db: db}
}

// RecordExists asserts that a record exists in the database
func (da *DatabaseAssertions) RecordExists(table, whereClause string, args ...interface{}) {
	helper := NewDatabaseHelper(da.db)
	exists, err := helper.RecordExists(table, whereClause, args...)
	require.NoError(da.t, err, "Failed to check if record exists")
	assert.True(da.t, exists, "Record should exist in table %s with condition %s", table, whereClause)
}

// RecordNotExists asserts that a record does not exist in the database
func (da *DatabaseAssertions) RecordNotExists(table, whereClause string, args ...interface{}) {
	helper := NewDatabaseHelper(da.db)
	exists, err := helper.RecordExists(table, whereClause, args...)
	require.NoError(da.t, err, "Failed to check if record exists")
	assert.False(da.t, exists, "Record should not exist in table %s with condition %s", table, whereClause)
}

// RecordCount asserts the number of records in a table
func (da *DatabaseAssertions) RecordCount(table string, expectedCount int, msgAndArgs ...interface{}) {
	helper := NewDatabaseHelper(da.db)
	count, err := helper.CountRecords(table)
	require.NoError(da.t, err, "Failed to count records")
	assert.Equal(da.t, expectedCount, count, msgAndArgs...)
}

// TableEmpty asserts that a table is empty
func (da *DatabaseAssertions) TableEmpty(table string, msgAndArgs ...interface{}) {
	da.RecordCount(table, 0, msgAndArgs...)
}

// MeasureTime measures the execution time of fn
func MeasureTime(fn func()) time.Duration {
	start := time.Now()
	fn()
	return time.Since(start)
}

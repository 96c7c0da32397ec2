package planning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartwise/v3/internal/domain/catalog"
)

func TestConstraintFilterRejectionOrder(t *testing.T) {
	filter := NewConstraintFilter(testRegistry())

	t.Run("wrong store outranks every other violation", func(t *testing.T) {
		// The candidate is also a recalled private label with garbage
		// pricing; the recorded reason must still be store enforcement.
		c := testCandidate("p1", "store-b", "peanut", 0, withBrand("Housemark"), withUnitPrice(0))
		facts := NewStaticFacts(map[string]RecallStatus{"peanut": RecallStatusRecalled}, nil)

		result := filter.Apply([]catalog.Candidate{c}, "store-a", catalog.FormUnknown, facts)

		require.Empty(t, result.Survivors)
		require.Len(t, result.Eliminated, 1)
		assert.Equal(t, RejectionStoreEnforcement, result.Eliminated[0].Reason)
	})

	t.Run("private label outside its home store", func(t *testing.T) {
		// Housemark is exclusive to store-a, so a Housemark row sourced
		// from store-b is catalog noise even when store-b is assigned.
		c := testCandidate("p1", "store-b", "rice", 4.00, withBrand("Housemark"))

		result := filter.Apply([]catalog.Candidate{c}, "store-b", catalog.FormUnknown, noFacts())

		require.Len(t, result.Eliminated, 1)
		assert.Equal(t, RejectionPrivateLabelViolation, result.Eliminated[0].Reason)
	})

	t.Run("recall beats sanity", func(t *testing.T) {
		c := testCandidate("p1", "store-a", "peanut", -1, withUnitPrice(0))
		facts := NewStaticFacts(map[string]RecallStatus{"peanut": RecallStatusRecalled}, nil)

		result := filter.Apply([]catalog.Candidate{c}, "store-a", catalog.FormUnknown, facts)

		require.Len(t, result.Eliminated, 1)
		assert.Equal(t, RejectionRecallMatch, result.Eliminated[0].Reason)
	})

	t.Run("sanity beats form", func(t *testing.T) {
		c := testCandidate("p1", "store-a", "basil", 4.00, withForm(catalog.FormPowder), withUnitPrice(0))

		result := filter.Apply([]catalog.Candidate{c}, "store-a", catalog.FormLeaves, noFacts())

		require.Len(t, result.Eliminated, 1)
		assert.Equal(t, RejectionSanityCheckFailed, result.Eliminated[0].Reason)
	})
}

func TestConstraintFilterRecallMatching(t *testing.T) {
	filter := NewConstraintFilter(testRegistry())

	t.Run("matches by ingredient key", func(t *testing.T) {
		c := testCandidate("p1", "store-a", "peanut", 4.00)
		facts := NewStaticFacts(map[string]RecallStatus{"Peanuts": RecallStatusRecalled}, nil)

		result := filter.Apply([]catalog.Candidate{c}, "store-a", catalog.FormUnknown, facts)

		require.Len(t, result.Eliminated, 1)
		assert.Equal(t, RejectionRecallMatch, result.Eliminated[0].Reason)
	})

	t.Run("matches by brand", func(t *testing.T) {
		c := testCandidate("p1", "store-a", "rice", 4.00, withBrand("Sunrise Mills"))
		facts := NewStaticFacts(map[string]RecallStatus{"sunrise mills": RecallStatusRecalled}, nil)

		result := filter.Apply([]catalog.Candidate{c}, "store-a", catalog.FormUnknown, facts)

		require.Len(t, result.Eliminated, 1)
		assert.Equal(t, RejectionRecallMatch, result.Eliminated[0].Reason)
	})

	t.Run("safe status passes", func(t *testing.T) {
		c := testCandidate("p1", "store-a", "rice", 4.00)
		facts := NewStaticFacts(map[string]RecallStatus{"rice": RecallStatusSafe}, nil)

		result := filter.Apply([]catalog.Candidate{c}, "store-a", catalog.FormUnknown, facts)

		assert.Len(t, result.Survivors, 1)
		assert.Empty(t, result.Eliminated)
	})
}

func TestConstraintFilterSanityChecks(t *testing.T) {
	filter := NewConstraintFilter(testRegistry())

	tests := []struct {
		name   string
		mutate func(*catalog.Candidate)
	}{
		{"zero price", func(c *catalog.Candidate) { c.Price = 0 }},
		{"negative price", func(c *catalog.Candidate) { c.Price = -2 }},
		{"missing unit price", func(c *catalog.Candidate) { c.UnitPrice = 0 }},
		{"absurd unit price", func(c *catalog.Candidate) { c.UnitPrice = 1500 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testCandidate("p1", "store-a", "rice", 4.00, tt.mutate)

			result := filter.Apply([]catalog.Candidate{c}, "store-a", catalog.FormUnknown, noFacts())

			require.Len(t, result.Eliminated, 1)
			assert.Equal(t, RejectionSanityCheckFailed, result.Eliminated[0].Reason)
		})
	}
}

func TestConstraintFilterFormExclusions(t *testing.T) {
	filter := NewConstraintFilter(testRegistry())

	tests := []struct {
		name      string
		requested catalog.Form
		have      catalog.Form
		rejected  bool
	}{
		{"fresh request rejects powder", catalog.FormFresh, catalog.FormPowder, true},
		{"fresh request rejects granules", catalog.FormFresh, catalog.FormGranules, true},
		{"fresh request rejects dried", catalog.FormFresh, catalog.FormDried, true},
		{"leaves request rejects powder", catalog.FormLeaves, catalog.FormPowder, true},
		{"fresh request keeps whole", catalog.FormFresh, catalog.FormWhole, false},
		{"powder request keeps whole", catalog.FormPowder, catalog.FormWhole, false},
		{"unknown request keeps everything", catalog.FormUnknown, catalog.FormPowder, false},
		{"unknown candidate form survives", catalog.FormFresh, catalog.FormUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testCandidate("p1", "store-a", "ginger", 4.00, withForm(tt.have))

			result := filter.Apply([]catalog.Candidate{c}, "store-a", tt.requested, noFacts())

			if tt.rejected {
				require.Len(t, result.Eliminated, 1)
				assert.Equal(t, RejectionFormMismatch, result.Eliminated[0].Reason)
			} else {
				assert.Len(t, result.Survivors, 1)
			}
		})
	}
}

func TestConstraintFilterPreservesPoolOrder(t *testing.T) {
	filter := NewConstraintFilter(testRegistry())
	pool := []catalog.Candidate{
		testCandidate("keep-1", "store-a", "rice", 4.00),
		testCandidate("drop", "store-b", "rice", 3.00),
		testCandidate("keep-2", "store-a", "rice", 5.00),
	}

	result := filter.Apply(pool, "store-a", catalog.FormUnknown, noFacts())

	require.Len(t, result.Survivors, 2)
	assert.Equal(t, "keep-1", result.Survivors[0].ProductID)
	assert.Equal(t, "keep-2", result.Survivors[1].ProductID)
	require.Len(t, result.Eliminated, 1)
	assert.Equal(t, "drop", result.Eliminated[0].Candidate.ProductID)
}

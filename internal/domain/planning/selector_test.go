package planning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartwise/v3/internal/domain/catalog"
)

func newTestSelector() *Selector {
	return NewSelector(DefaultEngineConfig(), testRegistry())
}

func TestSelectorRanksByScore(t *testing.T) {
	// The organic candidate takes the residue reward and wins; the
	// bargain candidate keeps the unit-value edge but cannot close an
	// eighteen-point gap.
	pool := []catalog.Candidate{
		testCandidate("bargain", "store-a", "spinach", 2.00),
		testCandidate("organic", "store-a", "spinach", 4.00, organic()),
	}
	facts := NewStaticFacts(nil, map[string]ResidueCategory{"spinach": ResidueCategoryHigh})

	sel, result := newTestSelector().Select(pool, "store-a", catalog.FormUnknown, ResidueCategoryHigh, facts)

	require.NotNil(t, sel)
	assert.Len(t, result.Survivors, 2)
	assert.Equal(t, "organic", sel.Default.Candidate.ProductID)
	assert.Equal(t, "bargain", sel.Ranked[1].Candidate.ProductID)
}

func TestSelectorTieBreaks(t *testing.T) {
	t.Run("organic wins equal totals", func(t *testing.T) {
		// Identical candidates except the organic flag; unknown residue
		// keeps the flag out of the score so the totals tie.
		pool := []catalog.Candidate{
			testCandidate("conventional", "store-a", "rice", 4.00),
			testCandidate("organic-pick", "store-a", "rice", 4.00, organic()),
		}

		sel, _ := newTestSelector().Select(pool, "store-a", catalog.FormUnknown, ResidueCategoryUnknown, noFacts())

		require.NotNil(t, sel)
		assert.Equal(t, "organic-pick", sel.Default.Candidate.ProductID)
	})

	t.Run("cheaper price wins when all else ties", func(t *testing.T) {
		// Same unit price so the value ramp ties; shelf price differs.
		pool := []catalog.Candidate{
			testCandidate("large", "store-a", "rice", 8.00, withUnitPrice(0.50)),
			testCandidate("small", "store-a", "rice", 4.00, withUnitPrice(0.50)),
		}

		sel, _ := newTestSelector().Select(pool, "store-a", catalog.FormUnknown, ResidueCategoryUnknown, noFacts())

		require.NotNil(t, sel)
		assert.Equal(t, "small", sel.Default.Candidate.ProductID)
	})

	t.Run("product id settles perfect ties", func(t *testing.T) {
		pool := []catalog.Candidate{
			testCandidate("b-item", "store-a", "rice", 4.00),
			testCandidate("a-item", "store-a", "rice", 4.00),
		}

		sel, _ := newTestSelector().Select(pool, "store-a", catalog.FormUnknown, ResidueCategoryUnknown, noFacts())

		require.NotNil(t, sel)
		assert.Equal(t, "a-item", sel.Default.Candidate.ProductID)
	})
}

func TestSelectorCheaperSwap(t *testing.T) {
	t.Run("surfaces a materially cheaper alternative", func(t *testing.T) {
		pool := []catalog.Candidate{
			testCandidate("premium", "store-a", "spinach", 6.00, organic()),
			testCandidate("budget", "store-a", "spinach", 3.00),
		}
		facts := NewStaticFacts(nil, map[string]ResidueCategory{"spinach": ResidueCategoryHigh})

		sel, _ := newTestSelector().Select(pool, "store-a", catalog.FormUnknown, ResidueCategoryHigh, facts)

		require.NotNil(t, sel)
		assert.Equal(t, "premium", sel.Default.Candidate.ProductID)
		require.NotNil(t, sel.Swap)
		assert.Equal(t, "budget", sel.Swap.Candidate.ProductID)
	})

	t.Run("ignores a swap under the materiality bar", func(t *testing.T) {
		// 5.55 is only 7.5% below 6.00, close enough to not matter.
		pool := []catalog.Candidate{
			testCandidate("premium", "store-a", "spinach", 6.00, organic()),
			testCandidate("near-price", "store-a", "spinach", 5.55),
		}
		facts := NewStaticFacts(nil, map[string]ResidueCategory{"spinach": ResidueCategoryHigh})

		sel, _ := newTestSelector().Select(pool, "store-a", catalog.FormUnknown, ResidueCategoryHigh, facts)

		require.NotNil(t, sel)
		assert.Nil(t, sel.Swap)
	})

	t.Run("swap at exactly ten percent qualifies", func(t *testing.T) {
		pool := []catalog.Candidate{
			testCandidate("premium", "store-a", "spinach", 6.00, organic()),
			testCandidate("tenth-off", "store-a", "spinach", 5.40),
		}
		facts := NewStaticFacts(nil, map[string]ResidueCategory{"spinach": ResidueCategoryHigh})

		sel, _ := newTestSelector().Select(pool, "store-a", catalog.FormUnknown, ResidueCategoryHigh, facts)

		require.NotNil(t, sel)
		require.NotNil(t, sel.Swap)
		assert.Equal(t, "tenth-off", sel.Swap.Candidate.ProductID)
	})
}

func TestSelectorEmptySurvivorsReturnsNil(t *testing.T) {
	pool := []catalog.Candidate{
		testCandidate("elsewhere", "store-b", "rice", 4.00),
	}

	sel, result := newTestSelector().Select(pool, "store-a", catalog.FormUnknown, ResidueCategoryUnknown, noFacts())

	assert.Nil(t, sel)
	require.Len(t, result.Eliminated, 1)
	assert.Equal(t, RejectionStoreEnforcement, result.Eliminated[0].Reason)
}

func TestSelectorDeterministicAcrossRuns(t *testing.T) {
	pool := []catalog.Candidate{
		testCandidate("p3", "store-a", "rice", 5.00),
		testCandidate("p1", "store-a", "rice", 4.00, organic()),
		testCandidate("p2", "store-a", "rice", 4.00),
	}

	first, _ := newTestSelector().Select(pool, "store-a", catalog.FormUnknown, ResidueCategoryUnknown, noFacts())
	second, _ := newTestSelector().Select(pool, "store-a", catalog.FormUnknown, ResidueCategoryUnknown, noFacts())

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, first, second)
}

package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantValue float64
		wantUnit  Unit
		wantOK    bool
	}{
		{"simple ounces", "5 oz", 5, UnitOunce, true},
		{"decimal pounds", "1.5 lb", 1.5, UnitPound, true},
		{"no space grams", "250g", 250, UnitGram, true},
		{"fluid ounces", "12 fl oz", 12, UnitFluidOunce, true},
		{"multi pack", "2 x 8 oz", 16, UnitOunce, true},
		{"count", "6 ct", 6, UnitEach, true},
		{"bunch", "1 bunch", 1, UnitBunch, true},
		{"unit aliases", "2 pounds", 2, UnitPound, true},
		{"garbage", "family size", 0, UnitUnknown, false},
		{"empty", "", 0, UnitUnknown, false},
		{"zero value", "0 oz", 0, UnitUnknown, false},
		{"value without unit", "12", 0, UnitUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, ok := ParseSize(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.wantValue, size.Value, 1e-9)
				assert.Equal(t, tt.wantUnit, size.Unit)
			}
		})
	}
}

func TestUnitPrice(t *testing.T) {
	t.Run("weight normalizes to per ounce", func(t *testing.T) {
		unitPrice, unit, ok := UnitPrice(8.00, Size{Value: 1, Unit: UnitPound})
		require.True(t, ok)
		assert.Equal(t, CanonicalWeight, unit)
		assert.InDelta(t, 0.50, unitPrice, 1e-9)
	})

	t.Run("grams and ounces are comparable", func(t *testing.T) {
		perOzFromGrams, _, ok := UnitPrice(5.00, Size{Value: 283.495, Unit: UnitGram})
		require.True(t, ok)
		perOzDirect, _, ok := UnitPrice(5.00, Size{Value: 10, Unit: UnitOunce})
		require.True(t, ok)
		assert.InDelta(t, perOzDirect, perOzFromGrams, 1e-6)
	})

	t.Run("volume normalizes to per fluid ounce", func(t *testing.T) {
		unitPrice, unit, ok := UnitPrice(3.00, Size{Value: 1, Unit: UnitLiter})
		require.True(t, ok)
		assert.Equal(t, CanonicalVolume, unit)
		assert.InDelta(t, 3.00/(1000.0/29.5735), unitPrice, 1e-9)
	})

	t.Run("count prices per each", func(t *testing.T) {
		unitPrice, unit, ok := UnitPrice(4.50, Size{Value: 6, Unit: UnitEach})
		require.True(t, ok)
		assert.Equal(t, CanonicalCount, unit)
		assert.InDelta(t, 0.75, unitPrice, 1e-9)
	})

	t.Run("rejects unusable inputs", func(t *testing.T) {
		_, _, ok := UnitPrice(0, Size{Value: 5, Unit: UnitOunce})
		assert.False(t, ok)
		_, _, ok = UnitPrice(5, Size{Value: 0, Unit: UnitOunce})
		assert.False(t, ok)
		_, _, ok = UnitPrice(5, Size{Value: 5, Unit: UnitUnknown})
		assert.False(t, ok)
	})
}

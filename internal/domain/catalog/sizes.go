package catalog

import (
	"strconv"
	"strings"
)

// Unit represents a package size unit
type Unit string

const (
	UnitUnknown Unit = ""

	// Weight units
	UnitOunce    Unit = "oz"
	UnitPound    Unit = "lb"
	UnitGram     Unit = "g"
	UnitKilogram Unit = "kg"

	// Volume units
	UnitFluidOunce Unit = "fl_oz"
	UnitMilliliter Unit = "ml"
	UnitLiter      Unit = "l"

	// Count units
	UnitEach  Unit = "each"
	UnitBunch Unit = "bunch"
)

// Canonical comparison units per unit family. Every unit price is
// expressed in exactly one of these so candidates compare directly.
const (
	CanonicalWeight = UnitOunce
	CanonicalVolume = UnitFluidOunce
	CanonicalCount  = UnitEach
)

// toCanonical holds the multiplier that converts one source unit into
// its family's canonical unit.
var toCanonical = map[Unit]struct {
	factor    float64
	canonical Unit
}{
	UnitOunce:      {1, CanonicalWeight},
	UnitPound:      {16, CanonicalWeight},
	UnitGram:       {1.0 / 28.3495, CanonicalWeight},
	UnitKilogram:   {1000.0 / 28.3495, CanonicalWeight},
	UnitFluidOunce: {1, CanonicalVolume},
	UnitMilliliter: {1.0 / 29.5735, CanonicalVolume},
	UnitLiter:      {1000.0 / 29.5735, CanonicalVolume},
	UnitEach:       {1, CanonicalCount},
	UnitBunch:      {1, CanonicalCount},
}

var unitAliases = map[string]Unit{
	"oz":      UnitOunce,
	"ounce":   UnitOunce,
	"ounces":  UnitOunce,
	"lb":      UnitPound,
	"lbs":     UnitPound,
	"pound":   UnitPound,
	"pounds":  UnitPound,
	"g":       UnitGram,
	"gram":    UnitGram,
	"grams":   UnitGram,
	"kg":      UnitKilogram,
	"floz":    UnitFluidOunce,
	"ml":      UnitMilliliter,
	"l":       UnitLiter,
	"liter":   UnitLiter,
	"liters":  UnitLiter,
	"litre":   UnitLiter,
	"litres":  UnitLiter,
	"ct":      UnitEach,
	"count":   UnitEach,
	"each":    UnitEach,
	"ea":      UnitEach,
	"pc":      UnitEach,
	"pcs":     UnitEach,
	"piece":   UnitEach,
	"pieces":  UnitEach,
	"bunch":   UnitBunch,
	"bunches": UnitBunch,
}

// Size is a parsed package size
type Size struct {
	Value float64
	Unit  Unit
}

// ParseSize parses a raw catalog size string such as "5 oz", "1.5 lb",
// "250g", "12 fl oz", or "2 x 8 oz" into a Size. The boolean result is
// false when the string carries no usable value and unit; such
// candidates end up without a unit price.
func ParseSize(raw string) (Size, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return Size{}, false
	}

	// "fl oz" is the one two-word unit; fold it before tokenizing
	s = strings.ReplaceAll(s, "fl oz", "floz")
	s = strings.ReplaceAll(s, "fl. oz", "floz")

	tokens := splitSizeTokens(s)
	if len(tokens) == 0 {
		return Size{}, false
	}

	var (
		value    float64
		haveVal  bool
		unit     Unit
		haveUnit bool
	)

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok == "x" && haveVal && i+1 < len(tokens) {
			// multi-pack: "2 x 8" means 16 of whatever unit follows
			if next, err := strconv.ParseFloat(tokens[i+1], 64); err == nil {
				value *= next
				i++
				continue
			}
		}
		if v, err := strconv.ParseFloat(tok, 64); err == nil {
			if !haveVal {
				value = v
				haveVal = true
			}
			continue
		}
		if u, ok := unitAliases[tok]; ok && !haveUnit {
			unit = u
			haveUnit = true
		}
	}

	if !haveVal || !haveUnit || value <= 0 {
		return Size{}, false
	}
	return Size{Value: value, Unit: unit}, true
}

// splitSizeTokens separates digits from letters so "250g" tokenizes as
// ["250", "g"] and "1.5lb" as ["1.5", "lb"].
func splitSizeTokens(s string) []string {
	var tokens []string
	var current strings.Builder
	var numeric bool

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range s {
		switch {
		case (r >= '0' && r <= '9') || r == '.':
			if !numeric {
				flush()
				numeric = true
			}
			current.WriteRune(r)
		case (r >= 'a' && r <= 'z'):
			if numeric {
				flush()
				numeric = false
			}
			current.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}

// UnitPrice converts a package price and parsed size into a price per
// canonical unit. The boolean result is false when the unit has no
// canonical mapping or the inputs cannot produce a positive price.
func UnitPrice(price float64, size Size) (float64, Unit, bool) {
	conv, ok := toCanonical[size.Unit]
	if !ok || price <= 0 || size.Value <= 0 {
		return 0, UnitUnknown, false
	}
	canonicalQty := size.Value * conv.factor
	if canonicalQty <= 0 {
		return 0, UnitUnknown, false
	}
	return price / canonicalQty, conv.canonical, true
}

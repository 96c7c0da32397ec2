package ingest

import (
	"crypto/sha1"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/cartwise/v3/internal/domain/catalog"
)

// Catalog CSV column names. Header order is free; these names are not.
const (
	columnStoreID    = "store_id"
	columnIngredient = "ingredient"
	columnTitle      = "title"
	columnBrand      = "brand"
	columnPrice      = "price"
	columnSize       = "size"
	columnOrganic    = "organic"
)

var requiredColumns = []string{columnStoreID, columnIngredient, columnTitle, columnPrice}

// parseResult carries everything one parse pass produced.
type parseResult struct {
	pools   map[string][]catalog.Candidate
	loaded  int
	skipped int
}

// parseCatalog reads catalog rows and groups candidates by ingredient
// key. Structurally broken rows are skipped and logged; rows with silly
// prices survive so the engine's sanity constraint can report them.
func parseCatalog(r io.Reader, roster map[string]catalog.Store, logger *zap.Logger) (*parseResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read catalog header: %w", err)
	}
	columns, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	result := &parseResult{pools: make(map[string][]catalog.Candidate)}
	line := 1
	for {
		line++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Field-count mismatches are per-row trouble, not a dead
			// file.
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				result.skipped++
				logger.Warn("Skipping malformed catalog row",
					zap.Int("line", line),
					zap.Error(err),
				)
				continue
			}
			return nil, fmt.Errorf("read catalog row %d: %w", line, err)
		}

		candidate, reason := buildCandidate(record, columns, roster)
		if reason != "" {
			result.skipped++
			logger.Warn("Skipping catalog row",
				zap.Int("line", line),
				zap.String("reason", reason),
			)
			continue
		}

		result.pools[candidate.IngredientKey] = append(result.pools[candidate.IngredientKey], candidate)
		result.loaded++
	}

	return result, nil
}

// resolveColumns maps column names onto record indices.
func resolveColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("catalog header is missing the %q column", name)
		}
	}
	return columns, nil
}

// buildCandidate turns one record into a candidate. A non-empty reason
// means the row must be skipped.
func buildCandidate(record []string, columns map[string]int, roster map[string]catalog.Store) (catalog.Candidate, string) {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	storeID := field(columnStoreID)
	store, ok := roster[storeID]
	if !ok {
		return catalog.Candidate{}, fmt.Sprintf("unknown store %q", storeID)
	}

	price, err := parsePrice(field(columnPrice))
	if err != nil {
		return catalog.Candidate{}, fmt.Sprintf("unparseable price %q", field(columnPrice))
	}

	title := field(columnTitle)
	ingredient := field(columnIngredient)
	brand := field(columnBrand)
	rawSize := field(columnSize)

	candidate := catalog.Candidate{
		ProductID:     productID(storeID, ingredient, title, brand, rawSize),
		SourceStoreID: storeID,
		Brand:         brand,
		Title:         title,
		Price:         price,
		Organic:       parseOrganic(field(columnOrganic)),
		IngredientKey: catalog.NormalizeKey(ingredient),
		Form:          catalog.InferForm(title),
		Packaging:     catalog.ClassifyPackaging(title),
		DeliveryDays:  store.DeliveryDays,
	}

	if size, ok := catalog.ParseSize(rawSize); ok {
		candidate.SizeValue = size.Value
		candidate.SizeUnit = size.Unit
		if unitPrice, unit, ok := catalog.UnitPrice(price, size); ok {
			candidate.UnitPrice = unitPrice
			candidate.UnitPriceUnit = unit
		}
	}

	// Bad prices stay in the pool; the sanity constraint reports them
	// in the elimination trace where operators can see them.
	if err := candidate.Validate(); err != nil && !errors.Is(err, catalog.ErrNonPositivePrice) {
		return catalog.Candidate{}, err.Error()
	}
	return candidate, ""
}

// parsePrice accepts plain and dollar-prefixed decimal prices.
func parsePrice(raw string) (float64, error) {
	cleaned := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "$"))
	if cleaned == "" {
		return 0, fmt.Errorf("empty price")
	}
	return strconv.ParseFloat(cleaned, 64)
}

// parseOrganic reads the organic flag or certification column.
func parseOrganic(raw string) bool {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch v {
	case "true", "1", "yes", "y":
		return true
	}
	return strings.Contains(v, "organic")
}

// productID derives a stable identifier from row content so reloads of
// identical data keep identical IDs, which the deterministic ranking
// tiebreak depends on.
func productID(storeID, ingredient, title, brand, size string) string {
	sum := sha1.Sum([]byte(storeID + "|" + ingredient + "|" + title + "|" + brand + "|" + size))
	return storeID + "-" + hex.EncodeToString(sum[:4])
}

package catalog

import "errors"

// Domain errors for catalog records

var (
	ErrMissingProductID     = errors.New("candidate product id is required")
	ErrMissingStore         = errors.New("source store id is required")
	ErrBlankTitle           = errors.New("product title is required")
	ErrMissingIngredientKey = errors.New("ingredient key is required")
	ErrNonPositivePrice     = errors.New("price must be greater than 0")
	ErrUnparseableSize      = errors.New("size string could not be parsed")
	ErrInvalidStoreKind     = errors.New("store kind must be general or specialty")
)

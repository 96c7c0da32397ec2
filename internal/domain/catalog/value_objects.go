package catalog

import "strings"

// Value Objects - Immutable objects that describe aspects of the domain

// Form represents the physical form of an ingredient or product
type Form string

const (
	FormUnknown  Form = ""
	FormPowder   Form = "powder"
	FormSeeds    Form = "seeds"
	FormWhole    Form = "whole"
	FormFresh    Form = "fresh"
	FormLeaves   Form = "leaves"
	FormPods     Form = "pods"
	FormGranules Form = "granules"
	FormDried    Form = "dried"
)

// ParseForm maps a free-text form label to a known Form.
// Unrecognized labels map to FormUnknown rather than an error.
func ParseForm(s string) Form {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "powder", "ground":
		return FormPowder
	case "seed", "seeds":
		return FormSeeds
	case "whole":
		return FormWhole
	case "fresh":
		return FormFresh
	case "leaf", "leaves":
		return FormLeaves
	case "pod", "pods":
		return FormPods
	case "granules", "granulated":
		return FormGranules
	case "dried", "dehydrated":
		return FormDried
	default:
		return FormUnknown
	}
}

// formKeywords maps title substrings to inferred forms.
// Ordered so that the most specific markers win: "ground turmeric powder"
// must resolve to powder before a later keyword can claim it.
var formKeywords = []struct {
	keyword string
	form    Form
}{
	{"powder", FormPowder},
	{"ground", FormPowder},
	{"granulated", FormGranules},
	{"granules", FormGranules},
	{"dehydrated", FormDried},
	{"dried", FormDried},
	{"seeds", FormSeeds},
	{"seed", FormSeeds},
	{"pods", FormPods},
	{"pod", FormPods},
	{"leaves", FormLeaves},
	{"leaf", FormLeaves},
	{"fresh", FormFresh},
	{"whole", FormWhole},
}

// InferForm examines a product title and infers the product's form.
// Returns FormUnknown when no marker is present.
func InferForm(title string) Form {
	lower := strings.ToLower(title)
	for _, entry := range formKeywords {
		if containsWord(lower, entry.keyword) {
			return entry.form
		}
	}
	return FormUnknown
}

// Packaging classifies how a product is packaged, from best to worst
// for the packaging score component.
type Packaging string

const (
	PackagingUnknown           Packaging = ""
	PackagingGlass             Packaging = "glass"
	PackagingLoose             Packaging = "loose"
	PackagingPaper             Packaging = "paper"
	PackagingRecyclablePlastic Packaging = "recyclable_plastic"
	PackagingNonRecyclable     Packaging = "non_recyclable"
)

var packagingKeywords = []struct {
	keyword string
	class   Packaging
}{
	{"glass", PackagingGlass},
	{"loose", PackagingLoose},
	{"bulk", PackagingLoose},
	{"paper", PackagingPaper},
	{"carton", PackagingPaper},
	{"cardboard", PackagingPaper},
	{"recyclable", PackagingRecyclablePlastic},
	{"pet bottle", PackagingRecyclablePlastic},
	{"plastic", PackagingNonRecyclable},
	{"pouch", PackagingNonRecyclable},
	{"shrink", PackagingNonRecyclable},
}

// ClassifyPackaging infers the packaging class from a product title.
func ClassifyPackaging(title string) Packaging {
	lower := strings.ToLower(title)
	for _, entry := range packagingKeywords {
		if strings.Contains(lower, entry.keyword) {
			return entry.class
		}
	}
	return PackagingUnknown
}

// StoreKind distinguishes general-purpose stores from specialty ones
type StoreKind string

const (
	StoreKindGeneral   StoreKind = "general"
	StoreKindSpecialty StoreKind = "specialty"
)

// IsValid reports whether the store kind is a known value
func (k StoreKind) IsValid() bool {
	return k == StoreKindGeneral || k == StoreKindSpecialty
}

// containsWord reports whether s contains keyword as a whole word,
// so "ground" does not match inside "background".
func containsWord(s, keyword string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], keyword)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(keyword)
		beforeOK := start == 0 || !isLetter(s[start-1])
		afterOK := end == len(s) || !isLetter(s[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
		if idx >= len(s) {
			return false
		}
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// keyAliases folds common synonyms onto one canonical key. Entries are
// singular because plural stripping runs first.
var keyAliases = map[string]string{
	"scallion":      "green onion",
	"spring onion":  "green onion",
	"cilantro":      "coriander",
	"garbanzo bean": "chickpea",
	"courgette":     "zucchini",
	"aubergine":     "eggplant",
	"capsicum":      "bell pepper",
}

// NormalizeKey lowers, trims, and singularizes an ingredient name so
// catalog lookups are insensitive to casing, plural forms, and common
// synonyms.
func NormalizeKey(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.Join(strings.Fields(key), " ")

	switch {
	case strings.HasSuffix(key, "ies") && len(key) > 3:
		// berries -> berry
		key = key[:len(key)-3] + "y"
	case strings.HasSuffix(key, "oes") && len(key) > 3:
		// tomatoes -> tomato
		key = key[:len(key)-2]
	case strings.HasSuffix(key, "s") && !strings.HasSuffix(key, "ss") && len(key) > 1:
		key = key[:len(key)-1]
	}

	if alias, ok := keyAliases[key]; ok {
		return alias
	}
	return key
}

// NormalizeBrand canonicalizes a brand name for registry lookups.
func NormalizeBrand(brand string) string {
	return strings.ToLower(strings.Join(strings.Fields(brand), " "))
}

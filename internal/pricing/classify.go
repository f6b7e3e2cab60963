package pricing

import "strings"

// Kind is the promotion family a unit belongs to.
type Kind int

const (
	// KindOther never joins a category bundle.
	KindOther Kind = iota
	// KindPolo joins the polo bundles.
	KindPolo
	// KindTShirt joins the t-shirt bundles.
	KindTShirt
	// KindPants259 is a pants-like item sold at FixedPricePoint.
	KindPants259
	// KindGeneralPants joins the pants pair bundle.
	KindGeneralPants
)

// FixedPricePoint is the unit price (259 DHS) that has its own pair bundle.
const FixedPricePoint Money = 25900

var (
	tshirtNameKeywords     = []string{"t-shirt", "tshirt"}
	tshirtCategoryKeywords = []string{"t-shirt", "shirt"}
	pantsNameKeywords      = []string{"pantalon", "pants", "jean", "short"}
	pantsCategoryKeywords  = []string{"pantalon", "pants", "short"}
)

// String returns a stable lowercase name used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindPolo:
		return "polo"
	case KindTShirt:
		return "tshirt"
	case KindPants259:
		return "pants_259"
	case KindGeneralPants:
		return "general_pants"
	default:
		return "other"
	}
}

// Classify maps a product name, free-text category, and unit price to a Kind.
// Matching is case-insensitive on substrings; polo wins over t-shirt.
func Classify(name, category string, unitPrice Money) Kind {
	n := strings.ToLower(name)
	c := strings.ToLower(category)

	if strings.Contains(n, "polo") || strings.Contains(c, "polo") {
		return KindPolo
	}
	if containsAny(n, tshirtNameKeywords) || containsAny(c, tshirtCategoryKeywords) {
		return KindTShirt
	}
	if containsAny(n, pantsNameKeywords) || containsAny(c, pantsCategoryKeywords) {
		if unitPrice == FixedPricePoint {
			return KindPants259
		}
		return KindGeneralPants
	}
	return KindOther
}

func containsAny(value string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(value, kw) {
			return true
		}
	}
	return false
}

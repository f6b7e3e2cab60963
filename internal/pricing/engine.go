package pricing

import (
	"errors"
	"fmt"
	"sort"
)

// MaxLineQuantity bounds the quantity of a single line accepted by Validate.
const MaxLineQuantity = 999

// MaxUnitPrice bounds the unit price accepted by Validate (10,000,000 DHS),
// which keeps MaxLineQuantity × MaxUnitPrice far inside int64.
const MaxUnitPrice Money = 10_000_000 * 100

// ErrInvalidItem is returned by Validate for lines the engine should not price.
var ErrInvalidItem = errors.New("invalid pricing item")

// Item describes a cart line used for promotional pricing.
type Item struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	UnitPrice Money  `json:"unit_price"`
	Qty       int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

// Unit is one physical item exploded from a line.
type Unit struct {
	ProductID string
	Size      string
	Color     string
	Kind      Kind
	Price     Money
}

// Tier is one fixed-price grouping of a bundle rule.
type Tier struct {
	Size  int
	Price Money
	Code  string
	Label string
}

// Rule is a bundle pass over the unconsumed units matching Match. Tiers are
// tried largest first; the pass stops once no tier fits the remaining units.
type Rule struct {
	Name        string
	Match       func(Unit) bool
	SortByPrice bool
	Tiers       []Tier
}

// Applied records one promotion grouping that reduced the cart total.
type Applied struct {
	Code     string `json:"code"`
	Label    string `json:"label"`
	Discount Money  `json:"discount"`
}

// Summary aggregates the promotional pricing of a cart.
type Summary struct {
	RegularTotal      Money     `json:"regular_total"`
	PromotionalTotal  Money     `json:"promotional_total"`
	Savings           Money     `json:"savings"`
	AppliedPromotions []string  `json:"applied_promotions"`
	Breakdown         []Applied `json:"breakdown"`
}

// Engine evaluates bundle rules in order, then the separate-products discount.
type Engine struct {
	Rules []Rule
	// SeparateStep is granted once per distinct unbundled SKU beyond the first.
	SeparateStep Money
}

// SeparateProductsCode identifies the separate-products discount in breakdowns.
const SeparateProductsCode = "separate_products"

// DefaultRules returns the storefront bundle table in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:        "polo",
			Match:       func(u Unit) bool { return u.Kind == KindPolo },
			SortByPrice: true,
			Tiers: []Tier{
				{Size: 3, Price: Dirhams(400), Code: "polo_3", Label: "3 Polos pour 400 DHS"},
				{Size: 2, Price: Dirhams(300), Code: "polo_2", Label: "2 Polos pour 300 DHS"},
			},
		},
		{
			Name:        "tshirt",
			Match:       func(u Unit) bool { return u.Kind == KindTShirt },
			SortByPrice: true,
			Tiers: []Tier{
				{Size: 3, Price: Dirhams(400), Code: "tshirt_3", Label: "3 T-shirts pour 400 DHS"},
				{Size: 2, Price: Dirhams(300), Code: "tshirt_2", Label: "2 T-shirts pour 300 DHS"},
			},
		},
		{
			Name:  "fixed_259",
			Match: func(u Unit) bool { return u.Price == FixedPricePoint },
			Tiers: []Tier{
				{Size: 2, Price: Dirhams(480), Code: "fixed_259_2", Label: "2 articles à 259 DHS pour 480 DHS"},
			},
		},
		{
			Name:  "general_pants",
			Match: func(u Unit) bool { return u.Kind == KindGeneralPants },
			Tiers: []Tier{
				{Size: 2, Price: Dirhams(450), Code: "pants_2", Label: "2 Pantalons pour 450 DHS"},
			},
		},
	}
}

// Default returns the engine configured with the storefront promotions.
func Default() Engine {
	return Engine{Rules: DefaultRules(), SeparateStep: Dirhams(30)}
}

// Compute prices items with the default storefront promotions.
func Compute(items []Item) Summary {
	return Default().Compute(items)
}

// Validate reports the first line that is not a well-formed pricing input.
func Validate(items []Item) error {
	for i, it := range items {
		if it.Qty <= 0 || it.Qty > MaxLineQuantity {
			return fmt.Errorf("line %d: quantity must be between 1 and %d: %w", i, MaxLineQuantity, ErrInvalidItem)
		}
		if it.UnitPrice < 0 {
			return fmt.Errorf("line %d: unit price must not be negative: %w", i, ErrInvalidItem)
		}
		if it.UnitPrice > MaxUnitPrice {
			return fmt.Errorf("line %d: unit price must not exceed %s DHS: %w", i, FormatAmount(MaxUnitPrice), ErrInvalidItem)
		}
	}
	return nil
}

// Compute calculates the regular total, bundle and separate-products discounts.
// Lines with a non-positive quantity are ignored and negative prices count as zero.
func (e Engine) Compute(items []Item) Summary {
	pool := explode(items)
	summary := Summary{
		RegularTotal:      pool.total(),
		AppliedPromotions: []string{},
		Breakdown:         []Applied{},
	}

	var discount Money
	apply := func(a Applied) {
		discount += a.Discount
		summary.AppliedPromotions = append(summary.AppliedPromotions, a.Label)
		summary.Breakdown = append(summary.Breakdown, a)
	}

	for _, rule := range e.Rules {
		for _, a := range pool.bundle(rule) {
			apply(a)
		}
	}

	if distinct := pool.distinctUnconsumed(); distinct >= 2 && e.SeparateStep > 0 {
		amount := e.SeparateStep * Money(distinct-1)
		if remaining := summary.RegularTotal - discount; amount > remaining {
			amount = remaining
		}
		if amount > 0 {
			apply(Applied{
				Code:     SeparateProductsCode,
				Label:    fmt.Sprintf("Réduction produits séparés: -%s DHS", FormatShort(amount)),
				Discount: amount,
			})
		}
	}

	summary.Savings = discount
	summary.PromotionalTotal = summary.RegularTotal - discount
	return summary
}

type unitPool struct {
	units    []Unit
	consumed []bool
}

func explode(items []Item) *unitPool {
	p := &unitPool{}
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		price := it.UnitPrice
		if price < 0 {
			price = 0
		}
		kind := Classify(it.Name, it.Category, price)
		for i := 0; i < it.Qty; i++ {
			p.units = append(p.units, Unit{
				ProductID: it.ProductID,
				Size:      it.Size,
				Color:     it.Color,
				Kind:      kind,
				Price:     price,
			})
		}
	}
	p.consumed = make([]bool, len(p.units))
	return p
}

func (p *unitPool) total() Money {
	var sum Money
	for _, u := range p.units {
		sum += u.Price
	}
	return sum
}

// bundle consumes groups for rule and returns the groupings that saved money.
// A grouping priced above its regular sum is still consumed but not reported.
func (p *unitPool) bundle(rule Rule) []Applied {
	if rule.Match == nil || len(rule.Tiers) == 0 {
		return nil
	}
	candidates := make([]int, 0, len(p.units))
	for i, u := range p.units {
		if !p.consumed[i] && rule.Match(u) {
			candidates = append(candidates, i)
		}
	}
	if rule.SortByPrice {
		sort.SliceStable(candidates, func(a, b int) bool {
			return p.units[candidates[a]].Price < p.units[candidates[b]].Price
		})
	}

	var applied []Applied
	for pos := 0; pos < len(candidates); {
		tier, ok := fittingTier(rule.Tiers, len(candidates)-pos)
		if !ok {
			break
		}
		var regular Money
		for _, idx := range candidates[pos : pos+tier.Size] {
			regular += p.units[idx].Price
			p.consumed[idx] = true
		}
		pos += tier.Size
		if saved := regular - tier.Price; saved > 0 {
			applied = append(applied, Applied{Code: tier.Code, Label: tier.Label, Discount: saved})
		}
	}
	return applied
}

func fittingTier(tiers []Tier, remaining int) (Tier, bool) {
	for _, t := range tiers {
		if t.Size > 0 && t.Size <= remaining {
			return t, true
		}
	}
	return Tier{}, false
}

func (p *unitPool) distinctUnconsumed() int {
	seen := make(map[string]struct{})
	for i, u := range p.units {
		if p.consumed[i] {
			continue
		}
		seen[skuKey(u)] = struct{}{}
	}
	return len(seen)
}

func skuKey(u Unit) string {
	return LineID(u.ProductID, u.Size, u.Color)
}

// LineID builds the SKU identity of a product/size/color selection.
func LineID(productID, size, color string) string {
	if size == "" {
		size = "no-size"
	}
	if color == "" {
		color = "no-color"
	}
	return productID + "-" + size + "-" + color
}

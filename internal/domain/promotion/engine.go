package promotion

import (
	"time"

	"github.com/shopspring/decimal"
)

// Applicable returns summaries of the promotions that are active at now and
// whose scope covers productID, preserving input order.
func Applicable(productID string, promos []Promotion, now time.Time) []Info {
	out := make([]Info, 0)
	for i := range promos {
		p := &promos[i]
		if p.ActiveAt(now) && p.AppliesTo(productID) {
			out = append(out, infoOf(p))
		}
	}
	return out
}

// Best selects the single promotion used to price productID.
//
// Percentage promotions take precedence over absolute ones regardless of the
// resulting discount; within a proportion the highest DiscountAmount wins and
// ties keep the earliest promotion in input order. Scope (specific vs. all
// products) plays no part in the choice, and neither does originalPrice.
func Best(productID string, originalPrice decimal.Decimal, promos []Promotion, now time.Time) *Info {
	var bestPct, bestAbs *Promotion
	for i := range promos {
		p := &promos[i]
		if !p.ActiveAt(now) || !p.AppliesTo(productID) {
			continue
		}
		switch p.Proportion {
		case ProportionPercentage:
			if bestPct == nil || p.DiscountAmount.GreaterThan(bestPct.DiscountAmount) {
				bestPct = p
			}
		case ProportionAbsolute:
			if bestAbs == nil || p.DiscountAmount.GreaterThan(bestAbs.DiscountAmount) {
				bestAbs = p
			}
		}
	}

	switch {
	case bestPct != nil:
		info := infoOf(bestPct)
		return &info
	case bestAbs != nil:
		info := infoOf(bestAbs)
		return &info
	default:
		return nil
	}
}

// EffectivePrice computes the price of productID after its best promotion.
// The final price is never negative.
func EffectivePrice(productID string, originalPrice decimal.Decimal, promos []Promotion, now time.Time) PriceResult {
	best := Best(productID, originalPrice, promos, now)
	if best == nil {
		return PriceResult{
			OriginalPrice: originalPrice,
			FinalPrice:    originalPrice,
		}
	}
	return PriceResult{
		HasActivePromotion: true,
		OriginalPrice:      originalPrice,
		FinalPrice:         Discounted(originalPrice, *best),
		Promotion:          best,
	}
}

// Discounted applies a single promotion to price, flooring the result at zero.
func Discounted(price decimal.Decimal, info Info) decimal.Decimal {
	var final decimal.Decimal
	if info.IsPercentage {
		final = price.Mul(hundred.Sub(info.DiscountAmount)).Div(hundred)
	} else {
		final = price.Sub(info.DiscountAmount)
	}
	if final.IsNegative() {
		return decimal.Zero
	}
	return final
}

// ValidForOrder decides which promotions may be submitted with an order.
// Rules are applied in order:
//  1. inactive, used and unknown-scope promotions are dropped;
//  2. at most one promotion per scope survives (first seen wins);
//  3. a specific-products promotion needs at least one cart product, and when
//     it covers the whole cart the all-products promotion is dropped;
//  4. an order-total promotion needs orderTotal >= MinOrderValue.
//
// Neither promos nor items are modified.
func ValidForOrder(promos []Promotion, items []CartItem, orderTotal decimal.Decimal, now time.Time) []Promotion {
	byType := make(map[Type]int, 3)
	kept := make([]Promotion, 0, 3)
	for i := range promos {
		p := &promos[i]
		if !p.Type.Known() || p.Used || !p.ActiveAt(now) {
			continue
		}
		if _, ok := byType[p.Type]; ok {
			continue
		}
		byType[p.Type] = len(kept)
		kept = append(kept, *p)
	}

	cart := cartProductIDs(items)
	drop := make(map[Type]bool, 2)

	if idx, ok := byType[TypeSpecificProducts]; ok {
		matched := 0
		for id := range cart {
			if kept[idx].AppliesTo(id) {
				matched++
			}
		}
		switch {
		case matched == 0:
			drop[TypeSpecificProducts] = true
		case matched == len(cart):
			// The specific promotion already prices every line.
			drop[TypeAllProducts] = true
		}
	}
	if idx, ok := byType[TypeOrderTotal]; ok {
		if orderTotal.LessThan(kept[idx].MinOrderValue) {
			drop[TypeOrderTotal] = true
		}
	}

	out := make([]Promotion, 0, len(kept))
	for _, p := range kept {
		if !drop[p.Type] {
			out = append(out, p)
		}
	}
	return out
}

// cartProductIDs returns the distinct product ids present in the cart.
func cartProductIDs(items []CartItem) map[string]struct{} {
	ids := make(map[string]struct{}, len(items))
	for _, item := range items {
		ids[item.ProductID] = struct{}{}
	}
	return ids
}

// IDs extracts promotion ids in order.
func IDs(promos []Promotion) []string {
	ids := make([]string, len(promos))
	for i := range promos {
		ids[i] = promos[i].ID
	}
	return ids
}

// Resolver binds the engine functions to a clock.
type Resolver struct {
	now func() time.Time
}

// NewResolver returns a Resolver using the wall clock.
func NewResolver() *Resolver {
	return &Resolver{now: time.Now}
}

// NewResolverAt returns a Resolver whose clock is now.
func NewResolverAt(now func() time.Time) *Resolver {
	return &Resolver{now: now}
}

// Now returns the resolver's current instant.
func (r *Resolver) Now() time.Time {
	return r.now()
}

// Applicable is Applicable evaluated at the resolver's clock.
func (r *Resolver) Applicable(productID string, promos []Promotion) []Info {
	return Applicable(productID, promos, r.now())
}

// Best is Best evaluated at the resolver's clock.
func (r *Resolver) Best(productID string, price decimal.Decimal, promos []Promotion) *Info {
	return Best(productID, price, promos, r.now())
}

// EffectivePrice is EffectivePrice evaluated at the resolver's clock.
func (r *Resolver) EffectivePrice(productID string, price decimal.Decimal, promos []Promotion) PriceResult {
	return EffectivePrice(productID, price, promos, r.now())
}

// ValidForOrder is ValidForOrder evaluated at the resolver's clock.
func (r *Resolver) ValidForOrder(promos []Promotion, items []CartItem, orderTotal decimal.Decimal) []Promotion {
	return ValidForOrder(promos, items, orderTotal, r.now())
}

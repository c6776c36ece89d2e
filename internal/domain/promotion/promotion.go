package promotion

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Type is the applicability scope of a promotion.
type Type string

const (
	// TypeAllProducts applies to every product in the catalog.
	TypeAllProducts Type = "ALL_PRODUCTS"
	// TypeSpecificProducts applies only to the products listed in ProductIDs.
	TypeSpecificProducts Type = "SPECIFIC_PRODUCTS"
	// TypeOrderTotal applies to the order as a whole, gated by MinOrderValue.
	TypeOrderTotal Type = "ORDER_TOTAL"
)

// Known reports whether t is one of the supported scopes.
func (t Type) Known() bool {
	switch t {
	case TypeAllProducts, TypeSpecificProducts, TypeOrderTotal:
		return true
	default:
		return false
	}
}

// Proportion is the discount computation mode.
type Proportion string

const (
	// ProportionPercentage interprets DiscountAmount as a percent in [0, 100].
	ProportionPercentage Proportion = "PERCENTAGE"
	// ProportionAbsolute interprets DiscountAmount as a currency amount.
	ProportionAbsolute Proportion = "ABSOLUTE"
)

// Promotion is a discount campaign as delivered by the backend. Values are
// expected to have gone through Normalize on ingestion.
type Promotion struct {
	ID             string
	Code           string
	Name           string
	Description    string
	Type           Type
	Proportion     Proportion
	DiscountAmount decimal.Decimal
	// StartDate and EndDate bound the inclusive activity window. A nil bound
	// means the promotion is never active.
	StartDate     *time.Time
	EndDate       *time.Time
	MinOrderValue decimal.Decimal
	ProductIDs    []string
	Used          bool
}

// ActiveAt reports whether now lies within [StartDate, EndDate].
func (p *Promotion) ActiveAt(now time.Time) bool {
	if p.StartDate == nil || p.EndDate == nil {
		return false
	}
	return !now.Before(*p.StartDate) && !now.After(*p.EndDate)
}

// AppliesTo reports whether the promotion's scope covers productID.
func (p *Promotion) AppliesTo(productID string) bool {
	switch p.Type {
	case TypeAllProducts:
		return true
	case TypeSpecificProducts:
		return slices.Contains(p.ProductIDs, productID)
	default:
		return false
	}
}

// IsPercentage reports whether the discount is a percentage.
func (p *Promotion) IsPercentage() bool {
	return p.Proportion == ProportionPercentage
}

// Info is a lightweight summary of a promotion for display and pricing.
type Info struct {
	PromotionID    string
	PromotionName  string
	DiscountAmount decimal.Decimal
	IsPercentage   bool
}

func infoOf(p *Promotion) Info {
	return Info{
		PromotionID:    p.ID,
		PromotionName:  p.Name,
		DiscountAmount: p.DiscountAmount,
		IsPercentage:   p.IsPercentage(),
	}
}

// PriceResult is the effective price of a product under its best promotion.
type PriceResult struct {
	HasActivePromotion bool
	OriginalPrice      decimal.Decimal
	FinalPrice         decimal.Decimal
	Promotion          *Info
}

// CartItem is a checkout line used for order-level promotion filtering.
type CartItem struct {
	ProductID string
	Price     decimal.Decimal
	Quantity  int
}

// Repository provides access to the promotion list.
type Repository interface {
	List(ctx context.Context) ([]Promotion, error)
}

var hundred = decimal.NewFromInt(100)

// Normalize is the single ingestion step turning loosely typed backend data
// into engine input: enum strings are canonicalized, amounts are clamped to
// their valid range and product ids are de-duplicated in order.
func Normalize(p Promotion) Promotion {
	p.Type = Type(strings.ToUpper(strings.TrimSpace(string(p.Type))))
	p.Proportion = Proportion(strings.ToUpper(strings.TrimSpace(string(p.Proportion))))

	if p.DiscountAmount.IsNegative() {
		p.DiscountAmount = decimal.Zero
	}
	if p.Proportion == ProportionPercentage && p.DiscountAmount.GreaterThan(hundred) {
		p.DiscountAmount = hundred
	}
	if p.MinOrderValue.IsNegative() {
		p.MinOrderValue = decimal.Zero
	}

	if len(p.ProductIDs) > 0 {
		seen := make(map[string]struct{}, len(p.ProductIDs))
		ids := make([]string, 0, len(p.ProductIDs))
		for _, id := range p.ProductIDs {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		p.ProductIDs = ids
	}
	return p
}

package order

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/go-faster/sdk/zctx"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/promotion"
)

// Sentinel errors for order validation.
var (
	ErrEmptyItems      = fmt.Errorf("items required")
	ErrInvalidQuantity = fmt.Errorf("quantity must be greater than 0")
)

const (
	// currencyScale is the number of fractional digits kept in totals.
	// VND has no subunits.
	currencyScale = 0

	defaultListLimit = 20
	maxListLimit     = 100
)

var hundred = decimal.NewFromInt(100)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

func (e *InvalidQuantityError) Unwrap() error {
	return ErrInvalidQuantity
}

// OutOfStockError indicates a line item asks for more than is in stock.
type OutOfStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("product %s has %d in stock, %d requested", e.ProductID, e.Available, e.Requested)
}

// PlaceOrderRequest holds the input for placing an order. When PromotionIDs
// is empty every known promotion is considered.
type PlaceOrderRequest struct {
	Items        []LineRequest
	PromotionIDs []string
}

// LineRequest is a requested product and quantity.
type LineRequest struct {
	ProductID string
	Quantity  int
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order      *Order
	Products   []product.Product
	Promotions []promotion.Promotion
}

// Service encapsulates order placement business logic.
type Service struct {
	products   product.Repository
	promotions promotion.Repository
	orders     Repository
	resolver   *promotion.Resolver
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Repository,
	promotions promotion.Repository,
	orders Repository,
	resolver *promotion.Resolver,
) *Service {
	if resolver == nil {
		resolver = promotion.NewResolver()
	}
	return &Service{
		products:   products,
		promotions: promotions,
		orders:     orders,
		resolver:   resolver,
	}
}

// PlaceOrder validates items, fetches products in a single batch, selects the
// promotions valid for the cart, prices every line, persists the order and
// returns the result.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]string, len(req.Items))
	requested := make(map[string]int, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
		requested[item.ProductID] += item.Quantity
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	productMap := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	products := make([]product.Product, 0, len(req.Items))
	for _, item := range req.Items {
		p, ok := productMap[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		// Repeated lines for one product share its stock.
		if n := requested[p.ID]; n > p.Quantity {
			return nil, &OutOfStockError{ProductID: p.ID, Requested: n, Available: p.Quantity}
		}
		products = append(products, p)
	}

	cart := make([]promotion.CartItem, len(req.Items))
	subtotal := decimal.Zero
	for i, item := range req.Items {
		price := products[i].Price
		cart[i] = promotion.CartItem{
			ProductID: item.ProductID,
			Price:     price,
			Quantity:  item.Quantity,
		}
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	candidates, err := s.candidatePromotions(ctx, req.PromotionIDs)
	if err != nil {
		return nil, err
	}
	valid := s.resolver.ValidForOrder(candidates, cart, subtotal)

	// Product-level promotions price lines; the order-total promotion then
	// discounts what is left.
	var (
		lineLevel  []promotion.Promotion
		orderLevel *promotion.Promotion
	)
	for i := range valid {
		if valid[i].Type == promotion.TypeOrderTotal {
			orderLevel = &valid[i]
			continue
		}
		lineLevel = append(lineLevel, valid[i])
	}

	items := make([]OrderItem, len(req.Items))
	applied := make([]string, 0, len(valid))
	discounted := decimal.Zero
	for i, item := range req.Items {
		price := s.resolver.EffectivePrice(item.ProductID, products[i].Price, lineLevel)
		items[i] = OrderItem{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPrice:      price.OriginalPrice,
			FinalUnitPrice: price.FinalPrice,
		}
		if price.Promotion != nil {
			items[i].PromotionID = price.Promotion.PromotionID
			if !slices.Contains(applied, price.Promotion.PromotionID) {
				applied = append(applied, price.Promotion.PromotionID)
			}
		}
		discounted = discounted.Add(price.FinalPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	total := discounted
	if orderLevel != nil {
		total = total.Sub(orderDiscount(orderLevel, discounted))
		applied = append(applied, orderLevel.ID)
	}

	// Total floored at zero and rounded to whole currency units.
	if total.IsNegative() {
		total = decimal.Zero
	}
	total = total.Round(currencyScale)
	subtotal = subtotal.Round(currencyScale)

	o := &Order{
		ID:           uuid.New().String(),
		Items:        items,
		Subtotal:     subtotal,
		Discounts:    subtotal.Sub(total),
		Total:        total,
		PromotionIDs: applied,
		CreatedAt:    s.resolver.Now(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", o.ID),
		zap.Int("items", len(o.Items)),
		zap.Strings("promotions", o.PromotionIDs),
		zap.String("total", o.Total.String()),
	)

	return &PlaceOrderResult{
		Order:      o,
		Products:   products,
		Promotions: valid,
	}, nil
}

// candidatePromotions loads the promotion list, restricted to ids when given.
func (s *Service) candidatePromotions(ctx context.Context, ids []string) ([]promotion.Promotion, error) {
	all, err := s.promotions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}
	if len(ids) == 0 {
		return all, nil
	}
	out := make([]promotion.Promotion, 0, len(ids))
	for _, p := range all {
		if slices.Contains(ids, p.ID) {
			out = append(out, p)
		}
	}
	return out, nil
}

// orderDiscount computes an order-total promotion's discount on amount,
// capped at amount.
func orderDiscount(p *promotion.Promotion, amount decimal.Decimal) decimal.Decimal {
	var off decimal.Decimal
	if p.IsPercentage() {
		off = amount.Mul(p.DiscountAmount).Div(hundred)
	} else {
		off = p.DiscountAmount
	}
	return decimal.Min(off, amount)
}

// Get returns a previously placed order.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// List returns the most recent orders, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Order, error) {
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}
	orders, err := s.orders.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

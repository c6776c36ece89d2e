package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Order represents a placed customer order with pricing and promotion details.
type Order struct {
	ID           string
	Items        []OrderItem
	Subtotal     decimal.Decimal
	Discounts    decimal.Decimal
	Total        decimal.Decimal
	PromotionIDs []string
	CreatedAt    time.Time
}

// OrderItem represents a single line item in an order. UnitPrice is the
// catalog price, FinalUnitPrice the price after the line's best promotion.
type OrderItem struct {
	ProductID      string          `json:"product_id"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	FinalUnitPrice decimal.Decimal `json:"final_unit_price"`
	PromotionID    string          `json:"promotion_id,omitempty"`
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, limit int) ([]Order, error)
}

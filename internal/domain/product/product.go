package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item. Its name may embed variant tokens such
// as storage capacity or color ("iPhone 15 Pro 256GB Đen").
type Product struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Quantity    int
	CategoryID  string
	Description string
	Image       string
	Slug        string
	IsNew       bool
	CreatedAt   time.Time
}

// Available reports whether the product has stock left.
func (p Product) Available() bool {
	return p.Quantity > 0
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}

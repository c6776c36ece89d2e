// Package catalog composes the product and promotion repositories with the
// promotion and variant engines to serve product listings and detail pages.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/promotion"
	"github.com/xenking/storefront/internal/domain/variant"
)

// Cart validation errors.
var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// View is a product together with its effective price.
type View struct {
	Product product.Product
	Price   promotion.PriceResult
}

// Detail is everything a product detail page shows.
type Detail struct {
	View
	Variant    variant.Info
	Promotions []promotion.Info
	// Variants holds every product sharing the base name, including this one.
	Variants []View
	// Options is empty unless the product has at least one sibling.
	Options []variant.OptionGroup
}

// Group is a base-name group of priced products.
type Group struct {
	BaseName string
	Variants []View
}

// Line is a requested cart line for an eligibility check.
type Line struct {
	ProductID string
	Quantity  int
}

// Eligibility is the result of a checkout promotion preview.
type Eligibility struct {
	Subtotal   decimal.Decimal
	Items      []promotion.CartItem
	Promotions []promotion.Promotion
}

// Option configures a Service.
type Option func(*Service)

// WithTracerProvider sets the tracer provider used for service spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracer = tp.Tracer("github.com/xenking/storefront/internal/domain/catalog")
	}
}

// WithResolver overrides the promotion resolver (and thus the clock).
func WithResolver(r *promotion.Resolver) Option {
	return func(s *Service) {
		s.resolver = r
	}
}

// Service serves catalog read flows.
type Service struct {
	products   product.Repository
	promotions promotion.Repository
	resolver   *promotion.Resolver
	tracer     trace.Tracer
}

// NewService creates a catalog Service.
func NewService(products product.Repository, promotions promotion.Repository, opts ...Option) *Service {
	s := &Service{
		products:   products,
		promotions: promotions,
		resolver:   promotion.NewResolver(),
		tracer:     noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// load fetches the catalog and the promotion list concurrently.
func (s *Service) load(ctx context.Context) ([]product.Product, []promotion.Promotion, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.load")
	defer span.End()

	var (
		products []product.Product
		promos   []promotion.Promotion
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.products.List(gctx)
		if err != nil {
			return errors.Wrap(err, "list products")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		promos, err = s.promotions.List(gctx)
		if err != nil {
			return errors.Wrap(err, "list promotions")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, nil, err
	}
	span.SetAttributes(
		attribute.Int("catalog.products", len(products)),
		attribute.Int("catalog.promotions", len(promos)),
	)
	return products, promos, nil
}

func (s *Service) view(p product.Product, promos []promotion.Promotion) View {
	return View{
		Product: p,
		Price:   s.resolver.EffectivePrice(p.ID, p.Price, promos),
	}
}

func (s *Service) views(products []product.Product, promos []promotion.Promotion) []View {
	out := make([]View, len(products))
	for i, p := range products {
		out[i] = s.view(p, promos)
	}
	return out
}

func find(products []product.Product, id string) (product.Product, error) {
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return product.Product{}, errors.Wrapf(product.ErrNotFound, "product %s", id)
}

// List returns every product with its effective price, in catalog order.
func (s *Service) List(ctx context.Context) ([]View, error) {
	products, promos, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.views(products, promos), nil
}

// Get returns the detail view of product id.
func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Get", trace.WithAttributes(attribute.String("product.id", id)))
	defer span.End()

	products, promos, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	p, err := find(products, id)
	if err != nil {
		return nil, err
	}

	siblings := variant.Variants(p, products)
	d := &Detail{
		View:       s.view(p, promos),
		Variant:    variant.Parse(p.Name),
		Promotions: s.resolver.Applicable(p.ID, promos),
		Variants:   s.views(siblings, promos),
		Options:    []variant.OptionGroup{},
	}
	if len(siblings) > 1 {
		d.Options = variant.Options(siblings)
	}
	return d, nil
}

// SwitchVariant resolves the sibling of product id that differs from it only
// by change. When no sibling matches it returns the current product and false.
func (s *Service) SwitchVariant(ctx context.Context, id string, change variant.Attribute) (*View, bool, error) {
	products, promos, err := s.load(ctx)
	if err != nil {
		return nil, false, err
	}
	current, err := find(products, id)
	if err != nil {
		return nil, false, err
	}

	best := variant.FindBest(variant.Variants(current, products), current, change)
	if best == nil {
		v := s.view(current, promos)
		return &v, false, nil
	}
	v := s.view(*best, promos)
	return &v, true, nil
}

// Groups returns the catalog grouped by base name, in order of first
// appearance.
func (s *Service) Groups(ctx context.Context) ([]Group, error) {
	products, promos, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	groups := variant.Groups(products)
	out := make([]Group, len(groups))
	for i, g := range groups {
		out[i] = Group{
			BaseName: g.BaseName,
			Variants: s.views(g.Products, promos),
		}
	}
	return out, nil
}

// Promotions returns the unused promotions active now, in stored order.
func (s *Service) Promotions(ctx context.Context) ([]promotion.Promotion, error) {
	promos, err := s.promotions.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list promotions")
	}
	now := s.resolver.Now()
	active := make([]promotion.Promotion, 0, len(promos))
	for i := range promos {
		if promos[i].ActiveAt(now) && !promos[i].Used {
			active = append(active, promos[i])
		}
	}
	return active, nil
}

// ApplicablePromotions returns the promotions currently applying to
// productID. The product must exist.
func (s *Service) ApplicablePromotions(ctx context.Context, productID string) ([]promotion.Info, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, errors.Wrapf(err, "product %s", productID)
	}
	promos, err := s.promotions.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list promotions")
	}
	return s.resolver.Applicable(productID, promos), nil
}

// EligiblePromotions previews which promotions may be submitted with a cart.
// ids restricts the candidates when non-empty.
func (s *Service) EligiblePromotions(ctx context.Context, lines []Line, ids []string) (*Eligibility, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	productIDs := make([]string, len(lines))
	for i, l := range lines {
		if l.Quantity <= 0 {
			return nil, errors.Wrapf(ErrInvalidQuantity, "product %s", l.ProductID)
		}
		productIDs[i] = l.ProductID
	}

	ctx, span := s.tracer.Start(ctx, "catalog.EligiblePromotions")
	defer span.End()

	var (
		fetched []product.Product
		promos  []promotion.Promotion
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fetched, err = s.products.GetByIDs(gctx, productIDs)
		if err != nil {
			return errors.Wrap(err, "get products")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		promos, err = s.promotions.List(gctx)
		if err != nil {
			return errors.Wrap(err, "list promotions")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	items := make([]promotion.CartItem, len(lines))
	subtotal := decimal.Zero
	for i, l := range lines {
		p, err := find(fetched, l.ProductID)
		if err != nil {
			return nil, err
		}
		items[i] = promotion.CartItem{ProductID: p.ID, Price: p.Price, Quantity: l.Quantity}
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	candidates := promos
	if len(ids) > 0 {
		candidates = make([]promotion.Promotion, 0, len(ids))
		for _, p := range promos {
			for _, id := range ids {
				if p.ID == id {
					candidates = append(candidates, p)
					break
				}
			}
		}
	}

	valid := s.resolver.ValidForOrder(candidates, items, subtotal)
	span.SetAttributes(attribute.Int("promotions.eligible", len(valid)))
	return &Eligibility{
		Subtotal:   subtotal,
		Items:      items,
		Promotions: valid,
	}, nil
}

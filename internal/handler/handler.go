// Package handler exposes the storefront HTTP API.
package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/promotion"
	"github.com/xenking/storefront/internal/domain/variant"
	"github.com/xenking/storefront/internal/wire"
)

const maxBodyBytes = 1 << 20

// Catalog is the read side of the storefront.
type Catalog interface {
	List(ctx context.Context) ([]catalog.View, error)
	Get(ctx context.Context, id string) (*catalog.Detail, error)
	SwitchVariant(ctx context.Context, id string, change variant.Attribute) (*catalog.View, bool, error)
	Groups(ctx context.Context) ([]catalog.Group, error)
	Promotions(ctx context.Context) ([]promotion.Promotion, error)
	ApplicablePromotions(ctx context.Context, productID string) ([]promotion.Info, error)
	EligiblePromotions(ctx context.Context, lines []catalog.Line, ids []string) (*catalog.Eligibility, error)
}

// Orders is the checkout side of the storefront.
type Orders interface {
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.PlaceOrderResult, error)
	Get(ctx context.Context, id string) (*order.Order, error)
	List(ctx context.Context, limit int) ([]order.Order, error)
}

// Handler serves /api routes.
type Handler struct {
	catalog     Catalog
	orders      Orders
	resolutions metric.Int64Counter
}

// New creates a Handler. Price resolutions are counted on meter.
func New(c Catalog, o Orders, meter metric.Meter) (*Handler, error) {
	resolutions, err := meter.Int64Counter("storefront.price.resolutions",
		metric.WithDescription("Product prices resolved against active promotions"),
		metric.WithUnit("{price}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "resolutions counter")
	}
	return &Handler{catalog: c, orders: o, resolutions: resolutions}, nil
}

// Register mounts the API on mux. placeOrder wraps the order placement
// route, e.g. with a rate limiter; nil leaves it bare.
func (h *Handler) Register(mux *http.ServeMux, placeOrder func(http.Handler) http.Handler) {
	place := http.Handler(http.HandlerFunc(h.placeOrder))
	if placeOrder != nil {
		place = placeOrder(place)
	}

	mux.HandleFunc("GET /api/product", h.listProducts)
	mux.HandleFunc("GET /api/product/groups", h.productGroups)
	mux.HandleFunc("GET /api/product/{productId}", h.getProduct)
	mux.HandleFunc("GET /api/product/{productId}/variant", h.switchVariant)
	mux.HandleFunc("GET /api/promotion", h.listPromotions)
	mux.HandleFunc("POST /api/promotion/eligible", h.eligiblePromotions)
	mux.Handle("POST /api/order", place)
	mux.HandleFunc("GET /api/order", h.listOrders)
	mux.HandleFunc("GET /api/order/{orderId}", h.getOrder)
}

func (h *Handler) countResolutions(ctx context.Context, route string, views []catalog.View) {
	var discounted int64
	for _, v := range views {
		if v.Price.HasActivePromotion {
			discounted++
		}
	}
	if n := int64(len(views)) - discounted; n > 0 {
		h.resolutions.Add(ctx, n, metric.WithAttributes(
			attribute.String("route", route),
			attribute.Bool("discounted", false),
		))
	}
	if discounted > 0 {
		h.resolutions.Add(ctx, discounted, metric.WithAttributes(
			attribute.String("route", route),
			attribute.Bool("discounted", true),
		))
	}
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, wire.EncodeError(status, message))
}

// readBody reads a bounded request body.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return data, nil
}

// fail maps a domain error to a response. Unknown errors are logged and
// reported as 500 without detail.
func fail(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		notFound   *order.ProductNotFoundError
		badQty     *order.InvalidQuantityError
		outOfStock *order.OutOfStockError
	)
	switch {
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrEmptyItems),
		errors.As(err, &badQty),
		errors.As(err, &outOfStock),
		errors.Is(err, catalog.ErrEmptyCart),
		errors.Is(err, catalog.ErrInvalidQuantity):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, context.Canceled):
		// Client went away.
	default:
		zctx.From(ctx).Error("Request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

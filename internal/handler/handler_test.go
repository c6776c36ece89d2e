package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/promotion"
	"github.com/xenking/storefront/internal/domain/variant"
)

type mockCatalog struct {
	views    []catalog.View
	detail   *catalog.Detail
	switched bool
	groups   []catalog.Group
	promos   []promotion.Promotion
	infos    []promotion.Info
	elig     *catalog.Eligibility
	err      error

	lastID     string
	lastChange variant.Attribute
	lastLines  []catalog.Line
	lastIDs    []string
}

func (m *mockCatalog) List(context.Context) ([]catalog.View, error) { return m.views, m.err }

func (m *mockCatalog) Get(_ context.Context, id string) (*catalog.Detail, error) {
	m.lastID = id
	return m.detail, m.err
}

func (m *mockCatalog) SwitchVariant(_ context.Context, id string, change variant.Attribute) (*catalog.View, bool, error) {
	m.lastID, m.lastChange = id, change
	if m.err != nil {
		return nil, false, m.err
	}
	return &m.views[0], m.switched, nil
}

func (m *mockCatalog) Groups(context.Context) ([]catalog.Group, error) { return m.groups, m.err }

func (m *mockCatalog) Promotions(context.Context) ([]promotion.Promotion, error) {
	return m.promos, m.err
}

func (m *mockCatalog) ApplicablePromotions(_ context.Context, id string) ([]promotion.Info, error) {
	m.lastID = id
	return m.infos, m.err
}

func (m *mockCatalog) EligiblePromotions(_ context.Context, lines []catalog.Line, ids []string) (*catalog.Eligibility, error) {
	m.lastLines, m.lastIDs = lines, ids
	return m.elig, m.err
}

type mockOrders struct {
	result    *order.PlaceOrderResult
	order     *order.Order
	orders    []order.Order
	err       error
	lastReq   order.PlaceOrderRequest
	lastLimit int
}

func (m *mockOrders) PlaceOrder(_ context.Context, req order.PlaceOrderRequest) (*order.PlaceOrderResult, error) {
	m.lastReq = req
	return m.result, m.err
}

func (m *mockOrders) Get(_ context.Context, _ string) (*order.Order, error) { return m.order, m.err }

func (m *mockOrders) List(_ context.Context, limit int) ([]order.Order, error) {
	m.lastLimit = limit
	return m.orders, m.err
}

var testPhone = product.Product{
	ID:       "ip128",
	Name:     "iPhone 15 128GB Đen",
	Price:    decimal.NewFromInt(20000000),
	Quantity: 3,
}

func testView(discounted bool) catalog.View {
	v := catalog.View{
		Product: testPhone,
		Price: promotion.PriceResult{
			OriginalPrice: testPhone.Price,
			FinalPrice:    testPhone.Price,
		},
	}
	if discounted {
		v.Price.HasActivePromotion = true
		v.Price.FinalPrice = decimal.NewFromInt(18000000)
		v.Price.Promotion = &promotion.Info{
			PromotionID:    "p1",
			PromotionName:  "Sale",
			DiscountAmount: decimal.NewFromInt(10),
			IsPercentage:   true,
		}
	}
	return v
}

type testServer struct {
	mux     *http.ServeMux
	catalog *mockCatalog
	orders  *mockOrders
	reader  *sdkmetric.ManualReader
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	s := &testServer{
		mux:     http.NewServeMux(),
		catalog: &mockCatalog{},
		orders:  &mockOrders{},
		reader:  reader,
	}
	h, err := New(s.catalog, s.orders, mp.Meter("test"))
	require.NoError(t, err)
	h.Register(s.mux, nil)
	return s
}

func (s *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)
	return w
}

func (s *testServer) resolutions(t *testing.T) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, s.reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "storefront.price.resolutions" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestListProducts(t *testing.T) {
	s := newTestServer(t)
	s.catalog.views = []catalog.View{testView(true), testView(false)}

	w := s.do(http.MethodGet, "/api/product", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `"finalPrice":18000000`)
	assert.Contains(t, w.Body.String(), `"hasActivePromotion":true`)
	assert.Equal(t, int64(2), s.resolutions(t))
}

func TestGetProduct(t *testing.T) {
	s := newTestServer(t)
	s.catalog.detail = &catalog.Detail{
		View:    testView(false),
		Variant: variant.Parse(testPhone.Name),
		Options: []variant.OptionGroup{},
	}

	w := s.do(http.MethodGet, "/api/product/ip128", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ip128", s.catalog.lastID)
	assert.Contains(t, w.Body.String(), `"baseName":"iPhone 15"`)
	assert.Equal(t, int64(1), s.resolutions(t))
}

func TestProductGroupsRoute(t *testing.T) {
	s := newTestServer(t)
	s.catalog.groups = []catalog.Group{{BaseName: "iPhone 15", Variants: []catalog.View{testView(false)}}}

	w := s.do(http.MethodGet, "/api/product/groups", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"baseName":"iPhone 15"`)
	assert.Empty(t, s.catalog.lastID, "groups is not routed as a product id")
}

func TestSwitchVariant(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantCode   int
		wantChange variant.Attribute
	}{
		{
			name:       "storage",
			query:      "type=storage&value=256GB",
			wantCode:   http.StatusOK,
			wantChange: variant.Attribute{Type: variant.TypeStorage, Value: "256GB"},
		},
		{
			name:       "type is case-insensitive",
			query:      "type=Color&value=Tr%E1%BA%AFng",
			wantCode:   http.StatusOK,
			wantChange: variant.Attribute{Type: variant.TypeColor, Value: "Trắng"},
		},
		{name: "unknown type", query: "type=weight&value=1kg", wantCode: http.StatusBadRequest},
		{name: "missing value", query: "type=size", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.catalog.views = []catalog.View{testView(false)}
			s.catalog.switched = true

			w := s.do(http.MethodGet, "/api/product/ip128/variant?"+tt.query, "")
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}
			assert.Equal(t, tt.wantChange, s.catalog.lastChange)
			assert.Contains(t, w.Body.String(), `"switched":true`)
		})
	}
}

func TestListPromotions(t *testing.T) {
	s := newTestServer(t)
	s.catalog.promos = []promotion.Promotion{{
		ID:             "p1",
		Code:           "SALE10",
		Type:           promotion.TypeAllProducts,
		Proportion:     promotion.ProportionPercentage,
		DiscountAmount: decimal.NewFromInt(10),
	}}
	s.catalog.infos = []promotion.Info{{PromotionID: "p2", PromotionName: "Phone deal", DiscountAmount: decimal.NewFromInt(5), IsPercentage: true}}

	w := s.do(http.MethodGet, "/api/promotion", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"SALE10"`)

	w = s.do(http.MethodGet, "/api/promotion?productId=ip128", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ip128", s.catalog.lastID)
	assert.Contains(t, w.Body.String(), `"p2"`)
	assert.NotContains(t, w.Body.String(), `"SALE10"`)
}

func TestEligiblePromotions(t *testing.T) {
	s := newTestServer(t)
	s.catalog.elig = &catalog.Eligibility{Subtotal: decimal.NewFromInt(40000000)}

	w := s.do(http.MethodPost, "/api/promotion/eligible",
		`{"items":[{"productId":"ip128","quantity":2}],"promotionIds":["p1"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []catalog.Line{{ProductID: "ip128", Quantity: 2}}, s.catalog.lastLines)
	assert.Equal(t, []string{"p1"}, s.catalog.lastIDs)
	assert.JSONEq(t, `{"subtotal":40000000,"promotionIds":[],"promotions":[]}`, w.Body.String())

	w = s.do(http.MethodPost, "/api/promotion/eligible", `{"items":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlaceOrder(t *testing.T) {
	s := newTestServer(t)
	placed := &order.Order{
		ID:        "o1",
		Items:     []order.OrderItem{{ProductID: "ip128", Quantity: 1, UnitPrice: testPhone.Price, FinalUnitPrice: testPhone.Price}},
		Subtotal:  testPhone.Price,
		Discounts: decimal.Zero,
		Total:     testPhone.Price,
		CreatedAt: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	s.orders.result = &order.PlaceOrderResult{Order: placed, Products: []product.Product{testPhone}}

	w := s.do(http.MethodPost, "/api/order", `{"items":[{"productId":"ip128","quantity":1}],"promotionIds":["p1"]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, []order.LineRequest{{ProductID: "ip128", Quantity: 1}}, s.orders.lastReq.Items)
	assert.Equal(t, []string{"p1"}, s.orders.lastReq.PromotionIDs)
	assert.Contains(t, w.Body.String(), `"id":"o1"`)
	assert.Contains(t, w.Body.String(), `"total":20000000`)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		method   string
		target   string
		body     string
		wantCode int
	}{
		{
			name:     "product not found",
			err:      errors.Wrap(product.ErrNotFound, "product x"),
			method:   http.MethodGet,
			target:   "/api/product/x",
			wantCode: http.StatusNotFound,
		},
		{
			name:     "promotions for unknown product",
			err:      errors.Wrap(product.ErrNotFound, "product x"),
			method:   http.MethodGet,
			target:   "/api/promotion?productId=x",
			wantCode: http.StatusNotFound,
		},
		{
			name:     "order not found",
			err:      errors.Wrap(order.ErrNotFound, "get order"),
			method:   http.MethodGet,
			target:   "/api/order/x",
			wantCode: http.StatusNotFound,
		},
		{
			name:     "ordered product missing",
			err:      &order.ProductNotFoundError{ProductID: "x"},
			method:   http.MethodPost,
			target:   "/api/order",
			body:     `{"items":[{"productId":"x","quantity":1}]}`,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "empty order",
			err:      order.ErrEmptyItems,
			method:   http.MethodPost,
			target:   "/api/order",
			body:     `{"items":[]}`,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "out of stock",
			err:      &order.OutOfStockError{ProductID: "ip128", Requested: 5, Available: 3},
			method:   http.MethodPost,
			target:   "/api/order",
			body:     `{"items":[{"productId":"ip128","quantity":5}]}`,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "empty cart preview",
			err:      catalog.ErrEmptyCart,
			method:   http.MethodPost,
			target:   "/api/promotion/eligible",
			body:     `{"items":[]}`,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "unexpected",
			err:      errors.New("connection reset"),
			method:   http.MethodGet,
			target:   "/api/product",
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.catalog.err = tt.err
			s.orders.err = tt.err

			w := s.do(tt.method, tt.target, tt.body)
			require.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), `"code":`)
			if tt.wantCode == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "connection reset")
			}
		})
	}
}

func TestPlaceOrder_BadBody(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPost, "/api/order", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListOrders(t *testing.T) {
	s := newTestServer(t)
	s.orders.orders = []order.Order{}

	w := s.do(http.MethodGet, "/api/order?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, s.orders.lastLimit)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = s.do(http.MethodGet, "/api/order?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

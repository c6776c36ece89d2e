package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/promotion"
	"github.com/xenking/storefront/internal/domain/variant"
)

// --- Mock implementations ---

type mockProductRepo struct {
	products []product.Product
	err      error
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return m.products, m.err
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	for i := range m.products {
		if m.products[i].ID == id {
			return &m.products[i], nil
		}
	}
	return nil, product.ErrNotFound
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []product.Product
	for _, p := range m.products {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

type mockPromotionRepo struct {
	promos []promotion.Promotion
	err    error
}

func (m *mockPromotionRepo) List(_ context.Context) ([]promotion.Promotion, error) {
	return m.promos, m.err
}

// --- Helpers ---

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestProduct(id, name string, price int64, stock int) product.Product {
	return product.Product{
		ID:       id,
		Name:     name,
		Price:    decimal.NewFromInt(price),
		Quantity: stock,
	}
}

func newPromo(id string, typ promotion.Type, prop promotion.Proportion, amount int64, productIDs ...string) promotion.Promotion {
	start := fixedNow.Add(-time.Hour)
	end := fixedNow.Add(time.Hour)
	return promotion.Promotion{
		ID:             id,
		Name:           id,
		Type:           typ,
		Proportion:     prop,
		DiscountAmount: decimal.NewFromInt(amount),
		StartDate:      &start,
		EndDate:        &end,
		ProductIDs:     productIDs,
	}
}

func testCatalog() []product.Product {
	return []product.Product{
		newTestProduct("ip128", "iPhone 15 128GB Đen", 20000000, 3),
		newTestProduct("ip256", "iPhone 15 256GB Đen", 23000000, 0),
		newTestProduct("ip128w", "iPhone 15 128GB Trắng", 20000000, 1),
		newTestProduct("case", "Ốp lưng", 100000, 50),
	}
}

func newTestService(products []product.Product, promos []promotion.Promotion) *Service {
	return NewService(
		&mockProductRepo{products: products},
		&mockPromotionRepo{promos: promos},
		WithResolver(promotion.NewResolverAt(func() time.Time { return fixedNow })),
	)
}

// --- Tests ---

func TestList(t *testing.T) {
	promos := []promotion.Promotion{
		newPromo("case10", promotion.TypeSpecificProducts, promotion.ProportionPercentage, 10, "case"),
	}
	svc := newTestService(testCatalog(), promos)

	views, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 4)

	assert.False(t, views[0].Price.HasActivePromotion)
	assert.True(t, views[0].Price.FinalPrice.Equal(decimal.NewFromInt(20000000)))

	caseView := views[3]
	assert.True(t, caseView.Price.HasActivePromotion)
	assert.Equal(t, "case10", caseView.Price.Promotion.PromotionID)
	assert.True(t, caseView.Price.FinalPrice.Equal(decimal.NewFromInt(90000)))
}

func TestList_RepositoryErrors(t *testing.T) {
	tests := []struct {
		name    string
		prodErr error
		promErr error
		wantMsg string
	}{
		{name: "products", prodErr: errors.New("db down"), wantMsg: "list products"},
		{name: "promotions", promErr: errors.New("backend down"), wantMsg: "list promotions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(
				&mockProductRepo{products: testCatalog(), err: tt.prodErr},
				&mockPromotionRepo{err: tt.promErr},
			)

			_, err := svc.List(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestGet(t *testing.T) {
	promos := []promotion.Promotion{
		newPromo("all5", promotion.TypeAllProducts, promotion.ProportionPercentage, 5),
		newPromo("order", promotion.TypeOrderTotal, promotion.ProportionAbsolute, 50000),
	}
	svc := newTestService(testCatalog(), promos)

	d, err := svc.Get(context.Background(), "ip128")
	require.NoError(t, err)

	assert.Equal(t, "ip128", d.Product.ID)
	assert.Equal(t, "iPhone 15", d.Variant.BaseName)
	require.Len(t, d.Promotions, 1)
	assert.Equal(t, "all5", d.Promotions[0].PromotionID)
	assert.True(t, d.Price.FinalPrice.Equal(decimal.NewFromInt(19000000)))

	require.Len(t, d.Variants, 3)
	assert.Equal(t, "ip128", d.Variants[0].Product.ID)
	assert.Equal(t, "ip256", d.Variants[1].Product.ID)
	assert.Equal(t, "ip128w", d.Variants[2].Product.ID)

	require.Len(t, d.Options, 2)
	assert.Equal(t, variant.TypeStorage, d.Options[0].Type)
	assert.Equal(t, variant.TypeColor, d.Options[1].Type)
}

func TestGet_NoSiblings(t *testing.T) {
	svc := newTestService(testCatalog(), nil)

	d, err := svc.Get(context.Background(), "case")
	require.NoError(t, err)
	assert.Len(t, d.Variants, 1)
	assert.Empty(t, d.Options)
	assert.NotNil(t, d.Options)
	assert.Empty(t, d.Promotions)
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(testCatalog(), nil)

	_, err := svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestSwitchVariant(t *testing.T) {
	svc := newTestService(testCatalog(), nil)

	tests := []struct {
		name         string
		id           string
		change       variant.Attribute
		wantID       string
		wantSwitched bool
	}{
		{
			name:         "storage",
			id:           "ip128",
			change:       variant.Attribute{Type: variant.TypeStorage, Value: "256GB"},
			wantID:       "ip256",
			wantSwitched: true,
		},
		{
			name:         "color",
			id:           "ip128",
			change:       variant.Attribute{Type: variant.TypeColor, Value: "Trắng"},
			wantID:       "ip128w",
			wantSwitched: true,
		},
		{
			name:   "missing combination stays",
			id:     "ip128w",
			change: variant.Attribute{Type: variant.TypeStorage, Value: "256GB"},
			wantID: "ip128w",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, switched, err := svc.SwitchVariant(context.Background(), tt.id, tt.change)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSwitched, switched)
			assert.Equal(t, tt.wantID, v.Product.ID)
		})
	}
}

func TestSwitchVariant_NotFound(t *testing.T) {
	svc := newTestService(testCatalog(), nil)

	_, _, err := svc.SwitchVariant(context.Background(), "missing", variant.Attribute{Type: variant.TypeColor, Value: "Đen"})
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestGroups(t *testing.T) {
	svc := newTestService(testCatalog(), nil)

	groups, err := svc.Groups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "iPhone 15", groups[0].BaseName)
	assert.Len(t, groups[0].Variants, 3)
	assert.Equal(t, "Ốp lưng", groups[1].BaseName)
	assert.Len(t, groups[1].Variants, 1)
}

func TestApplicablePromotions(t *testing.T) {
	expiredStart := fixedNow.Add(-48 * time.Hour)
	expiredEnd := fixedNow.Add(-24 * time.Hour)
	expired := newPromo("old", promotion.TypeAllProducts, promotion.ProportionPercentage, 50)
	expired.StartDate = &expiredStart
	expired.EndDate = &expiredEnd

	promos := []promotion.Promotion{
		newPromo("specific", promotion.TypeSpecificProducts, promotion.ProportionAbsolute, 1000, "case"),
		expired,
		newPromo("all", promotion.TypeAllProducts, promotion.ProportionPercentage, 5),
	}
	svc := newTestService(testCatalog(), promos)

	infos, err := svc.ApplicablePromotions(context.Background(), "case")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "specific", infos[0].PromotionID)
	assert.Equal(t, "all", infos[1].PromotionID)

}

func TestApplicablePromotions_ProductNotFound(t *testing.T) {
	svc := newTestService(testCatalog(), []promotion.Promotion{
		newPromo("all", promotion.TypeAllProducts, promotion.ProportionPercentage, 5),
	})

	infos, err := svc.ApplicablePromotions(context.Background(), "does-not-exist")
	require.ErrorIs(t, err, product.ErrNotFound)
	assert.Nil(t, infos)
}

func TestPromotions(t *testing.T) {
	expiredStart := fixedNow.Add(-48 * time.Hour)
	expiredEnd := fixedNow.Add(-24 * time.Hour)
	expired := newPromo("expired", promotion.TypeAllProducts, promotion.ProportionPercentage, 50)
	expired.StartDate = &expiredStart
	expired.EndDate = &expiredEnd

	futureStart := fixedNow.Add(24 * time.Hour)
	futureEnd := fixedNow.Add(48 * time.Hour)
	future := newPromo("future", promotion.TypeAllProducts, promotion.ProportionPercentage, 20)
	future.StartDate = &futureStart
	future.EndDate = &futureEnd

	used := newPromo("used", promotion.TypeOrderTotal, promotion.ProportionAbsolute, 50000)
	used.Used = true

	undated := newPromo("undated", promotion.TypeAllProducts, promotion.ProportionPercentage, 5)
	undated.EndDate = nil

	svc := newTestService(testCatalog(), []promotion.Promotion{
		newPromo("specific", promotion.TypeSpecificProducts, promotion.ProportionAbsolute, 1000, "case"),
		expired,
		future,
		used,
		undated,
		newPromo("order", promotion.TypeOrderTotal, promotion.ProportionPercentage, 3),
	})

	got, err := svc.Promotions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"specific", "order"}, promotion.IDs(got))
}

func TestPromotions_RepositoryError(t *testing.T) {
	svc := NewService(&mockProductRepo{}, &mockPromotionRepo{err: errors.New("backend down")})

	_, err := svc.Promotions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list promotions")
}

func TestLaptopCatalog(t *testing.T) {
	svc := newTestService(
		[]product.Product{
			newTestProduct("a", "Laptop X 256GB Đen", 20000000, 1),
			newTestProduct("b", "Laptop X 512GB Đen", 24000000, 1),
		},
		[]promotion.Promotion{
			newPromo("ten", promotion.TypeAllProducts, promotion.ProportionPercentage, 10),
		},
	)

	groups, err := svc.Groups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Laptop X", groups[0].BaseName)
	require.Len(t, groups[0].Variants, 2)

	views, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)

	for i, want := range []int64{18000000, 21600000} {
		for _, v := range []View{views[i], groups[0].Variants[i]} {
			assert.True(t, v.Price.HasActivePromotion, v.Product.ID)
			assert.True(t, decimal.NewFromInt(want).Equal(v.Price.FinalPrice),
				"%s: final price %s", v.Product.ID, v.Price.FinalPrice)
			require.NotNil(t, v.Price.Promotion)
			assert.Equal(t, "ten", v.Price.Promotion.PromotionID)
		}
	}
}

func TestEligiblePromotions(t *testing.T) {
	minOrder := newPromo("order", promotion.TypeOrderTotal, promotion.ProportionAbsolute, 50000)
	minOrder.MinOrderValue = decimal.NewFromInt(1000000)

	promos := []promotion.Promotion{
		newPromo("all", promotion.TypeAllProducts, promotion.ProportionPercentage, 5),
		newPromo("specific", promotion.TypeSpecificProducts, promotion.ProportionPercentage, 10, "case"),
		minOrder,
	}

	tests := []struct {
		name         string
		lines        []Line
		ids          []string
		wantSubtotal int64
		wantIDs      []string
	}{
		{
			name:         "specific covers cart, order total below minimum",
			lines:        []Line{{ProductID: "case", Quantity: 2}},
			wantSubtotal: 200000,
			wantIDs:      []string{"specific"},
		},
		{
			name:         "mixed cart keeps all three",
			lines:        []Line{{ProductID: "case", Quantity: 1}, {ProductID: "ip128", Quantity: 1}},
			wantSubtotal: 20100000,
			wantIDs:      []string{"all", "specific", "order"},
		},
		{
			name:         "requested ids restrict candidates",
			lines:        []Line{{ProductID: "ip128", Quantity: 1}},
			ids:          []string{"order"},
			wantSubtotal: 20000000,
			wantIDs:      []string{"order"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(testCatalog(), promos)

			got, err := svc.EligiblePromotions(context.Background(), tt.lines, tt.ids)
			require.NoError(t, err)
			assert.True(t, decimal.NewFromInt(tt.wantSubtotal).Equal(got.Subtotal), "subtotal %s", got.Subtotal)
			assert.Equal(t, tt.wantIDs, promotion.IDs(got.Promotions))
			assert.Len(t, got.Items, len(tt.lines))
		})
	}
}

func TestEligiblePromotions_Invalid(t *testing.T) {
	svc := newTestService(testCatalog(), nil)

	_, err := svc.EligiblePromotions(context.Background(), nil, nil)
	require.ErrorIs(t, err, ErrEmptyCart)

	_, err = svc.EligiblePromotions(context.Background(), []Line{{ProductID: "case", Quantity: 0}}, nil)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.EligiblePromotions(context.Background(), []Line{{ProductID: "missing", Quantity: 1}}, nil)
	require.ErrorIs(t, err, product.ErrNotFound)
}

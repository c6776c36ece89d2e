package handler

import (
	"net/http"
	"strings"

	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/variant"
	"github.com/xenking/storefront/internal/wire"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	views, err := h.catalog.List(ctx)
	if err != nil {
		fail(ctx, w, err)
		return
	}
	h.countResolutions(ctx, "product.list", views)
	writeJSON(w, http.StatusOK, wire.EncodeViews(views))
}

func (h *Handler) productGroups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groups, err := h.catalog.Groups(ctx)
	if err != nil {
		fail(ctx, w, err)
		return
	}
	var views []catalog.View
	for _, g := range groups {
		views = append(views, g.Variants...)
	}
	h.countResolutions(ctx, "product.groups", views)
	writeJSON(w, http.StatusOK, wire.EncodeGroups(groups))
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d, err := h.catalog.Get(ctx, r.PathValue("productId"))
	if err != nil {
		fail(ctx, w, err)
		return
	}
	h.countResolutions(ctx, "product.get", []catalog.View{d.View})
	writeJSON(w, http.StatusOK, wire.EncodeDetail(*d))
}

func (h *Handler) switchVariant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	typ, ok := variant.ParseType(q.Get("type"))
	if !ok {
		writeError(w, http.StatusBadRequest, "type must be one of storage, color, size, model")
		return
	}
	value := strings.TrimSpace(q.Get("value"))
	if value == "" {
		writeError(w, http.StatusBadRequest, "value is required")
		return
	}

	v, switched, err := h.catalog.SwitchVariant(ctx, r.PathValue("productId"), variant.Attribute{Type: typ, Value: value})
	if err != nil {
		fail(ctx, w, err)
		return
	}
	h.countResolutions(ctx, "product.variant", []catalog.View{*v})
	writeJSON(w, http.StatusOK, wire.EncodeSwitch(*v, switched))
}

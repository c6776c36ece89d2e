package handler

import (
	"net/http"

	"github.com/xenking/storefront/internal/wire"
)

// listPromotions returns the promotions active now, or only those applying
// to the productId query parameter when given.
func (h *Handler) listPromotions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if id := r.URL.Query().Get("productId"); id != "" {
		infos, err := h.catalog.ApplicablePromotions(ctx, id)
		if err != nil {
			fail(ctx, w, err)
			return
		}
		writeJSON(w, http.StatusOK, wire.EncodeInfos(infos))
		return
	}

	promos, err := h.catalog.Promotions(ctx)
	if err != nil {
		fail(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.EncodePromotions(promos))
}

func (h *Handler) eligiblePromotions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, err := wire.DecodeEligibilityRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	el, err := h.catalog.EligiblePromotions(ctx, req.Items, req.PromotionIDs)
	if err != nil {
		fail(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.EncodeEligibility(*el))
}

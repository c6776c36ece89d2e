package wire

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/promotion"
)

// EncodePromotion writes p as a JSON object.
func EncodePromotion(e *jx.Encoder, p promotion.Promotion) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("promotionCode")
	e.Str(p.Code)
	e.FieldStart("promotionName")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("promotionType")
	e.Str(string(p.Type))
	e.FieldStart("proportionType")
	e.Str(string(p.Proportion))
	e.FieldStart("discountAmount")
	encodeDecimal(e, p.DiscountAmount)
	e.FieldStart("startDate")
	encodeTimePtr(e, p.StartDate)
	e.FieldStart("endDate")
	encodeTimePtr(e, p.EndDate)
	e.FieldStart("minOrderValue")
	encodeDecimal(e, p.MinOrderValue)
	e.FieldStart("productIds")
	encodeStrings(e, p.ProductIDs)
	e.FieldStart("used")
	e.Bool(p.Used)
	e.ObjEnd()
}

// DecodePromotion reads a promotion object and normalizes it.
func DecodePromotion(d *jx.Decoder) (promotion.Promotion, error) {
	var p promotion.Promotion
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var (
			s   string
			err error
		)
		switch key {
		case "id":
			p.ID, err = decodeString(d)
		case "promotionCode", "code":
			p.Code, err = decodeString(d)
		case "promotionName", "name":
			p.Name, err = decodeString(d)
		case "description":
			p.Description, err = decodeString(d)
		case "promotionType", "type":
			s, err = decodeString(d)
			p.Type = promotion.Type(s)
		case "proportionType", "proportion":
			s, err = decodeString(d)
			p.Proportion = promotion.Proportion(s)
		case "discountAmount":
			p.DiscountAmount, err = decodeDecimal(d)
		case "startDate":
			p.StartDate, err = decodeBound(d, false)
		case "endDate":
			p.EndDate, err = decodeBound(d, true)
		case "minOrderValue":
			p.MinOrderValue, err = decodeDecimal(d)
		case "productIds":
			p.ProductIDs, err = decodeIDs(d)
		case "used", "isUsed":
			p.Used, err = decodeBool(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return promotion.Promotion{}, errors.Wrap(err, "decode promotion")
	}
	return promotion.Normalize(p), nil
}

// EncodePromotions encodes a promotion list.
func EncodePromotions(promos []promotion.Promotion) []byte {
	return encodeArray(promos, EncodePromotion)
}

// DecodePromotions decodes a promotion list.
func DecodePromotions(data []byte) ([]promotion.Promotion, error) {
	return decodeArray(data, DecodePromotion)
}

// EncodeInfo writes a promotion summary.
func EncodeInfo(e *jx.Encoder, info promotion.Info) {
	e.ObjStart()
	e.FieldStart("promotionId")
	e.Str(info.PromotionID)
	e.FieldStart("promotionName")
	e.Str(info.PromotionName)
	e.FieldStart("discountAmount")
	encodeDecimal(e, info.DiscountAmount)
	e.FieldStart("isPercentage")
	e.Bool(info.IsPercentage)
	e.ObjEnd()
}

// EncodeInfos encodes a list of promotion summaries.
func EncodeInfos(infos []promotion.Info) []byte {
	return encodeArray(infos, EncodeInfo)
}

// EncodePriceResult writes an effective price.
func EncodePriceResult(e *jx.Encoder, r promotion.PriceResult) {
	e.ObjStart()
	e.FieldStart("hasActivePromotion")
	e.Bool(r.HasActivePromotion)
	e.FieldStart("originalPrice")
	encodeDecimal(e, r.OriginalPrice)
	e.FieldStart("finalPrice")
	encodeDecimal(e, r.FinalPrice)
	if r.Promotion != nil {
		e.FieldStart("promotionInfo")
		EncodeInfo(e, *r.Promotion)
	}
	e.ObjEnd()
}

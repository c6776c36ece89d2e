package wire

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/variant"
)

// EncodeView writes a product card: the product fields plus its price.
func EncodeView(e *jx.Encoder, v catalog.View) {
	e.ObjStart()
	e.FieldStart("product")
	EncodeProduct(e, v.Product)
	e.FieldStart("price")
	EncodePriceResult(e, v.Price)
	e.FieldStart("available")
	e.Bool(v.Product.Available())
	e.ObjEnd()
}

// EncodeViews encodes a product card list.
func EncodeViews(views []catalog.View) []byte {
	return encodeArray(views, EncodeView)
}

// EncodeSwitch encodes the result of a variant switch.
func EncodeSwitch(v catalog.View, switched bool) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("switched")
	e.Bool(switched)
	e.FieldStart("variant")
	EncodeView(&e, v)
	e.ObjEnd()
	return e.Bytes()
}

func encodeAttributes(e *jx.Encoder, attrs []variant.Attribute) {
	e.ArrStart()
	for _, a := range attrs {
		e.ObjStart()
		e.FieldStart("type")
		e.Str(string(a.Type))
		e.FieldStart("value")
		e.Str(a.Value)
		e.ObjEnd()
	}
	e.ArrEnd()
}

func encodeOptionGroup(e *jx.Encoder, g variant.OptionGroup) {
	e.ObjStart()
	e.FieldStart("type")
	e.Str(string(g.Type))
	e.FieldStart("label")
	e.Str(g.Label)
	e.FieldStart("options")
	e.ArrStart()
	for _, o := range g.Options {
		e.ObjStart()
		e.FieldStart("value")
		e.Str(o.Value)
		e.FieldStart("productId")
		e.Str(o.Product.ID)
		e.FieldStart("available")
		e.Bool(o.Available)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

// EncodeDetail encodes a product detail page.
func EncodeDetail(d catalog.Detail) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("product")
	EncodeProduct(&e, d.Product)
	e.FieldStart("price")
	EncodePriceResult(&e, d.Price)
	e.FieldStart("available")
	e.Bool(d.Product.Available())
	e.FieldStart("baseName")
	e.Str(d.Variant.BaseName)
	e.FieldStart("attributes")
	encodeAttributes(&e, d.Variant.Attributes)
	e.FieldStart("promotions")
	e.ArrStart()
	for _, info := range d.Promotions {
		EncodeInfo(&e, info)
	}
	e.ArrEnd()
	e.FieldStart("hasVariants")
	e.Bool(len(d.Variants) > 1)
	e.FieldStart("variants")
	e.ArrStart()
	for _, v := range d.Variants {
		EncodeView(&e, v)
	}
	e.ArrEnd()
	e.FieldStart("options")
	e.ArrStart()
	for _, g := range d.Options {
		encodeOptionGroup(&e, g)
	}
	e.ArrEnd()
	e.ObjEnd()
	return e.Bytes()
}

// EncodeGroups encodes base-name groups.
func EncodeGroups(groups []catalog.Group) []byte {
	return encodeArray(groups, func(e *jx.Encoder, g catalog.Group) {
		e.ObjStart()
		e.FieldStart("baseName")
		e.Str(g.BaseName)
		e.FieldStart("variants")
		e.ArrStart()
		for _, v := range g.Variants {
			EncodeView(e, v)
		}
		e.ArrEnd()
		e.ObjEnd()
	})
}

// EligibilityRequest is the body of a checkout promotion preview.
type EligibilityRequest struct {
	Items        []catalog.Line
	PromotionIDs []string
}

// DecodeEligibilityRequest reads {"items": [...], "promotionIds": [...]}.
func DecodeEligibilityRequest(data []byte) (EligibilityRequest, error) {
	var req EligibilityRequest
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				l, err := decodeLine(d)
				if err != nil {
					return err
				}
				req.Items = append(req.Items, catalog.Line(l))
				return nil
			})
		case "promotionIds":
			var err error
			req.PromotionIDs, err = decodeStrings(d)
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return EligibilityRequest{}, errors.Wrap(err, "decode eligibility request")
	}
	return req, nil
}

// EncodeEligibility encodes a checkout promotion preview.
func EncodeEligibility(el catalog.Eligibility) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("subtotal")
	encodeDecimal(&e, el.Subtotal)
	e.FieldStart("promotionIds")
	e.ArrStart()
	for _, p := range el.Promotions {
		e.Str(p.ID)
	}
	e.ArrEnd()
	e.FieldStart("promotions")
	e.ArrStart()
	for _, p := range el.Promotions {
		EncodePromotion(&e, p)
	}
	e.ArrEnd()
	e.ObjEnd()
	return e.Bytes()
}

// line is the shared shape of a requested cart line.
type line struct {
	ProductID string
	Quantity  int
}

func decodeLine(d *jx.Decoder) (line, error) {
	var l line
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			l.ProductID, err = d.Str()
		case "quantity":
			l.Quantity, err = d.Int()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return l, err
}

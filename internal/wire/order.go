package wire

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/order"
)

// DecodePlaceOrderRequest reads {"items": [...], "promotionIds": [...]}.
func DecodePlaceOrderRequest(data []byte) (order.PlaceOrderRequest, error) {
	var req order.PlaceOrderRequest
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				l, err := decodeLine(d)
				if err != nil {
					return err
				}
				req.Items = append(req.Items, order.LineRequest(l))
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
		return order.PlaceOrderRequest{}, errors.Wrap(err, "decode order request")
	}
	return req, nil
}

func encodeOrderItem(e *jx.Encoder, item order.OrderItem) {
	e.ObjStart()
	e.FieldStart("productId")
	e.Str(item.ProductID)
	e.FieldStart("quantity")
	e.Int(item.Quantity)
	e.FieldStart("unitPrice")
	encodeDecimal(e, item.UnitPrice)
	e.FieldStart("finalUnitPrice")
	encodeDecimal(e, item.FinalUnitPrice)
	if item.PromotionID != "" {
		e.FieldStart("promotionId")
		e.Str(item.PromotionID)
	}
	e.ObjEnd()
}

// EncodeOrder writes an order object.
func EncodeOrder(e *jx.Encoder, o order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("items")
	e.ArrStart()
	for _, item := range o.Items {
		encodeOrderItem(e, item)
	}
	e.ArrEnd()
	e.FieldStart("subtotal")
	encodeDecimal(e, o.Subtotal)
	e.FieldStart("discounts")
	encodeDecimal(e, o.Discounts)
	e.FieldStart("total")
	encodeDecimal(e, o.Total)
	e.FieldStart("promotionIds")
	encodeStrings(e, o.PromotionIDs)
	e.FieldStart("createdAt")
	encodeTime(e, o.CreatedAt)
	e.ObjEnd()
}

// EncodeOrderResult encodes a placed order with the products it references.
func EncodeOrderResult(r order.PlaceOrderResult) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("order")
	EncodeOrder(&e, *r.Order)
	e.FieldStart("products")
	e.ArrStart()
	for _, p := range r.Products {
		EncodeProduct(&e, p)
	}
	e.ArrEnd()
	e.ObjEnd()
	return e.Bytes()
}

// EncodeOrders encodes an order list.
func EncodeOrders(orders []order.Order) []byte {
	return encodeArray(orders, EncodeOrder)
}

// EncodeOrderBytes encodes one order.
func EncodeOrderBytes(o order.Order) []byte {
	var e jx.Encoder
	EncodeOrder(&e, o)
	return e.Bytes()
}

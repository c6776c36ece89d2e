package wire

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/product"
)

// EncodeProduct writes p as a JSON object.
func EncodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("productName")
	e.Str(p.Name)
	e.FieldStart("price")
	encodeDecimal(e, p.Price)
	e.FieldStart("quantity")
	e.Int(p.Quantity)
	e.FieldStart("categoryId")
	e.Str(p.CategoryID)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("image")
	e.Str(p.Image)
	e.FieldStart("slug")
	e.Str(p.Slug)
	e.FieldStart("isNew")
	e.Bool(p.IsNew)
	if !p.CreatedAt.IsZero() {
		e.FieldStart("createdAt")
		encodeTime(e, p.CreatedAt)
	}
	e.ObjEnd()
}

// DecodeProduct reads a product object. Unknown fields are skipped.
func DecodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = decodeString(d)
		case "productName", "name":
			p.Name, err = decodeString(d)
		case "price":
			p.Price, err = decodeDecimal(d)
		case "quantity":
			p.Quantity, err = decodeInt(d)
		case "categoryId":
			p.CategoryID, err = decodeString(d)
		case "description":
			p.Description, err = decodeString(d)
		case "image":
			p.Image, err = decodeString(d)
		case "slug":
			p.Slug, err = decodeString(d)
		case "isNew":
			p.IsNew, err = decodeBool(d)
		case "createdAt":
			p.CreatedAt, err = decodeTime(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return product.Product{}, errors.Wrap(err, "decode product")
	}
	if p.Price.IsNegative() {
		return product.Product{}, errors.Errorf("product %s: negative price", p.ID)
	}
	if p.Quantity < 0 {
		p.Quantity = 0
	}
	return p, nil
}

// EncodeProducts encodes a product list.
func EncodeProducts(products []product.Product) []byte {
	return encodeArray(products, EncodeProduct)
}

// DecodeProducts decodes a product list.
func DecodeProducts(data []byte) ([]product.Product, error) {
	return decodeArray(data, DecodeProduct)
}

package variant

import (
	"github.com/xenking/storefront/internal/domain/product"
)

// Group is a set of products sharing a base name.
type Group struct {
	BaseName string
	Products []product.Product
}

// Groups partitions products by base name. Groups appear in the order of
// their first product in the catalog and keep catalog order internally.
// Every product belongs to exactly one group.
func Groups(products []product.Product) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, p := range products {
		base := ExtractBaseName(p.Name)
		i, ok := index[base]
		if !ok {
			i = len(groups)
			index[base] = i
			groups = append(groups, Group{BaseName: base})
		}
		groups[i].Products = append(groups[i].Products, p)
	}
	return groups
}

// GroupByBaseName is Groups keyed by base name.
func GroupByBaseName(products []product.Product) map[string][]product.Product {
	out := make(map[string][]product.Product)
	for _, g := range Groups(products) {
		out[g.BaseName] = g.Products
	}
	return out
}

// Variants returns every product in all sharing p's base name, p included
// when it is part of all.
func Variants(p product.Product, all []product.Product) []product.Product {
	base := ExtractBaseName(p.Name)
	out := make([]product.Product, 0)
	for _, candidate := range all {
		if ExtractBaseName(candidate.Name) == base {
			out = append(out, candidate)
		}
	}
	return out
}

// HasVariants reports whether p's base-name group has two or more products.
func HasVariants(p product.Product, all []product.Product) bool {
	return len(Variants(p, all)) >= 2
}

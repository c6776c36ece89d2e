package variant

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/xenking/storefront/internal/domain/product"
)

// Option is one selectable attribute value within a variant group.
type Option struct {
	Value     string
	Product   product.Product
	Available bool
}

// OptionGroup collects the options of one attribute type.
type OptionGroup struct {
	Type    Type
	Label   string
	Options []Option
}

// Options builds one option group per attribute type present across
// variants. Each distinct value yields one option whose representative is the
// last product carrying it in catalog order. Storage options are ordered by
// capacity, the rest with Vietnamese collation.
func Options(variants []product.Product) []OptionGroup {
	byType := make(map[Type]map[string]Option, len(types))
	for _, p := range variants {
		for _, a := range Parse(p.Name).Attributes {
			opts, ok := byType[a.Type]
			if !ok {
				opts = make(map[string]Option)
				byType[a.Type] = opts
			}
			opts[a.Value] = Option{
				Value:     a.Value,
				Product:   p,
				Available: p.Available(),
			}
		}
	}

	col := collate.New(language.Vietnamese)
	groups := make([]OptionGroup, 0, len(byType))
	for _, t := range types {
		opts, ok := byType[t]
		if !ok {
			continue
		}
		list := make([]Option, 0, len(opts))
		for _, o := range opts {
			list = append(list, o)
		}
		if t == TypeStorage {
			slices.SortFunc(list, func(a, b Option) int {
				if c := cmp.Compare(capacityGB(a.Value), capacityGB(b.Value)); c != 0 {
					return c
				}
				return cmp.Compare(a.Value, b.Value)
			})
		} else {
			slices.SortFunc(list, func(a, b Option) int {
				if c := col.CompareString(a.Value, b.Value); c != 0 {
					return c
				}
				return cmp.Compare(a.Value, b.Value)
			})
		}
		groups = append(groups, OptionGroup{
			Type:    t,
			Label:   t.Label(),
			Options: list,
		})
	}
	return groups
}

// FindBest returns the variant whose attributes equal current's attributes
// with change applied (replacing the attribute of the same type, or adding
// it). It returns nil when no variant has exactly that combination; callers
// stay on the current product in that case.
func FindBest(variants []product.Product, current product.Product, change Attribute) *product.Product {
	change.Value = canonical(change.Type, change.Value)
	target := slices.Clone(Parse(current.Name).Attributes)
	replaced := false
	for i := range target {
		if target[i].Type == change.Type {
			target[i].Value = change.Value
			replaced = true
		}
	}
	if !replaced {
		target = append(target, change)
	}

	for i := range variants {
		if sameAttributes(Parse(variants[i].Name).Attributes, target) {
			return &variants[i]
		}
	}
	return nil
}

func sameAttributes(a, b []Attribute) bool {
	if len(a) != len(b) {
		return false
	}
	for _, x := range a {
		if !slices.ContainsFunc(b, func(y Attribute) bool {
			return x.Type == y.Type && strings.EqualFold(x.Value, y.Value)
		}) {
			return false
		}
	}
	return true
}

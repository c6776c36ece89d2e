// Package variant infers product variants from free-text product names.
//
// Names such as "iPhone 15 Pro 256GB Đen" carry variant tokens (storage,
// color, size, model) next to the product's canonical base name. The package
// strips those tokens with an ordered vocabulary table to group SKUs sharing a
// base name, and extracts the stripped tokens as structured attributes for
// variant selectors.
package variant

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Attribute is a single variant property extracted from a product name.
type Attribute struct {
	Type  Type
	Value string
}

// Info is the parsed form of a product name.
type Info struct {
	BaseName   string
	Attributes []Attribute
}

// Attribute returns the value recorded for typ.
func (i Info) Attribute(typ Type) (string, bool) {
	for _, a := range i.Attributes {
		if a.Type == typ {
			return a.Value, true
		}
	}
	return "", false
}

// ExtractBaseName strips variant tokens from name. The first token is always
// kept and the result is a fixed point: ExtractBaseName(ExtractBaseName(n))
// equals ExtractBaseName(n).
func ExtractBaseName(name string) string {
	return Parse(name).BaseName
}

// Parse derives the base name of name together with at most one attribute per
// type. For storage, color and size the leftmost token wins; successive model
// suffixes and generation markers are joined into a single model value
// ("Pro Max", "Gen 2").
func Parse(name string) Info {
	s := collapse(norm.NFC.String(name))
	if s == "" {
		return Info{BaseName: s, Attributes: []Attribute{}}
	}

	head, rest := s, ""
	if i := strings.IndexByte(s, ' '); i > 0 {
		head, rest = s[:i], s[i:]
	}

	found := make(map[Type]string, len(types))
	for changed := true; changed; {
		changed = false
		for i := range rules {
			r := &rules[i]
			for {
				m, ok := r.find(head, rest)
				if !ok {
					break
				}
				rest = " " + collapse(rest[:m.start]+" "+rest[m.end:])
				if rest == " " {
					rest = ""
				}
				record(found, r.typ, m.value)
				changed = true
			}
		}
	}

	attrs := make([]Attribute, 0, len(found))
	for _, t := range types {
		if v, ok := found[t]; ok {
			attrs = append(attrs, Attribute{Type: t, Value: v})
		}
	}
	return Info{
		BaseName:   collapse(head + rest),
		Attributes: attrs,
	}
}

// record stores value for typ. Model tokens are stripped from the end of the
// name backwards, so each new one is prepended.
func record(found map[Type]string, typ Type, value string) {
	prev, ok := found[typ]
	switch {
	case !ok:
		found[typ] = value
	case typ == TypeModel:
		found[typ] = value + " " + prev
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

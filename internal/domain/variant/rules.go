package variant

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Type is a variant attribute category.
type Type string

const (
	TypeStorage Type = "storage"
	TypeColor   Type = "color"
	TypeSize    Type = "size"
	TypeModel   Type = "model"
)

// types lists attribute categories in presentation order.
var types = []Type{TypeStorage, TypeColor, TypeSize, TypeModel}

// ParseType returns the attribute category named s.
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	return t, slices.Contains(types, t)
}

// Label returns the localized display name of the attribute type.
func (t Type) Label() string {
	switch t {
	case TypeStorage:
		return "Dung lượng"
	case TypeColor:
		return "Màu sắc"
	case TypeSize:
		return "Kích thước"
	case TypeModel:
		return "Phiên bản"
	default:
		return string(t)
	}
}

// Vocabularies. Multi-word entries are matched before their prefixes.
var (
	storageCapacities = []string{"8GB", "16GB", "32GB", "64GB", "128GB", "256GB", "512GB", "1TB", "2TB"}

	colorNames = []string{
		"Đen", "Trắng", "Đỏ", "Xanh", "Xanh dương", "Xanh lá", "Xanh lục", "Xanh ngọc",
		"Xanh navy", "Vàng", "Vàng hồng", "Tím", "Hồng", "Xám", "Bạc", "Cam", "Nâu", "Kem",
		"Titan", "Titan tự nhiên", "Titan đen", "Titan trắng", "Titan xanh", "Titan sa mạc",
	}

	sizeCodes = []string{"XS", "S", "M", "L", "XL", "XXL", "XXXL"}

	modelSuffixes = []string{"Pro", "Max", "Plus", "Mini", "Lite", "Standard", "Basic", "Premium"}
)

// rule is one entry of the variant vocabulary table. Rules run against the
// part of a name that follows its first token, which is never stripped.
type rule struct {
	typ Type
	re  *regexp.Regexp
	// canon maps a matched value to its display form.
	canon func(string) string
	// keepAfterNumber leaves a match in place when the token before it
	// contains a digit, e.g. the "Pro" in "iPhone 15 Pro".
	keepAfterNumber bool
}

// rules is the ordered vocabulary table: storage, color, size, model
// suffixes, then generation markers.
var rules = []rule{
	{
		typ:   TypeStorage,
		re:    regexp.MustCompile(`(?i)\s(` + capacityAlternation(storageCapacities) + `)(?:\s|$)`),
		canon: canonStorage,
	},
	{
		typ:   TypeColor,
		re:    regexp.MustCompile(`(?i)\s(` + alternation(colorNames) + `)(?:\s|$)`),
		canon: vocabulary(colorNames),
	},
	{
		typ:   TypeSize,
		re:    regexp.MustCompile(`\s(` + alternation(sizeCodes) + `)(?:\s|$)`),
		canon: strings.ToUpper,
	},
	{
		typ:             TypeModel,
		re:              regexp.MustCompile(`(?i)\s(` + alternation(modelSuffixes) + `)$`),
		canon:           vocabulary(modelSuffixes),
		keepAfterNumber: true,
	},
	{
		typ:   TypeModel,
		re:    regexp.MustCompile(`(?i)\s(Gen\s?\d+|\d+(?:st|nd|rd|th)\s+Gen)$`),
		canon: canonGeneration,
	},
}

// match is a located rule hit within rest.
type match struct {
	start, end int
	value      string
}

// find returns the leftmost hit of r in rest, where head is the protected
// first token preceding rest.
func (r *rule) find(head, rest string) (match, bool) {
	loc := r.re.FindStringSubmatchIndex(rest)
	if loc == nil {
		return match{}, false
	}
	if r.keepAfterNumber {
		before := strings.Fields(head + rest[:loc[0]])
		if prev := before[len(before)-1]; strings.ContainsFunc(prev, unicode.IsDigit) {
			return match{}, false
		}
	}
	return match{
		start: loc[0],
		end:   loc[1],
		value: r.canon(rest[loc[2]:loc[3]]),
	}, true
}

// canonical rewrites a requested attribute value into the form Parse
// records for typ, so "256 gb" compares equal to "256GB" and "gen2" to
// "Gen 2". Values outside the vocabulary only have whitespace collapsed.
func canonical(typ Type, value string) string {
	value = collapse(norm.NFC.String(value))
	padded := " " + value
	for i := range rules {
		r := &rules[i]
		if r.typ != typ {
			continue
		}
		loc := r.re.FindStringSubmatchIndex(padded)
		if loc != nil && loc[0] == 0 && loc[1] == len(padded) {
			return r.canon(padded[loc[2]:loc[3]])
		}
	}
	return value
}

// alternation builds a regexp alternation, longest entries first so that
// "Xanh dương" wins over "Xanh".
func alternation(words []string) string {
	sorted := slices.Clone(words)
	slices.SortStableFunc(sorted, func(a, b string) int {
		return len(b) - len(a)
	})
	parts := make([]string, len(sorted))
	for i, w := range sorted {
		parts[i] = strings.ReplaceAll(regexp.QuoteMeta(w), " ", `\s+`)
	}
	return strings.Join(parts, "|")
}

// capacityAlternation allows an optional space between amount and unit.
func capacityAlternation(caps []string) string {
	parts := make([]string, len(caps))
	for i, c := range caps {
		n := strings.TrimRightFunc(c, unicode.IsLetter)
		parts[i] = n + `\s?` + c[len(n):]
	}
	return strings.Join(parts, "|")
}

// vocabulary returns a canonicalizer mapping case-insensitive matches back to
// their vocabulary spelling.
func vocabulary(words []string) func(string) string {
	byFold := make(map[string]string, len(words))
	for _, w := range words {
		byFold[strings.ToLower(w)] = w
	}
	return func(s string) string {
		key := strings.ToLower(strings.Join(strings.Fields(s), " "))
		if w, ok := byFold[key]; ok {
			return w
		}
		return s
	}
}

func canonStorage(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

func canonGeneration(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 1 {
		// "Gen2" form.
		return "Gen " + fields[0][3:]
	}
	if strings.EqualFold(fields[0], "gen") {
		fields[0] = "Gen"
	} else {
		fields[1] = "Gen"
	}
	return strings.Join(fields, " ")
}

// capacityGB parses a canonical storage value ("256GB", "1TB") into gigabytes.
// Unparseable values sort last.
func capacityGB(v string) int {
	switch {
	case strings.HasSuffix(v, "TB"):
		n, err := strconv.Atoi(strings.TrimSuffix(v, "TB"))
		if err == nil {
			return n * 1024
		}
	case strings.HasSuffix(v, "GB"):
		n, err := strconv.Atoi(strings.TrimSuffix(v, "GB"))
		if err == nil {
			return n
		}
	}
	return int(^uint(0) >> 1)
}

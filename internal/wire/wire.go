// Package wire is the JSON codec shared by the HTTP API, the cache and the
// command-line tools.
//
// Decimals are written as JSON numbers and read from numbers or numeric
// strings. Timestamps are written as RFC 3339 and read from any of the
// ISO-8601 layouts in timeLayouts.
package wire

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// timeLayouts are tried in order when decoding timestamps. Layouts without a
// zone are interpreted as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

func encodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}

// decodeDecimal reads a number, a numeric string or null (zero).
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		if s == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(s)
	case jx.Null:
		return decimal.Zero, d.Null()
	default:
		return decimal.Zero, errors.Errorf("unexpected %s for decimal", d.Next())
	}
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339Nano))
}

// encodeTimePtr writes null for a missing timestamp.
func encodeTimePtr(e *jx.Encoder, t *time.Time) {
	if t == nil {
		e.Null()
		return
	}
	encodeTime(e, *t)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("invalid timestamp %q", s)
}

// decodeTimePtr reads a timestamp, returning nil for null or an empty string.
func decodeTimePtr(d *jx.Decoder) (*time.Time, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	t, err := parseTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// decodeBound reads a promotion window bound. Values that are not a
// parseable timestamp decode as nil, which leaves the promotion inactive. A
// date-only end bound covers the whole day.
func decodeBound(d *jx.Decoder, end bool) (*time.Time, error) {
	switch d.Next() {
	case jx.String:
	case jx.Null:
		return nil, d.Null()
	default:
		return nil, d.Skip()
	}
	s, err := d.Str()
	if err != nil {
		return nil, err
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		if end {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t, nil
	}
	if t, err := parseTime(s); err == nil {
		return &t, nil
	}
	return nil, nil
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	t, err := decodeTimePtr(d)
	if err != nil || t == nil {
		return time.Time{}, err
	}
	return *t, nil
}

// decodeString reads a string, treating null as empty.
func decodeString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// decodeBool reads a bool, treating null as false.
func decodeBool(d *jx.Decoder) (bool, error) {
	if d.Next() == jx.Null {
		return false, d.Null()
	}
	return d.Bool()
}

// decodeInt reads an integer, treating null as zero.
func decodeInt(d *jx.Decoder) (int, error) {
	if d.Next() == jx.Null {
		return 0, d.Null()
	}
	return d.Int()
}

// decodeStrings reads an array of strings, treating null as empty.
func decodeStrings(d *jx.Decoder) ([]string, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	var out []string
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

// decodeIDs reads an array of ids. Anything other than an array decodes as
// empty and non-string entries are dropped.
func decodeIDs(d *jx.Decoder) ([]string, error) {
	if d.Next() != jx.Array {
		return nil, d.Skip()
	}
	var out []string
	err := d.Arr(func(d *jx.Decoder) error {
		if d.Next() != jx.String {
			return d.Skip()
		}
		s, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

func encodeStrings(e *jx.Encoder, ss []string) {
	e.ArrStart()
	for _, s := range ss {
		e.Str(s)
	}
	e.ArrEnd()
}

// decodeArray decodes a top-level JSON array of T with fn.
func decodeArray[T any](data []byte, fn func(d *jx.Decoder) (T, error)) ([]T, error) {
	d := jx.DecodeBytes(data)
	out := make([]T, 0)
	if err := d.Arr(func(d *jx.Decoder) error {
		v, err := fn(d)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// encodeArray encodes items as a top-level JSON array with fn.
func encodeArray[T any](items []T, fn func(e *jx.Encoder, v T)) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, v := range items {
		fn(&e, v)
	}
	e.ArrEnd()
	return e.Bytes()
}

// EncodeError writes the API error body.
func EncodeError(code int, message string) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(code)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	return e.Bytes()
}

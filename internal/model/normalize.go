package model

import (
	"bytes"
	"time"

	"github.com/shopspring/decimal"
)

// normalize.go — zero-defaulting wire types.
// The upstream API is loosely typed: numeric fields arrive as numbers, quoted
// numbers, null, or are absent entirely. These types coerce everything to a
// usable zero value ONCE at the decode boundary so downstream computation
// never re-checks for missing values and never propagates NaN/null.

var jsonNull = []byte("null")

// LooseDecimal decodes any JSON numeric representation and falls back to zero
// on null, empty string, or parse failure.
type LooseDecimal decimal.Decimal

func (d *LooseDecimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, jsonNull) || bytes.Equal(data, []byte(`""`)) {
		*d = LooseDecimal(decimal.Zero)
		return nil
	}
	var v decimal.Decimal
	if err := v.UnmarshalJSON(data); err != nil {
		*d = LooseDecimal(decimal.Zero)
		return nil
	}
	*d = LooseDecimal(v)
	return nil
}

func (d LooseDecimal) Decimal() decimal.Decimal { return decimal.Decimal(d) }

// LooseInt decodes ints that may arrive as null, floats, or quoted numbers.
type LooseInt int

func (i *LooseInt) UnmarshalJSON(data []byte) error {
	var d LooseDecimal
	_ = d.UnmarshalJSON(data)
	*i = LooseInt(d.Decimal().IntPart())
	return nil
}

func (i LooseInt) Int() int { return int(i) }

// LooseTime decodes RFC 3339 timestamps (with or without fractional seconds)
// and falls back to the zero time on null or parse failure.
type LooseTime time.Time

func (t *LooseTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(bytes.Trim(bytes.TrimSpace(data), `"`))
	if len(data) == 0 || bytes.Equal(data, jsonNull) {
		*t = LooseTime(time.Time{})
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if v, err := time.Parse(layout, string(data)); err == nil {
			*t = LooseTime(v)
			return nil
		}
	}
	*t = LooseTime(time.Time{})
	return nil
}

func (t LooseTime) Time() time.Time { return time.Time(t) }

// TimePtr returns nil for the zero time, otherwise a pointer to the value.
func (t LooseTime) TimePtr() *time.Time {
	v := time.Time(t)
	if v.IsZero() {
		return nil
	}
	return &v
}

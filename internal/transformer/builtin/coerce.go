package builtin

import (
	"strconv"
	"strings"
	"time"

	"crmetl/internal/schema"
	"crmetl/pkg/records"
)

// Coerce converts raw cell text into typed values at the input boundary.
// Types maps a column to schema.TypeNumber, schema.TypeAuto or
// schema.TypeDate. Values that do not parse are left untouched for later
// steps to deal with.
type Coerce struct {
	Types  map[string]string
	Layout string // optional date layout tried before Excel serials
}

func (c Coerce) Apply(in []records.Record) []records.Record {
	if len(c.Types) == 0 {
		return in
	}
	for _, r := range in {
		for field, typ := range c.Types {
			v, ok := r[field]
			if !ok || v == nil {
				continue
			}
			switch typ {
			case schema.TypeNumber, schema.TypeAuto:
				r[field] = toNumber(v)
			case schema.TypeDate:
				r[field] = c.toDate(v)
			}
		}
	}
	return in
}

func toNumber(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f
		}
	}
	return v
}

func (c Coerce) toDate(v any) any {
	switch x := v.(type) {
	case float64, int:
		if t, ok, _ := toTime(x, nil); ok {
			return t
		}
	case string:
		s := strings.TrimSpace(x)
		if c.Layout != "" {
			if t, err := time.Parse(c.Layout, s); err == nil {
				return t
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if t, ok, _ := serialToTime(f); ok {
				return t
			}
		}
	}
	return v
}

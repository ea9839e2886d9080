package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// accessor извлекает значение из сырой записи; false означает, что значения нет.
type accessor func(raw map[string]any) (any, bool)

// key возвращает accessor для пути вложенных ключей.
func key(path ...string) accessor {
	return func(raw map[string]any) (any, bool) {
		var cur any = raw
		for _, k := range path {
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			cur, ok = m[k]
			if !ok || cur == nil {
				return nil, false
			}
		}
		return cur, true
	}
}

// fullName собирает имя из first_name и last_name вложенного объекта.
func fullName(obj string) accessor {
	return func(raw map[string]any) (any, bool) {
		m, ok := raw[obj].(map[string]any)
		if !ok {
			return nil, false
		}
		name := strings.TrimSpace(asString(m["first_name"]) + " " + asString(m["last_name"]))
		if name == "" {
			return nil, false
		}
		return name, true
	}
}

func flat(fields ...string) []accessor {
	out := make([]accessor, 0, len(fields))
	for _, f := range fields {
		out = append(out, key(f))
	}
	return out
}

func nested(objects []string, fields ...string) []accessor {
	out := make([]accessor, 0, len(objects)*len(fields))
	for _, obj := range objects {
		for _, f := range fields {
			out = append(out, key(obj, f))
		}
	}
	return out
}

func chain(groups ...[]accessor) []accessor {
	var out []accessor
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func firstString(raw map[string]any, aliases []accessor) string {
	for _, get := range aliases {
		if v, ok := get(raw); ok {
			if s := asString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstDecimal(raw map[string]any, aliases []accessor) (decimal.Decimal, bool) {
	for _, get := range aliases {
		if v, ok := get(raw); ok {
			if d, ok := asDecimal(v); ok {
				return d, true
			}
		}
	}
	return decimal.Zero, false
}

// firstNonNegativeDecimal пропускает отрицательные значения и берёт следующий псевдоним.
func firstNonNegativeDecimal(raw map[string]any, aliases []accessor) (decimal.Decimal, bool) {
	for _, get := range aliases {
		if v, ok := get(raw); ok {
			if d, ok := asDecimal(v); ok && !d.IsNegative() {
				return d, true
			}
		}
	}
	return decimal.Zero, false
}

func firstInt(raw map[string]any, aliases []accessor) int64 {
	for _, get := range aliases {
		if v, ok := get(raw); ok {
			if n, ok := asInt(v); ok {
				return n
			}
		}
	}
	return 0
}

func firstTime(raw map[string]any, aliases []accessor) *time.Time {
	for _, get := range aliases {
		if v, ok := get(raw); ok {
			if t, ok := asTime(v); ok {
				return &t
			}
		}
	}
	return nil
}

func firstObject(raw map[string]any, fields []string) map[string]any {
	for _, f := range fields {
		if m, ok := raw[f].(map[string]any); ok {
			return m
		}
	}
	return nil
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	}
	return ""
}

func asDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int64:
		return decimal.NewFromInt(x), true
	case decimal.Decimal:
		return x, true
	}
	return decimal.Zero, false
}

func asInt(v any) (int64, bool) {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, true
		}
		return 0, false
	case float64:
		return int64(x), true
	case int:
		return int64(x), true
	case int64:
		return x, true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// Форматы времени, которые встречаются в ответах бэкенда. Значения без зоны трактуются как локальные.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func asTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

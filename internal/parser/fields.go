package parser

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// payload is a read-only view over the two shapes the origin feed emits:
// flat fields on the trade itself, or market metadata nested under
// "market". Nested values win.
type payload struct {
	raw    map[string]any
	market map[string]any
}

func view(raw map[string]any) payload {
	p := payload{raw: raw}
	if m, ok := raw["market"].(map[string]any); ok {
		p.market = m
	}
	return p
}

// str returns the first non-empty string found under keys, looking in the
// nested market object before the flat payload.
func (p payload) str(keys ...string) string {
	for _, src := range []map[string]any{p.market, p.raw} {
		if src == nil {
			continue
		}
		for _, k := range keys {
			if s := asString(src[k]); s != "" {
				return s
			}
		}
	}
	return ""
}

// flat is like str but ignores the nested market object.
func (p payload) flat(keys ...string) string {
	for _, k := range keys {
		if s := asString(p.raw[k]); s != "" {
			return s
		}
	}
	return ""
}

func (p payload) title() string {
	return p.str("title", "question")
}

func (p payload) slug() string {
	return p.str("slug", "eventSlug", "marketSlug")
}

func (p payload) marketID() string {
	if p.market != nil {
		for _, k := range []string{"id", "conditionId", "ticker"} {
			if s := asString(p.market[k]); s != "" {
				return s
			}
		}
	}
	return p.flat("conditionId")
}

// firstPositive returns the first strictly positive number among keys.
func (p payload) firstPositive(keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := asFloat(p.raw[k]); ok && v > 0 {
			return v, true
		}
	}
	return 0, false
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// asTime accepts unix seconds, unix milliseconds, or an RFC 3339 string.
func asTime(v any) (time.Time, bool) {
	if s, ok := v.(string); ok {
		if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(s)); err == nil {
			return ts.UTC(), true
		}
	}
	f, ok := asFloat(v)
	if !ok || f <= 0 {
		return time.Time{}, false
	}
	if f > 1e12 {
		return time.UnixMilli(int64(f)).UTC(), true
	}
	return time.Unix(int64(f), 0).UTC(), true
}

// Timestamp reads the payload's trade time, if it has one.
func Timestamp(raw map[string]any) (time.Time, bool) {
	return asTime(raw["timestamp"])
}

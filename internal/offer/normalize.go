package offer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RawOffer is the shape returned by offer extraction: an issuer, a loosely
// typed field map keyed by catalog codes, and pricing values as found.
type RawOffer struct {
	Issuer        string         `json:"issuer"`
	Fields        map[string]any `json:"fields"`
	PremiumTotal  any            `json:"premium_total"`
	InsuredAmount any            `json:"insured_amount"`
	Currency      string         `json:"currency"`
	PeriodFrom    string         `json:"period_from"`
	PeriodTo      string         `json:"period_to"`
}

// Pricing is the pricing and period information kept outside the field map.
type Pricing struct {
	PremiumTotal  *float64   `json:"premium_total,omitempty"`
	InsuredAmount *float64   `json:"insured_amount,omitempty"`
	Currency      string     `json:"currency,omitempty"`
	PeriodFrom    *time.Time `json:"period_from,omitempty"`
	PeriodTo      *time.Time `json:"period_to,omitempty"`
}

// Record is a normalized offer. It is not modified after NormalizeRecord.
type Record struct {
	SourceID   string            `json:"source_id"`
	Issuer     string            `json:"issuer"`
	Fields     FieldMap          `json:"fields"`
	Unparsed   map[string]string `json:"unparsed,omitempty"`
	Pricing    Pricing           `json:"pricing"`
	SourceText string            `json:"-"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Normalized separates values that were read from values that were present
// but could not be coerced. Codes missing from the input appear in neither.
type Normalized struct {
	Fields   FieldMap          `json:"fields"`
	Unparsed map[string]string `json:"unparsed,omitempty"`
}

// Normalize coerces raw into the catalog's types. Unknown keys are ignored and
// malformed content never produces an error.
func Normalize(raw map[string]any, catalog Catalog) Normalized {
	out := Normalized{Fields: FieldMap{}, Unparsed: map[string]string{}}
	for _, field := range catalog {
		value, ok := lookup(raw, field.Code)
		if !ok || isBlank(value) {
			continue
		}
		typed, ok := coerce(field, value)
		if !ok {
			out.Unparsed[field.Code] = rawText(value)
			continue
		}
		out.Fields[field.Code] = typed
	}
	return out
}

// NormalizeRecord normalizes the field map and the pricing block of raw.
func NormalizeRecord(raw RawOffer, catalog Catalog) Record {
	normalized := Normalize(raw.Fields, catalog)
	rec := Record{
		Issuer:   strings.TrimSpace(raw.Issuer),
		Fields:   normalized.Fields,
		Unparsed: normalized.Unparsed,
	}

	if amount, ok := moneyFrom(raw.PremiumTotal); ok {
		rec.Pricing.PremiumTotal = &amount
	}
	if amount, ok := moneyFrom(raw.InsuredAmount); ok {
		rec.Pricing.InsuredAmount = &amount
	}

	currency := strings.ToUpper(strings.TrimSpace(raw.Currency))
	if len(currency) != 3 {
		currency = DetectCurrency(currency)
	}
	if currency == "" {
		if s, ok := raw.PremiumTotal.(string); ok {
			currency = DetectCurrency(s)
		}
	}
	rec.Pricing.Currency = currency

	if t, ok := ParseDate(raw.PeriodFrom); ok {
		rec.Pricing.PeriodFrom = &t
	}
	if t, ok := ParseDate(raw.PeriodTo); ok {
		rec.Pricing.PeriodTo = &t
	}
	return rec
}

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"2.1.2006",
	"02/01/2006",
	"2006.01.02",
	time.RFC3339,
}

// ParseDate reads the date formats seen in offers; day-first is assumed for
// slash and dot separated dates.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func lookup(raw map[string]any, code string) (any, bool) {
	if v, ok := raw[code]; ok {
		return v, true
	}
	for k, v := range raw {
		if strings.EqualFold(strings.TrimSpace(k), code) {
			return v, true
		}
	}
	return nil, false
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}
	return false
}

func coerce(field Field, v any) (Value, bool) {
	switch field.Type {
	case TypeBoolean:
		b, ok := ParseBool(v)
		if !ok {
			return Value{}, false
		}
		return BoolValue(b), true
	case TypeNumber:
		n, ok := moneyFrom(v)
		if !ok {
			return Value{}, false
		}
		return NumberValue(n), true
	case TypeText:
		s := strings.TrimSpace(rawText(v))
		if s == "" {
			return Value{}, false
		}
		if field.Enum != "" {
			if e, ok := LookupEnumeration(field.Enum); ok {
				if canonical, ok := e.Match(s); ok {
					s = canonical
				}
			}
		}
		return TextValue(s), true
	case TypeList:
		items := listFrom(v)
		if len(items) == 0 {
			return Value{}, false
		}
		return ListValue(items), true
	}
	return Value{}, false
}

func moneyFrom(v any) (float64, bool) {
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
		return ParseMoney(t)
	}
	return 0, false
}

func listFrom(v any) []string {
	var parts []string
	switch t := v.(type) {
	case []string:
		parts = t
	case []any:
		for _, item := range t {
			parts = append(parts, rawText(item))
		}
	case string:
		switch {
		case strings.ContainsAny(t, ";\n"):
			parts = strings.FieldsFunc(t, func(r rune) bool { return r == ';' || r == '\n' })
		default:
			parts = strings.Split(t, ",")
		}
	default:
		return nil
	}

	items := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(p), "-•*"))
		if p != "" {
			items = append(items, p)
		}
	}
	return items
}

func rawText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

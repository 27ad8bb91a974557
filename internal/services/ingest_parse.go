package services

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Lenient field extraction for the untyped summary and transaction blocks of
// a session payload. FIPs disagree on types (numbers as JSON numbers or
// strings, dates with or without time components), so every helper tolerates
// both and degrades to a default instead of failing the whole account.

func getString(block map[string]any, key string) string {
	if raw, ok := block[key]; ok {
		if s, ok := raw.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func getStringPtr(block map[string]any, key string) *string {
	s := getString(block, key)
	if s == "" {
		return nil
	}
	return &s
}

// parseDecimal accepts json.Number or string. Payloads are decoded with
// UseNumber, so monetary values never pass through a float.
func parseDecimal(raw any) (decimal.Decimal, bool) {
	switch v := raw.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return decimal.Decimal{}, false
		}
		if d, err := decimal.NewFromString(trimmed); err == nil {
			return d, true
		}
	case interface{ String() string }: // json.Number
		if d, err := decimal.NewFromString(v.String()); err == nil {
			return d, true
		}
	}
	return decimal.Decimal{}, false
}

func getDecimal(block map[string]any, key string, fallback decimal.Decimal) decimal.Decimal {
	if d, ok := parseDecimal(block[key]); ok {
		return d
	}
	return fallback
}

func getNullDecimal(block map[string]any, key string) decimal.NullDecimal {
	d, ok := parseDecimal(block[key])
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func getInt(block map[string]any, key string) *int {
	d, ok := parseDecimal(block[key])
	if !ok || !d.IsInteger() {
		return nil
	}
	n := int(d.IntPart())
	return &n
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(raw string) (time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func getTime(block map[string]any, key string) *time.Time {
	ts, ok := parseTimestamp(getString(block, key))
	if !ok {
		return nil
	}
	return &ts
}

func parseDate(raw string) *time.Time {
	ts, ok := parseTimestamp(raw)
	if !ok {
		return nil
	}
	return &ts
}

// parseCKYC maps the tri-state compliance string onto *bool: yes-ish true,
// no-ish false, anything else unknown.
func parseCKYC(raw string) *bool {
	var v bool
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "TRUE", "YES", "Y":
		v = true
	case "FALSE", "NO", "N":
		v = false
	default:
		return nil
	}
	return &v
}

func strPtrOrNil(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

package services

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestGetDecimalNeverRoundsThroughFloat(t *testing.T) {
	// a value that loses precision in float64
	block := map[string]any{"amount": json.Number("9007199254740993.11")}
	got := getDecimal(block, "amount", decimal.Zero)
	if got.String() != "9007199254740993.11" {
		t.Fatalf("precision lost: %s", got)
	}
}

func TestGetDecimalFallbacks(t *testing.T) {
	cases := []map[string]any{
		{},
		{"amount": nil},
		{"amount": ""},
		{"amount": "  "},
		{"amount": "not-a-number"},
		{"amount": true},
	}
	for i, block := range cases {
		if got := getDecimal(block, "amount", decimal.Zero); !got.IsZero() {
			t.Errorf("case %d: expected fallback, got %s", i, got)
		}
	}
}

func TestGetNullDecimal(t *testing.T) {
	if getNullDecimal(map[string]any{}, "x").Valid {
		t.Fatal("missing key must be null")
	}
	if getNullDecimal(map[string]any{"x": ""}, "x").Valid {
		t.Fatal("empty string must be null")
	}
	got := getNullDecimal(map[string]any{"x": "42.42"}, "x")
	if !got.Valid || got.Decimal.String() != "42.42" {
		t.Fatalf("unexpected value: %#v", got)
	}
}

func TestParseTimestampLayouts(t *testing.T) {
	cases := []string{
		"2026-07-01T10:15:00Z",
		"2026-07-01T10:15:00+05:30",
		"2026-07-01T10:15:00",
		"2026-07-01 10:15:00",
		"2026-07-01",
	}
	for _, raw := range cases {
		if _, ok := parseTimestamp(raw); !ok {
			t.Errorf("expected %q to parse", raw)
		}
	}
	if _, ok := parseTimestamp("01/07/2026"); ok {
		t.Error("unsupported layout must be rejected")
	}
	if _, ok := parseTimestamp(""); ok {
		t.Error("empty timestamp must be rejected")
	}
}

func TestParseCKYC(t *testing.T) {
	if v := parseCKYC("TRUE"); v == nil || !*v {
		t.Fatal("TRUE must parse true")
	}
	if v := parseCKYC("no"); v == nil || *v {
		t.Fatal("no must parse false")
	}
	if parseCKYC("maybe") != nil {
		t.Fatal("unknown value must stay nil")
	}
	if parseCKYC("") != nil {
		t.Fatal("empty value must stay nil")
	}
}

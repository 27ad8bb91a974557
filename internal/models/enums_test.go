package models

import "testing"

func TestParseConsentStatus(t *testing.T) {
	status, ok := ParseConsentStatus(" active ")
	if !ok || status != ConsentActive {
		t.Fatalf("expected ACTIVE, got %q %v", status, ok)
	}
	if _, ok := ParseConsentStatus("GRANTED"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
	if _, ok := ParseConsentStatus(""); ok {
		t.Fatal("expected empty status to be rejected")
	}
}

func TestConsentTransitions(t *testing.T) {
	cases := []struct {
		from, to ConsentStatus
		allowed  bool
	}{
		{ConsentPending, ConsentActive, true},
		{ConsentPending, ConsentRejected, true},
		{ConsentPending, ConsentExpired, true},
		{ConsentPending, ConsentRevoked, true},
		{ConsentPending, ConsentPaused, false},
		{ConsentActive, ConsentPaused, true},
		{ConsentActive, ConsentRevoked, true},
		{ConsentActive, ConsentRejected, false},
		{ConsentActive, ConsentExpired, false},
		{ConsentPaused, ConsentActive, true},
		{ConsentPaused, ConsentRevoked, true},
		{ConsentRejected, ConsentActive, false},
		{ConsentRevoked, ConsentActive, false},
		{ConsentExpired, ConsentRevoked, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestTerminalStatesAbsorb(t *testing.T) {
	for _, terminal := range []ConsentStatus{ConsentRevoked, ConsentExpired, ConsentRejected} {
		if !terminal.IsTerminal() {
			t.Errorf("%s should be terminal", terminal)
		}
		for _, next := range []ConsentStatus{ConsentPending, ConsentActive, ConsentRevoked, ConsentExpired, ConsentRejected, ConsentPaused} {
			if terminal.CanTransitionTo(next) {
				t.Errorf("%s -> %s should be blocked", terminal, next)
			}
		}
	}
}

func TestNormalizeFIType(t *testing.T) {
	cases := []struct {
		raw  string
		want FIType
	}{
		{"DEPOSIT", FITypeDeposit},
		{"deposit", FITypeDeposit},
		{"Savings-Deposit", FITypeDeposit},
		{"TERM_DEPOSIT", FITypeTermDeposit},
		{"term-deposit", FITypeTermDeposit},
		{"RECURRING_TERM_DEPOSIT", FITypeTermDeposit},
		{"MUTUAL_FUNDS", FITypeMutualFunds},
		{"EQUITY_SHARES", FITypeEquityShares},
		{"ETF", FITypeETF},
		{"crypto", FITypeDeposit},
		{"", FITypeDeposit},
	}
	for _, tc := range cases {
		if got := NormalizeFIType(tc.raw); got != tc.want {
			t.Errorf("NormalizeFIType(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestParseSessionStatus(t *testing.T) {
	status, ok := ParseSessionStatus("completed")
	if !ok || status != SessionCompleted {
		t.Fatalf("expected COMPLETED, got %q %v", status, ok)
	}
	if _, ok := ParseSessionStatus("DONE"); ok {
		t.Fatal("expected unknown session status to be rejected")
	}
}

package symbols

import "testing"

func TestNormalizeCanonical(t *testing.T) {
	n := New()
	for _, s := range Catalog() {
		got, ok := n.Normalize(s)
		if !ok || got != s {
			t.Fatalf("canonical %s did not round-trip: got %q ok=%v", s, got, ok)
		}
	}
}

func TestNormalizeAliases(t *testing.T) {
	n := New()
	cases := map[string]string{
		"ES":      "SPX",
		"/ES":     "SPX",
		"MES":     "SPX",
		"/MES":    "SPX",
		"ES=F":    "SPX",
		"spy":     "SPX",
		"nq":      "NDX",
		"QQQ":     "NDX",
		"/M2K":    "RUT",
		"iwm":     "RUT",
		"btcusd":  "BTC",
		"BTC-USD": "BTC",
		"/MBT":    "BTC",
		"nvidia":  "NVDA",
		"Apple":   "AAPL",
		"google":  "GOOGL",
		"GOOG":    "GOOGL",
		"tesla":   "TSLA",
	}
	for in, want := range cases {
		got, ok := n.Normalize(in)
		if !ok {
			t.Fatalf("expected %q to resolve", in)
		}
		if got != want {
			t.Fatalf("%q resolved to %s, want %s", in, got, want)
		}
	}
}

func TestNormalizeWhitespaceAndCase(t *testing.T) {
	n := New()
	got, ok := n.Normalize("  es \n")
	if !ok || got != "SPX" {
		t.Fatalf("whitespace-padded alias failed: got %q ok=%v", got, ok)
	}
}

func TestNormalizeAbsent(t *testing.T) {
	n := New()
	for _, in := range []string{"", "   ", "ZZZZ", "/CL", "DOGE", "SOME RANDOM COMPANY"} {
		if got, ok := n.Normalize(in); ok {
			t.Fatalf("expected no match for %q, got %s", in, got)
		}
	}
}

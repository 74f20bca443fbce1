package utils

import "testing"

func TestNormalizeTicker(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2330", "2330.TW"},
		{"0050", "0050.TW"},
		{" 2603 ", "2603.TW"},
		{"2330.TW", "2330.TW"},
		{"aapl", "AAPL"},
		{"voo", "VOO"},
		{"", ""},
	}

	for _, c := range cases {
		if got := NormalizeTicker(c.in); got != c.want {
			t.Errorf("NormalizeTicker(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestToYahooTicker(t *testing.T) {
	if got := ToYahooTicker("2881"); got != "2881.TW" {
		t.Errorf("ToYahooTicker(2881) = %q, want 2881.TW", got)
	}
	if got := ToYahooTicker("MSFT"); got != "MSFT" {
		t.Errorf("ToYahooTicker(MSFT) = %q, want MSFT", got)
	}
}

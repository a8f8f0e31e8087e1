package format

import "testing"

func TestCurrency(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{25e12, "$25.00T"},
		{1.5e9, "$1.50B"},
		{-2.5e9, "$-2.50B"},
		{7.891e6, "$7.89M"},
		{999999, "$999,999"},
		{1234.4, "$1,234"},
		{0, "$0"},
	}
	for _, tt := range tests {
		if got := Currency(tt.in); got != tt.want {
			t.Errorf("Currency(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSignedCurrency(t *testing.T) {
	if got := SignedCurrency(2e9); got != "+$2.00B" {
		t.Errorf("SignedCurrency(2e9) = %q", got)
	}
	if got := SignedCurrency(-3e12); got != "-$3.00T" {
		t.Errorf("SignedCurrency(-3e12) = %q", got)
	}
}

func TestFlag(t *testing.T) {
	if got := Flag("de"); got != "\U0001F1E9\U0001F1EA" {
		t.Errorf("Flag(de) = %q", got)
	}
	for _, bad := range []string{"", "D", "DEU", "1A"} {
		if got := Flag(bad); got != "??" {
			t.Errorf("Flag(%q) = %q, want ??", bad, got)
		}
	}
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"medicine":        "Medicine",
		"heavy_machinery": "Heavy Machinery",
		"oil-and GAS":     "Oil And Gas",
		"":                "",
	}
	for in, want := range tests {
		if got := TitleCase(in); got != want {
			t.Errorf("TitleCase(%q) = %q, want %q", in, got, want)
		}
	}
}

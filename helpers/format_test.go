package helpers

import "testing"

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		amount   float64
		expected string
	}{
		{0, "$0.00"},
		{999.5, "$999.50"},
		{1000, "$1,000.00"},
		{100000, "$100,000.00"},
		{93999.99, "$93,999.99"},
		{-2500.25, "-$2,500.25"},
	}

	for _, tt := range tests {
		if got := FormatUSD(tt.amount); got != tt.expected {
			t.Errorf("FormatUSD(%v) = %s, want %s", tt.amount, got, tt.expected)
		}
	}
}

func TestFormatPct(t *testing.T) {
	if got := FormatPct(3.25); got != "+3.25%" {
		t.Errorf("FormatPct(3.25) = %s", got)
	}
	if got := FormatPct(-1.5); got != "-1.50%" {
		t.Errorf("FormatPct(-1.5) = %s", got)
	}
}

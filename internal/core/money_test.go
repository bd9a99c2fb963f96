package core

import (
	"math"
	"testing"
)

func TestFormatCurrency(t *testing.T) {
	cases := []struct {
		in  float64
		out string
	}{
		{0, "0.00"},
		{0.5, "0.50"},
		{1, "1.00"},
		{12.3, "12.30"},
		{999.999, "1,000.00"},
		{1000.4, "1,000.40"},
		{1234.565, "1,234.57"},
		{1000000.99, "1,000,000.99"},
		{-12.345, "-12.35"},
		{-1500, "-1,500.00"},
		{-0.001, "0.00"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Inf"},
	}
	for _, tc := range cases {
		if got := FormatCurrency(tc.in); got != tc.out {
			t.Errorf("FormatCurrency(%v) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestFormatCurrencyIsPure(t *testing.T) {
	for _, v := range []float64{0, 1000.4, 42.42, 1e9} {
		first := FormatCurrency(v)
		for i := 0; i < 3; i++ {
			if got := FormatCurrency(v); got != first {
				t.Fatalf("FormatCurrency(%v) changed between calls: %q vs %q", v, first, got)
			}
		}
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(30); got != "$30.00" {
		t.Fatalf("got %q", got)
	}
	if got := FormatAmount(-2.5); got != "-$2.50" {
		t.Fatalf("got %q", got)
	}
}
